package extract

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/tinytelemetry/eventlens/internal/model"
)

// powershellTypeLine is the preamble Export-Csv writes without -NoTypeInformation.
const powershellTypeLine = "#TYPE"

// ExtractCSV reads a header row and turns every following row into a record.
// Short rows leave the trailing fields missing, long rows lose the extra
// cells, and rows the CSV reader cannot parse are skipped and counted.
func ExtractCSV(r io.Reader) (*Table, error) {
	src, err := skipTypePreamble(decodeText(r))
	if err != nil {
		return nil, malformed(model.FormatCSV, err)
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, malformed(model.FormatCSV, errors.New("no header row"))
	}
	if err != nil {
		return nil, malformed(model.FormatCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Skipped++
				log.Printf("extract: skipping malformed csv row at line %d: %v", parseErr.StartLine, parseErr.Err)
				continue
			}
			return nil, malformed(model.FormatCSV, err)
		}

		rec := make(model.LogRecord, len(header))
		for i, value := range row {
			if i >= len(header) {
				break
			}
			setFirst(rec, header[i], value)
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func skipTypePreamble(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if strings.HasPrefix(first, powershellTypeLine) {
		return br, nil
	}
	return io.MultiReader(strings.NewReader(first), br), nil
}
