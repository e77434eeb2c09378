package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tinytelemetry/eventlens/internal/model"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	xmlRecordElement = "RECORD"
	xmlColumnElement = "COLUMN"
	xmlNameAttr      = "NAME"
)

type xmlColumn struct {
	name    string
	text    strings.Builder
	hasText bool  // false once a child element starts
	claims  []int // records this column supplies the value for
}

// ExtractXML reads every RECORD element of a scan export. For each expected
// field the first descendant COLUMN whose NAME matches supplies the value;
// fields without a column are set to "". With no expected fields, every
// column name seen is collected in order of first appearance.
func ExtractXML(r io.Reader, fields []string) (*Table, error) {
	dec := xml.NewDecoder(decodeBOM(r))
	dec.CharsetReader = charsetReader

	discover := len(fields) == 0
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}

	table := &Table{Header: append([]string(nil), fields...)}
	seenHeader := make(map[string]bool)

	var (
		sawRoot bool
		open    []int // indexes of RECORD elements currently open
		columns []*xmlColumn
		kinds   []string // element stack: RECORD, COLUMN, or ""
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(model.FormatXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			if n := len(columns); n > 0 {
				columns[n-1].hasText = false
			}
			switch t.Name.Local {
			case xmlRecordElement:
				rec := make(model.LogRecord, len(fields))
				table.Records = append(table.Records, rec)
				open = append(open, len(table.Records)-1)
				kinds = append(kinds, xmlRecordElement)
			case xmlColumnElement:
				col := &xmlColumn{hasText: true}
				name := columnName(t)
				if name != "" && (discover || wanted[name]) {
					if discover && len(open) > 0 && !seenHeader[name] {
						seenHeader[name] = true
						table.Header = append(table.Header, name)
					}
					// Claim at the start tag so the first column in document
					// order wins, even over columns nested inside it.
					for _, idx := range open {
						rec := table.Records[idx]
						if !rec.Has(name) {
							rec[name] = ""
							col.claims = append(col.claims, idx)
						}
					}
				}
				col.name = name
				columns = append(columns, col)
				kinds = append(kinds, xmlColumnElement)
			default:
				kinds = append(kinds, "")
			}

		case xml.CharData:
			if n := len(columns); n > 0 && columns[n-1].hasText {
				columns[n-1].text.Write(t)
			}

		case xml.EndElement:
			if len(kinds) == 0 {
				continue
			}
			kind := kinds[len(kinds)-1]
			kinds = kinds[:len(kinds)-1]

			switch kind {
			case xmlRecordElement:
				open = open[:len(open)-1]
			case xmlColumnElement:
				col := columns[len(columns)-1]
				columns = columns[:len(columns)-1]
				for _, idx := range col.claims {
					table.Records[idx][col.name] = col.text.String()
				}
			}
		}
	}

	if !sawRoot {
		return nil, malformed(model.FormatXML, errors.New("no root element"))
	}

	if !discover {
		for _, rec := range table.Records {
			for _, f := range fields {
				setFirst(rec, f, "")
			}
		}
	}

	return table, nil
}

func columnName(t xml.StartElement) string {
	for _, attr := range t.Attr {
		if attr.Name.Local == xmlNameAttr {
			return attr.Value
		}
	}
	return ""
}

// charsetReader accepts documents that declare a UTF-16 encoding (already
// transcoded by decodeBOM) and decodes legacy charsets such as windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8", "utf-16", "utf-16le", "utf-16be", "unicode":
		return input, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
