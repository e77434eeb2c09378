package extract

import (
	"io"

	"github.com/tinytelemetry/eventlens/internal/model"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is the raw output of one extractor.
type Table struct {
	Header  []string
	Records []model.LogRecord
	Skipped int
}

// decodeText strips a UTF-8 BOM and transcodes UTF-16 input (as written by
// Windows tools) to UTF-8. Input without a BOM passes through as UTF-8.
func decodeText(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// decodeBOM transcodes input that starts with a UTF-16 or UTF-8 BOM and
// passes everything else through untouched, leaving a declared charset to
// the XML decoder.
func decodeBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// setFirst stores value under name unless the record already has it, so the
// first occurrence of a duplicated field wins.
func setFirst(rec model.LogRecord, name, value string) {
	if _, seen := rec[name]; !seen {
		rec[name] = value
	}
}
