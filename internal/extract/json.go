package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/valyala/fastjson"
)

// ExtractJSON reads ConvertTo-Json output: one object or an array of objects.
// Array elements that are not objects are skipped and counted.
func ExtractJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(decodeText(r))
	if err != nil {
		return nil, malformed(model.FormatJSON, err)
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, malformed(model.FormatJSON, err)
	}

	var items []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeObject:
		items = []*fastjson.Value{v}
	case fastjson.TypeArray:
		items, _ = v.Array()
	default:
		return nil, malformed(model.FormatJSON, fmt.Errorf("top-level %s, want object or array", v.Type()))
	}

	table := &Table{}
	seen := make(map[string]bool)
	for _, item := range items {
		obj, err := item.Object()
		if err != nil {
			table.Skipped++
			continue
		}
		rec := make(model.LogRecord, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			name := string(key)
			if !seen[name] {
				seen[name] = true
				table.Header = append(table.Header, name)
			}
			setFirst(rec, name, stringifyJSONValue(val))
		})
		table.Records = append(table.Records, rec)
	}

	if len(items) > 0 && len(table.Records) == 0 {
		return nil, malformed(model.FormatJSON, errors.New("array holds no objects"))
	}
	return table, nil
}

func stringifyJSONValue(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		// encoding/csv reads quoted CRLF as LF; match it so exports round-trip
		return strings.ReplaceAll(string(b), "\r\n", "\n")
	case fastjson.TypeNull:
		return ""
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	default:
		// numbers keep their literal form; objects and arrays stay JSON text
		return v.String()
	}
}
