package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSON_Array(t *testing.T) {
	t.Parallel()

	input := `[
	  {"TimeCreated": "\/Date(1753612245000)\/", "Id": 4624, "LevelDisplayName": "Information", "Properties": [1, 2], "UserId": null},
	  {"TimeCreated": "\/Date(1753612300000)\/", "Id": 4625, "LevelDisplayName": "Warning", "Extra": true},
	  42
	]`

	table, err := ExtractJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if len(table.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(table.Records))
	}
	if table.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", table.Skipped)
	}

	first := table.Records[0]
	if first.Get("Id") != "4624" {
		t.Errorf("Id = %q, want 4624", first.Get("Id"))
	}
	if first.Get("TimeCreated") != "/Date(1753612245000)/" {
		t.Errorf("TimeCreated = %q", first.Get("TimeCreated"))
	}
	if first.Get("Properties") != "[1,2]" {
		t.Errorf("Properties = %q, want [1,2]", first.Get("Properties"))
	}
	if !first.Has("UserId") || first.Get("UserId") != "" {
		t.Errorf("null should become empty string, got %q", first.Get("UserId"))
	}
	if table.Records[1].Get("Extra") != "true" {
		t.Errorf("Extra = %q, want true", table.Records[1].Get("Extra"))
	}

	want := "TimeCreated,Id,LevelDisplayName,Properties,UserId,Extra"
	if got := strings.Join(table.Header, ","); got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}

func TestExtractJSON_SingleObject(t *testing.T) {
	t.Parallel()

	table, err := ExtractJSON(strings.NewReader(`{"TimeCreated":"2025-07-27T10:00:00Z","Id":1,"LevelDisplayName":"Error"}`))
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if len(table.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(table.Records))
	}
}

func TestExtractJSON_NormalizesCRLF(t *testing.T) {
	t.Parallel()

	table, err := ExtractJSON(strings.NewReader(`{"Id":4625,"Message":"failed to log on.\r\n\r\nSubject:\rx"}`))
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got, want := table.Records[0].Get("Message"), "failed to log on.\n\nSubject:\rx"; got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`{"a":`, `"just a string"`, ``, `[1, 2]`} {
		_, err := ExtractJSON(strings.NewReader(input))
		if !errors.Is(err, ErrMalformedDocument) {
			t.Errorf("ExtractJSON(%q) err = %v, want ErrMalformedDocument", input, err)
		}
	}
}
