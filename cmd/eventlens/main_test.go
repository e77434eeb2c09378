package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/eventlens/internal/extract"
	"github.com/tinytelemetry/eventlens/internal/model"
)

const eventsCSV = `"TimeCreated","LevelDisplayName","Id","Message"
"3/1/2024 10:00:00 AM","Information","4624","An account was successfully logged on."
"3/1/2024 10:20:00 AM","Warning","4625","An account failed to log on."
"3/1/2024 11:05:00 AM","Information","4624","An account was successfully logged on."
"3/1/2024 11:45:00 AM","Error","1000","Faulting application"
"","Warning","4625","An account failed to log on."
`

const scanXML = `<?xml version="1.0" encoding="utf-8"?>
<LOG>
  <RECORD>
    <COLUMN NAME="Time">2024-03-01 09:00:00</COLUMN>
    <COLUMN NAME="Scanned">100</COLUMN>
    <COLUMN NAME="Detected">1</COLUMN>
    <COLUMN NAME="Cleaned">0</COLUMN>
    <COLUMN NAME="Threat">Win32/Agent</COLUMN>
  </RECORD>
  <RECORD>
    <COLUMN NAME="Time">2024-03-01 10:00:00</COLUMN>
    <COLUMN NAME="Scanned">50</COLUMN>
    <COLUMN NAME="Detected">0</COLUMN>
    <COLUMN NAME="Cleaned">5</COLUMN>
    <COLUMN NAME="Threat">No Threat</COLUMN>
  </RECORD>
</LOG>
`

// writeInput creates name in a temp dir and returns its path.
func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI with an empty config file so a user config cannot leak in.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := writeInput(t, "config.yml", "timezone: UTC\n")
	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Version:    dev") {
		t.Errorf("unexpected version output:\n%s", out)
	}
}

func TestSummaryJSON(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)

	out, err := run(t, "summary", path, "--json")
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Schema string `json:"schema"`
		View   struct {
			Summary model.Summary `json:"summary"`
			Hours   [24]int64     `json:"hours"`
		} `json:"view"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if doc.Schema != "event" {
		t.Errorf("expected event schema, got %q", doc.Schema)
	}
	s := doc.View.Summary
	if s.Records != 5 || s.Timed != 4 {
		t.Errorf("expected 5 records with 4 timed, got %d/%d", s.Records, s.Timed)
	}
	if len(s.Top) == 0 || s.Top[0].Value != "4624" || s.Top[0].Count != 2 {
		t.Errorf("unexpected top entries %+v", s.Top)
	}
	if doc.View.Hours[10] != 2 || doc.View.Hours[11] != 2 {
		t.Errorf("unexpected hours %v", doc.View.Hours)
	}
}

func TestSummaryFiltered(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)

	out, err := run(t, "summary", path, "--json", "--level", "warning,error")
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		View struct {
			Summary model.Summary `json:"summary"`
		} `json:"view"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.View.Summary.Records != 3 {
		t.Errorf("expected 3 records, got %d", doc.View.Summary.Records)
	}
}

func TestSummaryText_Scan(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "scan.xml", scanXML)

	out, err := run(t, "summary", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"scan.xml", "xml / scan", "Scanned", "150", "Win32/Agent", "Top Threat"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "No Threat") {
		t.Errorf("no-value sentinel should not be listed:\n%s", out)
	}
}

func TestSummaryText_LevelsBySeverity(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)

	out, err := run(t, "summary", path)
	if err != nil {
		t.Fatal(err)
	}
	levels := out[strings.Index(out, "Levels"):]
	errAt, warnAt, infoAt := strings.Index(levels, "Error"), strings.Index(levels, "Warning"), strings.Index(levels, "Information")
	if errAt < 0 || !(errAt < warnAt && warnAt < infoAt) {
		t.Errorf("levels not listed most severe first:\n%s", levels)
	}
}

func TestRecordsFromStdin(t *testing.T) {
	t.Parallel()
	cfg := writeInput(t, "config.yml", "")

	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(eventsCSV))
	cmd.SetArgs([]string{"--config", cfg, "--format", "csv", "records", "-", "--level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "Faulting application") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	cmd = newRootCmd()
	cmd.SetIn(strings.NewReader(eventsCSV))
	cmd.SetArgs([]string{"--config", cfg, "records", "-"})
	if err := cmd.Execute(); !errors.Is(err, extract.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat without --format, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)
	dest := filepath.Join(t.TempDir(), "out", "failed.csv")

	out, err := run(t, "export", path, "-o", dest, "--id", "4625")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wrote 2 records") {
		t.Errorf("unexpected output %q", out)
	}

	ds, err := extract.Load(dest, extract.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("expected 2 exported records, got %d", len(ds.Records))
	}
	for _, rec := range ds.Records {
		if rec.Get("Id") != "4625" {
			t.Errorf("unexpected record %v", rec)
		}
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)

	out, err := run(t, "export", path, "-o", "-", "--match", "Faulting")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "TimeCreated,LevelDisplayName,Id,Message" {
		t.Errorf("unexpected CSV:\n%s", out)
	}
}

func TestRecordsCommand(t *testing.T) {
	t.Parallel()
	path := writeInput(t, "Security.csv", eventsCSV)

	out, err := run(t, "records", path, "--limit", "2")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if got := strings.Split(lines[1], "\t"); len(got) != 4 || got[2] != "4624" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestCommandErrors(t *testing.T) {
	t.Parallel()
	missingCols := writeInput(t, "bad.csv", "TimeCreated,Message\nx,y\n")
	events := writeInput(t, "Security.csv", eventsCSV)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"missing columns", []string{"summary", missingCols}, extract.ErrMissingColumns},
		{"unknown extension", []string{"summary", writeInput(t, "log.txt", "x")}, extract.ErrUnknownFormat},
		{"bad format flag", []string{"summary", events, "--format", "yaml"}, extract.ErrUnknownFormat},
		{"missing file", []string{"summary", filepath.Join(t.TempDir(), "nope.csv")}, os.ErrNotExist},
		{"bad regex", []string{"records", events, "--match", "("}, nil},
		{"bad schema", []string{"summary", events, "--schema", "firewall"}, nil},
		{"no file", []string{"summary"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	t.Parallel()
	cfgPath := writeInput(t, "config.yml", "top-n: 3\napi-addr: 127.0.0.1:9999\ndescribe-file: ~/events.yml\n")

	sub, _, err := newRootCmd().Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.ParseFlags([]string{"--api-addr", "127.0.0.1:0"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(sub, cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TopN != 3 {
		t.Errorf("expected top-n from file, got %d", cfg.TopN)
	}
	if cfg.APIAddr != "127.0.0.1:0" {
		t.Errorf("expected flag to override file, got %q", cfg.APIAddr)
	}
	if cfg.ConfigPath != cfgPath {
		t.Errorf("expected config path %q, got %q", cfgPath, cfg.ConfigPath)
	}
	if strings.HasPrefix(cfg.DescribeFile, "~") {
		t.Errorf("expected ~ expansion, got %q", cfg.DescribeFile)
	}
	if cfg.QueryTimeout != model.DefaultQueryTimeout {
		t.Errorf("expected default query timeout, got %v", cfg.QueryTimeout)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("EVENTLENS_EXPORT_DIR", "/tmp/exports")
	t.Setenv("EVENTLENS_API_USER", "admin")

	cfg, err := loadConfig(newRootCmd(), filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ExportDir != "/tmp/exports" || cfg.APIUser != "admin" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("missing config file should not be reported, got %q", cfg.ConfigPath)
	}
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	path := writeInput(t, "Security.csv", eventsCSV)
	ds, err := extract.Load(path, extract.Options{})
	if err != nil {
		t.Fatal(err)
	}
	cfg := appConfig{APIAddr: "127.0.0.1:0", QueryTimeout: model.DefaultQueryTimeout}
	parser, err := cfg.parser()
	if err != nil {
		t.Fatal(err)
	}
	s := &session{cfg: cfg, parser: parser, dataset: ds}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := runServer(ctx, s, &out); err != nil {
		t.Fatalf("runServer: %v", err)
	}
	if !strings.Contains(out.String(), "HTTP API") || !strings.Contains(out.String(), "Security.csv") {
		t.Errorf("unexpected banner:\n%s", out.String())
	}
}
