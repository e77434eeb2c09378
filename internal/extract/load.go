package extract

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// Options controls how a source document is interpreted.
type Options struct {
	Format model.Format // empty = detect from the file extension
	Schema string       // empty = detect from the header
	Fields []string     // expected XML fields; empty = the schema's fields
}

// DetectFormat derives the document format from a file name, ignoring a
// trailing .gz or .zst compression suffix.
func DetectFormat(path string) (model.Format, error) {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".zst")

	switch filepath.Ext(name) {
	case ".xml":
		return model.FormatXML, nil
	case ".csv":
		return model.FormatCSV, nil
	case ".json":
		return model.FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (model.Format, error) {
	switch f := model.Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", model.FormatXML, model.FormatCSV, model.FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Load opens path, extracts every record, and returns the dataset.
func Load(path string, opts Options) (*model.Dataset, error) {
	format := opts.Format
	if format == "" {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	rc, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	opts.Format = format
	ds, err := LoadReader(rc, path, opts)
	if err != nil {
		var docErr *DocumentError
		if errors.As(err, &docErr) && docErr.Path == "" {
			docErr.Path = path
		}
		return nil, err
	}

	log.Printf("extract: loaded %d records from %s (format=%s schema=%s skipped=%d)",
		len(ds.Records), path, ds.Format, ds.Schema.Name, ds.Skipped)
	return ds, nil
}

// LoadReader extracts a dataset from r. opts.Format is required.
func LoadReader(r io.Reader, name string, opts Options) (*model.Dataset, error) {
	var forced *model.Schema
	if opts.Schema != "" {
		s, ok := model.SchemaByName(opts.Schema)
		if !ok {
			return nil, fmt.Errorf("unknown schema %q", opts.Schema)
		}
		forced = &s
	}

	var (
		table *Table
		err   error
	)
	switch opts.Format {
	case model.FormatXML:
		schema := model.ScanSchema
		if forced != nil {
			schema = *forced
		}
		fields := opts.Fields
		if len(fields) == 0 {
			fields = schema.Fields
		}
		table, err = ExtractXML(r, fields)
	case model.FormatCSV:
		table, err = ExtractCSV(r)
	case model.FormatJSON:
		table, err = ExtractJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		var docErr *DocumentError
		if errors.As(err, &docErr) {
			docErr.Path = name
		}
		return nil, err
	}

	schema := model.DetectSchema(table.Header)
	if forced != nil {
		schema = *forced
	}
	if missing := schema.MissingColumns(table.Header); len(missing) > 0 {
		return nil, &DocumentError{
			Path:   name,
			Format: opts.Format,
			Err:    fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", ")),
		}
	}

	return &model.Dataset{
		ID:       uuid.NewString(),
		Source:   name,
		Format:   opts.Format,
		Schema:   schema,
		Header:   table.Header,
		Records:  table.Records,
		Skipped:  table.Skipped,
		LoadedAt: time.Now(),
	}, nil
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openSource opens path and layers gzip or zstd decompression by suffix.
func openSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, &DocumentError{Path: path, Format: "gzip", Err: fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
		}
		return &multiCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, &DocumentError{Path: path, Format: "zstd", Err: fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	}
	return f, nil
}
