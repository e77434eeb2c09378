package extract

import (
	"errors"
	"fmt"

	"github.com/tinytelemetry/eventlens/internal/model"
)

var (
	// ErrMalformedDocument reports a source that cannot be parsed as its format.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrMissingColumns reports a table without the columns its schema requires.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrUnknownFormat reports a file whose format cannot be determined.
	ErrUnknownFormat = errors.New("unknown format")
)

// DocumentError is the fatal error returned when a whole source document is
// unusable. No partial result accompanies it.
type DocumentError struct {
	Path   string
	Format model.Format
	Err    error
}

func (e *DocumentError) Error() string {
	name := e.Path
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("%s: cannot read %s document: %v", name, e.Format, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func malformed(format model.Format, cause error) *DocumentError {
	return &DocumentError{
		Format: format,
		Err:    fmt.Errorf("%w: %v", ErrMalformedDocument, cause),
	}
}
