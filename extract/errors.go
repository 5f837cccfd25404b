package extract

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyContent is returned when a crawl produced no text to extract
	// from. The completion service is not called in that case.
	ErrEmptyContent = errors.New("crawled content is empty")

	ErrSchemaValidation = errors.New("response does not match schema")
)

// SchemaValidationError describes why a completion response was rejected.
// It matches ErrSchemaValidation.
type SchemaValidationError struct {
	Reason string
	// Err is the decoder or validator error, if any.
	Err error
}

func (e *SchemaValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrSchemaValidation, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

func (e *SchemaValidationError) Cause() error { return e.Err }

func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}
