package scrape

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidURL is returned for URLs without an http or https scheme.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrNotHTML signals that a response is not an HTML page. It is a skip
	// signal for the caller, not a failure of the crawl.
	ErrNotHTML = errors.New("not HTML content")
)

// ConnectionError is returned when a URL could not be retrieved, either
// because the transport failed or because the server answered with a
// non-2xx status.
type ConnectionError struct {
	URL string
	// StatusCode is zero for transport failures.
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error fetching URL %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("error fetching URL %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Cause implements the pkg/errors causer interface.
func (e *ConnectionError) Cause() error { return e.Err }

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
