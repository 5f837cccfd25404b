package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Output is the writer every logger created by NewLogger writes to.
var Output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}

// NewLogger returns a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return zerolog.New(Output).With().Timestamp().Str("component", component).Logger()
}

// SetLevel sets the global log level from its name ("debug", "info", ...).
// An empty name leaves the level unchanged.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}

	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", name)
	}

	zerolog.SetGlobalLevel(level)
	return nil
}
