package extract

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"regexp"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

const (
	defaultSchemaName = "result"
	maxSchemaNameLen  = 64
)

var reflector = invopop.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SchemaFor reflects the JSON Schema of T. Fields without `omitempty` are
// required.
func SchemaFor[T any]() (*jsonschema.Schema, error) {
	var v T
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reflect schema of %T", v)
	}

	return LoadSchema(data)
}

// SchemaName returns the name T is announced under to the completion service.
func SchemaName[T any]() string {
	return SanitizeSchemaName(reflect.TypeFor[T]().Name())
}

// SanitizeSchemaName maps name onto the characters allowed in a schema name.
func SanitizeSchemaName(name string) string {
	name = invalidNameChars.ReplaceAllString(name, "_")
	if len(name) > maxSchemaNameLen {
		name = name[:maxSchemaNameLen]
	}

	if name == "" || name == "_" {
		return defaultSchemaName
	}

	return name
}

// LoadSchema parses a JSON Schema document.
func LoadSchema(data []byte) (*jsonschema.Schema, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON schema")
	}

	return &s, nil
}

// Strict returns a copy of s that strict structured outputs accept: every
// object is closed and lists all of its properties as required. Properties
// s left optional become nullable instead.
func Strict(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema")
	}

	out, err := LoadSchema(data)
	if err != nil {
		return nil, err
	}

	// The service takes the bare schema.
	out.Schema = ""
	out.ID = ""

	tighten(out)
	return out, nil
}

func tighten(s *jsonschema.Schema) {
	if s == nil {
		return
	}

	if isObject(s) {
		required := s.Required
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			if !slices.Contains(required, name) {
				required = append(required, name)
				nullable(s.Properties[name])
			}
		}

		s.Required = required
		s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	}

	for _, sub := range s.Properties {
		tighten(sub)
	}

	tighten(s.Items)

	for _, sub := range slices.Concat(s.PrefixItems, s.AllOf, s.AnyOf, s.OneOf) {
		tighten(sub)
	}

	for _, sub := range s.Defs {
		tighten(sub)
	}

	for _, sub := range s.Definitions {
		tighten(sub)
	}
}

func isObject(s *jsonschema.Schema) bool {
	return s.Type == "object" || slices.Contains(s.Types, "object") || len(s.Properties) > 0
}

// nullable widens s so that it also accepts null.
func nullable(s *jsonschema.Schema) {
	if s == nil {
		return
	}

	switch {
	case s.Type == "null" || slices.Contains(s.Types, "null"):
	case s.Type != "" && len(s.Enum) == 0:
		s.Types = []string{s.Type, "null"}
		s.Type = ""
	case len(s.Types) > 0 && len(s.Enum) == 0:
		s.Types = append(s.Types, "null")
	default:
		inner := *s
		*s = jsonschema.Schema{AnyOf: []*jsonschema.Schema{&inner, {Type: "null"}}}
	}
}

// Validate checks that raw is a single JSON value that s accepts.
func Validate(raw []byte, s *jsonschema.Schema) error {
	rs, err := s.Resolve(nil)
	if err != nil {
		return errors.Wrap(err, "failed to resolve schema")
	}

	return validate(raw, rs)
}

func validate(raw []byte, rs *jsonschema.Resolved) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	var v any
	if err := dec.Decode(&v); err != nil {
		return &SchemaValidationError{Reason: "response is not valid JSON", Err: err}
	}

	if dec.More() {
		return &SchemaValidationError{Reason: "trailing data after JSON value"}
	}

	if err := rs.Validate(v); err != nil {
		return &SchemaValidationError{Reason: "validation failed", Err: err}
	}

	return nil
}
