package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mempirate/trawl/backend"
	"github.com/mempirate/trawl/crawler"
	"github.com/mempirate/trawl/log"
	"github.com/mempirate/trawl/prompt"
	"github.com/mempirate/trawl/util"
)

// DefaultMaxDepth only extracts from the base page.
const DefaultMaxDepth = 0

// Crawler produces the markdown document an extraction works on.
type Crawler interface {
	Crawl(ctx context.Context, baseURL string, maxDepth int, format crawler.Format) (*crawler.Result, error)
}

// Extractor crawls a site and has a completion service fill in a schema from
// the crawled markdown.
type Extractor struct {
	log zerolog.Logger

	crawler   Crawler
	completer backend.Completer

	model       string
	temperature float64
	instruction string
}

type Option func(*Extractor)

func WithModel(model string) Option {
	return func(x *Extractor) {
		if model != "" {
			x.model = model
		}
	}
}

func WithTemperature(temperature float64) Option {
	return func(x *Extractor) {
		x.temperature = temperature
	}
}

// WithInstruction replaces the system message sent with every request.
func WithInstruction(instruction string) Option {
	return func(x *Extractor) {
		if instruction != "" {
			x.instruction = instruction
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(x *Extractor) {
		x.log = log
	}
}

func New(c Crawler, completer backend.Completer, opts ...Option) (*Extractor, error) {
	if c == nil {
		return nil, errors.New("extract.New: crawler cannot be nil")
	}

	if completer == nil {
		return nil, errors.New("extract.New: completer cannot be nil")
	}

	x := &Extractor{
		log:         log.NewLogger("extract"),
		crawler:     c,
		completer:   completer,
		model:       backend.DefaultModel,
		temperature: backend.DefaultTemperature,
		instruction: prompt.EXTRACTION_INSTRUCTIONS,
	}

	for _, opt := range opts {
		opt(x)
	}

	return x, nil
}

// ExtractRaw crawls baseURL up to maxDepth and returns the completion
// response after checking it against schema. The service is sent the Strict
// form of schema and the response is checked against that same form. The
// returned JSON keeps the field order of the response.
func (x *Extractor) ExtractRaw(ctx context.Context, baseURL string, schema *jsonschema.Schema, name string, maxDepth int) (json.RawMessage, error) {
	if schema == nil {
		return nil, errors.New("no schema given")
	}

	strict, err := Strict(schema)
	if err != nil {
		return nil, err
	}

	resolved, err := strict.Resolve(nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid schema")
	}

	result, err := x.crawler.Crawl(ctx, baseURL, maxDepth, crawler.FormatMarkdown)
	if err != nil {
		return nil, errors.Wrap(err, "failed to crawl")
	}

	if strings.TrimSpace(result.Markdown) == "" {
		return nil, errors.Wrapf(ErrEmptyContent, "nothing to extract from %s", baseURL)
	}

	name = SanitizeSchemaName(name)

	log := x.log.With().Str("url", baseURL).Str("schema", name).Logger()
	log.Info().
		Int("pages", result.Len()).
		Str("size", util.FormatBytes(int64(len(result.Markdown)))).
		Str("model", x.model).
		Msg("Extracting structured data")

	start := time.Now()

	raw, err := x.completer.Complete(ctx, backend.CompletionRequest{
		Instruction: x.instruction,
		Document:    result.Markdown,
		Schema:      strict,
		SchemaName:  name,
		Temperature: x.temperature,
		Model:       x.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "completion failed")
	}

	if err := validate([]byte(raw), resolved); err != nil {
		log.Warn().Err(err).Msg("Response does not match schema")
		return nil, err
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Extraction finished")

	return json.RawMessage(raw), nil
}

// Extract is ExtractRaw with the schema reflected from T and the response
// decoded into a T. Fields the response carries but T lacks are rejected.
func Extract[T any](ctx context.Context, x *Extractor, baseURL string, maxDepth int) (*T, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return nil, err
	}

	raw, err := x.ExtractRaw(ctx, baseURL, schema, SchemaName[T](), maxDepth)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var out T
	if err := dec.Decode(&out); err != nil {
		return nil, &SchemaValidationError{Reason: fmt.Sprintf("response does not decode into %T", out), Err: err}
	}

	return &out, nil
}
