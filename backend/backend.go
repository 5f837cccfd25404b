package backend

import (
	"context"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mempirate/trawl/log"
)

const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultTemperature = 0.7

	// APIKeyEnv is read when no API key is passed explicitly.
	APIKeyEnv = "OPENAI_API_KEY"
)

var (
	ErrMissingAPIKey = errors.New("no OpenAI API key configured")
	ErrNoCompletion  = errors.New("completion returned no content")
)

// CompletionRequest asks for a document to be turned into a value matching
// Schema.
type CompletionRequest struct {
	// Instruction is sent as the system message.
	Instruction string
	// Document is the source text the value is extracted from.
	Document string
	// Schema is a JSON Schema value describing the expected output.
	Schema any
	// SchemaName identifies the schema to the service. Letters, digits,
	// underscores and dashes only.
	SchemaName  string
	Temperature float64
	Model       string
}

// Completer is a structured-completion service. Complete returns the raw
// text of the response, which is expected to be JSON matching the schema.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenAI is a Completer backed by the OpenAI chat completions API with
// structured outputs.
type OpenAI struct {
	log zerolog.Logger

	client *openai.Client
}

// NewOpenAI creates an OpenAI completer. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAI(apiKey string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}

	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	log := log.NewLogger("backend")

	log.Debug().Msg("Initializing OpenAI client")
	client := openai.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &OpenAI{
		log:    log,
		client: client,
	}, nil
}

// WithLogger replaces the backend's logger.
func (o *OpenAI) WithLogger(log zerolog.Logger) *OpenAI {
	o.log = log
	return o
}

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	start := time.Now()
	defer func() {
		o.log.Debug().Str("model", model).Dur("duration", time.Since(start)).Msg("Completion finished")
	}()

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   openai.F(req.SchemaName),
		Schema: openai.F[any](req.Schema),
		Strict: openai.Bool(true),
	}

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instruction),
			openai.UserMessage(req.Document),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONSchemaParam{
				Type:       openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
				JSONSchema: openai.F(schemaParam),
			},
		),
		Temperature: openai.Float(req.Temperature),
		Model:       openai.F(model),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create chat completion")
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoCompletion
	}

	message := completion.Choices[0].Message
	if message.Refusal != "" {
		return "", errors.Errorf("model refused to answer: %s", message.Refusal)
	}

	if message.Content == "" {
		return "", ErrNoCompletion
	}

	o.log.Debug().
		Int64("prompt_tokens", completion.Usage.PromptTokens).
		Int64("completion_tokens", completion.Usage.CompletionTokens).
		Msg("Completion usage")

	return message.Content, nil
}
