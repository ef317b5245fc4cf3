package ai

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"net/http"
	"slices"
)

// Config is populated from the environment with envstruct.
type Config struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"TWENTYQ_MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL string `env:"TWENTYQ_OPENAI_BASE_URL" envDefault:""`
	// ConsistencySamples is the number of extra generations compared against the answer.
	ConsistencySamples int `env:"TWENTYQ_CONSISTENCY_SAMPLES" envDefault:"3"`
}

// Client implements Model on top of the OpenAI chat completion API.
//
// Every Ask issues up to three requests: the answer itself, a batch of samples for observed consistency and a
// self-reflection prompt asking the model to grade its own answer.
type Client struct {
	client  *openai.Client
	model   string
	samples int
	logger  *slog.Logger
}

var _ Model = (*Client)(nil)

const (
	// samplingTemperature is used for the consistency samples so that they explore alternatives.
	samplingTemperature = 1.0
	// ReflectionMaxTokens bounds the self-reflection reply.
	ReflectionMaxTokens = 256
)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		samples: max(cfg.ConsistencySamples, 0),
		logger:  logger.With("source", "ai.Client"),
	}
}

func (c *Client) Ask(ctx context.Context, req Request) (Answer, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
		Role:    openai.ChatMessageRoleUser,
		Content: req.Question,
	})

	var (
		texts      []string
		samples    []string
		reflection []string
		err        error
	)

	if texts, err = c.complete(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}); err != nil {
		return Answer{}, errors.Wrap(err, "generate answer")
	}
	text := texts[0]

	if c.samples > 0 {
		if samples, err = c.complete(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.model,
			Messages:    messages,
			Temperature: samplingTemperature,
			N:           c.samples,
		}); err != nil {
			return Answer{}, errors.Wrap(err, "generate consistency samples")
		}
	}

	reflectionMessages := slices.Concat(messages, []openai.ChatCompletionMessage{
		{ //nolint:exhaustruct // this is better for readability
			Role:    openai.ChatMessageRoleAssistant,
			Content: text,
		},
		{ //nolint:exhaustruct // this is better for readability
			Role:    openai.ChatMessageRoleUser,
			Content: reflectionPrompt,
		},
	})
	if reflection, err = c.complete(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:     c.model,
		Messages:  reflectionMessages,
		MaxTokens: ReflectionMaxTokens,
	}); err != nil {
		return Answer{}, errors.Wrap(err, "self-reflect")
	}

	metrics := score(text, samples, reflection[0])
	c.logger.LogAttrs(ctx, slog.LevelDebug, "scored answer",
		slog.Float64("confidence", metrics.Confidence),
		slog.Float64("observed_consistency", metrics.ObservedConsistency),
		slog.Float64("self_reported_certainty", metrics.SelfReportedCertainty))

	return Answer{Text: text, Metrics: metrics}, nil
}

// complete returns the content of every choice. Rate limit responses are reported as ErrRateLimited.
func (c *Client) complete(ctx context.Context, request openai.ChatCompletionRequest) ([]string, error) {
	completion, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		if isRateLimit(err) {
			return nil, errors.Wrap(errors.Join(ErrRateLimited, err), "create chat completion")
		}
		return nil, errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("completion has no choices", slog.String("id", completion.ID))
	}
	contents := make([]string, len(completion.Choices))
	for i, choice := range completion.Choices {
		contents[i] = choice.Message.Content
	}
	return contents, nil
}

func isRateLimit(err error) bool {
	var (
		apiErr     *openai.APIError
		requestErr *openai.RequestError
	)
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	if errors.As(err, &requestErr) {
		return requestErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
