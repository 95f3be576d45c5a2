package models

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/config"
	"github.com/gessage/gcm/internal/ui"
)

const openAIName = "OpenAI"

func init() {
	ai.Register(ai.Provider{
		Name:        openAIName,
		Constructor: newOpenAIFromConfig,
		Available:   func(cfg *config.Config) bool { return cfg.OpenAI.APIKey != "" },
	})
}

// OpenAIModelForTier maps MODEL_TIER to a model: cheap and premium are
// fixed, any other tier uses the configured model.
func OpenAIModelForTier(tier, configured string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "cheap":
		return "gpt-3.5-turbo"
	case "premium":
		return "gpt-4o"
	}
	if configured == "" {
		return "gpt-3.5-turbo"
	}
	return configured
}

// OpenAIOptions configures an OpenAI client.
type OpenAIOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Rand      *rand.Rand
	Log       zerolog.Logger
	Out       io.Writer
}

type openAIClient struct {
	api       *openai.Client
	apiKey    string
	model     string
	maxTokens int
	rng       *rand.Rand
	log       zerolog.Logger
	progress  *ui.Progress
}

// NewOpenAI builds an OpenAI chat-completions client.
func NewOpenAI(o OpenAIOptions) ai.Client {
	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.BaseURL, "/")
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: o.Timeout}
	if o.Rand == nil {
		o.Rand = newRand()
	}
	return &openAIClient{
		api:       openai.NewClientWithConfig(cfg),
		apiKey:    o.APIKey,
		model:     o.Model,
		maxTokens: o.MaxTokens,
		rng:       o.Rand,
		log:       o.Log.With().Str("provider", openAIName).Logger(),
		progress:  ui.NewProgress(o.Out),
	}
}

func newOpenAIFromConfig(opts ai.Options) (ai.Client, error) {
	cfg := opts.Config
	return NewOpenAI(OpenAIOptions{
		BaseURL:   cfg.OpenAI.BaseURL,
		APIKey:    cfg.OpenAI.APIKey,
		Model:     OpenAIModelForTier(cfg.OpenAI.Tier, cfg.OpenAI.Model),
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.RequestTimeout,
		Log:       opts.Log,
		Out:       opts.Out,
	}), nil
}

func (c *openAIClient) Name() string { return openAIName }

func (c *openAIClient) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list openai models")
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.ID)
	}
	return out, nil
}

func (c *openAIClient) Query(ctx context.Context, prompt string) ai.QueryResult {
	if c.apiKey == "" {
		return ai.Failure(openAIName, "", ai.StatusNotConfigured, nil, "OPENAI_API_KEY is not set")
	}

	model := c.model
	if model == randomSentinel {
		models, err := c.ListModels(ctx)
		if err != nil {
			return ai.Failure(openAIName, "", openAIStatus(err), err, "could not list models: %v", err)
		}
		var ok bool
		if model, ok = pick(c.rng, models); !ok {
			return ai.Failure(openAIName, "", ai.StatusMalformed, nil, "no models available to pick from")
		}
	}

	start := time.Now()
	c.progress.Start(openAIName, model)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: c.maxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		status := openAIStatus(err)
		c.progress.Fail("Error %d with model %s", status, model)
		c.log.Warn().Err(err).Str("model", model).Int("status", status).Msg("chat completion failed")
		res := ai.Failure(openAIName, model, status, err, "%v", err)
		res.Elapsed = elapsed
		return res
	}
	if len(resp.Choices) == 0 {
		c.progress.Fail("Malformed response from model %s", model)
		return ai.Failure(openAIName, model, ai.StatusMalformed, nil, "no choices from openai")
	}
	c.progress.Done()

	res := ai.QueryResult{
		Provider:   openAIName,
		StatusCode: ai.StatusOK,
		Model:      model,
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: &ai.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Elapsed: elapsed,
	}
	if res.Text == "" {
		res.Text = noValidResponse
		res.Placeholder = true
		c.log.Warn().Str("model", model).Msg("model returned an empty completion")
	}
	return res
}

// openAIStatus extracts the HTTP status from a go-openai error.
func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode
	}
	return ai.StatusTransport
}
