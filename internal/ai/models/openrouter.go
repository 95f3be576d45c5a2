package models

import (
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/blacklist"
	"github.com/gessage/gcm/internal/config"
	"github.com/gessage/gcm/internal/ui"
)

const (
	openRouterName        = "OpenRouter"
	noValidResponse       = "No valid response from model."
	noModelResponded      = "No response could be obtained from any model."
	defaultOpenRouterTopN = 5
)

func init() {
	ai.Register(ai.Provider{
		Name:        openRouterName,
		Constructor: newOpenRouterFromConfig,
		Available:   func(cfg *config.Config) bool { return cfg.OpenRouter.APIKey != "" },
	})
}

// OpenRouterOptions configures an OpenRouter client.
type OpenRouterOptions struct {
	BaseURL string
	APIKey  string
	// Model is either a model id or a selection keyword such as FreeTop.
	Model     string
	TopN      int
	MaxTokens int
	Timeout   time.Duration
	Blacklist *blacklist.List
	// Rand drives shuffling and random picks; nil seeds a fresh one.
	Rand *rand.Rand
	Log  zerolog.Logger
	Out  io.Writer
}

// OpenRouter queries free models on openrouter.ai, selecting candidates from
// the catalog and falling back through them until one answers.
type OpenRouter struct {
	http      *resty.Client
	apiKey    string
	model     string
	topN      int
	maxTokens int
	blacklist *blacklist.List
	rng       *rand.Rand
	log       zerolog.Logger
	progress  *ui.Progress
}

// NewOpenRouter builds a client from explicit options.
func NewOpenRouter(o OpenRouterOptions) *OpenRouter {
	if o.Rand == nil {
		o.Rand = newRand()
	}
	if o.TopN < 1 {
		o.TopN = defaultOpenRouterTopN
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	return &OpenRouter{
		http: resty.New().
			SetBaseURL(strings.TrimRight(o.BaseURL, "/")).
			SetAuthToken(o.APIKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(o.Timeout),
		apiKey:    o.APIKey,
		model:     strings.TrimSpace(o.Model),
		topN:      o.TopN,
		maxTokens: o.MaxTokens,
		blacklist: o.Blacklist,
		rng:       o.Rand,
		log:       o.Log.With().Str("provider", openRouterName).Logger(),
		progress:  ui.NewProgress(o.Out),
	}
}

func newOpenRouterFromConfig(opts ai.Options) (ai.Client, error) {
	cfg := opts.Config
	bl, err := blacklist.Load(cfg.OpenRouter.BlacklistPath)
	if err != nil {
		return nil, errors.Wrap(err, "load blacklist")
	}
	return NewOpenRouter(OpenRouterOptions{
		BaseURL:   cfg.OpenRouter.BaseURL,
		APIKey:    cfg.OpenRouter.APIKey,
		Model:     cfg.OpenRouter.Model,
		TopN:      cfg.OpenRouter.TopN,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.RequestTimeout,
		Blacklist: bl,
		Log:       opts.Log,
		Out:       opts.Out,
	}), nil
}

func (c *OpenRouter) Name() string { return openRouterName }

// Query resolves the candidate models for the configured selection and runs
// them through QueryWithFallback.
func (c *OpenRouter) Query(ctx context.Context, prompt string) ai.QueryResult {
	if c.apiKey == "" {
		return ai.Failure(openRouterName, "", ai.StatusNotConfigured, nil, "OPENROUTER_API_KEY is not set")
	}

	candidates := []string{c.model}
	if strategy, ok := ParseStrategy(c.model); ok {
		ids, err := c.Select(ctx, strategy, c.topN)
		if err != nil {
			c.log.Error().Err(err).Msg("model catalog unavailable")
			return ai.Failure(openRouterName, "", statusOf(err), err, "could not fetch the model catalog: %v", err)
		}
		candidates = ids
	}
	return c.QueryWithFallback(ctx, candidates, prompt)
}

// ListModels returns every free, non-blacklisted model id.
func (c *OpenRouter) ListModels(ctx context.Context) ([]string, error) {
	return c.Select(ctx, StrategyAll, 0)
}

type orMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

type orChatRequest struct {
	Model     string      `json:"model"`
	Messages  []orMessage `json:"messages"`
	MaxTokens int         `json:"max_tokens,omitempty"`
	Stream    bool        `json:"stream"`
}

type orUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type orChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message orMessage `json:"message"`
	} `json:"choices"`
	Usage *orUsage `json:"usage"`
}

type orErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// QueryWithFallback tries each candidate once, in a random order, until one
// answers 200. Models answering 404 are appended to the blacklist. When
// every candidate fails the result has StatusExhausted and no model.
func (c *OpenRouter) QueryWithFallback(ctx context.Context, candidates []string, prompt string) ai.QueryResult {
	order := append([]string(nil), candidates...)
	c.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	attempted := make(map[string]bool, len(order))
	for _, model := range order {
		if model == "" || attempted[model] {
			continue
		}
		attempted[model] = true
		if ctx.Err() != nil {
			break
		}

		res, next := c.try(ctx, model, prompt)
		if !next {
			return res
		}
	}

	c.log.Warn().Int("candidates", len(attempted)).Msg("no valid model responded")
	return ai.QueryResult{
		Provider:   openRouterName,
		StatusCode: ai.StatusExhausted,
		Text:       noModelResponded,
	}
}

// try queries a single model. next reports whether the caller should move on
// to the following candidate.
func (c *OpenRouter) try(ctx context.Context, model, prompt string) (res ai.QueryResult, next bool) {
	start := time.Now()
	c.progress.Start(openRouterName, model)

	var body orChatResponse
	var apiErr orErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orChatRequest{
			Model:     model,
			Messages:  []orMessage{{Role: "user", Content: prompt}},
			MaxTokens: c.maxTokens,
		}).
		SetResult(&body).
		SetError(&apiErr).
		Post("/chat/completions")
	elapsed := time.Since(start)
	if err != nil {
		c.progress.Fail("Exception with model %s: %v", model, err)
		c.log.Warn().Err(err).Str("model", model).Msg("request failed")
		return ai.QueryResult{}, true
	}
	c.log.Debug().Str("model", model).Int("status", resp.StatusCode()).RawJSON("payload", rawJSON(resp.Body())).Msg("response")

	switch code := resp.StatusCode(); code {
	case 200:
		if len(body.Choices) == 0 {
			// resty only decodes JSON content types; retry on the raw body.
			_ = json.Unmarshal(resp.Body(), &body)
		}
		if len(body.Choices) == 0 {
			c.progress.Fail("Malformed response from model %s", model)
			return ai.QueryResult{}, true
		}
		c.progress.Done()
		res = ai.QueryResult{
			Provider:   openRouterName,
			StatusCode: ai.StatusOK,
			Model:      model,
			Elapsed:    elapsed,
		}
		msg := body.Choices[0].Message
		switch {
		case strings.TrimSpace(msg.Content) != "":
			res.Text = strings.TrimSpace(msg.Content)
		case strings.TrimSpace(msg.Reasoning) != "":
			res.Text = strings.TrimSpace(msg.Reasoning)
		default:
			res.Text = noValidResponse
			res.Placeholder = true
			c.log.Warn().Str("model", model).Msg("model returned an empty completion")
		}
		if body.Usage != nil {
			res.Usage = &ai.Usage{
				PromptTokens:     body.Usage.PromptTokens,
				CompletionTokens: body.Usage.CompletionTokens,
				TotalTokens:      body.Usage.TotalTokens,
			}
		}
		return res, false

	case 404:
		c.progress.Fail("Model not found (404): %s", model)
		if c.blacklist != nil {
			if err := c.blacklist.Add(model); err != nil {
				c.log.Error().Err(err).Str("model", model).Msg("could not update blacklist")
			}
		}
		return ai.QueryResult{}, true

	default:
		c.progress.Fail("Error %d with model %s", code, model)
		c.log.Warn().Int("status", code).Str("model", model).Str("error", apiErr.Error.Message).Msg("model failed")
		return ai.QueryResult{}, true
	}
}

// rawJSON keeps zerolog's RawJSON from emitting invalid JSON.
func rawJSON(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	q, _ := json.Marshal(string(b))
	return q
}
