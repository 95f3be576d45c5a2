package models

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/gessage/gcm/internal/ai"
	"github.com/gessage/gcm/internal/config"
	"github.com/gessage/gcm/internal/ui"
)

const ollamaName = "Ollama"

func init() {
	ai.Register(ai.Provider{
		Name:        ollamaName,
		Constructor: newOllamaFromConfig,
		// OLLAMA_API_KEY opts the provider in; a local server accepts any value.
		Available: func(cfg *config.Config) bool { return cfg.Ollama.APIKey != "" },
	})
}

// OllamaOptions configures an Ollama client.
type OllamaOptions struct {
	Host      string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Rand      *rand.Rand
	Log       zerolog.Logger
	Out       io.Writer
}

type ollamaClient struct {
	api       *api.Client
	model     string
	maxTokens int
	rng       *rand.Rand
	log       zerolog.Logger
	progress  *ui.Progress
}

// NewOllama builds a client for an Ollama server's /api/generate endpoint.
func NewOllama(o OllamaOptions) (ai.Client, error) {
	host := strings.TrimSpace(o.Host)
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid Ollama host %q", o.Host)
	}
	if strings.TrimSpace(o.Model) == "" {
		return nil, errors.New("ollama model is required")
	}
	if o.Timeout <= 0 {
		o.Timeout = 300 * time.Second
	}
	httpClient := &http.Client{Timeout: o.Timeout}
	if o.APIKey != "" {
		httpClient.Transport = &bearerTransport{token: o.APIKey}
	}
	if o.Rand == nil {
		o.Rand = newRand()
	}
	return &ollamaClient{
		api:       api.NewClient(u, httpClient),
		model:     strings.TrimSpace(o.Model),
		maxTokens: o.MaxTokens,
		rng:       o.Rand,
		log:       o.Log.With().Str("provider", ollamaName).Logger(),
		progress:  ui.NewProgress(o.Out),
	}, nil
}

func newOllamaFromConfig(opts ai.Options) (ai.Client, error) {
	cfg := opts.Config
	return NewOllama(OllamaOptions{
		Host:      cfg.Ollama.Host,
		APIKey:    cfg.Ollama.APIKey,
		Model:     cfg.OllamaModel,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.RequestTimeout,
		Log:       opts.Log,
		Out:       opts.Out,
	})
}

func (c *ollamaClient) Name() string { return ollamaName }

// ListModels returns the names of the locally pulled models (/api/tags).
func (c *ollamaClient) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list ollama models")
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.Name)
	}
	return out, nil
}

func (c *ollamaClient) Query(ctx context.Context, prompt string) ai.QueryResult {
	model := c.model
	if model == randomSentinel {
		models, err := c.ListModels(ctx)
		if err != nil {
			return ai.Failure(ollamaName, "", ollamaStatus(err), err, "could not list models: %v", err)
		}
		var ok bool
		if model, ok = pick(c.rng, models); !ok {
			return ai.Failure(ollamaName, "", ai.StatusMalformed, nil, "no models pulled on the Ollama server")
		}
	}

	start := time.Now()
	c.progress.Start(ollamaName, model)

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}
	if c.maxTokens > 0 {
		req.Options = map[string]any{"num_predict": c.maxTokens}
	}

	var final api.GenerateResponse
	err := c.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		final = r
		return nil
	})
	elapsed := time.Since(start)
	if err != nil {
		status := ollamaStatus(err)
		c.progress.Fail("Error %d with model %s", status, model)
		c.log.Warn().Err(err).Str("model", model).Int("status", status).Msg("generate failed")
		res := ai.Failure(ollamaName, model, status, err, "%v", err)
		res.Elapsed = elapsed
		return res
	}
	c.progress.Done()
	c.log.Debug().Str("model", model).Int("prompt_eval", final.PromptEvalCount).Int("eval", final.EvalCount).Msg("generated")

	res := ai.QueryResult{
		Provider:   ollamaName,
		StatusCode: ai.StatusOK,
		Model:      model,
		Text:       strings.TrimSpace(final.Response),
		Elapsed:    elapsed,
	}
	if res.Text == "" {
		res.Text = noValidResponse
		res.Placeholder = true
		c.log.Warn().Str("model", model).Msg("model returned an empty completion")
	}
	if final.PromptEvalCount > 0 || final.EvalCount > 0 {
		res.Usage = &ai.Usage{
			PromptTokens:     final.PromptEvalCount,
			CompletionTokens: final.EvalCount,
			TotalTokens:      final.PromptEvalCount + final.EvalCount,
		}
	}
	return res
}

func ollamaStatus(err error) int {
	var se api.StatusError
	if errors.As(err, &se) && se.StatusCode != 0 {
		return se.StatusCode
	}
	return ai.StatusTransport
}
