package ai

import (
	"context"
	"fmt"
	"time"
)

// Status codes that are not plain HTTP statuses returned by a provider.
const (
	StatusNotConfigured = 0
	StatusOK            = 200
	StatusMalformed     = 502
	StatusTransport     = 599
	StatusExhausted     = 666
)

// Client is the Strategy interface for any LLM backend. Query never fails
// past its boundary: transport and API errors come back as a QueryResult
// with a non-200 status and a diagnostic Text.
type Client interface {
	Name() string
	Query(ctx context.Context, prompt string) QueryResult
}

// ModelLister is implemented by clients that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Usage holds the token counters reported by a provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// QueryResult is the outcome of one provider call.
type QueryResult struct {
	Provider   string
	StatusCode int
	// Model is empty when no model answered.
	Model string
	Text  string
	// Usage is nil when the provider reported none.
	Usage   *Usage
	Elapsed time.Duration
	// Placeholder is set when the provider answered 200 with an empty
	// completion and Text was filled with a stand-in.
	Placeholder bool
	// Err is the underlying cause of a failure, for logging.
	Err error
}

// OK reports whether the result carries a usable completion.
func (r QueryResult) OK() bool {
	return r.StatusCode == StatusOK && !r.Placeholder
}

// Key identifies the provider/model pair that produced the result.
func (r QueryResult) Key() string {
	return r.Provider + ":" + r.Model
}

// Failure builds a failed result with a formatted diagnostic.
func Failure(provider, model string, status int, err error, format string, args ...any) QueryResult {
	return QueryResult{
		Provider:   provider,
		StatusCode: status,
		Model:      model,
		Text:       fmt.Sprintf(format, args...),
		Err:        err,
	}
}
