package ai

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// MaxAttemptsPerSuggestion bounds how often one suggestion slot is retried.
const MaxAttemptsPerSuggestion = 5

// Rotate collects up to n successful results by rotating over clients in
// priority order. Once every client has had a turn, further slots go to
// OpenRouter when it is among the clients. A provider/model pair is used at
// most once; placeholder answers are not accepted.
func Rotate(ctx context.Context, clients []Client, prompt string, n int, log zerolog.Logger) []QueryResult {
	if len(clients) == 0 || n < 1 {
		return nil
	}

	var fallback Client
	for _, c := range clients {
		if strings.EqualFold(c.Name(), "OpenRouter") {
			fallback = c
			break
		}
	}

	used := map[string]bool{}
	var results []QueryResult
	for i := 0; i < n; i++ {
		client := clients[i%len(clients)]
		if i >= len(clients) && fallback != nil {
			client = fallback
		}

		for attempt := 0; attempt < MaxAttemptsPerSuggestion; attempt++ {
			if ctx.Err() != nil {
				return results
			}
			res := client.Query(ctx, prompt)
			if used[res.Key()] {
				log.Debug().Str("key", res.Key()).Msg("provider/model already used")
				continue
			}
			used[res.Key()] = true

			if res.OK() {
				results = append(results, res)
				break
			}
			log.Warn().
				Str("provider", res.Provider).
				Str("model", res.Model).
				Int("status", res.StatusCode).
				Bool("placeholder", res.Placeholder).
				AnErr("cause", res.Err).
				Msg(firstLine(res.Text))
		}
	}
	return results
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
