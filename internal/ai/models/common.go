package models

import (
	"math/rand/v2"
	"net/http"
	"strings"
)

// randomSentinel asks a provider to pick any of its available models.
const randomSentinel = "RANDOM"

// newRand returns a generator seeded fresh for this process.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func pick(rng *rand.Rand, items []string) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	return items[rng.IntN(len(items))], true
}

// bearerTransport adds an Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
