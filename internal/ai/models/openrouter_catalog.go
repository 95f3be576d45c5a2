package models

import (
	"context"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/gessage/gcm/internal/ai"
)

// Strategy chooses how free models are ranked.
type Strategy int

const (
	StrategyAll Strategy = iota
	StrategyTopBySize
	StrategyTopByContext
	StrategyWeightedBlend
	StrategySingleRandom
)

var strategyNames = map[Strategy]string{
	StrategyAll:           "FreeAll",
	StrategyTopBySize:     "FreeTop",
	StrategyTopByContext:  "FreeCtxMax",
	StrategyWeightedBlend: "FreeSmart",
	StrategySingleRandom:  "FreeRandom",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// ParseStrategy maps a selection keyword (FreeAll, FreeTop, FreeCtxMax,
// FreeSmart, FreeRandom) to its Strategy. Anything else is a model id.
func ParseStrategy(s string) (Strategy, bool) {
	for st, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return st, true
		}
	}
	return 0, false
}

// ModelDescriptor is a free catalog entry with its derived size.
type ModelDescriptor struct {
	ID            string
	ContextLength int
	// SizeMillions is the parameter count guessed from the id.
	SizeMillions int
	Description  string
}

var sizeHint = regexp.MustCompile(`(\d+)([bm])`)

// ExtractModelSize guesses the parameter count, in millions, from the first
// "<n>b" or "<n>m" in the lowercased id. Ids without a hint yield 0.
func ExtractModelSize(id string) int {
	m := sizeHint.FindStringSubmatch(strings.ToLower(id))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	if m[2] == "b" {
		return n * 1000
	}
	return n
}

type orCatalogEntry struct {
	ID            string `json:"id"`
	ContextLength int    `json:"context_length"`
	Description   string `json:"description"`
	Pricing       struct {
		Prompt     decimal.NullDecimal `json:"prompt"`
		Completion decimal.NullDecimal `json:"completion"`
	} `json:"pricing"`
}

func (e orCatalogEntry) free() bool {
	p, c := e.Pricing.Prompt, e.Pricing.Completion
	return p.Valid && c.Valid && p.Decimal.IsZero() && c.Decimal.IsZero()
}

type orCatalog struct {
	Data []orCatalogEntry `json:"data"`
}

// statusError carries the HTTP status of a failed catalog request.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return "openrouter catalog: status " + strconv.Itoa(e.code) + ": " + truncate(e.body, 200)
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return ai.StatusTransport
}

// Catalog fetches the model catalog and returns the free models that are
// not blacklisted, in catalog order. It is not cached.
func (c *OpenRouter) Catalog(ctx context.Context) ([]ModelDescriptor, error) {
	var catalog orCatalog
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&catalog).
		Get("/models")
	if err != nil {
		return nil, errors.Wrap(err, "fetch openrouter catalog")
	}
	if resp.IsError() {
		return nil, &statusError{code: resp.StatusCode(), body: resp.String()}
	}

	if c.blacklist != nil {
		if err := c.blacklist.Reload(); err != nil {
			return nil, errors.Wrap(err, "reload blacklist")
		}
	}

	var out []ModelDescriptor
	free := 0
	for _, m := range catalog.Data {
		if !m.free() {
			continue
		}
		free++
		if c.blacklist != nil && c.blacklist.Contains(m.ID) {
			continue
		}
		d := ModelDescriptor{
			ID:            m.ID,
			ContextLength: max(m.ContextLength, 0),
			SizeMillions:  ExtractModelSize(m.ID),
			Description:   m.Description,
		}
		out = append(out, d)
		c.log.Debug().Str("model", d.ID).Int("params_m", d.SizeMillions).Int("ctx", d.ContextLength).Msg("free model")
	}
	c.log.Debug().Int("free", free).Int("usable", len(out)).Msg("catalog filtered")
	return out, nil
}

// Select fetches the catalog and ranks the surviving models.
func (c *OpenRouter) Select(ctx context.Context, strategy Strategy, topN int) ([]string, error) {
	models, err := c.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(models, strategy, topN, c.rng), nil
}

// Rank orders models by strategy. topN (5 when < 1) limits the ranked
// strategies; StrategyAll keeps every model in input order and
// StrategySingleRandom returns one id. Empty input yields an empty slice.
func Rank(models []ModelDescriptor, strategy Strategy, topN int, rng *rand.Rand) []string {
	if len(models) == 0 {
		return []string{}
	}
	if topN < 1 {
		topN = defaultOpenRouterTopN
	}

	ranked := append([]ModelDescriptor(nil), models...)
	switch strategy {
	case StrategyAll:
		return ids(ranked)
	case StrategySingleRandom:
		if rng == nil {
			rng = newRand()
		}
		return []string{ranked[rng.IntN(len(ranked))].ID}
	case StrategyTopBySize:
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].SizeMillions > ranked[j].SizeMillions })
	case StrategyTopByContext:
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ContextLength > ranked[j].ContextLength })
	case StrategyWeightedBlend:
		sort.SliceStable(ranked, func(i, j int) bool { return blend(ranked[i]) > blend(ranked[j]) })
	default:
		return ids(ranked)
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ids(ranked)
}

func blend(m ModelDescriptor) float64 {
	return float64(m.SizeMillions)*0.7 + float64(m.ContextLength)/1000*0.3
}

func ids(models []ModelDescriptor) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.ID
	}
	return out
}
