package ai

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/gessage/gcm/internal/config"
)

var (
	mu       sync.RWMutex
	registry = map[string]Provider{}
)

// Options carries what a provider constructor needs.
type Options struct {
	Config *config.Config
	Log    zerolog.Logger
	// Out receives the one-line progress indicator; nil discards it.
	Out io.Writer
}

// Provider describes a provider plugin.
type Provider struct {
	// Name is the display name, e.g. "OpenRouter".
	Name string
	// Constructor builds a client from the run configuration.
	Constructor func(opts Options) (Client, error)
	// Available reports whether the configuration enables this provider.
	Available func(cfg *config.Config) bool
}

// Register adds a provider under its name. Lookups are case-insensitive.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(p.Name)] = p
}

// ProviderFor returns the registered provider by name.
func ProviderFor(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[strings.ToLower(name)]
	return p, ok
}

// Known returns the registered provider names, sorted.
func Known() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Create builds a client by provider name.
func Create(name string, opts Options) (Client, error) {
	p, ok := ProviderFor(name)
	if !ok {
		return nil, errors.Newf("unknown provider %q; known: %v", name, Known())
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return p.Constructor(opts)
}

// Available builds clients for every provider named in priority order that
// the configuration enables. Unknown names are an error.
func Available(priority []string, opts Options) ([]Client, error) {
	var clients []Client
	for _, name := range priority {
		p, ok := ProviderFor(name)
		if !ok {
			return nil, errors.Newf("unknown provider %q; known: %v", name, Known())
		}
		if p.Available != nil && !p.Available(opts.Config) {
			opts.Log.Debug().Str("provider", p.Name).Msg("provider not configured, skipping")
			continue
		}
		c, err := Create(name, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s", p.Name)
		}
		clients = append(clients, c)
	}
	return clients, nil
}
