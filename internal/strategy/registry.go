package strategy

import (
	"sort"
	"sync"

	"github.com/evilc0des/prop-bots/pkg/errors"
)

// Factory builds a fresh strategy instance.
type Factory func() Strategy

// Registry manages the available strategies by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a strategy factory under the given name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %q already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// Create builds a new instance of the named strategy.
func (r *Registry) Create(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "strategy %q not found", name)
	}

	return factory(), nil
}

// List returns the registered strategy names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in strategies.
var DefaultRegistry = NewRegistry()

func init() {
	mustRegister(DefaultRegistry, "ma_crossover", func() Strategy {
		return NewMACrossover(DefaultMACrossoverConfig())
	})
	mustRegister(DefaultRegistry, "donchian_breakout", func() Strategy {
		return NewDonchianBreakout(DefaultDonchianBreakoutConfig())
	})
}

// mustRegister panics on registration failure. Built-ins are wired at
// init time, where a name collision is a programming error.
func mustRegister(r *Registry, name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}
