package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// Registry maintains a mapping of transporter schemes to broker builders.
// Backend packages register themselves in init, so a blank import is enough
// to make a backend available.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// DefaultRegistry is the global broker registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty broker registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// SchemeOf normalizes a transporter descriptor into a registry key: the URL
// scheme when one is present ("nats://host" -> "nats"), otherwise the whole
// descriptor folded to lower case ("TCP" -> "tcp").
func SchemeOf(transporter string) string {
	descriptor := strings.ToLower(strings.TrimSpace(transporter))
	if scheme, _, found := strings.Cut(descriptor, "://"); found {
		return scheme
	}
	return descriptor
}

// Register adds a builder for the given transporter scheme.
func (r *Registry) Register(scheme string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[strings.ToLower(scheme)] = builder
}

// Build creates a broker using the builder registered for the configured
// transporter's scheme.
func (r *Registry) Build(ctx context.Context, cfg Config, log logging.ServiceLogger) (Broker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	scheme := SchemeOf(cfg.GetTransporter())

	r.mu.RLock()
	builder, ok := r.builders[scheme]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transporter: %q (registered: %v)", scheme, r.Names())
	}

	return builder(ctx, cfg, log)
}

// Names returns the sorted list of registered transporter schemes.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a builder is registered for the scheme.
func (r *Registry) Has(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[strings.ToLower(scheme)]
	return ok
}

// Register adds a builder to the default registry.
func Register(scheme string, builder Builder) {
	DefaultRegistry.Register(scheme, builder)
}

// Build creates a broker using the default registry.
func Build(ctx context.Context, cfg Config, log logging.ServiceLogger) (Broker, error) {
	return DefaultRegistry.Build(ctx, cfg, log)
}
