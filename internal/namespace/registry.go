// Package namespace manages resource providers and the per-invocation scopes
// through which tool handlers obtain them.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Factory creates the resource a provider hands out. It may block on I/O.
type Factory func(ctx context.Context) (any, error)

// Disposer releases a resource produced by the matching Factory.
type Disposer func(ctx context.Context, resource any) error

// Provider is a named source of request-scoped resources.
type Provider struct {
	Key     string   // Unique identity used by Scope.Use
	Factory Factory  // Creates a resource on first use within a scope
	Dispose Disposer // Optional; called once per created resource when the scope closes
}

// DuplicateError is returned when a provider key is registered twice.
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("namespace %s already registered", e.Key)
}

// UnknownError is returned by Scope.Use for a key no provider was registered under.
type UnknownError struct {
	Key string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown namespace %q", e.Key)
}

// ErrSealed is returned by Register after Seal.
var ErrSealed = errors.New("namespace registry is sealed")

// Registry is the catalogue of providers. Providers are registered during startup;
// after Seal the registry is read-only and Resolve takes no lock.
type Registry struct {
	mu        sync.RWMutex
	sealed    atomic.Bool
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) error {
	if p.Key == "" {
		return fmt.Errorf("namespace key cannot be empty")
	}
	if p.Factory == nil {
		return fmt.Errorf("namespace %s: factory cannot be nil", p.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return ErrSealed
	}
	if _, exists := r.providers[p.Key]; exists {
		return &DuplicateError{Key: p.Key}
	}

	r.providers[p.Key] = p
	r.logger.Info("Registered namespace", "key", p.Key)
	return nil
}

// Resolve looks up a provider. It never creates resources.
func (r *Registry) Resolve(key string) (Provider, bool) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	p, ok := r.providers[key]
	return p, ok
}

// Keys returns the registered provider keys in sorted order.
func (r *Registry) Keys() []string {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	keys := make([]string, 0, len(r.providers))
	for key := range r.providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Seal ends the registration phase. It is safe to call more than once.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// NewScope creates an empty scope bound to this registry.
func (r *Registry) NewScope() *Scope {
	return &Scope{
		registry: r,
		slots:    make(map[string]*slot),
		logger:   r.logger,
	}
}
