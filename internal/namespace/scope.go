package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrScopeClosed is returned by Use once the scope has been closed.
var ErrScopeClosed = errors.New("namespace scope is closed")

// slot holds the outcome of one factory call. done is closed once value/err are set.
type slot struct {
	done  chan struct{}
	value any
	err   error
}

type acquired struct {
	provider Provider
	value    any
}

// Scope is the per-invocation view of the registry. Each provider is instantiated
// at most once per scope, on first Use, and disposed when the scope closes.
// A Scope is safe for concurrent use.
type Scope struct {
	registry *Registry
	logger   *slog.Logger

	mu       sync.Mutex
	closed   bool
	slots    map[string]*slot
	acquired []acquired
}

// Use returns the resource registered under key, creating it on first access.
// Concurrent callers for the same key share a single factory call. A failed
// factory call is not remembered, so a later Use retries.
func (s *Scope) Use(ctx context.Context, key string) (any, error) {
	provider, ok := s.registry.Resolve(key)
	if !ok {
		return nil, &UnknownError{Key: key}
	}

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrScopeClosed
		}
		sl, exists := s.slots[key]
		if !exists {
			sl = &slot{done: make(chan struct{})}
			s.slots[key] = sl
			s.mu.Unlock()
			return s.create(ctx, provider, sl)
		}
		s.mu.Unlock()

		select {
		case <-sl.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if sl.err == nil {
			return sl.value, nil
		}
		// The winner failed and cleared the slot; try again ourselves.
	}
}

func (s *Scope) create(ctx context.Context, provider Provider, sl *slot) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("namespace %s: factory panicked: %v", provider.Key, r)
		}
		s.finish(ctx, provider, sl, value, err)
	}()

	s.logger.Debug("Instantiating namespace", "key", provider.Key)
	value, err = provider.Factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", provider.Key, err)
	}
	return value, nil
}

func (s *Scope) finish(ctx context.Context, provider Provider, sl *slot, value any, err error) {
	s.mu.Lock()
	switch {
	case err != nil:
		delete(s.slots, provider.Key)
	case s.closed:
		// Close ran while the factory was in flight; nobody else will release this.
		err = ErrScopeClosed
		s.mu.Unlock()
		sl.err = err
		close(sl.done)
		s.dispose(context.WithoutCancel(ctx), acquired{provider: provider, value: value})
		return
	default:
		s.acquired = append(s.acquired, acquired{provider: provider, value: value})
	}
	s.mu.Unlock()

	sl.value, sl.err = value, err
	close(sl.done)
}

// Close disposes every resource created through this scope in reverse order of
// creation. Dispose failures are logged and never returned. Close is idempotent.
func (s *Scope) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	acq := s.acquired
	s.acquired = nil
	s.mu.Unlock()

	for i := len(acq) - 1; i >= 0; i-- {
		s.dispose(ctx, acq[i])
	}
}

// Instantiated reports the keys created so far, in creation order.
func (s *Scope) Instantiated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.acquired))
	for i, a := range s.acquired {
		keys[i] = a.provider.Key
	}
	return keys
}

func (s *Scope) dispose(ctx context.Context, a acquired) {
	if a.provider.Dispose == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Namespace dispose panicked", "key", a.provider.Key, "panic", r)
		}
	}()
	if err := a.provider.Dispose(ctx, a.value); err != nil {
		s.logger.Warn("Failed to dispose namespace", "key", a.provider.Key, "error", err)
		return
	}
	s.logger.Debug("Disposed namespace", "key", a.provider.Key)
}

// Use is the typed form of Scope.Use.
func Use[T any](ctx context.Context, s *Scope, key string) (T, error) {
	var zero T
	v, err := s.Use(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("namespace %s: resource is %T, not %T", key, v, zero)
	}
	return typed, nil
}
