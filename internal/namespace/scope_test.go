package namespace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type counter struct {
	mu       sync.Mutex
	created  map[string]int
	disposed []string
}

func newCounter() *counter {
	return &counter{created: make(map[string]int)}
}

func (c *counter) provider(key string) Provider {
	return Provider{
		Key: key,
		Factory: func(ctx context.Context) (any, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.created[key]++
			return key + "-resource", nil
		},
		Dispose: func(ctx context.Context, resource any) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.disposed = append(c.disposed, key)
			return nil
		},
	}
}

func (c *counter) createdCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[key]
}

func (c *counter) disposedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.disposed...)
}

// ScopeTestSuite is the test suite for Registry and Scope
type ScopeTestSuite struct {
	suite.Suite
	registry *Registry
	counter  *counter
	ctx      context.Context
}

// SetupTest runs before each test
func (s *ScopeTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))
	s.registry = NewRegistry(logger)
	s.counter = newCounter()
	s.ctx = context.Background()

	for _, key := range []string{"alpha", "beta", "gamma"} {
		require.NoError(s.T(), s.registry.Register(s.counter.provider(key)))
	}
}

// TestRegister_Duplicate tests duplicate key rejection
func (s *ScopeTestSuite) TestRegister_Duplicate() {
	err := s.registry.Register(s.counter.provider("alpha"))
	var dup *DuplicateError
	require.ErrorAs(s.T(), err, &dup)
	require.Equal(s.T(), "alpha", dup.Key)
}

// TestRegister_Invalid tests empty key and nil factory rejection
func (s *ScopeTestSuite) TestRegister_Invalid() {
	require.Error(s.T(), s.registry.Register(Provider{Factory: func(context.Context) (any, error) { return nil, nil }}))
	require.Error(s.T(), s.registry.Register(Provider{Key: "nofactory"}))
}

// TestRegister_Sealed tests that a sealed registry refuses new providers
func (s *ScopeTestSuite) TestRegister_Sealed() {
	s.registry.Seal()
	err := s.registry.Register(s.counter.provider("delta"))
	require.ErrorIs(s.T(), err, ErrSealed)

	_, ok := s.registry.Resolve("alpha")
	require.True(s.T(), ok)
	require.Equal(s.T(), []string{"alpha", "beta", "gamma"}, s.registry.Keys())
}

// TestResolve_DoesNotInstantiate tests that lookup is side-effect free
func (s *ScopeTestSuite) TestResolve_DoesNotInstantiate() {
	_, ok := s.registry.Resolve("alpha")
	require.True(s.T(), ok)
	_, ok = s.registry.Resolve("missing")
	require.False(s.T(), ok)
	require.Equal(s.T(), 0, s.counter.createdCount("alpha"))
}

// TestUse_Memoized tests that repeated Use returns the same instance
func (s *ScopeTestSuite) TestUse_Memoized() {
	scope := s.registry.NewScope()
	defer scope.Close(s.ctx)

	first, err := scope.Use(s.ctx, "alpha")
	require.NoError(s.T(), err)
	second, err := scope.Use(s.ctx, "alpha")
	require.NoError(s.T(), err)

	require.Equal(s.T(), first, second)
	require.Equal(s.T(), 1, s.counter.createdCount("alpha"))
}

// TestUse_Lazy tests that untouched providers are never created
func (s *ScopeTestSuite) TestUse_Lazy() {
	scope := s.registry.NewScope()
	_, err := scope.Use(s.ctx, "beta")
	require.NoError(s.T(), err)
	scope.Close(s.ctx)

	require.Equal(s.T(), 0, s.counter.createdCount("alpha"))
	require.Equal(s.T(), 1, s.counter.createdCount("beta"))
	require.Equal(s.T(), []string{"beta"}, s.counter.disposedKeys())
}

// TestUse_UnknownKey tests the unknown namespace failure
func (s *ScopeTestSuite) TestUse_UnknownKey() {
	scope := s.registry.NewScope()
	defer scope.Close(s.ctx)

	_, err := scope.Use(s.ctx, "missing")
	var unknown *UnknownError
	require.ErrorAs(s.T(), err, &unknown)
	require.Equal(s.T(), `unknown namespace "missing"`, err.Error())
}

// TestScopes_Isolated tests that separate scopes never share instances
func (s *ScopeTestSuite) TestScopes_Isolated() {
	a := s.registry.NewScope()
	b := s.registry.NewScope()

	_, err := a.Use(s.ctx, "alpha")
	require.NoError(s.T(), err)
	_, err = b.Use(s.ctx, "alpha")
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, s.counter.createdCount("alpha"))

	a.Close(s.ctx)
	require.Equal(s.T(), []string{"alpha"}, s.counter.disposedKeys())
	b.Close(s.ctx)
	require.Equal(s.T(), []string{"alpha", "alpha"}, s.counter.disposedKeys())
}

// TestClose_ReverseOrder tests disposal order
func (s *ScopeTestSuite) TestClose_ReverseOrder() {
	scope := s.registry.NewScope()
	for _, key := range []string{"gamma", "alpha", "beta"} {
		_, err := scope.Use(s.ctx, key)
		require.NoError(s.T(), err)
	}
	require.Equal(s.T(), []string{"gamma", "alpha", "beta"}, scope.Instantiated())

	scope.Close(s.ctx)
	require.Equal(s.T(), []string{"beta", "alpha", "gamma"}, s.counter.disposedKeys())
}

// TestClose_Idempotent tests that a second Close disposes nothing
func (s *ScopeTestSuite) TestClose_Idempotent() {
	scope := s.registry.NewScope()
	_, err := scope.Use(s.ctx, "alpha")
	require.NoError(s.T(), err)

	scope.Close(s.ctx)
	scope.Close(s.ctx)
	require.Len(s.T(), s.counter.disposedKeys(), 1)

	_, err = scope.Use(s.ctx, "alpha")
	require.ErrorIs(s.T(), err, ErrScopeClosed)
}

// TestClose_DisposeFailureContinues tests that a failing disposer does not stop the rest
func (s *ScopeTestSuite) TestClose_DisposeFailureContinues() {
	require.NoError(s.T(), s.registry.Register(Provider{
		Key:     "broken",
		Factory: func(context.Context) (any, error) { return "x", nil },
		Dispose: func(context.Context, any) error { return errors.New("boom") },
	}))
	require.NoError(s.T(), s.registry.Register(Provider{
		Key:     "panicky",
		Factory: func(context.Context) (any, error) { return "y", nil },
		Dispose: func(context.Context, any) error { panic("dispose exploded") },
	}))

	scope := s.registry.NewScope()
	for _, key := range []string{"alpha", "broken", "panicky", "beta"} {
		_, err := scope.Use(s.ctx, key)
		require.NoError(s.T(), err)
	}

	require.NotPanics(s.T(), func() { scope.Close(s.ctx) })
	require.Equal(s.T(), []string{"beta", "alpha"}, s.counter.disposedKeys())
}

// TestUse_FactoryFailureNotMemoized tests retry after a failed factory
func (s *ScopeTestSuite) TestUse_FactoryFailureNotMemoized() {
	var calls atomic.Int32
	disposed := make(chan any, 1)
	require.NoError(s.T(), s.registry.Register(Provider{
		Key: "flaky",
		Factory: func(context.Context) (any, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("connection refused")
			}
			return "ok", nil
		},
		Dispose: func(_ context.Context, v any) error {
			disposed <- v
			return nil
		},
	}))

	scope := s.registry.NewScope()
	_, err := scope.Use(s.ctx, "flaky")
	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "connection refused")
	require.Empty(s.T(), scope.Instantiated())

	v, err := scope.Use(s.ctx, "flaky")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "ok", v)

	scope.Close(s.ctx)
	require.Equal(s.T(), "ok", <-disposed)
}

// TestUse_FactoryPanic tests that a panicking factory surfaces as an error
func (s *ScopeTestSuite) TestUse_FactoryPanic() {
	require.NoError(s.T(), s.registry.Register(Provider{
		Key:     "explode",
		Factory: func(context.Context) (any, error) { panic("kaboom") },
	}))

	scope := s.registry.NewScope()
	defer scope.Close(s.ctx)

	_, err := scope.Use(s.ctx, "explode")
	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "kaboom")
}

// TestUse_ConcurrentSingleFactoryCall tests that racing callers share one instance
func (s *ScopeTestSuite) TestUse_ConcurrentSingleFactoryCall() {
	var calls atomic.Int32
	release := make(chan struct{})
	require.NoError(s.T(), s.registry.Register(Provider{
		Key: "slow",
		Factory: func(context.Context) (any, error) {
			calls.Add(1)
			<-release
			return new(int), nil
		},
	}))

	scope := s.registry.NewScope()
	defer scope.Close(s.ctx)

	const workers = 16
	results := make([]any, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := scope.Use(s.ctx, "slow")
			require.NoError(s.T(), err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(s.T(), int32(1), calls.Load())
	for _, v := range results {
		require.Same(s.T(), results[0], v)
	}
}

// TestUse_FactoryOutlivesClose tests that a resource finished after Close is still disposed
func (s *ScopeTestSuite) TestUse_FactoryOutlivesClose() {
	started := make(chan struct{})
	release := make(chan struct{})
	disposed := make(chan any, 1)
	require.NoError(s.T(), s.registry.Register(Provider{
		Key: "late",
		Factory: func(context.Context) (any, error) {
			close(started)
			<-release
			return "late-resource", nil
		},
		Dispose: func(_ context.Context, v any) error {
			disposed <- v
			return nil
		},
	}))

	scope := s.registry.NewScope()
	errCh := make(chan error, 1)
	go func() {
		_, err := scope.Use(s.ctx, "late")
		errCh <- err
	}()

	<-started
	scope.Close(s.ctx)
	close(release)

	require.ErrorIs(s.T(), <-errCh, ErrScopeClosed)
	require.Equal(s.T(), "late-resource", <-disposed)
}

// TestUse_Typed tests the generic accessor
func (s *ScopeTestSuite) TestUse_Typed() {
	scope := s.registry.NewScope()
	defer scope.Close(s.ctx)

	v, err := Use[string](s.ctx, scope, "alpha")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "alpha-resource", v)

	_, err = Use[int](s.ctx, scope, "alpha")
	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "not int")
}

// TestScopeTestSuite runs the test suite
func TestScopeTestSuite(t *testing.T) {
	suite.Run(t, new(ScopeTestSuite))
}
