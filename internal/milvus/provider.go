package milvus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/radutopala/milvus-mcp/internal/namespace"
)

// NamespaceKey is the key tool handlers pass to Scope.Use.
const NamespaceKey = "milvus"

// Dialer opens a new Client.
type Dialer func(ctx context.Context, cfg Config) (Client, error)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithDialer replaces Dial, e.g. with a fake in tests.
func WithDialer(d Dialer) ProviderOption {
	return func(p *Provider) {
		p.dial = d
	}
}

// Provider hands out Milvus clients to request scopes. When pooled, every scope
// shares one lazily dialed connection; otherwise each scope dials its own.
type Provider struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	mu     sync.Mutex
	shared Client
}

// NewProvider creates a provider. No connection is made until first use.
func NewProvider(cfg Config, logger *slog.Logger, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfg:    cfg,
		dial:   Dial,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Namespace returns the registration for the namespace registry.
func (p *Provider) Namespace() namespace.Provider {
	return namespace.Provider{
		Key:     NamespaceKey,
		Factory: p.acquire,
		Dispose: p.release,
	}
}

// Handle is the request-scoped view of a client. Closing it is a no-op: the
// scope releases it, and only connections dialed for the request are closed.
type Handle struct {
	Client
	owned bool
}

// Close does nothing; the owning scope disposes the handle.
func (h *Handle) Close() error {
	return nil
}

func (p *Provider) acquire(ctx context.Context) (any, error) {
	if !p.cfg.Pooled {
		c, err := p.dial(ctx, p.cfg)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("Dialed milvus for request", "address", p.cfg.Address)
		return &Handle{Client: c, owned: true}, nil
	}

	c, err := p.sharedClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Handle{Client: c}, nil
}

func (p *Provider) release(_ context.Context, resource any) error {
	h, ok := resource.(*Handle)
	if !ok {
		return fmt.Errorf("unexpected milvus resource %T", resource)
	}
	if !h.owned {
		return nil
	}
	return h.Client.Close()
}

// sharedClient dials on first call. A failed dial is retried by the next caller.
func (p *Provider) sharedClient(ctx context.Context) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shared != nil {
		return p.shared, nil
	}
	c, err := p.dial(ctx, p.cfg)
	if err != nil {
		p.logger.Warn("Failed to connect to milvus", "address", p.cfg.Address, "error", err)
		return nil, err
	}
	p.logger.Info("Connected to milvus", "address", p.cfg.Address, "db", p.cfg.DBName)
	p.shared = c
	return c, nil
}

// Close closes the shared connection, if one was dialed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shared == nil {
		return nil
	}
	err := p.shared.Close()
	p.shared = nil
	return err
}
