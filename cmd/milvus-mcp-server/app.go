package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/config"
	"github.com/radutopala/milvus-mcp/internal/dispatch"
	"github.com/radutopala/milvus-mcp/internal/embedder"
	"github.com/radutopala/milvus-mcp/internal/extract"
	"github.com/radutopala/milvus-mcp/internal/logging"
	"github.com/radutopala/milvus-mcp/internal/milvus"
	"github.com/radutopala/milvus-mcp/internal/milvustools"
	"github.com/radutopala/milvus-mcp/internal/namespace"
	"github.com/radutopala/milvus-mcp/internal/tools"
)

// app is the wired server: configuration, logger, registries and dispatcher.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
	provider   *milvus.Provider
	dispatcher *dispatch.Dispatcher
}

func newApp(ctx context.Context, v *viper.Viper, stderr io.Writer, opts ...milvus.ProviderOption) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return nil, err
	}

	embed, meta, err := embedder.New(ctx, cfg.Milvus.Embedding, cfg.Milvus.DefaultDimension)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	files, err := extract.New(cfg.Files)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	logger.Debug("Embedder ready", "provider", meta.Provider, "model", meta.Model, "dimension", meta.Dim)

	toolRegistry := tools.NewRegistry(logger)
	if err := milvustools.Register(toolRegistry, milvustools.Options{
		DefaultDimension: meta.Dim,
		Embedder:         embed,
		Extractor:        files,
	}); err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("register milvus tools: %w", err)
	}

	provider := milvus.NewProvider(cfg.Milvus, logger, opts...)
	namespaces := namespace.NewRegistry(logger)
	if err := namespaces.Register(provider.Namespace()); err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("register milvus namespace: %w", err)
	}

	dispatcher := dispatch.New(toolRegistry, namespaces, logger,
		dispatch.WithStrictParams(cfg.Server.StrictParams),
		dispatch.WithTimeout(cfg.Server.CallTimeout),
		dispatch.WithMaxConcurrency(cfg.Server.MaxConcurrency),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		logCloser:  logCloser,
		provider:   provider,
		dispatcher: dispatcher,
	}, nil
}

// Close releases the shared Milvus client and the log file.
func (a *app) Close() error {
	return errors.Join(a.provider.Close(), a.logCloser.Close())
}
