package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/config"
	"github.com/radutopala/milvus-mcp/internal/dispatch"
	"github.com/radutopala/milvus-mcp/internal/mcp"
	"github.com/radutopala/milvus-mcp/internal/milvus"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over stdio MCP, Streamable HTTP or JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, v, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().String("transport", config.TransportStdio, "Transport: stdio|http|jsonl.")
	cmd.Flags().String("addr", ":8080", "Listen address for the http transport.")
	cmd.Flags().Bool("strict-params", true, "Reject arguments the tool does not declare.")
	cmd.Flags().Duration("call-timeout", 0, "Per-call timeout (0 disables).")
	cmd.Flags().Int("max-concurrency", 0, "Max in-flight jsonl requests (0 is unlimited).")
	bindFlags(v, cmd, map[string]string{
		"transport":       "server.transport",
		"addr":            "server.addr",
		"strict-params":   "server.strict_params",
		"call-timeout":    "server.call_timeout",
		"max-concurrency": "server.max_concurrency",
	}, false)

	return cmd
}

// runServe builds the app, serves until ctx is done and reports any error from
// closing the Milvus client or the log file along with the serve error.
func runServe(ctx context.Context, v *viper.Viper, in io.Reader, out, errOut io.Writer, opts ...milvus.ProviderOption) (err error) {
	a, err := newApp(ctx, v, errOut, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", closeErr))
		}
	}()

	return a.serve(ctx, in, out)
}

func (a *app) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := a.cfg.Server
	a.logger.Info("Starting server",
		"name", srv.Name,
		"version", srv.Version,
		"transport", srv.Transport,
		"tools", len(a.dispatcher.Tools().Names()),
	)

	var err error
	switch srv.Transport {
	case config.TransportStdio:
		err = mcp.NewServer(srv.Name, srv.Version, a.dispatcher, a.logger).Run(ctx, &mcpsdk.StdioTransport{})
	case config.TransportHTTP:
		err = mcp.NewServer(srv.Name, srv.Version, a.dispatcher, a.logger).ListenAndServe(ctx, srv.Addr)
	case config.TransportJSONL:
		transport := dispatch.NewStreamTransport(in, out, a.logger)
		defer transport.Close()
		err = a.dispatcher.Serve(ctx, transport)
	default:
		return fmt.Errorf("unsupported transport %q", srv.Transport)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Server failed", "error", err)
		return err
	}
	a.logger.Info("Server finished")
	return nil
}
