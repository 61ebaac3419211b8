package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// Transport carries requests in and responses out. Receive returns io.EOF when the
// caller has no more requests. Send must be safe for concurrent use.
type Transport interface {
	Receive(ctx context.Context) (Request, error)
	Send(ctx context.Context, resp Response) error
}

// Serve reads requests from t and answers each on its own goroutine, in completion
// order. It returns nil once t reports io.EOF and all in-flight requests have been
// answered, or the first receive/send error otherwise.
func (d *Dispatcher) Serve(ctx context.Context, t Transport) error {
	g, gctx := errgroup.WithContext(ctx)
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	d.logger.Info("Dispatcher serving", "max_concurrency", d.maxConcurrency, "timeout", d.timeout, "strict_params", d.strict)

	for {
		req, err := t.Receive(gctx)
		if err != nil {
			waitErr := g.Wait()
			if errors.Is(err, io.EOF) {
				d.logger.Info("Transport closed, dispatcher stopped")
				return waitErr
			}
			if waitErr != nil {
				return waitErr
			}
			return err
		}

		g.Go(func() error {
			resp := d.Dispatch(gctx, req)
			if err := t.Send(gctx, resp); err != nil {
				return fmt.Errorf("send response %v: %w", req.ID, err)
			}
			return nil
		})
	}
}
