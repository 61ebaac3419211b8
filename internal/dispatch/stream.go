package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const maxLineSize = 64 * 1024 * 1024 // vectors make for long lines

type line struct {
	data []byte
	err  error
}

// StreamTransport speaks newline-delimited JSON: one Request per input line and
// one Response per output line. Requests without an id are assigned a UUID.
type StreamTransport struct {
	r      io.Reader
	logger *slog.Logger

	startOnce sync.Once
	lines     chan line
	done      chan struct{}
	closeOnce sync.Once

	mu sync.Mutex
	w  io.Writer
}

// NewStreamTransport creates a JSON-lines transport over r and w.
func NewStreamTransport(r io.Reader, w io.Writer, logger *slog.Logger) *StreamTransport {
	return &StreamTransport{
		r:      r,
		w:      w,
		logger: logger,
		lines:  make(chan line),
		done:   make(chan struct{}),
	}
}

func (t *StreamTransport) readLoop() {
	scanner := bufio.NewScanner(t.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		select {
		case t.lines <- line{data: bytes.Clone(data)}:
		case <-t.done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case t.lines <- line{err: err}:
	case <-t.done:
	}
}

// Receive returns the next well-formed request. Malformed lines are logged and skipped.
func (t *StreamTransport) Receive(ctx context.Context) (Request, error) {
	t.startOnce.Do(func() { go t.readLoop() })

	for {
		var l line
		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		case <-t.done:
			return Request{}, io.EOF
		case l = <-t.lines:
		}
		if l.err != nil {
			// The reader is gone; later calls see io.EOF.
			t.Close()
			return Request{}, l.err
		}

		var req Request
		if err := json.Unmarshal(l.data, &req); err != nil {
			t.logger.Warn("Skipping malformed request line", "error", err, "bytes", len(l.data))
			continue
		}
		if req.ID == nil {
			req.ID = uuid.NewString()
		}
		return req, nil
	}
}

// Send writes resp as a single line. A result that cannot be encoded is replaced
// by a HandlerError so the caller still gets an answer for its ID.
func (t *StreamTransport) Send(_ context.Context, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, err = json.Marshal(failure(resp.ID, &Error{
			Kind:    KindHandlerError,
			Message: fmt.Sprintf("result is not serializable: %v", err),
		}))
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Close stops the reader goroutine. Pending and later Receive calls return io.EOF.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}
