package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRequestTimeout  = 2 * time.Minute
	defaultTransferTimeout = time.Hour
	initialRetryDelay      = time.Second
	maxRetryDelay          = 15 * time.Second
)

// Bridge performs uploads to pre-signed URLs. Media payloads are large, so
// the HTTP backend carries long timeouts: the response-header phase is capped
// separately from the whole transfer.
type Bridge struct {
	http       *http.Client
	logger     *slog.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	pending map[string]*operation
}

type operation struct {
	progress func(float64)
	result   chan error
}

// Option configures the bridge.
type Option func(*Bridge)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Bridge) {
		if client != nil {
			b.http = client
		}
	}
}

// WithLogger attaches a logger for transfer diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTimeouts overrides the request-phase and whole-transfer timeouts.
func WithTimeouts(request, transfer time.Duration) Option {
	return func(b *Bridge) {
		b.http = newTransferClient(request, transfer)
	}
}

// NewBridge constructs a bridge with media-sized timeouts.
func NewBridge(opts ...Option) *Bridge {
	bridge := &Bridge{
		http:       newTransferClient(defaultRequestTimeout, defaultTransferTimeout),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		retryDelay: initialRetryDelay,
		pending:    make(map[string]*operation),
	}
	for _, opt := range opts {
		opt(bridge)
	}
	return bridge
}

func newTransferClient(request, transfer time.Duration) *http.Client {
	return &http.Client{
		Timeout: transfer,
		Transport: &http.Transport{
			ResponseHeaderTimeout: request,
		},
	}
}

// Upload PUTs the file's bytes to destURL and blocks until the transfer
// resolves. progress receives fractions in [0,1] as bytes go out and a final
// 1.0 before a successful return; it may be nil.
func (b *Bridge) Upload(ctx context.Context, filePath, destURL string, progress func(float64)) error {
	id := uuid.NewString()
	op := &operation{progress: progress, result: make(chan error, 1)}

	b.mu.Lock()
	b.pending[id] = op
	b.mu.Unlock()

	go b.transfer(ctx, id, filePath, destURL)
	return <-op.result
}

func (b *Bridge) transfer(ctx context.Context, id, filePath, destURL string) {
	info, err := os.Stat(filePath)
	if err != nil {
		b.complete(id, fmt.Errorf("stat upload source: %w", err))
		return
	}
	size := info.Size()

	delay := b.retryDelay
	for {
		sent, err := b.attempt(ctx, id, filePath, destURL, size)
		if err == nil {
			b.report(id, 1.0)
			b.complete(id, nil)
			return
		}
		// Failures before the first byte look like a connectivity gap; wait
		// for the network instead of failing the transfer outright.
		if sent > 0 || ctx.Err() != nil || !isTransportError(err) {
			b.complete(id, err)
			return
		}

		b.logger.Debug("upload waiting for connectivity",
			slog.Duration("retry_in", delay),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			b.complete(id, ctx.Err())
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// attempt runs one PUT of the full file, returning how many bytes went out.
func (b *Bridge) attempt(ctx context.Context, id, filePath, destURL string, size int64) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("open upload source: %w", err)
	}
	defer file.Close()

	reader := &progressReader{source: file, total: size, bridge: b, id: id}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, destURL, reader)
	if err != nil {
		return 0, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size

	resp, err := b.http.Do(req)
	if err != nil {
		return reader.sent, &transportError{cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return reader.sent, fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return reader.sent, nil
}

// report routes a progress fraction to the pending operation, tolerating
// callbacks that race completion.
func (b *Bridge) report(id string, fraction float64) {
	b.mu.Lock()
	op, ok := b.pending[id]
	b.mu.Unlock()
	if !ok || op.progress == nil {
		return
	}
	op.progress(fraction)
}

// complete removes the slot and delivers the result. The removal is the
// single-resolution guard: a second call for the same id finds nothing.
func (b *Bridge) complete(id string, err error) bool {
	b.mu.Lock()
	op, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	op.result <- err
	return true
}

type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("upload transport failure: %v", e.cause)
}

func (e *transportError) Unwrap() error {
	return e.cause
}

func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// progressReader counts outbound bytes and reports fractions through the
// bridge registry so callbacks reach the right pending operation.
type progressReader struct {
	source io.Reader
	total  int64
	sent   int64
	bridge *Bridge
	id     string
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.source.Read(p)
	if n > 0 {
		r.sent += int64(n)
		if r.total > 0 {
			r.bridge.report(r.id, float64(r.sent)/float64(r.total))
		}
	}
	return n, err
}
