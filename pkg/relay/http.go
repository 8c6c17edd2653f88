package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// NewHTTPClient builds the pooled HTTP client shared by an adapter.
// Per-request deadlines come from the channel timeout, not the client.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// SendOptions controls one upstream send.
type SendOptions struct {
	// Vendor is the display name used in error messages.
	Vendor string

	// Headers are set on every attempt.
	Headers map[string]string

	// Timeout bounds each attempt; zero means no per-attempt deadline.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	// Zero or negative disables retry.
	MaxRetries int

	// Streaming disables retry entirely: a stream cannot be replayed once
	// partially delivered.
	Streaming bool
}

// backoffBase and backoffCap bound the exponential retry delays
// (1s, 2s, 4s, then capped at 8s).
const (
	backoffBase = time.Second
	backoffCap  = 8 * time.Second
)

// Send POSTs body to url with retry for transient failures.
//
// The response is returned with its body open; a 2xx status is the only
// success. Non-2xx responses are drained and converted to *UpstreamError.
// Retry applies only to non-streaming sends and only for transport
// failures and 429/5xx statuses; the last error is returned when all
// attempts fail.
func Send(ctx context.Context, client *http.Client, url string, body []byte, opts SendOptions) (*http.Response, error) {
	attempts := 1
	if !opts.Streaming && opts.MaxRetries > 0 {
		attempts += opts.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			if backoff > backoffCap {
				backoff = backoffCap
			}
			slog.Debug("retrying upstream request",
				"vendor", opts.Vendor,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := send(ctx, client, url, body, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// send performs a single attempt with the per-attempt timeout applied.
func send(ctx context.Context, client *http.Client, url string, body []byte, opts SendOptions) (*http.Response, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &TimeoutError{Vendor: opts.Vendor, Timeout: opts.Timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Vendor: opts.Vendor, Message: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Tie the attempt's cancel to body close so the deadline keeps
		// covering streaming reads.
		if cancel != nil {
			resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
		}
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	resp.Body.Close()
	if cancel != nil {
		cancel()
	}

	return nil, &UpstreamError{
		Vendor:     opts.Vendor,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(errorBody)),
	}
}

// Retryable reports whether an upstream failure is worth retrying:
// transport-level failures (refused, reset, timeout) and HTTP 429/5xx.
func Retryable(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.StatusCode == 0 {
			return true // transport failure
		}
		return upstream.StatusCode == http.StatusTooManyRequests || upstream.StatusCode >= 500
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// cancelReadCloser releases the attempt's timeout context when the body
// is closed, ensuring no further reads happen on an aborted connection.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
