// Package transport provides the HTTP plumbing shared by provider clients:
// a retrying RoundTripper and a small JSON client with typed errors.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultMaxRetries is the retry budget after the first attempt.
	DefaultMaxRetries = 3
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 60 * time.Second
	// maxRetryAfter caps server-requested waits.
	maxRetryAfter = 30 * time.Second
)

// DefaultRetryStatuses are the transient HTTP statuses worth another attempt.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Observer receives per-attempt telemetry.
type Observer interface {
	ObserveAttempt(provider string, status int, err error, elapsed time.Duration)
	ObserveRetry(provider, reason string)
}

// RetryTransport retries network errors and transient statuses with
// exponential backoff: BaseDelay, 2*BaseDelay, 4*BaseDelay...
// Only idempotent requests are retried: GET, HEAD and OPTIONS, plus any
// request whose context carries MarkIdempotent. Everything else, and any
// request whose body cannot be replayed, is attempted once.
type RetryTransport struct {
	Base       http.RoundTripper
	Provider   string
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
	Observer   Observer

	statuses map[int]bool
	sleep    func(context.Context, time.Duration) error
}

// RetryOption configures a RetryTransport.
type RetryOption func(*RetryTransport)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) RetryOption {
	return func(t *RetryTransport) { t.MaxRetries = n }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) RetryOption {
	return func(t *RetryTransport) { t.Timeout = d }
}

// WithObserver attaches telemetry.
func WithObserver(o Observer) RetryOption {
	return func(t *RetryTransport) { t.Observer = o }
}

// WithRetryStatuses replaces DefaultRetryStatuses.
func WithRetryStatuses(codes ...int) RetryOption {
	return func(t *RetryTransport) {
		t.statuses = make(map[int]bool, len(codes))
		for _, c := range codes {
			t.statuses[c] = true
		}
	}
}

// WithBase sets the wrapped RoundTripper.
func WithBase(rt http.RoundTripper) RetryOption {
	return func(t *RetryTransport) { t.Base = rt }
}

type idempotentKey struct{}

// MarkIdempotent flags requests built with ctx as safe to resend, such as a
// quote POST that creates nothing upstream.
func MarkIdempotent(ctx context.Context) context.Context {
	return context.WithValue(ctx, idempotentKey{}, true)
}

// idempotent reports whether req may be sent more than once.
func idempotent(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	marked, _ := req.Context().Value(idempotentKey{}).(bool)
	return marked
}

// withSleep replaces the backoff wait, for tests.
func withSleep(fn func(context.Context, time.Duration) error) RetryOption {
	return func(t *RetryTransport) { t.sleep = fn }
}

// NewRetryTransport builds a transport for one provider.
func NewRetryTransport(provider string, baseDelay time.Duration, opts ...RetryOption) *RetryTransport {
	t := &RetryTransport{
		Base:       http.DefaultTransport,
		Provider:   provider,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  baseDelay,
		Timeout:    DefaultTimeout,
		sleep:      sleepCtx,
	}
	WithRetryStatuses(DefaultRetryStatuses...)(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	retryable := replayable && idempotent(req)

	for attempt := 0; ; attempt++ {
		attemptReq, cancel, err := t.prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := t.Base.RoundTrip(attemptReq)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if t.Observer != nil {
			t.Observer.ObserveAttempt(t.Provider, status, err, time.Since(start))
		}

		reason, retry := t.shouldRetry(req.Context(), resp, err)
		if !retry || attempt >= t.MaxRetries || !retryable {
			if resp != nil {
				resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			} else {
				cancel()
			}
			if err != nil {
				return nil, fmt.Errorf("%s: attempt %d: %w", t.Provider, attempt+1, err)
			}
			return resp, nil
		}

		wait := t.backoff(attempt, resp)
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}
		cancel()

		if t.Observer != nil {
			t.Observer.ObserveRetry(t.Provider, reason)
		}
		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

func (t *RetryTransport) prepare(req *http.Request, attempt int) (*http.Request, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.Timeout)
	out := req.Clone(ctx)
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		out.Body = body
	}
	return out, cancel, nil
}

func (t *RetryTransport) shouldRetry(ctx context.Context, resp *http.Response, err error) (string, bool) {
	if err != nil {
		// The caller gave up; retrying would only delay the failure.
		if ctx.Err() != nil {
			return "", false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout", true
		}
		return "network", true
	}
	if t.statuses[resp.StatusCode] {
		return strconv.Itoa(resp.StatusCode), true
	}
	return "", false
}

func (t *RetryTransport) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
				return min(time.Duration(secs)*time.Second, maxRetryAfter)
			}
		}
	}
	return t.BaseDelay << attempt
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cancelOnClose releases the attempt context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
