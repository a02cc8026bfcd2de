package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

type fallbackMiddleware struct {
	next      ports.SessionStore
	secondary ports.SessionStore
	logger    *slog.Logger
	onFailure func(op string)
}

// FallbackOption configures the fallback middleware.
type FallbackOption func(*fallbackMiddleware)

// WithFailureHook is called with the operation name whenever the primary fails.
func WithFailureHook(fn func(op string)) FallbackOption {
	return func(m *fallbackMiddleware) {
		m.onFailure = fn
	}
}

// NewFallbackMiddleware routes an operation to secondary when the wrapped
// store is unreachable (see Unavailable). Any other failure, such as a
// session that no longer decodes, is returned as is.
// Data written to secondary is not copied back once the primary recovers.
func NewFallbackMiddleware(secondary ports.SessionStore, logger *slog.Logger, opts ...FallbackOption) Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		m := &fallbackMiddleware{next: next, secondary: secondary, logger: logger}
		for _, opt := range opts {
			opt(m)
		}
		return m
	}
}

// Unavailable reports whether err means the store could not be reached:
// refused or reset connections, timeouts, a closed client or an exhausted pool.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, backend.ErrClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "pool timeout")
}

func (m *fallbackMiddleware) failed(op, contactID string, err error) {
	m.logger.Warn("Session store unavailable, using in-process fallback",
		"op", op,
		"contact_id", contactID,
		"err", err,
	)
	if m.onFailure != nil {
		m.onFailure(op)
	}
}

func (m *fallbackMiddleware) Get(ctx context.Context, contactID string) (*domain.Session, error) {
	session, err := m.next.Get(ctx, contactID)
	if !Unavailable(err) {
		return session, err
	}
	m.failed("get", contactID, err)
	return m.secondary.Get(ctx, contactID)
}

func (m *fallbackMiddleware) Set(ctx context.Context, contactID string, session *domain.Session) error {
	err := m.next.Set(ctx, contactID, session)
	if !Unavailable(err) {
		return err
	}
	m.failed("set", contactID, err)
	return m.secondary.Set(ctx, contactID, session)
}

func (m *fallbackMiddleware) Delete(ctx context.Context, contactID string) error {
	errSecondary := m.secondary.Delete(ctx, contactID)
	err := m.next.Delete(ctx, contactID)
	if !Unavailable(err) {
		return err
	}
	m.failed("delete", contactID, err)
	return errSecondary
}

func (m *fallbackMiddleware) List(ctx context.Context) ([]string, error) {
	ids, err := m.next.List(ctx)
	if !Unavailable(err) {
		return ids, err
	}
	m.failed("list", "", err)
	return m.secondary.List(ctx)
}
