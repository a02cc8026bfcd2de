package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a contact.
// It must exceed the worst-case cycle: several provider calls of up to 60s each.
const DefaultLockTTL = 5 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL for the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(contactID) after unlocking.
func (m *Manager) acquire(contactID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[contactID]
	if !exists {
		entry = &lockEntry{}
		m.locks[contactID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(contactID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[contactID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, contactID)
	}
}

// Get retrieves an existing session from the store.
func (m *Manager) Get(ctx context.Context, contactID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, contactID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Get(ctx, contactID)
		return err
	})
	return s, err
}

// Set persists the session.
func (m *Manager) Set(ctx context.Context, contactID string, s *domain.Session) error {
	return m.WithLock(ctx, contactID, func(ctx context.Context) error {
		return m.store.Set(ctx, contactID, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, contactID string) error {
	return m.WithLock(ctx, contactID, func(ctx context.Context) error {
		return m.store.Delete(ctx, contactID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Cycle runs one read-act-write cycle for a contact under its lock.
// A missing session starts as domain.NewSession. The session is written back
// even when fn fails, so state changes made before the failure survive;
// fn's error is returned after the write. A session left invalid by fn is
// not written and the stored copy stays as it was.
func (m *Manager) Cycle(ctx context.Context, contactID string, fn func(context.Context, *domain.Session) error) error {
	return m.WithLock(ctx, contactID, func(ctx context.Context) error {
		s, err := m.store.Get(ctx, contactID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			s = domain.NewSession()
		} else if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		before := s.Clone()
		fnErr := fn(ctx, s)
		if changed := domain.Diff(before, s); len(changed) > 0 {
			m.logger.Debug("Session changed", "contact_id", contactID, "fields", changed)
		}

		if err := s.Validate(); err != nil {
			m.logger.Error("Refusing to save invalid session", "contact_id", contactID, "err", err)
			return errors.Join(fnErr, fmt.Errorf("refusing to save invalid session: %w", err))
		}
		if err := m.store.Set(ctx, contactID, s); err != nil {
			return errors.Join(fnErr, fmt.Errorf("failed to save session: %w", err))
		}
		return fnErr
	})
}

// Reset sends a contact back to the menu on its next message. The name and
// CPF are kept; the offer, banking details and proposal link are dropped.
// A contact without a session gets domain.ErrSessionNotFound.
func (m *Manager) Reset(ctx context.Context, contactID string) error {
	return m.WithLock(ctx, contactID, func(ctx context.Context) error {
		s, err := m.store.Get(ctx, contactID)
		if err != nil {
			return err
		}
		s.State = ""
		s.InteractionCount = 0
		s.BankingDetails = nil
		s.SelectedOffer = nil
		s.ProposalLink = ""
		return m.store.Set(ctx, contactID, s)
	})
}

// WithLock executes a function while holding the lock for the contact.
func (m *Manager) WithLock(ctx context.Context, contactID string, fn func(context.Context) error) error {
	entry := m.acquire(contactID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(contactID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, contactID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The cycle context may already be done; release with a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"contact_id", contactID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
