// Package cli wires the funnel's components for the funil commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/funil/internal/config"
	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/metrics"
	"github.com/aretw0/funil/internal/proposal"
	"github.com/aretw0/funil/internal/providers/brasilapi"
	"github.com/aretw0/funil/internal/providers/facta"
	"github.com/aretw0/funil/internal/providers/newcorban"
	"github.com/aretw0/funil/internal/providers/parana"
	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/adapters/file"
	"github.com/aretw0/funil/pkg/adapters/memory"
	"github.com/aretw0/funil/pkg/adapters/redis"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/persistence/codec"
	"github.com/aretw0/funil/pkg/persistence/middleware"
	"github.com/aretw0/funil/pkg/ports"
	"github.com/aretw0/funil/pkg/session"
)

// NewLogger builds the process logger from the config.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var opts []logging.Option
	if strings.EqualFold(cfg.LogFormat, "json") {
		opts = append(opts, logging.WithJSON())
	}
	return logging.New(level, opts...), nil
}

// Sessions is the session persistence stack.
type Sessions struct {
	Manager *session.Manager
	Redis   *redis.Store
}

// Close releases the Redis connection.
func (s *Sessions) Close() error {
	return s.Redis.Close()
}

// OpenSessions builds Redis, with optional encryption, behind the in-process
// fallback and the audit log. m may be nil.
func OpenSessions(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Sessions, error) {
	c, err := sessionCodec(cfg)
	if err != nil {
		return nil, err
	}

	opts := []redis.Option{
		redis.WithPrefix(cfg.Redis.Prefix + "session:"),
		redis.WithTTL(cfg.Session.TTL),
		redis.WithCodec(c),
	}
	var primary *redis.Store
	if cfg.Redis.URL != "" {
		primary, err = redis.NewFromURL(cfg.Redis.URL, opts...)
		if err != nil {
			return nil, err
		}
	} else {
		primary = redis.New(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, opts...)
	}

	var onFailure func(string)
	if m != nil {
		onFailure = m.StoreFallback
	}
	store := middleware.Chain(primary,
		middleware.NewAuditMiddleware(logger),
		middleware.NewFallbackMiddleware(memory.NewStore(), logger, middleware.WithFailureHook(onFailure)),
	)

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Redis.LockTTL),
	}
	if cfg.Redis.DistributedLock {
		managerOpts = append(managerOpts, session.WithLocker(&degradingLocker{
			next:   redis.NewLocker(primary.Client(), cfg.Redis.Prefix),
			logger: logger,
		}))
	}
	return &Sessions{Manager: session.NewManager(store, managerOpts...), Redis: primary}, nil
}

// OpenLocalSessions keeps sessions in dir, one file per contact, or in memory
// when dir is empty.
func OpenLocalSessions(cfg *config.Config, logger *slog.Logger, dir string) (*session.Manager, error) {
	if dir == "" {
		return session.NewManager(memory.NewStore(), session.WithLogger(logger)), nil
	}
	c, err := sessionCodec(cfg)
	if err != nil {
		return nil, err
	}
	store := middleware.Chain(file.New(dir, file.WithCodec(c)), middleware.NewAuditMiddleware(logger))
	return session.NewManager(store, session.WithLogger(logger)), nil
}

func sessionCodec(cfg *config.Config) (codec.Codec, error) {
	active, fallback, err := cfg.Session.Keys()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return codec.JSON{}, nil
	}
	c, err := codec.NewEncrypted(codec.JSON{}, codec.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	if err != nil {
		return nil, fmt.Errorf("failed to set up session encryption: %w", err)
	}
	return c, nil
}

// degradingLocker keeps cycles running on the per-process lock when Redis
// cannot be reached, matching the store fallback.
type degradingLocker struct {
	next   ports.DistributedLocker
	logger *slog.Logger
}

func (l *degradingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	unlock, err := l.next.Lock(ctx, key, ttl)
	if err != nil && errors.Is(err, redis.ErrLockAcquire) {
		l.logger.Warn("Distributed lock unavailable, using local lock only", "contact_id", key, "err", err)
		return func(context.Context) error { return nil }, nil
	}
	return unlock, err
}

// Providers are the external back-ends.
type Providers struct {
	Parana    *parana.Client
	Facta     *facta.Client
	Newcorban *newcorban.Client
	Banks     *brasilapi.Client
}

// NewProviders builds every provider client. observer may be nil.
func NewProviders(cfg *config.Config, observer transport.Observer) *Providers {
	opts := transportOptions(observer)
	return &Providers{
		Parana: parana.New(parana.Config{
			BaseURL:      cfg.Parana.BaseURL,
			ClientID:     cfg.Parana.ClientID,
			ClientSecret: cfg.Parana.ClientSecret,
			Username:     cfg.Parana.Username,
			Password:     cfg.Parana.Password,
		}, opts...),
		Facta: facta.New(facta.Config{
			BaseURL:          cfg.Facta.BaseURL,
			Credentials:      cfg.Facta.Credentials,
			LoginCertificado: cfg.Facta.LoginCertificado,
			Email:            cfg.Facta.Email,
		}, opts...),
		Newcorban: newcorban.New(newcorban.Config{
			SystemURL:   cfg.Newcorban.SystemURL,
			APIURL:      cfg.Newcorban.APIURL,
			Token:       cfg.Newcorban.Token,
			Username:    cfg.Newcorban.Username,
			Password:    cfg.Newcorban.Password,
			APIUsername: cfg.Newcorban.APIUsername,
			APIPassword: cfg.Newcorban.APIPassword,
		}, opts...),
		Banks: brasilapi.New(cfg.Newcorban.BanksURL, opts...),
	}
}

func transportOptions(observer transport.Observer) []transport.RetryOption {
	if observer == nil {
		return nil
	}
	return []transport.RetryOption{transport.WithObserver(observer)}
}

// Rates builds the comparison engine.
func (p *Providers) Rates(logger *slog.Logger, hooks domain.LifecycleHooks) *rates.Engine {
	return rates.New(p.Parana, p.Facta, rates.WithLogger(logger), rates.WithHooks(hooks))
}

// Pipeline builds the proposal pipeline.
func (p *Providers) Pipeline(logger *slog.Logger, hooks domain.LifecycleHooks) *proposal.Pipeline {
	return proposal.New(p.Newcorban, p.Facta, p.Banks, proposal.WithLogger(logger), proposal.WithHooks(hooks))
}

// DebugHooks logs every transition and provider call at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "contact_id", e.ContactID, "from", e.From, "to", e.To, "handler", e.Handler, "err", e.Err)
		},
		OnProviderCall: func(_ context.Context, e *domain.ProviderCallEvent) {
			logger.Debug("Provider call", "provider", e.Provider, "operation", e.Operation, "duration", e.Duration, "err", e.Err)
		},
	}
}

// DialogueOptions maps the Digisac config onto engine options.
func DialogueOptions(cfg *config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) ([]dialogue.Option, error) {
	opts := []dialogue.Option{
		dialogue.WithLogger(logger),
		dialogue.WithHooks(hooks),
	}
	if cfg.Digisac.Copy != "" {
		catalog, err := dialogue.LoadCatalog(cfg.Digisac.Copy)
		if err != nil {
			return nil, fmt.Errorf("failed to load message copy: %w", err)
		}
		opts = append(opts, dialogue.WithCatalog(catalog))
	}
	if cfg.Digisac.AuthorizeImage != "" {
		opts = append(opts, dialogue.WithAuthorizeImage(cfg.Digisac.AuthorizeImage))
	}
	return opts, nil
}
