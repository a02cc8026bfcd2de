package middleware

import (
	"context"
	"log/slog"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
)

type auditMiddleware struct {
	next   ports.SessionStore
	logger *slog.Logger
}

// NewAuditMiddleware logs every session write at debug level with the CPF
// and bank account masked.
func NewAuditMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &auditMiddleware{next: next, logger: logger}
	}
}

func (m *auditMiddleware) Set(ctx context.Context, contactID string, session *domain.Session) error {
	err := m.next.Set(ctx, contactID, session)
	m.logger.DebugContext(ctx, "Session written", append(SessionAttrs(session), "contact_id", contactID, "err", err)...)
	return err
}

func (m *auditMiddleware) Get(ctx context.Context, contactID string) (*domain.Session, error) {
	return m.next.Get(ctx, contactID)
}

func (m *auditMiddleware) Delete(ctx context.Context, contactID string) error {
	err := m.next.Delete(ctx, contactID)
	m.logger.DebugContext(ctx, "Session deleted", "contact_id", contactID, "err", err)
	return err
}

func (m *auditMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// SessionAttrs renders a session as log attributes with PII masked.
func SessionAttrs(s *domain.Session) []any {
	attrs := []any{
		"state", s.State,
		"interaction_count", s.InteractionCount,
	}
	if s.CPF != "" {
		attrs = append(attrs, "cpf", domain.MaskCPF(s.CPF))
	}
	if b := s.BankingDetails; b != nil {
		attrs = append(attrs, "bank", b.BankCode, "account", maskTail(b.Account), "banking_source", b.Source)
	}
	if o := s.SelectedOffer; o != nil {
		attrs = append(attrs, "offer_amount", o.AmountReleased, "offer_provider", o.SourceProviderID)
	}
	return attrs
}

func maskTail(s string) string {
	if len(s) <= 3 {
		return "***"
	}
	return "***" + s[len(s)-3:]
}
