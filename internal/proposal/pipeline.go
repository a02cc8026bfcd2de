// Package proposal turns a selected offer into a registered loan proposal:
// it resolves the client and payout account in the proposal backend, runs
// the lender's registration flow and records the proposal.
package proposal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/providers/facta"
	"github.com/aretw0/funil/internal/providers/newcorban"
	"github.com/aretw0/funil/pkg/domain"
)

// Backend is the proposal backend (Newcorban).
type Backend interface {
	Login(ctx context.Context) (string, error)
	LookupClient(ctx context.Context, cpf string) (*newcorban.ClientRecord, error)
	BankHistory(ctx context.Context, cpf string) ([]newcorban.BankAccount, error)
	CreateProposal(ctx context.Context, p newcorban.Proposal) error
}

// Registrar runs the lender-side registration (Facta).
type Registrar interface {
	Authenticate(ctx context.Context) (string, error)
	Register(ctx context.Context, token string, a facta.Applicant) (*facta.Registration, error)
}

// BankDirectory resolves COMPE codes to bank names.
type BankDirectory interface {
	BankName(ctx context.Context, code string) (string, error)
}

// ConfirmResult is what the user is asked to confirm.
type ConfirmResult struct {
	AccountType string // underscores replaced by spaces
	BankName    string
	Branch      string
	Account     string // with check digit
	// Details is the resolved account as session banking details.
	Details *domain.BankingDetails
}

// SubmitResult is a registered proposal.
type SubmitResult struct {
	Link string
}

// Pipeline runs Confirm and Submit.
type Pipeline struct {
	backend   Backend
	registrar Registrar
	banks     BankDirectory
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithHooks reports every backend call.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(p *Pipeline) { p.hooks = h }
}

// New creates a Pipeline.
func New(backend Backend, registrar Registrar, banks BankDirectory, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:   backend,
		registrar: registrar,
		banks:     banks,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Confirm resolves the payout account the proposal would use.
// It returns domain.ErrNoAccount when the backend knows no account.
func (p *Pipeline) Confirm(ctx context.Context, s *domain.Session) (*ConfirmResult, error) {
	if _, err := p.lookup(ctx, s.CPF); err != nil {
		return nil, err
	}
	acc, err := p.account(ctx, s)
	if err != nil {
		return nil, err
	}

	var name string
	err = p.timed(ctx, "brasilapi", "bank_name", func() (err error) {
		name, err = p.banks.BankName(ctx, acc.BankCode)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bank %s: %w", acc.BankCode, err)
	}

	details := acc.Details()
	if d := s.BankingDetails; d != nil && d.Source == domain.BankingFromUser {
		details.Source = domain.BankingFromUser
	}
	return &ConfirmResult{
		AccountType: strings.ReplaceAll(acc.ReleaseType, "_", " "),
		BankName:    name,
		Branch:      acc.Branch,
		Account:     acc.FullAccount(),
		Details:     details,
	}, nil
}

// Submit registers the session's selected offer. Steps already completed
// upstream are not undone when a later one fails.
func (p *Pipeline) Submit(ctx context.Context, s *domain.Session) (*SubmitResult, error) {
	if s.SelectedOffer == nil {
		return nil, &domain.ValidationError{Field: "selectedOffer", Reason: "no offer to submit"}
	}

	rec, err := p.lookup(ctx, s.CPF)
	if err != nil {
		return nil, err
	}
	acc, err := p.account(ctx, s)
	if err != nil {
		return nil, err
	}

	doc, err := first(p.logger, "document", rec.Documents)
	if err != nil {
		return nil, err
	}
	phone, err := first(p.logger, "phone", rec.Phones)
	if err != nil {
		return nil, err
	}
	addr, err := first(p.logger, "address", rec.Addresses)
	if err != nil {
		return nil, err
	}

	applicant := facta.Applicant{
		CPF:           s.CPF,
		BirthDate:     rec.Personal.BirthDate,
		Income:        rec.Personal.Income,
		Name:          rec.Personal.Name,
		Sex:           rec.Personal.Sex,
		MaritalStatus: rec.Personal.MaritalStatus,
		RG:            doc.Value.Number,
		RGState:       doc.Value.UF,
		RGIssuedAt:    brazilianDate(doc.Value.IssuedAt),
		Phone:         phone.Value.Formatted(),
		ZipCode:       addr.Value.ZipCode,
		Street:        addr.Value.Street,
		Number:        addr.Value.Number,
		District:      addr.Value.District,
		City:          addr.Value.City,
		State:         addr.Value.UF,
		MotherName:    rec.Personal.MotherName,
		FatherName:    rec.Personal.FatherName,
		Illiterate:    rec.Personal.Illiterate(),
		BankCode:      acc.BankCode,
		Branch:        acc.Branch,
		Account:       acc.FullAccount(),
		AccountType:   acc.ReleaseType,
		SimulacaoFGTS: s.SelectedOffer.Simulation,
	}

	var reg *facta.Registration
	err = p.timed(ctx, facta.Name, "register", func() error {
		token, err := p.registrar.Authenticate(ctx)
		if err != nil {
			return err
		}
		reg, err = p.registrar.Register(ctx, token, applicant)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register with lender: %w", err)
	}

	offer := s.SelectedOffer
	prop := newcorban.Proposal{
		PersonalRaw:    rec.PersonalRaw,
		Document:       doc,
		Address:        addr,
		Phone:          phone,
		Account:        acc,
		BankID:         offer.SourceProviderID,
		BankProposalID: reg.Codigo,
		Link:           reg.URLFormalizacao,
		Amount:         offer.AmountReleased,
		Installments:   offer.InstallmentCount,
		Rate:           offer.MonthlyRate,
		RateTable:      offer.RateTableCode,
	}
	err = p.timed(ctx, newcorban.Name, "create_proposal", func() error {
		return p.backend.CreateProposal(ctx, prop)
	})
	if err != nil {
		p.logger.Error("Proposal registered with lender but not recorded in backend",
			"cpf", domain.MaskCPF(s.CPF),
			"link", reg.URLFormalizacao,
			"err", err,
		)
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	p.logger.Info("Proposal submitted", "cpf", domain.MaskCPF(s.CPF), "bank_id", offer.SourceProviderID)
	return &SubmitResult{Link: reg.URLFormalizacao}, nil
}

// lookup fetches the client, logging in again and retrying once when the
// stored token is rejected.
func (p *Pipeline) lookup(ctx context.Context, cpf string) (*newcorban.ClientRecord, error) {
	var rec *newcorban.ClientRecord
	err := p.timed(ctx, newcorban.Name, "lookup_client", func() (err error) {
		rec, err = p.backend.LookupClient(ctx, cpf)
		return err
	})
	if err == nil || !newcorban.IsAuth(err) {
		return rec, err
	}

	p.logger.Info("Backend token rejected, logging in again", "err", err)
	err = p.timed(ctx, newcorban.Name, "login", func() error {
		_, err := p.backend.Login(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.timed(ctx, newcorban.Name, "lookup_client", func() (err error) {
		rec, err = p.backend.LookupClient(ctx, cpf)
		return err
	})
	return rec, err
}

func (p *Pipeline) account(ctx context.Context, s *domain.Session) (newcorban.BankAccount, error) {
	if d := s.BankingDetails; d != nil && d.Source == domain.BankingFromUser {
		return newcorban.AccountFromDetails(d), nil
	}

	var history []newcorban.BankAccount
	err := p.timed(ctx, newcorban.Name, "bank_history", func() (err error) {
		history, err = p.backend.BankHistory(ctx, s.CPF)
		return err
	})
	if err != nil {
		return newcorban.BankAccount{}, err
	}
	if len(history) == 0 {
		return newcorban.BankAccount{}, domain.ErrNoAccount
	}
	return history[0], nil
}

func (p *Pipeline) timed(ctx context.Context, provider, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.hooks.EmitProviderCall(ctx, &domain.ProviderCallEvent{
		Provider:  provider,
		Operation: op,
		Duration:  time.Since(start),
		Err:       err,
	})
	return err
}

func first[T any](logger *slog.Logger, resource string, items []newcorban.Keyed[T]) (newcorban.Keyed[T], error) {
	if len(items) == 0 {
		return newcorban.Keyed[T]{}, &domain.NotFoundError{Resource: resource}
	}
	if len(items) > 1 {
		logger.Warn("Client has more than one record, using the first", "resource", resource, "count", len(items), "id", items[0].ID)
	}
	return items[0], nil
}

// brazilianDate converts yyyy-mm-dd to dd/mm/yyyy. Other layouts pass through.
func brazilianDate(s string) string {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}
