// Package rates compares the anticipation offers of both balance providers
// and derives the parameters the winning offer is submitted with.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/providers/facta"
	"github.com/aretw0/funil/internal/providers/parana"
	"github.com/aretw0/funil/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// ProviderA is the subset of the Paraná client the engine needs.
type ProviderA interface {
	Authenticate(ctx context.Context) (string, error)
	AvailableBalance(ctx context.Context, token, cpf string) (*parana.Balance, error)
	Simulate(ctx context.Context, token, cpf string, periods json.RawMessage) (*parana.Simulation, error)
}

// ProviderB is the subset of the Facta client the engine needs.
type ProviderB interface {
	Authenticate(ctx context.Context) (string, error)
	Balance(ctx context.Context, token, cpf string) (*facta.Balance, error)
	Calculate(ctx context.Context, token string, req facta.CalculationRequest) (*facta.Calculation, error)
}

// Kind classifies a comparison result.
type Kind string

const (
	// KindOffer means Outcome.Offer holds the winning offer.
	KindOffer Kind = "offer"
	// KindHalted means provider A asked to stop; relay Outcome.Message.
	KindHalted Kind = "halted"
	// KindBirthdayBlocked means the birthday window forbids the operation.
	KindBirthdayBlocked Kind = "birthday_blocked"
	// KindNoBalance means there is no FGTS balance.
	KindNoBalance Kind = "no_balance"
	// KindNotAuthorized means the user has not authorized the banks yet.
	KindNotAuthorized Kind = "not_authorized"
	// KindNoValue means nothing can be released.
	KindNoValue Kind = "no_value"
	// KindNoValueTransfer is KindNoValue plus a hand-off to a human agent.
	KindNoValueTransfer Kind = "no_value_transfer"
)

// Messages provider B uses to refuse a balance query.
const (
	msgFiduciaryInProgress = "Existe uma Operação Fiduciária em andamento. Tente mais tarde. (5)"
	msgNoBalance           = "Cliente não possui saldo FGTS (101)"
	msgBeforeBirthday      = "Operação não permitida antes de"
)

// Outcome is the result of Compare.
type Outcome struct {
	Kind    Kind
	Offer   *domain.Offer
	Message string
}

// Engine runs the comparison.
type Engine struct {
	a      ProviderA
	b      ProviderB
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithHooks reports every provider call.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// New creates an Engine.
func New(a ProviderA, b ProviderB, opts ...Option) *Engine {
	e := &Engine{a: a, b: b, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// quoteA is provider A's side of the comparison.
type quoteA struct {
	amount  float64
	halted  bool
	message string
}

// quoteB is provider B's side. refusal is set when the balance query was
// answered with erro; calc is nil when B failed.
type quoteB struct {
	refusal string
	refused bool
	calc    *facta.Calculation
	prazo   int
}

var errHalted = errors.New("provider A halted the comparison")

// Compare queries both providers concurrently for cpf and picks the outcome.
// Provider failures degrade to "no offer" and never surface as errors; the
// returned error is only the caller's context.
func (e *Engine) Compare(ctx context.Context, cpf string) (Outcome, error) {
	var (
		qa quoteA
		qb quoteB
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qa = e.quoteA(gctx, cpf)
		if qa.halted {
			return errHalted
		}
		return nil
	})
	g.Go(func() error {
		qb = e.quoteB(gctx, cpf)
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errHalted) {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	return e.decide(qa, qb), nil
}

func (e *Engine) decide(qa quoteA, qb quoteB) Outcome {
	if qa.halted {
		return Outcome{Kind: KindHalted, Message: qa.message}
	}

	if qb.refused {
		return Outcome{Kind: classifyRefusal(qb.refusal), Message: qb.refusal}
	}
	if qb.calc != nil && !qb.calc.Allowed() {
		return Outcome{Kind: KindNoValue}
	}

	var amountB float64
	if qb.calc != nil && qb.calc.ValorLiquido != nil {
		amountB = max(float64(*qb.calc.ValorLiquido), 0)
	}

	if qa.amount > amountB {
		return Outcome{Kind: KindOffer, Offer: &domain.Offer{
			AmountReleased:   qa.amount,
			SourceProviderID: domain.ProviderParana,
		}}
	}
	if qb.calc == nil || qb.calc.ValorLiquido == nil {
		return Outcome{Kind: KindNoValueTransfer}
	}
	return Outcome{Kind: KindOffer, Offer: &domain.Offer{
		AmountReleased:   amountB,
		SourceProviderID: domain.ProviderFacta,
		InstallmentCount: qb.prazo,
		RateTableCode:    RateTable(amountB),
		MonthlyRate:      FactaRate,
		Simulation:       qb.calc.SimulacaoFGTS,
	}}
}

func classifyRefusal(msg string) Kind {
	switch {
	case msg == msgFiduciaryInProgress, strings.Contains(msg, msgBeforeBirthday):
		return KindBirthdayBlocked
	case msg == msgNoBalance:
		return KindNoBalance
	default:
		return KindNotAuthorized
	}
}

func (e *Engine) quoteA(ctx context.Context, cpf string) quoteA {
	var (
		token string
		bal   *parana.Balance
		sim   *parana.Simulation
	)
	err := e.timed(ctx, parana.Name, "authenticate", func() (err error) {
		token, err = e.a.Authenticate(ctx)
		return err
	})
	if err == nil {
		err = e.timed(ctx, parana.Name, "balance", func() (err error) {
			bal, err = e.a.AvailableBalance(ctx, token, cpf)
			return err
		})
	}
	if err != nil {
		e.logger.Warn("Balance query failed, treating as no offer", "provider", parana.Name, "cpf", domain.MaskCPF(cpf), "err", err)
		return quoteA{}
	}
	if bal.Halted() {
		return quoteA{halted: true, message: bal.Mensagem}
	}
	if !bal.HasBalance() {
		return quoteA{}
	}

	err = e.timed(ctx, parana.Name, "simulate", func() (err error) {
		sim, err = e.a.Simulate(ctx, token, cpf, bal.SaldosPorPeriodos)
		return err
	})
	if err != nil {
		e.logger.Warn("Simulation failed, treating as no offer", "provider", parana.Name, "cpf", domain.MaskCPF(cpf), "err", err)
		return quoteA{}
	}
	return quoteA{amount: max(float64(sim.ValorLiberado), 0)}
}

func (e *Engine) quoteB(ctx context.Context, cpf string) quoteB {
	var (
		token string
		bal   *facta.Balance
		calc  *facta.Calculation
	)
	err := e.timed(ctx, facta.Name, "authenticate", func() (err error) {
		token, err = e.b.Authenticate(ctx)
		return err
	})
	if err == nil {
		err = e.timed(ctx, facta.Name, "balance", func() (err error) {
			bal, err = e.b.Balance(ctx, token, cpf)
			return err
		})
	}
	if err != nil {
		e.logger.Warn("Balance query failed, treating as no offer", "provider", facta.Name, "cpf", domain.MaskCPF(cpf), "err", err)
		return quoteB{}
	}
	if bal.Erro {
		return quoteB{refused: true, refusal: bal.Mensagem}
	}

	normalized := NormalizeInstallments(bal.Retorno)
	req := facta.CalculationRequest{
		CPF:      cpf,
		Taxa:     FactaRate,
		Tabela:   FactaQuoteTable,
		Parcelas: InstallmentPlan(normalized),
	}
	err = e.timed(ctx, facta.Name, "calculate", func() (err error) {
		calc, err = e.b.Calculate(ctx, token, req)
		return err
	})
	if err != nil {
		e.logger.Warn("Calculation failed, treating as no offer", "provider", facta.Name, "cpf", domain.MaskCPF(cpf), "err", err)
		return quoteB{}
	}
	return quoteB{calc: calc, prazo: CountInstallments(normalized)}
}

func (e *Engine) timed(ctx context.Context, provider, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	e.hooks.EmitProviderCall(ctx, &domain.ProviderCallEvent{
		Provider:  provider,
		Operation: op,
		Duration:  time.Since(start),
		Err:       err,
	})
	return err
}
