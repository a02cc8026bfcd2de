package rates_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/internal/providers/facta"
	"github.com/aretw0/funil/internal/providers/parana"
	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cpf = "52998224725"

type MockParana struct {
	mock.Mock
}

func (m *MockParana) Authenticate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockParana) AvailableBalance(ctx context.Context, token, cpf string) (*parana.Balance, error) {
	args := m.Called(ctx, token, cpf)
	b, _ := args.Get(0).(*parana.Balance)
	return b, args.Error(1)
}

func (m *MockParana) Simulate(ctx context.Context, token, cpf string, periods json.RawMessage) (*parana.Simulation, error) {
	args := m.Called(ctx, token, cpf, periods)
	s, _ := args.Get(0).(*parana.Simulation)
	return s, args.Error(1)
}

type MockFacta struct {
	mock.Mock
}

func (m *MockFacta) Authenticate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockFacta) Balance(ctx context.Context, token, cpf string) (*facta.Balance, error) {
	args := m.Called(ctx, token, cpf)
	b, _ := args.Get(0).(*facta.Balance)
	return b, args.Error(1)
}

func (m *MockFacta) Calculate(ctx context.Context, token string, req facta.CalculationRequest) (*facta.Calculation, error) {
	args := m.Called(ctx, token, req)
	c, _ := args.Get(0).(*facta.Calculation)
	return c, args.Error(1)
}

func paranaOffering(amount float64) *MockParana {
	m := &MockParana{}
	m.On("Authenticate", mock.Anything).Return("tokA", nil)
	m.On("AvailableBalance", mock.Anything, "tokA", cpf).Return(&parana.Balance{
		SaldoTotal:        json.RawMessage(`1000`),
		SaldosPorPeriodos: json.RawMessage(`[]`),
	}, nil)
	m.On("Simulate", mock.Anything, "tokA", cpf, mock.Anything).Return(&parana.Simulation{ValorLiberado: providers.Float(amount)}, nil)
	return m
}

func paranaDown() *MockParana {
	m := &MockParana{}
	m.On("Authenticate", mock.Anything).Return("", &domain.AuthError{Provider: parana.Name, Reason: "down"})
	return m
}

func factaOffering(amount float64, retorno map[string]any) *MockFacta {
	m := &MockFacta{}
	m.On("Authenticate", mock.Anything).Return("tokB", nil)
	m.On("Balance", mock.Anything, "tokB", cpf).Return(&facta.Balance{Retorno: retorno}, nil)
	v := providers.Float(amount)
	m.On("Calculate", mock.Anything, "tokB", mock.Anything).Return(&facta.Calculation{
		Permitido:     "SIM",
		ValorLiquido:  &v,
		SimulacaoFGTS: json.RawMessage(`{"id":1}`),
	}, nil)
	return m
}

func factaRefusing(msg string) *MockFacta {
	m := &MockFacta{}
	m.On("Authenticate", mock.Anything).Return("tokB", nil)
	m.On("Balance", mock.Anything, "tokB", cpf).Return(&facta.Balance{Erro: true, Mensagem: msg}, nil)
	return m
}

func defaultRetorno() map[string]any {
	return map[string]any{
		"dataRepasse_1": "2025-08-01", "valor_1": "3",
		"dataRepasse_2": "2026-08-01", "valor_2": "7",
		"dataRepasse_3": "2027-08-01", "valor_3": "0",
		"dataRepasse_4": "2028-08-01", "valor_4": "12",
	}
}

func TestCompare_ProviderAWins(t *testing.T) {
	e := rates.New(paranaOffering(150), factaOffering(120, defaultRetorno()))

	out, err := e.Compare(context.Background(), cpf)
	require.NoError(t, err)

	assert.Equal(t, rates.KindOffer, out.Kind)
	require.NotNil(t, out.Offer)
	assert.Equal(t, 150.0, out.Offer.AmountReleased)
	assert.Equal(t, domain.ProviderParana, out.Offer.SourceProviderID)
	assert.Zero(t, out.Offer.InstallmentCount)
}

func TestCompare_ProviderBWinsWithBracket(t *testing.T) {
	tests := []struct {
		amount float64
		table  string
	}{
		{80, "60151"},
		{99.99, "60151"},
		{100, "60119"},
		{899.99, "60119"},
		{900, "53694"},
	}

	for _, tt := range tests {
		b := factaOffering(tt.amount, defaultRetorno())
		e := rates.New(paranaDown(), b)

		out, err := e.Compare(context.Background(), cpf)
		require.NoError(t, err)

		require.Equal(t, rates.KindOffer, out.Kind)
		assert.Equal(t, domain.ProviderFacta, out.Offer.SourceProviderID)
		assert.Equal(t, tt.amount, out.Offer.AmountReleased)
		assert.Equal(t, tt.table, out.Offer.RateTableCode, "amount %.2f", tt.amount)
		assert.Equal(t, "1.8", out.Offer.MonthlyRate)
		assert.Equal(t, 2, out.Offer.InstallmentCount)
		assert.JSONEq(t, `{"id":1}`, string(out.Offer.Simulation))
	}
}

func TestCompare_QuotesWithNormalizedPlan(t *testing.T) {
	b := factaOffering(80, defaultRetorno())
	e := rates.New(paranaDown(), b)

	_, err := e.Compare(context.Background(), cpf)
	require.NoError(t, err)

	b.AssertCalled(t, "Calculate", mock.Anything, "tokB", facta.CalculationRequest{
		CPF:    cpf,
		Taxa:   "1.8",
		Tabela: "60151",
		Parcelas: []map[string]any{
			{"dataRepasse_1": "2025-08-01", "valor_1": "0"},
			{"dataRepasse_2": "2026-08-01", "valor_2": "7"},
			{"dataRepasse_3": "2027-08-01", "valor_3": "0"},
			{"dataRepasse_4": "2028-08-01", "valor_4": "12"},
		},
	})
}

func TestCompare_Halt(t *testing.T) {
	a := &MockParana{}
	a.On("Authenticate", mock.Anything).Return("tokA", nil)
	a.On("AvailableBalance", mock.Anything, "tokA", cpf).Return(&parana.Balance{
		Codigo:   "9",
		Mensagem: "Você precisa autorizar o Paraná Banco no app FGTS.",
	}, nil)

	e := rates.New(a, factaOffering(500, defaultRetorno()))
	out, err := e.Compare(context.Background(), cpf)
	require.NoError(t, err)

	assert.Equal(t, rates.KindHalted, out.Kind)
	assert.Equal(t, "Você precisa autorizar o Paraná Banco no app FGTS.", out.Message)
	assert.Nil(t, out.Offer)
	a.AssertNotCalled(t, "Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompare_RefusalClassification(t *testing.T) {
	tests := []struct {
		msg  string
		want rates.Kind
	}{
		{"Existe uma Operação Fiduciária em andamento. Tente mais tarde. (5)", rates.KindBirthdayBlocked},
		{"Operação não permitida antes de 01/09/2025", rates.KindBirthdayBlocked},
		{"Cliente não possui saldo FGTS (101)", rates.KindNoBalance},
		{"Instituição Fiduciária não possui autorização do Trabalhador para Operação Fiduciária. (7)", rates.KindNotAuthorized},
		{"", rates.KindNotAuthorized},
	}

	for _, tt := range tests {
		e := rates.New(paranaOffering(300), factaRefusing(tt.msg))
		out, err := e.Compare(context.Background(), cpf)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out.Kind, tt.msg)
		assert.Nil(t, out.Offer)
	}
}

func TestCompare_NotAllowedIsNoValue(t *testing.T) {
	b := &MockFacta{}
	b.On("Authenticate", mock.Anything).Return("tokB", nil)
	b.On("Balance", mock.Anything, "tokB", cpf).Return(&facta.Balance{Retorno: defaultRetorno()}, nil)
	b.On("Calculate", mock.Anything, "tokB", mock.Anything).Return(&facta.Calculation{Permitido: "NAO"}, nil)

	out, err := rates.New(paranaOffering(300), b).Compare(context.Background(), cpf)
	require.NoError(t, err)
	assert.Equal(t, rates.KindNoValue, out.Kind)
}

func TestCompare_BothFailTransfers(t *testing.T) {
	b := &MockFacta{}
	b.On("Authenticate", mock.Anything).Return("", &domain.NetworkError{Provider: facta.Name, Err: errors.New("dial tcp: refused")})

	out, err := rates.New(paranaDown(), b).Compare(context.Background(), cpf)
	require.NoError(t, err)
	assert.Equal(t, rates.KindNoValueTransfer, out.Kind)
}

func TestCompare_ProviderBFailsButAWins(t *testing.T) {
	b := &MockFacta{}
	b.On("Authenticate", mock.Anything).Return("tokB", nil)
	b.On("Balance", mock.Anything, "tokB", cpf).Return(nil, &domain.ProviderError{Provider: facta.Name, Status: 502})

	out, err := rates.New(paranaOffering(42), b).Compare(context.Background(), cpf)
	require.NoError(t, err)
	require.Equal(t, rates.KindOffer, out.Kind)
	assert.Equal(t, domain.ProviderParana, out.Offer.SourceProviderID)
}

func TestCompare_NoBalanceAtASkipsSimulation(t *testing.T) {
	a := &MockParana{}
	a.On("Authenticate", mock.Anything).Return("tokA", nil)
	a.On("AvailableBalance", mock.Anything, "tokA", cpf).Return(&parana.Balance{SaldoTotal: json.RawMessage(`0`)}, nil)

	out, err := rates.New(a, factaOffering(80, defaultRetorno())).Compare(context.Background(), cpf)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderFacta, out.Offer.SourceProviderID)
	a.AssertNotCalled(t, "Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompare_ReportsProviderCalls(t *testing.T) {
	calls := make(chan string, 16)
	hooks := domain.LifecycleHooks{
		OnProviderCall: func(_ context.Context, e *domain.ProviderCallEvent) {
			calls <- e.Provider + "." + e.Operation
		},
	}

	_, err := rates.New(paranaOffering(1), factaOffering(2, defaultRetorno()), rates.WithHooks(hooks)).Compare(context.Background(), cpf)
	require.NoError(t, err)
	close(calls)

	var got []string
	for c := range calls {
		got = append(got, c)
	}
	assert.ElementsMatch(t, []string{
		"parana.authenticate", "parana.balance", "parana.simulate",
		"facta.authenticate", "facta.balance", "facta.calculate",
	}, got)
}

func TestCompare_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rates.New(paranaDown(), factaRefusing("x")).Compare(ctx, cpf)
	assert.ErrorIs(t, err, context.Canceled)
}
