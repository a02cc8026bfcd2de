package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/funil/internal/cli"
	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockComparer struct {
	mock.Mock
}

func (m *MockComparer) Compare(ctx context.Context, cpf string) (rates.Outcome, error) {
	args := m.Called(ctx, cpf)
	return args.Get(0).(rates.Outcome), args.Error(1)
}

func TestSimulate(t *testing.T) {
	c := new(MockComparer)
	c.On("Compare", mock.Anything, "52998224725").Return(rates.Outcome{
		Kind: rates.KindOffer,
		Offer: &domain.Offer{
			AmountReleased:   1234.56,
			SourceProviderID: domain.ProviderFacta,
			InstallmentCount: 2,
			RateTableCode:    "60119",
			MonthlyRate:      "1.8",
		},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, cli.Simulate(context.Background(), c, "529.982.247-25", &buf, false))
	assert.Equal(t, `cpf: 529.982.247-25
kind: offer
provider: 935
amount: 1234.56
installments: 2
rate_table: "60119"
monthly_rate: "1.8"
`, buf.String())

	buf.Reset()
	require.NoError(t, cli.Simulate(context.Background(), c, "52998224725", &buf, true))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "offer", out["kind"])
	assert.Equal(t, 1234.56, out["amount"])
}

func TestSimulate_Errors(t *testing.T) {
	c := new(MockComparer)
	var ve *domain.ValidationError
	assert.ErrorAs(t, cli.Simulate(context.Background(), c, "111.111.111-12", &bytes.Buffer{}, false), &ve)

	c.On("Compare", mock.Anything, "52998224725").Return(rates.Outcome{}, context.Canceled)
	err := cli.Simulate(context.Background(), c, "52998224725", &bytes.Buffer{}, false)
	assert.True(t, errors.Is(err, context.Canceled))
}
