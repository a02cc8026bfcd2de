package cli_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/funil/internal/cli"
	"github.com/aretw0/funil/pkg/adapters/memory"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "c-2", &domain.Session{State: domain.StateInitial, DisplayName: "Bia"}))
	require.NoError(t, m.Set(ctx, "c-1", &domain.Session{
		State:            domain.StateMakeAnticipation,
		DisplayName:      "Ana",
		CPF:              "52998224725",
		InteractionCount: 2,
		BankingDetails:   &domain.BankingDetails{AccountType: "CONTA_CORRENTE", BankCode: "260", Branch: "0001", Account: "123456789", Source: domain.BankingFromUser},
		SelectedOffer:    &domain.Offer{AmountReleased: 80, SourceProviderID: domain.ProviderFacta},
		ProposalLink:     "https://f/1",
	}))
	return m
}

func TestListSessions(t *testing.T) {
	rows, err := cli.ListSessions(context.Background(), seeded(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, cli.SessionSummary{
		ContactID: "c-1",
		State:     domain.StateMakeAnticipation,
		Name:      "Ana",
		CPF:       "***.***.***-25",
		Link:      true,
	}, rows[0])
	assert.Equal(t, "c-2", rows[1].ContactID)

	var buf bytes.Buffer
	require.NoError(t, cli.PrintSessions(&buf, rows))
	assert.Contains(t, buf.String(), "CONTACT")
	assert.Contains(t, buf.String(), "MAKE_ANTICIPATION")

	buf.Reset()
	require.NoError(t, cli.PrintSessions(&buf, nil))
	assert.Equal(t, "No sessions found.\n", buf.String())
}
