package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/funil/pkg/adapters/memory"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditMiddleware_MasksPII(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	underlying := memory.NewStore()
	store := middleware.NewAuditMiddleware(logger)(underlying)

	session := &domain.Session{
		State: domain.StateConfirmBankingDetails,
		CPF:   "52998224725",
		BankingDetails: &domain.BankingDetails{
			AccountType: "CONTA_CORRENTE",
			BankCode:    "260",
			Branch:      "0001",
			Account:     "1234567890",
			Source:      domain.BankingFromUser,
		},
	}
	require.NoError(t, store.Set(context.Background(), "c1", session))

	out := buf.String()
	assert.Contains(t, out, "cpf=***.***.***-25")
	assert.Contains(t, out, "account=***890")
	assert.NotContains(t, out, "52998224725")
	assert.NotContains(t, out, "1234567890")

	// The stored session is untouched.
	stored, err := underlying.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "52998224725", stored.CPF)
}
