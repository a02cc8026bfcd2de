package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	contactID := "contract-test-contact-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		session := &domain.Session{
			State:            domain.StateConfirmBankingDetails,
			DisplayName:      "Maria",
			CPF:              "52998224725",
			InteractionCount: 2,
			SelectedOffer: &domain.Offer{
				AmountReleased:   80,
				SourceProviderID: domain.ProviderFacta,
				InstallmentCount: 2,
				RateTableCode:    "60151",
				MonthlyRate:      "1.8",
			},
		}

		err := store.Set(ctx, contactID, session)
		require.NoError(t, err, "Set should not return error")

		loaded, err := store.Get(ctx, contactID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, session, loaded)
	})

	t.Run("Set is idempotent", func(t *testing.T) {
		session := &domain.Session{State: domain.StateInitial, DisplayName: "Joao"}

		require.NoError(t, store.Set(ctx, contactID, session))
		first, err := store.Get(ctx, contactID)
		require.NoError(t, err)

		require.NoError(t, store.Set(ctx, contactID, session))
		second, err := store.Get(ctx, contactID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, contactID, &domain.Session{State: domain.StateInitial}))

		loaded, err := store.Get(ctx, contactID)
		require.NoError(t, err)
		loaded.State = domain.StatePayrollLoan

		again, err := store.Get(ctx, contactID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateInitial, again.State)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+contactID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Set(ctx, contactID, domain.NewSession())
		require.NoError(t, err)

		err = store.Delete(ctx, contactID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Get(ctx, contactID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, contactID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := contactID + "-1"
		id2 := contactID + "-2"
		_ = store.Set(ctx, id1, domain.NewSession())
		_ = store.Set(ctx, id2, domain.NewSession())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
