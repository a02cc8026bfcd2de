package dialogue_test

import (
	"testing"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEdges(t *testing.T) {
	edges := dialogue.Edges()

	assert.Contains(t, edges, dialogue.Edge{From: domain.StateInitial, Handler: "start_fgts", To: domain.StateFGTSOptInCheck})
	assert.Contains(t, edges, dialogue.Edge{From: domain.StateAuthorized, Handler: "simulate", To: domain.StateAuthorized})
	assert.Contains(t, edges, dialogue.Edge{From: domain.StateConfirmBankingDetails, Handler: "submit", To: domain.StateMakeAnticipation})
	assert.Contains(t, edges, dialogue.Edge{From: domain.StatePayrollSimulationConfirmed, Handler: "start_fgts", To: domain.StateFGTSOptInCheck})
	assert.Contains(t, edges, dialogue.Edge{From: domain.StatePayrollSimulationConfirmed, Handler: "menu", To: domain.StateInitial})

	reached := map[domain.State]bool{domain.StateInitial: true}
	for _, e := range edges {
		assert.True(t, e.From.Valid(), e)
		assert.True(t, e.To.Valid(), e)
		reached[e.To] = true
	}
	for _, s := range domain.States {
		if s == domain.StateBirthdayWithdrawalAlreadyEnrolled || s == domain.StateAuthorized {
			continue // aliases of FGTS_ANTICIPATION, never entered by a handler
		}
		assert.True(t, reached[s], "state %s is unreachable", s)
	}
}
