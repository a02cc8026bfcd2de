package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	base := &Session{
		State:          StateConfirmBankingDetails,
		CPF:            "52998224725",
		BankingDetails: &BankingDetails{AccountType: "CONTA_CORRENTE", BankCode: "260", Branch: "0001", Account: "123456789", Source: BankingFromUser},
		SelectedOffer:  &Offer{AmountReleased: 80, SourceProviderID: ProviderFacta},
	}

	tests := []struct {
		name string
		old  *Session
		edit func(*Session)
		want []string
	}{
		{"no changes", base, func(*Session) {}, nil},
		{"state and link", base, func(s *Session) {
			s.State = StateMakeAnticipation
			s.ProposalLink = "https://f/1"
		}, []string{"state", "proposalLink"}},
		{"nested banking field", base, func(s *Session) {
			s.BankingDetails.Account = "987654321"
		}, []string{"bankingDetails"}},
		{"offer dropped", base, func(s *Session) {
			s.SelectedOffer = nil
		}, []string{"selectedOffer"}},
		{"from nothing", nil, func(s *Session) {}, []string{"state", "cpf", "bankingDetails", "selectedOffer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base.Clone()
			tt.edit(next)
			assert.Equal(t, tt.want, Diff(tt.old, next))
		})
	}

	assert.Nil(t, Diff(base, nil))
}
