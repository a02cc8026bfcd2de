package domain

import "bytes"

// Diff lists the JSON names of the fields that differ between two session
// snapshots, in declaration order. A nil prev session compares against the
// zero session.
func Diff(prev, next *Session) []string {
	if next == nil {
		return nil
	}
	if prev == nil {
		prev = &Session{}
	}

	var changed []string
	field := func(name string, equal bool) {
		if !equal {
			changed = append(changed, name)
		}
	}
	field("state", prev.State == next.State)
	field("displayName", prev.DisplayName == next.DisplayName)
	field("nameResolved", prev.NameResolved == next.NameResolved)
	field("cpf", prev.CPF == next.CPF)
	field("interactionCount", prev.InteractionCount == next.InteractionCount)
	field("bankingDetails", bankingEqual(prev.BankingDetails, next.BankingDetails))
	field("selectedOffer", offerEqual(prev.SelectedOffer, next.SelectedOffer))
	field("proposalLink", prev.ProposalLink == next.ProposalLink)
	return changed
}

func bankingEqual(a, b *BankingDetails) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func offerEqual(a, b *Offer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AmountReleased == b.AmountReleased &&
		a.SourceProviderID == b.SourceProviderID &&
		a.InstallmentCount == b.InstallmentCount &&
		a.RateTableCode == b.RateTableCode &&
		a.MonthlyRate == b.MonthlyRate &&
		bytes.Equal(a.Simulation, b.Simulation)
}
