package domain

import (
	"encoding/json"
	"fmt"
)

// Provider routing ids used by the proposal backend.
const (
	ProviderParana = 254
	ProviderFacta  = 935
)

// BankingSource tells where the banking details came from.
type BankingSource string

const (
	BankingFromUser    BankingSource = "user"
	BankingFromHistory BankingSource = "history"
)

// BankingDetails is the payout account of a contact.
type BankingDetails struct {
	AccountType string        `json:"accountType"`
	BankCode    string        `json:"bankCode"`
	Branch      string        `json:"branch"`
	Account     string        `json:"account"`
	Source      BankingSource `json:"source"`
}

// Complete reports whether every field is populated.
func (b *BankingDetails) Complete() bool {
	return b != nil && b.AccountType != "" && b.BankCode != "" && b.Branch != "" && b.Account != ""
}

// Offer is a priced anticipation from one of the balance providers.
type Offer struct {
	AmountReleased   float64         `json:"amountReleased"`
	SourceProviderID int             `json:"sourceProviderId"`
	InstallmentCount int             `json:"installmentCount,omitempty"`
	RateTableCode    string          `json:"rateTableCode,omitempty"`
	MonthlyRate      string          `json:"monthlyRate,omitempty"`
	Simulation       json.RawMessage `json:"simulation,omitempty"`
}

// Session is the persisted conversation snapshot of one contact.
type Session struct {
	State            State           `json:"state,omitempty"`
	DisplayName      string          `json:"displayName,omitempty"`
	NameResolved     bool            `json:"nameResolved,omitempty"`
	CPF              string          `json:"cpf,omitempty"`
	InteractionCount int             `json:"interactionCount"`
	BankingDetails   *BankingDetails `json:"bankingDetails,omitempty"`
	SelectedOffer    *Offer          `json:"selectedOffer,omitempty"`
	ProposalLink     string          `json:"proposalLink,omitempty"`
}

// NewSession returns the default session of a contact seen for the first time.
func NewSession() *Session {
	return &Session{}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	if s.BankingDetails != nil {
		b := *s.BankingDetails
		out.BankingDetails = &b
	}
	if s.SelectedOffer != nil {
		o := *s.SelectedOffer
		o.Simulation = append(json.RawMessage(nil), s.SelectedOffer.Simulation...)
		out.SelectedOffer = &o
	}
	return &out
}

// Validate checks the session invariants.
func (s *Session) Validate() error {
	if s.State != "" && !s.State.Valid() {
		return &ValidationError{Field: "state", Reason: fmt.Sprintf("unknown state %q", s.State)}
	}
	if s.CPF != "" && !ValidCPF(s.CPF) {
		return &ValidationError{Field: "cpf", Reason: "invalid check digits"}
	}
	if s.BankingDetails != nil && !s.BankingDetails.Complete() {
		return &ValidationError{Field: "bankingDetails", Reason: "partially populated"}
	}
	if s.SelectedOffer != nil && s.SelectedOffer.AmountReleased < 0 {
		return &ValidationError{Field: "selectedOffer", Reason: "negative amount"}
	}
	return nil
}
