package rates

import "github.com/aretw0/funil/pkg/domain"

// Report is the printable form of an Outcome.
type Report struct {
	CPF          string  `yaml:"cpf" json:"cpf"`
	Kind         string  `yaml:"kind" json:"kind"`
	Message      string  `yaml:"message,omitempty" json:"message,omitempty"`
	Provider     int     `yaml:"provider,omitempty" json:"provider,omitempty"`
	Amount       float64 `yaml:"amount,omitempty" json:"amount,omitempty"`
	Installments int     `yaml:"installments,omitempty" json:"installments,omitempty"`
	RateTable    string  `yaml:"rate_table,omitempty" json:"rate_table,omitempty"`
	MonthlyRate  string  `yaml:"monthly_rate,omitempty" json:"monthly_rate,omitempty"`
}

// Report flattens o for cpf, which is shown formatted.
func (o Outcome) Report(cpf string) Report {
	r := Report{CPF: domain.FormatCPF(cpf), Kind: string(o.Kind), Message: o.Message}
	if offer := o.Offer; offer != nil {
		r.Provider = offer.SourceProviderID
		r.Amount = offer.AmountReleased
		r.Installments = offer.InstallmentCount
		r.RateTable = offer.RateTableCode
		r.MonthlyRate = offer.MonthlyRate
	}
	return r
}
