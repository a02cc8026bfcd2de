package dialogue

import (
	"regexp"
	"strings"

	"github.com/aretw0/funil/pkg/domain"
)

var (
	branchPattern  = regexp.MustCompile(`^\d{4}`)
	accountPattern = regexp.MustCompile(`^\d{9,12}`)
	bankPattern    = regexp.MustCompile(`^\d{1,3}$`)
)

// ParseBanking reads "type, bank, branch, account" as typed by the user,
// e.g. "corrente, nubank, 0001, 123456789". The account keeps its check
// digit as the last character.
func ParseBanking(text string) (*domain.BankingDetails, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(text)), ",")
	if len(parts) != 4 {
		return nil, &domain.ValidationError{Field: "banking", Reason: "expected type, bank, branch and account separated by commas"}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	d := &domain.BankingDetails{Source: domain.BankingFromUser}

	switch {
	case strings.Contains(parts[0], "corrente"):
		d.AccountType = "CONTA_CORRENTE"
	case strings.Contains(parts[0], "poupan"):
		d.AccountType = "CONTA_POUPANCA"
	default:
		return nil, &domain.ValidationError{Field: "accountType", Reason: "expected corrente or poupança"}
	}

	switch {
	case parts[1] == "nubank":
		d.BankCode = nubankCode
	case bankPattern.MatchString(parts[1]):
		d.BankCode = parts[1]
	default:
		return nil, &domain.ValidationError{Field: "bank", Reason: "expected a bank code"}
	}

	if !branchPattern.MatchString(parts[2]) {
		return nil, &domain.ValidationError{Field: "branch", Reason: "expected at least 4 digits"}
	}
	d.Branch = domain.DigitsOnly(parts[2])

	if !accountPattern.MatchString(parts[3]) {
		return nil, &domain.ValidationError{Field: "account", Reason: "expected 9 to 12 digits"}
	}
	d.Account = domain.DigitsOnly(parts[3])

	return d, nil
}

func displayAccountType(t string) string {
	return strings.ReplaceAll(t, "_", " ")
}
