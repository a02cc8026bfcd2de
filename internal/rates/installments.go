package rates

import (
	"fmt"
	"strings"

	"github.com/aretw0/funil/internal/providers"
)

const (
	// InstallmentFloor is the smallest period value that still counts.
	InstallmentFloor = 5.0
	// MaxPeriods is how many yearly withdrawals can be anticipated.
	MaxPeriods = 10

	// FactaRate is the monthly rate quoted to provider B.
	FactaRate = "1.8"
	// FactaQuoteTable is the table used to price every provider B quote.
	FactaQuoteTable = "60151"
)

// NormalizeInstallments zeroes every valor_N below InstallmentFloor.
// Other keys are copied unchanged.
func NormalizeInstallments(retorno map[string]any) map[string]any {
	out := make(map[string]any, len(retorno))
	for k, v := range retorno {
		if strings.HasPrefix(k, "valor_") {
			if f, err := providers.ToFloat(v); err != nil || f < InstallmentFloor {
				out[k] = "0"
				continue
			}
		}
		out[k] = v
	}
	return out
}

// InstallmentPlan lists the dataRepasse_N/valor_N pairs, N in 1..MaxPeriods,
// skipping periods where either value is missing.
func InstallmentPlan(normalized map[string]any) []map[string]any {
	plan := make([]map[string]any, 0, MaxPeriods)
	for i := 1; i <= MaxPeriods; i++ {
		dateKey := fmt.Sprintf("dataRepasse_%d", i)
		valueKey := fmt.Sprintf("valor_%d", i)
		date, okDate := normalized[dateKey]
		value, okValue := normalized[valueKey]
		if !okDate || !okValue || date == nil || value == nil {
			continue
		}
		plan = append(plan, map[string]any{dateKey: date, valueKey: value})
	}
	return plan
}

// CountInstallments is the number of valor_N strictly above InstallmentFloor.
func CountInstallments(normalized map[string]any) int {
	n := 0
	for k, v := range normalized {
		if !strings.HasPrefix(k, "valor_") {
			continue
		}
		if f, err := providers.ToFloat(v); err == nil && f > InstallmentFloor {
			n++
		}
	}
	return n
}

// RateTable picks the provider B table for the released amount.
func RateTable(amount float64) string {
	switch {
	case amount < 100:
		return "60151"
	case amount < 900:
		return "60119"
	default:
		return "53694"
	}
}
