package rates_test

import (
	"testing"

	"github.com/aretw0/funil/internal/rates"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeInstallments(t *testing.T) {
	in := map[string]any{
		"valor_1":       3.0,
		"valor_2":       "7",
		"valor_3":       0.0,
		"valor_4":       "12.00",
		"valor_5":       "5",
		"valor_6":       "n/a",
		"dataRepasse_1": "2025-08-01",
	}

	out := rates.NormalizeInstallments(in)

	assert.Equal(t, "0", out["valor_1"])
	assert.Equal(t, "7", out["valor_2"])
	assert.Equal(t, "0", out["valor_3"])
	assert.Equal(t, "12.00", out["valor_4"])
	assert.Equal(t, "5", out["valor_5"], "the floor itself is kept")
	assert.Equal(t, "0", out["valor_6"])
	assert.Equal(t, "2025-08-01", out["dataRepasse_1"])
	assert.Equal(t, 3.0, in["valor_1"], "input must not be mutated")
}

func TestCountInstallments(t *testing.T) {
	normalized := rates.NormalizeInstallments(map[string]any{
		"valor_1": 3, "valor_2": 7, "valor_3": 0, "valor_4": 12,
	})
	assert.Equal(t, 2, rates.CountInstallments(normalized))

	assert.Equal(t, 0, rates.CountInstallments(map[string]any{"valor_1": "5"}), "strictly above the floor")
}

func TestInstallmentPlan_SkipsIncompletePeriods(t *testing.T) {
	plan := rates.InstallmentPlan(map[string]any{
		"dataRepasse_1": "2025-08-01", "valor_1": "100",
		"valor_2":       "50",
		"dataRepasse_3": "2027-08-01", "valor_3": "30",
		"dataRepasse_11": "2035-08-01", "valor_11": "30",
	})

	assert.Equal(t, []map[string]any{
		{"dataRepasse_1": "2025-08-01", "valor_1": "100"},
		{"dataRepasse_3": "2027-08-01", "valor_3": "30"},
	}, plan)
}

func TestRateTable(t *testing.T) {
	assert.Equal(t, "60151", rates.RateTable(0))
	assert.Equal(t, "60151", rates.RateTable(99.99))
	assert.Equal(t, "60119", rates.RateTable(100))
	assert.Equal(t, "60119", rates.RateTable(899.99))
	assert.Equal(t, "53694", rates.RateTable(900))
}
