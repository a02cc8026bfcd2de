package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Comparer runs a rate comparison.
type Comparer interface {
	Compare(ctx context.Context, cpf string) (rates.Outcome, error)
}

// Simulate compares both providers for cpf and writes the outcome to w as
// YAML, or JSON when asJSON is set.
func Simulate(ctx context.Context, c Comparer, cpf string, w io.Writer, asJSON bool) error {
	cpf, err := domain.ParseCPF(cpf)
	if err != nil {
		return err
	}
	out, err := c.Compare(ctx, cpf)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	report := out.Report(cpf)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(report)
}
