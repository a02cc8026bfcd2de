package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/session"
)

// SessionSummary is one row of `funil session ls`.
type SessionSummary struct {
	ContactID string
	State     domain.State
	Name      string
	CPF       string
	Link      bool
}

// ListSessions loads every stored session. Sessions that disappear while
// listing are skipped.
func ListSessions(ctx context.Context, m *session.Manager) ([]SessionSummary, error) {
	ids, err := m.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)

	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		s, err := m.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}
		out = append(out, SessionSummary{
			ContactID: id,
			State:     s.State,
			Name:      s.DisplayName,
			CPF:       domain.MaskCPF(s.CPF),
			Link:      s.ProposalLink != "",
		})
	}
	return out, nil
}

// PrintSessions writes rows as an aligned table.
func PrintSessions(w io.Writer, rows []SessionSummary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTACT\tSTATE\tNAME\tCPF\tPROPOSAL")
	for _, r := range rows {
		state := string(r.State)
		if state == "" {
			state = "-"
		}
		proposal := "no"
		if r.Link {
			proposal = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ContactID, state, r.Name, r.CPF, proposal)
	}
	return tw.Flush()
}
