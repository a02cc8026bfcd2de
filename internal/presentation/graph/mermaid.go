// Package graph renders the dialogue transition table as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/pkg/domain"
)

// Overlay marks a contact's position on the graph.
type Overlay struct {
	Current domain.State
}

// terminal states hand the contact over to a person or finish the funnel.
var terminal = map[domain.State]bool{
	domain.StatePayrollSimulationConfirmed: true,
	domain.StateMakeAnticipation:           true,
}

// GenerateMermaid produces a flowchart of edges. Shapes:
// - INITIAL: ((Circle))
// - states that end a conversation: [[Subroutine]]
// - states waiting for typed data: [/Parallelogram/]
// - others: [Rectangle]
// Parallel edges between the same states are merged into one label.
func GenerateMermaid(edges []dialogue.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := map[domain.State]bool{}
	node := func(s domain.State) {
		if seen[s] {
			return
		}
		seen[s] = true
		opener, closer := "[", "]"
		switch {
		case s == domain.StateInitial:
			opener, closer = "((", "))"
		case terminal[s]:
			opener, closer = "[[", "]]"
		case s == domain.StateCollectBankingDetails || s == domain.StateFGTSAnticipation:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(s), opener, s, closer)
	}

	type pair struct{ from, to domain.State }
	var order []pair
	labels := map[pair][]string{}
	for _, e := range edges {
		node(e.From)
		node(e.To)
		p := pair{e.From, e.To}
		if _, ok := labels[p]; !ok {
			order = append(order, p)
		}
		labels[p] = append(labels[p], e.Handler)
	}

	for _, p := range order {
		arrow := fmt.Sprintf("-- \"%s\" -->", strings.Join(labels[p], " / "))
		if p.from == p.to {
			arrow = fmt.Sprintf("-. \"%s\" .->", strings.Join(labels[p], " / "))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(p.from), arrow, sanitizeMermaidID(p.to))
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
	}

	return sb.String()
}

func sanitizeMermaidID(s domain.State) string {
	return strings.ToLower(strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(string(s)))
}
