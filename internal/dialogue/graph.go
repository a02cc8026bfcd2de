package dialogue

import (
	"github.com/aretw0/funil/pkg/domain"
)

// Edge is one move the transition table can make.
type Edge struct {
	From    domain.State
	Handler string
	To      domain.State
}

// Edges lists every move in domain.States order. A handler that may leave
// the state unchanged yields a self edge. The reset command, which reaches
// the menu from anywhere, is not listed.
func Edges() []Edge {
	table := (&Engine{}).transitions()

	var edges []Edge
	for _, from := range domain.States {
		for _, r := range table[from] {
			for _, target := range r.to {
				if target == stay {
					target = from
				}
				edges = append(edges, Edge{From: from, Handler: r.name, To: target})
			}
		}
	}
	return edges
}
