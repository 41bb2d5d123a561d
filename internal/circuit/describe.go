package circuit

import (
	"fmt"
	"strings"
)

// Describe renders the graph as one line per circuit with its successors,
// in registration order.
func Describe(g *Graph) string {
	var b strings.Builder
	b.WriteString("🔗 Circuit dependency graph:\n")
	for _, id := range g.order {
		next := "END"
		if n := g.nodes[id].Next; len(n) > 0 {
			next = strings.Join(n, ", ")
		}
		fmt.Fprintf(&b, "• %s → [%s]\n", id, next)
	}
	return b.String()
}
