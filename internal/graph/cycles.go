package graph

import (
	"fmt"
	"strings"

	"github.com/vk/modguard/internal/addr"
	"github.com/vk/modguard/internal/finding"
)

// detectCycles runs a depth-first search with temporary and permanent
// visited sets, O(nodes+edges). Each cycle contributes one info finding:
// cycles are unusual in declarative modules but not necessarily wrong, so
// they never abort the traversal.
func (g *Graph) detectCycles(modulePath string) []finding.Finding {
	permanent := make(map[addr.Resource]bool)
	temporary := make(map[addr.Resource]bool)
	var findings []finding.Finding

	var visit func(n *Node, trail []addr.Resource)
	visit = func(n *Node, trail []addr.Resource) {
		if permanent[n.Addr] {
			return
		}
		if temporary[n.Addr] {
			findings = append(findings, cycleFinding(modulePath, n, trail))
			return
		}

		temporary[n.Addr] = true
		for _, next := range sortedOut(n) {
			visit(g.Nodes[next], append(trail, n.Addr))
		}
		delete(temporary, n.Addr)
		permanent[n.Addr] = true
	}

	for _, a := range g.sortedNodes() {
		if !permanent[a] {
			visit(g.Nodes[a], nil)
		}
	}
	return findings
}

// cycleFinding formats the portion of the trail that loops back to n.
func cycleFinding(modulePath string, n *Node, trail []addr.Resource) finding.Finding {
	var parts []string
	seen := false
	for _, a := range trail {
		if a == n.Addr {
			seen = true
		}
		if seen {
			parts = append(parts, a.String())
		}
	}
	parts = append(parts, n.Addr.String())

	return finding.Finding{
		Severity: finding.SeverityInfo,
		RuleID:   finding.RuleReferenceCycle,
		Module:   modulePath,
		Resource: n.Addr.String(),
		Message:  fmt.Sprintf("reference cycle: %s", strings.Join(parts, " -> ")),
		Location: finding.LocationFromRange(n.Block.DeclRange),
	}
}

// sortedNodes returns all node addresses in deterministic order.
func (g *Graph) sortedNodes() []addr.Resource {
	out := make([]addr.Resource, 0, len(g.Nodes))
	for a := range g.Nodes {
		out = append(out, a)
	}
	sortAddrs(out)
	return out
}

func sortedOut(n *Node) []addr.Resource {
	out := make([]addr.Resource, 0, len(n.Out))
	for a := range n.Out {
		out = append(out, a)
	}
	sortAddrs(out)
	return out
}
