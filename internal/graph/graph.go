// Package graph reconstructs the per-module resource dependency graph.
// Nodes are resource blocks keyed by address; edges come from the
// depends_on meta-argument (explicit) and from resource references inside
// attribute expressions (implicit). Only explicit edges count as
// enforcement: an expression reference orders evaluation but does not gate
// provisioning on a validation's outcome.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/modguard/internal/addr"
	"github.com/vk/modguard/internal/ctxlog"
	"github.com/vk/modguard/internal/expr"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/module"
)

// EdgeKind distinguishes how a dependency was declared.
type EdgeKind int

const (
	// EdgeImplicit is a dependency inferred from an expression reference.
	EdgeImplicit EdgeKind = iota
	// EdgeExplicit is a dependency declared in depends_on.
	EdgeExplicit
)

// Node is one vertex of the dependency graph.
type Node struct {
	Addr  addr.Resource
	Block *module.ResourceBlock

	// Out and In map neighbor addresses to the strongest declared edge
	// kind; an explicit edge always wins over an implicit one.
	Out map[addr.Resource]EdgeKind
	In  map[addr.Resource]EdgeKind
}

// Graph is the resolved dependency graph of a single module. It is built
// once per module, then only queried; no mutation after Build returns.
type Graph struct {
	Nodes map[addr.Resource]*Node
}

// Build resolves all references of the module into a graph. Unresolvable
// targets become dangling-reference findings, and cycles become
// reference-cycle findings; neither aborts construction.
func Build(ctx context.Context, mod *module.Module) (*Graph, []finding.Finding) {
	logger := ctxlog.FromContext(ctx)
	g := &Graph{Nodes: make(map[addr.Resource]*Node)}

	// First pass: one node per typed block.
	for _, block := range mod.Blocks {
		if block.Opaque {
			continue
		}
		g.Nodes[block.Addr] = &Node{
			Addr:  block.Addr,
			Block: block,
			Out:   make(map[addr.Resource]EdgeKind),
			In:    make(map[addr.Resource]EdgeKind),
		}
	}

	// Second pass: link explicit then implicit dependencies.
	var findings []finding.Finding
	for _, block := range mod.Blocks {
		if block.Opaque {
			continue
		}
		for _, ref := range block.DependsOn {
			findings = append(findings, g.link(mod, block, ref, EdgeExplicit)...)
		}
		for _, attr := range block.Attributes {
			for _, ref := range attr.Value.References() {
				findings = append(findings, g.link(mod, block, ref, EdgeImplicit)...)
			}
		}
	}

	findings = append(findings, g.detectCycles(mod.Path)...)

	logger.Debug("Graph built.", "module", mod.Path, "nodes", len(g.Nodes))
	return g, findings
}

// link adds one edge from block to the target of ref. References to
// values (var.*, local.*) are not dependencies and are skipped.
func (g *Graph) link(mod *module.Module, block *module.ResourceBlock, ref *expr.Reference, kind EdgeKind) []finding.Finding {
	typ, name, ok := ref.ResourceTarget()
	if !ok {
		return nil
	}
	target := addr.Resource{Type: typ, Name: name}
	if target == block.Addr {
		return nil
	}

	to, found := g.Nodes[target]
	if !found {
		return []finding.Finding{{
			Severity: finding.SeverityWarning,
			RuleID:   finding.RuleDanglingRef,
			Module:   mod.Path,
			Resource: block.Addr.String(),
			Message:  fmt.Sprintf("%s references %s, which does not exist in this module", block.Addr, target),
			Location: finding.LocationFromRange(ref.SrcRange),
		}}
	}

	from := g.Nodes[block.Addr]
	if existing, ok := from.Out[target]; !ok || kind > existing {
		from.Out[target] = kind
		to.In[block.Addr] = kind
	}
	return nil
}

// IncomingEnforcement returns the addresses of blocks with an explicit
// depends_on edge to v, sorted for determinism.
func (g *Graph) IncomingEnforcement(v addr.Resource) []addr.Resource {
	node, ok := g.Nodes[v]
	if !ok {
		return nil
	}
	var in []addr.Resource
	for from, kind := range node.In {
		if kind == EdgeExplicit {
			in = append(in, from)
		}
	}
	sortAddrs(in)
	return in
}

// MainResourcesWithoutEdgeTo returns the main (non-validation) resources
// lacking any edge to v, sorted for determinism.
func (g *Graph) MainResourcesWithoutEdgeTo(mod *module.Module, v addr.Resource) []addr.Resource {
	var out []addr.Resource
	for _, block := range mod.MainResources() {
		node, ok := g.Nodes[block.Addr]
		if !ok {
			continue
		}
		if _, linked := node.Out[v]; !linked {
			out = append(out, block.Addr)
		}
	}
	sortAddrs(out)
	return out
}

// UnreferencedValidations returns validation blocks with zero incoming
// edges of any kind, sorted for determinism.
func (g *Graph) UnreferencedValidations(mod *module.Module) []addr.Resource {
	var out []addr.Resource
	for _, block := range mod.Validations() {
		node, ok := g.Nodes[block.Addr]
		if !ok {
			continue
		}
		if len(node.In) == 0 {
			out = append(out, block.Addr)
		}
	}
	sortAddrs(out)
	return out
}

func sortAddrs(addrs []addr.Resource) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
}
