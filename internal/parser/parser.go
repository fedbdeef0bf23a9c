// Package parser turns the configuration files of one module into the
// typed model defined in the module package. Parsing is a pure function of
// the file contents: no evaluation, no filesystem writes, no state shared
// between invocations.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/modguard/internal/addr"
	"github.com/vk/modguard/internal/ctxlog"
	"github.com/vk/modguard/internal/expr"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/module"
)

// Parse reads every .tf file directly inside dir and builds the module
// model. A file that fails to parse contributes one parse-error finding
// and is skipped; the rest of the module is still processed. A file that
// cannot be read at all is an I/O error and fails the call, since partial
// reads would make the report lie about what was audited.
func Parse(ctx context.Context, modulePath, dir string) (*module.Module, []finding.Finding, error) {
	logger := ctxlog.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading module directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".tf" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	mod := &module.Module{Path: modulePath, Files: files}
	var findings []finding.Finding

	hclParser := hclparse.NewParser()
	for _, name := range files {
		fullPath := filepath.Join(dir, name)
		src, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", fullPath, err)
		}

		file, diags := hclParser.ParseHCL(src, fullPath)
		if diags.HasErrors() {
			logger.Debug("Skipping unparseable file.", "file", fullPath, "error", diags.Error())
			findings = append(findings, parseErrorFinding(modulePath, fullPath, diags))
			continue
		}

		body, ok := file.Body.(*hclsyntax.Body)
		if !ok {
			findings = append(findings, finding.Finding{
				Severity: finding.SeverityError,
				RuleID:   finding.RuleParseError,
				Module:   modulePath,
				Message:  fmt.Sprintf("file %s is not native HCL syntax", name),
				Location: finding.Location{File: fullPath, Line: 1, Column: 1},
			})
			continue
		}

		parseBody(body, mod)
	}

	logger.Debug("Module parsed.",
		"module", modulePath,
		"files", len(files),
		"blocks", len(mod.Blocks),
	)
	return mod, findings, nil
}

// parseErrorFinding converts parse diagnostics into a single finding
// located at the first errored position in the file.
func parseErrorFinding(modulePath, file string, diags hcl.Diagnostics) finding.Finding {
	loc := finding.Location{File: file, Line: 1, Column: 1}
	for _, diag := range diags {
		if diag.Severity == hcl.DiagError && diag.Subject != nil {
			loc = finding.LocationFromRange(*diag.Subject)
			break
		}
	}
	return finding.Finding{
		Severity: finding.SeverityError,
		RuleID:   finding.RuleParseError,
		Module:   modulePath,
		Message:  fmt.Sprintf("file skipped: %s", diags.Error()),
		Location: loc,
	}
}

// parseBody walks the top-level blocks of one file into the module model.
func parseBody(body *hclsyntax.Body, mod *module.Module) {
	for _, block := range body.Blocks {
		switch block.Type {
		case "resource", "data":
			if len(block.Labels) != 2 {
				mod.Blocks = append(mod.Blocks, opaqueBlock(block))
				continue
			}
			mod.Blocks = append(mod.Blocks, parseResourceBlock(block))

		case "variable":
			// Input declarations provision nothing and carry no checked
			// expressions.

		case "locals":
			for _, attr := range orderedAttributes(block.Body) {
				mod.LocalDefs = append(mod.LocalDefs, module.Attribute{
					Name:     attr.Name,
					Value:    expr.Translate(attr.Expr),
					SrcRange: attr.SrcRange,
				})
			}

		default:
			// Unknown block kinds pass through untyped so a new resource
			// kind never aborts the audit.
			mod.Blocks = append(mod.Blocks, opaqueBlock(block))
		}
	}
}

// parseResourceBlock builds a typed ResourceBlock from a resource or data
// block with the expected two labels.
func parseResourceBlock(block *hclsyntax.Block) *module.ResourceBlock {
	out := &module.ResourceBlock{
		Addr:       addr.Resource{Type: block.Labels[0], Name: block.Labels[1]},
		DataSource: block.Type == "data",
		DeclRange:  block.DefRange(),
	}

	for _, attr := range orderedAttributes(block.Body) {
		if attr.Name == "depends_on" {
			out.DependsOn = parseDependsOn(attr.Expr)
			continue
		}
		out.Attributes = append(out.Attributes, module.Attribute{
			Name:     attr.Name,
			Value:    expr.Translate(attr.Expr),
			SrcRange: attr.SrcRange,
		})
	}

	for _, inner := range block.Body.Blocks {
		if inner.Type == "lifecycle" {
			out.Preconditions = append(out.Preconditions, parsePreconditions(inner.Body)...)
			continue
		}
		// Attributes of other nested blocks still matter to the hygiene
		// checkers, so they are flattened in under a dotted name.
		collectNestedAttributes(inner, inner.Type, out)
	}

	return out
}

// parsePreconditions extracts precondition blocks from a lifecycle body.
func parsePreconditions(body *hclsyntax.Body) []module.Precondition {
	var out []module.Precondition
	for _, block := range body.Blocks {
		if block.Type != "precondition" {
			continue
		}
		pre := module.Precondition{DeclRange: block.DefRange()}
		if attr, ok := block.Body.Attributes["condition"]; ok {
			pre.Condition = expr.Translate(attr.Expr)
		}
		if attr, ok := block.Body.Attributes["error_message"]; ok {
			pre.ErrorMessage = expr.Translate(attr.Expr)
		}
		out = append(out, pre)
	}
	return out
}

// collectNestedAttributes flattens the attributes of a nested block (and
// its own children) into the resource block under dotted names.
func collectNestedAttributes(block *hclsyntax.Block, prefix string, out *module.ResourceBlock) {
	for _, attr := range orderedAttributes(block.Body) {
		out.Attributes = append(out.Attributes, module.Attribute{
			Name:     prefix + "." + attr.Name,
			Value:    expr.Translate(attr.Expr),
			SrcRange: attr.SrcRange,
		})
	}
	for _, inner := range block.Body.Blocks {
		collectNestedAttributes(inner, prefix+"."+inner.Type, out)
	}
}

// parseDependsOn resolves the depends_on tuple into references. Entries
// that are not plain traversals are ignored; HCL itself rejects most such
// shapes before we get here.
func parseDependsOn(e hclsyntax.Expression) []*expr.Reference {
	tuple, ok := e.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil
	}
	var refs []*expr.Reference
	for _, el := range tuple.Exprs {
		traversal, diags := hcl.AbsTraversalForExpr(el)
		if diags.HasErrors() {
			continue
		}
		refs = append(refs, expr.ReferenceFromTraversal(traversal))
	}
	return refs
}

// opaqueBlock wraps a block of unknown kind. Its address reuses the block
// type plus first label when present, which keeps report locations useful
// without pretending we understood the body.
func opaqueBlock(block *hclsyntax.Block) *module.ResourceBlock {
	name := ""
	if len(block.Labels) > 0 {
		name = block.Labels[0]
	}
	return &module.ResourceBlock{
		Addr:      addr.Resource{Type: block.Type, Name: name},
		Opaque:    true,
		DeclRange: block.DefRange(),
	}
}

// orderedAttributes returns a body's attributes in source order. The
// hclsyntax body stores them as a map, and map iteration order would leak
// nondeterminism into every downstream report.
func orderedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}
