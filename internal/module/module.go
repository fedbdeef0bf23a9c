// Package module defines the format-agnostic representation of a parsed
// source module: its resource blocks, their attributes and dependencies,
// and the validation preconditions attached to them.
//
// Most fields hold translated expressions rather than concrete Go values.
// The auditor never evaluates configuration; it reasons about the shape of
// what the user wrote, so the model captures intent, not results.
package module

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/modguard/internal/addr"
	"github.com/vk/modguard/internal/expr"
)

// Module is one audit unit: a directory of configuration files.
type Module struct {
	// Path identifies the module, relative to the audit root, always in
	// slash form for cross-platform report stability.
	Path string

	// Files lists the files that were parsed, in sorted order.
	Files []string

	// Blocks holds every resource-shaped block found in the module, in
	// file-then-source order.
	Blocks []*ResourceBlock

	// LocalDefs holds the definitions from locals blocks, so hygiene
	// checkers see expressions that never reach a resource attribute.
	LocalDefs []Attribute
}

// Attribute is one named attribute of a resource block, kept in source
// order so semantically identical files compare equal regardless of
// comments and whitespace.
type Attribute struct {
	Name     string
	Value    *expr.Expression
	SrcRange hcl.Range
}

// ResourceBlock is a single resource or data block. Blocks of kinds the
// parser does not understand are carried through as opaque so a newly
// introduced block type never aborts an audit.
type ResourceBlock struct {
	Addr addr.Resource

	// DataSource marks blocks declared with the `data` keyword.
	DataSource bool

	// Opaque marks blocks of unknown kind; their attributes are not
	// parsed and they are excluded from enforcement accounting.
	Opaque bool

	Attributes []Attribute

	// DependsOn holds the references listed in the block's depends_on
	// meta-argument, in source order.
	DependsOn []*expr.Reference

	// Preconditions are the lifecycle preconditions declared inside the
	// block, in source order.
	Preconditions []Precondition

	DeclRange hcl.Range
}

// Precondition is one condition gating provisioning, with the error
// message template shown when it fails.
type Precondition struct {
	Condition    *expr.Expression
	ErrorMessage *expr.Expression
	DeclRange    hcl.Range
}

// validationTypes are the block types conventionally used to hold
// business-rule validations.
var validationTypes = map[string]bool{
	"terraform_data": true,
	"null_resource":  true,
}

// IsValidation reports whether the block is a validation resource: a
// terraform_data or null_resource block whose local name follows the
// *_validation(s) convention.
func (b *ResourceBlock) IsValidation() bool {
	if b.Opaque || !validationTypes[b.Addr.Type] {
		return false
	}
	return strings.HasSuffix(b.Addr.Name, "_validation") || strings.HasSuffix(b.Addr.Name, "_validations")
}

// Validations returns the module's validation blocks, in source order.
func (m *Module) Validations() []*ResourceBlock {
	var out []*ResourceBlock
	for _, b := range m.Blocks {
		if b.IsValidation() {
			out = append(out, b)
		}
	}
	return out
}

// MainResources returns the non-validation, non-opaque blocks: the
// resources that actually provision something and therefore must be gated.
func (m *Module) MainResources() []*ResourceBlock {
	var out []*ResourceBlock
	for _, b := range m.Blocks {
		if !b.Opaque && !b.IsValidation() {
			out = append(out, b)
		}
	}
	return out
}

// Block looks up a block by address.
func (m *Module) Block(a addr.Resource) *ResourceBlock {
	for _, b := range m.Blocks {
		if b.Addr == a {
			return b
		}
	}
	return nil
}
