// Package addr defines the address type used to identify resource blocks
// within a module. An address is unique within its module, never across
// modules; audit scoping always pairs an address with a module path.
package addr

import (
	"fmt"
	"strings"
)

// Resource identifies a single resource block by its type and local name,
// e.g. {"terraform_data", "db_business_validations"}.
type Resource struct {
	Type string
	Name string
}

// String returns the canonical "type.name" form of the address.
func (r Resource) String() string {
	return r.Type + "." + r.Name
}

// Parse converts a "type.name" string back into a Resource address.
func Parse(s string) (Resource, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Resource{}, fmt.Errorf("invalid resource address %q: want \"type.name\"", s)
	}
	return Resource{Type: parts[0], Name: parts[1]}, nil
}

// Less reports whether r sorts before other, for deterministic ordering.
func (r Resource) Less(other Resource) bool {
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.Name < other.Name
}
