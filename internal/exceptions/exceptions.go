// Package exceptions loads the enforcement exception allow-list. A module
// on the list is still parsed and graphed; only the absence of enforcement
// edges is downgraded from error to info, with the documented reason
// echoed in the finding.
package exceptions

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up at the audit root when no explicit
// exceptions file is given.
const DefaultFileName = ".modguard.yaml"

// Entry allows one module to lack enforcement edges. The reason is
// mandatory: an exception nobody can explain is just a dead validation
// with paperwork.
type Entry struct {
	Module string `yaml:"module"`
	Reason string `yaml:"reason"`
}

// List is the parsed allow-list.
type List struct {
	Exceptions []Entry `yaml:"exceptions"`
}

// Load reads and validates an exceptions file.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading exceptions file: %w", err)
	}
	var list List
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing exceptions file %s: %w", path, err)
	}
	for i, e := range list.Exceptions {
		if e.Module == "" {
			return nil, fmt.Errorf("exceptions file %s: entry %d has no module", path, i+1)
		}
		if e.Reason == "" {
			return nil, fmt.Errorf("exceptions file %s: module %q has no documented reason", path, e.Module)
		}
	}
	return &list, nil
}

// LoadDefault loads the default exceptions file from the audit root if it
// exists, and returns an empty list otherwise.
func LoadDefault(root string) (*List, error) {
	path := filepath.Join(root, DefaultFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &List{}, nil
	}
	return Load(path)
}

// Reason returns the documented reason for a module, if it is listed.
func (l *List) Reason(modulePath string) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, e := range l.Exceptions {
		if e.Module == modulePath {
			return e.Reason, true
		}
	}
	return "", false
}
