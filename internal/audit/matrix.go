package audit

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/modguard/internal/fsutil"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/parser"
)

// MatrixEntry is one row of the dependency matrix: a validation resource
// and the resources whose depends_on enforces it.
type MatrixEntry struct {
	Module     string   `json:"module"`
	Validation string   `json:"validation"`
	EnforcedBy []string `json:"enforcedBy"`
}

// Matrix is the generated report view over enforcement edges. It is
// derived from the graph on every run, never hand-maintained, so it can
// not drift from the modules it describes.
type Matrix struct {
	Entries []MatrixEntry `json:"entries"`
}

// BuildMatrix parses and graphs every module under root and collects the
// enforcement rows in deterministic order.
func BuildMatrix(ctx context.Context, root string) (*Matrix, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("audit root: %w", err)
	}
	dirs, err := fsutil.FindModuleDirs(root, ".tf")
	if err != nil {
		return nil, fmt.Errorf("discovering modules under %s: %w", root, err)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no module files found under %s", root)
	}

	matrix := &Matrix{}
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		mp := modulePath(root, dir)
		mod, _, err := parser.Parse(ctx, mp, dir)
		if err != nil {
			return nil, err
		}
		g, _ := graph.Build(ctx, mod)

		for _, v := range mod.Validations() {
			entry := MatrixEntry{Module: mp, Validation: v.Addr.String()}
			for _, from := range g.IncomingEnforcement(v.Addr) {
				entry.EnforcedBy = append(entry.EnforcedBy, from.String())
			}
			matrix.Entries = append(matrix.Entries, entry)
		}
	}
	return matrix, nil
}
