// Package audit orchestrates an end-to-end run: module discovery, a
// bounded worker pool over independent modules, and the single
// aggregation point that merges per-module findings into one
// deterministic report.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/modguard/internal/ctxlog"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/fsutil"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/parser"
	"github.com/vk/modguard/internal/rules"
)

// Options configures one audit run.
type Options struct {
	// Root is the directory the module tree is discovered under.
	Root string

	// Checkers are evaluated per module, in order.
	Checkers []rules.Checker

	// Workers bounds the pool; values below 1 fall back to the default.
	Workers int

	// GraphDiagnostics includes structural findings (dangling
	// references, cycles) in the report, as the combined CI run does.
	GraphDiagnostics bool
}

// DefaultWorkers is the pool size when the flag is not set.
const DefaultWorkers = 8

// Result is the aggregated outcome of a run.
type Result struct {
	// Findings is sorted with finding.Sort before Run returns.
	Findings []finding.Finding

	// Modules counts the modules that were dispatched.
	Modules int

	// Incomplete lists modules that were cancelled before finishing, in
	// sorted order. They also appear as audit-incomplete findings.
	Incomplete []string
}

// moduleResult travels from a worker to the aggregation point. Workers
// share nothing mutable; message passing is the only coordination. A
// non-nil err marks an unreadable module and is fatal for the whole run.
type moduleResult struct {
	path       string
	findings   []finding.Finding
	incomplete bool
	err        error
}

// Run executes the audit. It fails outright only for input errors: a
// missing root, a tree with no module files at all, or a module file the
// tool cannot read.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("audit root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("audit root %s is not a directory", opts.Root)
	}

	dirs, err := fsutil.FindModuleDirs(opts.Root, ".tf")
	if err != nil {
		return nil, fmt.Errorf("discovering modules under %s: %w", opts.Root, err)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no module files found under %s", opts.Root)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if workers > len(dirs) {
		workers = len(dirs)
	}
	logger.Debug("Dispatching modules.", "modules", len(dirs), "workers", workers)

	// Cancelled on every return path so a fatal result also winds down
	// the dispatcher and any idle workers.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	// Buffered so cancelled runs never strand a worker on a send the
	// aggregator has stopped reading.
	results := make(chan moduleResult, len(dirs))

	for i := 0; i < workers; i++ {
		go worker(ctx, opts, jobs, results)
	}
	go func() {
		defer close(jobs)
		for _, dir := range dirs {
			select {
			case jobs <- dir:
			case <-ctx.Done():
				return
			}
		}
	}()

	res, err := collect(ctx, opts.Root, dirs, results)
	if err != nil {
		return nil, err
	}

	sort.Strings(res.Incomplete)
	finding.Sort(res.Findings)
	logger.Debug("Audit complete.", "findings", len(res.Findings), "incomplete", len(res.Incomplete))
	return res, nil
}

// collect is the aggregation point: the only place results are combined.
// An unreadable module fails the whole run; a partial report must never
// pass itself off as authoritative over input the tool could not read.
func collect(ctx context.Context, root string, dirs []string, results <-chan moduleResult) (*Result, error) {
	res := &Result{Modules: len(dirs)}
	seen := make(map[string]bool)

	record := func(r moduleResult) error {
		if r.err != nil {
			return fmt.Errorf("auditing %s: %w", modulePath(root, r.path), r.err)
		}
		seen[r.path] = true
		if r.incomplete {
			res.Incomplete = append(res.Incomplete, modulePath(root, r.path))
		}
		res.Findings = append(res.Findings, r.findings...)
		return nil
	}

	for len(seen) < len(dirs) {
		select {
		case r := <-results:
			if err := record(r); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			// Finished modules may already sit in the buffer; keep their
			// results instead of declaring them incomplete.
			for drained := false; !drained; {
				select {
				case r := <-results:
					if err := record(r); err != nil {
						return nil, err
					}
				default:
					drained = true
				}
			}
			// Workers blocked on undelivered jobs will never report;
			// account for every module we have not heard from.
			for _, dir := range dirs {
				if !seen[dir] {
					seen[dir] = true
					mp := modulePath(root, dir)
					res.Incomplete = append(res.Incomplete, mp)
					res.Findings = append(res.Findings, incompleteFinding(mp, ctx.Err()))
				}
			}
		}
	}
	return res, nil
}

// worker processes modules until the jobs channel closes. Each module is
// parsed, graphed and checked in isolation.
func worker(ctx context.Context, opts Options, jobs <-chan string, results chan<- moduleResult) {
	for dir := range jobs {
		mp := modulePath(opts.Root, dir)

		if ctx.Err() != nil {
			results <- moduleResult{path: dir, findings: []finding.Finding{incompleteFinding(mp, ctx.Err())}, incomplete: true}
			continue
		}

		results <- auditModule(ctx, opts, dir, mp)
	}
}

// auditModule runs the full per-module pipeline. Malformed content is a
// parse-error finding, but a file the tool cannot read at all is an input
// error that invalidates the run.
func auditModule(ctx context.Context, opts Options, dir, mp string) moduleResult {
	logger := ctxlog.FromContext(ctx).With("module", mp)

	mod, parseFindings, err := parser.Parse(ctx, mp, dir)
	if err != nil {
		logger.Error("Module could not be read.", "error", err)
		return moduleResult{path: dir, err: err}
	}

	out := parseFindings
	g, graphFindings := graph.Build(ctx, mod)
	if opts.GraphDiagnostics {
		out = append(out, graphFindings...)
	}

	for _, checker := range opts.Checkers {
		if ctx.Err() != nil {
			out = append(out, incompleteFinding(mp, ctx.Err()))
			return moduleResult{path: dir, findings: out, incomplete: true}
		}
		out = append(out, rules.Run(ctx, checker, mod, g)...)
	}

	return moduleResult{path: dir, findings: out}
}

func incompleteFinding(modulePath string, cause error) finding.Finding {
	return finding.Finding{
		Severity: finding.SeverityError,
		RuleID:   finding.RuleAuditIncomplete,
		Module:   modulePath,
		Message:  fmt.Sprintf("module was not fully audited: %v", cause),
	}
}

// modulePath converts an on-disk directory into the module identity used
// in reports: relative to the root, slash-separated.
func modulePath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}
