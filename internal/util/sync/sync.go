// Copyright 2025 The Footing Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sync merges forward template changes into a project's git
// history. It orchestrates resolve, history import, merge and lineage
// update, and also hosts the switch variant that re-roots a project onto
// an unrelated template.
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/branch"
	"github.com/footing-dev/footing/internal/util/drift"
	"github.com/footing-dev/footing/internal/util/resolve"
	"github.com/footing-dev/footing/internal/util/synthetic"
	"github.com/footing-dev/footing/pkg/printer"
)

// State names a position in the sync state machine. LineageUpdated and
// UpToDate are success terminals; Conflicted is a terminal that leaves the
// update branch checked out with conflict markers and does not update the
// lineage record.
type State int

const (
	Idle State = iota
	Resolving
	UpToDate
	BuildingHistory
	Merging
	LineageUpdated
	Conflicted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case UpToDate:
		return "up-to-date"
	case BuildingHistory:
		return "building-history"
	case Merging:
		return "merging"
	case LineageUpdated:
		return "lineage-updated"
	case Conflicted:
		return "conflicted"
	}
	return "unknown"
}

// Result reports the outcome of a sync or switch.
type Result struct {
	// UpToDate is true if the project already carried the template's
	// current revision.
	UpToDate bool

	// MergedRevision is the template revision merged into the update
	// branch. Empty when up to date or conflicted.
	MergedRevision string

	// Conflicts lists the paths left with conflict markers. Non-empty
	// only in the Conflicted terminal.
	Conflicts []string

	// ChangedPaths lists what the pending template changes would touch.
	// Populated only by check-only runs that found drift.
	ChangedPaths []string
}

// Command syncs a project with its template's current revision.
type Command struct {
	// Path is the project repository root.
	Path types.UniquePath

	// CheckOnly stops after drift detection. This path never builds
	// history, branches or lineage updates, which makes it safe for
	// automated gating.
	CheckOnly bool

	// Resolver resolves template revisions. A zero resolver is used when
	// nil.
	Resolver *resolve.Resolver

	// state tracks the engine's progress through the state machine.
	state State
}

// State returns the state the engine stopped in.
func (c *Command) State() State {
	return c.state
}

// Run executes the sync.
func (c *Command) Run(ctx context.Context) (*Result, error) {
	const op errors.Op = "sync.Run"
	pr := printer.FromContextOrDie(ctx)
	if c.Resolver == nil {
		c.Resolver = &resolve.Resolver{}
	}

	c.state = Resolving
	if c.CheckOnly {
		// A stale update branch means a prior sync was never resolved;
		// reporting it as mere drift would hide that, so it is an error.
		exists, err := branch.Exists(ctx, c.Path)
		if err != nil {
			return nil, errors.E(op, c.Path, err)
		}
		if exists {
			return nil, errors.E(op, c.Path, errors.UpdateInProgress, fmt.Errorf(
				"update branch %q exists; resolve or clean it before checking", branch.UpdateBranch))
		}
		checker := &drift.Checker{Path: c.Path, Resolver: c.Resolver}
		report, err := checker.Check(ctx)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if report.Current {
			c.state = UpToDate
			return &Result{UpToDate: true}, nil
		}
		return &Result{ChangedPaths: report.Changes.AllPaths()}, nil
	}

	l, err := lineage.Load(c.Path)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	pr.Printf("Resolving %s\n", l.Template)
	current, err := c.Resolver.Current(ctx, l.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	applied := resolve.Applied(l)

	if current == applied {
		c.state = UpToDate
		pr.Printf("Project is up to date with template revision %.12s\n", applied)
		return &Result{UpToDate: true}, nil
	}

	exists, err := branch.Exists(ctx, c.Path)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if exists {
		return nil, errors.E(op, c.Path, errors.UpdateInProgress, fmt.Errorf(
			"update branch %q already exists; run clean first", branch.UpdateBranch))
	}

	c.state = BuildingHistory
	repo, err := c.Resolver.Repo(ctx, l.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	builder := &synthetic.Builder{
		Path:    c.Path,
		Repo:    repo,
		Context: l.Context,
	}

	if err := builder.VerifyAncestry(ctx, applied, current); err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	// A project cloned without the dedicated ref has no imported history
	// yet; bring it up to the applied revision before appending.
	imported, err := builder.Exists(ctx)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if !imported {
		pr.Printf("Importing template history up to %.12s\n", applied)
		if _, err := builder.Import(ctx, synthetic.RootImport, "", applied); err != nil {
			return nil, errors.E(op, c.Path, err)
		}
	}

	pr.Printf("Importing template revisions %.12s..%.12s\n", applied, current)
	target, err := builder.Import(ctx, synthetic.Incremental, applied, current)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	c.state = Merging
	if err := branch.CreateAndCheckout(ctx, c.Path); err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	anchor, _, err := builder.CommitFor(ctx, applied)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if err := c.ensureAncestor(ctx, anchor, target); err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	conflicts, err := merge(ctx, c.Path, target,
		fmt.Sprintf("Merge template revision %.12s", current), false)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if len(conflicts) > 0 {
		c.state = Conflicted
		pr.Printf("Merge of template revision %.12s has conflicts in %d file(s)\n", current, len(conflicts))
		return &Result{Conflicts: conflicts}, nil
	}

	l.AppliedRevision = current
	if err := lineage.Save(c.Path, l); err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if err := commitLineage(ctx, c.Path); err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	c.state = LineageUpdated
	pr.Printf("Merged template revision %.12s; review branch %q\n", current, branch.UpdateBranch)
	return &Result{MergedRevision: current}, nil
}

// ensureAncestor grafts the imported history into the project's ancestry
// the first time a project syncs: an ours-merge of the anchor commit adds
// no content but establishes the merge base for this and every future
// sync.
func (c *Command) ensureAncestor(ctx context.Context, anchor, target string) error {
	const op errors.Op = "sync.ensureAncestor"
	runner, err := gitutil.NewLocalGitRunner(c.Path.String())
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "merge-base", "HEAD", target); err == nil {
		return nil
	}
	if anchor == "" {
		return errors.E(op, errors.Internal,
			fmt.Errorf("no imported commit found for the applied revision"))
	}
	if _, err := runner.Run(ctx, "merge", "-s", "ours", "--allow-unrelated-histories",
		"-m", "Anchor template ancestry", anchor); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// commitLineage folds the lineage update into the merge commit at HEAD so
// the update branch is self-contained for review.
func commitLineage(ctx context.Context, path types.UniquePath) error {
	const op errors.Op = "sync.commitLineage"
	runner, err := gitutil.NewLocalGitRunner(path.String())
	if err != nil {
		return errors.E(op, path, err)
	}
	if _, err := runner.Run(ctx, "add", lineage.FileName); err != nil {
		return errors.E(op, path, err)
	}
	if _, err := runner.Run(ctx, "commit", "--amend", "--no-edit"); err != nil {
		return errors.E(op, path, err)
	}
	return nil
}

// merge merges the target commit into the current branch. It returns the
// conflicting paths when the three-way merge stops with conflicts, leaving
// the markers in place for manual resolution. Merge failures that produce
// no conflicts are aborted and surfaced as errors, leaving the repository
// unchanged.
func merge(ctx context.Context, path types.UniquePath, target, message string, unrelated bool) ([]string, error) {
	const op errors.Op = "sync.merge"
	runner, err := gitutil.NewLocalGitRunner(path.String())
	if err != nil {
		return nil, errors.E(op, path, err)
	}

	args := []string{"merge", "--no-ff"}
	if unrelated {
		args = append(args, "--allow-unrelated-histories")
	}
	args = append(args, "-m", message, target)
	if _, err := runner.Run(ctx, args...); err != nil {
		conflicts, listErr := conflictPaths(ctx, runner)
		if listErr != nil {
			return nil, errors.E(op, path, listErr)
		}
		if len(conflicts) > 0 {
			return conflicts, nil
		}
		_, _ = runner.Run(ctx, "merge", "--abort")
		return nil, errors.E(op, path, err)
	}
	return nil, nil
}

func conflictPaths(ctx context.Context, runner *gitutil.GitLocalRunner) ([]string, error) {
	rr, err := runner.Run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(rr.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}
