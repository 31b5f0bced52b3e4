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

// Package synthetic maintains a mirrored commit graph of the template
// inside the project repository. The mirrored commits hold the template
// rendered with the project's context and are parent-linked to reproduce
// the template's ancestry, anchored on a dedicated ref until merged. This
// gives git's three-way merge a valid common ancestor even though the
// project and template repositories have unrelated histories.
package synthetic

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/render"
)

const (
	// Ref anchors the imported template history inside the project
	// repository. It is deliberately outside refs/heads so it never shows
	// up as a branch and is only reachable through merges.
	Ref = "refs/footing/template"

	// RevisionTrailer is the commit message trailer mapping an imported
	// commit back to the template revision it mirrors.
	RevisionTrailer = "Footing-Template-Revision"
)

// Identity used for imported commits so the mirrored graph is stable
// across machines.
var commitEnv = []string{
	"GIT_AUTHOR_NAME=footing",
	"GIT_AUTHOR_EMAIL=footing@localhost",
	"GIT_COMMITTER_NAME=footing",
	"GIT_COMMITTER_EMAIL=footing@localhost",
}

// ImportMode selects how template history is brought into the project
// repository. The three modes are modelled explicitly so each can be
// exercised independently rather than relying on implicit merge-primitive
// behavior.
type ImportMode int

const (
	// RootImport imports the full template history up to the creation
	// revision and establishes it as the common ancestor for all future
	// merges. Used exactly once, when a project is first bound.
	RootImport ImportMode = iota

	// Incremental appends only the template commits newer than the
	// applied revision, preserving the template's own commit order.
	Incremental

	// ForcedUnrelated builds a single parentless commit for a new
	// template's current revision; the subsequent merge uses an
	// empty-tree merge base. Used by switch.
	ForcedUnrelated
)

func (m ImportMode) String() string {
	switch m {
	case RootImport:
		return "root-import"
	case Incremental:
		return "incremental"
	case ForcedUnrelated:
		return "forced-unrelated"
	}
	return "unknown"
}

// Builder imports template revisions into a project repository.
type Builder struct {
	// Path is the project repository root.
	Path types.UniquePath

	// Repo is the cached remote template repository.
	Repo *gitutil.GitTemplateRepo

	// Context is the ordered parameter set each imported revision is
	// rendered with.
	Context []lineage.Parameter
}

// VerifyAncestry fails with kind Diverged if applied is no longer an
// ancestor of current in the template's history. This happens when the
// template history was rewritten upstream; there is no automatic recovery.
func (b *Builder) VerifyAncestry(ctx context.Context, applied, current string) error {
	const op errors.Op = "synthetic.VerifyAncestry"
	if applied == current {
		return nil
	}
	if _, err := b.Repo.FetchRevisions(ctx, applied, current); err != nil {
		// The applied revision having vanished from the remote entirely is
		// the strongest form of divergence.
		return errors.E(op, b.Path, errors.Diverged, fmt.Errorf(
			"applied revision %s is no longer available from the template: %w", applied, err))
	}
	ok, err := b.Repo.IsAncestor(ctx, applied, current)
	if err != nil {
		return errors.E(op, b.Path, err)
	}
	if !ok {
		return errors.E(op, b.Path, errors.Diverged, fmt.Errorf(
			"applied revision %s is not an ancestor of the template's current revision %s; "+
				"the template history appears to have been rewritten", applied, current))
	}
	return nil
}

// Exists reports whether the project repository already holds imported
// template history.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	const op errors.Op = "synthetic.Exists"
	runner, err := gitutil.NewLocalGitRunner(b.Path.String())
	if err != nil {
		return false, errors.E(op, b.Path, err)
	}
	if _, err := runner.Run(ctx, "rev-parse", "--verify", "--quiet", Ref); err != nil {
		return false, nil
	}
	return true, nil
}

// CommitFor returns the imported commit mirroring the given template
// revision, located through the revision trailer.
func (b *Builder) CommitFor(ctx context.Context, templateRevision string) (string, bool, error) {
	const op errors.Op = "synthetic.CommitFor"
	runner, err := gitutil.NewLocalGitRunner(b.Path.String())
	if err != nil {
		return "", false, errors.E(op, b.Path, err)
	}
	rr, err := runner.Run(ctx, "log", "--format=%H %(trailers:key="+RevisionTrailer+",valueonly,separator=)", Ref)
	if err != nil {
		return "", false, nil
	}
	scanner := bufio.NewScanner(strings.NewReader(rr.Stdout))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[1] == templateRevision {
			return fields[0], true, nil
		}
	}
	return "", false, nil
}

// Import brings template history into the project repository according to
// the mode and returns the imported commit mirroring the target revision.
//
// Previously-imported commits are never rewritten: rewriting would break
// merge-base computation for any lineage synced against them, so the
// import is strictly append-only.
func (b *Builder) Import(ctx context.Context, mode ImportMode, applied, target string) (string, error) {
	const op errors.Op = "synthetic.Import"

	switch mode {
	case RootImport:
		revisions, err := b.revisions(ctx, "", target)
		if err != nil {
			return "", errors.E(op, b.Path, err)
		}
		return b.appendChain(ctx, "", revisions)

	case Incremental:
		parent, found, err := b.CommitFor(ctx, applied)
		if err != nil {
			return "", errors.E(op, b.Path, err)
		}
		if !found {
			return "", errors.E(op, b.Path, errors.Internal, fmt.Errorf(
				"applied revision %s has no imported commit; the project's template history is incomplete", applied))
		}
		revisions, err := b.revisions(ctx, applied, target)
		if err != nil {
			return "", errors.E(op, b.Path, err)
		}
		if len(revisions) == 0 {
			return parent, nil
		}
		return b.appendChain(ctx, parent, revisions)

	case ForcedUnrelated:
		if _, err := b.Repo.FetchRevisions(ctx, target); err != nil {
			return "", errors.E(op, b.Path, err)
		}
		commit, err := b.buildCommit(ctx, target, "")
		if err != nil {
			return "", errors.E(op, b.Path, err)
		}
		if err := b.updateRef(ctx, commit); err != nil {
			return "", errors.E(op, b.Path, err)
		}
		return commit, nil
	}
	return "", errors.E(op, b.Path, errors.Internal, fmt.Errorf("unknown import mode %d", mode))
}

// revisions lists the template revisions to import, oldest first, on the
// template's first-parent chain.
func (b *Builder) revisions(ctx context.Context, from, to string) ([]string, error) {
	refs := []string{to}
	if from != "" {
		refs = append(refs, from)
	}
	if _, err := b.Repo.FetchRevisions(ctx, refs...); err != nil {
		return nil, err
	}
	return b.Repo.RevList(ctx, from, to)
}

// appendChain builds one imported commit per template revision, each
// parented on the previous, and advances the dedicated ref to the tip.
func (b *Builder) appendChain(ctx context.Context, parent string, revisions []string) (string, error) {
	tip := parent
	for _, rev := range revisions {
		commit, err := b.buildCommit(ctx, rev, tip)
		if err != nil {
			return "", err
		}
		tip = commit
	}
	if tip == "" {
		return "", errors.E(errors.Op("synthetic.appendChain"), b.Path, errors.Internal,
			fmt.Errorf("no template revisions to import"))
	}
	if err := b.updateRef(ctx, tip); err != nil {
		return "", err
	}
	return tip, nil
}

// buildCommit renders the template at revision and commits the rendered
// tree into the project repository without touching the project worktree.
// The commit is created with plumbing commands against a throwaway index.
func (b *Builder) buildCommit(ctx context.Context, revision, parent string) (string, error) {
	const op errors.Op = "synthetic.buildCommit"

	worktree, cleanupWorktree, err := b.Repo.WorktreeAt(ctx, revision)
	if err != nil {
		return "", errors.E(op, err)
	}
	defer cleanupWorktree()

	renderDir, err := os.MkdirTemp("", "footing-render-")
	if err != nil {
		return "", errors.E(op, errors.IO, err)
	}
	defer os.RemoveAll(renderDir)

	if err := render.Tree(worktree, renderDir, b.Context); err != nil {
		return "", errors.E(op, err)
	}

	// Stage the rendered tree against a throwaway index, running from
	// inside the rendered directory with the project's git dir. The index
	// lives outside the rendered tree so it doesn't stage itself.
	indexDir, err := os.MkdirTemp("", "footing-index-")
	if err != nil {
		return "", errors.E(op, errors.IO, err)
	}
	defer os.RemoveAll(indexDir)
	indexEnv := []string{"GIT_INDEX_FILE=" + filepath.Join(indexDir, "index")}
	gitDir := "--git-dir=" + filepath.Join(b.Path.String(), ".git")

	stageRunner, err := gitutil.NewLocalGitRunner(renderDir)
	if err != nil {
		return "", errors.E(op, err)
	}
	if _, err := stageRunner.RunEnv(ctx, indexEnv, gitDir, "--work-tree="+renderDir, "add", "-A"); err != nil {
		return "", errors.E(op, err)
	}
	treeRes, err := stageRunner.RunEnv(ctx, indexEnv, gitDir, "write-tree")
	if err != nil {
		return "", errors.E(op, err)
	}
	tree := strings.TrimSpace(treeRes.Stdout)

	runner, err := gitutil.NewLocalGitRunner(b.Path.String())
	if err != nil {
		return "", errors.E(op, err)
	}

	// Reuse the template commit's own date so re-importing the same
	// revision with the same context produces an identical commit on any
	// machine.
	env := append([]string(nil), commitEnv...)
	if date, err := b.templateCommitDate(ctx, revision); err == nil {
		env = append(env, "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
	}

	message := fmt.Sprintf("Import template revision %.12s\n\n%s: %s\n", revision, RevisionTrailer, revision)
	args := []string{"commit-tree", tree}
	if parent != "" {
		args = append(args, "-p", parent)
	}
	args = append(args, "-m", message)
	commitRes, err := runner.RunEnv(ctx, env, args...)
	if err != nil {
		return "", errors.E(op, err)
	}
	return strings.TrimSpace(commitRes.Stdout), nil
}

// templateCommitDate returns the committer date of the template revision
// in strict ISO format.
func (b *Builder) templateCommitDate(ctx context.Context, revision string) (string, error) {
	dir, err := b.Repo.FetchRevisions(ctx, revision)
	if err != nil {
		return "", err
	}
	runner, err := gitutil.NewLocalGitRunner(dir)
	if err != nil {
		return "", err
	}
	rr, err := runner.Run(ctx, "show", "-s", "--format=%cI", revision)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rr.Stdout), nil
}

func (b *Builder) updateRef(ctx context.Context, commit string) error {
	const op errors.Op = "synthetic.updateRef"
	runner, err := gitutil.NewLocalGitRunner(b.Path.String())
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "update-ref", Ref, commit); err != nil {
		return errors.E(op, err)
	}
	return nil
}
