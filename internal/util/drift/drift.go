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

// Package drift answers whether a project carries its template's current
// revision. It is built purely from the revision resolver and the lineage
// store, performs no writes, and is safe for automated gating.
package drift

import (
	"context"
	"os"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/difftree"
	"github.com/footing-dev/footing/internal/util/render"
	"github.com/footing-dev/footing/internal/util/resolve"
)

// Report describes a project's position relative to its template.
type Report struct {
	// Current is true when the applied revision is the template's current
	// revision.
	Current bool

	// Applied and Latest are the project's applied revision and the
	// template's current revision.
	Applied string
	Latest  string

	// Changes lists what differs between the rendered applied tree and the
	// rendered current tree. Empty when Current.
	Changes difftree.Result
}

// Checker reports drift for a single project.
type Checker struct {
	// Path is the project repository root.
	Path types.UniquePath

	// Resolver resolves template revisions. A zero resolver is used when
	// nil.
	Resolver *resolve.Resolver
}

// IsCurrent reports whether the project's applied revision matches the
// template's current revision.
func (c *Checker) IsCurrent(ctx context.Context) (bool, error) {
	const op errors.Op = "drift.IsCurrent"
	if c.Resolver == nil {
		c.Resolver = &resolve.Resolver{}
	}

	l, err := lineage.Load(c.Path)
	if err != nil {
		return false, errors.E(op, c.Path, err)
	}
	current, err := c.Resolver.Current(ctx, l.Template)
	if err != nil {
		return false, errors.E(op, c.Path, err)
	}
	return current == resolve.Applied(l), nil
}

// Check reports drift together with the paths that changed between the
// applied and current template revisions. The trees are rendered with the
// project's context into temporary directories; the project repository is
// never written to.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	const op errors.Op = "drift.Check"
	if c.Resolver == nil {
		c.Resolver = &resolve.Resolver{}
	}

	l, err := lineage.Load(c.Path)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	current, err := c.Resolver.Current(ctx, l.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	applied := resolve.Applied(l)

	report := &Report{Applied: applied, Latest: current}
	if current == applied {
		report.Current = true
		return report, nil
	}

	repo, err := c.Resolver.Repo(ctx, l.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if _, err := repo.FetchRevisions(ctx, applied, current); err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	appliedDir, err := c.renderAt(ctx, repo, applied, l.Context)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	defer os.RemoveAll(appliedDir)
	currentDir, err := c.renderAt(ctx, repo, current, l.Context)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	defer os.RemoveAll(currentDir)

	report.Changes, err = difftree.Trees(appliedDir, currentDir)
	if err != nil {
		return nil, errors.E(op, c.Path, errors.IO, err)
	}
	return report, nil
}

// renderAt renders the template at revision into a fresh temporary
// directory. The caller removes the directory.
func (c *Checker) renderAt(ctx context.Context, repo *gitutil.GitTemplateRepo, revision string, context []lineage.Parameter) (string, error) {
	worktree, cleanup, err := repo.WorktreeAt(ctx, revision)
	if err != nil {
		return "", err
	}
	defer cleanup()

	dir, err := os.MkdirTemp("", "footing-drift-")
	if err != nil {
		return "", errors.E(errors.Op("drift.renderAt"), errors.IO, err)
	}
	if err := render.Tree(worktree, dir, context); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}
