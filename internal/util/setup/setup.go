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

// Package setup creates a new project from a template: it renders the
// template's current revision with the provided context, commits the
// result as a fresh git repository, records the lineage, and imports the
// template history so the first sync already has its common ancestor.
package setup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/copy"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/render"
	"github.com/footing-dev/footing/internal/util/resolve"
	"github.com/footing-dev/footing/internal/util/synthetic"
	"github.com/footing-dev/footing/pkg/printer"
)

// Command creates a project from a template.
type Command struct {
	// Path is the directory the project is created in.
	Path types.UniquePath

	// Template is the source to bind the project to.
	Template lineage.TemplateSource

	// Params is the ordered template context provided by the caller.
	// Descriptor defaults fill in anything not provided.
	Params []lineage.Parameter

	// Resolver resolves template revisions. A zero resolver is used when
	// nil.
	Resolver *resolve.Resolver
}

// Run executes the setup.
func (c *Command) Run(ctx context.Context) error {
	const op errors.Op = "setup.Run"
	pr := printer.FromContextOrDie(ctx)
	if c.Resolver == nil {
		c.Resolver = &resolve.Resolver{}
	}
	if err := c.Template.Validate(); err != nil {
		return errors.E(op, c.Path, errors.InvalidParam, err)
	}
	if lineage.Exists(c.Path) {
		return errors.E(op, c.Path, errors.InvalidParam, fmt.Errorf(
			"%s already exists; the directory is already bound to a template", lineage.FileName))
	}

	pr.Printf("Resolving %s\n", c.Template)
	current, err := c.Resolver.Current(ctx, c.Template)
	if err != nil {
		return errors.E(op, c.Path, err)
	}
	repo, err := c.Resolver.Repo(ctx, c.Template)
	if err != nil {
		return errors.E(op, c.Path, err)
	}
	if _, err := repo.FetchRevisions(ctx, current); err != nil {
		return errors.E(op, c.Path, err)
	}

	worktree, cleanup, err := repo.WorktreeAt(ctx, current)
	if err != nil {
		return errors.E(op, c.Path, err)
	}
	defer cleanup()

	descriptor, err := render.ReadDescriptor(worktree)
	if err != nil {
		return errors.E(op, c.Path, err)
	}
	context := render.MergeContext(descriptor, c.Params)

	renderDir, err := os.MkdirTemp("", "footing-setup-")
	if err != nil {
		return errors.E(op, c.Path, errors.IO, err)
	}
	defer os.RemoveAll(renderDir)

	pr.Printf("Rendering template revision %.12s\n", current)
	if err := render.Tree(worktree, renderDir, context); err != nil {
		return errors.E(op, c.Path, err)
	}
	if err := copy.Copy(renderDir, c.Path.String(), copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Skip },
	}); err != nil {
		return errors.E(op, c.Path, errors.IO, err)
	}

	if err := c.commitInitial(ctx, current); err != nil {
		return errors.E(op, c.Path, err)
	}

	l := lineage.New(c.Template, current, context)
	if err := lineage.Save(c.Path, l); err != nil {
		return errors.E(op, c.Path, err)
	}
	if err := c.commitLineage(ctx); err != nil {
		return errors.E(op, c.Path, err)
	}

	// Import the template history and anchor it now so the first sync
	// already has a valid merge base.
	builder := &synthetic.Builder{
		Path:    c.Path,
		Repo:    repo,
		Context: context,
	}
	pr.Printf("Importing template history up to %.12s\n", current)
	anchor, err := builder.Import(ctx, synthetic.RootImport, "", current)
	if err != nil {
		return errors.E(op, c.Path, err)
	}

	runner, err := gitutil.NewLocalGitRunner(c.Path.String())
	if err != nil {
		return errors.E(op, c.Path, err)
	}
	if _, err := runner.Run(ctx, "merge", "-s", "ours", "--allow-unrelated-histories",
		"-m", "Anchor template ancestry", anchor); err != nil {
		return errors.E(op, c.Path, err)
	}

	pr.Printf("Created project from %s at revision %.12s\n", c.Template, current)
	return nil
}

func (c *Command) commitInitial(ctx context.Context, revision string) error {
	const op errors.Op = "setup.commitInitial"
	if err := os.MkdirAll(c.Path.String(), 0o755); err != nil {
		return errors.E(op, errors.IO, err)
	}
	runner, err := gitutil.NewLocalGitRunner(c.Path.String())
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "rev-parse", "--git-dir"); err != nil {
		if _, err := runner.Run(ctx, "init"); err != nil {
			return errors.E(op, err)
		}
	}
	if _, err := runner.Run(ctx, "add", "-A"); err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "commit", "-m",
		fmt.Sprintf("Initialize project from template revision %.12s", revision)); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (c *Command) commitLineage(ctx context.Context) error {
	const op errors.Op = "setup.commitLineage"
	runner, err := gitutil.NewLocalGitRunner(c.Path.String())
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "add", lineage.FileName); err != nil {
		return errors.E(op, err)
	}
	rr, err := runner.Run(ctx, "status", "--porcelain", lineage.FileName)
	if err != nil {
		return errors.E(op, err)
	}
	if strings.TrimSpace(rr.Stdout) == "" {
		return nil
	}
	if _, err := runner.Run(ctx, "commit", "-m", "Record template lineage"); err != nil {
		return errors.E(op, err)
	}
	return nil
}
