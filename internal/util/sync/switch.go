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

package sync

import (
	"context"
	"fmt"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/branch"
	"github.com/footing-dev/footing/internal/util/resolve"
	"github.com/footing-dev/footing/internal/util/synthetic"
	"github.com/footing-dev/footing/pkg/printer"
)

// SwitchCommand re-roots a project onto a template with no shared
// ancestor. Instead of the incremental replay used by sync, it builds one
// parentless commit for the new template's current revision and performs a
// forced merge with an empty-tree merge base. No hooks from either
// template are invoked.
type SwitchCommand struct {
	// Path is the project repository root.
	Path types.UniquePath

	// Template is the source to re-root onto.
	Template lineage.TemplateSource

	// Resolver resolves template revisions. A zero resolver is used when
	// nil.
	Resolver *resolve.Resolver
}

// Run executes the switch. On success the outgoing lineage is appended to
// the record's history and a fresh lineage is installed for the new
// template. A conflicted merge leaves the update branch with markers and
// the lineage record untouched.
func (c *SwitchCommand) Run(ctx context.Context) (*Result, error) {
	const op errors.Op = "sync.Switch"
	pr := printer.FromContextOrDie(ctx)
	if c.Resolver == nil {
		c.Resolver = &resolve.Resolver{}
	}
	if err := c.Template.Validate(); err != nil {
		return nil, errors.E(op, c.Path, errors.InvalidParam, err)
	}

	l, err := lineage.Load(c.Path)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if l.Template.Repo == c.Template.Repo && l.Template.Ref == c.Template.Ref {
		return nil, errors.E(op, c.Path, errors.InvalidParam, fmt.Errorf(
			"project is already bound to %s", l.Template))
	}

	exists, err := branch.Exists(ctx, c.Path)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if exists {
		return nil, errors.E(op, c.Path, errors.UpdateInProgress, fmt.Errorf(
			"update branch %q already exists; run clean first", branch.UpdateBranch))
	}

	pr.Printf("Resolving %s\n", c.Template)
	current, err := c.Resolver.Current(ctx, c.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	repo, err := c.Resolver.Repo(ctx, c.Template)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	builder := &synthetic.Builder{
		Path:    c.Path,
		Repo:    repo,
		Context: l.Context,
	}

	pr.Printf("Importing template revision %.12s\n", current)
	target, err := builder.Import(ctx, synthetic.ForcedUnrelated, "", current)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	if err := branch.CreateAndCheckout(ctx, c.Path); err != nil {
		return nil, errors.E(op, c.Path, err)
	}

	conflicts, err := merge(ctx, c.Path, target,
		fmt.Sprintf("Switch to template %s at %.12s", c.Template, current), true)
	if err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if len(conflicts) > 0 {
		pr.Printf("Switch to %s has conflicts in %d file(s)\n", c.Template, len(conflicts))
		return &Result{Conflicts: conflicts}, nil
	}

	next := lineage.New(c.Template, current, l.Context)
	next.History = append(append([]lineage.Lineage(nil), l.History...), l.Archive())
	if err := lineage.Save(c.Path, next); err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	if err := commitLineage(ctx, c.Path); err != nil {
		return nil, errors.E(op, c.Path, err)
	}
	pr.Printf("Switched to %s at revision %.12s; review branch %q\n", c.Template, current, branch.UpdateBranch)
	return &Result{MergedRevision: current}, nil
}
