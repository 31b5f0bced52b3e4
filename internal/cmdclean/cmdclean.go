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

// Package cmdclean contains the clean command.
package cmdclean

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/branch"
	"github.com/footing-dev/footing/internal/util/cmdutil"
	"github.com/footing-dev/footing/pkg/printer"
)

const (
	short = "Delete the update branch"
	long  = `
footing clean [PROJECT_DIR]

Deletes the update branch left behind by sync or switch, typically after
its changes have been merged or discarded. Exits 1 when no update branch
exists; scripts can treat that as "nothing to clean".
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:          "clean [PROJECT_DIR]",
		Short:        short,
		Long:         strings.TrimSpace(long),
		RunE:         r.runE,
		Args:         cobra.MaximumNArgs(1),
		PreRunE:      r.preRunE,
		SilenceUsage: true,
	}
	r.Command = c
	return r
}

func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Path    types.UniquePath
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdclean.preRunE"
	p, err := cmdutil.ResolveProjectPath(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Path = p
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdclean.runE"
	pr := printer.FromContextOrDie(r.ctx)

	if err := branch.Clean(r.ctx, r.Path); err != nil {
		if errors.IsKind(err, errors.NoUpdateBranch) {
			return &cmdutil.ExitError{Code: 1, Err: errors.E(op, err)}
		}
		return errors.E(op, err)
	}
	pr.Printf("Deleted branch %q\n", branch.UpdateBranch)
	return nil
}
