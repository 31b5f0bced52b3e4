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

// Package cmdswitch contains the switch command.
package cmdswitch

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/util/cmdutil"
	"github.com/footing-dev/footing/internal/util/sync"
	"github.com/footing-dev/footing/pkg/printer"
)

const (
	short = "Re-root the project onto a different template"
	long  = `
footing switch TEMPLATE_REPO[@REF] [PROJECT_DIR] [flags]

Rebinds the project to a template that shares no history with the current
one. The new template's current revision is merged with a forced
three-way merge over an empty base, so every templated file surfaces as a
reviewable change on the update branch. The outgoing binding is kept in
the lineage history.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:          "switch TEMPLATE_REPO[@REF] [PROJECT_DIR] [flags]",
		Short:        short,
		Long:         strings.TrimSpace(long),
		RunE:         r.runE,
		Args:         cobra.RangeArgs(1, 2),
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
	Switch  sync.SwitchCommand
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdswitch.preRunE"
	source, err := cmdutil.ParseTemplateSource(args[0])
	if err != nil {
		return errors.E(op, err)
	}
	p, err := cmdutil.ResolveProjectPath(args[1:])
	if err != nil {
		return errors.E(op, err)
	}
	r.Switch.Template = source
	r.Switch.Path = p
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdswitch.runE"
	pr := printer.FromContextOrDie(r.ctx)

	result, err := r.Switch.Run(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if len(result.Conflicts) > 0 {
		pr.Printf("Conflicts in:\n")
		for _, path := range result.Conflicts {
			pr.Printf("  %s\n", path)
		}
		return &cmdutil.ExitError{Code: 1, Err: errors.E(op, r.Switch.Path, errors.MergeConflict,
			fmt.Errorf("%d file(s) left with conflict markers", len(result.Conflicts)))}
	}
	return nil
}
