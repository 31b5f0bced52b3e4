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

// Package cmdsync contains the sync command.
package cmdsync

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
	short = "Merge forward template changes into the project"
	long  = `
footing sync [PROJECT_DIR] [flags]

Resolves the template's current revision, imports the template commits the
project hasn't seen yet, and merges them into a dedicated update branch.
The update branch is left in place for review; delete it with
'footing clean' once merged.

With --check the command only reports drift and performs no repository
mutation of any kind, which makes it safe for CI gating. Exit codes with
--check: 0 current, 1 drifted, 2 resolution error.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:          "sync [PROJECT_DIR] [flags]",
		Short:        short,
		Long:         strings.TrimSpace(long),
		RunE:         r.runE,
		Args:         cobra.MaximumNArgs(1),
		PreRunE:      r.preRunE,
		SilenceUsage: true,
	}

	c.Flags().BoolVar(&r.Sync.CheckOnly, "check", false,
		"only report whether the project has drifted from the template; "+
			"never mutates the repository.")
	r.Command = c
	return r
}

func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Sync    sync.Command
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdsync.preRunE"
	p, err := cmdutil.ResolveProjectPath(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Sync.Path = p
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdsync.runE"
	pr := printer.FromContextOrDie(r.ctx)

	result, err := r.Sync.Run(r.ctx)
	if err != nil {
		if r.Sync.CheckOnly {
			// Resolution failures (and a stale update branch) are distinct
			// from drift for automation.
			return &cmdutil.ExitError{Code: 2, Err: errors.E(op, err)}
		}
		return errors.E(op, err)
	}

	if r.Sync.CheckOnly {
		if result.UpToDate {
			pr.Printf("Project is current with its template\n")
			return nil
		}
		pr.Printf("Project has drifted from its template\n")
		for _, path := range result.ChangedPaths {
			pr.Printf("  %s\n", path)
		}
		return &cmdutil.ExitError{Code: 1}
	}

	if len(result.Conflicts) > 0 {
		pr.Printf("Conflicts in:\n")
		for _, path := range result.Conflicts {
			pr.Printf("  %s\n", path)
		}
		return &cmdutil.ExitError{Code: 1, Err: errors.E(op, r.Sync.Path, errors.MergeConflict,
			fmt.Errorf("%d file(s) left with conflict markers", len(result.Conflicts)))}
	}
	return nil
}
