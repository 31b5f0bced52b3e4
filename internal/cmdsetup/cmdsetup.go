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

// Package cmdsetup contains the setup command.
package cmdsetup

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/util/cmdutil"
	"github.com/footing-dev/footing/internal/util/setup"
)

const (
	short = "Create a new project from a template"
	long  = `
footing setup TEMPLATE_REPO[@REF] [PROJECT_DIR] [flags]

Renders the template's current revision with the given parameters into the
project directory, commits the result as a git repository, records the
lineage, and imports the template history so the first sync already has a
merge base. Parameters missing from --param fall back to the defaults the
template declares.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:          "setup TEMPLATE_REPO[@REF] [PROJECT_DIR] [flags]",
		Short:        short,
		Long:         strings.TrimSpace(long),
		RunE:         r.runE,
		Args:         cobra.RangeArgs(1, 2),
		PreRunE:      r.preRunE,
		SilenceUsage: true,
	}

	c.Flags().StringArrayVar(&r.params, "param", nil,
		"template context parameter of the form key=value; may be repeated.")
	r.Command = c
	return r
}

func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Setup   setup.Command
	Command *cobra.Command

	params []string
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdsetup.preRunE"
	source, err := cmdutil.ParseTemplateSource(args[0])
	if err != nil {
		return errors.E(op, err)
	}
	p, err := cmdutil.ResolveProjectPath(args[1:])
	if err != nil {
		return errors.E(op, err)
	}
	params, err := cmdutil.ParseParams(r.params)
	if err != nil {
		return errors.E(op, err)
	}
	r.Setup.Template = source
	r.Setup.Path = p
	r.Setup.Params = params
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdsetup.runE"
	if err := r.Setup.Run(r.ctx); err != nil {
		return errors.E(op, err)
	}
	return nil
}
