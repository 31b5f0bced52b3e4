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

// Package cmdls contains the ls command.
package cmdls

import (
	"context"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/forge"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/util/cmdutil"
	"github.com/footing-dev/footing/internal/util/resolve"
	"github.com/footing-dev/footing/pkg/printer"
)

const (
	short = "List templates on the forge, or the projects bound to one"
	long  = `
footing ls [flags]

Lists the template repositories published on the forge, identified by the
"footing-template" topic. With --projects TEMPLATE it instead lists the
projects bound to that template. With -l each template's current revision
is resolved and shown.

The forge API root and token come from --forge-url and --forge-token, or
the FOOTING_FORGE_URL and FOOTING_FORGE_TOKEN environment variables.
`

	// resolveWorkers bounds concurrent ls-remote calls in long listings.
	resolveWorkers = 8
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:          "ls [flags]",
		Short:        short,
		Long:         strings.TrimSpace(long),
		RunE:         r.runE,
		Args:         cobra.NoArgs,
		PreRunE:      r.preRunE,
		SilenceUsage: true,
	}

	c.Flags().StringVar(&r.forgeURL, "forge-url", "",
		"root of the forge's REST API; defaults to $FOOTING_FORGE_URL.")
	c.Flags().StringVar(&r.forgeToken, "forge-token", "",
		"bearer token for the forge API; defaults to $FOOTING_FORGE_TOKEN.")
	c.Flags().StringVar(&r.projects, "projects", "",
		"list the projects bound to the given TEMPLATE_REPO[@REF] instead of templates.")
	c.Flags().BoolVarP(&r.long, "long", "l", false,
		"resolve and show each template's current revision.")
	r.Command = c
	return r
}

func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	// Client may be injected for testing; preRunE builds one from the
	// flags when nil.
	Client forge.Client

	// Resolver resolves template revisions for long listings.
	Resolver *resolve.Resolver

	forgeURL   string
	forgeToken string
	projects   string
	long       bool
}

func (r *Runner) preRunE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdls.preRunE"
	if r.Client == nil {
		url := r.forgeURL
		if url == "" {
			url = os.Getenv("FOOTING_FORGE_URL")
		}
		token := r.forgeToken
		if token == "" {
			token = os.Getenv("FOOTING_FORGE_TOKEN")
		}
		client, err := forge.NewClient(forge.Config{BaseURL: url, Token: token})
		if err != nil {
			return errors.E(op, err)
		}
		r.Client = client
	}
	if r.Resolver == nil {
		r.Resolver = &resolve.Resolver{}
	}
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdls.runE"
	var err error
	if r.projects != "" {
		err = r.listProjects(r.ctx)
	} else {
		err = r.listTemplates(r.ctx)
	}
	if err != nil {
		return &cmdutil.ExitError{Code: 1, Err: errors.E(op, err)}
	}
	return nil
}

func (r *Runner) listTemplates(ctx context.Context) error {
	const op errors.Op = "cmdls.listTemplates"
	pr := printer.FromContextOrDie(ctx)

	templates, err := r.Client.ListTemplates(ctx)
	if err != nil {
		return errors.E(op, err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(pr.OutStream())
	t.SetStyle(table.StyleLight)
	if r.long {
		t.AppendHeader(table.Row{"TEMPLATE", "REVISION"})
		revisions := r.resolveRevisions(ctx, templates)
		for i, tpl := range templates {
			t.AppendRow(table.Row{tpl.String(), revisions[i]})
		}
	} else {
		t.AppendHeader(table.Row{"TEMPLATE"})
		for _, tpl := range templates {
			t.AppendRow(table.Row{tpl.String()})
		}
	}
	t.Render()
	return nil
}

// resolveRevisions resolves the current revision of every template with a
// bounded worker pool. A template that fails to resolve shows the failure
// in its cell instead of failing the whole listing.
func (r *Runner) resolveRevisions(ctx context.Context, templates []lineage.TemplateSource) []string {
	revisions := make([]string, len(templates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i, tpl := range templates {
		i, tpl := i, tpl
		g.Go(func() error {
			rev, err := r.Resolver.Current(ctx, tpl)
			if err != nil {
				revisions[i] = "<unreachable>"
				return nil
			}
			if len(rev) > 12 {
				rev = rev[:12]
			}
			revisions[i] = rev
			return nil
		})
	}
	_ = g.Wait()
	return revisions
}

func (r *Runner) listProjects(ctx context.Context) error {
	const op errors.Op = "cmdls.listProjects"
	pr := printer.FromContextOrDie(ctx)

	source, err := cmdutil.ParseTemplateSource(r.projects)
	if err != nil {
		return errors.E(op, err)
	}
	projects, err := r.Client.ListProjects(ctx, source)
	if err != nil {
		return errors.E(op, err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(pr.OutStream())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"PROJECT", "CLONE URL"})
	for _, p := range projects {
		t.AppendRow(table.Row{p.Name, p.CloneURL})
	}
	t.Render()
	return nil
}
