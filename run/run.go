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

// Package run builds the footing root command and owns the process exit
// contract: command errors are resolved into user-facing messages exactly
// once, here, and mapped to the documented exit codes.
package run

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/footing-dev/footing/commands"
	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/errors/resolver"
	"github.com/footing-dev/footing/internal/util/cmdutil"
	"github.com/footing-dev/footing/pkg/printer"
)

var version = "unknown"

const cliLong = `
Footing keeps projects generated from templates in sync with the template
they came from. It imports rendered template revisions as a synthetic git
history inside the project, which gives ordinary three-way merges a valid
common ancestor even though project and template share no commits.
`

// GetMain returns the footing root command with the printer wired into the
// context.
func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "footing",
		Short:        "Keep template-generated projects in sync with their template",
		Long:         strings.TrimSpace(cliLong),
		SilenceUsage: true,
		// Errors are resolved into user-facing messages after cobra
		// returns so the exit-code contract stays in one place.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx = printer.WithContext(ctx, pr)

	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetFootingCommands(ctx)...)
	cmd.AddCommand(versionCmd)

	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"print the raw error chain on failure")

	return cmd
}

// Main executes the root command and returns the process exit code.
func Main(ctx context.Context) int {
	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(os.Stderr, "footing requires that `git` is installed and on the PATH")
		return 1
	}
	cmd := GetMain(ctx)
	if err := cmd.Execute(); err != nil {
		return handleErr(cmd, err)
	}
	return 0
}

// handleErr prints the error and picks the exit code. An ExitError in the
// chain carries an explicit code; everything else resolves through the
// error resolvers with a default code of 1.
func handleErr(cmd *cobra.Command, err error) int {
	code := 1
	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			return code
		}
		err = exitErr.Err
	}

	if cmdutil.StackOnError {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return code
	}
	if rr, ok := resolver.ResolveError(err); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", rr.Message)
		if exitErr == nil {
			code = rr.ExitCode
		}
		return code
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	return code
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of footing",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}
