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

// Package commands assembles the footing command set.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/footing-dev/footing/internal/cmdclean"
	"github.com/footing-dev/footing/internal/cmdls"
	"github.com/footing-dev/footing/internal/cmdsetup"
	"github.com/footing-dev/footing/internal/cmdswitch"
	"github.com/footing-dev/footing/internal/cmdsync"
)

// GetFootingCommands returns the set of footing commands to be registered
// on the root command.
func GetFootingCommands(ctx context.Context) []*cobra.Command {
	c := []*cobra.Command{
		cmdsetup.NewCommand(ctx),
		cmdsync.NewCommand(ctx),
		cmdswitch.NewCommand(ctx),
		cmdclean.NewCommand(ctx),
		cmdls.NewCommand(ctx),
	}
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand applies cross-cutting settings to commands, e.g.
// silencing errors so they are resolved once in the run layer.
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		NormalizeCommand(cmd.Commands()...)
	}
}
