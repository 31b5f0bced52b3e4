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

// Package branch manages the single dedicated update branch of a project.
// The branch doubles as an advisory lock: its presence makes a concurrent
// sync or switch abort with UpdateInProgress instead of corrupting state.
package branch

import (
	"context"
	"fmt"
	"strings"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/types"
)

// UpdateBranch is the name of the dedicated branch holding in-progress or
// completed merge work. At most one exists at a time.
const UpdateBranch = "footing-update"

// Exists reports whether the update branch is present.
func Exists(ctx context.Context, path types.UniquePath) (bool, error) {
	const op errors.Op = "branch.Exists"
	runner, err := gitutil.NewLocalGitRunner(path.String())
	if err != nil {
		return false, errors.E(op, path, err)
	}
	if _, err := runner.Run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+UpdateBranch); err != nil {
		return false, nil
	}
	return true, nil
}

// CreateAndCheckout creates the update branch at the current HEAD and
// checks it out.
func CreateAndCheckout(ctx context.Context, path types.UniquePath) error {
	const op errors.Op = "branch.CreateAndCheckout"
	runner, err := gitutil.NewLocalGitRunner(path.String())
	if err != nil {
		return errors.E(op, path, err)
	}
	if _, err := runner.Run(ctx, "checkout", "-b", UpdateBranch); err != nil {
		return errors.E(op, path, err)
	}
	return nil
}

// Clean deletes the update branch. An absent branch fails with kind
// NoUpdateBranch; callers treat that as a distinct, non-fatal signal.
func Clean(ctx context.Context, path types.UniquePath) error {
	const op errors.Op = "branch.Clean"
	exists, err := Exists(ctx, path)
	if err != nil {
		return errors.E(op, path, err)
	}
	if !exists {
		return errors.E(op, path, errors.NoUpdateBranch,
			fmt.Errorf("branch %q does not exist", UpdateBranch))
	}

	runner, err := gitutil.NewLocalGitRunner(path.String())
	if err != nil {
		return errors.E(op, path, err)
	}
	current, err := runner.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return errors.E(op, path, err)
	}
	if strings.TrimSpace(current.Stdout) == UpdateBranch {
		return errors.E(op, path, errors.InvalidParam, fmt.Errorf(
			"branch %q is currently checked out; switch to another branch before cleaning", UpdateBranch))
	}

	if _, err := runner.Run(ctx, "branch", "-D", UpdateBranch); err != nil {
		return errors.E(op, path, err)
	}
	return nil
}
