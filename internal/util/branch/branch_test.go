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

package branch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/testutil"
	"github.com/footing-dev/footing/internal/types"
)

func TestExistsAndCreate(t *testing.T) {
	g := testutil.NewProjectRepo(t)
	path := types.UniquePath(g.RepoDirectory)
	ctx := context.Background()

	exists, err := Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, CreateAndCheckout(ctx, path))
	assert.Equal(t, UpdateBranch, g.CurrentBranch())

	exists, err = Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	// The branch doubles as a lock, so a second create must fail.
	assert.Error(t, CreateAndCheckout(ctx, path))
}

func TestClean(t *testing.T) {
	g := testutil.NewProjectRepo(t)
	path := types.UniquePath(g.RepoDirectory)
	ctx := context.Background()
	main := g.CurrentBranch()

	require.NoError(t, CreateAndCheckout(ctx, path))
	g.CheckoutBranch(main, false)

	require.NoError(t, Clean(ctx, path))
	exists, err := Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClean_NoBranch(t *testing.T) {
	g := testutil.NewProjectRepo(t)
	err := Clean(context.Background(), types.UniquePath(g.RepoDirectory))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.NoUpdateBranch))
}

func TestClean_BranchCheckedOut(t *testing.T) {
	g := testutil.NewProjectRepo(t)
	path := types.UniquePath(g.RepoDirectory)
	ctx := context.Background()

	require.NoError(t, CreateAndCheckout(ctx, path))
	err := Clean(ctx, path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidParam))

	// The branch survives the failed clean.
	exists, err := Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)
}
