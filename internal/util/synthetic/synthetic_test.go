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

package synthetic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/testutil"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/resolve"
)

func newBuilder(t *testing.T, template, project *testutil.TestRepo) *Builder {
	t.Helper()
	r := &resolve.Resolver{}
	repo, err := r.Repo(context.Background(), template.Source(""))
	require.NoError(t, err)
	return &Builder{
		Path:    types.UniquePath(project.RepoDirectory),
		Repo:    repo,
		Context: []lineage.Parameter{{Name: "name", Value: "svc"}},
	}
}

func TestImport_Root(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "# {{.name}}\n")
	rev1 := template.Commit("first")
	template.WriteFile("config.yaml", "retries: 1\n")
	rev2 := template.Commit("second")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	exists, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	tip, err := b.Import(ctx, RootImport, "", rev2)
	require.NoError(t, err)

	exists, err = b.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, tip, project.Git("rev-parse", Ref))

	// One imported commit per template revision, in order.
	c1, found, err := b.CommitFor(ctx, rev1)
	require.NoError(t, err)
	require.True(t, found)
	c2, found, err := b.CommitFor(ctx, rev2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tip, c2)
	assert.Equal(t, c1, project.Git("rev-parse", c2+"^"))

	// Imported trees hold the rendered template.
	assert.Equal(t, "# svc\n", project.Git("show", c1+":README.md")+"\n")
}

func TestImport_RootIsDeterministic(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "# {{.name}}\n")
	rev := template.Commit("first")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	first, err := b.Import(ctx, RootImport, "", rev)
	require.NoError(t, err)
	second, err := b.Import(ctx, RootImport, "", rev)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestImport_Incremental(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "# {{.name}}\n")
	rev1 := template.Commit("first")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	base, err := b.Import(ctx, RootImport, "", rev1)
	require.NoError(t, err)

	template.WriteFile("config.yaml", "retries: 1\n")
	rev2 := template.Commit("second")
	template.WriteFile("config.yaml", "retries: 5\n")
	rev3 := template.Commit("third")

	tip, err := b.Import(ctx, Incremental, rev1, rev3)
	require.NoError(t, err)
	assert.NotEqual(t, base, tip)
	assert.Equal(t, tip, project.Git("rev-parse", Ref))

	// The chain extends the existing import without rewriting it.
	assert.Equal(t, base, project.Git("rev-parse", tip+"^^"))
	mid, found, err := b.CommitFor(ctx, rev2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mid, project.Git("rev-parse", tip+"^"))
}

func TestImport_IncrementalNoNewRevisions(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "x\n")
	rev := template.Commit("first")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	tip, err := b.Import(ctx, RootImport, "", rev)
	require.NoError(t, err)

	again, err := b.Import(ctx, Incremental, rev, rev)
	require.NoError(t, err)
	assert.Equal(t, tip, again)
}

func TestImport_IncrementalWithoutRootFails(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "x\n")
	rev1 := template.Commit("first")
	template.WriteFile("README.md", "y\n")
	rev2 := template.Commit("second")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)

	_, err := b.Import(context.Background(), Incremental, rev1, rev2)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Internal))
}

func TestImport_ForcedUnrelated(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "a\n")
	template.Commit("first")
	template.WriteFile("README.md", "b\n")
	rev2 := template.Commit("second")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)

	commit, err := b.Import(context.Background(), ForcedUnrelated, "", rev2)
	require.NoError(t, err)

	// A single parentless commit regardless of the template's history.
	parents := project.Git("log", "--format=%P", "-1", commit)
	assert.Empty(t, strings.TrimSpace(parents))
	assert.Equal(t, "b", project.Git("show", commit+":README.md"))
}

func TestImport_RefIsNotABranch(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "x\n")
	rev := template.Commit("first")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	_, err := b.Import(context.Background(), RootImport, "", rev)
	require.NoError(t, err)

	branches := project.Git("branch", "--list")
	assert.NotContains(t, branches, "footing")
}

func TestVerifyAncestry(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "a\n")
	rev1 := template.Commit("first")
	template.WriteFile("README.md", "b\n")
	rev2 := template.Commit("second")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	require.NoError(t, b.VerifyAncestry(ctx, rev1, rev2))
	require.NoError(t, b.VerifyAncestry(ctx, rev2, rev2))
}

func TestVerifyAncestry_RewrittenHistory(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "a\n")
	rev1 := template.Commit("first")

	project := testutil.NewProjectRepo(t)
	b := newBuilder(t, template, project)
	ctx := context.Background()

	// Prime the cache with the original history, then rewrite it
	// upstream.
	_, err := b.Import(ctx, RootImport, "", rev1)
	require.NoError(t, err)
	template.Git("commit", "--amend", "--allow-empty", "-m", "rewritten")
	rewritten := template.Head()
	require.NotEqual(t, rev1, rewritten)

	err = b.VerifyAncestry(ctx, rev1, rewritten)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Diverged))
}
