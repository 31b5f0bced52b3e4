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

package sync

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/testutil"
	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/internal/util/branch"
	"github.com/footing-dev/footing/internal/util/setup"
	"github.com/footing-dev/footing/pkg/printer/fake"
)

const configContent = `retries: 1
timeout: 30
backoff: 2
log_level: info
log_format: json
metrics: true
tracing: false
verbose: false
`

// fixture is a template repository and a project created from it.
type fixture struct {
	template *testutil.TestRepo
	project  *testutil.TestRepo

	// main is the project's default branch; its name depends on the
	// machine-wide git config.
	main string
}

func (f *fixture) path() types.UniquePath {
	return types.UniquePath(f.project.RepoDirectory)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.ConfigureCache(t)

	template := testutil.NewTemplateRepo(t)
	template.WriteFile("footing-template.yaml", `
name: go-service
parameters:
  - name: name
  - name: team
    default: platform
`)
	template.WriteFile("README.md", "# {{.name}}\n\nOwned by {{.team}}.\n")
	template.WriteFile("config.yaml", configContent)
	template.Commit("Initial template")

	projectDir := filepath.Join(t.TempDir(), "proj")
	s := &setup.Command{
		Path:     types.UniquePath(projectDir),
		Template: template.Source("main"),
		Params:   []lineage.Parameter{{Name: "name", Value: "svc"}},
	}
	require.NoError(t, s.Run(fake.CtxWithNilPrinter()))

	project := testutil.Attach(t, projectDir)
	return &fixture{
		template: template,
		project:  project,
		main:     project.CurrentBranch(),
	}
}

func loadLineage(t *testing.T, f *fixture) *lineage.Lineage {
	t.Helper()
	l, err := lineage.Load(f.path())
	require.NoError(t, err)
	return l
}

func TestRun_UpToDate(t *testing.T) {
	f := newFixture(t)
	head := f.project.Head()

	c := &Command{Path: f.path()}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)

	assert.True(t, result.UpToDate)
	assert.Equal(t, UpToDate, c.State())
	assert.Equal(t, head, f.project.Head())
	exists, err := branch.Exists(fake.CtxWithNilPrinter(), f.path())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_MergesTemplateChanges(t *testing.T) {
	f := newFixture(t)
	f.template.WriteFile("config.yaml", strings.Replace(configContent, "retries: 1", "retries: 5", 1))
	rev2 := f.template.Commit("Bump retries")

	c := &Command{Path: f.path()}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)

	assert.Equal(t, rev2, result.MergedRevision)
	assert.Equal(t, LineageUpdated, c.State())
	assert.Equal(t, branch.UpdateBranch, f.project.CurrentBranch())
	assert.Contains(t, f.project.ReadFile("config.yaml"), "retries: 5")
	// Rendered context is preserved through the merge.
	assert.Contains(t, f.project.ReadFile("README.md"), "# svc")
	assert.Equal(t, rev2, loadLineage(t, f).AppliedRevision)
}

func TestRun_PreservesLocalChanges(t *testing.T) {
	f := newFixture(t)

	// The project customizes the bottom of the file, the template the top.
	f.project.WriteFile("config.yaml", strings.Replace(configContent, "verbose: false", "verbose: true", 1))
	f.project.Commit("Enable verbose logging")
	f.template.WriteFile("config.yaml", strings.Replace(configContent, "retries: 1", "retries: 5", 1))
	f.template.Commit("Bump retries")

	c := &Command{Path: f.path()}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	merged := f.project.ReadFile("config.yaml")
	assert.Contains(t, merged, "retries: 5")
	assert.Contains(t, merged, "verbose: true")
}

func TestRun_Conflict(t *testing.T) {
	f := newFixture(t)
	applied := loadLineage(t, f).AppliedRevision

	f.project.WriteFile("config.yaml", strings.Replace(configContent, "retries: 1", "retries: 9", 1))
	f.project.Commit("Project retry policy")
	f.template.WriteFile("config.yaml", strings.Replace(configContent, "retries: 1", "retries: 5", 1))
	f.template.Commit("Template retry policy")

	c := &Command{Path: f.path()}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)

	assert.Equal(t, Conflicted, c.State())
	assert.Equal(t, []string{"config.yaml"}, result.Conflicts)
	assert.Contains(t, f.project.ReadFile("config.yaml"), "<<<<<<<")
	// The lineage only advances on a conflict-free merge.
	assert.Equal(t, applied, loadLineage(t, f).AppliedRevision)
	assert.Equal(t, branch.UpdateBranch, f.project.CurrentBranch())
}

func TestRun_CheckOnly(t *testing.T) {
	f := newFixture(t)
	ctx := fake.CtxWithNilPrinter()

	c := &Command{Path: f.path(), CheckOnly: true}
	result, err := c.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)

	f.template.WriteFile("README.md", "changed\n")
	f.template.Commit("Change readme")
	head := f.project.Head()

	c = &Command{Path: f.path(), CheckOnly: true}
	result, err = c.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.UpToDate)
	assert.Equal(t, []string{"README.md"}, result.ChangedPaths)

	// Check mode never mutates the repository.
	assert.Equal(t, head, f.project.Head())
	exists, err := branch.Exists(ctx, f.path())
	require.NoError(t, err)
	assert.False(t, exists)
	status := f.project.Git("status", "--porcelain")
	assert.Empty(t, status)
}

func TestRun_CheckOnlyWithStaleBranch(t *testing.T) {
	f := newFixture(t)
	f.project.CheckoutBranch(branch.UpdateBranch, true)
	f.project.CheckoutBranch(f.main, false)

	c := &Command{Path: f.path(), CheckOnly: true}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.UpdateInProgress))
}

func TestRun_ExistingBranchBlocksSync(t *testing.T) {
	f := newFixture(t)
	f.project.CheckoutBranch(branch.UpdateBranch, true)
	f.project.CheckoutBranch(f.main, false)
	f.template.WriteFile("README.md", "changed\n")
	f.template.Commit("Change readme")

	c := &Command{Path: f.path()}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.UpdateInProgress))
}

func TestRun_SequentialSyncs(t *testing.T) {
	f := newFixture(t)
	ctx := fake.CtxWithNilPrinter()

	f.template.WriteFile("config.yaml", strings.Replace(configContent, "retries: 1", "retries: 5", 1))
	f.template.Commit("Bump retries")

	c := &Command{Path: f.path()}
	_, err := c.Run(ctx)
	require.NoError(t, err)

	// Land the update branch the way a reviewer would.
	f.project.CheckoutBranch(f.main, false)
	f.project.Git("merge", branch.UpdateBranch)
	require.NoError(t, branch.Clean(ctx, f.path()))

	f.template.WriteFile("config.yaml", strings.Replace(configContent, "timeout: 30", "timeout: 60", 1))
	rev3 := f.template.Commit("Bump timeout")

	c = &Command{Path: f.path()}
	result, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev3, result.MergedRevision)
	merged := f.project.ReadFile("config.yaml")
	assert.Contains(t, merged, "retries: 5")
	assert.Contains(t, merged, "timeout: 60")
}

func TestRun_TemplateHistoryRewritten(t *testing.T) {
	f := newFixture(t)
	f.template.Git("commit", "--amend", "--allow-empty", "-m", "rewritten")

	c := &Command{Path: f.path()}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Diverged))
}

func TestRun_NewTemplateFileIsRendered(t *testing.T) {
	f := newFixture(t)
	f.template.WriteFile("docs/{{.name}}.md", "Documentation for {{.name}} ({{.team}}).\n")
	f.template.Commit("Add docs")

	c := &Command{Path: f.path()}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	assert.True(t, f.project.HasFile("docs/svc.md"))
	assert.Equal(t, "Documentation for svc (platform).\n", f.project.ReadFile("docs/svc.md"))
}

func TestRun_MissingLineage(t *testing.T) {
	testutil.ConfigureCache(t)
	project := testutil.NewProjectRepo(t)

	c := &Command{Path: types.UniquePath(project.RepoDirectory)}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.False(t, errors.IsKind(err, errors.CorruptLineage))
}
