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

package drift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/testutil"
	"github.com/footing-dev/footing/internal/types"
)

func TestIsCurrent(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "v1\n")
	rev1 := template.Commit("first")

	projectDir := types.UniquePath(t.TempDir())
	require.NoError(t, lineage.Save(projectDir, lineage.New(template.Source("main"), rev1, nil)))

	c := &Checker{Path: projectDir}
	current, err := c.IsCurrent(context.Background())
	require.NoError(t, err)
	assert.True(t, current)

	template.WriteFile("README.md", "v2\n")
	template.Commit("second")

	c = &Checker{Path: projectDir}
	current, err = c.IsCurrent(context.Background())
	require.NoError(t, err)
	assert.False(t, current)
}

func TestCheck_ReportsChangedPaths(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "# {{.name}}\n")
	template.WriteFile("Makefile", "all:\n")
	rev1 := template.Commit("first")

	projectDir := types.UniquePath(t.TempDir())
	params := []lineage.Parameter{{Name: "name", Value: "svc"}}
	require.NoError(t, lineage.Save(projectDir, lineage.New(template.Source("main"), rev1, params)))

	c := &Checker{Path: projectDir}
	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Current)
	assert.Equal(t, rev1, report.Applied)
	assert.Equal(t, rev1, report.Latest)
	assert.True(t, report.Changes.Empty())

	template.WriteFile("README.md", "# {{.name}} v2\n")
	template.WriteFile("docs/guide.md", "guide\n")
	template.DeleteFile("Makefile")
	rev2 := template.Commit("second")

	c = &Checker{Path: projectDir}
	report, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Current)
	assert.Equal(t, rev1, report.Applied)
	assert.Equal(t, rev2, report.Latest)
	assert.Equal(t, []string{"docs/guide.md"}, report.Changes.Added)
	assert.Equal(t, []string{"Makefile"}, report.Changes.Removed)
	assert.Equal(t, []string{"README.md"}, report.Changes.Modified)
}

func TestIsCurrent_MissingLineage(t *testing.T) {
	testutil.ConfigureCache(t)
	c := &Checker{Path: types.UniquePath(t.TempDir())}
	_, err := c.IsCurrent(context.Background())
	require.Error(t, err)
}

func TestIsCurrent_UnknownRef(t *testing.T) {
	testutil.ConfigureCache(t)
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("README.md", "v1\n")
	rev := template.Commit("first")

	projectDir := types.UniquePath(t.TempDir())
	require.NoError(t, lineage.Save(projectDir, lineage.New(template.Source("vanished"), rev, nil)))

	c := &Checker{Path: projectDir}
	_, err := c.IsCurrent(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.TemplateNotFound))
}
