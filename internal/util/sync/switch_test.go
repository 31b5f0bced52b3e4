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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/testutil"
	"github.com/footing-dev/footing/internal/util/branch"
	"github.com/footing-dev/footing/pkg/printer/fake"
)

func newSecondTemplate(t *testing.T) *testutil.TestRepo {
	t.Helper()
	template := testutil.NewTemplateRepo(t)
	template.WriteFile("footing-template.yaml", `
name: go-worker
parameters:
  - name: name
`)
	template.WriteFile("worker.yaml", "queue: default\nworker: {{.name}}\n")
	template.Commit("Initial worker template")
	return template
}

func TestSwitch(t *testing.T) {
	f := newFixture(t)
	old := loadLineage(t, f)
	next := newSecondTemplate(t)

	c := &SwitchCommand{
		Path:     f.path(),
		Template: next.Source("main"),
	}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	assert.Equal(t, next.Head(), result.MergedRevision)

	assert.Equal(t, branch.UpdateBranch, f.project.CurrentBranch())
	assert.Equal(t, "queue: default\nworker: svc\n", f.project.ReadFile("worker.yaml"))

	l := loadLineage(t, f)
	assert.Equal(t, next.Source("main"), l.Template)
	assert.Equal(t, next.Head(), l.AppliedRevision)
	// The outgoing binding is archived, never discarded.
	require.Len(t, l.History, 1)
	assert.Equal(t, old.Template, l.History[0].Template)
	assert.Equal(t, old.AppliedRevision, l.History[0].AppliedRevision)
	assert.Nil(t, l.History[0].History)
	// Context carries over so the new template renders consistently.
	v, found := l.ContextValue("name")
	assert.True(t, found)
	assert.Equal(t, "svc", v)
}

func TestSwitch_SameTemplate(t *testing.T) {
	f := newFixture(t)

	c := &SwitchCommand{
		Path:     f.path(),
		Template: f.template.Source("main"),
	}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidParam))
}

func TestSwitch_ExistingBranchBlocks(t *testing.T) {
	f := newFixture(t)
	f.project.CheckoutBranch(branch.UpdateBranch, true)
	f.project.CheckoutBranch(f.main, false)

	c := &SwitchCommand{
		Path:     f.path(),
		Template: newSecondTemplate(t).Source("main"),
	}
	_, err := c.Run(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.UpdateInProgress))
}

func TestSwitch_ConflictLeavesLineageUntouched(t *testing.T) {
	f := newFixture(t)
	old := loadLineage(t, f)

	// Both templates carry README.md with different content, so the
	// forced merge hits an add/add conflict on it.
	next := testutil.NewTemplateRepo(t)
	next.WriteFile("README.md", "conflicting readme\n")
	next.Commit("Initial conflicting template")

	c := &SwitchCommand{
		Path:     f.path(),
		Template: next.Source("main"),
	}
	result, err := c.Run(fake.CtxWithNilPrinter())
	require.NoError(t, err)
	require.NotEmpty(t, result.Conflicts)
	assert.Contains(t, result.Conflicts, "README.md")

	l := loadLineage(t, f)
	assert.Equal(t, old.Template, l.Template)
	assert.Empty(t, l.History)
}

func TestSwitch_ChainedHistory(t *testing.T) {
	f := newFixture(t)
	ctx := fake.CtxWithNilPrinter()

	second := newSecondTemplate(t)
	c := &SwitchCommand{Path: f.path(), Template: second.Source("main")}
	result, err := c.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	f.project.CheckoutBranch(f.main, false)
	f.project.Git("merge", branch.UpdateBranch)
	require.NoError(t, branch.Clean(ctx, f.path()))

	third := testutil.NewTemplateRepo(t)
	third.WriteFile("cron.yaml", "schedule: daily\n")
	third.Commit("Initial cron template")

	c = &SwitchCommand{Path: f.path(), Template: third.Source("main")}
	result, err = c.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	l := loadLineage(t, f)
	require.Len(t, l.History, 2)
	assert.Equal(t, f.template.Source("main"), l.History[0].Template)
	assert.Equal(t, second.Source("main"), l.History[1].Template)
}
