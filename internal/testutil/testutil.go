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

// Package testutil manages local git repositories for testing. Template
// and project fixtures are real repositories driven through the git CLI so
// tests exercise the same plumbing the engines use.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
)

// TestRepo manages a local git repository for testing.
type TestRepo struct {
	T *testing.T

	// RepoDirectory is the temp directory of the git repo.
	RepoDirectory string
}

// ConfigureCache points the repo cache at a per-test temp directory so
// tests never share clones or touch the user's real cache.
func ConfigureCache(t *testing.T) {
	t.Setenv(gitutil.RepoCacheDirEnv, t.TempDir())
}

// NewTemplateRepo creates an empty git repository to act as a template.
func NewTemplateRepo(t *testing.T) *TestRepo {
	g := &TestRepo{
		T:             t,
		RepoDirectory: t.TempDir(),
	}
	g.Git("-c", "init.defaultBranch=main", "init")
	g.Git("config", "user.name", "test")
	g.Git("config", "user.email", "test@example.com")
	return g
}

// NewProjectRepo creates an empty git repository with an initial commit to
// act as a project.
func NewProjectRepo(t *testing.T) *TestRepo {
	g := NewTemplateRepo(t)
	g.WriteFile("README.md", "project\n")
	g.Commit("Initial commit")
	return g
}

// Attach wraps an existing repository directory, e.g. a project created
// through setup.
func Attach(t *testing.T, dir string) *TestRepo {
	return &TestRepo{T: t, RepoDirectory: dir}
}

// URI returns the file URI of the repository, usable as a clone URL.
func (g *TestRepo) URI() string {
	return "file://" + g.RepoDirectory
}

// Source returns a template source addressing the repository.
func (g *TestRepo) Source(ref string) lineage.TemplateSource {
	return lineage.TemplateSource{Repo: g.URI(), Ref: ref}
}

// Git runs a git command in the repository and fails the test on error.
// It returns trimmed stdout.
func (g *TestRepo) Git(args ...string) string {
	g.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = g.RepoDirectory
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	require.NoError(g.T, err, "git %s: %s", strings.Join(args, " "), string(out))
	return strings.TrimSpace(string(out))
}

// WriteFile writes a file relative to the repository root, creating parent
// directories as needed.
func (g *TestRepo) WriteFile(path, content string) {
	g.T.Helper()
	abs := filepath.Join(g.RepoDirectory, path)
	require.NoError(g.T, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(g.T, os.WriteFile(abs, []byte(content), 0o644))
}

// DeleteFile removes a file relative to the repository root.
func (g *TestRepo) DeleteFile(path string) {
	g.T.Helper()
	require.NoError(g.T, os.Remove(filepath.Join(g.RepoDirectory, path)))
}

// ReadFile returns the content of a file relative to the repository root.
func (g *TestRepo) ReadFile(path string) string {
	g.T.Helper()
	data, err := os.ReadFile(filepath.Join(g.RepoDirectory, path))
	require.NoError(g.T, err)
	return string(data)
}

// HasFile reports whether a file exists relative to the repository root.
func (g *TestRepo) HasFile(path string) bool {
	_, err := os.Stat(filepath.Join(g.RepoDirectory, path))
	return err == nil
}

// Commit stages everything and commits, returning the commit sha.
func (g *TestRepo) Commit(message string) string {
	g.T.Helper()
	g.Git("add", "-A")
	g.Git("commit", "--allow-empty", "-m", message)
	return g.Git("rev-parse", "HEAD")
}

// Tag creates a lightweight tag at HEAD.
func (g *TestRepo) Tag(name string) {
	g.T.Helper()
	g.Git("tag", name)
}

// CheckoutBranch checks out a branch, optionally creating it.
func (g *TestRepo) CheckoutBranch(branch string, create bool) {
	g.T.Helper()
	if create {
		g.Git("checkout", "-b", branch)
		return
	}
	g.Git("checkout", branch)
}

// CurrentBranch returns the abbreviated name of the checked-out branch.
func (g *TestRepo) CurrentBranch() string {
	g.T.Helper()
	return g.Git("rev-parse", "--abbrev-ref", "HEAD")
}

// Head returns the sha of HEAD.
func (g *TestRepo) Head() string {
	g.T.Helper()
	return g.Git("rev-parse", "HEAD")
}
