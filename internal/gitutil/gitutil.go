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

// Package gitutil provides the git backend primitives used by the sync,
// switch and setup engines. All primitives shell out to the local git
// executable; nothing here reimplements git plumbing.
package gitutil

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base32"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/footing-dev/footing/internal/errors"
)

// RepoCacheDirEnv is the name of the environment variable that controls the
// cache directory for remote template repos. Defaults to
// UserHomeDir/.footing/repos if unspecified.
const RepoCacheDirEnv = "FOOTING_CACHE_DIR"

// NewLocalGitRunner returns a new GitLocalRunner for the given directory.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewLocalGitRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.E(op, errors.Git,
			fmt.Errorf("no 'git' program on path: %w", err))
	}

	return &GitLocalRunner{
		gitPath: p,
		Dir:     dir,
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command. Omit the 'git' part of the command.
func (g *GitLocalRunner) Run(ctx context.Context, args ...string) (RunResult, error) {
	return g.run(ctx, false, nil, args...)
}

// RunEnv runs a git command with extra environment variables appended to
// the process environment. Omit the 'git' part of the command.
func (g *GitLocalRunner) RunEnv(ctx context.Context, env []string, args ...string) (RunResult, error) {
	return g.run(ctx, false, env, args...)
}

// RunVerbose runs a git command, mirroring its output to the process
// stdout/stderr in addition to capturing it.
func (g *GitLocalRunner) RunVerbose(ctx context.Context, args ...string) (RunResult, error) {
	return g.run(ctx, true, nil, args...)
}

func (g *GitLocalRunner) run(ctx context.Context, verbose bool, env []string, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.run"

	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), env...)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	if verbose {
		cmd.Stdout = io.MultiWriter(cmdStdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(cmdStderr, os.Stderr)
	} else {
		cmd.Stdout = cmdStdout
		cmd.Stderr = cmdStderr
	}

	err := cmd.Run()
	if err != nil {
		return RunResult{}, errors.E(op, errors.Git, &GitExecError{
			Type:    determineErrorType(cmdStderr.String()),
			Args:    args,
			Err:     err,
			Command: args[0],
			StdOut:  cmdStdout.String(),
			StdErr:  cmdStderr.String(),
		})
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// NewGitTemplateRepo returns a new GitTemplateRepo for a remote template
// repository. It initializes the repo cache and fetches all branch and tag
// refs (but no objects) from the remote.
func NewGitTemplateRepo(ctx context.Context, uri string) (*GitTemplateRepo, error) {
	const op errors.Op = "gitutil.NewGitTemplateRepo"

	g := &GitTemplateRepo{
		URI: uri,
	}
	if err := g.updateRefs(ctx); err != nil {
		return nil, errors.E(op, errors.Repo(uri), err)
	}
	return g, nil
}

// GitTemplateRepo represents a remote template repository backed by a local
// cache clone.
type GitTemplateRepo struct {
	URI string

	// Heads contains all head refs in the template repo and the commit
	// each is referencing.
	Heads map[string]string

	// Tags contains all tag refs in the template repo and the commit
	// each is referencing.
	Tags map[string]string
}

// updateRefs fetches all refs from the remote template repo, parses the
// results and caches the commit each ref references. This doesn't download
// any objects, only refs.
func (gtr *GitTemplateRepo) updateRefs(ctx context.Context) error {
	const op errors.Op = "gitutil.updateRefs"
	repoCacheDir, err := gtr.cacheRepo(ctx, gtr.URI, nil)
	if err != nil {
		return errors.E(op, errors.Repo(gtr.URI), err)
	}

	gitRunner, err := NewLocalGitRunner(repoCacheDir)
	if err != nil {
		return errors.E(op, errors.Repo(gtr.URI), err)
	}

	rr, err := gitRunner.Run(ctx, "ls-remote", "--heads", "--tags", "--refs", "origin")
	if err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = gtr.URI
		})
		return errors.E(op, errors.Repo(gtr.URI), err)
	}

	heads := make(map[string]string)
	tags := make(map[string]string)

	re := regexp.MustCompile(`^([a-z0-9]+)\s+refs/(heads|tags)/(.+)$`)
	scanner := bufio.NewScanner(bytes.NewBufferString(rr.Stdout))
	for scanner.Scan() {
		txt := scanner.Text()
		res := re.FindStringSubmatch(txt)
		if len(res) == 0 {
			continue
		}
		switch res[2] {
		case "heads":
			heads[res[3]] = res[1]
		case "tags":
			tags[res[3]] = res[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.E(op, errors.Repo(gtr.URI), errors.Git,
			fmt.Errorf("error parsing response from git: %w", err))
	}
	gtr.Heads = heads
	gtr.Tags = tags
	return nil
}

// FetchRevisions fetches the provided revisions and their objects into the
// cache repo and returns the path to the local clone.
func (gtr *GitTemplateRepo) FetchRevisions(ctx context.Context, revisions ...string) (string, error) {
	const op errors.Op = "gitutil.FetchRevisions"
	dir, err := gtr.cacheRepo(ctx, gtr.URI, revisions)
	if err != nil {
		return "", errors.E(op, errors.Repo(gtr.URI), err)
	}
	return dir, nil
}

// GetDefaultBranch returns the name of the branch pointed to by the HEAD
// symref of the remote. This is the default branch of the repository.
func (gtr *GitTemplateRepo) GetDefaultBranch(ctx context.Context) (string, error) {
	const op errors.Op = "gitutil.GetDefaultBranch"
	cacheRepo, err := gtr.cacheRepo(ctx, gtr.URI, nil)
	if err != nil {
		return "", errors.E(op, errors.Repo(gtr.URI), err)
	}

	gitRunner, err := NewLocalGitRunner(cacheRepo)
	if err != nil {
		return "", errors.E(op, errors.Repo(gtr.URI), err)
	}

	rr, err := gitRunner.Run(ctx, "ls-remote", "--symref", "origin", "HEAD")
	if err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = gtr.URI
		})
		return "", errors.E(op, errors.Repo(gtr.URI), err)
	}
	if rr.Stdout == "" {
		return "", errors.E(op, errors.Repo(gtr.URI),
			fmt.Errorf("unable to detect default branch in repo"))
	}

	re := regexp.MustCompile(`ref: refs/heads/([^\s/]+)\s*HEAD`)
	match := re.FindStringSubmatch(rr.Stdout)
	if len(match) != 2 {
		return "", errors.E(op, errors.Repo(gtr.URI), errors.Git,
			fmt.Errorf("unexpected response from git when determining default branch: %s", rr.Stdout))
	}
	return match[1], nil
}

// ResolveBranch resolves the branch to a commit SHA based on the cached
// information about refs in the template repo. If the branch doesn't exist,
// the last return value will be false.
func (gtr *GitTemplateRepo) ResolveBranch(branch string) (string, bool) {
	branch = strings.TrimPrefix(branch, "refs/heads/")
	for head, commit := range gtr.Heads {
		if head == branch {
			return commit, true
		}
	}
	return "", false
}

// ResolveTag resolves the tag to a commit SHA based on the cached
// information about refs in the template repo. If the tag doesn't exist,
// the last return value will be false.
func (gtr *GitTemplateRepo) ResolveTag(tag string) (string, bool) {
	tag = strings.TrimPrefix(tag, "refs/tags/")
	for t, commit := range gtr.Tags {
		if t == tag {
			return commit, true
		}
	}
	return "", false
}

// ResolveRef resolves the ref (either branch or tag) to a commit SHA. If
// the ref doesn't exist in the template repo, the last return value will
// be false.
func (gtr *GitTemplateRepo) ResolveRef(ref string) (string, bool) {
	commit, found := gtr.ResolveBranch(ref)
	if found {
		return commit, true
	}
	return gtr.ResolveTag(ref)
}

// IsAncestor reports whether ancestor is an ancestor of descendant in the
// cached template history. Both revisions must already be fetched.
func (gtr *GitTemplateRepo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	const op errors.Op = "gitutil.IsAncestor"
	dir, err := gtr.cacheRepo(ctx, gtr.URI, nil)
	if err != nil {
		return false, errors.E(op, errors.Repo(gtr.URI), err)
	}
	gitRunner, err := NewLocalGitRunner(dir)
	if err != nil {
		return false, errors.E(op, errors.Repo(gtr.URI), err)
	}
	_, err = gitRunner.Run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		var execErr *GitExecError
		if errors.As(err, &execErr) {
			// Exit code 1 means "not an ancestor". Anything else is a real
			// failure.
			if ee, ok := execErr.Err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
				return false, nil
			}
		}
		return false, errors.E(op, errors.Repo(gtr.URI), err)
	}
	return true, nil
}

// RevList returns the revisions on the first-parent chain from (exclusive)
// to to (inclusive), ordered oldest first. An empty from returns the full
// chain from the root commit.
func (gtr *GitTemplateRepo) RevList(ctx context.Context, from, to string) ([]string, error) {
	const op errors.Op = "gitutil.RevList"
	dir, err := gtr.cacheRepo(ctx, gtr.URI, nil)
	if err != nil {
		return nil, errors.E(op, errors.Repo(gtr.URI), err)
	}
	gitRunner, err := NewLocalGitRunner(dir)
	if err != nil {
		return nil, errors.E(op, errors.Repo(gtr.URI), err)
	}

	args := []string{"rev-list", "--reverse", "--first-parent"}
	if from != "" {
		args = append(args, fmt.Sprintf("%s..%s", from, to))
	} else {
		args = append(args, to)
	}
	rr, err := gitRunner.Run(ctx, args...)
	if err != nil {
		return nil, errors.E(op, errors.Repo(gtr.URI), err)
	}

	var revisions []string
	scanner := bufio.NewScanner(strings.NewReader(rr.Stdout))
	for scanner.Scan() {
		if rev := strings.TrimSpace(scanner.Text()); rev != "" {
			revisions = append(revisions, rev)
		}
	}
	return revisions, nil
}

// WorktreeAt checks out the given revision into a new detached worktree
// under dir and returns its path. The caller is responsible for removing
// the worktree directory.
func (gtr *GitTemplateRepo) WorktreeAt(ctx context.Context, revision string) (string, func(), error) {
	const op errors.Op = "gitutil.WorktreeAt"
	cacheDir, err := gtr.cacheRepo(ctx, gtr.URI, nil)
	if err != nil {
		return "", nil, errors.E(op, errors.Repo(gtr.URI), err)
	}
	gitRunner, err := NewLocalGitRunner(cacheDir)
	if err != nil {
		return "", nil, errors.E(op, errors.Repo(gtr.URI), err)
	}

	dir, err := os.MkdirTemp("", "footing-template-")
	if err != nil {
		return "", nil, errors.E(op, errors.IO, fmt.Errorf("error creating temp directory: %w", err))
	}
	worktree := filepath.Join(dir, "worktree")
	if _, err := gitRunner.Run(ctx, "worktree", "add", "--detach", worktree, revision); err != nil {
		os.RemoveAll(dir)
		return "", nil, errors.E(op, errors.Repo(gtr.URI), err)
	}
	cleanup := func() {
		ctx := context.Background()
		_, _ = gitRunner.Run(ctx, "worktree", "remove", "--force", worktree)
		os.RemoveAll(dir)
	}
	return worktree, cleanup, nil
}

// getRepoDir returns the cache directory name for a remote repo. This takes
// the md5 hash of the repo uri and base32 encodes it to make sure it doesn't
// contain characters that aren't legal in directory names.
func (gtr *GitTemplateRepo) getRepoDir(uri string) string {
	return strings.ToLower(base32.StdEncoding.EncodeToString(md5.New().Sum([]byte(uri))))
}

func (gtr *GitTemplateRepo) getRepoCacheDir() (string, error) {
	const op errors.Op = "gitutil.getRepoCacheDir"
	var err error
	dir := os.Getenv(RepoCacheDirEnv)
	if dir != "" {
		return dir, nil
	}

	// cache location unspecified, use UserHomeDir/.footing/repos
	dir, err = os.UserHomeDir()
	if err != nil {
		return "", errors.E(op, errors.IO, fmt.Errorf(
			"error looking up user home dir: %w", err))
	}
	return filepath.Join(dir, ".footing", "repos"), nil
}

// cacheRepo initializes the cache clone for a remote repo if needed and
// fetches the provided refs into it.
func (gtr *GitTemplateRepo) cacheRepo(ctx context.Context, uri string, requiredRefs []string) (string, error) {
	const op errors.Op = "gitutil.cacheRepo"
	cacheDir, err := gtr.getRepoCacheDir()
	if err != nil {
		return "", errors.E(op, err)
	}
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return "", errors.E(op, errors.IO, fmt.Errorf(
			"error creating cache directory for repo: %w", err))
	}

	gitRunner, err := NewLocalGitRunner(cacheDir)
	if err != nil {
		return "", errors.E(op, errors.Repo(uri), err)
	}
	uriSha := gtr.getRepoDir(uri)
	repoCacheDir := filepath.Join(cacheDir, uriSha)
	if _, err := os.Stat(repoCacheDir); os.IsNotExist(err) {
		if _, err := gitRunner.Run(ctx, "init", uriSha); err != nil {
			return "", errors.E(op, errors.Git, fmt.Errorf("error running `git init`: %w", err))
		}
		gitRunner.Dir = repoCacheDir
		if _, err = gitRunner.Run(ctx, "remote", "add", "origin", uri); err != nil {
			return "", errors.E(op, errors.Git, fmt.Errorf("error adding origin remote: %w", err))
		}
	} else {
		gitRunner.Dir = repoCacheDir
	}

	triedFallback := false
	for _, s := range requiredRefs {
		if _, err := gitRunner.Run(ctx, "fetch", "origin", s); err != nil {
			if !triedFallback { // only fall back to fetching everything once
				// If the ref is a commit the remote won't serve directly, a
				// full fetch of origin is the only way to obtain it.
				if _, retryErr := gitRunner.Run(ctx, "fetch", "origin"); retryErr != nil {
					AmendGitExecError(retryErr, func(e *GitExecError) {
						e.Repo = uri
						e.Ref = s
					})
					return "", errors.E(op, errors.Git, fmt.Errorf(
						"error running `git fetch` for origin: %w", err))
				}
				triedFallback = true
			}
			// verify we got the commit
			if _, err = gitRunner.Run(ctx, "cat-file", "-e", s); err != nil {
				AmendGitExecError(err, func(e *GitExecError) {
					e.Repo = uri
					e.Ref = s
				})
				return "", errors.E(op, errors.Git, fmt.Errorf(
					"error verifying results from fetch: %w", err))
			}
		}
	}
	return repoCacheDir, nil
}
