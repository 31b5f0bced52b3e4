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

// Package resolve maps a template source to concrete revisions: the
// revision currently published by the template repository and the revision
// recorded as applied in a project's lineage.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/gitutil"
	"github.com/footing-dev/footing/internal/lineage"
)

// DefaultTimeout bounds each network call against the template repository.
// The resolver never retries; transient failures surface to the caller.
const DefaultTimeout = 30 * time.Second

// Resolver resolves template sources against their remote repositories.
// The zero value is ready to use.
type Resolver struct {
	// Timeout bounds each remote call. Zero means DefaultTimeout.
	Timeout time.Duration

	// repos caches remote repo handles per clone URL within one
	// invocation so multi-step operations hit the network once.
	repos map[string]*gitutil.GitTemplateRepo
}

// Repo returns the remote repo handle for the source, establishing the
// local cache clone on first use. Network and auth failures are reported
// with kind Unreachable, a missing repository with kind TemplateNotFound.
func (r *Resolver) Repo(ctx context.Context, source lineage.TemplateSource) (*gitutil.GitTemplateRepo, error) {
	const op errors.Op = "resolve.Repo"
	if repo, found := r.repos[source.Repo]; found {
		return repo, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gitutil.NewGitTemplateRepo(ctx, source.Repo)
	if err != nil {
		return nil, errors.E(op, errors.Repo(source.Repo), classify(ctx, err), err)
	}
	if r.repos == nil {
		r.repos = make(map[string]*gitutil.GitTemplateRepo)
	}
	r.repos[source.Repo] = repo
	return repo, nil
}

// Current resolves the revision currently published by the template: the
// commit of the pinned ref, the highest tag satisfying a semver constraint,
// or the head of the default branch when no ref is pinned.
func (r *Resolver) Current(ctx context.Context, source lineage.TemplateSource) (string, error) {
	const op errors.Op = "resolve.Current"
	repo, err := r.Repo(ctx, source)
	if err != nil {
		return "", errors.E(op, err)
	}

	if len(repo.Heads) == 0 && len(repo.Tags) == 0 {
		return "", errors.E(op, errors.Repo(source.Repo), errors.TemplateNotFound,
			fmt.Errorf("template repository has no history"))
	}

	if source.Ref == "" {
		tctx, cancel := r.withTimeout(ctx)
		defer cancel()
		branch, err := repo.GetDefaultBranch(tctx)
		if err != nil {
			return "", errors.E(op, errors.Repo(source.Repo), classify(tctx, err), err)
		}
		commit, found := repo.ResolveBranch(branch)
		if !found {
			return "", errors.E(op, errors.Repo(source.Repo), errors.TemplateNotFound,
				fmt.Errorf("default branch %q has no commits", branch))
		}
		return commit, nil
	}

	if commit, found := repo.ResolveRef(source.Ref); found {
		return commit, nil
	}

	if commit, found := resolveConstraint(repo, source.Ref); found {
		return commit, nil
	}

	return "", errors.E(op, errors.Repo(source.Repo), errors.TemplateNotFound,
		fmt.Errorf("ref %q not found in template repository", source.Ref))
}

// Applied returns the revision recorded in the stored lineage. It performs
// no network or repository access.
func Applied(l *lineage.Lineage) string {
	return l.AppliedRevision
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// resolveConstraint treats ref as a semver constraint over the repository
// tags and returns the commit of the highest satisfying version.
func resolveConstraint(repo *gitutil.GitTemplateRepo, ref string) (string, bool) {
	constraint, err := semver.NewConstraint(ref)
	if err != nil {
		return "", false
	}

	type taggedVersion struct {
		tag     string
		version *semver.Version
	}
	var candidates []taggedVersion
	for tag := range repo.Tags {
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		if constraint.Check(v) {
			candidates = append(candidates, taggedVersion{tag: tag, version: v})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version.LessThan(candidates[j].version)
	})
	commit, found := repo.ResolveTag(candidates[len(candidates)-1].tag)
	return commit, found
}

// classify maps a git backend failure onto the template error taxonomy.
// Deadline expiry and connectivity failures are unreachable conditions; a
// repository the forge doesn't know about is not found.
func classify(ctx context.Context, err error) errors.Kind {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Unreachable
	}
	var execErr *gitutil.GitExecError
	if errors.As(err, &execErr) {
		switch execErr.Type {
		case gitutil.RepositoryNotFound:
			return errors.TemplateNotFound
		case gitutil.RepositoryUnavailable, gitutil.HTTPSAuthRequired:
			return errors.Unreachable
		}
	}
	return errors.Unreachable
}
