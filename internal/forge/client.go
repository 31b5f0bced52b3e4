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

package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
)

// NewClient returns a Client for the forge described by cfg.
func NewClient(cfg Config) (Client, error) {
	const op errors.Op = "forge.NewClient"
	if cfg.BaseURL == "" {
		return nil, errors.E(op, errors.MissingParam, fmt.Errorf("forge base URL must be provided"))
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// httpClient implements Client against a GitHub-compatible search API.
type httpClient struct {
	cfg  Config
	http *http.Client
}

type repoResult struct {
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	HTMLURL  string `json:"html_url"`
}

type repoSearchResponse struct {
	Items []repoResult `json:"items"`
}

type codeSearchResponse struct {
	Items []struct {
		Repository repoResult `json:"repository"`
	} `json:"items"`
}

func (c *httpClient) ListTemplates(ctx context.Context) ([]lineage.TemplateSource, error) {
	const op errors.Op = "forge.ListTemplates"

	query := url.Values{}
	query.Set("q", "topic:"+TemplateTopic)

	var resp repoSearchResponse
	if err := c.get(ctx, "/search/repositories", query, &resp); err != nil {
		return nil, errors.E(op, errors.Repo(c.cfg.BaseURL), err)
	}

	templates := make([]lineage.TemplateSource, 0, len(resp.Items))
	for _, item := range resp.Items {
		templates = append(templates, lineage.TemplateSource{
			Forge: c.cfg.BaseURL,
			Repo:  item.CloneURL,
		})
	}
	return templates, nil
}

func (c *httpClient) ListProjects(ctx context.Context, template lineage.TemplateSource) ([]ProjectRef, error) {
	const op errors.Op = "forge.ListProjects"

	// Projects are found through the lineage record they carry: every
	// generated project has a footing.yaml naming the template repo.
	query := url.Values{}
	query.Set("q", fmt.Sprintf("filename:%s %q", lineage.FileName, template.Repo))

	var resp codeSearchResponse
	if err := c.get(ctx, "/search/code", query, &resp); err != nil {
		return nil, errors.E(op, errors.Repo(c.cfg.BaseURL), err)
	}

	seen := map[string]bool{}
	var projects []ProjectRef
	for _, item := range resp.Items {
		if seen[item.Repository.FullName] {
			continue
		}
		seen[item.Repository.FullName] = true
		projects = append(projects, ProjectRef{
			Name:     item.Repository.FullName,
			CloneURL: item.Repository.CloneURL,
		})
	}
	return projects, nil
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	const op errors.Op = "forge.get"
	u := c.cfg.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.E(op, errors.Unreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.E(op, errors.Unreachable, fmt.Errorf(
			"forge responded with status %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.E(op, errors.Unreachable, fmt.Errorf(
			"unable to parse forge response: %w", err))
	}
	return nil
}
