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

// Package forge queries a git hosting service's search API for templates
// and the projects generated from them. Credentials are passed explicitly
// through Config rather than read from process-wide state so the sync core
// stays testable with injected fakes.
package forge

import (
	"context"
	"time"

	"github.com/footing-dev/footing/internal/lineage"
)

// TemplateTopic is the repository topic that marks a repo as a footing
// template.
const TemplateTopic = "footing-template"

// DefaultTimeout bounds each search API call.
const DefaultTimeout = 30 * time.Second

// Config carries the ambient configuration for a forge.
type Config struct {
	// BaseURL is the root of the forge's REST API,
	// e.g. https://api.github.com.
	BaseURL string

	// Token is the bearer token used for authenticated search. Empty
	// means anonymous access.
	Token string

	// Timeout bounds each API call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// ProjectRef identifies a project generated from a template.
type ProjectRef struct {
	// Name is the forge-qualified repository name, e.g. org/service-a.
	Name string

	// CloneURL is the repository clone URL.
	CloneURL string
}

// Client searches a forge for templates and projects.
type Client interface {
	// ListTemplates returns the template repositories published on the
	// forge.
	ListTemplates(ctx context.Context) ([]lineage.TemplateSource, error)

	// ListProjects returns the projects bound to the given template.
	ListProjects(ctx context.Context, template lineage.TemplateSource) ([]ProjectRef, error)
}
