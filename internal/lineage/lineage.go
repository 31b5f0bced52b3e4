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

// Package lineage defines the record binding a project to the template and
// revision it was generated from or last synced to, and the store that
// persists it inside the project repository.
package lineage

import (
	"fmt"
	"strings"
)

const (
	// FileName is the name of the lineage record at the project root. It is
	// stored as YAML so reviewers can inspect template-binding changes the
	// same way they review code.
	FileName = "footing.yaml"

	APIVersion = "footing.dev/v1"
	Kind       = "Lineage"
)

// TemplateSource is an addressable template location. It is immutable
// within a lineage; only a switch installs a different source.
type TemplateSource struct {
	// Forge is the base URL of the git hosting service the template lives
	// on, e.g. https://github.com.
	Forge string `yaml:"forge,omitempty"`

	// Repo is the clone URL of the template repository.
	Repo string `yaml:"repo"`

	// Ref optionally pins the template to a branch, tag or semver
	// constraint over tags. Empty means the default branch.
	Ref string `yaml:"ref,omitempty"`
}

// String returns a display form of the source.
func (ts TemplateSource) String() string {
	if ts.Ref == "" {
		return ts.Repo
	}
	return ts.Repo + "@" + ts.Ref
}

// Validate checks that the source is addressable.
func (ts TemplateSource) Validate() error {
	if strings.TrimSpace(ts.Repo) == "" {
		return fmt.Errorf("template source must specify a repo")
	}
	return nil
}

// Parameter is a single template context parameter. Parameters are kept as
// an ordered list so the rendered record is stable across saves.
type Parameter struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Lineage binds a project to its template. Exactly one active lineage
// exists per project; it travels with the project repository.
type Lineage struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`

	// Template is the source the project is currently bound to.
	Template TemplateSource `yaml:"template"`

	// AppliedRevision is the template revision most recently merged into
	// the project. It always names a revision present in the project's
	// imported template history and only advances after a conflict-free
	// merge.
	AppliedRevision string `yaml:"appliedRevision"`

	// Context is the ordered set of parameters the template was rendered
	// with.
	Context []Parameter `yaml:"context,omitempty"`

	// History holds the lineages this project was previously bound to,
	// oldest first. Switching appends; entries are never mutated or
	// removed.
	History []Lineage `yaml:"history,omitempty"`
}

// New returns a lineage for the given source and revision.
func New(source TemplateSource, revision string, context []Parameter) *Lineage {
	return &Lineage{
		APIVersion:      APIVersion,
		Kind:            Kind,
		Template:        source,
		AppliedRevision: revision,
		Context:         context,
	}
}

// Validate checks the structural invariants of the record.
func (l *Lineage) Validate() error {
	if l.APIVersion != APIVersion {
		return fmt.Errorf("unsupported apiVersion %q, must be %q", l.APIVersion, APIVersion)
	}
	if l.Kind != Kind {
		return fmt.Errorf("unsupported kind %q, must be %q", l.Kind, Kind)
	}
	if err := l.Template.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(l.AppliedRevision) == "" {
		return fmt.Errorf("lineage must record an applied revision")
	}
	seen := map[string]bool{}
	for _, p := range l.Context {
		if p.Name == "" {
			return fmt.Errorf("context parameter with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate context parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ContextValue returns the value of the named context parameter.
func (l *Lineage) ContextValue(name string) (string, bool) {
	for _, p := range l.Context {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Archive returns a copy of the lineage with its history stripped,
// suitable for appending to a successor's history.
func (l *Lineage) Archive() Lineage {
	cp := *l
	cp.History = nil
	cp.Context = append([]Parameter(nil), l.Context...)
	return cp
}
