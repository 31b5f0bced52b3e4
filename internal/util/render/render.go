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

// Package render materializes a template working tree into a project file
// tree by expanding the lineage context into file paths and file contents.
// It operates purely on directories and never touches a git repository.
package render

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
)

// DescriptorFileName is the optional template descriptor at the template
// root declaring the parameters the template accepts.
const DescriptorFileName = "footing-template.yaml"

// Descriptor declares the parameters a template accepts.
type Descriptor struct {
	// Name is the display name of the template.
	Name string `yaml:"name,omitempty"`

	// Parameters lists the accepted parameters in prompt order.
	Parameters []DescriptorParameter `yaml:"parameters,omitempty"`
}

// DescriptorParameter is a single declared parameter.
type DescriptorParameter struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default,omitempty"`
}

// ReadDescriptor loads the template descriptor from the template root. A
// missing descriptor is not an error; templates without one accept any
// parameters.
func ReadDescriptor(templateDir string) (*Descriptor, error) {
	const op errors.Op = "render.ReadDescriptor"
	b, err := os.ReadFile(filepath.Join(templateDir, DescriptorFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Descriptor{}, nil
		}
		return nil, errors.E(op, errors.IO, err)
	}
	d := &Descriptor{}
	if err := yaml.Unmarshal(b, d); err != nil {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("unable to parse %s: %w", DescriptorFileName, err))
	}
	return d, nil
}

// MergeContext overlays the provided parameters on the descriptor defaults,
// preserving descriptor order for declared parameters and appending unknown
// ones in the order given.
func MergeContext(d *Descriptor, params []lineage.Parameter) []lineage.Parameter {
	byName := map[string]string{}
	for _, p := range params {
		byName[p.Name] = p.Value
	}

	var merged []lineage.Parameter
	declared := map[string]bool{}
	for _, dp := range d.Parameters {
		declared[dp.Name] = true
		value := dp.Default
		if v, ok := byName[dp.Name]; ok {
			value = v
		}
		merged = append(merged, lineage.Parameter{Name: dp.Name, Value: value})
	}
	for _, p := range params {
		if !declared[p.Name] {
			merged = append(merged, p)
		}
	}
	return merged
}

// Tree renders the template tree rooted at templateDir into destDir. Both
// path segments and file contents are treated as Go templates evaluated
// against the context. Files that aren't valid templates (binaries, files
// that merely contain template-looking bytes) are copied through verbatim.
// The .git directory and the template descriptor are excluded.
func Tree(templateDir, destDir string, context []lineage.Parameter) error {
	const op errors.Op = "render.Tree"

	data := map[string]string{}
	for _, p := range context {
		data[p.Name] = p.Value
	}

	err := filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(destDir, 0o755)
		}
		if d.Name() == ".git" {
			// In a linked worktree .git is a file, not a directory.
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == DescriptorFileName {
			return nil
		}

		outRel, err := renderPath(rel, data)
		if err != nil {
			return fmt.Errorf("rendering path %q: %w", rel, err)
		}
		outPath := filepath.Join(destDir, outRel)

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(outPath, renderContent(b, data), info.Mode().Perm())
	})
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// renderPath expands template actions in each path segment.
func renderPath(rel string, data map[string]string) (string, error) {
	segments := strings.Split(rel, string(filepath.Separator))
	for i, seg := range segments {
		if !strings.Contains(seg, "{{") {
			continue
		}
		out, err := execute(seg, data)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", fmt.Errorf("path segment %q rendered to an empty string", seg)
		}
		segments[i] = out
	}
	return filepath.Join(segments...), nil
}

// renderContent expands template actions in file contents. Content that
// fails to parse or execute is passed through unchanged so templates can
// carry binaries and files with non-template uses of '{{'.
func renderContent(b []byte, data map[string]string) []byte {
	if !bytes.Contains(b, []byte("{{")) {
		return b
	}
	out, err := execute(string(b), data)
	if err != nil {
		return b
	}
	return []byte(out)
}

func execute(text string, data map[string]string) (string, error) {
	tmpl, err := template.New("footing").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
