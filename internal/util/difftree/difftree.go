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

// Package difftree computes what changed between two rendered file trees.
// It is deliberately independent of any git repository so "what changed in
// the template" can be reasoned about (and tested) without merge mechanics.
package difftree

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Result lists the paths that differ between two trees. Paths are
// slash-separated and relative to the tree roots, sorted lexically.
type Result struct {
	Added    []string
	Removed  []string
	Modified []string
}

// Empty reports whether the two trees were identical.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// AllPaths returns every differing path, sorted.
func (r Result) AllPaths() []string {
	all := make([]string, 0, len(r.Added)+len(r.Removed)+len(r.Modified))
	all = append(all, r.Added...)
	all = append(all, r.Removed...)
	all = append(all, r.Modified...)
	sort.Strings(all)
	return all
}

// Trees compares the file tree at oldDir with the one at newDir. A path
// present only in newDir is added, only in oldDir is removed, and present
// in both with differing content is modified. The .git directory is
// excluded from both sides.
func Trees(oldDir, newDir string) (Result, error) {
	oldFiles, err := listFiles(oldDir)
	if err != nil {
		return Result{}, err
	}
	newFiles, err := listFiles(newDir)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for path := range newFiles {
		if _, found := oldFiles[path]; !found {
			res.Added = append(res.Added, path)
		}
	}
	for path := range oldFiles {
		if _, found := newFiles[path]; !found {
			res.Removed = append(res.Removed, path)
			continue
		}
		same, err := sameContent(filepath.Join(oldDir, path), filepath.Join(newDir, path))
		if err != nil {
			return Result{}, err
		}
		if !same {
			res.Modified = append(res.Modified, path)
		}
	}

	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	sort.Strings(res.Modified)
	return res, nil
}

func listFiles(dir string) (map[string]struct{}, error) {
	files := map[string]struct{}{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		// A missing tree compares as empty.
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, err
	}
	return files, nil
}

func sameContent(a, b string) (bool, error) {
	ab, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	bb, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
