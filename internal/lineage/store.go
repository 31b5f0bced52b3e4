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

package lineage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/types"
)

// Load reads the lineage record from the project at path. A missing record
// is reported with kind NotFound via os.ErrNotExist so callers can treat an
// uninitialized project distinctly from a damaged one, which is reported
// with kind CorruptLineage.
func Load(path types.UniquePath) (*Lineage, error) {
	const op errors.Op = "lineage.Load"
	b, err := os.ReadFile(filepath.Join(path.String(), FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, path, err)
		}
		return nil, errors.E(op, path, errors.IO, err)
	}

	l := &Lineage{}
	if err := yaml.Unmarshal(b, l); err != nil {
		return nil, errors.E(op, path, errors.CorruptLineage,
			fmt.Errorf("unable to parse %s: %w", FileName, err))
	}
	if err := l.Validate(); err != nil {
		return nil, errors.E(op, path, errors.CorruptLineage, err)
	}
	return l, nil
}

// Save atomically writes the lineage record for the project at path. The
// record transitions wholly or not at all; a concurrent reader never
// observes a partially-written state.
func Save(path types.UniquePath, l *Lineage) error {
	const op errors.Op = "lineage.Save"
	if err := l.Validate(); err != nil {
		return errors.E(op, path, errors.InvalidParam, err)
	}

	b, err := yaml.Marshal(l)
	if err != nil {
		return errors.E(op, path, errors.Internal, err)
	}

	// Write to a temp file in the same directory and rename into place so
	// the update is atomic on POSIX filesystems.
	tmp, err := os.CreateTemp(path.String(), "."+FileName+".*")
	if err != nil {
		return errors.E(op, path, errors.IO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.E(op, path, errors.IO, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.E(op, path, errors.IO, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.E(op, path, errors.IO, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(path.String(), FileName)); err != nil {
		return errors.E(op, path, errors.IO, err)
	}
	return nil
}

// Exists reports whether a lineage record is present at path.
func Exists(path types.UniquePath) bool {
	_, err := os.Stat(filepath.Join(path.String(), FileName))
	return err == nil
}
