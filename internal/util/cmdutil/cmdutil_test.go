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

package cmdutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
)

func TestResolveProjectPath(t *testing.T) {
	p, err := ResolveProjectPath([]string{"/tmp/proj"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/proj", p.String())

	p, err = ResolveProjectPath(nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.String()))
}

func TestParseTemplateSource(t *testing.T) {
	testCases := map[string]struct {
		arg  string
		want lineage.TemplateSource
	}{
		"plain https": {
			arg:  "https://example.com/org/t.git",
			want: lineage.TemplateSource{Repo: "https://example.com/org/t.git"},
		},
		"https with ref": {
			arg:  "https://example.com/org/t.git@v1.2.0",
			want: lineage.TemplateSource{Repo: "https://example.com/org/t.git", Ref: "v1.2.0"},
		},
		"ssh without ref": {
			arg:  "git@example.com:org/t.git",
			want: lineage.TemplateSource{Repo: "git@example.com:org/t.git"},
		},
		"ssh with ref": {
			arg:  "git@example.com:org/t.git@main",
			want: lineage.TemplateSource{Repo: "git@example.com:org/t.git", Ref: "main"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			got, err := ParseTemplateSource(tc.arg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTemplateSource_Empty(t *testing.T) {
	_, err := ParseTemplateSource("")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidParam))
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams([]string{"name=svc", "team=platform", "name=other"})
	require.NoError(t, err)
	assert.Equal(t, []lineage.Parameter{
		{Name: "name", Value: "other"},
		{Name: "team", Value: "platform"},
	}, params)
}

func TestParseParams_Invalid(t *testing.T) {
	for _, arg := range []string{"novalue", "=x"} {
		_, err := ParseParams([]string{arg})
		require.Error(t, err, arg)
		assert.True(t, errors.IsKind(err, errors.InvalidParam))
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 2, Err: fmt.Errorf("boom")}
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())

	var target *ExitError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, 2, target.Code)
}
