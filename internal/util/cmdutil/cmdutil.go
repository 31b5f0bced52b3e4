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

// Package cmdutil contains helpers shared by the command packages.
package cmdutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/footing-dev/footing/internal/errors"
	"github.com/footing-dev/footing/internal/lineage"
	"github.com/footing-dev/footing/internal/types"
)

// StackOnError prints the error stack when enabled via --stack-trace.
var StackOnError bool

// ExitError carries an explicit process exit code through cobra. Commands
// whose exit codes are part of the automation contract return it instead
// of a plain error.
type ExitError struct {
	// Code is the process exit code.
	Code int

	// Err is the underlying error. May be nil when the non-zero exit is
	// an expected outcome (e.g. drift detected) already reported through
	// the printer.
	Err error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ResolveProjectPath turns a command argument into the absolute project
// path, defaulting to the current working directory.
func ResolveProjectPath(args []string) (types.UniquePath, error) {
	const op errors.Op = "cmdutil.ResolveProjectPath"
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.E(op, errors.IO, err)
	}
	return types.UniquePath(abs), nil
}

// ParseTemplateSource parses a REPO[@REF] command argument. The ref
// separator is only recognized after the final path segment so ssh clone
// URLs of the form git@host:org/repo parse as plain repos.
func ParseTemplateSource(arg string) (lineage.TemplateSource, error) {
	const op errors.Op = "cmdutil.ParseTemplateSource"
	source := lineage.TemplateSource{Repo: arg}
	if i := strings.LastIndex(arg, "@"); i > strings.LastIndex(arg, "/") {
		source.Repo, source.Ref = arg[:i], arg[i+1:]
	}
	if err := source.Validate(); err != nil {
		return lineage.TemplateSource{}, errors.E(op, errors.InvalidParam, err)
	}
	return source, nil
}

// ParseParams parses repeated key=value flags into ordered parameters.
// Later values for the same key win but keep their original position.
func ParseParams(values []string) ([]lineage.Parameter, error) {
	const op errors.Op = "cmdutil.ParseParams"
	index := map[string]int{}
	var params []lineage.Parameter
	for _, v := range values {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.E(op, errors.InvalidParam,
				fmt.Errorf("parameter %q must be of the form key=value", v))
		}
		if i, found := index[parts[0]]; found {
			params[i].Value = parts[1]
			continue
		}
		index[parts[0]] = len(params)
		params = append(params, lineage.Parameter{Name: parts[0], Value: parts[1]})
	}
	return params, nil
}
