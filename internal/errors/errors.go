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

// Package errors defines the error handling used by the footing codebase.
package errors

import (
	"fmt"
	"strings"

	"github.com/footing-dev/footing/internal/types"
)

// Error is an implementation of the error interface used throughout the
// footing codebase. It is based on the design in
// https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the path of the project involved in the operation.
	Path types.UniquePath

	// Op is the operation being performed, for ex. sync.Run, lineage.Load.
	Op Op

	// Kind refers to the class of error.
	Kind Kind

	// Repo is the template repository involved, if any.
	Repo Repo

	// Err refers to the wrapped error (if any).
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("project ")
		b.WriteString(string(e.Path))
	}

	if e.Repo != "" {
		pad(b, ": ")
		b.WriteString("template ")
		b.WriteString(string(e.Repo))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// pad appends str to the string buffer if the buffer already has content.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Repo == "" && e.Kind == 0 && e.Err == nil
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Op describes the operation being performed.
type Op string

// Repo describes the template repository involved in the operation.
type Repo string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other            Kind = iota // Unclassified. Will not be printed.
	Internal                     // Internal error.
	IO                           // Filesystem error.
	Git                          // Errors from git.
	InvalidParam                 // Value is not valid.
	MissingParam                 // Required value is missing or empty.
	CorruptLineage               // Lineage record exists but cannot be parsed.
	Unreachable                  // Template repository cannot be reached.
	TemplateNotFound             // Template source has no matching history.
	Diverged                     // Applied revision is no longer in the template history.
	UpdateInProgress             // An update branch already exists.
	MergeConflict                // Three-way merge produced conflicts.
	NoUpdateBranch               // No update branch exists to clean.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Internal:
		return "internal error"
	case IO:
		return "I/O error"
	case Git:
		return "git error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case CorruptLineage:
		return "corrupt lineage record"
	case Unreachable:
		return "template repository unreachable"
	case TemplateNotFound:
		return "template not found"
	case Diverged:
		return "template history diverged"
	case UpdateInProgress:
		return "update already in progress"
	case MergeConflict:
		return "merge conflict"
	case NoUpdateBranch:
		return "no update branch"
	}
	return "unknown kind"
}

// E builds an *Error from its arguments. The type of each argument
// determines which field it is assigned to.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case Op:
			e.Op = a
		case Repo:
			e.Repo = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = fmt.Errorf("%s", a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to errors.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// Suppress fields repeated through the chain so the rendered error
	// doesn't stutter.
	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Repo == wrappedErr.Repo {
		wrappedErr.Repo = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
