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

package resolver

import (
	"fmt"

	"github.com/footing-dev/footing/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&kindErrorResolver{})
}

// kindErrorResolver produces user messages for classified footing errors.
// None of these conditions are retried by the core; each message names the
// remediation that requires the user (or a higher-level orchestrator).
type kindErrorResolver struct{}

func (*kindErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var e *errors.Error
	if !errors.As(err, &e) {
		return ResolvedResult{}, false
	}

	kind := deepestKind(e)
	var msg string
	switch kind {
	case errors.CorruptLineage:
		msg = "Error: The lineage record exists but cannot be read. It may have been " +
			"hand-edited or truncated; restore it from git history before retrying."
	case errors.Unreachable:
		msg = "Error: The template repository could not be reached. Verify network " +
			"connectivity and credentials, then retry."
	case errors.TemplateNotFound:
		msg = "Error: The template was not found. Verify the repository URL and ref."
	case errors.Diverged:
		msg = "Error: The template's history no longer contains the applied revision. " +
			"The template history was rewritten upstream; this requires manual investigation."
	case errors.UpdateInProgress:
		msg = "Error: An update branch already exists. Review and merge it, or remove it " +
			"with 'footing clean', before starting a new sync."
	case errors.NoUpdateBranch:
		msg = "Error: There is no update branch to clean."
	case errors.MergeConflict:
		msg = "Error: The merge stopped with conflicts. Resolve the markers on the update " +
			"branch and commit the result."
	default:
		return ResolvedResult{}, false
	}

	return ResolvedResult{
		Message: fmt.Sprintf("%s\n%s", msg, err.Error()),
	}, true
}

// deepestKind returns the most specific kind in the error chain.
func deepestKind(e *errors.Error) errors.Kind {
	kind := e.Kind
	for {
		wrapped, ok := e.Err.(*errors.Error)
		if !ok {
			return kind
		}
		if wrapped.Kind != 0 {
			kind = wrapped.Kind
		}
		e = wrapped
	}
}
