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

// Package fake contains a printer for tests.
package fake

import (
	"context"
	"io"

	"github.com/footing-dev/footing/internal/types"
	"github.com/footing-dev/footing/pkg/printer"
)

// NilPrinter is a no-op implementation of the Printer interface.
type NilPrinter struct{}

var _ printer.Printer = &NilPrinter{}

func (np *NilPrinter) PrintProject(types.DisplayPath, bool) {}

func (np *NilPrinter) Printf(string, ...interface{}) {}

func (np *NilPrinter) OutStream() io.Writer { return io.Discard }

func (np *NilPrinter) ErrStream() io.Writer { return io.Discard }

// CtxWithNilPrinter returns a background context with a no-op printer.
func CtxWithNilPrinter() context.Context {
	return printer.WithContext(context.Background(), &NilPrinter{})
}

// CtxWithPrinter returns a background context with a printer writing
// to the provided streams.
func CtxWithPrinter(out, err io.Writer) context.Context {
	return printer.WithContext(context.Background(), printer.New(out, err))
}
