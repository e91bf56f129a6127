// Copyright 2020 Fugue, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exec

import (
	"context"
)

// FakeExecutor records every invocation it receives and optionally delegates
// to Fn, letting tests assert on exactly what the engine asked to run
// without touching a real process.
type FakeExecutor struct {
	Fn    func(ctx context.Context, opts Opts) (Result, error)
	Calls []Opts
}

// Execute implements Executor.
func (e *FakeExecutor) Execute(ctx context.Context, opts Opts) (Result, error) {
	e.Calls = append(e.Calls, opts)
	if e.Fn != nil {
		return e.Fn(ctx, opts)
	}
	return Result{}, nil
}
