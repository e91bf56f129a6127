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

// Package command models a sandboxed build step as a composable value: an
// ordered sequence of program invocations (and status messages and shadow
// replications) plus an unordered set of input artifacts. Commands form a
// monoid under Then/Combine with the empty Command as identity.
package command

import (
	"fmt"
	"path"
	"sort"

	"github.com/pier-build/pier/artifact"
)

// Kind discriminates the variants of a single build step.
type Kind string

// Step kinds.
const (
	KindCall    Kind = "call"
	KindMessage Kind = "message"
	KindShadow  Kind = "shadow"
	KindMkdir   Kind = "mkdir"
)

// CalleeKind discriminates how a ProgCall resolves its executable.
type CalleeKind string

// Callee kinds.
const (
	CalleeEnv      CalleeKind = "env"
	CalleeArtifact CalleeKind = "artifact"
	CalleeTemp     CalleeKind = "temp"
)

// Callee names the program a ProgCall step invokes.
type Callee struct {
	Kind     CalleeKind
	Name     string            // set for CalleeEnv (PATH lookup name) and CalleeTemp (sandbox-relative path)
	Artifact artifact.Artifact // set for CalleeArtifact
}

// Env resolves name against the sandbox PATH.
func Env(name string) Callee { return Callee{Kind: CalleeEnv, Name: name} }

// FromArtifact runs the executable at a, which must be one of the
// command's inputs.
func FromArtifact(a artifact.Artifact) Callee { return Callee{Kind: CalleeArtifact, Artifact: a} }

// Temp runs an executable produced earlier in the same sandbox.
func Temp(sandboxPath string) Callee { return Callee{Kind: CalleeTemp, Name: sandboxPath} }

// Step is a single element of a Command's program sequence.
type Step struct {
	Kind Kind

	// KindCall
	Callee Callee
	Args   []string
	Cwd    string

	// KindMessage
	Text string

	// KindShadow
	ShadowArtifact artifact.Artifact
	ShadowDest     string

	// KindMkdir
	MkdirPath string
}

// Command is an ordered sequence of Steps plus an unordered set of input
// Artifacts. The zero value is the empty/identity Command.
type Command struct {
	Steps  []Step
	inputs []artifact.Artifact
}

// Prog appends a single program invocation step.
func Prog(callee Callee, args ...string) Command {
	return Command{Steps: []Step{{Kind: KindCall, Callee: callee, Args: args}}}
}

// Message appends a status-line step with no filesystem effect.
func Message(text string) Command {
	return Command{Steps: []Step{{Kind: KindMessage, Text: text}}}
}

// Shadow appends a step that recursively replicates a at destPath within
// the sandbox via symlinks.
func Shadow(a artifact.Artifact, destPath string) Command {
	return Command{Steps: []Step{{Kind: KindShadow, ShadowArtifact: a, ShadowDest: destPath}}}
}

// CreateDirectoryA appends a step that creates destPath (and any missing
// parents) inside the sandbox before later steps run, for commands whose
// program expects an output directory to already exist.
func CreateDirectoryA(destPath string) Command {
	return Command{Steps: []Step{{Kind: KindMkdir, MkdirPath: destPath}}}
}

// Input declares a as a dependency of the command, to be materialized into
// the sandbox before any step runs.
func Input(a artifact.Artifact) Command {
	return Command{inputs: []artifact.Artifact{a}}
}

// Inputs declares multiple artifacts as dependencies.
func Inputs(as ...artifact.Artifact) Command {
	return InputList(as)
}

// InputList declares a slice of artifacts as dependencies.
func InputList(as []artifact.Artifact) Command {
	cp := append([]artifact.Artifact{}, as...)
	return Command{inputs: cp}
}

// Empty is the identity element of the Command monoid.
var Empty = Command{}

// Then composes two commands: steps concatenate in order, input sets union.
func (c Command) Then(other Command) Command {
	steps := make([]Step, 0, len(c.Steps)+len(other.Steps))
	steps = append(steps, c.Steps...)
	steps = append(steps, other.Steps...)
	return Command{Steps: steps, inputs: unionInputs(c.inputs, other.inputs)}
}

// Combine folds a sequence of commands left to right with Then, starting
// from Empty.
func Combine(cmds ...Command) Command {
	result := Empty
	for _, c := range cmds {
		result = result.Then(c)
	}
	return result
}

func unionInputs(a, b []artifact.Artifact) []artifact.Artifact {
	seen := map[string]bool{}
	out := make([]artifact.Artifact, 0, len(a)+len(b))
	add := func(list []artifact.Artifact) {
		for _, art := range list {
			key := artifactKey(art)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, art)
		}
	}
	add(a)
	add(b)
	return out
}

func artifactKey(a artifact.Artifact) string {
	return fmt.Sprintf("%d\x00%s\x00%s", a.Kind(), a.Hash(), a.Subpath())
}

// InputArtifacts returns the command's input set, sorted into a canonical
// order so the resulting hash does not depend on how the inputs were
// assembled (append order, union order, etc).
func (c Command) InputArtifacts() []artifact.Artifact {
	sorted := append([]artifact.Artifact{}, c.inputs...)
	sort.Slice(sorted, func(i, j int) bool {
		return artifactKey(sorted[i]) < artifactKey(sorted[j])
	})
	return sorted
}

// WithCwd returns a copy of c with every ProgCall/Shadow step's working
// directory rewritten to dir, joined under any cwd the step already had.
// Message steps are unaffected. dir must be relative.
func WithCwd(dir string, c Command) (Command, error) {
	if path.IsAbs(dir) {
		return Command{}, fmt.Errorf("command: WithCwd requires a relative path, got %q", dir)
	}
	steps := make([]Step, len(c.Steps))
	for i, s := range c.Steps {
		switch s.Kind {
		case KindCall:
			s.Cwd = path.Join(dir, s.Cwd)
		case KindShadow:
			s.ShadowDest = path.Join(dir, s.ShadowDest)
		case KindMkdir:
			s.MkdirPath = path.Join(dir, s.MkdirPath)
		}
		steps[i] = s
	}
	return Command{Steps: steps, inputs: c.inputs}, nil
}
