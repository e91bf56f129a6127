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

// Package engine is the top-level API: it ties together artifact
// resolution, command hashing, sandbox materialization, execution, the
// content-addressed store, and the memoizing rule registry into
// RunCommand/RunCommandOutput/RunCommandStdout/WriteArtifact/CallArtifact,
// plus a parallel task runtime for running independent builds concurrently.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pier-build/pier/artifact"
	"github.com/pier-build/pier/artifactstore"
	"github.com/pier-build/pier/exec"
	"github.com/pier-build/pier/memo"
	"github.com/pier-build/pier/sandbox"
	"github.com/pier-build/pier/store"
)

// TempPolicy controls whether per-command sandbox directories survive
// after a build completes, for post-mortem debugging.
type TempPolicy int

// Temp directory retention policies.
const (
	DeleteTemps TempPolicy = iota
	KeepTemps
)

// Verbosity controls how much detail is logged about command execution.
type Verbosity int

// Verbosity levels.
const (
	Quiet Verbosity = iota
	Normal
	Loud
)

// Engine is the entry point for building commands and writing artifacts
// against a single project and store root.
type Engine struct {
	ProjectRoot string
	StoreRoot   string

	store     *artifactstore.Store
	sandbox   *sandbox.Materializer
	executor  exec.Executor
	memo      *memo.Memo
	locator   *artifact.Locator
	extraEnv  []string
	temps     TempPolicy
	verbosity Verbosity
	workers   int
	log       *logrus.Logger
	deps      *depGraph
}

// Option configures a new Engine.
type Option func(*Engine)

// WithSharedCache configures a read-through shared cache of frozen
// artifact trees, consulted before a command is actually run.
func WithSharedCache(s store.Store) Option {
	return func(e *Engine) { e.store.Shared = s }
}

// WithPersistentStore swaps the in-memory rule registry for a durable
// implementation (see memo.PersistentStore), so memoized hashes survive
// across process invocations.
func WithPersistentStore(s memo.PersistentStore) Option {
	return func(e *Engine) { e.memo = memo.New(s) }
}

// WithExecutor overrides the default direct-process Executor, e.g. with a
// exec.FakeExecutor in tests.
func WithExecutor(x exec.Executor) Option {
	return func(e *Engine) { e.executor = x }
}

// WithExtraEnv extends the sandbox process environment beyond PATH/LANG,
// for hosts that need e.g. SystemRoot. Each entry must be "NAME=value".
func WithExtraEnv(vars ...string) Option {
	return func(e *Engine) { e.extraEnv = append(e.extraEnv, vars...) }
}

// WithTempPolicy controls whether sandbox directories are deleted after a
// successful build.
func WithTempPolicy(p TempPolicy) Option {
	return func(e *Engine) { e.temps = p }
}

// WithVerbosity controls how much command detail is logged.
func WithVerbosity(v Verbosity) Option {
	return func(e *Engine) { e.verbosity = v }
}

// WithWorkers bounds how many commands may run concurrently via Parallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger overrides the default standard logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New constructs an Engine rooted at projectRoot, with its store under
// storeRoot/_pier (storeRoot is typically projectRoot itself).
func New(projectRoot, storeRoot string, opts ...Option) (*Engine, error) {
	absProject, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	absStore, err := filepath.Abs(storeRoot)
	if err != nil {
		return nil, err
	}
	pierRoot := filepath.Join(absStore, "_pier")

	e := &Engine{
		ProjectRoot: absProject,
		StoreRoot:   pierRoot,
		store:       artifactstore.New(pierRoot, nil),
		executor:    exec.New(),
		memo:        memo.New(memo.NewMemStore()),
		temps:       DeleteTemps,
		verbosity:   Normal,
		workers:     4,
		log:         logrus.StandardLogger(),
		deps:        newDepGraph(pierRoot),
	}
	e.sandbox = &sandbox.Materializer{ProjectRoot: absProject, StoreRoot: pierRoot}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.store.EnsureLayout(absProject); err != nil {
		return nil, fmt.Errorf("engine: failed to initialize store: %w", err)
	}

	e.locator = &artifact.Locator{
		ProjectRoot: absProject,
		StoreRoot:   filepath.Join(pierRoot, "artifact"),
		Tracker:     artifact.NoopTracker{}, // no hidden-read tracing; see §4.3 and DESIGN.md
	}
	return e, nil
}

// Env returns the process environment every sandboxed command runs with:
// PATH and LANG, plus any variables added via WithExtraEnv.
func (e *Engine) Env() []string {
	return append(append([]string{}, exec.BaseEnv()...), e.extraEnv...)
}

// ReadArtifact reads the full contents of a.
func (e *Engine) ReadArtifact(a artifact.Artifact) (string, error) {
	return e.locator.ReadArtifact(a)
}

// DoesArtifactExist reports whether a's backing file or directory exists.
func (e *Engine) DoesArtifactExist(a artifact.Artifact) (bool, error) {
	return e.locator.DoesArtifactExist(a)
}

// MatchArtifactGlob lists subpaths under a matching pattern.
func (e *Engine) MatchArtifactGlob(a artifact.Artifact, pattern string) ([]string, error) {
	return e.locator.MatchArtifactGlob(a, pattern)
}

// ArtifactDir exposes the store's published directory for hash, primarily
// so diagnostics (cmd/pier ls, export) can inspect it without duplicating
// the store's path convention.
func (e *Engine) ArtifactDir(hash string) string {
	return e.store.ArtifactDir(hash)
}

// ListPublished returns the hashes of every artifact currently published in
// the local store.
func (e *Engine) ListPublished() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(e.StoreRoot, "artifact"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hashes []string
	for _, ent := range entries {
		if ent.Name() == "external" {
			continue
		}
		hashes = append(hashes, ent.Name())
	}
	return hashes, nil
}
