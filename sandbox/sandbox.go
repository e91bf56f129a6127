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

// Package sandbox materializes a command's input artifacts into a temp
// directory using symlinks, and replicates artifact trees via the shadow
// engine. Nothing here touches the persistent store beyond reading it.
package sandbox

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	uuid "github.com/satori/go.uuid"

	"github.com/pier-build/pier/artifact"
)

// Materializer lays out artifacts inside per-command sandboxes. StoreRoot is
// the absolute path of the `_pier` directory; ProjectRoot is the absolute
// path of the project the build runs against.
type Materializer struct {
	ProjectRoot string
	StoreRoot   string
}

// NewTempDir creates a fresh sandbox directory under <StoreRoot>/tmp named
// after hash and a random suffix, per §4.5 step 3.
func (m *Materializer) NewTempDir(hash string) (string, error) {
	dir := filepath.Join(m.StoreRoot, "tmp", fmt.Sprintf("%s-%s", hash, uuid.NewV4().String()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (m *Materializer) realPath(a artifact.Artifact) string {
	if a.Kind() == artifact.Built {
		return filepath.Join(m.StoreRoot, "artifact", a.Hash(), filepath.FromSlash(a.Subpath()))
	}
	if a.IsAbsolute() {
		return a.Subpath()
	}
	return filepath.Join(m.ProjectRoot, filepath.FromSlash(a.Subpath()))
}

// sameSource reports whether two artifacts originate from the same place:
// both External (the project root), or both Built from the same hash.
func sameSource(a, b artifact.Artifact) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	return a.Kind() == artifact.External || a.Hash() == b.Hash()
}

func isDescendantPath(parent, child string) bool {
	return child == parent || strings.HasPrefix(child, parent+"/")
}

// DedupArtifacts returns inputs sorted by sandbox path with redundant
// descendants removed: if two artifacts from the same source are adjacent
// after sorting and one's subpath is a prefix of the other's, the
// descendant is dropped (a parent directory link already exposes it).
//
// This sorts by the raw pathIn string rather than by split path
// components, so siblings can land non-adjacent after sorting (e.g.
// "Picture" < "Picture.hs" < "Picture/Foo") and a dedup opportunity is
// missed. That quirk is intentional and depended upon by existing sandbox
// layouts; do not "fix" the sort without also auditing every caller that
// relies on today's layout.
func DedupArtifacts(inputs []artifact.Artifact) []artifact.Artifact {
	sorted := append([]artifact.Artifact{}, inputs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PathIn() < sorted[j].PathIn()
	})

	result := make([]artifact.Artifact, 0, len(sorted))
	for _, a := range sorted {
		if len(result) > 0 {
			prev := result[len(result)-1]
			if sameSource(prev, a) && isDescendantPath(prev.Subpath(), a.Subpath()) {
				continue
			}
		}
		result = append(result, a)
	}
	return result
}

// CheckAllDistinctPaths fails materialization before any symlink is created
// if two surviving inputs would collide on the same sandbox path.
func CheckAllDistinctPaths(inputs []artifact.Artifact) error {
	seen := map[string]artifact.Artifact{}
	for _, a := range inputs {
		p := a.PathIn()
		if prior, ok := seen[p]; ok {
			return fmt.Errorf("sandbox: inputs %s and %s both materialize to %q", prior, a, p)
		}
		seen[p] = a
	}
	return nil
}

// Materialize lays out every input artifact inside tmpDir: a standing
// `artifact/external` symlink to the project root, and one symlink per
// Built input at its declared subpath. Absolute External inputs are
// referenced in place and skipped. Returns an error naming the first
// missing source encountered.
func (m *Materializer) Materialize(tmpDir string, inputs []artifact.Artifact) error {
	if err := os.MkdirAll(filepath.Join(tmpDir, "artifact"), 0755); err != nil {
		return err
	}
	externalLink := filepath.Join(tmpDir, "artifact", "external")
	if _, err := os.Lstat(externalLink); err != nil {
		if err := os.Symlink(m.ProjectRoot, externalLink); err != nil {
			return fmt.Errorf("sandbox: failed to link external root: %w", err)
		}
	}

	deduped := DedupArtifacts(inputs)
	if err := CheckAllDistinctPaths(deduped); err != nil {
		return err
	}

	for _, a := range deduped {
		if a.Kind() == artifact.External {
			if a.IsAbsolute() {
				if _, err := os.Stat(a.Subpath()); err != nil {
					return fmt.Errorf("sandbox: missing source %s: %w", a, err)
				}
				continue
			}
			if _, err := os.Stat(m.realPath(a)); err != nil {
				return fmt.Errorf("sandbox: missing source %s: %w", a, err)
			}
			continue
		}

		real := m.realPath(a)
		if _, err := os.Stat(real); err != nil {
			return fmt.Errorf("sandbox: missing source %s: %w", a, err)
		}
		dest := filepath.Join(tmpDir, filepath.FromSlash(a.PathIn()))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		if err := os.Symlink(real, dest); err != nil {
			return fmt.Errorf("sandbox: failed to link %s: %w", a, err)
		}
	}
	return nil
}

// EnsureOutputDirs pre-creates the parent directory of every declared
// output path inside tmpDir (§4.5 step 5).
func EnsureOutputDirs(tmpDir string, outputPaths []string) error {
	for _, p := range outputPaths {
		dir := filepath.Join(tmpDir, filepath.FromSlash(path.Dir(p)))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("sandbox: failed to create output dir for %s: %w", p, err)
		}
	}
	return nil
}
