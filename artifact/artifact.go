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

// Package artifact defines the Artifact value type: a handle naming a file
// or directory either external to the build (a project source file) or
// built by a command and addressed by the hash of that command.
package artifact

import (
	"fmt"
	"path"
	"strings"
)

// Kind distinguishes where an Artifact's bytes come from.
type Kind int

const (
	// External artifacts live at a path relative to the project root and
	// are not produced by any command.
	External Kind = iota
	// Built artifacts live under the content-addressed store, named by
	// the hash of the command that produced them.
	Built
)

func (k Kind) String() string {
	if k == Built {
		return "built"
	}
	return "external"
}

// Artifact names a file or directory by its origin and a path relative to
// that origin. Artifacts are plain values: constructing one does not touch
// the filesystem.
type Artifact struct {
	kind    Kind
	hash    string // non-empty only when kind == Built
	subpath string
}

// External returns an Artifact referring to a path relative to the project
// root (or an absolute path, for files genuinely outside the project).
func External(p string) Artifact {
	return Artifact{kind: Kind(0), subpath: normalize(p)}
}

// Built returns an Artifact referring to path subpath within the result
// directory of the command whose hash is h.
func Built(h, subpath string) Artifact {
	return Artifact{kind: Kind(1), hash: h, subpath: normalize(subpath)}
}

func normalize(p string) string {
	if p == "" {
		return p
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Clean(p)
}

// Kind reports whether this is an External or Built artifact.
func (a Artifact) Kind() Kind { return a.kind }

// Hash returns the command hash for a Built artifact, or "" for External.
func (a Artifact) Hash() string { return a.hash }

// Subpath returns the path relative to the artifact's origin.
func (a Artifact) Subpath() string { return a.subpath }

// IsAbsolute reports whether the artifact's subpath is an absolute path.
// Only meaningful for External artifacts; absolute Built subpaths can't
// occur because Built subpaths are always validated relative paths.
func (a Artifact) IsAbsolute() bool {
	return path.IsAbs(a.subpath)
}

// Join extends an artifact's subpath, rejecting an absolute sub.
func (a Artifact) Join(sub string) (Artifact, error) {
	if path.IsAbs(sub) {
		return Artifact{}, fmt.Errorf("artifact: cannot join absolute path %q", sub)
	}
	joined := a
	joined.subpath = path.Join(a.subpath, sub)
	return joined, nil
}

// ReplaceExtension returns a copy of a with its subpath's extension
// rewritten to ext (which should include the leading dot, e.g. ".o").
func (a Artifact) ReplaceExtension(ext string) Artifact {
	dir, base := path.Split(a.subpath)
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	a.subpath = path.Join(dir, base+ext)
	return a
}

// PathIn returns the path, relative to a sandbox root, at which this
// artifact is materialized during command execution.
func (a Artifact) PathIn() string {
	if a.kind == Built {
		return path.Join("artifact", a.hash, a.subpath)
	}
	if a.IsAbsolute() {
		return a.subpath
	}
	return path.Join("artifact", "external", a.subpath)
}

// RealPathIn returns the path, relative to the project root, at which this
// artifact's real (non-symlinked) content lives.
func (a Artifact) RealPathIn() string {
	if a.kind == Built {
		return path.Join("artifact", a.hash, a.subpath)
	}
	return a.subpath
}

// String renders an Artifact for logging and error messages.
func (a Artifact) String() string {
	if a.kind == Built {
		return fmt.Sprintf("built(%s, %s)", a.hash, a.subpath)
	}
	return fmt.Sprintf("external(%s)", a.subpath)
}

// Equal reports structural equality, satisfying go-cmp's Equal contract so
// tests can compare Artifacts (and values containing them) directly.
func (a Artifact) Equal(b Artifact) bool {
	return a.kind == b.kind && a.hash == b.hash && a.subpath == b.subpath
}
