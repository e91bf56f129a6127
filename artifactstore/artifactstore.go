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

// Package artifactstore manages the primary content-addressed artifact
// store (_pier/artifact/<hash>/): acquiring a result directory for a given
// hash, optionally populating it from a shared cache, and freezing it
// read-only once published so later commands cannot mutate earlier output.
package artifactstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pier-build/pier/store"
)

// Store manages the frozen `artifact/<hash>` tree rooted at Root, with an
// optional read-through shared cache.
type Store struct {
	// Root is the absolute path of the `_pier` directory.
	Root string

	// Shared is an optional read-through cache of frozen artifact trees,
	// consulted (and possibly populated) before falling back to Build.
	Shared store.Store

	Log *logrus.Logger

	building singleflight.Group
}

// New returns a Store rooted at root (the `_pier` directory). The caller is
// responsible for creating root beforehand.
func New(root string, shared store.Store) *Store {
	return &Store{Root: root, Shared: shared, Log: logrus.StandardLogger()}
}

// ArtifactDir returns the absolute path of the published result directory
// for hash, whether or not it currently exists.
func (s *Store) ArtifactDir(hash string) string {
	return filepath.Join(s.Root, "artifact", hash)
}

// ExternalRoot is the path of the `artifact/external` symlink, which points
// back at the project root so External artifacts share the `artifact/*`
// sandbox naming convention.
func (s *Store) ExternalRoot() string {
	return filepath.Join(s.Root, "artifact", "external")
}

// EnsureLayout creates the store root and the `artifact/external` symlink
// to projectRoot, if not already present.
func (s *Store) EnsureLayout(projectRoot string) error {
	if err := os.MkdirAll(filepath.Join(s.Root, "artifact"), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.Root, "tmp"), 0755); err != nil {
		return err
	}
	link := s.ExternalRoot()
	if _, err := os.Lstat(link); err == nil {
		return nil
	}
	return os.Symlink(projectRoot, link)
}

// Exists reports whether hash has already been published locally.
func (s *Store) Exists(hash string) bool {
	_, err := os.Stat(s.ArtifactDir(hash))
	return err == nil
}

// Build is invoked with a freshly created, writable temp directory into
// which the caller must place every declared output before returning nil.
type Build func(tmpResultDir string) error

// Acquire implements createArtifacts (§4.6): return the hash's published
// directory, fetching from the shared cache or running build as needed.
// messages are emitted only when build actually runs (a true cache miss).
// Concurrent callers racing on the same hash within this process collapse
// onto a single in-flight build via singleflight; only the winner runs
// build, and every caller receives its result.
func (s *Store) Acquire(ctx context.Context, hash string, messages func(), build Build) (string, error) {
	v, err, _ := s.building.Do(hash, func() (interface{}, error) {
		return s.acquireOnce(ctx, hash, messages, build)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) acquireOnce(ctx context.Context, hash string, messages func(), build Build) (string, error) {
	dest := s.ArtifactDir(hash)
	if s.Exists(hash) {
		return dest, nil
	}

	if s.Shared != nil {
		if err := s.fetchFromShared(ctx, hash, dest); err == nil {
			return dest, nil
		}
	}

	if messages != nil {
		messages()
	}

	tmpResult := filepath.Join(s.Root, "tmp", fmt.Sprintf("result-%s-%s", hash, uuid.NewV4().String()))
	if err := os.MkdirAll(tmpResult, 0755); err != nil {
		return "", fmt.Errorf("artifactstore: failed to create temp result dir: %w", err)
	}

	if err := build(tmpResult); err != nil {
		os.RemoveAll(tmpResult)
		return "", err
	}

	if err := s.publish(tmpResult, dest); err != nil {
		os.RemoveAll(tmpResult)
		return "", err
	}

	if s.Shared != nil {
		s.populateShared(ctx, hash, dest)
	}
	return dest, nil
}

// publish atomically moves a completed temp result directory into place and
// freezes it. If another builder raced us and published first, our temp
// directory is discarded and the existing publication wins.
func (s *Store) publish(tmpResult, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.Rename(tmpResult, dest); err != nil {
		if s.Exists(filepath.Base(dest)) {
			os.RemoveAll(tmpResult)
			return nil
		}
		return fmt.Errorf("artifactstore: failed to publish %s: %w", dest, err)
	}
	return Freeze(dest)
}

func (s *Store) fetchFromShared(ctx context.Context, hash, dest string) error {
	manifestKey := sharedManifestKey(hash)
	meta, err := s.Shared.Head(ctx, manifestKey)
	if err != nil {
		return err
	}
	tmp := dest + ".fromshared"
	os.RemoveAll(tmp)
	if err := extractShared(ctx, s.Shared, hash, meta.Meta, tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		if s.Exists(hash) {
			return nil
		}
		return err
	}
	return Freeze(dest)
}

func (s *Store) populateShared(ctx context.Context, hash, dest string) {
	if err := publishShared(ctx, s.Shared, hash, dest); err != nil {
		s.Log.WithError(err).WithField("hash", hash).Warn("failed to populate shared cache")
	}
}

func sharedManifestKey(hash string) string {
	return filepath.ToSlash(filepath.Join(hash, "manifest"))
}

// Freeze clears write permissions on every file under dir so published
// artifacts cannot be mutated by later commands. Directories keep read and
// traversal but lose write (0555); Unfreeze restores it before removal.
func Freeze(dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(p, 0555)
		}
		return os.Chmod(p, info.Mode()&^0222)
	})
}

// Unfreeze restores write permissions under dir. Used only by callers that
// intentionally perform destructive maintenance (e.g. garbage collection)
// outside the memoizer's normal read path.
func Unfreeze(dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(p, 0755)
		}
		return os.Chmod(p, info.Mode()|0200)
	})
}

