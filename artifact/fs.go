package artifact

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	glob "github.com/bmatcuk/doublestar"
)

// Tracker is called with each External artifact before a Locator reads it,
// checks its existence or globs under it. The engine installs NoopTracker:
// reads made through it are not registered as dependencies of any command;
// only the declared External inputs of a command are hashed into its key.
type Tracker interface {
	Track(a Artifact) error
}

// NoopTracker ignores dependency registration. The engine and tests use it.
type NoopTracker struct{}

// Track implements Tracker and does nothing.
func (NoopTracker) Track(Artifact) error { return nil }

// Locator resolves Artifacts to real filesystem paths and performs the
// filesystem-touching operations of the artifact API (§4.1): reading
// contents, checking existence, and glob matching. It holds no build state
// of its own; ProjectRoot and StoreRoot are absolute directories.
type Locator struct {
	ProjectRoot string
	StoreRoot   string
	Tracker     Tracker
}

// AbsPath returns the absolute real path backing the artifact.
func (l *Locator) AbsPath(a Artifact) string {
	if a.Kind() == Built {
		return filepath.Join(l.StoreRoot, a.Hash(), filepath.FromSlash(a.Subpath()))
	}
	if a.IsAbsolute() {
		return a.Subpath()
	}
	return filepath.Join(l.ProjectRoot, filepath.FromSlash(a.Subpath()))
}

func (l *Locator) track(a Artifact) error {
	if a.Kind() != External {
		return nil
	}
	if l.Tracker == nil {
		return nil
	}
	return l.Tracker.Track(a)
}

// ReadArtifactBytes reads the full contents of a. External artifacts are
// registered as a build dependency before being read; Built artifacts are
// immutable and are read directly.
func (l *Locator) ReadArtifactBytes(a Artifact) ([]byte, error) {
	if err := l.track(a); err != nil {
		return nil, err
	}
	return ioutil.ReadFile(l.AbsPath(a))
}

// ReadArtifact reads the full contents of a as a string.
func (l *Locator) ReadArtifact(a Artifact) (string, error) {
	data, err := l.ReadArtifactBytes(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DoesArtifactExist reports whether a's backing file or directory exists.
func (l *Locator) DoesArtifactExist(a Artifact) (bool, error) {
	if err := l.track(a); err != nil {
		return false, err
	}
	if _, err := os.Stat(l.AbsPath(a)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MatchArtifactGlob lists subpaths under a matching pattern, sorted.
func (l *Locator) MatchArtifactGlob(a Artifact, pattern string) ([]string, error) {
	if err := l.track(a); err != nil {
		return nil, err
	}
	base := l.AbsPath(a)
	matches, err := glob.Glob(filepath.Join(base, pattern))
	if err != nil {
		return nil, fmt.Errorf("artifact: invalid glob %q: %w", pattern, err)
	}
	rel := make([]string, 0, len(matches))
	for _, m := range matches {
		r, err := filepath.Rel(base, m)
		if err != nil {
			return nil, err
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel, nil
}
