package sandbox

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/pier-build/pier/artifact"
)

// LinkShadow replicates a at destPath within tmpDir (§4.9). Directories are
// recreated for real and recursed into; files become symlinks whose target
// is relative to the symlink's own parent directory, so the sandbox stays
// relocatable. Refuses to overwrite an existing destination.
func (m *Materializer) LinkShadow(tmpDir string, a artifact.Artifact, destPath string) error {
	real := m.realPath(a)
	info, err := os.Stat(real)
	if err != nil {
		return fmt.Errorf("sandbox: shadow source %s missing: %w", a, err)
	}

	dest := filepath.Join(tmpDir, filepath.FromSlash(destPath))
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("sandbox: shadow destination %q already exists", destPath)
	}

	if info.IsDir() {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
		names, err := godirwalk.ReadDirnames(real, nil)
		if err != nil {
			return fmt.Errorf("sandbox: failed to list %s: %w", real, err)
		}
		for _, name := range names {
			childArtifact, err := a.Join(name)
			if err != nil {
				return err
			}
			if err := m.LinkShadow(tmpDir, childArtifact, path.Join(destPath, name)); err != nil {
				return err
			}
		}
		return nil
	}

	target := relativeShadowTarget(destPath, a.PathIn())
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.Symlink(target, dest)
}

// relativeShadowTarget computes the symlink target for a shadow file placed
// at destPath, relative to destPath's own parent directory: ascend one
// level for every path component of parent(destPath), then descend through
// pathIn.
func relativeShadowTarget(destPath, pathIn string) string {
	parent := path.Dir(destPath)
	depth := 0
	if parent != "." && parent != "/" {
		depth = len(strings.Split(parent, "/"))
	}
	return strings.Repeat("../", depth) + pathIn
}
