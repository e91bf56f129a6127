package artifactstore

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pier-build/pier/store"
)

// manifest lists the files (relative to the hash's result directory) that
// make up a published artifact tree, since store.Store only addresses one
// blob per key.
type manifest struct {
	Files []string `json:"files"`
}

// publishShared uploads every file under dest to the shared store, keyed by
// <hash>/<relpath>, and records a manifest at <hash>/manifest so a later
// fetch knows what to pull down.
func publishShared(ctx context.Context, s store.Store, hash, dest string) error {
	var files []string
	err := filepath.Walk(dest, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dest, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if err := s.Put(ctx, filepath.ToSlash(filepath.Join(hash, rel)), p, nil); err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return err
	}

	manifestFile, err := writeTempManifest(files)
	if err != nil {
		return err
	}
	defer os.Remove(manifestFile)

	return s.Put(ctx, sharedManifestKey(hash), manifestFile, map[string]string{"files": ""})
}

// extractShared downloads every file listed in the hash's manifest into
// tmpDir.
func extractShared(ctx context.Context, s store.Store, hash string, meta map[string]string, tmpDir string) error {
	manifestFile := filepath.Join(tmpDir + ".manifest")
	defer os.Remove(manifestFile)
	if err := s.Get(ctx, sharedManifestKey(hash), manifestFile); err != nil {
		return err
	}
	data, err := ioutil.ReadFile(manifestFile)
	if err != nil {
		return err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return err
	}
	for _, rel := range m.Files {
		dst := filepath.Join(tmpDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := s.Get(ctx, filepath.ToSlash(filepath.Join(hash, rel)), dst); err != nil {
			return err
		}
	}
	return nil
}

func writeTempManifest(files []string) (string, error) {
	f, err := ioutil.TempFile("", "pier-manifest-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := json.Marshal(manifest{Files: files})
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}
