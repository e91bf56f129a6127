package sandbox

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pier-build/pier/artifact"
)

func TestDedupArtifactsDropsDescendantOfParent(t *testing.T) {
	parent := artifact.Built("H1", "dir")
	child, err := parent.Join("sub")
	require.NoError(t, err)

	got := DedupArtifacts([]artifact.Artifact{parent, child})
	require.Len(t, got, 1)
	require.Equal(t, parent, got[0])
}

func TestDedupArtifactsKnownSortBug(t *testing.T) {
	// "Picture" < "Picture.hs" < "Picture/Foo" lexicographically, so the
	// sibling file lands between parent and child and the adjacency check
	// misses the dedup opportunity. This test documents the bug rather
	// than fixing it.
	parent := artifact.Built("H1", "Picture")
	sibling := artifact.Built("H1", "Picture.hs")
	child, err := parent.Join("Foo")
	require.NoError(t, err)

	got := DedupArtifacts([]artifact.Artifact{parent, sibling, child})
	require.Len(t, got, 3, "parent/child dedup is defeated by the intervening sibling")
}

func TestCheckAllDistinctPathsRejectsCollision(t *testing.T) {
	a := artifact.Built("H1", "out")
	b := artifact.Built("H2", "out")
	err := CheckAllDistinctPaths([]artifact.Artifact{a, b})
	require.Error(t, err)
}

func TestMaterializeLinksExternalRootAndBuiltInputs(t *testing.T) {
	projectRoot := t.TempDir()
	storeRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(storeRoot, "artifact", "H1"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(storeRoot, "artifact", "H1", "out.txt"), []byte("x"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(projectRoot, "src.txt"), []byte("y"), 0644))

	m := &Materializer{ProjectRoot: projectRoot, StoreRoot: storeRoot}
	tmp := t.TempDir()

	inputs := []artifact.Artifact{
		artifact.External("src.txt"),
		artifact.Built("H1", "out.txt"),
	}
	require.NoError(t, m.Materialize(tmp, inputs))

	target, err := os.Readlink(filepath.Join(tmp, "artifact", "external"))
	require.NoError(t, err)
	require.Equal(t, projectRoot, target)

	data, err := ioutil.ReadFile(filepath.Join(tmp, "artifact", "external", "src.txt"))
	require.NoError(t, err)
	require.Equal(t, "y", string(data))

	data, err = ioutil.ReadFile(filepath.Join(tmp, "artifact", "H1", "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "x", string(data))
}

func TestMaterializeFailsOnMissingSource(t *testing.T) {
	m := &Materializer{ProjectRoot: t.TempDir(), StoreRoot: t.TempDir()}
	tmp := t.TempDir()
	err := m.Materialize(tmp, []artifact.Artifact{artifact.External("missing.txt")})
	require.Error(t, err)
}

func TestLinkShadowFileUsesRelativeSymlink(t *testing.T) {
	projectRoot := t.TempDir()
	storeRoot := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(projectRoot, "a.txt"), []byte("hi"), 0644))

	m := &Materializer{ProjectRoot: projectRoot, StoreRoot: storeRoot}
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "artifact"), 0755))
	require.NoError(t, os.Symlink(projectRoot, filepath.Join(tmp, "artifact", "external")))

	require.NoError(t, m.LinkShadow(tmp, artifact.External("a.txt"), "nested/dest/a.txt"))

	data, err := ioutil.ReadFile(filepath.Join(tmp, "nested", "dest", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))

	link, err := os.Readlink(filepath.Join(tmp, "nested", "dest", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "../../artifact/external/a.txt", link)
}

func TestLinkShadowDirectoryRecurses(t *testing.T) {
	projectRoot := t.TempDir()
	storeRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "pkg", "sub"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(projectRoot, "pkg", "a.txt"), []byte("a"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(projectRoot, "pkg", "sub", "b.txt"), []byte("b"), 0644))

	m := &Materializer{ProjectRoot: projectRoot, StoreRoot: storeRoot}
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "artifact"), 0755))
	require.NoError(t, os.Symlink(projectRoot, filepath.Join(tmp, "artifact", "external")))

	require.NoError(t, m.LinkShadow(tmp, artifact.External("pkg"), "merged"))

	data, err := ioutil.ReadFile(filepath.Join(tmp, "merged", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "a", string(data))

	data, err = ioutil.ReadFile(filepath.Join(tmp, "merged", "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "b", string(data))
}

func TestLinkShadowRefusesToOverwrite(t *testing.T) {
	projectRoot := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(projectRoot, "a.txt"), []byte("hi"), 0644))
	m := &Materializer{ProjectRoot: projectRoot, StoreRoot: t.TempDir()}
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "artifact"), 0755))
	require.NoError(t, os.Symlink(projectRoot, filepath.Join(tmp, "artifact", "external")))

	require.NoError(t, ioutil.WriteFile(filepath.Join(tmp, "dest.txt"), []byte("existing"), 0644))
	err := m.LinkShadow(tmp, artifact.External("a.txt"), "dest.txt")
	require.Error(t, err)
}

func TestEnsureOutputDirsCreatesParents(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, EnsureOutputDirs(tmp, []string{"a/b/c.txt", "out.txt"}))
	info, err := os.Stat(filepath.Join(tmp, "a", "b"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
