package artifactstore

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pier-build/pier/store/filesystem"
)

func TestAcquireCollapsesConcurrentBuilds(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)
	require.NoError(t, s.EnsureLayout(t.TempDir()))

	var calls int32
	var mu sync.Mutex
	started := make(chan struct{})
	release := make(chan struct{})

	build := func(tmp string) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return ioutil.WriteFile(filepath.Join(tmp, "out.txt"), []byte("x"), 0644)
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Acquire(context.Background(), "H9", nil, build)
		}(i)
	}
	<-started
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, results[0], results[1])
	mu.Lock()
	defer mu.Unlock()
	require.EqualValues(t, 1, calls, "two concurrent Acquire calls for the same hash must build only once")
}

func TestAcquireBuildsOnceAndFreezes(t *testing.T) {
	root := t.TempDir()
	projectRoot := t.TempDir()
	s := New(root, nil)
	require.NoError(t, s.EnsureLayout(projectRoot))

	calls := 0
	build := func(tmp string) error {
		calls++
		return ioutil.WriteFile(filepath.Join(tmp, "out.txt"), []byte("hi"), 0644)
	}

	dir, err := s.Acquire(context.Background(), "H1", nil, build)
	require.NoError(t, err)
	require.Equal(t, s.ArtifactDir("H1"), dir)

	data, err := ioutil.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))

	info, err := os.Stat(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Zero(t, info.Mode()&0222, "frozen file must not be writable")

	// Second acquire must not invoke build again.
	dir2, err := s.Acquire(context.Background(), "H1", nil, build)
	require.NoError(t, err)
	require.Equal(t, dir, dir2)
	require.Equal(t, 1, calls)
}

func TestAcquireDiscardsTempOnBuildFailure(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)
	require.NoError(t, s.EnsureLayout(t.TempDir()))

	_, err := s.Acquire(context.Background(), "H2", nil, func(tmp string) error {
		return os.ErrInvalid
	})
	require.Error(t, err)
	require.False(t, s.Exists("H2"))

	entries, err := ioutil.ReadDir(filepath.Join(root, "tmp"))
	require.NoError(t, err)
	require.Empty(t, entries, "failed build must not leave a temp dir behind")
}

func TestAcquirePopulatesAndReadsSharedCache(t *testing.T) {
	sharedDir := t.TempDir()
	shared := filesystem.New(sharedDir)

	root1 := t.TempDir()
	s1 := New(root1, shared)
	require.NoError(t, s1.EnsureLayout(t.TempDir()))
	_, err := s1.Acquire(context.Background(), "H3", nil, func(tmp string) error {
		return ioutil.WriteFile(filepath.Join(tmp, "a.txt"), []byte("shared"), 0644)
	})
	require.NoError(t, err)

	root2 := t.TempDir()
	s2 := New(root2, shared)
	require.NoError(t, s2.EnsureLayout(t.TempDir()))

	buildCalled := false
	dir, err := s2.Acquire(context.Background(), "H3", nil, func(tmp string) error {
		buildCalled = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, buildCalled, "should have been satisfied from the shared cache")

	data, err := ioutil.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "shared", string(data))
}
