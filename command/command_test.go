package command

import (
	"testing"

	"github.com/pier-build/pier/artifact"
	"github.com/stretchr/testify/require"
)

func TestHashIndependentOfInputOrder(t *testing.T) {
	a := artifact.External("a.txt")
	b := artifact.External("b.txt")

	c1 := Input(a).Then(Input(b)).Then(Prog(Env("cat"), "a.txt", "b.txt"))
	c2 := Input(b).Then(Input(a)).Then(Prog(Env("cat"), "a.txt", "b.txt"))

	h1, err := Q{Command: c1, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)
	h2, err := Q{Command: c2, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashChangesWithOutputsOrProgramOrExternalContent(t *testing.T) {
	base := Prog(Env("true"))
	h1, err := Q{Command: base, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)

	h2, err := Q{Command: base, OutputPaths: []string{"other"}}.Hash(nil)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	h3, err := Q{Command: Prog(Env("false")), OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)

	h4, err := Q{Command: base, OutputPaths: []string{"out"}}.Hash(
		[]ExternalHash{{Path: "x.txt", Hash: "abc"}})
	require.NoError(t, err)
	require.NotEqual(t, h1, h4)

	h5, err := Q{Command: base, OutputPaths: []string{"out"}}.Hash(
		[]ExternalHash{{Path: "x.txt", Hash: "def"}})
	require.NoError(t, err)
	require.NotEqual(t, h4, h5)
}

func TestHashDeterministicAcrossCalls(t *testing.T) {
	q := Q{Command: Prog(Env("echo"), "hi"), OutputPaths: []string{"out"}}
	h1, err := q.Hash(nil)
	require.NoError(t, err)
	h2, err := q.Hash(nil)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestValidatePathRejectsBadOutputs(t *testing.T) {
	for _, bad := range []string{"", ".", "./", "foo/../bar", "/abs"} {
		_, err := Path(bad)
		require.Errorf(t, err, "expected error for %q", bad)
	}
	_, err := Path("ok/path.txt")
	require.NoError(t, err)
}

func TestOutputAndComposesPathsAndResults(t *testing.T) {
	o1 := MustPath("a.txt")
	o2 := MustPath("b.txt")
	combined := o1.And(o2)
	require.Equal(t, []string{"a.txt", "b.txt"}, combined.Paths)

	results := combined.Artifacts("H1")
	pair := combined.Combine(results).([2]interface{})
	require.Equal(t, artifact.Built("H1", "a.txt"), pair[0])
	require.Equal(t, artifact.Built("H1", "b.txt"), pair[1])
}

func TestWithCwdRewritesCallsAndShadowsNotMessages(t *testing.T) {
	c := Prog(Env("make")).Then(Message("building")).Then(Shadow(artifact.External("x"), "dest"))
	rewritten, err := WithCwd("sub", c)
	require.NoError(t, err)

	require.Equal(t, "sub", rewritten.Steps[0].Cwd)
	require.Equal(t, "building", rewritten.Steps[1].Text)
	require.Equal(t, "sub/dest", rewritten.Steps[2].ShadowDest)
}

func TestWithCwdRewritesMkdir(t *testing.T) {
	c := CreateDirectoryA("out")
	rewritten, err := WithCwd("sub", c)
	require.NoError(t, err)
	require.Equal(t, "sub/out", rewritten.Steps[0].MkdirPath)
}

func TestCreateDirectoryAChangesHash(t *testing.T) {
	base := Prog(Env("true"))
	h1, err := Q{Command: base, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)

	withMkdir := CreateDirectoryA("build").Then(base)
	h2, err := Q{Command: withMkdir, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	h3, err := Q{Command: withMkdir, OutputPaths: []string{"out"}}.Hash(nil)
	require.NoError(t, err)
	require.Equal(t, h2, h3)
}

func TestWithCwdRejectsAbsolute(t *testing.T) {
	_, err := WithCwd("/abs", Prog(Env("true")))
	require.Error(t, err)
}

func TestThenUnionsInputsWithoutDuplication(t *testing.T) {
	a := artifact.External("x")
	c := Input(a).Then(Input(a))
	require.Len(t, c.InputArtifacts(), 1)
}

func TestWriteHashStableAndSensitiveToContents(t *testing.T) {
	h1 := WriteHash([]byte("hi"))
	h2 := WriteHash([]byte("hi"))
	h3 := WriteHash([]byte("bye"))
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
