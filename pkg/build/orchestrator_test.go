package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToolchain writes the concatenated sources as the artifact, or fails with the configured error.
type fakeToolchain struct {
	err    error
	dirs   []string
	target Target
}

func (f *fakeToolchain) Build(_ context.Context, dir string, target Target) (string, error) {
	f.dirs = append(f.dirs, dir)
	f.target = target
	if f.err != nil {
		return "", f.err
	}
	src, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		return "", err
	}
	artifact := filepath.Join(dir, target.ArtifactName())
	return artifact, os.WriteFile(artifact, append([]byte("built:"), src...), 0o700)
}

func testFiles() map[string][]byte {
	return map[string][]byte{
		"main.go": []byte("package main\n\nfunc main() {}\n"),
		"go.mod":  []byte("module example.com/stub\n\ngo 1.21\n"),
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Nothing should be left behind in %s", dir)
}

func TestOrchestrator_Build(t *testing.T) {
	var (
		root   = t.TempDir()
		outDir = t.TempDir()
		output = filepath.Join(outDir, "packed")
		tc     = new(fakeToolchain)
		target = Target{GOOS: "linux", GOARCH: "arm64"}
	)
	o := NewOrchestrator(tc, WorkRoot(root))
	require.NoError(t, o.Build(context.Background(), testFiles(), target, output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "built:package main\n\nfunc main() {}\n", string(data))
	assert.Equal(t, target, tc.target)
	require.Len(t, tc.dirs, 1)
	assert.Equal(t, root, filepath.Dir(tc.dirs[0]))
	assert.NoDirExists(t, tc.dirs[0])
	assertEmptyDir(t, root)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Only the artifact should be written next to the output")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(output)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(artifactMode), info.Mode().Perm())
	}
}

func TestOrchestrator_BuildFailure(t *testing.T) {
	var (
		root   = t.TempDir()
		outDir = t.TempDir()
		output = filepath.Join(outDir, "packed")
	)
	require.NoError(t, os.WriteFile(output, []byte("previous contents"), 0o644))

	tc := &fakeToolchain{err: &Error{Output: "main.go:3:1: injected diagnostic", Err: errors.New("exit status 1")}}
	err := NewOrchestrator(tc, WorkRoot(root)).Build(context.Background(), testFiles(), Target{}, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildFailed)
	var buildErr *Error
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "main.go:3:1: injected diagnostic", buildErr.Output)
	assert.Contains(t, err.Error(), "injected diagnostic")

	require.Len(t, tc.dirs, 1)
	assert.NoDirExists(t, tc.dirs[0])
	assertEmptyDir(t, root)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "previous contents", string(data), "Output should be unchanged after a failed build")
}

func TestOrchestrator_PlainToolchainError(t *testing.T) {
	root := t.TempDir()
	tc := &fakeToolchain{err: errors.New("toolchain exploded")}
	err := NewOrchestrator(tc, WorkRoot(root)).Build(context.Background(), testFiles(), Target{}, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "toolchain exploded")
	assertEmptyDir(t, root)
}

func TestOrchestrator_DeliveryFailure(t *testing.T) {
	root := t.TempDir()
	output := filepath.Join(t.TempDir(), "missing", "dir", "packed")
	err := NewOrchestrator(new(fakeToolchain), WorkRoot(root)).Build(context.Background(), testFiles(), Target{}, output)
	assert.ErrorIs(t, err, ErrArtifact)
	assert.NoFileExists(t, output)
	assertEmptyDir(t, root)
}

func TestOrchestrator_WorkspaceFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	err := NewOrchestrator(new(fakeToolchain), WorkRoot(root)).Build(context.Background(), testFiles(), Target{}, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrWorkspace)

	err = NewOrchestrator(new(fakeToolchain)).Build(context.Background(), nil, Target{}, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrWorkspace)

	root = t.TempDir()
	files := testFiles()
	files["../escape.go"] = []byte("package main")
	err = NewOrchestrator(new(fakeToolchain), WorkRoot(root)).Build(context.Background(), files, Target{}, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrWorkspace)
	assertEmptyDir(t, root)
}

func TestTarget(t *testing.T) {
	assert.Equal(t, "stub.exe", Target{GOOS: "windows"}.ArtifactName())
	assert.Equal(t, "stub", Target{GOOS: "linux"}.ArtifactName())
	assert.Equal(t, "stub", Target{}.ArtifactName())
	assert.Equal(t, "default/default", Target{}.String())
	assert.Equal(t, "windows/amd64", Target{GOOS: "windows", GOARCH: "amd64"}.String())
}

func TestOrchestrator_CleanupFailureAfterDelivery(t *testing.T) {
	var (
		root    = t.TempDir()
		output  = filepath.Join(t.TempDir(), "packed")
		removed []string
	)
	o := NewOrchestrator(new(fakeToolchain), WorkRoot(root))
	o.removeAll = func(path string) error {
		removed = append(removed, path)
		_ = os.RemoveAll(path)
		return errors.New("device busy")
	}
	require.NoError(t, o.Build(context.Background(), testFiles(), Target{}, output), "A delivered artifact should be reported as a success")
	assert.Len(t, removed, 1)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "built:")

	// A failed build still reports the build error, and leaves the output alone.
	failing := NewOrchestrator(&fakeToolchain{err: &Error{Output: "injected diagnostic"}}, WorkRoot(root))
	failing.removeAll = o.removeAll
	missing := filepath.Join(t.TempDir(), "packed")
	err = failing.Build(context.Background(), testFiles(), Target{}, missing)
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.NoFileExists(t, missing)
}
