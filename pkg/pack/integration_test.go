package pack

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/saylorsolutions/stubpack/internal/testbin"
	"github.com/saylorsolutions/stubpack/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJob_GoToolchain builds a real stub and runs it, so it needs a go toolchain and a linux/amd64 host.
func TestJob_GoToolchain(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping toolchain build in short mode")
	}
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("The test payload only runs on linux/amd64")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go is not on PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	var (
		input  = testbin.ELFExit(42)
		output = filepath.Join(t.TempDir(), "packed")
		root   = t.TempDir()
	)
	job, events, err := NewJob(writeInput(t, input), output, WithWorkRoot(root), WithCodec(transform.CodecZlib))
	require.NoError(t, err)
	res := job.Run(ctx)
	assertLifecycle(t, collect(events))
	require.True(t, res.Succeeded(), "Job should succeed: %v", res.Err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = exec.CommandContext(ctx, output, "ignored", "args").Run()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "Packed payload should exit non-zero: %v", err)
	assert.Equal(t, 42, exitErr.ExitCode())
}
