package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	DefaultGoBinary = "go"
	artifactBase    = "stub"
)

// Target is the platform a stub is built for. Empty fields defer to the toolchain's defaults.
type Target struct {
	GOOS   string
	GOARCH string
}

func (t Target) String() string {
	goos, goarch := t.GOOS, t.GOARCH
	if len(goos) == 0 {
		goos = "default"
	}
	if len(goarch) == 0 {
		goarch = "default"
	}
	return goos + "/" + goarch
}

// ArtifactName is the file name a toolchain should produce for the Target.
func (t Target) ArtifactName() string {
	if t.GOOS == "windows" {
		return artifactBase + ".exe"
	}
	return artifactBase
}

// Toolchain compiles the sources in dir and returns the path of the produced artifact.
// A failed build should be reported as an *Error so that diagnostic output reaches the caller.
type Toolchain interface {
	Build(ctx context.Context, dir string, target Target) (string, error)
}

var _ Toolchain = (*GoToolchain)(nil)

// GoToolchain builds with the go command.
type GoToolchain struct {
	// Binary is the go command to run, resolved through PATH if it isn't a path. Defaults to DefaultGoBinary.
	Binary string
	// Env is appended to the inherited environment, after the build's own settings.
	Env []string
}

// Args returns the arguments passed to the go command to build into artifact.
func (g *GoToolchain) Args(artifact string) []string {
	return []string{
		"build",
		"-mod=mod",
		"-trimpath",
		"-ldflags", "-s -w",
		"-o", artifact,
		".",
	}
}

func (g *GoToolchain) Build(ctx context.Context, dir string, target Target) (string, error) {
	bin := g.Binary
	if len(bin) == 0 {
		bin = DefaultGoBinary
	}
	artifact := filepath.Join(dir, target.ArtifactName())

	cmd := exec.CommandContext(ctx, bin, g.Args(artifact)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOWORK=off", "GOFLAGS=")
	if len(target.GOOS) > 0 {
		cmd.Env = append(cmd.Env, "GOOS="+target.GOOS)
	}
	if len(target.GOARCH) > 0 {
		cmd.Env = append(cmd.Env, "GOARCH="+target.GOARCH)
	}
	cmd.Env = append(cmd.Env, g.Env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &Error{Output: stderr.String(), Err: err}
	}
	if _, err := os.Stat(artifact); err != nil {
		return "", &Error{Output: stderr.String(), Err: fmt.Errorf("artifact not produced: %w", err)}
	}
	return artifact, nil
}
