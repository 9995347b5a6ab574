package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const (
	workDirPattern  = "stubpack-*"
	artifactPattern = ".stubpack-*"
	sourceFileMode  = 0o600
	artifactMode    = 0o755
)

// Orchestrator turns stub sources into an artifact at a caller specified path, without leaving anything else behind.
type Orchestrator struct {
	toolchain Toolchain
	workRoot  string
	logger    *slog.Logger
	removeAll func(path string) error
}

// OrchestratorOpt configures an Orchestrator in NewOrchestrator.
type OrchestratorOpt = func(o *Orchestrator)

// WorkRoot sets the directory that working directories are created in. Defaults to os.TempDir.
func WorkRoot(dir string) OrchestratorOpt {
	return func(o *Orchestrator) {
		o.workRoot = dir
	}
}

// Logger sets the logger used to report build steps.
func Logger(logger *slog.Logger) OrchestratorOpt {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an Orchestrator that builds with the given Toolchain, or a GoToolchain if it's nil.
func NewOrchestrator(toolchain Toolchain, opts ...OrchestratorOpt) *Orchestrator {
	if toolchain == nil {
		toolchain = new(GoToolchain)
	}
	o := &Orchestrator{
		toolchain: toolchain,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build writes files into a fresh working directory, builds them for target and copies the artifact to output.
// The working directory is removed before Build returns, whether or not the build succeeded.
// The output path is only written once a complete artifact exists, so a failed Build leaves it untouched.
// Once the artifact is delivered, failing to remove the working directory is logged rather than returned, since the output is already complete.
func (o *Orchestrator) Build(ctx context.Context, files map[string][]byte, target Target, output string) (err error) {
	if len(files) == 0 {
		return fmt.Errorf("%w: no source files", ErrWorkspace)
	}
	dir, err := os.MkdirTemp(o.workRoot, workDirPattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkspace, err)
	}
	log := o.logger.With("dir", dir, "target", target.String())
	defer func() {
		if rerr := o.removeAll(dir); rerr != nil {
			log.Error("Failed to remove working directory, it must be removed manually", "error", rerr)
			return
		}
		log.Debug("Removed working directory")
	}()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("%w: invalid source file name '%s'", ErrWorkspace, name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), files[name], sourceFileMode); err != nil {
			return fmt.Errorf("%w: %v", ErrWorkspace, err)
		}
	}
	log.Debug("Wrote stub sources", "files", names)

	artifact, err := o.toolchain.Build(ctx, dir, target)
	if err != nil {
		var buildErr *Error
		if errors.As(err, &buildErr) {
			log.Warn("Toolchain failed", "error", buildErr.Err, "output", buildErr.Output)
			return err
		}
		log.Warn("Toolchain failed", "error", err)
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	if err := deliver(artifact, output); err != nil {
		return err
	}
	log.Info("Delivered artifact", "output", output)
	return nil
}

// deliver copies src next to dst under a temporary name and renames it into place.
func deliver(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.CreateTemp(filepath.Dir(dst), artifactPattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	tmp := out.Name()
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	if err := os.Chmod(tmp, artifactMode); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	return nil
}
