package pack

import (
	"errors"
	"fmt"

	"github.com/saylorsolutions/stubpack/pkg/build"
	"github.com/saylorsolutions/stubpack/pkg/format"
)

var (
	ErrInput             = errors.New("unable to read input")
	ErrUnsupportedFormat = errors.New("unsupported executable format")
	ErrJobStarted        = errors.New("job has already been started")
	ErrInvalidJob        = errors.New("invalid job")
)

// Outcome is the machine readable status of a finished Job.
type Outcome uint8

const (
	Success Outcome = iota + 1
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "pending"
	}
}

// FailureKind classifies why a Job failed.
type FailureKind uint8

const (
	FailNone FailureKind = iota
	FailInput
	FailUnsupported
	FailEntropy
	FailTransform
	FailSynthesis
	FailBuild
	FailFilesystem
)

func (k FailureKind) String() string {
	switch k {
	case FailNone:
		return "none"
	case FailInput:
		return "input error"
	case FailUnsupported:
		return "unsupported format"
	case FailEntropy:
		return "entropy error"
	case FailTransform:
		return "transform error"
	case FailSynthesis:
		return "synthesis error"
	case FailBuild:
		return "build error"
	case FailFilesystem:
		return "filesystem error"
	default:
		return fmt.Sprintf("failure(%d)", uint8(k))
	}
}

// Result is the tagged outcome carried by a Job's terminal Event.
type Result struct {
	Outcome Outcome
	Kind    FailureKind
	Err     error
	// Verdict is how the input was classified, if it got that far.
	Verdict format.Verdict
	// Output is the path of the delivered artifact on Success.
	Output string
}

func (r Result) Succeeded() bool {
	return r.Outcome == Success
}

// Diagnostic returns the toolchain's output for build failures, or an empty string.
func (r Result) Diagnostic() string {
	var buildErr *build.Error
	if errors.As(r.Err, &buildErr) {
		return buildErr.Output
	}
	return ""
}

func (r Result) String() string {
	if r.Succeeded() {
		return fmt.Sprintf("%s: %s", r.Outcome, r.Output)
	}
	return fmt.Sprintf("%s (%s): %v", r.Outcome, r.Kind, r.Err)
}

func failure(kind FailureKind, err error) Result {
	return Result{
		Outcome: Failure,
		Kind:    kind,
		Err:     err,
	}
}

// buildFailureKind distinguishes toolchain failures from failures to manage the files around them.
func buildFailureKind(err error) FailureKind {
	switch {
	case errors.Is(err, build.ErrBuildFailed):
		return FailBuild
	case errors.Is(err, build.ErrWorkspace), errors.Is(err, build.ErrArtifact):
		return FailFilesystem
	default:
		return FailBuild
	}
}
