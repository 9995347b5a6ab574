package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBuildFailed = errors.New("stub build failed")
	ErrWorkspace   = errors.New("unable to prepare build workspace")
	ErrArtifact    = errors.New("unable to deliver build artifact")
)

// Error is returned when the toolchain exits unsuccessfully.
// Output holds the toolchain's diagnostic output verbatim.
type Error struct {
	Output string
	Err    error
}

func (e *Error) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) == 0 {
		return fmt.Sprintf("%v: %v", ErrBuildFailed, e.Err)
	}
	return fmt.Sprintf("%v: %v\n%s", ErrBuildFailed, e.Err, out)
}

func (e *Error) Is(target error) bool {
	return target == ErrBuildFailed
}

func (e *Error) Unwrap() error {
	return e.Err
}
