package internal

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ExitFailure = 1
	ExitUsage   = 2
)

var (
	// Output is where Echo writes. Defaults to os.Stderr.
	Output io.Writer = os.Stderr
	// Exit is called by Fatal and Usage.
	Exit = os.Exit
)

// Fatal will Echo the message and Exit with ExitFailure.
func Fatal(msg string, args ...any) {
	Echo(msg, args...)
	Exit(ExitFailure)
}

// Usage will Echo the message and Exit with ExitUsage, for errors in how the command was invoked.
func Usage(msg string, args ...any) {
	Echo(msg, args...)
	Exit(ExitUsage)
}

// Echo will emit the given message without any logging formatting.
func Echo(msg string, args ...any) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprintf(Output, msg, args...)
}
