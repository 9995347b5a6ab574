package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/saylorsolutions/stubpack/pkg/pack"
)

var (
	stampColor   = color.New(color.Faint)
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
)

// RunPlain writes one line per Event to w until the channel is closed, and returns the job's Result.
func RunPlain(w io.Writer, events <-chan pack.Event) *pack.Result {
	st := NewState(nil)
	for e := range events {
		st.Apply(e)
		snap := st.Snapshot()
		_, _ = stampColor.Fprintf(w, "[%3d%% %6.2fs] ", e.Percent, snap.Elapsed.Seconds())
		msg := strings.TrimRight(e.Message, "\n")
		switch {
		case !e.Terminal():
			_, _ = fmt.Fprintln(w, msg)
		case e.Result.Succeeded():
			_, _ = successColor.Fprintln(w, msg)
		default:
			_, _ = failureColor.Fprintln(w, msg)
		}
	}
	st.closed()
	res := st.Result()
	if !res.Succeeded() && errors.Is(res.Err, ErrClosedEarly) {
		_, _ = failureColor.Fprintln(w, ErrClosedEarly.Error())
	}
	return res
}
