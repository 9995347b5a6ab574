package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/saylorsolutions/stubpack/pkg/pack"
)

// LogLines is the number of log lines kept for display.
const LogLines = 15

var ErrClosedEarly = errors.New("progress stream ended without a result")

// State is the presentation model of a running job. It's safe for concurrent use.
type State struct {
	mu       sync.Mutex
	now      func() time.Time
	started  time.Time
	progress int
	status   string
	log      []string
	finished bool
	result   *pack.Result
}

// Snapshot is a point in time copy of a State.
type Snapshot struct {
	Progress int
	Status   string
	Log      []string
	Finished bool
	Result   *pack.Result
	Elapsed  time.Duration
}

// NewState creates a State that stamps log lines relative to now. A nil clock uses time.Now.
func NewState(clock func() time.Time) *State {
	if clock == nil {
		clock = time.Now
	}
	return &State{
		now:     clock,
		started: clock(),
		status:  "Starting",
	}
}

// Apply records an Event. Events after the terminal one are ignored.
func (s *State) Apply(e pack.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	if e.Percent > s.progress {
		s.progress = min(e.Percent, 100)
	}
	first, rest, _ := strings.Cut(strings.TrimRight(e.Message, "\n"), "\n")
	s.status = first
	s.appendLog(fmt.Sprintf("%7.2fs  %s", s.now().Sub(s.started).Seconds(), first))
	if len(rest) > 0 {
		for _, line := range strings.Split(rest, "\n") {
			s.appendLog("          " + line)
		}
	}
	if e.Terminal() {
		res := *e.Result
		s.result = &res
		s.finished = true
	}
}

// closed marks the State finished if the stream ended without a terminal Event.
func (s *State) closed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.progress = 100
	s.status = ErrClosedEarly.Error()
	s.result = &pack.Result{
		Outcome: pack.Failure,
		Err:     ErrClosedEarly,
	}
}

func (s *State) appendLog(line string) {
	s.log = append(s.log, line)
	if over := len(s.log) - LogLines; over > 0 {
		s.log = append(s.log[:0], s.log[over:]...)
	}
}

// Finished reports whether the job has reported its terminal Event.
func (s *State) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Result returns the job's Result, or nil if it hasn't finished.
func (s *State) Result() *pack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Progress: s.progress,
		Status:   s.status,
		Log:      append([]string(nil), s.log...),
		Finished: s.finished,
		Result:   s.result,
		Elapsed:  s.now().Sub(s.started),
	}
}

// Drain applies every Event that's ready without blocking.
// It returns the number of Events applied, and false once the channel has been closed.
func Drain(events <-chan pack.Event, st *State) (int, bool) {
	var n int
	for {
		select {
		case e, ok := <-events:
			if !ok {
				st.closed()
				return n, false
			}
			st.Apply(e)
			n++
		default:
			return n, true
		}
	}
}
