package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/saylorsolutions/stubpack/pkg/pack"
)

const pollInterval = 100 * time.Millisecond

type views struct {
	title *tview.TextView
	gauge *tview.TextView
	log   *tview.TextView
	info  *tview.TextView
}

func newViews() *views {
	v := &views{
		title: tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
		gauge: tview.NewTextView().SetDynamicColors(true),
		log:   tview.NewTextView().SetDynamicColors(true).SetScrollable(true),
		info:  tview.NewTextView().SetDynamicColors(true),
	}
	v.gauge.SetBorder(true).SetTitle(" Progress ")
	v.log.SetBorder(true).SetTitle(" Log ")
	v.info.SetBorder(true).SetTitle(" Job ")
	return v
}

func (v *views) layout() tview.Primitive {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.title, 1, 0, false).
		AddItem(v.gauge, 3, 0, false).
		AddItem(v.log, 0, 1, false).
		AddItem(v.info, 6, 0, false)
}

// render must be called on the application's goroutine.
func (v *views) render(snap Snapshot, info Info) {
	v.title.SetText(renderTitle(info))
	v.gauge.SetText(renderGauge(snap, gaugeWidth))
	v.log.SetText(renderLog(snap)).ScrollToEnd()
	v.info.SetText(renderInfo(snap, info))
}

// RunTUI renders events in a full screen terminal UI until the job has finished and the user exits.
// Key presses, including Ctrl-C, are ignored until the terminal Event has been received.
func RunTUI(events <-chan pack.Event, info Info) (*pack.Result, error) {
	return runTUI(nil, NewState(nil), events, info)
}

// runTUI draws on screen, or on the terminal if screen is nil.
func runTUI(screen tcell.Screen, st *State, events <-chan pack.Event, info Info) (*pack.Result, error) {
	var (
		app = tview.NewApplication()
		v   = newViews()
	)
	if screen != nil {
		app.SetScreen(screen)
	}
	v.render(st.Snapshot(), info)
	app.SetRoot(v.layout(), true)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if !st.Finished() {
			return nil
		}
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyEnter, tcell.KeyCtrlC:
			app.Stop()
		case tcell.KeyRune:
			if r := event.Rune(); r == 'q' || r == 'Q' {
				app.Stop()
			}
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		open := true
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			select {
			case <-done:
				return
			default:
			}
			if open {
				_, open = Drain(events, st)
			}
			snap := st.Snapshot()
			app.QueueUpdateDraw(func() {
				v.render(snap, info)
			})
		}
	}()

	err := app.Run()
	close(done)
	return st.Result(), err
}
