package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/saylorsolutions/stubpack/pkg/pack"
)

const gaugeWidth = 50

// Info is static job information shown alongside the progress.
type Info struct {
	Input   string
	Output  string
	Codec   string
	Version string
}

func outcomeColor(res *pack.Result) string {
	switch {
	case res == nil:
		return "yellow"
	case res.Succeeded():
		return "green"
	default:
		return "red"
	}
}

func renderTitle(info Info) string {
	title := "[::b]stubpack[::-]"
	if len(info.Version) > 0 {
		title += " " + tview.Escape(info.Version)
	}
	return title
}

// renderGauge draws a progress bar with tview color tags.
func renderGauge(snap Snapshot, width int) string {
	pct := min(max(snap.Progress, 0), 100)
	filled := pct * width / 100
	return fmt.Sprintf("[%s]%s[gray]%s[-] %3d%%  %s",
		outcomeColor(snap.Result),
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		pct,
		tview.Escape(snap.Status),
	)
}

func renderLog(snap Snapshot) string {
	lines := make([]string, len(snap.Log))
	for i, line := range snap.Log {
		lines[i] = tview.Escape(line)
	}
	return strings.Join(lines, "\n")
}

func renderInfo(snap Snapshot, info Info) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input:   %s\n", tview.Escape(info.Input))
	fmt.Fprintf(&sb, "Output:  %s\n", tview.Escape(info.Output))
	fmt.Fprintf(&sb, "Codec:   %s\n", tview.Escape(info.Codec))
	switch res := snap.Result; {
	case !snap.Finished:
		fmt.Fprintf(&sb, "[yellow]Working... %.1fs[-]", snap.Elapsed.Seconds())
	case res.Succeeded():
		fmt.Fprintf(&sb, "[green]Succeeded in %.1fs.[-] Press q to exit.", snap.Elapsed.Seconds())
	default:
		fmt.Fprintf(&sb, "[red]Failed (%s).[-] Press q to exit.", res.Kind)
	}
	return sb.String()
}
