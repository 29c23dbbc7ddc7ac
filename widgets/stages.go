package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-stageseq/sequencer"
	"go-stageseq/theme"
)

// StageSymbol returns the grid symbol for a stage's step type
func StageSymbol(th *theme.Theme, st sequencer.Stage) rune {
	switch {
	case st.StepType == sequencer.StepElide:
		return th.Symbols.Elide
	case st.StepType == sequencer.StepSkip:
		return th.Symbols.Skip
	case st.StepType == sequencer.StepRest || st.GateMode == sequencer.GateRest:
		return th.Symbols.Rest
	case st.Holds():
		return th.Symbols.Tie
	default:
		return th.Symbols.Play
	}
}

// RenderTrackRow renders one track as a row of stage cells.
// cursor < 0 hides the edit cursor; head is the playing stage (< 0 when idle).
func RenderTrackRow(th *theme.Theme, idx int, t sequencer.Track, head, cursor int) string {
	var line strings.Builder
	label := fmt.Sprintf("%d ", idx+1)
	if t.Muted || !t.Running {
		line.WriteString(th.Dim().Render(label))
	} else {
		line.WriteString(th.Text().Render(label))
	}

	for i, st := range t.Stages {
		sym := StageSymbol(th, st)
		style := th.Text()
		inLoop := i >= t.LoopStart && i <= t.LoopEnd
		if !inLoop || t.Muted {
			style = th.Dim()
		}
		if i == head {
			sym = th.Symbols.Head
			style = th.Playing()
		}
		if i == cursor {
			style = th.Highlight().Underline(true)
		}
		line.WriteString(style.Render(string(sym)))
		line.WriteString(" ")
	}

	info := fmt.Sprintf(" %-16s %5s", t.Direction, t.Division)
	if t.Muted {
		info += " muted"
	}
	line.WriteString(th.Dim().Render(info))
	return line.String()
}

// RenderPulses renders a pulse-count bar such as ▮▮▯▯▯▯▯▯
func RenderPulses(th *theme.Theme, pulses, current int) string {
	var out strings.Builder
	for i := 0; i < sequencer.MaxPulses; i++ {
		switch {
		case i == current:
			out.WriteString(th.Playing().Render(string(th.Symbols.Pulse)))
		case i < pulses:
			out.WriteString(th.Text().Render(string(th.Symbols.Pulse)))
		default:
			out.WriteString(th.Dim().Render(string(th.Symbols.NoPulse)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

// Columns joins blocks side by side with a gap
func Columns(gap int, blocks ...string) string {
	parts := make([]string, 0, len(blocks)*2)
	for i, b := range blocks {
		if i > 0 {
			parts = append(parts, strings.Repeat(" ", gap))
		}
		parts = append(parts, b)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
