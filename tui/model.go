package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-stageseq/sequencer"
	"go-stageseq/theme"
	"go-stageseq/widgets"
)

// refreshInterval is how often the view polls playhead feedback
const refreshInterval = 33 * time.Millisecond

// field is the stage parameter edited by +/-
type field int

const (
	fieldNote field = iota
	fieldPulses
	fieldRatchets
	fieldGate
	fieldType
	fieldLength
	fieldProbability
	fieldOctave
	fieldSlide
	fieldAccum
	fieldCount
)

var fieldNames = []string{
	"note", "pulses", "ratchets", "gate", "type",
	"length", "probability", "octave", "slide", "accum",
}

type Model struct {
	Manager *sequencer.Manager
	Theme   *theme.Theme

	track, stage int
	field        field
	heads        [sequencer.NumTracks]sequencer.PlayheadState
	showHelp     bool
	quitting     bool
}

type tickMsg time.Time

func NewModel(manager *sequencer.Manager, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{Manager: manager, Theme: th}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) store() *sequencer.PatternStore { return m.Manager.Store() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tickMsg:
		m.heads = m.Manager.Scheduler().Playheads()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	s := m.store()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit

	case " ":
		m.Manager.Transport().Toggle()
	case "r":
		m.Manager.Transport().Reset()

	case "1", "2", "3", "4", "5", "6", "7", "8":
		m.track = int(key[0] - '1')

	case "left", "h":
		m.stage = (m.stage + sequencer.NumStages - 1) % sequencer.NumStages
	case "right", "l":
		m.stage = (m.stage + 1) % sequencer.NumStages
	case "up", "k":
		m.field = (m.field + fieldCount - 1) % fieldCount
	case "down", "j":
		m.field = (m.field + 1) % fieldCount

	case "+", "=":
		m.adjust(1)
	case "-", "_":
		m.adjust(-1)

	case "m":
		t := s.Track(m.track)
		s.SetMuted(m.track, !t.Muted)
	case "s":
		t := s.Track(m.track)
		s.SetRunning(m.track, !t.Running)
	case "d":
		t := s.Track(m.track)
		s.SetDirection(m.track, cycle(t.Direction, 1, len(sequencer.DirectionNames())))
	case "D":
		t := s.Track(m.track)
		s.SetDirection(m.track, cycle(t.Direction, -1, len(sequencer.DirectionNames())))
	case "v":
		t := s.Track(m.track)
		s.SetDivision(m.track, nextDivision(t.Division, 1))
	case "V":
		t := s.Track(m.track)
		s.SetDivision(m.track, nextDivision(t.Division, -1))
	case "[":
		s.SetLoop(m.track, m.stage, s.Track(m.track).LoopEnd)
	case "]":
		s.SetLoop(m.track, s.Track(m.track).LoopStart, m.stage)
	case "e":
		m.euclid()
	case "x":
		s.ResetTrack(m.track)

	case ".", ">":
		s.SetTempo(s.Tempo() + 1)
	case ",", "<":
		s.SetTempo(s.Tempo() - 1)
	case "c":
		_, _, sc := s.Scale()
		s.SetScale(cycle(sc, 1, len(sequencer.ScaleNames())))
	case "C":
		_, _, sc := s.Scale()
		s.SetScale(cycle(sc, -1, len(sequencer.ScaleNames())))
	case "t":
		root, _, _ := s.Scale()
		s.SetRoot(root + 1)
	case "T":
		root, _, _ := s.Scale()
		s.SetRoot(root - 1)

	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// adjust steps the selected field of the cursor stage by delta
func (m *Model) adjust(delta int) {
	s := m.store()
	st := s.Track(m.track).Stages[m.stage]
	t, i := m.track, m.stage
	switch m.field {
	case fieldNote:
		s.SetNoteSlot(t, i, st.NoteSlot+delta)
	case fieldPulses:
		s.SetPulses(t, i, st.Pulses+delta)
	case fieldRatchets:
		s.SetRatchets(t, i, st.Ratchets+delta)
	case fieldGate:
		s.SetGateMode(t, i, cycle(st.GateMode, delta, len(sequencer.GateModeNames())))
	case fieldType:
		s.SetStepType(t, i, cycle(st.StepType, delta, len(sequencer.StepTypeNames())))
	case fieldLength:
		s.SetGateLength(t, i, st.GateLength+0.05*float64(delta))
	case fieldProbability:
		s.SetProbability(t, i, st.Probability+0.1*float64(delta))
	case fieldOctave:
		s.SetOctave(t, i, st.Octave+delta)
	case fieldSlide:
		s.SetSlide(t, i, !st.Slide)
	case fieldAccum:
		s.SetAccumulator(t, i, st.AccumTranspose+delta, st.AccumTrigger, st.AccumRange, st.AccumMode)
	}
}

// euclid adds one fill to the track's euclidean rhythm, wrapping to zero
func (m *Model) euclid() {
	s := m.store()
	t := s.Track(m.track)
	fills := 0
	for i := t.LoopStart; i <= t.LoopEnd; i++ {
		if t.Stages[i].StepType == sequencer.StepPlay {
			fills++
		}
	}
	fills = (fills + 1) % (t.LoopLen() + 1)
	s.ApplyEuclidean(m.track, fills, 0)
}

func cycle[T ~int](v T, delta, n int) T {
	return T(((int(v)+delta)%n + n) % n)
}

var divisions = []sequencer.Division{
	sequencer.DivSixteenth, sequencer.DivTriplet8, sequencer.DivEighth,
	sequencer.DivDotted8, sequencer.DivQuarter, sequencer.DivHalf, sequencer.DivWhole,
}

func nextDivision(d sequencer.Division, delta int) sequencer.Division {
	for i, v := range divisions {
		if v == d {
			return divisions[cycle(i, delta, len(divisions))]
		}
	}
	return sequencer.DivQuarter
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := m.Theme
	s := m.store()
	tracks := s.Tracks()
	root, octave, sc := s.Scale()

	play := "STOP"
	if m.Manager.Transport().Running() {
		play = "PLAY"
	}
	header := th.Title().Render(fmt.Sprintf("go-stageseq  %s  %.0fbpm  %s %s%+d",
		play, s.Tempo(), sequencer.PitchName(root), sc, octave))

	var grid strings.Builder
	for i, t := range tracks {
		head := -1
		if m.heads[i].Active && t.Running && !t.Muted {
			head = m.heads[i].Stage
		}
		cursor := -1
		if i == m.track {
			cursor = m.stage
		}
		grid.WriteString(widgets.RenderTrackRow(th, i, t, head, cursor))
		grid.WriteString("\n")
	}

	view := widgets.Columns(2, th.Panel().Render(strings.TrimRight(grid.String(), "\n")), m.stageView(tracks[m.track]))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(view)
	out.WriteString("\n\n")
	if m.showHelp {
		out.WriteString(th.Dim().Render(widgets.RenderKeyHelp(keyHelp)))
	} else {
		out.WriteString(th.Dim().Render("space:play  1-8:track  hl:stage  jk:field  +/-:edit  ?:help  q:quit"))
	}
	return out.String()
}

// stageView renders the fields of the cursor stage
func (m Model) stageView(t sequencer.Track) string {
	th := m.Theme
	st := t.Stages[m.stage]
	head := m.heads[m.track]
	current := -1
	if head.Active && head.Stage == m.stage {
		current = head.Pulse
	}
	values := []string{
		fmt.Sprintf("%d", st.NoteSlot),
		widgets.RenderPulses(th, st.Pulses, current),
		fmt.Sprintf("%d", st.Ratchets),
		st.GateMode.String(),
		st.StepType.String(),
		fmt.Sprintf("%.2f", st.GateLength),
		fmt.Sprintf("%.0f%%", st.Probability*100),
		fmt.Sprintf("%+d", st.Octave),
		fmt.Sprintf("%v", st.Slide),
		fmt.Sprintf("%+d %s/%d", st.AccumTranspose, st.AccumTrigger, st.AccumRange),
	}

	var lines []string
	lines = append(lines, th.Title().Render(fmt.Sprintf("track %d stage %d", m.track+1, m.stage+1)))
	for i, name := range fieldNames {
		line := fmt.Sprintf("%-11s %s", name, values[i])
		if field(i) == m.field {
			lines = append(lines, th.Highlight().Render("> "+line))
		} else {
			lines = append(lines, th.Text().Render("  "+line))
		}
	}
	last := "--"
	if head.Active {
		last = sequencer.NoteName(head.LastNote)
	}
	lines = append(lines, th.Dim().Render(fmt.Sprintf("  last note  %s", last)))
	return th.Panel().Render(strings.Join(lines, "\n"))
}

var keyHelp = []widgets.KeySection{
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{"space", "play/stop"},
		{"r", "restart from now"},
		{", .", "tempo -/+"},
	}},
	{Title: "Track", Keys: []widgets.KeyBinding{
		{"1-8", "select track"},
		{"m / s", "mute / run"},
		{"d D", "direction"},
		{"v V", "division"},
		{"[ ]", "loop start/end at cursor"},
		{"e", "euclidean fill +1"},
		{"x", "reset track"},
	}},
	{Title: "Stage", Keys: []widgets.KeyBinding{
		{"h l", "move cursor"},
		{"j k", "select field"},
		{"+ -", "change field"},
	}},
	{Title: "Global", Keys: []widgets.KeyBinding{
		{"c C", "scale"},
		{"t T", "root"},
	}},
}
