package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-stageseq/sequencer"
)

func newTestModel() Model {
	mgr := sequencer.NewManager(sequencer.NewPatternStore(), nil, sequencer.DefaultOptions())
	return NewModel(mgr, nil)
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		m = next.(Model)
	}
	return m
}

func TestTrackKeys(t *testing.T) {
	m := press(newTestModel(), "2", "m", "s", "d", "v")
	tr := m.store().Track(1)
	if m.track != 1 {
		t.Fatalf("track = %d", m.track)
	}
	if !tr.Muted || !tr.Running {
		t.Errorf("muted=%v running=%v", tr.Muted, tr.Running)
	}
	if tr.Direction != sequencer.DirReverse {
		t.Errorf("direction = %v", tr.Direction)
	}
	if tr.Division != sequencer.DivHalf {
		t.Errorf("division = %v", tr.Division)
	}

	m = press(m, "D", "D")
	if d := m.store().Track(1).Direction; d != sequencer.DirDiverge {
		t.Errorf("direction wraps to %v", d)
	}
}

func TestStageEditing(t *testing.T) {
	m := press(newTestModel(), "l", "l", "+", "+")
	if got := m.store().Track(0).Stages[2].NoteSlot; got != 4 {
		t.Errorf("note slot = %d, want 4", got)
	}

	m = press(m, "j", "+") // pulses
	if got := m.store().Track(0).Stages[2].Pulses; got != 2 {
		t.Errorf("pulses = %d", got)
	}

	m = press(m, "j", "j", "j", "-") // type wraps backwards to elide
	if got := m.store().Track(0).Stages[2].StepType; got != sequencer.StepElide {
		t.Errorf("step type = %v", got)
	}

	m = press(m, "h", "h", "h") // wraps to the last stage
	if m.stage != sequencer.NumStages-1 {
		t.Errorf("stage = %d", m.stage)
	}
}

func TestLoopAndEuclidKeys(t *testing.T) {
	m := press(newTestModel(), "l", "[", "l", "l", "l", "]")
	tr := m.store().Track(0)
	if tr.LoopStart != 1 || tr.LoopEnd != 4 {
		t.Fatalf("loop = %d..%d", tr.LoopStart, tr.LoopEnd)
	}

	// all four loop stages play, so one more fill wraps to none
	m = press(m, "e")
	tr = m.store().Track(0)
	for i := tr.LoopStart; i <= tr.LoopEnd; i++ {
		if tr.Stages[i].StepType != sequencer.StepRest {
			t.Errorf("stage %d = %v", i, tr.Stages[i].StepType)
		}
	}
	m = press(m, "e", "e")
	plays := 0
	tr = m.store().Track(0)
	for _, st := range tr.Stages[1:5] {
		if st.StepType == sequencer.StepPlay {
			plays++
		}
	}
	if plays != 2 {
		t.Errorf("plays = %d, want 2", plays)
	}
}

func TestGlobalKeys(t *testing.T) {
	m := press(newTestModel(), ".", ".", ",", "c", "T")
	s := m.store()
	root, _, sc := s.Scale()
	if s.Tempo() != 121 {
		t.Errorf("tempo = %v", s.Tempo())
	}
	if sc != sequencer.ScaleMinor {
		t.Errorf("scale = %v", sc)
	}
	if root != 11 {
		t.Errorf("root = %d", root)
	}
}

func TestTransportKeys(t *testing.T) {
	m := press(newTestModel(), " ")
	if !m.Manager.Transport().Running() {
		t.Fatal("space should start the transport")
	}
	if !strings.Contains(m.View(), "PLAY") {
		t.Error("view should show PLAY")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Error("ctrl+c should quit")
	}
	if m.Manager.Transport().Running() {
		t.Error("quitting should stop the transport")
	}
	if next.(Model).View() != "" {
		t.Error("view after quit should be empty")
	}
}

func TestViewAndTick(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	m = next.(Model)

	v := m.View()
	for _, want := range []string{"STOP", "120bpm", "C major", "track 1 stage 1", "pulses"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	m = press(m, "?")
	if !strings.Contains(m.View(), "Transport") {
		t.Error("help should list key sections")
	}
}
