package widgets

import (
	"strings"
	"testing"

	"go-stageseq/sequencer"
	"go-stageseq/theme"
)

func TestStageSymbol(t *testing.T) {
	th := theme.New(nil)
	tests := []struct {
		name  string
		stage func(*sequencer.Stage)
		want  rune
	}{
		{"play", func(*sequencer.Stage) {}, th.Symbols.Play},
		{"tie", func(s *sequencer.Stage) { s.StepType = sequencer.StepTie }, th.Symbols.Tie},
		{"slide", func(s *sequencer.Stage) { s.Slide = true }, th.Symbols.Tie},
		{"rest", func(s *sequencer.Stage) { s.StepType = sequencer.StepRest }, th.Symbols.Rest},
		{"gate rest", func(s *sequencer.Stage) { s.GateMode = sequencer.GateRest }, th.Symbols.Rest},
		{"skip", func(s *sequencer.Stage) { s.StepType = sequencer.StepSkip }, th.Symbols.Skip},
		{"elide", func(s *sequencer.Stage) { s.StepType = sequencer.StepElide }, th.Symbols.Elide},
	}
	for _, tt := range tests {
		st := sequencer.DefaultStage()
		tt.stage(&st)
		if got := StageSymbol(th, st); got != tt.want {
			t.Errorf("%s: symbol %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRenderTrackRow(t *testing.T) {
	th := theme.New(nil)
	tr := sequencer.DefaultTrack(0)
	tr.Direction = sequencer.DirAlternate
	tr.Muted = true

	row := RenderTrackRow(th, 0, tr, 2, -1)
	for _, want := range []string{"1 ", "alternate", "1/1", "muted", string(th.Symbols.Head)} {
		if !strings.Contains(row, want) {
			t.Errorf("row %q missing %q", row, want)
		}
	}
	if n := strings.Count(RenderTrackRow(th, 0, sequencer.DefaultTrack(0), -1, -1), string(th.Symbols.Play)); n != sequencer.NumStages {
		t.Errorf("play symbols = %d", n)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	got := RenderKeyHelp([]KeySection{{Title: "Transport", Keys: []KeyBinding{{"space", "play/stop"}}}})
	if got != "Transport\n  space        play/stop" {
		t.Errorf("help = %q", got)
	}
}
