package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-stageseq/sequencer"
)

func TestRunGlobals(t *testing.T) {
	store := sequencer.NewPatternStore()
	r := NewRunner(store)
	err := r.Run(`
		assert(seq.tempo() == 120)
		seq.tempo(96)
		seq.root(2)
		seq.octave(1)
		seq.scale("harmonic minor")
		seq.compensation(2, 10)
	`)
	if err != nil {
		t.Fatal(err)
	}
	root, oct, sc := store.Scale()
	if store.Tempo() != 96 || root != 2 || oct != 1 || sc != sequencer.ScaleHarmonicMinor {
		t.Errorf("globals: tempo=%v root=%d octave=%d scale=%v", store.Tempo(), root, oct, sc)
	}
	snap := store.Snapshot(sequencer.SnapshotParams{SampleRate: 48000})
	if snap.Compensation[1] != 480 {
		t.Errorf("compensation = %v", snap.Compensation)
	}
}

func TestRunTrackAndStage(t *testing.T) {
	store := sequencer.NewPatternStore()
	r := NewRunner(store)
	err := r.Run(`
		seq.track(2, {direction = "climb", step = 3, division = "1/8", loop = {2, 5},
			transpose = -12, velocity = 200, running = true, output = 5})
		seq.stage(2, 3, {pulses = 4, gate = "first", ratchets = 2, probability = 0.5,
			note = 6, type = "tie", length = 0.25, slide = true,
			accum = {transpose = 2, range = 4, trigger = "pulse", mode = "track"}})
	`)
	if err != nil {
		t.Fatal(err)
	}
	tr := store.Track(1)
	if tr.Direction != sequencer.DirClimb || tr.DirectionStep != 3 || tr.Division != sequencer.DivEighth {
		t.Errorf("track direction/division = %+v", tr)
	}
	if tr.LoopStart != 1 || tr.LoopEnd != 4 || tr.Transpose != -12 || tr.Velocity != 127 || !tr.Running || tr.Output != 5 {
		t.Errorf("track fields = %+v", tr)
	}
	st := tr.Stages[2]
	want := sequencer.Stage{
		Pulses: 4, GateMode: sequencer.GateFirst, Ratchets: 2, Probability: 0.5,
		NoteSlot: 6, StepType: sequencer.StepTie, GateLength: 0.25, Slide: true,
		AccumTranspose: 2, AccumRange: 4, AccumTrigger: sequencer.AccumOnPulse, AccumMode: sequencer.AccumShared,
	}
	if st != want {
		t.Errorf("stage = %+v\nwant %+v", st, want)
	}
	if tr.Stages[1] != sequencer.DefaultTrack(1).Stages[1] {
		t.Error("untouched stage changed")
	}
}

func TestRunEuclidAndChord(t *testing.T) {
	store := sequencer.NewPatternStore()
	r := NewRunner(store)
	err := r.Run(`
		seq.euclid(1, 3)
		seq.chord(1, {0, 4, 7})
		seq.use_chord(true)
	`)
	if err != nil {
		t.Fatal(err)
	}
	tr := store.Track(0)
	hits := 0
	for _, st := range tr.Stages {
		if st.StepType == sequencer.StepPlay {
			hits++
		}
	}
	if hits != 3 {
		t.Errorf("euclid hits = %d, want 3", hits)
	}
	snap := store.Snapshot(sequencer.SnapshotParams{SampleRate: 48000})
	if !snap.UseChord || snap.Chords[0].Len != 3 {
		t.Errorf("chord = %+v use=%v", snap.Chords[0], snap.UseChord)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `seq.tempo(`, "run script"},
		{"bad track", `seq.track(9, {})`, "track must be 1..8"},
		{"bad field", `seq.track(1, {colour = 1})`, "unknown field"},
		{"bad direction", `seq.track(1, {direction = "sideways"})`, "unknown name"},
		{"bad stage type", `seq.stage(1, 1, {type = 3})`, "unknown name"},
		{"bad number", `seq.stage(1, 1, {pulses = "many"})`, "number expected"},
		{"bad scale", `seq.scale("nope")`, "unknown name"},
		{"bad loop", `seq.track(1, {loop = 3})`, "loop must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRunner(sequencer.NewPatternStore()).Run(tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.lua")
	if err := os.WriteFile(path, []byte(`seq.reset(1) seq.tempo(140)`), 0644); err != nil {
		t.Fatal(err)
	}
	store := sequencer.NewPatternStore()
	if err := NewRunner(store).RunFile(path); err != nil {
		t.Fatal(err)
	}
	if store.Tempo() != 140 {
		t.Errorf("tempo = %v", store.Tempo())
	}
	if err := NewRunner(store).RunFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("missing file should fail")
	}
}
