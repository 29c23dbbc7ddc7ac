package sequencer

import (
	"math"
	"testing"
)

func TestStoreDefaults(t *testing.T) {
	s := NewPatternStore()
	if s.Tempo() != 120 {
		t.Errorf("tempo = %v", s.Tempo())
	}
	tracks := s.Tracks()
	if !tracks[0].Running {
		t.Error("track 0 should run by default")
	}
	for i := 1; i < NumTracks; i++ {
		if tracks[i].Running {
			t.Errorf("track %d should be stopped by default", i)
		}
		if tracks[i].Output != TargetMask(1<<uint(i)) {
			t.Errorf("track %d output = %08b", i, tracks[i].Output)
		}
	}
}

func TestStoreClampsStageFields(t *testing.T) {
	s := NewPatternStore()
	s.SetPulses(0, 1, 99)
	s.SetRatchets(0, 1, 0)
	s.SetProbability(0, 1, math.NaN())
	s.SetNoteSlot(0, 1, -5)
	s.SetOctave(0, 1, 12)
	s.SetGateLength(0, 1, 0)
	s.SetAccumulator(0, 1, 20, AccumOnRatchet, 40, AccumShared)
	s.SetGateMode(0, 1, GateMode(42))

	st := s.Track(0).Stages[1]
	if st.Pulses != MaxPulses || st.Ratchets != 1 {
		t.Errorf("pulses=%d ratchets=%d", st.Pulses, st.Ratchets)
	}
	if st.Probability != 0 || st.NoteSlot != 0 || st.Octave != MaxOctave {
		t.Errorf("probability=%v slot=%d octave=%d", st.Probability, st.NoteSlot, st.Octave)
	}
	if st.GateLength != MinGateLength {
		t.Errorf("gate length = %v", st.GateLength)
	}
	if st.AccumTranspose != MaxAccumStep || st.AccumRange != MaxAccumRange {
		t.Errorf("accumulator %d/%d", st.AccumTranspose, st.AccumRange)
	}
	if st.AccumTrigger != AccumOnRatchet || st.AccumMode != AccumShared {
		t.Errorf("accumulator trigger/mode lost")
	}
	if st.GateMode != GateEvery {
		t.Errorf("invalid gate mode kept: %v", st.GateMode)
	}
}

func TestStoreClampsTrackFields(t *testing.T) {
	s := NewPatternStore()
	s.SetLoop(2, 6, 1)
	s.SetTranspose(2, 100)
	s.SetBaseOctave(2, -10)
	s.SetVelocity(2, 0)
	s.SetDirectionStep(2, 0)
	s.SetDivision(2, Division{0, 4})

	tr := s.Track(2)
	if tr.LoopStart != 1 || tr.LoopEnd != 6 {
		t.Errorf("loop = %d..%d, want 1..6", tr.LoopStart, tr.LoopEnd)
	}
	if tr.Transpose != MaxTranspose || tr.BaseOctave != -MaxOctave {
		t.Errorf("transpose=%d octave=%d", tr.Transpose, tr.BaseOctave)
	}
	if tr.Velocity != 1 || tr.DirectionStep != 1 || tr.Division != DivQuarter {
		t.Errorf("velocity=%d step=%d division=%v", tr.Velocity, tr.DirectionStep, tr.Division)
	}

	s.SetLoop(3, -4, 20)
	if tr := s.Track(3); tr.LoopStart != 0 || tr.LoopEnd != NumStages-1 {
		t.Errorf("loop = %d..%d", tr.LoopStart, tr.LoopEnd)
	}
}

func TestStoreIgnoresOutOfRangeIndexes(t *testing.T) {
	s := NewPatternStore()
	v := s.Version()
	s.SetPulses(NumTracks, 0, 3)
	s.SetPulses(0, NumStages, 3)
	s.SetMuted(-1, true)
	if s.Version() != v {
		t.Error("out-of-range edits should not change the store")
	}
}

func TestStoreGlobals(t *testing.T) {
	s := NewPatternStore()
	s.SetTempo(1000)
	s.SetRoot(-1)
	s.SetGlobalOctave(9)
	s.SetScale(ScaleCount + 3)

	if s.Tempo() != MaxTempo {
		t.Errorf("tempo = %v", s.Tempo())
	}
	root, octave, scale := s.Scale()
	if root != 11 || octave != MaxOctave || scale != ScaleChromatic {
		t.Errorf("root=%d octave=%d scale=%v", root, octave, scale)
	}
}

func TestApplyEuclidean(t *testing.T) {
	s := NewPatternStore()
	s.SetLoop(0, 0, 7)
	s.ApplyEuclidean(0, 3, 0)
	tr := s.Track(0)
	want := "x.x..x.."
	for i, st := range tr.Stages {
		hit := st.StepType == StepPlay
		if hit != (want[i] == 'x') {
			t.Fatalf("stage %d step type %v, pattern %s", i, st.StepType, want)
		}
	}

	// only the loop range is rewritten
	s.ResetTrack(1)
	s.SetLoop(1, 2, 5)
	s.ApplyEuclidean(1, 0, 0)
	tr = s.Track(1)
	for i, st := range tr.Stages {
		inLoop := i >= 2 && i <= 5
		if inLoop != (st.StepType == StepRest) {
			t.Errorf("stage %d: %v", i, st.StepType)
		}
	}
}

func TestResetTrackAndClear(t *testing.T) {
	s := NewPatternStore()
	s.SetPulses(0, 0, 4)
	s.ResetTrack(0)
	tr := s.Track(0)
	if tr.Stages[0].Pulses != 1 || !tr.Running {
		t.Errorf("reset track: pulses=%d running=%v", tr.Stages[0].Pulses, tr.Running)
	}

	s.SetTempo(90)
	s.SetRunning(3, true)
	s.SetChord(0, []int{0, 4, 7})
	s.Clear()
	if s.Tempo() != 120 || s.Track(3).Running {
		t.Error("Clear should restore defaults")
	}
	snap := s.Snapshot(SnapshotParams{SampleRate: 48000, LookaheadMs: 100})
	if snap.Chords[0].Len != 0 {
		t.Error("Clear should drop chords")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewPatternStore()
	s.SetCompensation(1, 10)
	s.SetCompensation(2, -5)
	s.SetChord(3, []int{0, 3, 7})
	s.SetUseChord(true)
	snap := s.Snapshot(SnapshotParams{SampleRate: 48000, LookaheadMs: 100, Epoch: 4, Running: true, Origin: 99})

	s.SetPulses(0, 0, 5)
	if snap.Tracks[0].Stages[0].Pulses != 1 {
		t.Error("snapshot changed after a store edit")
	}
	if snap.Compensation[1] != 480 || snap.Compensation[2] != -240 {
		t.Errorf("compensation = %v", snap.Compensation)
	}
	if snap.Lookahead != 4800 || snap.Epoch != 4 || !snap.Running || snap.Origin != 99 {
		t.Errorf("snapshot params: %+v", snap)
	}
	if iv := snap.intervals(3); iv.Len != 3 || iv.Steps[1] != 3 {
		t.Errorf("chord intervals = %v", iv.Slice())
	}
	if iv := snap.intervals(2); iv.Len != 7 {
		t.Errorf("stage without chord should use the scale, got %v", iv.Slice())
	}
}

func TestPulseSamples(t *testing.T) {
	s := NewPatternStore()
	snap := s.Snapshot(SnapshotParams{SampleRate: 48000, LookaheadMs: 100})
	tests := []struct {
		div  Division
		want float64
	}{
		{DivQuarter, 24000},
		{DivEighth, 12000},
		{DivTriplet8, 8000},
		{DivWhole, 96000},
	}
	for _, tt := range tests {
		tr := DefaultTrack(0)
		tr.Division = tt.div
		if got := snap.PulseSamples(&tr); got != tt.want {
			t.Errorf("%v: %v samples, want %v", tt.div, got, tt.want)
		}
	}
}
