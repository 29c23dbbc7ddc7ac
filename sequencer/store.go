package sequencer

import (
	"sync"

	"go-stageseq/debug"
)

// PatternStore owns the editable pattern data. Every setter clamps its input so the
// scheduler never sees an out-of-range value. Safe for concurrent use; edits take
// effect with the next snapshot.
type PatternStore struct {
	mu sync.RWMutex

	tracks   [NumTracks]Track
	tempo    float64
	root     int
	octave   int
	scale    ScaleType
	useChord bool
	chords   [NumStages]Intervals

	compensationMs [MaxTargets]float64
	version        uint64
}

// NewPatternStore creates a store with default tracks; only track 0 is running
func NewPatternStore() *PatternStore {
	s := &PatternStore{
		tempo: 120,
		scale: ScaleMajor,
	}
	for i := range s.tracks {
		s.tracks[i] = DefaultTrack(i)
		s.tracks[i].Running = i == 0
	}
	return s
}

// edit applies fn to a track under the write lock, then re-validates the track
func (s *PatternStore) edit(track int, fn func(t *Track)) {
	if track < 0 || track >= NumTracks {
		debug.Log("store", "edit ignored: track %d out of range", track)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.tracks[track])
	normalizeTrack(&s.tracks[track])
	s.version++
}

// editStage applies fn to one stage of a track
func (s *PatternStore) editStage(track, stage int, fn func(st *Stage)) {
	if stage < 0 || stage >= NumStages {
		debug.Log("store", "edit ignored: stage %d out of range", stage)
		return
	}
	s.edit(track, func(t *Track) { fn(&t.Stages[stage]) })
}

// normalizeTrack clamps every bounded field of a track and its stages
func normalizeTrack(t *Track) {
	for i := range t.Stages {
		normalizeStage(&t.Stages[i])
	}
	if t.Direction < 0 || t.Direction >= directionCount {
		t.Direction = DirForward
	}
	t.DirectionStep = clampInt(t.DirectionStep, 1, NumStages)
	if t.Division.Num <= 0 || t.Division.Den <= 0 {
		t.Division = DivQuarter
	}
	t.Division.Num = clampInt(t.Division.Num, 1, 64)
	t.Division.Den = clampInt(t.Division.Den, 1, 64)
	t.LoopStart = clampInt(t.LoopStart, 0, NumStages-1)
	t.LoopEnd = clampInt(t.LoopEnd, 0, NumStages-1)
	if t.LoopEnd < t.LoopStart {
		t.LoopStart, t.LoopEnd = t.LoopEnd, t.LoopStart
	}
	t.Transpose = clampInt(t.Transpose, -MaxTranspose, MaxTranspose)
	t.BaseOctave = clampInt(t.BaseOctave, -MaxOctave, MaxOctave)
	t.Velocity = uint8(clampInt(int(t.Velocity), 1, 127))
}

func normalizeStage(st *Stage) {
	st.Pulses = clampInt(st.Pulses, 1, MaxPulses)
	st.Ratchets = clampInt(st.Ratchets, 1, MaxRatchets)
	st.Probability = clampFloat(st.Probability, 0, 1)
	st.NoteSlot = clampInt(st.NoteSlot, 0, MaxNoteSlot)
	st.Octave = clampInt(st.Octave, -MaxOctave, MaxOctave)
	st.GateLength = clampFloat(st.GateLength, MinGateLength, 1)
	st.AccumTranspose = clampInt(st.AccumTranspose, -MaxAccumStep, MaxAccumStep)
	st.AccumRange = clampInt(st.AccumRange, 0, MaxAccumRange)
	if st.GateMode < 0 || st.GateMode >= gateModeCount {
		st.GateMode = GateEvery
	}
	if st.StepType < 0 || st.StepType >= stepTypeCount {
		st.StepType = StepPlay
	}
	if st.AccumTrigger < 0 || st.AccumTrigger >= accumTriggerCount {
		st.AccumTrigger = AccumOnStage
	}
	if st.AccumMode < 0 || st.AccumMode >= accumModeCount {
		st.AccumMode = AccumPerStage
	}
}

// Track returns a copy of a track
func (s *PatternStore) Track(track int) Track {
	track = clampInt(track, 0, NumTracks-1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracks[track]
}

// Tracks returns a copy of all tracks
func (s *PatternStore) Tracks() [NumTracks]Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracks
}

// Version increments on every edit; the snapshot loop uses it to skip identical rebuilds
func (s *PatternStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetTrack replaces a whole track (clamped)
func (s *PatternStore) SetTrack(track int, t Track) {
	s.edit(track, func(dst *Track) { *dst = t })
}

// ResetTrack restores a track to its defaults, keeping its running flag
func (s *PatternStore) ResetTrack(track int) {
	s.edit(track, func(t *Track) {
		running := t.Running
		*t = DefaultTrack(track)
		t.Running = running
	})
}

// Clear restores every track and the global settings to their defaults
func (s *PatternStore) Clear() {
	fresh := NewPatternStore()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = fresh.tracks
	s.tempo = fresh.tempo
	s.root = fresh.root
	s.octave = fresh.octave
	s.scale = fresh.scale
	s.useChord = false
	s.chords = [NumStages]Intervals{}
	s.version++
}

// Per-track setters

func (s *PatternStore) SetDirection(track int, d Direction) {
	s.edit(track, func(t *Track) { t.Direction = d })
}

func (s *PatternStore) SetDirectionStep(track, n int) {
	s.edit(track, func(t *Track) { t.DirectionStep = n })
}

func (s *PatternStore) SetDivision(track int, d Division) {
	s.edit(track, func(t *Track) { t.Division = d })
}

// SetLoop sets the inclusive loop range; a reversed range is swapped
func (s *PatternStore) SetLoop(track, start, end int) {
	s.edit(track, func(t *Track) {
		t.LoopStart = start
		t.LoopEnd = end
	})
}

func (s *PatternStore) SetTranspose(track, semitones int) {
	s.edit(track, func(t *Track) { t.Transpose = semitones })
}

func (s *PatternStore) SetBaseOctave(track, octave int) {
	s.edit(track, func(t *Track) { t.BaseOctave = octave })
}

func (s *PatternStore) SetVelocity(track, velocity int) {
	s.edit(track, func(t *Track) { t.Velocity = uint8(clampInt(velocity, 1, 127)) })
}

func (s *PatternStore) SetMuted(track int, muted bool) {
	s.edit(track, func(t *Track) { t.Muted = muted })
}

func (s *PatternStore) SetRunning(track int, running bool) {
	s.edit(track, func(t *Track) { t.Running = running })
}

func (s *PatternStore) SetOutput(track int, mask TargetMask) {
	s.edit(track, func(t *Track) { t.Output = mask })
}

// ApplyEuclidean spreads fills hits over the loop range: hits play, the rest rest
func (s *PatternStore) ApplyEuclidean(track, fills, rotation int) {
	s.edit(track, func(t *Track) {
		p := Euclid(t.LoopLen(), fills, rotation)
		for i, hit := range p.Hits {
			st := &t.Stages[t.LoopStart+i]
			if hit {
				st.StepType = StepPlay
			} else {
				st.StepType = StepRest
			}
		}
	})
}

// Per-stage setters

func (s *PatternStore) SetStage(track, stage int, st Stage) {
	s.editStage(track, stage, func(dst *Stage) { *dst = st })
}

func (s *PatternStore) SetPulses(track, stage, pulses int) {
	s.editStage(track, stage, func(st *Stage) { st.Pulses = pulses })
}

func (s *PatternStore) SetGateMode(track, stage int, g GateMode) {
	s.editStage(track, stage, func(st *Stage) { st.GateMode = g })
}

func (s *PatternStore) SetRatchets(track, stage, ratchets int) {
	s.editStage(track, stage, func(st *Stage) { st.Ratchets = ratchets })
}

func (s *PatternStore) SetProbability(track, stage int, p float64) {
	s.editStage(track, stage, func(st *Stage) { st.Probability = p })
}

func (s *PatternStore) SetNoteSlot(track, stage, slot int) {
	s.editStage(track, stage, func(st *Stage) { st.NoteSlot = slot })
}

func (s *PatternStore) SetOctave(track, stage, octave int) {
	s.editStage(track, stage, func(st *Stage) { st.Octave = octave })
}

func (s *PatternStore) SetStepType(track, stage int, t StepType) {
	s.editStage(track, stage, func(st *Stage) { st.StepType = t })
}

func (s *PatternStore) SetGateLength(track, stage int, fraction float64) {
	s.editStage(track, stage, func(st *Stage) { st.GateLength = fraction })
}

func (s *PatternStore) SetSlide(track, stage int, slide bool) {
	s.editStage(track, stage, func(st *Stage) { st.Slide = slide })
}

// SetAccumulator configures a stage's accumulator in one call
func (s *PatternStore) SetAccumulator(track, stage, transpose int, trig AccumTrigger, rng int, mode AccumMode) {
	s.editStage(track, stage, func(st *Stage) {
		st.AccumTranspose = transpose
		st.AccumTrigger = trig
		st.AccumRange = rng
		st.AccumMode = mode
	})
}

// Global setters

func (s *PatternStore) SetTempo(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = clampFloat(bpm, MinTempo, MaxTempo)
	s.version++
}

func (s *PatternStore) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

// SetRoot sets the root note as a pitch class 0..11
func (s *PatternStore) SetRoot(root int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = floorMod(root, 12)
	s.version++
}

func (s *PatternStore) SetGlobalOctave(octave int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.octave = clampInt(octave, -MaxOctave, MaxOctave)
	s.version++
}

func (s *PatternStore) SetScale(t ScaleType) {
	if t < 0 || t >= ScaleCount {
		t = ScaleChromatic
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = t
	s.version++
}

// Scale returns the tonal settings: root pitch class, global octave and scale
func (s *PatternStore) Scale() (root, octave int, scale ScaleType) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, s.octave, s.scale
}

// SetChord sets the externally sourced chord used for a stage when chord mode is on.
// An empty slice clears the stage's chord.
func (s *PatternStore) SetChord(stage int, intervals []int) {
	if stage < 0 || stage >= NumStages {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chords[stage] = NewIntervals(intervals)
	s.version++
}

// SetUseChord switches note resolution between the scale and the external chords
func (s *PatternStore) SetUseChord(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useChord = on
	s.version++
}

// SetCompensation sets a target's timing offset in milliseconds (may be negative)
func (s *PatternStore) SetCompensation(target int, ms float64) {
	if target < 0 || target >= MaxTargets {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compensationMs[target] = clampFloat(ms, -500, 500)
	s.version++
}
