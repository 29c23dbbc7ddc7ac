package sequencer

import "math"

// Snapshot is an immutable copy of everything the scheduler reads during a tick.
// It is built on the control side and never modified after Publish.
type Snapshot struct {
	Tracks [NumTracks]Track

	Tempo    float64
	Root     int
	Octave   int
	Scale    Intervals
	UseChord bool
	Chords   [NumStages]Intervals

	Epoch   uint64
	Running bool
	Origin  uint64

	Compensation [MaxTargets]int64 // samples, may be negative
	Lookahead    uint64            // samples
	SampleRate   int
	Dedup        bool
}

// SnapshotParams carries the transport and engine values a snapshot is stamped with
type SnapshotParams struct {
	SampleRate  int
	LookaheadMs float64
	Dedup       bool

	Epoch   uint64
	Running bool
	Origin  uint64
}

// Snapshot builds a deep copy of the store's current contents
func (s *PatternStore) Snapshot(p SnapshotParams) *Snapshot {
	rate := p.SampleRate
	if rate <= 0 {
		rate = 48000
	}
	snap := &Snapshot{
		Epoch:      p.Epoch,
		Running:    p.Running,
		Origin:     p.Origin,
		SampleRate: rate,
		Dedup:      p.Dedup,
		Lookahead:  uint64(math.Max(p.LookaheadMs, 1) * float64(rate) / 1000),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap.Tracks = s.tracks
	snap.Tempo = s.tempo
	snap.Root = s.root
	snap.Octave = s.octave
	snap.Scale = ScaleIntervals(s.scale)
	snap.UseChord = s.useChord
	snap.Chords = s.chords
	for i, ms := range s.compensationMs {
		snap.Compensation[i] = int64(math.Round(ms * float64(rate) / 1000))
	}
	return snap
}

// PulseSamples returns the length of one pulse of the track in samples, never below 1
func (s *Snapshot) PulseSamples(t *Track) float64 {
	tempo := s.Tempo
	if tempo <= 0 {
		tempo = MinTempo
	}
	if t.Division.Num <= 0 || t.Division.Den <= 0 {
		return 1
	}
	d := float64(s.SampleRate) * 60 * float64(t.Division.Num) / (tempo * float64(t.Division.Den))
	if d < 1 || math.IsNaN(d) {
		return 1
	}
	return d
}

// intervals returns the interval set a stage resolves against
func (s *Snapshot) intervals(stage int) *Intervals {
	if s.UseChord && s.Chords[stage].Len > 0 {
		return &s.Chords[stage]
	}
	return &s.Scale
}

// Note resolves the MIDI note a stage plays given its accumulator offset
func (s *Snapshot) Note(t *Track, stage, accum int) int {
	st := &t.Stages[stage]
	octave := s.Octave + t.BaseOctave + st.Octave
	n := ResolveNote(s.Root, octave, st.NoteSlot+accum, s.intervals(stage))
	return clampInt(n+t.Transpose, 0, 127)
}

// nextBoundary returns the first pulse boundary of the track at or after now,
// measured from the transport origin, split into whole samples and a fraction
func (s *Snapshot) nextBoundary(t *Track, now uint64) (uint64, float64) {
	if now <= s.Origin {
		return s.Origin, 0
	}
	pulse := s.PulseSamples(t)
	k := math.Ceil(float64(now-s.Origin) / pulse)
	at := float64(s.Origin) + k*pulse
	whole := math.Floor(at)
	if uint64(whole) < now {
		return now, 0
	}
	return uint64(whole), at - whole
}
