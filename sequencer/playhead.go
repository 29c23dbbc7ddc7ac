package sequencer

// PlayheadState is the display-only view of a track's position
type PlayheadState struct {
	Stage      int
	Pulse      int
	LastNote   int // -1 before the first note
	SampleTime uint64
	Active     bool
}

// record stores the position just played by the clock goroutine
func (s *Scheduler) record(track, stage, pulse int, at uint64) {
	p := &s.playheads[track]
	p.Stage = stage
	p.Pulse = pulse
	p.LastNote = s.runtime[track].LastNote
	p.SampleTime = at
	p.Active = true
}

// publishPlayheads copies the clock-side view out for the control side.
// A contended lock skips this round; the next tick publishes again.
func (s *Scheduler) publishPlayheads() {
	if !s.stateMu.TryLock() {
		return
	}
	s.published = s.playheads
	s.stateMu.Unlock()
}

// Playhead returns the last published position of a track
func (s *Scheduler) Playhead(track int) PlayheadState {
	track = clampInt(track, 0, NumTracks-1)
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.published[track]
}

// Playheads returns the last published positions of every track
func (s *Scheduler) Playheads() [NumTracks]PlayheadState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.published
}
