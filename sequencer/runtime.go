package sequencer

import "math"

// noNote marks an empty held-note or last-note slot
const noNote = -1

// RuntimeState is the per-track playback state. It belongs to the clock goroutine;
// the control side only sees copies through Playhead.
type RuntimeState struct {
	StageIndex   int
	PulseInStage int

	NextEventTime uint64  // absolute sample time of the next pulse
	nextFrac      float64 // fractional sample carried between pulses

	Forward          bool // alternate: current travel direction
	PatternStep      int  // skip: pass index, climb: position in window, converge/diverge: step
	ClimbWindowStart int

	HeldNote   int // noNote when nothing is held
	HeldTarget TargetMask
	holdGate   bool // probability result drawn on the first pulse of a holding stage

	StageAccum [NumStages]int
	TrackAccum int

	LastNote      int
	LastEventTime uint64
	active        bool
}

// reset returns the state to the start of the loop range at origin
func (rs *RuntimeState) reset(t *Track, origin uint64) {
	*rs = RuntimeState{
		NextEventTime: origin,
		Forward:       true,
		HeldNote:      noNote,
		LastNote:      noNote,
	}
	rs.StageIndex = InitialStage(t)
	rs.ClimbWindowStart = t.LoopStart
}

// clampCursor keeps the stage cursor inside the loop range
func (rs *RuntimeState) clampCursor(t *Track) {
	rs.StageIndex = clampInt(rs.StageIndex, t.LoopStart, t.LoopEnd)
}

// advance moves the next event time forward by d samples, carrying the fraction
func (rs *RuntimeState) advance(d float64) {
	total := rs.nextFrac + d
	whole := math.Floor(total)
	if whole < 1 {
		rs.NextEventTime++
		rs.nextFrac = 0
		return
	}
	rs.NextEventTime += uint64(whole)
	rs.nextFrac = total - whole
}
