package sequencer

import (
	"math/rand"
	"sync"

	"go-stageseq/debug"
)

// maxGroupsPerTick bounds the work done by one tick
const maxGroupsPerTick = 4096

// Scheduler is the lookahead scheduler. Publish is called from the control side;
// Tick runs on the clock goroutine and computes every event due before now+lookahead.
type Scheduler struct {
	engine    Engine
	transport *Transport
	rng       Rand

	snapMu  sync.Mutex
	pending *Snapshot // latest published, guarded by snapMu

	// clock goroutine only
	current    *Snapshot
	lastEpoch  uint64
	needsReset bool
	runtime    [NumTracks]RuntimeState
	playheads  [NumTracks]PlayheadState
	group      [NumTracks]int
	out        emitter

	stateMu   sync.Mutex
	published [NumTracks]PlayheadState
}

// NewScheduler creates a scheduler feeding engine. A nil engine makes Tick a no-op
// until SetEngine is called before the clock goroutine starts. A nil rng uses a
// fixed seed.
func NewScheduler(engine Engine, transport *Transport, rng Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	s := &Scheduler{
		engine:    engine,
		transport: transport,
		rng:       rng,
	}
	s.out.engine = engine
	s.out.transport = transport
	if transport != nil {
		s.lastEpoch = transport.Epoch()
	}
	for i := range s.runtime {
		s.runtime[i].HeldNote = noNote
		s.runtime[i].LastNote = noNote
		s.playheads[i].LastNote = noNote
	}
	s.published = s.playheads
	return s
}

// SetEngine attaches the engine; must not be called while the clock loop runs
func (s *Scheduler) SetEngine(e Engine) {
	s.engine = e
	s.out.engine = e
}

// Publish hands a new snapshot to the clock goroutine
func (s *Scheduler) Publish(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.snapMu.Lock()
	s.pending = snap
	s.snapMu.Unlock()
}

// clock-goroutine log limiters
var (
	lockBusyLog   = debug.NewEvery(200)
	noEngineLog   = debug.NewEvery(1000)
	groupLimitLog = debug.NewEvery(100)
)

// capture takes the latest snapshot without blocking
func (s *Scheduler) capture() *Snapshot {
	if s.snapMu.TryLock() {
		if s.pending != nil {
			s.current = s.pending
		}
		s.snapMu.Unlock()
	} else {
		if lockBusyLog.Tick() {
			debug.Post("sched", "snapshot lock busy, reusing epoch %d (%d times)", s.currentEpoch(), lockBusyLog.Count())
		}
	}
	return s.current
}

func (s *Scheduler) currentEpoch() uint64 {
	if s.current == nil {
		return 0
	}
	return s.current.Epoch
}

// Tick runs one scheduling pass. It never blocks and never panics on bad state.
func (s *Scheduler) Tick() {
	if s.engine == nil || s.transport == nil {
		if noEngineLog.Tick() {
			debug.Post("sched", "tick skipped: no engine attached")
		}
		return
	}
	snap := s.capture()
	if snap == nil {
		return
	}
	now := s.engine.CurrentSampleTime()
	epoch := s.transport.Epoch()
	s.out.begin(snap, epoch)

	if epoch != s.lastEpoch {
		s.transportChanged(now)
		s.lastEpoch = epoch
		s.needsReset = true
	}
	if snap.Epoch != epoch {
		// snapshot predates the transport change; wait for a fresh one
		s.publishPlayheads()
		return
	}
	if s.needsReset {
		s.resetAll(snap, now)
		s.needsReset = false
	}
	if !snap.Running {
		s.publishPlayheads()
		return
	}

	s.syncActive(snap, now)

	horizon := now + snap.Lookahead
	groups := 0
	for ; groups < maxGroupsPerTick; groups++ {
		at, n := s.collectGroup()
		if n == 0 || at > horizon {
			break
		}
		s.out.beginGroup()
		for i := 0; i < n; i++ {
			s.step(snap, s.group[i])
		}
		if s.out.aborted {
			break
		}
	}
	if groups == maxGroupsPerTick {
		if groupLimitLog.Tick() {
			debug.Post("sched", "group limit reached at sample %d", now)
		}
	}
	s.publishPlayheads()
}

// transportChanged drops everything queued under the old epoch and silences held notes
func (s *Scheduler) transportChanged(now uint64) {
	s.engine.ClearScheduledNotes()
	for i := range s.runtime {
		rs := &s.runtime[i]
		if rs.HeldNote != noNote {
			s.out.noteOff(uint8(rs.HeldNote), now, rs.HeldTarget, i)
			rs.HeldNote = noNote
		}
	}
	s.engine.AllNotesOff()
}

// resetAll re-initialises every track at the snapshot's origin. An origin that fell
// more than one lookahead behind now joins at the next pulse boundary instead of
// replaying the missed pulses.
func (s *Scheduler) resetAll(snap *Snapshot, now uint64) {
	for i := range s.runtime {
		t := &snap.Tracks[i]
		rs := &s.runtime[i]
		rs.reset(t, snap.Origin)
		if now > snap.Origin+snap.Lookahead {
			rs.NextEventTime, rs.nextFrac = snap.nextBoundary(t, now)
		}
		rs.active = snap.Running && t.Running && !t.Muted
		s.playheads[i] = PlayheadState{Stage: rs.StageIndex, LastNote: noNote}
	}
}

// syncActive handles tracks that were muted, unmuted, stopped or started since the
// last tick. Newly active tracks join at the next pulse boundary.
func (s *Scheduler) syncActive(snap *Snapshot, now uint64) {
	for i := range s.runtime {
		t := &snap.Tracks[i]
		rs := &s.runtime[i]
		active := t.Running && !t.Muted
		switch {
		case active && !rs.active:
			rs.NextEventTime, rs.nextFrac = snap.nextBoundary(t, now)
			rs.PulseInStage = 0
			rs.active = true
		case !active && rs.active:
			if rs.HeldNote != noNote {
				s.out.noteOff(uint8(rs.HeldNote), now, rs.HeldTarget, i)
				rs.HeldNote = noNote
			}
			rs.active = false
			s.playheads[i].Active = false
		}
	}
}

// collectGroup finds the earliest next event time over active tracks and fills
// s.group with every track due at that time
func (s *Scheduler) collectGroup() (uint64, int) {
	var at uint64
	n := 0
	for i := range s.runtime {
		rs := &s.runtime[i]
		if !rs.active {
			continue
		}
		switch {
		case n == 0 || rs.NextEventTime < at:
			at = rs.NextEventTime
			s.group[0] = i
			n = 1
		case rs.NextEventTime == at:
			s.group[n] = i
			n++
		}
	}
	return at, n
}

// step processes one pulse of one track
func (s *Scheduler) step(snap *Snapshot, track int) {
	t := &snap.Tracks[track]
	rs := &s.runtime[track]
	rs.clampCursor(t)

	at := rs.NextEventTime
	pulseDur := snap.PulseSamples(t)

	if !s.skipElided(t, rs) {
		// every stage in the loop is elided: time passes in silence
		s.release(rs, at, track)
		rs.advance(pulseDur)
		return
	}

	stageIdx := rs.StageIndex
	st := &t.Stages[stageIdx]
	pulses := st.Pulses
	if st.StepType == StepSkip {
		pulses = 1
	}
	if rs.PulseInStage >= pulses {
		rs.PulseInStage = pulses - 1
	}
	pulse := rs.PulseInStage

	if s.gated(st, rs, pulse, pulses) {
		if st.Holds() {
			s.hold(snap, t, rs, stageIdx, at, track)
		} else {
			s.ratchet(snap, t, rs, stageIdx, at, pulseDur, track)
		}
	} else {
		s.release(rs, at, track)
	}
	rs.accumFire(stageIdx, st, AccumOnPulse)

	s.record(track, stageIdx, pulse, at)
	rs.LastEventTime = at

	rs.advance(pulseDur)
	rs.PulseInStage++
	if rs.PulseInStage >= pulses {
		rs.accumFire(stageIdx, st, AccumOnStage)
		rs.StageIndex = NextStage(t, rs, s.rng)
		rs.PulseInStage = 0
		if !tiesInto(&t.Stages[rs.StageIndex]) {
			s.release(rs, rs.NextEventTime, track)
		}
	}
}

// skipElided moves the cursor past elided stages, trying at most one full loop.
// It reports false if no playable stage was found.
func (s *Scheduler) skipElided(t *Track, rs *RuntimeState) bool {
	n := t.LoopLen()
	for i := 0; i < n; i++ {
		if t.Stages[rs.StageIndex].StepType != StepElide {
			return true
		}
		rs.StageIndex = NextStage(t, rs, s.rng)
		rs.PulseInStage = 0
	}
	return t.Stages[rs.StageIndex].StepType != StepElide
}

// gated decides whether a pulse sounds, including the probability draw
func (s *Scheduler) gated(st *Stage, rs *RuntimeState, pulse, pulses int) bool {
	switch st.StepType {
	case StepRest, StepSkip, StepElide:
		return false
	}
	holds := st.Holds()
	if holds && pulse == 0 {
		// one draw covers the whole held stage, whichever pulse sounds
		rs.holdGate = s.draw(st.Probability)
	}
	if st.StepType != StepTie {
		switch st.GateMode {
		case GateRest:
			return false
		case GateFirst:
			if pulse != 0 {
				return false
			}
		case GateLast:
			if pulse != pulses-1 {
				return false
			}
		}
	}
	if holds {
		return rs.holdGate
	}
	return s.draw(st.Probability)
}

func (s *Scheduler) draw(p float64) bool {
	if p >= 1 {
		return true
	}
	if p <= 0 || s.rng == nil {
		return false
	}
	return s.rng.Float64() < p
}

// hold sustains a note across pulses; the held note is only retriggered when it changes
func (s *Scheduler) hold(snap *Snapshot, t *Track, rs *RuntimeState, stageIdx int, at uint64, track int) {
	st := &t.Stages[stageIdx]
	note := snap.Note(t, stageIdx, rs.accumOffset(stageIdx, st))
	if rs.HeldNote == note && rs.HeldTarget == t.Output {
		rs.accumFire(stageIdx, st, AccumOnRatchet)
		return
	}
	s.release(rs, at, track)
	s.out.noteOn(uint8(note), t.Velocity, at, t.Output, track)
	rs.HeldNote = note
	rs.HeldTarget = t.Output
	rs.LastNote = note
	rs.accumFire(stageIdx, st, AccumOnRatchet)
}

// ratchet renders the pulse as equal retriggered sub-notes
func (s *Scheduler) ratchet(snap *Snapshot, t *Track, rs *RuntimeState, stageIdx int, at uint64, pulseDur float64, track int) {
	st := &t.Stages[stageIdx]
	s.release(rs, at, track)

	r := max(st.Ratchets, 1)
	sub := pulseDur / float64(r)
	gate := st.GateLength * sub
	if gate < 1 {
		gate = 1
	}
	for i := 0; i < r; i++ {
		if i > 0 {
			rs.accumFire(stageIdx, st, AccumOnRatchet)
		}
		note := snap.Note(t, stageIdx, rs.accumOffset(stageIdx, st))
		on := at + uint64(float64(i)*sub)
		off := on + uint64(gate)
		s.out.noteOn(uint8(note), t.Velocity, on, t.Output, track)
		s.out.noteOff(uint8(note), off, t.Output, track)
		rs.LastNote = note
	}
	rs.accumFire(stageIdx, st, AccumOnRatchet)
}

// release ends the held note, if any, at the given time
func (s *Scheduler) release(rs *RuntimeState, at uint64, track int) {
	if rs.HeldNote == noNote {
		return
	}
	s.out.noteOff(uint8(rs.HeldNote), at, rs.HeldTarget, track)
	rs.HeldNote = noNote
}

// tiesInto reports whether a held note may carry into the stage
func tiesInto(st *Stage) bool {
	if !st.Holds() {
		return false
	}
	switch st.StepType {
	case StepRest, StepSkip, StepElide:
		return false
	}
	return st.GateMode != GateRest
}

// Runtime returns a copy of a track's runtime state. Clock goroutine or tests only.
func (s *Scheduler) Runtime(track int) RuntimeState {
	return s.runtime[clampInt(track, 0, NumTracks-1)]
}
