package sequencer

// dedupSize is the capacity of the per-group duplicate filter (power of two)
const dedupSize = 4096

type dedupKey struct {
	time   uint64
	note   uint8
	target uint8
	off    bool
}

type dedupSlot struct {
	key dedupKey
	gen uint32
}

// emitter fans events out to targets, applies compensation, filters duplicates within
// a tie group and refuses to call the engine once the transport epoch has moved.
// All storage is fixed so nothing allocates on the clock goroutine.
type emitter struct {
	engine    Engine
	transport *Transport

	epoch   uint64
	aborted bool
	dedup   bool
	comp    [MaxTargets]int64

	gen   uint32
	used  int
	table [dedupSize]dedupSlot

	// fan-out scratch
	fanTime [MaxTargets]uint64
	fanBit  [MaxTargets]int
}

// begin prepares the emitter for one tick
func (e *emitter) begin(snap *Snapshot, epoch uint64) {
	e.epoch = epoch
	e.aborted = false
	e.dedup = snap.Dedup
	e.comp = snap.Compensation
	e.beginGroup()
}

// beginGroup forgets the keys of the previous tie group
func (e *emitter) beginGroup() {
	e.gen++
	if e.gen == 0 {
		e.table = [dedupSize]dedupSlot{}
		e.gen = 1
	}
	e.used = 0
}

// ok reports whether the tick may still talk to the engine
func (e *emitter) ok() bool {
	if e.aborted {
		return false
	}
	if e.transport != nil && e.transport.Epoch() != e.epoch {
		e.aborted = true
	}
	return !e.aborted
}

// seen records k and reports whether it was already emitted in this group
func (e *emitter) seen(k dedupKey) bool {
	if !e.dedup || e.used >= dedupSize/2 {
		return false
	}
	h := k.time*0x9E3779B97F4A7C15 ^ uint64(k.note)<<9 ^ uint64(k.target)<<1
	if k.off {
		h ^= 1
	}
	i := int(h>>52) & (dedupSize - 1)
	for {
		slot := &e.table[i]
		if slot.gen != e.gen {
			slot.key = k
			slot.gen = e.gen
			e.used++
			return false
		}
		if slot.key == k {
			return true
		}
		i = (i + 1) & (dedupSize - 1)
	}
}

// fanOut fills the scratch arrays with one compensated time per target bit,
// sorted ascending, and returns how many there are
func (e *emitter) fanOut(at uint64, mask TargetMask) int {
	n := 0
	for bit := 0; bit < MaxTargets; bit++ {
		if !mask.Has(bit) {
			continue
		}
		t := int64(at) + e.comp[bit]
		if t < 0 {
			t = 0
		}
		// insertion sort; stable for equal times
		j := n
		for j > 0 && e.fanTime[j-1] > uint64(t) {
			e.fanTime[j] = e.fanTime[j-1]
			e.fanBit[j] = e.fanBit[j-1]
			j--
		}
		e.fanTime[j] = uint64(t)
		e.fanBit[j] = bit
		n++
	}
	return n
}

func (e *emitter) noteOn(note, velocity uint8, at uint64, mask TargetMask, track int) {
	n := e.fanOut(at, mask)
	for i := 0; i < n; i++ {
		if !e.ok() {
			return
		}
		if e.seen(dedupKey{time: e.fanTime[i], note: note, target: uint8(e.fanBit[i])}) {
			continue
		}
		e.engine.ScheduleNoteOn(note, velocity, e.fanTime[i], TargetMask(1)<<uint(e.fanBit[i]), track)
	}
}

func (e *emitter) noteOff(note uint8, at uint64, mask TargetMask, track int) {
	n := e.fanOut(at, mask)
	for i := 0; i < n; i++ {
		if !e.ok() {
			return
		}
		if e.seen(dedupKey{time: e.fanTime[i], note: note, target: uint8(e.fanBit[i]), off: true}) {
			continue
		}
		e.engine.ScheduleNoteOff(note, e.fanTime[i], TargetMask(1)<<uint(e.fanBit[i]), track)
	}
}
