package sequencer

import (
	"sync"
	"sync/atomic"

	"go-stageseq/debug"
)

// Transport controls playback. Every state change bumps the epoch, which the clock
// goroutine uses to drop work computed under an older transport state.
type Transport struct {
	epoch atomic.Uint64

	mu      sync.Mutex
	running bool
	origin  uint64 // sample time of the first pulse of this run
	clock   func() uint64

	onChange func() // called after every state change, outside the lock
}

// NewTransport creates a stopped transport reading the given sample clock.
// A nil clock reads as 0.
func NewTransport(clock func() uint64) *Transport {
	if clock == nil {
		clock = func() uint64 { return 0 }
	}
	return &Transport{clock: clock}
}

// Epoch returns the current transport epoch
func (t *Transport) Epoch() uint64 {
	return t.epoch.Load()
}

// State returns the running flag, origin sample and epoch as one consistent view
func (t *Transport) State() (running bool, origin, epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running, t.origin, t.epoch.Load()
}

// Running reports whether the transport is playing
func (t *Transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start begins playback at the current sample time. Starting a running transport
// restarts it from the top.
func (t *Transport) Start() {
	t.StartSynced(t.clock())
}

// StartSynced begins playback with the first pulse at sampleTime, for syncing to an
// external clock
func (t *Transport) StartSynced(sampleTime uint64) {
	t.mu.Lock()
	t.running = true
	t.origin = sampleTime
	e := t.epoch.Add(1)
	t.mu.Unlock()
	debug.Log("transport", "start at sample %d (epoch %d)", sampleTime, e)
	t.changed()
}

// Stop halts playback; held notes are released by the clock goroutine on its next tick
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	e := t.epoch.Add(1)
	t.mu.Unlock()
	debug.Log("transport", "stop (epoch %d)", e)
	t.changed()
}

// Reset rewinds every track to the start of its loop. A running transport keeps
// playing from the current sample time.
func (t *Transport) Reset() {
	now := t.clock()
	t.mu.Lock()
	t.origin = now
	e := t.epoch.Add(1)
	running := t.running
	t.mu.Unlock()
	debug.Log("transport", "reset at sample %d running=%v (epoch %d)", now, running, e)
	t.changed()
}

// Toggle starts a stopped transport and stops a running one
func (t *Transport) Toggle() {
	if t.Running() {
		t.Stop()
	} else {
		t.Start()
	}
}

// OnChange registers a callback run after each start, stop or reset
func (t *Transport) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func (t *Transport) changed() {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
