package sequencer

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"go-stageseq/debug"
)

// Options tunes the manager's loops
type Options struct {
	TickInterval time.Duration // clock loop period
	LookaheadMs  float64
	SnapshotHz   float64
	Dedup        bool
	Seed         int64
}

// DefaultOptions returns the standard loop timing
func DefaultOptions() Options {
	return Options{
		TickInterval: 5 * time.Millisecond,
		LookaheadMs:  100,
		SnapshotHz:   20,
		Dedup:        true,
		Seed:         1,
	}
}

// Manager wires the pattern store, transport and scheduler to an engine and runs
// the snapshot and clock loops
type Manager struct {
	store     *PatternStore
	engine    Engine
	transport *Transport
	sched     *Scheduler
	opts      Options

	mu          sync.Mutex
	lastVersion uint64
	lastEpoch   uint64
	published   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. engine may be nil, in which case the loops run but
// nothing is scheduled.
func NewManager(store *PatternStore, engine Engine, opts Options) *Manager {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultOptions().TickInterval
	}
	if opts.SnapshotHz <= 0 {
		opts.SnapshotHz = DefaultOptions().SnapshotHz
	}
	if opts.LookaheadMs <= 0 {
		opts.LookaheadMs = DefaultOptions().LookaheadMs
	}

	var clock func() uint64
	if engine != nil {
		clock = engine.CurrentSampleTime
	}
	m := &Manager{
		store:     store,
		engine:    engine,
		transport: NewTransport(clock),
		opts:      opts,
	}
	m.sched = NewScheduler(engine, m.transport, rand.New(rand.NewSource(opts.Seed)))
	// transport changes publish synchronously so the clock side sees the new epoch's
	// snapshot on its next tick
	m.transport.OnChange(m.Publish)
	m.Publish()
	return m
}

func (m *Manager) Store() *PatternStore { return m.store }
func (m *Manager) Transport() *Transport { return m.transport }
func (m *Manager) Scheduler() *Scheduler { return m.sched }
func (m *Manager) Playhead(t int) PlayheadState { return m.sched.Playhead(t) }

// Start starts playback from the current sample time
func (m *Manager) Start() { m.transport.Start() }

// Stop stops playback
func (m *Manager) Stop() { m.transport.Stop() }

// Publish builds a snapshot from the store and hands it to the scheduler.
// Publishes are serialised so an older epoch never overwrites a newer one.
func (m *Manager) Publish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	version := m.store.Version()
	running, origin, epoch := m.transport.State()
	rate := 48000
	if m.engine != nil {
		rate = m.engine.SampleRate()
	}
	snap := m.store.Snapshot(SnapshotParams{
		SampleRate:  rate,
		LookaheadMs: m.opts.LookaheadMs,
		Dedup:       m.opts.Dedup,
		Epoch:       epoch,
		Running:     running,
		Origin:      origin,
	})
	m.sched.Publish(snap)
	m.lastVersion = version
	m.lastEpoch = epoch
	m.published = true
}

// stale reports whether the store or transport changed since the last publish
func (m *Manager) stale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.published || m.store.Version() != m.lastVersion || m.transport.Epoch() != m.lastEpoch
}

// StartRuntime starts the snapshot and clock goroutines (called once at startup)
func (m *Manager) StartRuntime(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(2)
	go m.snapshotLoop(ctx)
	go m.clockLoop(ctx)
	debug.Log("sched", "runtime started: tick=%v lookahead=%.0fms snapshots=%.0fHz",
		m.opts.TickInterval, m.opts.LookaheadMs, m.opts.SnapshotHz)
}

// Shutdown stops the loops, then silences the engine
func (m *Manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.engine != nil {
		m.engine.ClearScheduledNotes()
		m.engine.AllNotesOff()
	}
	debug.Log("sched", "runtime stopped")
}

// snapshotLoop republishes the store whenever it changes
func (m *Manager) snapshotLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Duration(float64(time.Second) / m.opts.SnapshotHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.stale() {
				m.Publish()
			}
		}
	}
}

// clockLoop drives the scheduler at a fixed period
func (m *Manager) clockLoop(ctx context.Context) {
	defer m.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sched.Tick()
		}
	}
}
