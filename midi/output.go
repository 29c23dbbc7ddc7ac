package midi

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stageseq/debug"
	"go-stageseq/sequencer"
)

// Sender writes one MIDI message to an output port
type Sender func(gomidi.Message) error

// MIDI message kinds queued by the output engine
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

const ccAllNotesOff = 123

var sendFailLog = debug.NewEvery(50)

// Event is a queued MIDI event
type Event struct {
	Time     uint64 // sample time
	Type     uint8  // NoteOn, NoteOff, CC
	Target   sequencer.TargetMask
	Note     uint8
	Velocity uint8
	seq      uint64
}

// eventQueue is a min-heap on (Time, seq)
type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(Event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// OutputOptions configures an OutputEngine
type OutputOptions struct {
	SampleRate int   // resolution of the sample clock
	Channels   []int // MIDI channel (1-16) per target; missing targets use their index+1
}

// OutputEngine is a sequencer.Engine that plays scheduled notes on a MIDI output.
// Its sample clock is wall time since creation at the configured rate.
type OutputEngine struct {
	send     Sender
	rate     int
	channels [sequencer.MaxTargets]uint8 // 0-based
	start    time.Time
	now      func() time.Time
	closeFn  func() error

	mu        sync.Mutex
	queue     eventQueue
	seq       uint64
	interrupt chan struct{} // signal dispatch loop to recalculate (queue changed)
}

// NewOutputEngine creates an engine writing to send
func NewOutputEngine(send Sender, opts OutputOptions) *OutputEngine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	e := &OutputEngine{
		send:      send,
		rate:      opts.SampleRate,
		now:       time.Now,
		queue:     make(eventQueue, 0, 1024),
		interrupt: make(chan struct{}, 1),
	}
	for i := range e.channels {
		ch := i + 1
		if i < len(opts.Channels) && opts.Channels[i] >= 1 && opts.Channels[i] <= 16 {
			ch = opts.Channels[i]
		}
		e.channels[i] = uint8(ch - 1)
	}
	e.start = e.now()
	return e
}

// OpenOutput finds the named output port and opens an engine on it.
// An empty name uses the first port.
func OpenOutput(portName string, opts OutputOptions) (*OutputEngine, error) {
	port, err := findOutPort(portName, PortTimeout)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", port.String(), err)
	}
	debug.Log("midi", "output opened: %s", port.String())
	e := NewOutputEngine(send, opts)
	e.closeFn = port.Close
	return e, nil
}

func (e *OutputEngine) SampleRate() int { return e.rate }

// CurrentSampleTime returns the samples elapsed since the engine was created
func (e *OutputEngine) CurrentSampleTime() uint64 {
	d := e.now().Sub(e.start)
	if d < 0 {
		return 0
	}
	return uint64(d.Seconds() * float64(e.rate))
}

// timeOf converts a sample time back to wall time
func (e *OutputEngine) timeOf(sample uint64) time.Time {
	return e.start.Add(time.Duration(float64(sample) / float64(e.rate) * float64(time.Second)))
}

func (e *OutputEngine) push(ev Event) {
	e.mu.Lock()
	e.seq++
	ev.seq = e.seq
	heap.Push(&e.queue, ev)
	e.mu.Unlock()
	e.wake()
}

// wake signals the dispatch loop without blocking
func (e *OutputEngine) wake() {
	select {
	case e.interrupt <- struct{}{}:
	default:
	}
}

func (e *OutputEngine) ScheduleNoteOn(note, velocity uint8, at uint64, target sequencer.TargetMask, track int) {
	e.push(Event{Time: at, Type: NoteOn, Target: target, Note: note, Velocity: velocity})
}

func (e *OutputEngine) ScheduleNoteOff(note uint8, at uint64, target sequencer.TargetMask, track int) {
	e.push(Event{Time: at, Type: NoteOff, Target: target, Note: note})
}

// ClearScheduledNotes drops all queued events
func (e *OutputEngine) ClearScheduledNotes() {
	e.mu.Lock()
	e.queue = e.queue[:0]
	e.mu.Unlock()
	e.wake()
}

// AllNotesOff queues an immediate all-notes-off (CC 123) on every target channel.
// The message is sent by the dispatch loop so the caller never does port I/O.
func (e *OutputEngine) AllNotesOff() {
	e.push(Event{Time: 0, Type: CC, Target: 0xFF, Note: ccAllNotesOff})
}

// Pending returns the number of queued events
func (e *OutputEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// next returns the earliest queued event time
func (e *OutputEngine) next() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return 0, false
	}
	return e.queue[0].Time, true
}

// popDue removes the earliest event if it is due at now
func (e *OutputEngine) popDue(now uint64) (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 || e.queue[0].Time > now {
		return Event{}, false
	}
	return heap.Pop(&e.queue).(Event), true
}

// DispatchDue sends every event due at or before now and returns how many went out
func (e *OutputEngine) DispatchDue(now uint64) int {
	n := 0
	for {
		ev, ok := e.popDue(now)
		if !ok {
			return n
		}
		e.sendEvent(ev)
		n++
	}
}

func (e *OutputEngine) sendEvent(ev Event) {
	if e.send == nil {
		return
	}
	var done [16]bool
	for bit := 0; bit < sequencer.MaxTargets; bit++ {
		if !ev.Target.Has(bit) {
			continue
		}
		ch := e.channels[bit]
		if done[ch] {
			continue
		}
		done[ch] = true

		var msg gomidi.Message
		switch ev.Type {
		case NoteOn:
			msg = gomidi.NoteOn(ch, ev.Note, ev.Velocity)
		case NoteOff:
			msg = gomidi.NoteOff(ch, ev.Note)
		case CC:
			msg = gomidi.ControlChange(ch, ev.Note, ev.Velocity)
		default:
			continue
		}
		if err := e.send(msg); err != nil {
			if sendFailLog.Tick() {
				debug.Post("midi", "send failed: %v (%d times)", err, sendFailLog.Count())
			}
		}
	}
	debug.Log("dispatch", "sample=%d type=%#x target=%08b note=%d", ev.Time, ev.Type, ev.Target, ev.Note)
}

// Run is the dispatch loop: it sleeps until the earliest queued event is due and
// sends it (blocking - run in goroutine)
func (e *OutputEngine) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		at, ok := e.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-e.interrupt:
				continue
			}
		}

		if wait := time.Until(e.timeOf(at)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-e.interrupt:
				// Queue changed, recalculate
				timer.Stop()
				continue
			case <-timer.C:
				// Ready
			}
		}
		e.DispatchDue(e.CurrentSampleTime())
	}
}

// Flush empties the queue, sending note-offs and CCs right away and dropping
// note-ons. It returns how many events went out.
func (e *OutputEngine) Flush() int {
	e.mu.Lock()
	pending := make([]Event, 0, len(e.queue))
	for len(e.queue) > 0 {
		pending = append(pending, heap.Pop(&e.queue).(Event))
	}
	e.mu.Unlock()

	n := 0
	for _, ev := range pending {
		if ev.Type == NoteOn {
			continue
		}
		e.sendEvent(ev)
		n++
	}
	return n
}

// Close flushes pending releases and closes the output port.
// Stop the dispatch loop first.
func (e *OutputEngine) Close() error {
	if n := e.Flush(); n > 0 {
		debug.Log("midi", "flushed %d events on close", n)
	}
	if e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}
