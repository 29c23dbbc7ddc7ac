package audio

import (
	"container/heap"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"go-stageseq/debug"
	"go-stageseq/sequencer"
)

// MaxVoices bounds polyphony; the oldest voice is stolen when all are busy
const MaxVoices = 32

const (
	attackSamples  = 96  // 2ms at 48k
	releaseSamples = 480 // 10ms at 48k
	voiceGain      = 0.15
)

type noteEvent struct {
	time     uint64
	on       bool
	note     uint8
	velocity uint8
	target   sequencer.TargetMask
	track    int
	seq      uint64
}

type eventQueue []noteEvent

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(noteEvent)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// voice is one sine oscillator with a linear attack/release envelope
type voice struct {
	active   bool
	released bool
	note     uint8
	target   sequencer.TargetMask
	track    int
	freq     float64
	phase    float64
	amp      float64
	env      float64 // current envelope level 0..1
	pan      float64 // 0 left, 1 right
	started  uint64
}

// BeepEngine is a sequencer.Engine that renders scheduled notes as sine tones.
// It is a beep.Streamer; its sample clock is the number of frames streamed.
type BeepEngine struct {
	rate   beep.SampleRate
	frames atomic.Uint64

	mu    sync.Mutex // guards queue and seq only
	queue eventQueue
	seq   uint64

	// owned by the Stream goroutine
	voices [MaxVoices]voice
	due    []noteEvent

	allOff atomic.Bool
	active atomic.Int32

	playing bool
}

// NewBeepEngine creates an engine at sampleRate (48000 when <= 0)
func NewBeepEngine(sampleRate int) *BeepEngine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &BeepEngine{
		rate:  beep.SampleRate(sampleRate),
		queue: make(eventQueue, 0, 1024),
		due:   make([]noteEvent, 0, 256),
	}
}

// Start initialises the speaker and plays the engine through it
func (e *BeepEngine) Start(buffer time.Duration) error {
	if buffer <= 0 {
		buffer = 20 * time.Millisecond
	}
	if err := speaker.Init(e.rate, e.rate.N(buffer)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(&effects.Volume{Streamer: e, Base: 2, Volume: -1})
	e.playing = true
	debug.Log("audio", "speaker started rate=%d buffer=%v", e.rate, buffer)
	return nil
}

// Close stops the speaker
func (e *BeepEngine) Close() error {
	if e.playing {
		speaker.Close()
		e.playing = false
	}
	return nil
}

func (e *BeepEngine) SampleRate() int { return int(e.rate) }

func (e *BeepEngine) CurrentSampleTime() uint64 { return e.frames.Load() }

func (e *BeepEngine) push(ev noteEvent) {
	e.mu.Lock()
	e.seq++
	ev.seq = e.seq
	heap.Push(&e.queue, ev)
	e.mu.Unlock()
}

func (e *BeepEngine) ScheduleNoteOn(note, velocity uint8, at uint64, target sequencer.TargetMask, track int) {
	e.push(noteEvent{time: at, on: true, note: note, velocity: velocity, target: target, track: track})
}

func (e *BeepEngine) ScheduleNoteOff(note uint8, at uint64, target sequencer.TargetMask, track int) {
	e.push(noteEvent{time: at, note: note, target: target, track: track})
}

// ClearScheduledNotes drops queued events; sounding voices keep playing
func (e *BeepEngine) ClearScheduledNotes() {
	e.mu.Lock()
	e.queue = e.queue[:0]
	e.mu.Unlock()
}

// AllNotesOff releases every sounding voice at the start of the next buffer
func (e *BeepEngine) AllNotesOff() {
	e.allOff.Store(true)
}

// ActiveVoices returns the number of voices sounding after the last buffer
func (e *BeepEngine) ActiveVoices() int {
	return int(e.active.Load())
}

// Stream renders the next frames, applying each event at its exact frame.
// The queue lock is held only while this buffer's events are taken.
func (e *BeepEngine) Stream(samples [][2]float64) (n int, ok bool) {
	pos := e.frames.Load()
	end := pos + uint64(len(samples))

	e.due = e.due[:0]
	e.mu.Lock()
	for len(e.queue) > 0 && e.queue[0].time < end {
		e.due = append(e.due, heap.Pop(&e.queue).(noteEvent))
	}
	e.mu.Unlock()

	if e.allOff.Swap(false) {
		for i := range e.voices {
			e.voices[i].released = true
		}
	}

	next := 0
	for i := range samples {
		now := pos + uint64(i)
		for next < len(e.due) && e.due[next].time <= now {
			e.apply(e.due[next], now)
			next++
		}

		var l, r float64
		for v := range e.voices {
			vc := &e.voices[v]
			if !vc.active {
				continue
			}
			s := vc.next(float64(e.rate))
			l += s * (1 - vc.pan)
			r += s * vc.pan
		}
		samples[i][0] = l
		samples[i][1] = r
	}

	var active int32
	for i := range e.voices {
		if e.voices[i].active {
			active++
		}
	}
	e.active.Store(active)
	e.frames.Add(uint64(len(samples)))
	return len(samples), true
}

func (e *BeepEngine) Err() error { return nil }

func (e *BeepEngine) apply(ev noteEvent, now uint64) {
	if !ev.on {
		for i := range e.voices {
			v := &e.voices[i]
			if v.active && !v.released && v.note == ev.note && v.target == ev.target && v.track == ev.track {
				v.released = true
				return
			}
		}
		return
	}

	v := e.allocate()
	*v = voice{
		active:  true,
		note:    ev.note,
		target:  ev.target,
		track:   ev.track,
		freq:    noteFreq(ev.note),
		amp:     voiceGain * float64(ev.velocity) / 127,
		pan:     targetPan(ev.target),
		started: now,
	}
}

// allocate returns a free voice, stealing the oldest one when none is free
func (e *BeepEngine) allocate() *voice {
	oldest := 0
	for i := range e.voices {
		if !e.voices[i].active {
			return &e.voices[i]
		}
		if e.voices[i].started < e.voices[oldest].started {
			oldest = i
		}
	}
	return &e.voices[oldest]
}

func (v *voice) next(rate float64) float64 {
	if v.released {
		v.env -= 1.0 / releaseSamples
		if v.env <= 0 {
			v.active = false
			return 0
		}
	} else if v.env < 1 {
		v.env += 1.0 / attackSamples
		if v.env > 1 {
			v.env = 1
		}
	}
	s := math.Sin(2*math.Pi*v.phase) * v.amp * v.env
	v.phase += v.freq / rate
	v.phase -= math.Floor(v.phase)
	return s
}

// noteFreq converts a MIDI note to Hz (A4 = 440)
func noteFreq(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

// targetPan spreads targets across the stereo field
func targetPan(target sequencer.TargetMask) float64 {
	for bit := 0; bit < sequencer.MaxTargets; bit++ {
		if target.Has(bit) {
			return 0.2 + 0.6*float64(bit)/float64(sequencer.MaxTargets-1)
		}
	}
	return 0.5
}
