package midi

import (
	"context"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stageseq/sequencer"
)

type sentMsg struct {
	kind    string
	channel uint8
	key     uint8
	value   uint8
}

type captureSender struct {
	mu   sync.Mutex
	msgs []sentMsg
}

func (c *captureSender) send(msg gomidi.Message) error {
	var ch, key, val uint8
	var m sentMsg
	switch {
	case msg.GetNoteOn(&ch, &key, &val):
		m = sentMsg{"on", ch, key, val}
	case msg.GetNoteOff(&ch, &key, &val):
		m = sentMsg{"off", ch, key, 0}
	case msg.GetControlChange(&ch, &key, &val):
		m = sentMsg{"cc", ch, key, val}
	default:
		m = sentMsg{kind: "other"}
	}
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
	return nil
}

func (c *captureSender) all() []sentMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMsg(nil), c.msgs...)
}

var _ sequencer.Engine = (*OutputEngine)(nil)

func TestOutputEngineOrdersEvents(t *testing.T) {
	out := &captureSender{}
	e := NewOutputEngine(out.send, OutputOptions{SampleRate: 1000})

	e.ScheduleNoteOff(60, 300, 1, 0)
	e.ScheduleNoteOn(60, 100, 100, 1, 0)
	e.ScheduleNoteOn(64, 90, 100, 1, 0) // same time keeps insertion order
	e.ScheduleNoteOn(67, 80, 900, 1, 0)

	if n := e.DispatchDue(99); n != 0 {
		t.Fatalf("dispatched %d events early", n)
	}
	if n := e.DispatchDue(300); n != 3 {
		t.Fatalf("dispatched %d events, want 3", n)
	}
	want := []sentMsg{{"on", 0, 60, 100}, {"on", 0, 64, 90}, {"off", 0, 60, 0}}
	got := out.all()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("msg %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if e.Pending() != 1 {
		t.Errorf("pending = %d, want 1", e.Pending())
	}
}

func TestOutputEngineChannelMap(t *testing.T) {
	out := &captureSender{}
	e := NewOutputEngine(out.send, OutputOptions{Channels: []int{10, 3, 0, 99}})

	e.ScheduleNoteOn(36, 127, 0, 0b0001, 0)
	e.ScheduleNoteOn(38, 127, 0, 0b0010, 0)
	e.ScheduleNoteOn(40, 127, 0, 0b0100, 0) // invalid channel falls back to target index
	e.ScheduleNoteOn(42, 127, 0, 0b1000, 0)
	e.DispatchDue(0)

	want := []uint8{9, 2, 2, 3}
	got := out.all()
	if len(got) != len(want) {
		t.Fatalf("got %d messages", len(got))
	}
	for i, ch := range want {
		if got[i].channel != ch {
			t.Errorf("note %d on channel %d, want %d", got[i].key, got[i].channel, ch)
		}
	}
}

func TestOutputEngineClearAndAllNotesOff(t *testing.T) {
	out := &captureSender{}
	e := NewOutputEngine(out.send, OutputOptions{Channels: []int{1, 1, 2}})

	e.ScheduleNoteOn(60, 100, 50, 1, 0)
	e.ClearScheduledNotes()
	e.AllNotesOff()
	e.DispatchDue(1000)

	got := out.all()
	// one CC per distinct channel: targets 0 and 1 share channel 1
	if len(got) != sequencer.MaxTargets-1 {
		t.Fatalf("got %d messages: %+v", len(got), got)
	}
	for _, m := range got {
		if m.kind != "cc" || m.key != ccAllNotesOff {
			t.Errorf("unexpected message %+v", m)
		}
	}
}

func TestOutputEngineCloseFlushesReleases(t *testing.T) {
	out := &captureSender{}
	e := NewOutputEngine(out.send, OutputOptions{SampleRate: 1000, Channels: []int{1, 1, 1, 1, 1, 1, 1, 1}})
	closed := false
	e.closeFn = func() error {
		closed = true
		return nil
	}

	// nothing drains the queue: the dispatch loop has already stopped
	e.ScheduleNoteOn(62, 100, 1<<40, 1, 0)
	e.ScheduleNoteOff(60, 1<<40, 1, 0)
	e.AllNotesOff()

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if !closed {
		t.Error("port not closed")
	}
	want := []sentMsg{
		{"cc", 0, ccAllNotesOff, 0},
		{"off", 0, 60, 0},
	}
	got := out.all()
	if len(got) != len(want) {
		t.Fatalf("sent %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if e.Pending() != 0 {
		t.Errorf("%d events left queued", e.Pending())
	}
}

func TestOutputEngineSampleClock(t *testing.T) {
	e := NewOutputEngine(nil, OutputOptions{SampleRate: 48000})
	base := e.start
	e.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	if got := e.CurrentSampleTime(); got != 72000 {
		t.Errorf("sample time = %d, want 72000", got)
	}
	e.now = func() time.Time { return base.Add(-time.Second) }
	if got := e.CurrentSampleTime(); got != 0 {
		t.Errorf("sample time before start = %d", got)
	}
	if got := e.timeOf(24000); !got.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("timeOf = %v", got.Sub(base))
	}
}

func TestOutputEngineRun(t *testing.T) {
	out := &captureSender{}
	e := NewOutputEngine(out.send, OutputOptions{SampleRate: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	now := e.CurrentSampleTime()
	e.ScheduleNoteOn(60, 100, now+10, 1, 0)
	e.ScheduleNoteOff(60, now+20, 1, 0)

	deadline := time.After(2 * time.Second)
	for len(out.all()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("dispatch loop sent %d messages", len(out.all()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestMatchPort(t *testing.T) {
	names := []string{"IAC Driver Bus 1", "Launchpad X LPX MIDI", "FluidSynth"}
	tests := []struct {
		name string
		want int
	}{
		{"", 0},
		{"FluidSynth", 2},
		{"launchpad", 1},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := matchPort(names, tt.name); got != tt.want {
			t.Errorf("matchPort(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
	if matchPort(nil, "") != -1 {
		t.Error("no ports should never match")
	}
}
