package sequencer

import (
	"context"
	"testing"
	"time"
)

func TestTransportEpochs(t *testing.T) {
	var clock uint64 = 500
	tr := NewTransport(func() uint64 { return clock })
	changes := 0
	tr.OnChange(func() { changes++ })

	if tr.Running() || tr.Epoch() != 0 {
		t.Fatal("new transport should be stopped at epoch 0")
	}

	tr.Start()
	running, origin, epoch := tr.State()
	if !running || origin != 500 || epoch != 1 {
		t.Errorf("after Start: running=%v origin=%d epoch=%d", running, origin, epoch)
	}

	tr.Stop()
	tr.Stop() // no-op
	if tr.Running() || tr.Epoch() != 2 {
		t.Errorf("after Stop: running=%v epoch=%d", tr.Running(), tr.Epoch())
	}

	tr.StartSynced(9000)
	if _, origin, _ := tr.State(); origin != 9000 {
		t.Errorf("StartSynced origin = %d", origin)
	}

	clock = 12000
	tr.Reset()
	running, origin, epoch = tr.State()
	if !running || origin != 12000 || epoch != 4 {
		t.Errorf("after Reset: running=%v origin=%d epoch=%d", running, origin, epoch)
	}

	tr.Toggle()
	if tr.Running() {
		t.Error("Toggle should stop a running transport")
	}
	if changes != 5 {
		t.Errorf("OnChange called %d times, want 5", changes)
	}
}

func TestManagerPublishesOnTransportChange(t *testing.T) {
	eng := &recordingEngine{rate: testRate, now: 2000}
	m := NewManager(NewPatternStore(), eng, DefaultOptions())

	m.Start()
	m.Scheduler().Tick()
	if len(eng.ons) != 1 || eng.ons[0].SampleTime != 2000 {
		t.Fatalf("ons = %+v", eng.ons)
	}

	m.Store().SetTempo(60)
	if !m.stale() {
		t.Error("store edit should mark the snapshot stale")
	}
	m.Publish()
	if m.stale() {
		t.Error("publish should clear staleness")
	}

	m.Stop()
	m.Scheduler().Tick()
	if eng.allOff != 2 {
		t.Errorf("allOff = %d, want 2", eng.allOff)
	}
}

func TestManagerRuntime(t *testing.T) {
	eng := &recordingEngine{rate: testRate, now: 1000}
	opts := DefaultOptions()
	opts.TickInterval = time.Millisecond
	m := NewManager(NewPatternStore(), eng, opts)

	m.StartRuntime(context.Background())
	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Shutdown()

	if len(eng.ons) == 0 {
		t.Error("clock loop should have scheduled the first note")
	}
	if eng.allOff < 2 {
		t.Errorf("shutdown should silence the engine, allOff = %d", eng.allOff)
	}
}

func TestManagerNilEngine(t *testing.T) {
	m := NewManager(NewPatternStore(), nil, Options{})
	m.StartRuntime(context.Background())
	m.Start()
	m.Shutdown()
	if ph := m.Playhead(0); ph.Active {
		t.Error("nothing should play without an engine")
	}
}
