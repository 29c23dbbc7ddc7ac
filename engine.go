package main

import (
	"context"
	"time"

	"go-stageseq/audio"
	"go-stageseq/config"
	"go-stageseq/debug"
	"go-stageseq/midi"
	"go-stageseq/sequencer"
)

// engineHandle bundles an engine with its background loop and cleanup
type engineHandle struct {
	engine sequencer.Engine
	run    func(ctx context.Context)
	closer func() error
}

// start runs the engine loop until the returned stop func is called. The loop
// has its own context so releases queued during shutdown still go out.
func (h *engineHandle) start() (stop func()) {
	if h.run == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (h *engineHandle) close() {
	if h.closer == nil {
		return
	}
	if err := h.closer(); err != nil {
		debug.Log("main", "close engine: %v", err)
	}
}

// openEngine builds the engine selected by the config
func openEngine(cfg *config.Config) (*engineHandle, error) {
	switch cfg.Engine.Type {
	case config.EngineMIDI:
		e, err := midi.OpenOutput(cfg.Engine.PortName, midi.OutputOptions{
			SampleRate: cfg.Engine.SampleRate,
			Channels:   cfg.Engine.Channels,
		})
		if err != nil {
			return nil, err
		}
		return &engineHandle{engine: e, run: e.Run, closer: e.Close}, nil

	case config.EngineBeep:
		e := audio.NewBeepEngine(cfg.Engine.SampleRate)
		if err := e.Start(time.Duration(cfg.Engine.BufferMs) * time.Millisecond); err != nil {
			return nil, err
		}
		return &engineHandle{engine: e, closer: e.Close}, nil
	}
	return &engineHandle{}, nil
}
