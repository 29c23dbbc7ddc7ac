package sequencer

// Engine is the downstream sound engine the scheduler feeds. CurrentSampleTime is the
// authoritative playback clock. Every method is called from the clock goroutine and
// must not block.
type Engine interface {
	SampleRate() int
	CurrentSampleTime() uint64

	// ScheduleNoteOn queues a note-on at an absolute sample time. Times up to the
	// lookahead horizon in the future must be accepted.
	ScheduleNoteOn(note, velocity uint8, sampleTime uint64, target TargetMask, track int)
	ScheduleNoteOff(note uint8, sampleTime uint64, target TargetMask, track int)

	// ClearScheduledNotes drops everything queued but not yet played
	ClearScheduledNotes()
	// AllNotesOff silences every sounding note immediately
	AllNotesOff()
}
