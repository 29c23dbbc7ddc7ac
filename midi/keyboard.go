package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stageseq/debug"
)

// ChordFunc receives the chord held on a keyboard: the pitch class of the lowest
// key and the intervals of every held key above it
type ChordFunc func(root int, intervals []int)

// KeyboardInput follows the keys held on a MIDI keyboard and reports each new
// chord. Releasing every key keeps the last chord (latch).
type KeyboardInput struct {
	id       string
	stopFunc func()
	onChord  ChordFunc

	mu   sync.Mutex
	held [128]bool
}

// NewKeyboardInput creates a keyboard input without a port; feed it with HandleMessage
func NewKeyboardInput(id string, onChord ChordFunc) *KeyboardInput {
	return &KeyboardInput{id: id, onChord: onChord}
}

// OpenKeyboardInput listens on the named input port (first port when empty)
func OpenKeyboardInput(portName string, onChord ChordFunc) (*KeyboardInput, error) {
	inPort, err := findInPort(portName, PortTimeout)
	if err != nil {
		return nil, err
	}
	kb := NewKeyboardInput(inPort.String(), onChord)
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		kb.HandleMessage(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	kb.stopFunc = stop
	debug.Log("midi", "keyboard input opened: %s", kb.id)
	return kb, nil
}

func (kb *KeyboardInput) ID() string {
	return kb.id
}

// HandleMessage updates the held keys from one incoming message
func (kb *KeyboardInput) HandleMessage(msg gomidi.Message) {
	var channel, note, velocity uint8
	var pressed bool
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity):
		pressed = velocity > 0
	case msg.GetNoteOff(&channel, &note, &velocity):
		pressed = false
	default:
		return
	}

	kb.mu.Lock()
	if kb.held[note] == pressed {
		kb.mu.Unlock()
		return
	}
	kb.held[note] = pressed
	notes := kb.heldNotes()
	kb.mu.Unlock()

	if len(notes) == 0 || kb.onChord == nil {
		return
	}
	root, intervals := ChordFromNotes(notes)
	debug.Log("midi", "chord root=%d intervals=%v", root, intervals)
	kb.onChord(root, intervals)
}

// heldNotes lists held keys in ascending order; caller holds mu
func (kb *KeyboardInput) heldNotes() []int {
	var notes []int
	for n, on := range kb.held {
		if on {
			notes = append(notes, n)
		}
	}
	return notes
}

// ChordFromNotes reduces ascending MIDI notes to a root pitch class and the
// semitone offsets of every note from the lowest one
func ChordFromNotes(notes []int) (root int, intervals []int) {
	if len(notes) == 0 {
		return 0, nil
	}
	low := notes[0]
	intervals = make([]int, 0, len(notes))
	for _, n := range notes {
		intervals = append(intervals, n-low)
	}
	return low % 12, intervals
}

func (kb *KeyboardInput) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	return nil
}
