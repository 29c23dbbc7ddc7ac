package sequencer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownName is returned when a mode or scale name does not match any known value
var ErrUnknownName = errors.New("unknown name")

var directionNames = []string{
	"forward", "reverse", "alternate", "random", "random-no-repeat",
	"skip", "climb", "drunk", "converge", "diverge",
}

var gateModeNames = []string{"every", "first", "last", "tie", "rest"}
var stepTypeNames = []string{"play", "tie", "rest", "skip", "elide"}
var accumTriggerNames = []string{"stage", "pulse", "ratchet"}
var accumModeNames = []string{"stage", "track"}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (d Direction) String() string { return nameOf(directionNames, int(d)) }
func (g GateMode) String() string { return nameOf(gateModeNames, int(g)) }
func (s StepType) String() string { return nameOf(stepTypeNames, int(s)) }
func (a AccumTrigger) String() string { return nameOf(accumTriggerNames, int(a)) }
func (a AccumMode) String() string { return nameOf(accumModeNames, int(a)) }

func (d Division) String() string {
	return fmt.Sprintf("%d/%d", d.Num, d.Den)
}

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("?(%d)", i)
	}
	return names[i]
}

func indexOf(names []string, kind, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s %q: %w", kind, s, ErrUnknownName)
}

// ParseDirection parses a direction name such as "alternate" or "climb"
func ParseDirection(s string) (Direction, error) {
	i, err := indexOf(directionNames, "direction", s)
	return Direction(i), err
}

// ParseGateMode parses a gate mode name
func ParseGateMode(s string) (GateMode, error) {
	i, err := indexOf(gateModeNames, "gate mode", s)
	return GateMode(i), err
}

// ParseStepType parses a step type name
func ParseStepType(s string) (StepType, error) {
	i, err := indexOf(stepTypeNames, "step type", s)
	return StepType(i), err
}

// ParseAccumTrigger parses an accumulator trigger name
func ParseAccumTrigger(s string) (AccumTrigger, error) {
	i, err := indexOf(accumTriggerNames, "accumulator trigger", s)
	return AccumTrigger(i), err
}

// ParseAccumMode parses an accumulator counter mode name
func ParseAccumMode(s string) (AccumMode, error) {
	i, err := indexOf(accumModeNames, "accumulator mode", s)
	return AccumMode(i), err
}

// ParseDivision parses "num/den" or a bare integer count of quarters
func ParseDivision(s string) (Division, error) {
	var d Division
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		if _, err := fmt.Sscanf(s, "%d/%d", &d.Num, &d.Den); err != nil {
			return Division{}, fmt.Errorf("division %q: %w", s, err)
		}
	} else {
		if _, err := fmt.Sscanf(s, "%d", &d.Num); err != nil {
			return Division{}, fmt.Errorf("division %q: %w", s, err)
		}
		d.Den = 1
	}
	if d.Num <= 0 || d.Den <= 0 {
		return Division{}, fmt.Errorf("division %q: must be positive", s)
	}
	return d, nil
}

// NoteName returns the display name of a MIDI note, e.g. 60 -> "C4"
func NoteName(note int) string {
	if note < 0 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// PitchName returns the name of a pitch class, e.g. 1 -> "C#"
func PitchName(pc int) string {
	return noteNames[floorMod(pc, 12)]
}

// Name lists for pickers and help text
func DirectionNames() []string { return append([]string(nil), directionNames...) }
func GateModeNames() []string  { return append([]string(nil), gateModeNames...) }
func StepTypeNames() []string  { return append([]string(nil), stepTypeNames...) }
func ScaleNames() []string     { return append([]string(nil), scaleNames...) }
