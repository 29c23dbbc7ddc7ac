package sequencer

import "strings"

// ScaleType selects one of the built-in interval sets
type ScaleType int

const (
	ScaleChromatic ScaleType = iota
	ScaleMajor
	ScaleMinor
	ScalePentatonic
	ScaleDorian
	ScalePhrygian
	ScaleLydian
	ScaleMixolydian
	ScaleLocrian
	ScaleHarmonicMinor
	ScaleMelodicMinor
	ScaleBlues
	ScaleWholeTone
	ScaleDimHalfWhole
	ScaleDimWholeHalf
	ScaleHungarianMinor
	ScaleDoubleHarmonic
	ScalePhrygianDominant
	ScaleHirajoshi
	ScaleInSen
	ScaleYo
	ScaleBhairavi
	ScaleCount
)

// Scale definitions - one octave of intervals from the root (semitones)
var scales = [ScaleCount][]int{
	ScaleChromatic:        {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:            {0, 2, 4, 5, 7, 9, 11},
	ScaleMinor:            {0, 2, 3, 5, 7, 8, 10},
	ScalePentatonic:       {0, 2, 4, 7, 9},
	ScaleDorian:           {0, 2, 3, 5, 7, 9, 10},
	ScalePhrygian:         {0, 1, 3, 5, 7, 8, 10},
	ScaleLydian:           {0, 2, 4, 6, 7, 9, 11},
	ScaleMixolydian:       {0, 2, 4, 5, 7, 9, 10},
	ScaleLocrian:          {0, 1, 3, 5, 6, 8, 10},
	ScaleHarmonicMinor:    {0, 2, 3, 5, 7, 8, 11},
	ScaleMelodicMinor:     {0, 2, 3, 5, 7, 9, 11},
	ScaleBlues:            {0, 3, 5, 6, 7, 10},
	ScaleWholeTone:        {0, 2, 4, 6, 8, 10},
	ScaleDimHalfWhole:     {0, 1, 3, 4, 6, 7, 9, 10},
	ScaleDimWholeHalf:     {0, 2, 3, 5, 6, 8, 9, 11},
	ScaleHungarianMinor:   {0, 2, 3, 6, 7, 8, 11},
	ScaleDoubleHarmonic:   {0, 1, 4, 5, 7, 8, 11},
	ScalePhrygianDominant: {0, 1, 4, 5, 7, 8, 10},
	ScaleHirajoshi:        {0, 2, 3, 7, 8},
	ScaleInSen:            {0, 1, 5, 7, 10},
	ScaleYo:               {0, 2, 4, 7, 9},
	ScaleBhairavi:         {0, 1, 3, 5, 7, 8, 10},
}

var scaleNames = []string{
	"chromatic", "major", "minor", "pentatonic",
	"dorian", "phrygian", "lydian", "mixolydian", "locrian",
	"harmonic-minor", "melodic-minor", "blues", "whole-tone",
	"dim-half-whole", "dim-whole-half", "hungarian", "double-harmonic",
	"phrygian-dominant", "hirajoshi", "in-sen", "yo", "bhairavi",
}

func (s ScaleType) String() string { return nameOf(scaleNames, int(s)) }

// ParseScale parses a scale name; spaces and underscores are accepted in place of dashes
func ParseScale(name string) (ScaleType, error) {
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(strings.ToLower(strings.TrimSpace(name)))
	i, err := indexOf(scaleNames, "scale", name)
	return ScaleType(i), err
}

// MaxIntervals bounds the size of an interval set (scale or chord)
const MaxIntervals = 12

// Intervals is a fixed-size interval set so snapshots copy it by value
type Intervals struct {
	Steps [MaxIntervals]int
	Len   int
}

// NewIntervals builds an interval set, keeping at most MaxIntervals entries clamped to 0..127
func NewIntervals(semitones []int) Intervals {
	var iv Intervals
	for _, s := range semitones {
		if iv.Len == MaxIntervals {
			break
		}
		iv.Steps[iv.Len] = clampInt(s, 0, 127)
		iv.Len++
	}
	return iv
}

// Slice returns the intervals as a slice (allocates; control side only)
func (iv Intervals) Slice() []int {
	return append([]int(nil), iv.Steps[:iv.Len]...)
}

// ScaleIntervals returns the interval set for a built-in scale
func ScaleIntervals(t ScaleType) Intervals {
	if t < 0 || t >= ScaleCount {
		t = ScaleChromatic
	}
	return NewIntervals(scales[t])
}

var chromatic = ScaleIntervals(ScaleChromatic)

// ResolveNote maps a scale degree to a MIDI note. Degree 0 at octave 0 with root 0 is
// middle C (60); degrees outside the interval set carry into neighbouring octaves.
// The result is clamped to 0..127.
func ResolveNote(root, octave, degree int, iv *Intervals) int {
	if iv == nil || iv.Len == 0 {
		iv = &chromatic
	}
	n := iv.Len
	oct := floorDiv(degree, n)
	idx := degree - oct*n
	note := 60 + root + 12*(octave+oct) + iv.Steps[idx]
	return clampInt(note, 0, 127)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo || v != v {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
