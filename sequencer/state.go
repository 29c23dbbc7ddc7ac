package sequencer

const (
	NumTracks  = 8
	NumStages  = 8
	MaxTargets = 8

	MaxPulses     = 8
	MaxRatchets   = 8
	MaxNoteSlot   = 15
	MaxOctave     = 4
	MaxTranspose  = 24
	MaxAccumStep  = 7
	MaxAccumRange = 16
	MinGateLength = 0.01

	MinTempo = 20.0
	MaxTempo = 300.0
)

// GateMode selects which pulses of a multi-pulse stage sound
type GateMode int

const (
	GateEvery GateMode = iota
	GateFirst
	GateLast
	GateTie
	GateRest
	gateModeCount
)

// StepType is the role a stage plays in the pattern
type StepType int

const (
	StepPlay StepType = iota
	StepTie
	StepRest
	StepSkip  // silent, consumes a single pulse
	StepElide // removed from the sequence, consumes no time
	stepTypeCount
)

// AccumTrigger selects the event that advances an accumulator counter
type AccumTrigger int

const (
	AccumOnStage AccumTrigger = iota
	AccumOnPulse
	AccumOnRatchet
	accumTriggerCount
)

// AccumMode selects which counter a stage's accumulator reads
type AccumMode int

const (
	AccumPerStage AccumMode = iota
	AccumShared
	accumModeCount
)

// Direction is a track's playback-direction mode
type Direction int

const (
	DirForward Direction = iota
	DirReverse
	DirAlternate
	DirRandom
	DirRandomNoRepeat
	DirSkip
	DirClimb
	DirDrunk
	DirConverge
	DirDiverge
	directionCount
)

// TargetMask selects downstream voices, one bit per target
type TargetMask uint8

// Has reports whether target i is selected
func (m TargetMask) Has(i int) bool {
	return i >= 0 && i < MaxTargets && m&(1<<uint(i)) != 0
}

// Division is a rational multiple of the quarter note: one pulse lasts Num/Den quarters
type Division struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

var (
	DivWhole     = Division{4, 1}
	DivHalf      = Division{2, 1}
	DivQuarter   = Division{1, 1}
	DivEighth    = Division{1, 2}
	DivSixteenth = Division{1, 4}
	DivTriplet8  = Division{1, 3}
	DivDotted8   = Division{3, 4}
)

// Quarters returns the pulse length in quarter notes (0 for a degenerate division)
func (d Division) Quarters() float64 {
	if d.Num <= 0 || d.Den <= 0 {
		return 0
	}
	return float64(d.Num) / float64(d.Den)
}

// Stage is one programmable slot of a track's pattern
type Stage struct {
	Pulses      int      `json:"pulses"`
	GateMode    GateMode `json:"gateMode"`
	Ratchets    int      `json:"ratchets"`
	Probability float64  `json:"probability"`
	NoteSlot    int      `json:"noteSlot"`
	Octave      int      `json:"octave"`
	StepType    StepType `json:"stepType"`
	GateLength  float64  `json:"gateLength"`
	Slide       bool     `json:"slide"`

	AccumTranspose int          `json:"accumTranspose"`
	AccumTrigger   AccumTrigger `json:"accumTrigger"`
	AccumRange     int          `json:"accumRange"`
	AccumMode      AccumMode    `json:"accumMode"`
}

// Track holds the editable pattern data of one sequencer track
type Track struct {
	Stages        [NumStages]Stage `json:"stages"`
	Direction     Direction        `json:"direction"`
	DirectionStep int              `json:"directionStep"` // N for skip-N and climb-N
	Division      Division         `json:"division"`
	LoopStart     int              `json:"loopStart"`
	LoopEnd       int              `json:"loopEnd"`
	Transpose     int              `json:"transpose"` // semitones
	BaseOctave    int              `json:"baseOctave"`
	Velocity      uint8            `json:"velocity"`
	Muted         bool             `json:"muted"`
	Running       bool             `json:"running"`
	Output        TargetMask       `json:"output"`
}

// LoopLen returns the number of stages in the loop range
func (t *Track) LoopLen() int {
	return t.LoopEnd - t.LoopStart + 1
}

// Holds reports whether the stage holds its note across pulses instead of retriggering
func (s *Stage) Holds() bool {
	return s.StepType == StepTie || s.GateMode == GateTie || s.Slide
}

// DefaultStage returns a plain one-pulse gated stage
func DefaultStage() Stage {
	return Stage{
		Pulses:       1,
		GateMode:     GateEvery,
		Ratchets:     1,
		Probability:  1.0,
		StepType:     StepPlay,
		GateLength:   0.5,
		AccumTrigger: AccumOnStage,
		AccumRange:   7,
	}
}

// DefaultTrack returns a forward, quarter-note track with all eight stages playing
// and output to the target matching its index
func DefaultTrack(idx int) Track {
	t := Track{
		Direction:     DirForward,
		DirectionStep: 2,
		Division:      DivQuarter,
		LoopStart:     0,
		LoopEnd:       NumStages - 1,
		Velocity:      100,
		Running:       true,
		Output:        TargetMask(1 << uint(idx%MaxTargets)),
	}
	for i := range t.Stages {
		t.Stages[i] = DefaultStage()
		t.Stages[i].NoteSlot = i
	}
	return t
}

// NoteEvent is a single scheduled note-on or note-off
type NoteEvent struct {
	SampleTime uint64
	Note       uint8
	Velocity   uint8 // 0 for note-off
	Target     TargetMask
	Track      int
}
