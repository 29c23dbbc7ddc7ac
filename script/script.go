// Package script runs Lua preset scripts against a pattern store.
//
// Scripts see a global table "seq". Tracks, stages and targets are 1-based:
//
//	seq.tempo(128)
//	seq.scale("dorian")
//	seq.track(1, {direction = "alternate", division = "1/8", loop = {1, 4}})
//	seq.stage(1, 2, {pulses = 2, gate = "first", ratchets = 3, note = 4})
//	seq.euclid(2, 5, 1)
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"go-stageseq/debug"
	"go-stageseq/sequencer"
)

// Runner executes scripts against one store
type Runner struct {
	store *sequencer.PatternStore
}

func NewRunner(store *sequencer.PatternStore) *Runner {
	return &Runner{store: store}
}

// Run executes Lua source
func (r *Runner) Run(src string) error {
	L := r.newState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

// RunFile executes the Lua file at path
func (r *Runner) RunFile(path string) error {
	L := r.newState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("run script %s: %w", path, err)
	}
	debug.Log("script", "ran %s", path)
	return nil
}

func (r *Runner) newState() *lua.LState {
	L := lua.NewState()
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"tempo":        r.tempo,
		"root":         r.root,
		"octave":       r.octave,
		"scale":        r.scale,
		"track":        r.track,
		"stage":        r.stage,
		"euclid":       r.euclid,
		"chord":        r.chord,
		"use_chord":    r.useChord,
		"compensation": r.compensation,
		"reset":        r.reset,
		"clear":        r.clear,
	})
	mod.RawSetString("tracks", lua.LNumber(sequencer.NumTracks))
	mod.RawSetString("stages", lua.LNumber(sequencer.NumStages))
	L.SetGlobal("seq", mod)
	return L
}

// checkIndex reads a 1-based index argument and returns it 0-based
func checkIndex(L *lua.LState, n, max int, what string) int {
	i := L.CheckInt(n)
	if i < 1 || i > max {
		L.ArgError(n, fmt.Sprintf("%s must be 1..%d", what, max))
	}
	return i - 1
}

// tempo([bpm]) sets the tempo and returns the current value
func (r *Runner) tempo(L *lua.LState) int {
	if L.GetTop() >= 1 {
		r.store.SetTempo(float64(L.CheckNumber(1)))
	}
	L.Push(lua.LNumber(r.store.Tempo()))
	return 1
}

func (r *Runner) root(L *lua.LState) int {
	r.store.SetRoot(L.CheckInt(1))
	return 0
}

func (r *Runner) octave(L *lua.LState) int {
	r.store.SetGlobalOctave(L.CheckInt(1))
	return 0
}

func (r *Runner) scale(L *lua.LState) int {
	s, err := sequencer.ParseScale(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	r.store.SetScale(s)
	return 0
}

// track(t, fields) updates the named fields of a track
func (r *Runner) track(L *lua.LState) int {
	idx := checkIndex(L, 1, sequencer.NumTracks, "track")
	tbl := L.CheckTable(2)
	t := r.store.Track(idx)

	tbl.ForEach(func(k, v lua.LValue) {
		switch k.String() {
		case "direction":
			d, err := sequencer.ParseDirection(v.String())
			if err != nil {
				L.RaiseError("track %d: %v", idx+1, err)
			}
			t.Direction = d
		case "step":
			t.DirectionStep = toInt(L, k, v)
		case "division":
			d, err := sequencer.ParseDivision(v.String())
			if err != nil {
				L.RaiseError("track %d: %v", idx+1, err)
			}
			t.Division = d
		case "loop":
			lt, ok := v.(*lua.LTable)
			if !ok || lt.Len() != 2 {
				L.RaiseError("track %d: loop must be {start, end}", idx+1)
			}
			t.LoopStart = toInt(L, k, lt.RawGetInt(1)) - 1
			t.LoopEnd = toInt(L, k, lt.RawGetInt(2)) - 1
		case "transpose":
			t.Transpose = toInt(L, k, v)
		case "octave":
			t.BaseOctave = toInt(L, k, v)
		case "velocity":
			t.Velocity = uint8(clampVelocity(toInt(L, k, v)))
		case "muted":
			t.Muted = lua.LVAsBool(v)
		case "running":
			t.Running = lua.LVAsBool(v)
		case "output":
			t.Output = sequencer.TargetMask(toInt(L, k, v))
		default:
			L.RaiseError("track %d: unknown field %q", idx+1, k.String())
		}
	})
	r.store.SetTrack(idx, t)
	return 0
}

// stage(t, s, fields) updates the named fields of a stage
func (r *Runner) stage(L *lua.LState) int {
	ti := checkIndex(L, 1, sequencer.NumTracks, "track")
	si := checkIndex(L, 2, sequencer.NumStages, "stage")
	tbl := L.CheckTable(3)
	st := r.store.Track(ti).Stages[si]

	tbl.ForEach(func(k, v lua.LValue) {
		var err error
		switch k.String() {
		case "pulses":
			st.Pulses = toInt(L, k, v)
		case "gate":
			st.GateMode, err = sequencer.ParseGateMode(v.String())
		case "ratchets":
			st.Ratchets = toInt(L, k, v)
		case "probability":
			st.Probability = toFloat(L, k, v)
		case "note":
			st.NoteSlot = toInt(L, k, v)
		case "octave":
			st.Octave = toInt(L, k, v)
		case "type":
			st.StepType, err = sequencer.ParseStepType(v.String())
		case "length":
			st.GateLength = toFloat(L, k, v)
		case "slide":
			st.Slide = lua.LVAsBool(v)
		case "accum":
			at, ok := v.(*lua.LTable)
			if !ok {
				L.RaiseError("stage %d.%d: accum must be a table", ti+1, si+1)
			}
			err = applyAccum(L, at, &st)
		default:
			L.RaiseError("stage %d.%d: unknown field %q", ti+1, si+1, k.String())
		}
		if err != nil {
			L.RaiseError("stage %d.%d: %v", ti+1, si+1, err)
		}
	})
	r.store.SetStage(ti, si, st)
	return 0
}

func applyAccum(L *lua.LState, tbl *lua.LTable, st *sequencer.Stage) error {
	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		switch k.String() {
		case "transpose":
			st.AccumTranspose = toInt(L, k, v)
		case "range":
			st.AccumRange = toInt(L, k, v)
		case "trigger":
			st.AccumTrigger, err = sequencer.ParseAccumTrigger(v.String())
		case "mode":
			st.AccumMode, err = sequencer.ParseAccumMode(v.String())
		default:
			err = fmt.Errorf("unknown accum field %q", k.String())
		}
	})
	return err
}

// euclid(t, fills[, rotation]) writes a euclidean rhythm over the track's loop
func (r *Runner) euclid(L *lua.LState) int {
	idx := checkIndex(L, 1, sequencer.NumTracks, "track")
	r.store.ApplyEuclidean(idx, L.CheckInt(2), L.OptInt(3, 0))
	return 0
}

// chord(s, {intervals...}) captures a chord for stage s
func (r *Runner) chord(L *lua.LState) int {
	stage := checkIndex(L, 1, sequencer.NumStages, "stage")
	tbl := L.CheckTable(2)
	intervals := make([]int, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		intervals = append(intervals, toInt(L, lua.LNumber(i), tbl.RawGetInt(i)))
	}
	r.store.SetChord(stage, intervals)
	return 0
}

func (r *Runner) useChord(L *lua.LState) int {
	r.store.SetUseChord(L.ToBool(1))
	return 0
}

// compensation(target, ms)
func (r *Runner) compensation(L *lua.LState) int {
	target := checkIndex(L, 1, sequencer.MaxTargets, "target")
	r.store.SetCompensation(target, float64(L.CheckNumber(2)))
	return 0
}

func (r *Runner) reset(L *lua.LState) int {
	r.store.ResetTrack(checkIndex(L, 1, sequencer.NumTracks, "track"))
	return 0
}

func (r *Runner) clear(L *lua.LState) int {
	r.store.Clear()
	return 0
}

func toInt(L *lua.LState, k, v lua.LValue) int {
	n, ok := v.(lua.LNumber)
	if !ok {
		L.RaiseError("%s: number expected, got %s", k.String(), v.Type().String())
	}
	return int(n)
}

func toFloat(L *lua.LState, k, v lua.LValue) float64 {
	n, ok := v.(lua.LNumber)
	if !ok {
		L.RaiseError("%s: number expected, got %s", k.String(), v.Type().String())
	}
	return float64(n)
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}
