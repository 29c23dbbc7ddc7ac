package sequencer

// AccumOffset returns the diatonic offset for an accumulator counter: the counter
// times transpose, wrapped symmetrically into [-rng, rng].
func AccumOffset(counter, transpose, rng int) int {
	if transpose == 0 || rng <= 0 {
		return 0
	}
	span := 2*rng + 1
	return floorMod(counter*transpose+rng, span) - rng
}

// accumCounter returns the counter a stage's accumulator uses
func (rs *RuntimeState) accumCounter(stageIdx int, st *Stage) *int {
	if st.AccumMode == AccumShared {
		return &rs.TrackAccum
	}
	return &rs.StageAccum[stageIdx]
}

// accumFire advances the stage's counter if its trigger matches
func (rs *RuntimeState) accumFire(stageIdx int, st *Stage, trig AccumTrigger) {
	if st.AccumTranspose == 0 || st.AccumTrigger != trig {
		return
	}
	*rs.accumCounter(stageIdx, st)++
}

// accumOffset returns the current offset for a stage
func (rs *RuntimeState) accumOffset(stageIdx int, st *Stage) int {
	if st.AccumTranspose == 0 {
		return 0
	}
	return AccumOffset(*rs.accumCounter(stageIdx, st), st.AccumTranspose, st.AccumRange)
}
