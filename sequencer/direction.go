package sequencer

// Rand is the random source used by the random directions and probability draws.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// InitialStage returns the stage a fresh run of the track starts on
func InitialStage(t *Track) int {
	lo, hi := t.LoopStart, t.LoopEnd
	switch t.Direction {
	case DirReverse:
		return hi
	case DirDiverge:
		return divergeStage(lo, hi, 0)
	default:
		return lo
	}
}

// NextStage computes the stage that follows rs.StageIndex for the track's direction.
// Only the pattern counters in rs are updated; the caller moves the cursor.
func NextStage(t *Track, rs *RuntimeState, rng Rand) int {
	lo, hi := t.LoopStart, t.LoopEnd
	n := hi - lo + 1
	if n <= 1 {
		return lo
	}
	cur := clampInt(rs.StageIndex, lo, hi)
	stride := max(t.DirectionStep, 1)

	switch t.Direction {
	case DirReverse:
		if cur-1 < lo {
			return hi
		}
		return cur - 1

	case DirAlternate:
		if rs.Forward {
			if cur >= hi {
				rs.Forward = false
				return cur - 1
			}
			return cur + 1
		}
		if cur <= lo {
			rs.Forward = true
			return cur + 1
		}
		return cur - 1

	case DirRandom:
		return lo + rng.Intn(n)

	case DirRandomNoRepeat:
		next := lo + rng.Intn(n-1)
		if next >= cur {
			next++
		}
		return next

	case DirSkip:
		next := cur + stride
		if next > hi {
			// new pass, offset so repeated passes cover every stage
			rs.PatternStep++
			next = lo + floorMod(floorMod(rs.PatternStep, stride), n)
		}
		return next

	case DirClimb:
		rs.PatternStep++
		if rs.PatternStep >= stride {
			rs.PatternStep = 0
			rs.ClimbWindowStart = wrapStage(rs.ClimbWindowStart+1, lo, n)
		}
		return wrapStage(rs.ClimbWindowStart+rs.PatternStep, lo, n)

	case DirDrunk:
		if rng.Intn(2) == 0 {
			return max(cur-1, lo)
		}
		return min(cur+1, hi)

	case DirConverge:
		rs.PatternStep = floorMod(rs.PatternStep+1, n)
		return convergeStage(lo, hi, rs.PatternStep)

	case DirDiverge:
		rs.PatternStep = floorMod(rs.PatternStep+1, n)
		return divergeStage(lo, hi, rs.PatternStep)

	default:
		if cur+1 > hi {
			return lo
		}
		return cur + 1
	}
}

func wrapStage(s, lo, n int) int {
	return lo + floorMod(s-lo, n)
}

// convergeStage alternates between the low and high ends, meeting in the middle
func convergeStage(lo, hi, step int) int {
	if step%2 == 0 {
		return lo + step/2
	}
	return hi - step/2
}

// divergeStage plays the converge order backwards: centre first, then outwards
func divergeStage(lo, hi, step int) int {
	n := hi - lo + 1
	return convergeStage(lo, hi, n-1-floorMod(step, n))
}
