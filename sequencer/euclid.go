package sequencer

// EuclideanPattern distributes Fills hits as evenly as possible over Steps
type EuclideanPattern struct {
	Steps    int
	Fills    int
	Rotation int
	Hits     []bool
}

// Euclid generates a euclidean rhythm: hits at floor(i*steps/fills), then the
// pattern is rotated left by rotation mod steps. fills <= 0 gives no hits,
// fills >= steps gives all hits.
func Euclid(steps, fills, rotation int) EuclideanPattern {
	if steps < 0 {
		steps = 0
	}
	fills = clampInt(fills, 0, steps)
	p := EuclideanPattern{Steps: steps, Fills: fills, Hits: make([]bool, steps)}
	if steps == 0 {
		return p
	}
	p.Rotation = floorMod(rotation, steps)

	raw := make([]bool, steps)
	for i := 0; i < fills; i++ {
		raw[i*steps/fills] = true
	}
	for i := range p.Hits {
		p.Hits[i] = raw[(i+p.Rotation)%steps]
	}
	return p
}

// Count returns the number of hits
func (p EuclideanPattern) Count() int {
	n := 0
	for _, h := range p.Hits {
		if h {
			n++
		}
	}
	return n
}
