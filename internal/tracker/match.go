package tracker

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultMatchThreshold is the exclusive centroid distance, in pixels, under
// which a box continues an existing identity.
const DefaultMatchThreshold = 300.0

// match finds the nearest identity not yet claimed this frame. It returns
// ok=false when the table is empty or the nearest centroid is at or beyond
// threshold. match never mutates the state.
func (s *State) match(b Box, threshold float64) (id int64, prev Point, ok bool) {
	c := Centroid(b)
	at := []float64{float64(c.X), float64(c.Y)}
	cand := make([]float64, 2)

	minDist := math.Inf(1)
	found := false
	for _, oid := range s.order {
		if _, claimed := s.matched[oid]; claimed {
			continue
		}
		oc := s.centroids[oid]
		cand[0], cand[1] = float64(oc.X), float64(oc.Y)
		d := floats.Distance(at, cand, 2)
		// Strict comparison keeps the earliest identity on ties.
		if d < minDist {
			minDist = d
			id = oid
			prev = oc
			found = true
		}
	}

	if found && withinThreshold(minDist, threshold) {
		return id, prev, true
	}
	return 0, Point{}, false
}

func withinThreshold(dist, threshold float64) bool {
	return dist < threshold
}
