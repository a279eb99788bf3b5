package world

import "math"

// LineOfSightStep is the spacing between occlusion samples.
const LineOfSightStep = 8.0

// HasLineOfSight samples the segment a→b roughly every LineOfSightStep units
// and fails on the first sample inside an obstacle footprint. Only interior
// samples are tested, so a point-blank pair is always visible and corners can
// produce false negatives.
func HasLineOfSight(a, b Vec2, obstacles []Obstacle) bool {
	return sampleSegment(a, b, func(p Vec2) bool {
		for _, obs := range obstacles {
			if obs.Contains(p) {
				return true
			}
		}
		return false
	})
}

func sampleSegment(a, b Vec2, occluded func(Vec2) bool) bool {
	dist := Distance(a, b)
	if dist <= LineOfSightStep {
		return true
	}
	steps := int(math.Ceil(dist / LineOfSightStep))
	for i := 1; i < steps; i++ {
		if occluded(Lerp(a, b, float64(i)/float64(steps))) {
			return false
		}
	}
	return true
}
