package world

import "math"

// DefaultIndexCellSize is the bucket width used when none is supplied.
const DefaultIndexCellSize = 128.0

type indexCellKey struct {
	X int
	Y int
}

// ObstacleIndex buckets obstacle footprints into coarse cells so point
// queries only test nearby footprints. It is built once per grid revision and
// never mutated during a tick.
type ObstacleIndex struct {
	cellSize    float64
	invCellSize float64
	obstacles   []Obstacle
	cells       map[indexCellKey][]int
}

// NewObstacleIndex indexes the provided footprints.
func NewObstacleIndex(obstacles []Obstacle, cellSize float64) *ObstacleIndex {
	if cellSize <= 0 {
		cellSize = DefaultIndexCellSize
	}
	idx := &ObstacleIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		obstacles:   append([]Obstacle(nil), obstacles...),
		cells:       make(map[indexCellKey][]int),
	}
	for i, obs := range idx.obstacles {
		minX := idx.coordToCell(obs.X)
		minY := idx.coordToCell(obs.Y)
		maxX := idx.coordToCell(obs.X + obs.Width)
		maxY := idx.coordToCell(obs.Y + obs.Height)
		for row := minY; row <= maxY; row++ {
			for col := minX; col <= maxX; col++ {
				key := indexCellKey{X: col, Y: row}
				idx.cells[key] = append(idx.cells[key], i)
			}
		}
	}
	return idx
}

// Obstacles returns the indexed footprints.
func (idx *ObstacleIndex) Obstacles() []Obstacle {
	if idx == nil {
		return nil
	}
	return idx.obstacles
}

// Occluded reports whether p falls inside any indexed footprint.
func (idx *ObstacleIndex) Occluded(p Vec2) bool {
	if idx == nil {
		return false
	}
	bucket := idx.cells[indexCellKey{X: idx.coordToCell(p.X), Y: idx.coordToCell(p.Y)}]
	for _, i := range bucket {
		if idx.obstacles[i].Contains(p) {
			return true
		}
	}
	return false
}

// HasLineOfSight runs the sampled visibility test against the index.
func (idx *ObstacleIndex) HasLineOfSight(a, b Vec2) bool {
	if idx == nil {
		return true
	}
	return sampleSegment(a, b, idx.Occluded)
}

func (idx *ObstacleIndex) coordToCell(value float64) int {
	return int(math.Floor(value * idx.invCellSize))
}
