package world

import "fmt"

// Obstacle is an axis-aligned occluding footprint.
type Obstacle struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the footprint, edges included.
func (o Obstacle) Contains(p Vec2) bool {
	return p.X >= o.X && p.X <= o.X+o.Width && p.Y >= o.Y && p.Y <= o.Y+o.Height
}

// ObstaclesFromGrid turns blocked tiles into footprints, merging horizontal
// runs on each row so long walls become a single rectangle.
func ObstaclesFromGrid(grid *Grid) []Obstacle {
	if grid == nil {
		return nil
	}
	size := grid.TileSize()
	obstacles := make([]Obstacle, 0)
	for y := 0; y < grid.Rows(); y++ {
		x := 0
		for x < grid.Cols() {
			if grid.Walkable(x, y) {
				x++
				continue
			}
			start := x
			for x < grid.Cols() && !grid.Walkable(x, y) {
				x++
			}
			obstacles = append(obstacles, Obstacle{
				ID:     fmt.Sprintf("wall-%d-%d", start, y),
				X:      float64(start) * size,
				Y:      float64(y) * size,
				Width:  float64(x-start) * size,
				Height: size,
			})
		}
	}
	return obstacles
}
