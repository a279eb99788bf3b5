package world

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// DeterministicSeedValue derives a stable per-subsystem seed from the root
// seed so each consumer gets an independent but reproducible stream.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return NewDeterministicRNG(DefaultSeed, "world").Float64()
	}
	return rng.Float64()
}

func RandomAngle(rng *rand.Rand) float64 {
	return RandomFloat(rng) * 2 * math.Pi
}

func RandomDistance(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + RandomFloat(rng)*(max-min)
}

// RandomTicks picks an inclusive interval length in [min, max].
func RandomTicks(rng *rand.Rand, min, max uint64) uint64 {
	if max <= min {
		return min
	}
	span := max - min
	if span > 0x7fffffff {
		span = 0x7fffffff
	}
	if rng == nil {
		return min
	}
	return min + uint64(rng.Intn(int(span)+1))
}

// RandomWalkableNear samples up to attempts points within radius of center
// and returns the first one on a walkable tile accepted by pred.
func RandomWalkableNear(grid *Grid, rng *rand.Rand, center Vec2, radius float64, attempts int, pred func(Cell) bool) (Vec2, bool) {
	if grid == nil {
		return Vec2{}, false
	}
	for i := 0; i < attempts; i++ {
		angle := RandomAngle(rng)
		dist := radius * math.Sqrt(RandomFloat(rng))
		candidate := Vec2{X: center.X + math.Cos(angle)*dist, Y: center.Y + math.Sin(angle)*dist}
		x, y := grid.TileOf(candidate)
		cell := grid.CellAt(x, y)
		if !cell.Walkable() {
			continue
		}
		if pred != nil && !pred(cell) {
			continue
		}
		return grid.TileCenter(x, y), true
	}
	return Vec2{}, false
}

// ScatterWalkable returns count walkable tile centres within radiusTiles of
// center. Positions may repeat when the area is cramped; when nothing walkable
// is found the centre itself is used.
func ScatterWalkable(grid *Grid, rng *rand.Rand, center Vec2, count int, radiusTiles int) []Vec2 {
	if count <= 0 {
		return nil
	}
	out := make([]Vec2, 0, count)
	radius := float64(radiusTiles) * grid.TileSize()
	fallback := center
	if !grid.WalkableAt(center) {
		cx, cy := grid.TileOf(center)
		if x, y, ok := grid.NearestWalkable(cx, cy, radiusTiles+DefaultGoalSearchRadius, nil); ok {
			fallback = grid.TileCenter(x, y)
		}
	}
	for len(out) < count {
		pos, ok := RandomWalkableNear(grid, rng, center, radius, 16, nil)
		if !ok {
			pos = fallback
		}
		out = append(out, pos)
	}
	return out
}
