package world

import "math"

// DefaultTileSize is the width of one grid tile in world units.
const DefaultTileSize = 32.0

// CellKind tags a tile with its walkability class.
type CellKind uint8

const (
	CellOpen CellKind = iota
	CellBlocked
	CellPreferred
)

func (k CellKind) String() string {
	switch k {
	case CellOpen:
		return "open"
	case CellBlocked:
		return "blocked"
	case CellPreferred:
		return "preferred"
	default:
		return "unknown"
	}
}

// Cell is a single tile of the town grid. BuildingID is empty for public
// space.
type Cell struct {
	Kind       CellKind `json:"kind"`
	BuildingID string   `json:"buildingId,omitempty"`
}

// Walkable reports whether agents may occupy the cell.
func (c Cell) Walkable() bool {
	return c.Kind != CellBlocked
}

// TilePos addresses a tile by column and row.
type TilePos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is the dense tile map. It is read-only while a tick is executing.
type Grid struct {
	cols     int
	rows     int
	tileSize float64
	cells    []Cell
}

// NewGrid allocates a grid of open cells.
func NewGrid(cols, rows int, tileSize float64) *Grid {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return &Grid{
		cols:     cols,
		rows:     rows,
		tileSize: tileSize,
		cells:    make([]Cell, cols*rows),
	}
}

func (g *Grid) Cols() int {
	if g == nil {
		return 0
	}
	return g.cols
}

func (g *Grid) Rows() int {
	if g == nil {
		return 0
	}
	return g.rows
}

func (g *Grid) TileSize() float64 {
	if g == nil {
		return DefaultTileSize
	}
	return g.tileSize
}

// Width is the world-space extent of the grid along X.
func (g *Grid) Width() float64 {
	if g == nil {
		return 0
	}
	return float64(g.cols) * g.tileSize
}

// Height is the world-space extent of the grid along Y.
func (g *Grid) Height() float64 {
	if g == nil {
		return 0
	}
	return float64(g.rows) * g.tileSize
}

func (g *Grid) InBounds(x, y int) bool {
	return g != nil && x >= 0 && y >= 0 && x < g.cols && y < g.rows
}

// CellAt returns the cell at the tile coordinate. Anything outside the grid
// reads as blocked.
func (g *Grid) CellAt(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Cell{Kind: CellBlocked}
	}
	return g.cells[y*g.cols+x]
}

// Set replaces a cell. Only call between ticks.
func (g *Grid) Set(x, y int, cell Cell) bool {
	if !g.InBounds(x, y) {
		return false
	}
	g.cells[y*g.cols+x] = cell
	return true
}

func (g *Grid) Walkable(x, y int) bool {
	return g.CellAt(x, y).Walkable()
}

// TileOf converts a world position to the tile containing it.
func (g *Grid) TileOf(p Vec2) (int, int) {
	size := g.TileSize()
	return int(math.Floor(p.X / size)), int(math.Floor(p.Y / size))
}

// TileCenter is the world position at the middle of a tile.
func (g *Grid) TileCenter(x, y int) Vec2 {
	size := g.TileSize()
	return Vec2{
		X: (float64(x) + 0.5) * size,
		Y: (float64(y) + 0.5) * size,
	}
}

// WalkableAt reports whether the tile under p is walkable.
func (g *Grid) WalkableAt(p Vec2) bool {
	x, y := g.TileOf(p)
	return g.Walkable(x, y)
}

// CellAtPos returns the cell under a world position.
func (g *Grid) CellAtPos(p Vec2) Cell {
	x, y := g.TileOf(p)
	return g.CellAt(x, y)
}

// TileKey packs a tile coordinate into a single integer. Valid for grids up
// to 65535 tiles along each axis.
func TileKey(x, y int) int {
	return y<<16 | x
}

// UnpackTileKey reverses TileKey.
func UnpackTileKey(key int) (int, int) {
	return key & 0xffff, key >> 16
}

// NearestWalkable ring-searches outward from (x, y) for the closest walkable
// tile accepted by pred, examining Chebyshev rings 1..maxRadius. Within a ring
// the tile with the smallest Euclidean offset wins, ties going to row-major
// order. The origin tile itself is never returned.
func (g *Grid) NearestWalkable(x, y, maxRadius int, pred func(Cell) bool) (int, int, bool) {
	if g == nil {
		return 0, 0, false
	}
	for r := 1; r <= maxRadius; r++ {
		bestX, bestY := 0, 0
		bestDist := math.MaxInt
		found := false
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if absInt(dx) != r && absInt(dy) != r {
					continue
				}
				cell := g.CellAt(x+dx, y+dy)
				if !cell.Walkable() {
					continue
				}
				if pred != nil && !pred(cell) {
					continue
				}
				dist := dx*dx + dy*dy
				if dist < bestDist {
					bestDist = dist
					bestX, bestY = x+dx, y+dy
					found = true
				}
			}
		}
		if found {
			return bestX, bestY, true
		}
	}
	return 0, 0, false
}

// Tiles returns every tile accepted by pred in row-major order.
func (g *Grid) Tiles(pred func(Cell) bool) []TilePos {
	if g == nil {
		return nil
	}
	var out []TilePos
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			if pred == nil || pred(g.cells[y*g.cols+x]) {
				out = append(out, TilePos{X: x, Y: y})
			}
		}
	}
	return out
}

// Clone copies the grid so callers can mutate it independently.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	cloned := &Grid{cols: g.cols, rows: g.rows, tileSize: g.tileSize, cells: make([]Cell, len(g.cells))}
	copy(cloned.cells, g.cells)
	return cloned
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
