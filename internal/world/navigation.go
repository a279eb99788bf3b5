package world

import (
	"container/heap"
	"math"
)

const (
	DefaultMaxExpansions    = 500
	DefaultNearTiles        = 2
	DefaultGoalSearchRadius = 7
	DefaultOffRoadPenalty   = 8.0

	collinearEpsilon = 1e-6
)

type navNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var navNeighborOffsets = [...]navNeighbor{
	{col: 0, row: -1, cost: 1, diagonal: false},
	{col: 1, row: 0, cost: 1, diagonal: false},
	{col: 0, row: 1, cost: 1, diagonal: false},
	{col: -1, row: 0, cost: 1, diagonal: false},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

type navPoint struct {
	col int
	row int
}

// Planner runs weighted A* over a Grid. The zero value is not useful; start
// from DefaultPlanner.
type Planner struct {
	MaxExpansions    int
	NearTiles        int
	GoalSearchRadius int
	OffRoadPenalty   float64
}

func DefaultPlanner() Planner {
	return Planner{
		MaxExpansions:    DefaultMaxExpansions,
		NearTiles:        DefaultNearTiles,
		GoalSearchRadius: DefaultGoalSearchRadius,
		OffRoadPenalty:   DefaultOffRoadPenalty,
	}
}

func (p Planner) normalized() Planner {
	def := DefaultPlanner()
	if p.MaxExpansions <= 0 {
		p.MaxExpansions = def.MaxExpansions
	}
	if p.NearTiles < 0 {
		p.NearTiles = def.NearTiles
	}
	if p.GoalSearchRadius <= 0 {
		p.GoalSearchRadius = def.GoalSearchRadius
	}
	if p.OffRoadPenalty < 1 {
		p.OffRoadPenalty = def.OffRoadPenalty
	}
	return p
}

// FindPath plans with the default planner settings.
func FindPath(start, goal Vec2, grid *Grid, preferRoads bool) []Vec2 {
	return DefaultPlanner().FindPath(start, goal, grid, preferRoads)
}

// FindPath returns waypoints from start towards goal. The start tile is not
// included and the final waypoint is the goal tile centre, or the exact goal
// for the short-range early exits. A nil result means the goal is currently
// unreachable: either no walkable tile exists near a blocked goal or the
// expansion budget ran out. Callers should retry later rather than give up.
func (p Planner) FindPath(start, goal Vec2, grid *Grid, preferRoads bool) []Vec2 {
	if grid == nil {
		return nil
	}
	p = p.normalized()

	sx, sy := grid.TileOf(start)
	gx, gy := grid.TileOf(goal)
	if sx == gx && sy == gy {
		return []Vec2{goal}
	}
	if absInt(gx-sx)+absInt(gy-sy) <= p.NearTiles && grid.Walkable(gx, gy) {
		return []Vec2{goal}
	}
	if !grid.Walkable(gx, gy) {
		nx, ny, ok := grid.NearestWalkable(gx, gy, p.GoalSearchRadius, nil)
		if !ok {
			return nil
		}
		gx, gy = nx, ny
	}
	if !grid.InBounds(sx, sy) {
		return nil
	}
	if sx == gx && sy == gy {
		return []Vec2{grid.TileCenter(gx, gy)}
	}

	nodes, ok := p.astar(grid, navPoint{col: sx, row: sy}, navPoint{col: gx, row: gy}, preferRoads)
	if !ok || len(nodes) < 2 {
		return nil
	}
	path := make([]Vec2, 0, len(nodes)-1)
	for _, node := range nodes[1:] {
		path = append(path, grid.TileCenter(node.col, node.row))
	}
	return path
}

func (p Planner) astar(grid *Grid, start, goal navPoint, preferRoads bool) ([]navPoint, bool) {
	open := &pathQueue{}
	heap.Init(open)
	nodes := make(map[int]*pathNode)

	h := octile(start, goal)
	startNode := &pathNode{point: start, g: 0, h: h, f: h}
	nodes[TileKey(start.col, start.row)] = startNode
	heap.Push(open, startNode)

	expansions := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.point == goal {
			return reconstructPath(current), true
		}
		current.closed = true
		if expansions >= p.MaxExpansions {
			return nil, false
		}
		expansions++

		for _, delta := range navNeighborOffsets {
			nc := current.point.col + delta.col
			nr := current.point.row + delta.row
			if !grid.Walkable(nc, nr) {
				continue
			}
			if delta.diagonal && !canTraverseDiagonal(grid, current.point, delta) {
				continue
			}
			key := TileKey(nc, nr)
			node, seen := nodes[key]
			if seen && node.closed {
				continue
			}
			cost := delta.cost
			if preferRoads && grid.CellAt(nc, nr).Kind != CellPreferred {
				cost *= p.OffRoadPenalty
			}
			tentative := current.g + cost
			if !seen {
				point := navPoint{col: nc, row: nr}
				nh := octile(point, goal)
				node = &pathNode{point: point, g: tentative, h: nh, f: tentative + nh, parent: current}
				nodes[key] = node
				heap.Push(open, node)
				continue
			}
			if tentative >= node.g {
				continue
			}
			node.g = tentative
			node.f = tentative + node.h
			node.parent = current
			heap.Fix(open, node.index)
		}
	}
	return nil, false
}

// canTraverseDiagonal rejects diagonal steps that would clip a blocked
// orthogonal corner.
func canTraverseDiagonal(grid *Grid, current navPoint, delta navNeighbor) bool {
	if !delta.diagonal {
		return true
	}
	return grid.Walkable(current.col+delta.col, current.row) &&
		grid.Walkable(current.col, current.row+delta.row)
}

func octile(a, b navPoint) float64 {
	dx := math.Abs(float64(a.col - b.col))
	dy := math.Abs(float64(a.row - b.row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

func reconstructPath(end *pathNode) []navPoint {
	if end == nil {
		return nil
	}
	path := make([]navPoint, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// SimplifyPath drops interior waypoints that sit on the straight line between
// their neighbours. The route shape is unchanged.
func SimplifyPath(path []Vec2) []Vec2 {
	if len(path) <= 2 {
		return append([]Vec2(nil), path...)
	}
	out := make([]Vec2, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		prev := path[i-1]
		cur := path[i]
		next := path[i+1]
		cross := (cur.X-prev.X)*(next.Y-cur.Y) - (cur.Y-prev.Y)*(next.X-cur.X)
		if math.Abs(cross) <= collinearEpsilon {
			continue
		}
		out = append(out, cur)
	}
	out = append(out, path[len(path)-1])
	return out
}

// PathLength is the travel distance from start through every waypoint.
func PathLength(start Vec2, path []Vec2) float64 {
	total := 0.0
	prev := start
	for _, node := range path {
		total += Distance(prev, node)
		prev = node
	}
	return total
}
