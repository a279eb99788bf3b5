package state

// PathState stores an agent's active route. PathIndex always points inside
// Path; an exhausted route is cleared rather than left dangling.
type PathState struct {
	Path        []Vec2
	PathIndex   int
	Goal        Vec2
	PreferRoads bool
	RecalcTick  uint64
}

// Active reports whether waypoints remain.
func (p *PathState) Active() bool {
	return p != nil && p.PathIndex < len(p.Path)
}

// Current returns the waypoint being steered towards.
func (p *PathState) Current() (Vec2, bool) {
	if !p.Active() {
		return Vec2{}, false
	}
	return p.Path[p.PathIndex], true
}

// Advance moves to the next waypoint and clears the route once exhausted.
func (p *PathState) Advance() {
	if p == nil {
		return
	}
	p.PathIndex++
	if p.PathIndex >= len(p.Path) {
		p.Path = nil
		p.PathIndex = 0
	}
}

// Install replaces the route.
func (p *PathState) Install(path []Vec2, goal Vec2, preferRoads bool, tick uint64) {
	p.Path = path
	p.PathIndex = 0
	p.Goal = goal
	p.PreferRoads = preferRoads
	p.RecalcTick = tick
	if len(path) == 0 {
		p.Path = nil
	}
}

// Clear drops the route without touching recalc bookkeeping.
func (p *PathState) Clear() {
	if p == nil {
		return
	}
	p.Path = nil
	p.PathIndex = 0
}
