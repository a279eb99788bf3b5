package ai

import (
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

// Vec2 aliases the world vector type.
type Vec2 = world.Vec2

// WorldView is the read-only world handed to every behaviour update. It is
// built once per tick and never mutated while agents run.
type WorldView struct {
	Tick      uint64
	Grid      *world.Grid
	Obstacles *world.ObstacleIndex
	Player    state.PlayerSnapshot
	Agents    []state.AgentSnapshot
	Hazards   []state.Hazard
	Buildings map[string][]Vec2
	Commerce  []Vec2
}

// CanSee reports whether b is visible from a.
func (v *WorldView) CanSee(a, b Vec2) bool {
	if v == nil || v.Obstacles == nil {
		return true
	}
	return v.Obstacles.HasLineOfSight(a, b)
}

// PlayerVisibleFrom reports whether the player is present, within radius of
// pos and in line of sight.
func (v *WorldView) PlayerVisibleFrom(pos Vec2, radius float64) bool {
	if v == nil || !v.Player.Present {
		return false
	}
	if world.DistanceSq(pos, v.Player.Position) > radius*radius {
		return false
	}
	return v.CanSee(pos, v.Player.Position)
}

// Hazard looks up a hazard that is still in the world.
func (v *WorldView) Hazard(id string) (state.Hazard, bool) {
	if v == nil || id == "" {
		return state.Hazard{}, false
	}
	for _, h := range v.Hazards {
		if h.ID == id {
			return h, true
		}
	}
	return state.Hazard{}, false
}

// VisibleHazards lists hazards within radius of pos and in line of sight.
func (v *WorldView) VisibleHazards(pos Vec2, radius float64) []state.Hazard {
	if v == nil {
		return nil
	}
	var out []state.Hazard
	r2 := radius * radius
	for _, h := range v.Hazards {
		if world.DistanceSq(pos, h.Position) > r2 {
			continue
		}
		if !v.CanSee(pos, h.Position) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Enforcers lists the live enforcers.
func (v *WorldView) Enforcers() []state.AgentSnapshot {
	if v == nil {
		return nil
	}
	out := make([]state.AgentSnapshot, 0, len(v.Agents))
	for _, a := range v.Agents {
		if a.Kind == state.KindEnforcer && a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// NearestThreat returns the closest threat to an agent of the given kind
// within radius. Threats are the player and every live agent of another kind.
func (v *WorldView) NearestThreat(self state.AgentSnapshot, radius float64) (Vec2, bool) {
	if v == nil {
		return Vec2{}, false
	}
	best := radius * radius
	found := false
	var out Vec2
	if v.Player.Present {
		if d := world.DistanceSq(self.Position, v.Player.Position); d < best {
			best, out, found = d, v.Player.Position, true
		}
	}
	for _, other := range v.Agents {
		if other.ID == self.ID || other.Kind == self.Kind || !other.Alive || other.State == state.StateImprisoned {
			continue
		}
		if d := world.DistanceSq(self.Position, other.Position); d < best {
			best, out, found = d, other.Position, true
		}
	}
	return out, found
}
