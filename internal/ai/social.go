package ai

import (
	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

func speedOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// followState trails the player while lured. Travelled distance is rolled
// against the stop ladder once per threshold and the agent always gives up
// at MaxTiles.
func followState(cfg func(*Context) config.Follow, speed func(*Context) float64, flee func(*Context) bool) StateSpec {
	return StateSpec{
		Enter: func(c *Context) {
			c.Agent.Social().Follow.Begin(c.Agent.Position)
		},
		Tick: func(c *Context) {
			a := c.Agent
			s := a.Social()
			f := cfg(c)
			tile := c.TileSize()
			before := a.Position
			if c.View.Player.Present && world.Distance(a.Position, c.View.Player.Position) > f.GapTiles*tile {
				c.RT.ReplanIfDue(a, c.View.Player.Position, false, c.Tick)
				c.RT.Follow(a, speed(c))
			} else if a.HasTarget {
				a.ClearTarget()
			}
			s.Follow.Travelled += world.Distance(before, a.Position)
			tiles := s.Follow.Travelled / tile
			for i := 0; i < state.FollowThresholds && i < len(f.ThresholdTiles); i++ {
				if s.Follow.Rolled[i] || tiles < f.ThresholdTiles[i] {
					continue
				}
				s.Follow.Rolled[i] = true
				if i < len(f.StopChances) && world.RandomFloat(c.RT.RNG()) < f.StopChances[i] {
					s.Follow.Stopped = true
				}
			}
			if tiles >= f.MaxTiles {
				s.Follow.Stopped = true
			}
		},
		Transitions: []Transition{
			{When: captured, To: state.StateImprisoned},
			{When: flee, To: state.StateFleeing},
			{When: func(c *Context) bool { return c.Agent.Social().Follow.Stopped }, To: state.StateConfused},
			{When: func(c *Context) bool { return !c.Agent.Social().Lured || !c.View.Player.Present }, To: state.StateConfused},
		},
	}
}

// confusedState pauses after losing the player, then heads home.
func confusedState(cfg func(*Context) config.Follow) StateSpec {
	return StateSpec{
		Enter: func(c *Context) {
			s := c.Agent.Social()
			s.Lured = false
			s.ReturnHome = true
			ticks := cfg(c).ConfusedTicks
			c.RT.Wait(c.Agent, ticks, ticks)
		},
		Transitions: []Transition{
			{When: captured, To: state.StateImprisoned},
			{When: waitOver, To: state.StateWandering},
		},
	}
}

// imprisonedState holds a captured agent in place until released.
func imprisonedState() StateSpec {
	return StateSpec{
		Enter: func(c *Context) {
			c.Agent.Social().Lured = false
		},
		Transitions: []Transition{
			{When: func(c *Context) bool { return !captured(c) }, To: state.StateWandering},
		},
	}
}

func lured(c *Context) bool {
	s := c.Agent.Social()
	return s != nil && s.Lured && !s.Captured && c.View.Player.Present
}
