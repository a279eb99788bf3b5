package ai

import "github.com/gglang/the-voices-sub000/internal/state"

// VerminPolicy scurries around its nest and bolts from anything else alive
// that comes close.
func VerminPolicy() *Policy {
	return &Policy{
		Kind:     state.KindVermin,
		Initial:  state.StateWandering,
		Perceive: perceiveVermin,
		States: map[state.AIState]StateSpec{
			state.StateWandering: {
				Tick: func(c *Context) {
					cfg := c.Tuning.Vermin
					wanderLeg(c, func(c *Context) (Vec2, bool) {
						origin := c.Agent.Vermin.Origin
						if p, ok := c.RT.RandomPointNear(origin, cfg.WanderRadius, nil); ok {
							return p, false
						}
						return origin, false
					}, speedOr(c.Agent.Speed, cfg.Speed), cfg.WaitMinTicks, cfg.WaitMaxTicks)
				},
				Transitions: []Transition{
					{When: func(c *Context) bool { return c.Agent.Vermin.FleeUntil > c.Tick }, To: state.StateFleeing},
				},
			},
			state.StateFleeing: {
				Tick: func(c *Context) {
					a := c.Agent
					cfg := c.Tuning.Vermin
					fleeLeg(c, a.Vermin.ThreatFrom, cfg.FleeDistance, speedOr(a.FleeSpeed, cfg.FleeSpeed))
				},
				Transitions: []Transition{
					{When: func(c *Context) bool { return c.Tick >= c.Agent.Vermin.FleeUntil }, To: state.StateWandering},
				},
			},
		},
	}
}

// perceiveVermin records where the nearest threat is and keeps the flee
// window open while it stays in range.
func perceiveVermin(c *Context) {
	a := c.Agent
	cfg := c.Tuning.Vermin
	if from, ok := c.View.NearestThreat(a.Snapshot(), cfg.FleeRadius); ok {
		a.Vermin.ThreatFrom = from
		a.Vermin.FleeUntil = c.Tick + cfg.CalmTicks
	}
}
