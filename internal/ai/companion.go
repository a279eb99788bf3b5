package ai

import (
	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
)

// CompanionPolicy is the domestic animal: it follows like a civilian but
// never reacts to identification, only to violence or evidence it sees
// directly. Once released from capture it fears the player for good.
func CompanionPolicy() *Policy {
	followCfg := func(c *Context) config.Follow { return c.Tuning.Companion.Follow }
	walk := func(c *Context) float64 { return speedOr(c.Agent.Speed, c.Tuning.Companion.Speed) }

	return &Policy{
		Kind:    state.KindCompanion,
		Initial: state.StateWandering,
		Recover: recoverNewTarget,
		States: map[state.AIState]StateSpec{
			state.StateWandering: {
				Tick: func(c *Context) {
					cfg := c.Tuning.Companion
					wanderLeg(c, pickCompanionSpot, walk(c), cfg.WaitMinTicks, cfg.WaitMaxTicks)
				},
				Transitions: []Transition{
					{When: captured, To: state.StateImprisoned},
					{When: companionThreatened, To: state.StateFleeing},
					{When: lured, To: state.StateFollowing},
				},
			},
			state.StateFleeing: {
				Enter: func(c *Context) {
					d := c.Agent.Companion
					d.Lured = false
					d.LastThreatTick = c.Tick
					d.ThreatFrom = c.View.Player.Position
				},
				Tick: func(c *Context) {
					a := c.Agent
					cfg := c.Tuning.Companion
					if companionThreatened(c) {
						a.Companion.LastThreatTick = c.Tick
						a.Companion.ThreatFrom = c.View.Player.Position
					}
					fleeLeg(c, a.Companion.ThreatFrom, cfg.FleeDistance, speedOr(a.FleeSpeed, cfg.FleeSpeed))
				},
				Transitions: []Transition{
					{When: captured, To: state.StateImprisoned},
					{When: func(c *Context) bool {
						return c.Tick-c.Agent.Companion.LastThreatTick >= c.Tuning.Companion.CalmTicks
					}, To: state.StateWandering},
				},
			},
			state.StateFollowing:  followState(followCfg, walk, companionThreatened),
			state.StateConfused:   confusedState(followCfg),
			state.StateImprisoned: imprisonedState(),
		},
	}
}

func companionThreatened(c *Context) bool {
	a := c.Agent
	p := c.View.Player
	if !p.Present || a.Companion.Captured {
		return false
	}
	if a.Companion.FearsPlayer {
		return true
	}
	if !p.PerformingIllicitAct && !p.CarryingEvidence {
		return false
	}
	return c.View.PlayerVisibleFrom(a.Position, c.Tuning.Companion.WitnessRadius)
}

func pickCompanionSpot(c *Context) (Vec2, bool) {
	a := c.Agent
	center := a.Companion.Home
	if a.Companion.ReturnHome {
		a.Companion.ReturnHome = false
		return center, false
	}
	if p, ok := c.RT.RandomPointNear(center, c.Tuning.Companion.WanderRadius, nil); ok {
		return p, false
	}
	return center, false
}
