package ai

import (
	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

// CivilianPolicy wanders between home, public space and shops, flees an
// identified player, raises one alert per threat episode and reports any
// evidence it sees.
func CivilianPolicy() *Policy {
	followCfg := func(c *Context) config.Follow { return c.Tuning.Civilian.Follow }
	walk := func(c *Context) float64 { return speedOr(c.Agent.Speed, c.Tuning.Civilian.Speed) }

	return &Policy{
		Kind:     state.KindCivilian,
		Initial:  state.StateWandering,
		Perceive: perceiveCivilian,
		Recover:  recoverNewTarget,
		States: map[state.AIState]StateSpec{
			state.StateWandering: {
				Tick: func(c *Context) {
					cfg := c.Tuning.Civilian
					wanderLeg(c, pickCivilianDestination, walk(c), cfg.WaitMinTicks, cfg.WaitMaxTicks)
				},
				Transitions: []Transition{
					{When: captured, To: state.StateImprisoned},
					{When: civilianShouldFlee, To: state.StateFleeing},
					{When: lured, To: state.StateFollowing},
				},
			},
			state.StateFleeing: {
				Enter: enterCivilianFlee,
				Tick: func(c *Context) {
					a := c.Agent
					cfg := c.Tuning.Civilian
					if c.View.PlayerVisibleFrom(a.Position, cfg.DetectionRadius) {
						a.Civilian.LastThreatTick = c.Tick
						a.Civilian.ThreatFrom = c.View.Player.Position
					}
					fleeLeg(c, a.Civilian.ThreatFrom, cfg.FleeDistance, speedOr(a.FleeSpeed, cfg.FleeSpeed))
				},
				Transitions: []Transition{
					{When: captured, To: state.StateImprisoned},
					{When: func(c *Context) bool {
						return c.Tick-c.Agent.Civilian.LastThreatTick >= c.Tuning.Civilian.CalmTicks
					}, To: state.StateWandering},
				},
			},
			state.StateFollowing:  followState(followCfg, walk, civilianShouldFlee),
			state.StateConfused:   confusedState(followCfg),
			state.StateImprisoned: imprisonedState(),
		},
	}
}

func perceiveCivilian(c *Context) {
	if captured(c) {
		return
	}
	cfg := c.Tuning.Civilian
	witnessIllicitAct(c, cfg.WitnessRadius)
	reportHazards(c, cfg.HazardSightRadius)
}

func civilianShouldFlee(c *Context) bool {
	return identified(c) && c.View.PlayerVisibleFrom(c.Agent.Position, c.Tuning.Civilian.DetectionRadius)
}

// enterCivilianFlee raises the disturbance alert once per identification
// episode, however many times the civilian panics during it.
func enterCivilianFlee(c *Context) {
	a := c.Agent
	a.Civilian.LastThreatTick = c.Tick
	a.Civilian.ThreatFrom = c.View.Player.Position
	a.Civilian.Lured = false
	if c.Threat != nil && c.Disp != nil && a.Civilian.AlertEpisode != c.Threat.Episode() {
		a.Civilian.AlertEpisode = c.Threat.Episode()
		c.Disp.AlertDisturbance(c.Ctx, c.Tick, c.View.Player.Position, "", c.View.Enforcers())
	}
}

// pickCivilianDestination rolls home, public space or commerce. A civilian
// sent home (after confusion or release) always goes there next.
func pickCivilianDestination(c *Context) (Vec2, bool) {
	a := c.Agent
	cfg := c.Tuning.Civilian
	rng := c.RT.RNG()

	if a.Civilian.ReturnHome {
		a.Civilian.ReturnHome = false
		if p, ok := homeTile(c); ok {
			return p, false
		}
	}

	total := cfg.HomeWeight + cfg.PublicWeight + cfg.CommerceWeight
	roll := world.RandomFloat(rng) * total
	switch {
	case roll < cfg.HomeWeight:
		if p, ok := homeTile(c); ok {
			return p, false
		}
	case roll < cfg.HomeWeight+cfg.PublicWeight:
		radius := cfg.PublicRadiusTiles * c.TileSize()
		if p, ok := c.RT.RandomPointNear(a.Position, radius, func(cell world.Cell) bool { return cell.BuildingID == "" }); ok {
			return p, true
		}
	default:
		if n := len(c.View.Commerce); n > 0 {
			return c.View.Commerce[rng.Intn(n)], true
		}
	}
	if p, ok := c.RT.RandomPointNear(a.Position, cfg.PublicRadiusTiles*c.TileSize(), nil); ok {
		return p, false
	}
	return a.Position, false
}

func homeTile(c *Context) (Vec2, bool) {
	tiles := c.View.Buildings[c.Agent.Civilian.HomeBuilding]
	if len(tiles) == 0 {
		return Vec2{}, false
	}
	return tiles[c.RT.RNG().Intn(len(tiles))], true
}
