package ai

import (
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/detection"
)

// EnforcerPolicy patrols near its post, investigates dispatched
// disturbances, chases an identified player and searches the last place it
// saw them.
func EnforcerPolicy() *Policy {
	return &Policy{
		Kind:     state.KindEnforcer,
		Initial:  state.StateWandering,
		Perceive: perceiveEnforcer,
		Recover:  recoverEnforcer,
		States: map[state.AIState]StateSpec{
			state.StateWandering: {
				Tick: func(c *Context) {
					cfg := c.Tuning.Enforcer
					wanderLeg(c, pickPatrolPoint, speedOr(c.Agent.Speed, cfg.Speed), cfg.WaitMinTicks, cfg.WaitMaxTicks)
				},
				Transitions: []Transition{
					{When: chaseTarget, To: state.StateChasing},
					{When: hasAssignment, To: state.StateInvestigating},
				},
			},
			state.StateInvestigating: {
				Enter: enterInvestigation,
				Tick:  tickInvestigation,
				Transitions: []Transition{
					{When: chaseTarget, To: state.StateChasing},
					{When: func(c *Context) bool {
						return c.Agent.Enforcer.Investigation.Done && waitOver(c)
					}, To: state.StateWandering},
				},
			},
			state.StateChasing: {
				Enter: func(c *Context) {
					if c.Disp != nil {
						c.Disp.Release(c.Agent.ID)
					}
					c.Agent.Enforcer.Investigation = state.Investigation{}
				},
				Tick: func(c *Context) {
					a := c.Agent
					if a.Enforcer.PlayerVisible {
						c.RT.ReplanIfDue(a, c.View.Player.Position, false, c.Tick)
					}
					c.RT.Follow(a, speedOr(a.FleeSpeed, c.Tuning.Enforcer.ChaseSpeed))
				},
				Transitions: []Transition{
					{When: func(c *Context) bool { return !identified(c) }, To: state.StateWandering},
					{When: func(c *Context) bool { return !c.Agent.Enforcer.PlayerVisible }, To: state.StateGoingToLastKnown},
				},
			},
			state.StateGoingToLastKnown: {
				Enter: func(c *Context) {
					c.Agent.Enforcer.Searched = false
				},
				Tick: func(c *Context) {
					a := c.Agent
					e := a.Enforcer
					if e.Searched || !e.HasLastKnown {
						return
					}
					if goTo(c, e.LastKnown, false, speedOr(a.FleeSpeed, c.Tuning.Enforcer.ChaseSpeed)) {
						e.Searched = true
						a.ClearTarget()
						search := c.Tuning.Enforcer.SearchTicks
						c.RT.Wait(a, search, search)
					}
				},
				Transitions: []Transition{
					{When: chaseTarget, To: state.StateChasing},
					{When: func(c *Context) bool { return !c.Agent.Enforcer.HasLastKnown }, To: state.StateWandering},
					{When: func(c *Context) bool { return c.Agent.Enforcer.Searched && waitOver(c) }, To: state.StateWandering},
				},
			},
		},
	}
}

func perceiveEnforcer(c *Context) {
	a := c.Agent
	e := a.Enforcer
	cfg := c.Tuning.Enforcer

	e.PlayerVisible = c.View.PlayerVisibleFrom(a.Position, cfg.SightRadius)
	if e.PlayerVisible {
		witnessIllicitAct(c, cfg.SightRadius)
		if identified(c) {
			e.LastKnown = c.View.Player.Position
			e.HasLastKnown = true
		}
	}

	// The close-range timer runs regardless of identification.
	if e.PlayerVisible && world.Distance(a.Position, c.View.Player.Position) <= cfg.CloseRadius {
		e.CloseTicks++
	} else {
		e.CloseTicks = 0
	}
	if e.CloseTicks >= cfg.CaptureTicks && !e.Caught {
		e.Caught = true
		detection.PlayerCaught(c.Ctx, c.Pub, c.Tick, logging.AgentRef(a.ID), detection.PlayerCaughtPayload{
			X:          c.View.Player.Position.X,
			Y:          c.View.Player.Position.Y,
			CloseTicks: e.CloseTicks,
		}, nil)
		c.machine.caught(c)
	}

	reportHazards(c, cfg.HazardSightRadius)
}

func chaseTarget(c *Context) bool {
	return c.Agent.Enforcer.PlayerVisible && identified(c)
}

func hasAssignment(c *Context) bool {
	if c.Disp == nil {
		return false
	}
	_, ok := c.Disp.Assignment(c.Agent.ID)
	return ok
}

// pickPatrolPoint keeps enforcers near their post, mostly on roads.
func pickPatrolPoint(c *Context) (Vec2, bool) {
	a := c.Agent
	cfg := c.Tuning.Enforcer
	radius := cfg.WanderRadiusTiles * c.TileSize()
	if world.RandomFloat(c.RT.RNG()) < cfg.RoadBias {
		if p, ok := c.RT.RandomPointNear(a.Enforcer.Post, radius, func(cell world.Cell) bool {
			return cell.Kind == world.CellPreferred
		}); ok {
			return p, true
		}
	}
	if p, ok := c.RT.RandomPointNear(a.Enforcer.Post, radius, nil); ok {
		return p, false
	}
	return a.Enforcer.Post, true
}

// recoverEnforcer snaps a stuck enforcer back onto a road and drops the leg
// it could not finish. An abandoned investigation frees the assignment
// without reporting a result; an abandoned search ends the pursuit.
func recoverEnforcer(c *Context) {
	a := c.Agent
	c.RT.SnapToPreferred(a)
	c.RT.CancelWait(a)
	a.ClearTarget()

	e := a.Enforcer
	switch a.State {
	case state.StateInvestigating:
		if e.Investigation.Done {
			return
		}
		e.Investigation.Done = true
		e.Investigation.Abandoned = true
		if c.Disp != nil {
			c.Disp.Release(a.ID)
		}
	case state.StateGoingToLastKnown:
		e.Searched = true
		e.HasLastKnown = false
	}
}

func enterInvestigation(c *Context) {
	a := c.Agent
	inv := state.Investigation{}
	if c.Disp != nil {
		if asg, ok := c.Disp.Assignment(a.ID); ok {
			inv.Location = asg.Location
			inv.HazardID = asg.HazardID
		}
	}
	a.Enforcer.Investigation = inv
	c.RT.SetDestination(a, inv.Location, true, c.Tick)
}

// tickInvestigation walks to the disturbance. On arrival backup is queued
// only when the evidence is still there and nobody has called it in yet.
func tickInvestigation(c *Context) {
	a := c.Agent
	inv := &a.Enforcer.Investigation
	if inv.Done {
		return
	}
	if !goTo(c, inv.Location, true, speedOr(a.Speed, c.Tuning.Enforcer.Speed)) {
		return
	}
	inv.Arrived = true
	inv.Done = true
	a.ClearTarget()

	hazard, present := c.View.Hazard(inv.HazardID)
	if c.Disp != nil {
		if present && !c.Disp.BackupCalled(hazard.ID) {
			c.Disp.QueueBackup(c.Ctx, c.Tick, a.ID, hazard.Position, hazard.HighPriority, hazard.ID)
		}
		c.Disp.InvestigationResult(c.Ctx, c.Tick, a.ID, inv.Location, present)
		c.Disp.Release(a.ID)
	}
	wait := c.Tuning.Enforcer.InvestigateTicks
	c.RT.Wait(a, wait, wait)
}
