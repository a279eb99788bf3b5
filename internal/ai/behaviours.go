package ai

import (
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/detection"
)

// wanderLeg walks to a target chosen by pick, pauses for a random wait on
// arrival, then lets the next call choose again.
func wanderLeg(c *Context, pick func(*Context) (Vec2, bool), speed float64, waitMin, waitMax uint64) {
	a := c.Agent
	if a.Blackboard.Waiting {
		return
	}
	if !a.HasTarget {
		target, preferRoads := pick(c)
		c.RT.SetDestination(a, target, preferRoads, c.Tick)
		return
	}
	if c.RT.Follow(a, speed) {
		a.ClearTarget()
		c.RT.Wait(a, waitMin, waitMax)
	}
}

// fleeLeg runs from threat. A fresh escape point is chosen whenever the
// agent has none or reaches the previous one.
func fleeLeg(c *Context, threatPos Vec2, distance, speed float64) {
	a := c.Agent
	if !a.HasTarget {
		c.RT.SetDestination(a, c.RT.FleeTarget(a.Position, threatPos, distance), false, c.Tick)
		return
	}
	if c.RT.Follow(a, speed) {
		a.ClearTarget()
	}
}

// goTo keeps a route to dest alive, re-planning if recovery dropped it.
func goTo(c *Context, dest Vec2, preferRoads bool, speed float64) bool {
	a := c.Agent
	if !a.HasTarget {
		c.RT.SetDestination(a, dest, preferRoads, c.Tick)
	}
	return c.RT.Follow(a, speed)
}

// reportHazards turns visible, unreported bodies and broken doors into
// dispatch reports.
func reportHazards(c *Context, radius float64) {
	if c.Disp == nil {
		return
	}
	a := c.Agent
	for _, h := range c.View.VisibleHazards(a.Position, radius) {
		if c.Disp.Reported(h.ID) {
			continue
		}
		ev := state.DetectionEvent{
			WitnessID:       a.ID,
			WitnessPosition: a.Position,
			SubjectPosition: h.Position,
			Kind:            state.DetectionKindFor(h.Kind),
			HazardID:        h.ID,
		}
		if c.Disp.Report(c.Ctx, c.Tick, ev, c.View.Enforcers()) {
			detection.HazardReported(c.Ctx, c.Pub, c.Tick, logging.AgentRef(a.ID), h.ID, detection.HazardReportedPayload{
				Kind: ev.Kind.String(),
				X:    h.Position.X,
				Y:    h.Position.Y,
			}, nil)
		}
	}
}

// witnessIllicitAct identifies the player when the act is visible within
// radius.
func witnessIllicitAct(c *Context, radius float64) {
	if c.Threat == nil || !c.View.Player.PerformingIllicitAct {
		return
	}
	a := c.Agent
	if c.View.PlayerVisibleFrom(a.Position, radius) {
		c.Threat.MarkIdentified(c.Ctx, c.Tick, a.Position, a.ID)
	}
}

func identified(c *Context) bool {
	return c.Threat != nil && c.Threat.Identified()
}

func captured(c *Context) bool {
	s := c.Agent.Social()
	return s != nil && s.Captured
}

func waitOver(c *Context) bool {
	return !c.Agent.Blackboard.Waiting && c.Tick > c.Agent.Blackboard.StateEnteredTick
}

// recoverNewTarget is the civilian and companion stuck escalation: drop the
// route entirely so the state picks somewhere else next tick.
func recoverNewTarget(c *Context) {
	c.RT.CancelWait(c.Agent)
	c.Agent.ClearTarget()
}
