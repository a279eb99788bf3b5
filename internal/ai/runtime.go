package ai

import (
	"math"
	"math/rand"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/schedule"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

// fleeAngles are tried in order when the direct escape route is blocked.
var fleeAngles = [...]float64{0, math.Pi / 4, -math.Pi / 4, math.Pi / 2, -math.Pi / 2, 3 * math.Pi / 4, -3 * math.Pi / 4}

// Runtime holds the movement primitives every behaviour shares: path
// following, wait timers, stuck detection and recovery helpers.
type Runtime struct {
	grid    *world.Grid
	planner world.Planner
	sched   *schedule.Scheduler
	rng     *rand.Rand
	cfg     config.Movement

	plans       int
	failedPlans int
}

func NewRuntime(grid *world.Grid, planner world.Planner, sched *schedule.Scheduler, rng *rand.Rand, cfg config.Movement) *Runtime {
	if rng == nil {
		rng = world.NewDeterministicRNG(world.DefaultSeed, "runtime")
	}
	if sched == nil {
		sched = schedule.New()
	}
	return &Runtime{
		grid:    grid,
		planner: planner,
		sched:   sched,
		rng:     rng,
		cfg:     config.Tuning{Movement: cfg}.Normalized().Movement,
	}
}

func (r *Runtime) Grid() *world.Grid { return r.grid }

func (r *Runtime) RNG() *rand.Rand { return r.rng }

func (r *Runtime) Scheduler() *schedule.Scheduler { return r.sched }

// PlanStats returns the number of plans and empty plans since the last call.
func (r *Runtime) PlanStats() (plans, failed int) {
	plans, failed = r.plans, r.failedPlans
	r.plans, r.failedPlans = 0, 0
	return plans, failed
}

// SetDestination plans a simplified route to target. An empty plan is not
// an error: the agent steers straight at the target and the stuck ladder
// retries later.
func (r *Runtime) SetDestination(a *state.Agent, target Vec2, preferRoads bool, tick uint64) bool {
	a.Target = target
	a.HasTarget = true
	a.Blackboard.Arrived = false
	r.plans++
	path := r.planner.FindPath(a.Position, target, r.grid, preferRoads)
	if len(path) == 0 {
		r.failedPlans++
		a.Path.Install(nil, target, preferRoads, tick)
		return false
	}
	a.Path.Install(world.SimplifyPath(path), target, preferRoads, tick)
	return true
}

// Replan recomputes the route to the current target.
func (r *Runtime) Replan(a *state.Agent, tick uint64) bool {
	if !a.HasTarget {
		return false
	}
	return r.SetDestination(a, a.Target, a.Path.PreferRoads, tick)
}

// ReplanIfDue retargets a moving pursuit. The route is recomputed at most
// every ChaseReplanTicks; in between only the steering target moves.
func (r *Runtime) ReplanIfDue(a *state.Agent, target Vec2, preferRoads bool, tick uint64) bool {
	if !a.HasTarget || tick >= a.Path.RecalcTick+uint64(r.cfg.ChaseReplanTicks) {
		return r.SetDestination(a, target, preferRoads, tick)
	}
	a.Target = target
	return false
}

// Follow moves a towards its current waypoint, or towards its target once the
// route is exhausted. It reports true when the agent is within ArriveRadius of
// the target with no waypoints left.
func (r *Runtime) Follow(a *state.Agent, speed float64) bool {
	if !a.HasTarget || a.Blackboard.Waiting {
		return false
	}
	for {
		wp, ok := a.Path.Current()
		if !ok || world.Distance(a.Position, wp) > r.cfg.WaypointRadius {
			break
		}
		a.Path.Advance()
	}
	if r.arrived(a) {
		return true
	}

	steer := a.Target
	if wp, ok := a.Path.Current(); ok {
		steer = wp
	}
	delta := steer.Sub(a.Position)
	dist := delta.Len()
	if dist > 0 && speed > 0 {
		if dist > speed {
			delta = delta.Scale(speed / dist)
		}
		r.move(a, delta)
	}
	return r.arrived(a)
}

func (r *Runtime) arrived(a *state.Agent) bool {
	if a.Path.Active() || world.Distance(a.Position, a.Target) > r.cfg.ArriveRadius {
		return false
	}
	a.Blackboard.Arrived = true
	a.Blackboard.ResetStuck()
	return true
}

// move applies delta one axis at a time so agents slide along walls. Agents
// standing on a blocked tile (a door closed on them) may always move.
func (r *Runtime) move(a *state.Agent, delta Vec2) {
	if r.grid == nil || !r.grid.WalkableAt(a.Position) {
		a.Position = a.Position.Add(delta)
		return
	}
	if delta.X != 0 {
		next := Vec2{X: a.Position.X + delta.X, Y: a.Position.Y}
		if r.grid.WalkableAt(next) {
			a.Position = next
		}
	}
	if delta.Y != 0 {
		next := Vec2{X: a.Position.X, Y: a.Position.Y + delta.Y}
		if r.grid.WalkableAt(next) {
			a.Position = next
		}
	}
}

// Wait pauses a for a random number of ticks in [min, max]. Any previous wait
// is cancelled.
func (r *Runtime) Wait(a *state.Agent, min, max uint64) {
	r.CancelWait(a)
	delay := world.RandomTicks(r.rng, min, max)
	bb := &a.Blackboard
	bb.Waiting = true
	id := r.sched.After(a.ID, delay, "wait", func(uint64) {
		bb.Waiting = false
		bb.WaitTask = 0
	})
	bb.WaitTask = uint64(id)
}

// CancelWait ends a pending wait early.
func (r *Runtime) CancelWait(a *state.Agent) {
	bb := &a.Blackboard
	if bb.WaitTask != 0 {
		r.sched.Cancel(schedule.TaskID(bb.WaitTask))
	}
	bb.WaitTask = 0
	bb.Waiting = false
}

// TrackStuck runs once per update after movement. Displacement below
// StuckEpsilon while the agent has somewhere to go counts towards a stuck
// episode; each episode replans the route. It reports true when
// StuckEscalateEpisodes episodes have accumulated, after which the caller
// must pick a new target or relocate the agent.
func (r *Runtime) TrackStuck(a *state.Agent, tick uint64) bool {
	bb := &a.Blackboard
	moved := world.Distance(a.Position, bb.LastPos)
	bb.LastPos = a.Position

	if !a.HasTarget || bb.Waiting || bb.Arrived {
		bb.StuckTicks = 0
		return false
	}
	if moved >= r.cfg.StuckEpsilon {
		bb.StuckTicks = 0
		return false
	}
	bb.StuckTicks++
	if bb.StuckTicks < r.cfg.StuckTimeoutTicks {
		return false
	}
	bb.StuckTicks = 0
	bb.StuckEpisodes++
	bb.StuckCount++
	if bb.StuckEpisodes >= r.cfg.StuckEscalateEpisodes {
		bb.StuckEpisodes = 0
		return true
	}
	r.Replan(a, tick)
	return false
}

// SnapToPreferred moves a onto the nearest road tile centre within
// SnapRadius. It reports false when no road is in range.
func (r *Runtime) SnapToPreferred(a *state.Agent) bool {
	if r.grid == nil {
		return false
	}
	x, y := r.grid.TileOf(a.Position)
	isRoad := func(c world.Cell) bool { return c.Kind == world.CellPreferred }
	if !isRoad(r.grid.CellAt(x, y)) {
		var ok bool
		x, y, ok = r.grid.NearestWalkable(x, y, r.cfg.SnapRadius, isRoad)
		if !ok {
			return false
		}
	}
	a.Position = r.grid.TileCenter(x, y)
	a.Blackboard.LastPos = a.Position
	a.Path.Clear()
	return true
}

// FleeTarget picks a walkable point roughly distance away from threat. When
// the direct line is blocked it tries rotated headings, then half distance.
func (r *Runtime) FleeTarget(from, threat Vec2, distance float64) Vec2 {
	dir := from.Sub(threat).Normalized()
	if dir == (Vec2{}) {
		angle := world.RandomAngle(r.rng)
		dir = Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
	}
	if r.grid == nil {
		return from.Add(dir.Scale(distance))
	}
	for _, scale := range [...]float64{1, 0.5} {
		for _, angle := range fleeAngles {
			candidate := from.Add(dir.Rotate(angle).Scale(distance * scale))
			if r.grid.WalkableAt(candidate) {
				return candidate
			}
		}
	}
	return from
}

// RandomPointNear picks a walkable tile centre within radius of center that
// satisfies pred, falling back to center.
func (r *Runtime) RandomPointNear(center Vec2, radius float64, pred func(world.Cell) bool) (Vec2, bool) {
	if r.grid == nil {
		return center, false
	}
	return world.RandomWalkableNear(r.grid, r.rng, center, radius, 24, pred)
}
