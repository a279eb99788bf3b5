// Package sim owns the authoritative town simulation: agent registries, the
// per-tick step ordering and the host operations applied between ticks.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/gglang/the-voices-sub000/internal/ai"
	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/dispatch"
	"github.com/gglang/the-voices-sub000/internal/schedule"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/internal/threat"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/lifecycle"
	"github.com/gglang/the-voices-sub000/logging/simulation"
)

var (
	ErrUnknownAgent      = errors.New("sim: unknown agent")
	ErrUnsupportedAction = ai.ErrUnsupportedAction
	ErrNoGrid            = errors.New("sim: engine needs a grid or layout")
)

const (
	metricAgents        = "sim_agents"
	metricHazards       = "sim_hazards"
	metricPlansFailed   = "sim_plans_failed_total"
	metricBackupArrived = "sim_backup_waves_total"
)

// Config wires an Engine. Layout wins over Grid when both are set.
type Config struct {
	Tuning    config.Tuning
	Layout    *world.Layout
	Grid      *world.Grid
	Seed      string
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
}

// Engine is single-threaded. Callers outside the tick goroutine go through
// Loop, which serialises access.
type Engine struct {
	tuning    config.Tuning
	layout    *world.Layout
	grid      *world.Grid
	obstacles *world.ObstacleIndex
	rng       *rand.Rand
	sched     *schedule.Scheduler
	runtime   *ai.Runtime
	threat    *threat.Coordinator
	dispatch  *dispatch.Coordinator
	machine   *ai.Machine
	pub       logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics

	tick     uint64
	agents   map[string]*state.Agent
	order    []string
	hazards  []state.Hazard
	player   state.PlayerSnapshot
	counters map[state.AgentKind]int
	hazardN  int

	stepping bool
	pending  []*state.Agent

	failed   bool
	caughtBy string
}

func NewEngine(cfg Config) (*Engine, error) {
	tuning := cfg.Tuning.Normalized()
	grid := cfg.Grid
	if cfg.Layout != nil {
		grid = cfg.Layout.Grid
	}
	if grid == nil {
		return nil, ErrNoGrid
	}
	seed := world.NormalizeSeed(cfg.Seed)
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewCounters()
	}

	e := &Engine{
		tuning:   tuning,
		layout:   cfg.Layout,
		grid:     grid,
		rng:      world.NewDeterministicRNG(seed, "engine"),
		sched:    schedule.New(),
		pub:      pub,
		logger:   logger,
		metrics:  metrics,
		agents:   make(map[string]*state.Agent),
		counters: make(map[state.AgentKind]int),
	}
	e.rebuildObstacles()

	planner := world.Planner{
		MaxExpansions:    tuning.Planner.MaxExpansions,
		NearTiles:        tuning.Planner.NearTiles,
		GoalSearchRadius: tuning.Planner.GoalSearchRadius,
		OffRoadPenalty:   tuning.Planner.OffRoadPenalty,
	}
	e.runtime = ai.NewRuntime(grid, planner, e.sched, world.NewDeterministicRNG(seed, "runtime"), tuning.Movement)
	e.threat = threat.New(tuning.Threat, e.sched, pub)
	e.dispatch = dispatch.New(tuning.Dispatch, pub)
	e.machine = ai.NewMachine(ai.Deps{
		Runtime:   e.runtime,
		Threat:    e.threat,
		Dispatch:  e.dispatch,
		Publisher: pub,
		Tuning:    tuning,
		OnCaught:  e.onCaught,
	})
	return e, nil
}

func (e *Engine) Tick() uint64 { return e.tick }

func (e *Engine) Grid() *world.Grid { return e.grid }

func (e *Engine) Tuning() config.Tuning { return e.tuning }

func (e *Engine) Threat() *threat.Coordinator { return e.threat }

func (e *Engine) Dispatch() *dispatch.Coordinator { return e.dispatch }

func (e *Engine) Scheduler() *schedule.Scheduler { return e.sched }

// Failed reports whether an enforcer has caught the player.
func (e *Engine) Failed() bool { return e.failed }

// Agent returns a live agent by id.
func (e *Engine) Agent(id string) (*state.Agent, bool) {
	a, ok := e.agents[id]
	return a, ok
}

// Step advances the world by one tick. Agents spawned during the step
// (backup waves included) are registered afterwards and first act next tick.
func (e *Engine) Step(ctx context.Context) {
	e.tick++
	e.sched.Poll(e.tick)
	view := e.view()

	e.stepping = true
	if arrived := e.dispatch.ProcessQueue(ctx, e.tick, dispatch.SpawnerFunc(e.spawnBackup)); len(arrived) > 0 {
		e.metrics.Add(metricBackupArrived, uint64(len(arrived)))
	}
	for _, id := range e.order {
		agent := e.agents[id]
		if agent == nil || !agent.Active() {
			continue
		}
		e.machine.Update(ctx, agent, view)
	}
	e.stepping = false
	e.flushSpawns()

	if plans, failed := e.runtime.PlanStats(); failed > 0 {
		e.metrics.Add(metricPlansFailed, uint64(failed))
		simulation.PlanningExhausted(ctx, e.pub, e.tick, simulation.PlanningExhaustedPayload{
			Failed: failed,
			Total:  plans,
		}, nil)
	}
	e.metrics.Store(metricAgents, uint64(len(e.agents)))
	e.metrics.Store(metricHazards, uint64(len(e.hazards)))
}

// view builds the immutable per-tick world handed to every agent.
func (e *Engine) view() *ai.WorldView {
	player := e.player
	player.PerformingIllicitAct = e.threat.PerformingIllicitAct()
	v := &ai.WorldView{
		Tick:      e.tick,
		Grid:      e.grid,
		Obstacles: e.obstacles,
		Player:    player,
		Agents:    make([]state.AgentSnapshot, 0, len(e.order)),
		Hazards:   append([]state.Hazard(nil), e.hazards...),
	}
	for _, id := range e.order {
		v.Agents = append(v.Agents, e.agents[id].Snapshot())
	}
	if e.layout != nil {
		v.Buildings = e.layout.BuildingCenters()
		v.Commerce = e.layout.Centers(e.layout.Commerce)
	}
	return v
}

func (e *Engine) onCaught(ctx context.Context, enforcerID string, tick uint64) {
	if e.failed {
		return
	}
	e.failed = true
	e.caughtBy = enforcerID
	e.logger.Printf("player caught by %s at tick %d", enforcerID, tick)
}

// Kill removes an agent and leaves its body behind as evidence. Every timer
// the agent owned is cancelled.
func (e *Engine) Kill(ctx context.Context, id string) (state.Hazard, error) {
	agent, ok := e.agents[id]
	if !ok {
		return state.Hazard{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	body := e.AddHazard(state.Hazard{
		ID:           "body-" + id,
		Kind:         state.HazardBody,
		Position:     agent.Position,
		HighPriority: agent.Kind == state.KindEnforcer,
	})
	e.detach(ctx, agent, "killed", body.ID)
	return body, nil
}

// Remove takes an agent out of the world without leaving evidence.
func (e *Engine) Remove(ctx context.Context, id string) error {
	agent, ok := e.agents[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	e.detach(ctx, agent, "removed", "")
	return nil
}

func (e *Engine) detach(ctx context.Context, agent *state.Agent, reason, hazardID string) {
	cancelled := e.sched.CancelOwner(agent.ID)
	e.dispatch.Release(agent.ID)
	agent.Alive = false
	agent.State = state.StateRemoved
	agent.ClearTarget()
	delete(e.agents, agent.ID)
	e.reindex()
	lifecycle.AgentRemoved(ctx, e.pub, e.tick, logging.AgentRef(agent.ID), lifecycle.AgentRemovedPayload{
		Kind:   agent.Kind.String(),
		Reason: reason,
		Timers: cancelled,
		Hazard: hazardID,
	}, nil)
}

// AddHazard places a body or broken door. An empty id is generated.
func (e *Engine) AddHazard(h state.Hazard) state.Hazard {
	if h.ID == "" {
		e.hazardN++
		h.ID = fmt.Sprintf("%s-%d", h.Kind, e.hazardN)
	}
	for i := range e.hazards {
		if e.hazards[i].ID == h.ID {
			e.hazards[i] = h
			return h
		}
	}
	e.hazards = append(e.hazards, h)
	return h
}

// RemoveHazard clears evidence, e.g. a hidden body or a repaired door.
func (e *Engine) RemoveHazard(id string) bool {
	for i := range e.hazards {
		if e.hazards[i].ID == id {
			e.hazards = append(e.hazards[:i], e.hazards[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) Hazards() []state.Hazard {
	return append([]state.Hazard(nil), e.hazards...)
}

// SetPlayer replaces the player snapshot agents perceive. The illicit act
// flag is owned by the threat coordinator and ignored here.
func (e *Engine) SetPlayer(p state.PlayerSnapshot) {
	p.PerformingIllicitAct = false
	e.player = p
}

// FlagIllicitAct marks the player as doing something witnesses would report.
func (e *Engine) FlagIllicitAct() {
	e.threat.FlagIllicitAct(e.tick)
}

// Perform applies a player action to one agent.
func (e *Engine) Perform(action ai.ActionKind, agentID string) error {
	agent, ok := e.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return ai.Apply(agent, action)
}

// SetCell edits the grid between ticks, e.g. to open or break a door.
func (e *Engine) SetCell(x, y int, cell world.Cell) bool {
	if !e.grid.Set(x, y, cell) {
		return false
	}
	e.rebuildObstacles()
	return true
}

func (e *Engine) rebuildObstacles() {
	e.obstacles = world.NewObstacleIndex(world.ObstaclesFromGrid(e.grid), e.grid.TileSize())
}

func (e *Engine) reindex() {
	e.order = e.order[:0]
	for id := range e.agents {
		e.order = append(e.order, id)
	}
	sort.Strings(e.order)
}
