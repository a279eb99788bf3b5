package ai

import (
	"context"
	"sort"
	"testing"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/dispatch"
	"github.com/gglang/the-voices-sub000/internal/schedule"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/threat"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging/sinks"
)

// harness is a minimal tick loop around the machine for behaviour tests.
type harness struct {
	t       *testing.T
	tick    uint64
	tuning  config.Tuning
	grid    *world.Grid
	sched   *schedule.Scheduler
	rt      *Runtime
	threat  *threat.Coordinator
	disp    *dispatch.Coordinator
	machine *Machine
	events  *sinks.MemorySink

	agents  map[string]*state.Agent
	player  state.PlayerSnapshot
	hazards []state.Hazard
	caught  []string
}

func openGrid(cols, rows int) *world.Grid {
	return world.NewGrid(cols, rows, world.DefaultTileSize)
}

func newHarness(t *testing.T, grid *world.Grid, tuning config.Tuning) *harness {
	t.Helper()
	tuning = tuning.Normalized()
	h := &harness{
		t:      t,
		tuning: tuning,
		grid:   grid,
		sched:  schedule.New(),
		events: sinks.NewMemorySink(),
		agents: make(map[string]*state.Agent),
	}
	h.rt = NewRuntime(grid, world.DefaultPlanner(), h.sched, world.NewDeterministicRNG("harness", t.Name()), tuning.Movement)
	h.threat = threat.New(tuning.Threat, h.sched, h.events)
	h.disp = dispatch.New(tuning.Dispatch, h.events)
	h.machine = NewMachine(Deps{
		Runtime:   h.rt,
		Threat:    h.threat,
		Dispatch:  h.disp,
		Publisher: h.events,
		Tuning:    tuning,
		OnCaught: func(_ context.Context, id string, _ uint64) {
			h.caught = append(h.caught, id)
		},
	})
	return h
}

func (h *harness) add(id string, kind state.AgentKind, x, y int) *state.Agent {
	a := state.NewAgent(id, kind, h.grid.TileCenter(x, y))
	h.agents[id] = a
	return a
}

func (h *harness) ids() []string {
	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *harness) view() *WorldView {
	v := &WorldView{
		Tick:      h.tick,
		Grid:      h.grid,
		Obstacles: world.NewObstacleIndex(world.ObstaclesFromGrid(h.grid), h.grid.TileSize()),
		Player:    h.player,
		Hazards:   append([]state.Hazard(nil), h.hazards...),
	}
	for _, id := range h.ids() {
		v.Agents = append(v.Agents, h.agents[id].Snapshot())
	}
	return v
}

func (h *harness) step() {
	h.tick++
	h.sched.Poll(h.tick)
	v := h.view()
	for _, id := range h.ids() {
		h.machine.Update(context.Background(), h.agents[id], v)
	}
}

// runUntil steps until cond holds, failing after max ticks.
func (h *harness) runUntil(max int, cond func() bool) int {
	h.t.Helper()
	for i := 1; i <= max; i++ {
		h.step()
		if cond() {
			return i
		}
	}
	h.t.Fatalf("condition not met within %d ticks", max)
	return 0
}
