package ai

import (
	"testing"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/schedule"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

// corridor is a 10x3 grid whose only open row is y=1.
func corridor() *world.Grid {
	grid := world.NewGrid(10, 3, world.DefaultTileSize)
	for x := 0; x < 10; x++ {
		grid.Set(x, 0, world.Cell{Kind: world.CellBlocked})
		grid.Set(x, 2, world.Cell{Kind: world.CellBlocked})
	}
	return grid
}

func newTestRuntime(grid *world.Grid) *Runtime {
	return NewRuntime(grid, world.DefaultPlanner(), schedule.New(), world.NewDeterministicRNG("runtime-test", "rng"), config.Movement{})
}

func TestRuntimeFollowReachesTarget(t *testing.T) {
	grid := corridor()
	rt := newTestRuntime(grid)
	agent := state.NewAgent("c1", state.KindCivilian, grid.TileCenter(1, 1))

	if !rt.SetDestination(agent, grid.TileCenter(8, 1), false, 0) {
		t.Fatalf("expected a path along the corridor")
	}
	for tick := uint64(1); tick <= 400; tick++ {
		if rt.Follow(agent, 1.2) {
			if !agent.Blackboard.Arrived {
				t.Fatalf("expected arrived flag after reaching target")
			}
			return
		}
		if rt.TrackStuck(agent, tick) {
			t.Fatalf("unexpected stuck escalation at tick %d", tick)
		}
	}
	t.Fatalf("agent never arrived, at %+v", agent.Position)
}

func TestRuntimeStuckEscalatesThenRecovers(t *testing.T) {
	grid := corridor()
	rt := newTestRuntime(grid)
	agent := state.NewAgent("c1", state.KindCivilian, grid.TileCenter(1, 1))
	goal := grid.TileCenter(8, 1)

	rt.SetDestination(agent, goal, false, 0)
	grid.Set(5, 1, world.Cell{Kind: world.CellBlocked})

	escalatedAt := uint64(0)
	for tick := uint64(1); tick <= 400; tick++ {
		rt.Follow(agent, 1.2)
		if rt.TrackStuck(agent, tick) {
			escalatedAt = tick
			break
		}
	}
	if escalatedAt == 0 {
		t.Fatalf("expected stuck escalation while the corridor is blocked")
	}
	if x, _ := grid.TileOf(agent.Position); x >= 5 {
		t.Fatalf("agent walked through the blocked tile, at column %d", x)
	}

	grid.Set(5, 1, world.Cell{Kind: world.CellOpen})
	agent.ClearTarget()
	rt.SetDestination(agent, goal, false, escalatedAt)
	for tick := escalatedAt + 1; tick <= escalatedAt+400; tick++ {
		if rt.Follow(agent, 1.2) {
			return
		}
		rt.TrackStuck(agent, tick)
	}
	t.Fatalf("agent did not reach the goal after the corridor reopened, at %+v", agent.Position)
}

func TestRuntimeWaitUsesScheduler(t *testing.T) {
	sched := schedule.New()
	rt := NewRuntime(corridor(), world.DefaultPlanner(), sched, nil, config.Movement{})
	agent := state.NewAgent("c1", state.KindCivilian, Vec2{X: 48, Y: 48})

	rt.Wait(agent, 5, 5)
	if !agent.Blackboard.Waiting {
		t.Fatalf("expected agent to be waiting")
	}
	sched.Poll(4)
	if !agent.Blackboard.Waiting {
		t.Fatalf("expected wait to last until tick 5")
	}
	sched.Poll(5)
	if agent.Blackboard.Waiting {
		t.Fatalf("expected wait to end at tick 5")
	}

	rt.Wait(agent, 10, 10)
	rt.CancelWait(agent)
	if agent.Blackboard.Waiting || sched.Pending(agent.ID) != 0 {
		t.Fatalf("expected cancelled wait to leave no task, pending=%d", sched.Pending(agent.ID))
	}
}

func TestFleeTargetPointsAwayFromThreat(t *testing.T) {
	grid := world.NewGrid(20, 20, world.DefaultTileSize)
	rt := newTestRuntime(grid)
	from := grid.TileCenter(10, 10)
	threat := grid.TileCenter(8, 10)

	got := rt.FleeTarget(from, threat, 128)
	if got.X <= from.X {
		t.Fatalf("expected flee target east of %v, got %v", from, got)
	}
	if !grid.WalkableAt(got) {
		t.Fatalf("expected walkable flee target, got %v", got)
	}
}

func TestSnapToPreferredMovesOntoRoad(t *testing.T) {
	grid := world.NewGrid(10, 10, world.DefaultTileSize)
	grid.Set(6, 4, world.Cell{Kind: world.CellPreferred})
	rt := newTestRuntime(grid)
	agent := state.NewAgent("e1", state.KindEnforcer, grid.TileCenter(4, 4))

	if !rt.SnapToPreferred(agent) {
		t.Fatalf("expected snap to succeed")
	}
	if agent.Position != grid.TileCenter(6, 4) {
		t.Fatalf("expected position %v, got %v", grid.TileCenter(6, 4), agent.Position)
	}
}
