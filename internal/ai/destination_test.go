package ai

import (
	"context"
	"math"
	"testing"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

const destinationDraws = 4000

func expectShare(t *testing.T, name string, count int, want, tolerance float64) {
	t.Helper()
	got := float64(count) / destinationDraws
	if math.Abs(got-want) > tolerance {
		t.Fatalf("expected %s share %.2f±%.3f, got %.3f", name, want, tolerance, got)
	}
}

func TestCivilianDestinationSplit(t *testing.T) {
	grid := openGrid(30, 30)
	grid.Set(1, 1, world.Cell{Kind: world.CellOpen, BuildingID: "home"})
	grid.Set(28, 28, world.Cell{Kind: world.CellOpen, BuildingID: "shop"})
	h := newHarness(t, grid, config.Default())
	civ := h.add("c1", state.KindCivilian, 15, 15)
	civ.Civilian.HomeBuilding = "home"

	home, shop := grid.TileCenter(1, 1), grid.TileCenter(28, 28)
	v := h.view()
	v.Buildings = map[string][]Vec2{"home": {home}}
	v.Commerce = []Vec2{shop}
	c := h.machine.context(context.Background(), civ, v)

	var homes, public, commerce int
	for i := 0; i < destinationDraws; i++ {
		p, roads := pickCivilianDestination(c)
		switch p {
		case home:
			homes++
		case shop:
			commerce++
		default:
			if !roads {
				t.Fatalf("expected public destinations to prefer roads, got %+v", p)
			}
			if cell := grid.CellAtPos(p); cell.BuildingID != "" {
				t.Fatalf("expected public space, got building %q", cell.BuildingID)
			}
			public++
		}
	}
	expectShare(t, "home", homes, 0.85, 0.03)
	expectShare(t, "public", public, 0.10, 0.025)
	expectShare(t, "commerce", commerce, 0.05, 0.02)
}

func TestCivilianSentHomeSkipsRoll(t *testing.T) {
	grid := openGrid(10, 10)
	grid.Set(1, 1, world.Cell{Kind: world.CellOpen, BuildingID: "home"})
	tuning := config.Default()
	tuning.Civilian.HomeWeight, tuning.Civilian.PublicWeight = 0, 1
	h := newHarness(t, grid, tuning)
	civ := h.add("c1", state.KindCivilian, 5, 5)
	civ.Civilian.HomeBuilding = "home"
	civ.Civilian.ReturnHome = true

	v := h.view()
	v.Buildings = map[string][]Vec2{"home": {grid.TileCenter(1, 1)}}
	c := h.machine.context(context.Background(), civ, v)

	if p, _ := pickCivilianDestination(c); p != grid.TileCenter(1, 1) {
		t.Fatalf("expected home after being sent there, got %+v", p)
	}
	if civ.Civilian.ReturnHome {
		t.Fatalf("expected the return-home flag to be consumed")
	}
}

func TestEnforcerPatrolPrefersRoads(t *testing.T) {
	grid := openGrid(30, 30)
	for y := 0; y < 30; y += 2 {
		for x := 0; x < 30; x++ {
			grid.Set(x, y, world.Cell{Kind: world.CellPreferred})
		}
	}
	h := newHarness(t, grid, config.Default())
	enf := h.add("e1", state.KindEnforcer, 15, 15)
	c := h.machine.context(context.Background(), enf, h.view())

	roads := 0
	for i := 0; i < destinationDraws; i++ {
		p, onRoad := pickPatrolPoint(c)
		if !onRoad {
			continue
		}
		if kind := grid.CellAtPos(p).Kind; kind != world.CellPreferred {
			t.Fatalf("expected a road patrol point, got %s at %+v", kind, p)
		}
		roads++
	}
	expectShare(t, "road", roads, 0.8, 0.03)
}
