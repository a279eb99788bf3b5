package world

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultLayoutParses(t *testing.T) {
	layout, err := DefaultLayout(DefaultTileSize)
	if err != nil {
		t.Fatalf("expected default layout, got %v", err)
	}
	if layout.Grid.Cols() != 40 || layout.Grid.Rows() != 17 {
		t.Fatalf("expected 40x17 grid, got %dx%d", layout.Grid.Cols(), layout.Grid.Rows())
	}
	if ids := layout.BuildingIDs(); strings.Join(ids, "") != "ABCDE" {
		t.Fatalf("expected buildings ABCDE, got %v", ids)
	}
	if len(layout.Commerce) != 2 {
		t.Fatalf("expected 2 commerce spots, got %d", len(layout.Commerce))
	}
	if len(layout.EnforcerPosts) != 3 {
		t.Fatalf("expected 3 enforcer posts, got %d", len(layout.EnforcerPosts))
	}
	if len(layout.VerminNests) != 3 || len(layout.CompanionSpawns) != 2 {
		t.Fatalf("unexpected spawns: vermin=%d companions=%d", len(layout.VerminNests), len(layout.CompanionSpawns))
	}
	if !layout.HasPlayerSpawn {
		t.Fatalf("expected player spawn")
	}
	for _, post := range layout.EnforcerPosts {
		if kind := layout.Grid.CellAt(post.X, post.Y).Kind; kind != CellPreferred {
			t.Fatalf("expected enforcer post on road, got %s", kind)
		}
	}
}

func TestParseLayoutCells(t *testing.T) {
	layout, err := ParseLayout(strings.NewReader("#.=\nAc\n"), 16)
	if err != nil {
		t.Fatalf("expected layout, got %v", err)
	}
	grid := layout.Grid
	if grid.TileSize() != 16 {
		t.Fatalf("expected tile size 16, got %v", grid.TileSize())
	}
	if grid.CellAt(0, 0).Kind != CellBlocked || grid.CellAt(1, 0).Kind != CellOpen || grid.CellAt(2, 0).Kind != CellPreferred {
		t.Fatalf("unexpected first row cells")
	}
	if cell := grid.CellAt(0, 1); cell.BuildingID != "A" || !cell.Walkable() {
		t.Fatalf("expected walkable building tile, got %+v", cell)
	}
	if cell := grid.CellAt(2, 1); cell.Kind != CellBlocked {
		t.Fatalf("expected padded tile to be blocked, got %+v", cell)
	}
	if cell := grid.CellAt(-1, 0); cell.Kind != CellBlocked {
		t.Fatalf("expected out of bounds to be blocked, got %+v", cell)
	}
}

func TestParseLayoutErrors(t *testing.T) {
	if _, err := ParseLayout(strings.NewReader("\n\n"), 0); !errors.Is(err, ErrEmptyLayout) {
		t.Fatalf("expected ErrEmptyLayout, got %v", err)
	}
	if _, err := ParseLayout(strings.NewReader("#?#"), 0); err == nil {
		t.Fatalf("expected error for unknown tile")
	}
}

func TestObstaclesFromGridMergesRuns(t *testing.T) {
	layout, err := ParseLayout(strings.NewReader("###.#\n.....\n"), 10)
	if err != nil {
		t.Fatalf("expected layout, got %v", err)
	}
	obstacles := ObstaclesFromGrid(layout.Grid)
	if len(obstacles) != 2 {
		t.Fatalf("expected 2 merged obstacles, got %d", len(obstacles))
	}
	if obstacles[0].Width != 30 || obstacles[1].X != 40 {
		t.Fatalf("unexpected obstacles %+v", obstacles)
	}
}

func TestNearestWalkableFilters(t *testing.T) {
	grid := NewGrid(7, 7, DefaultTileSize)
	grid.Set(6, 3, Cell{Kind: CellPreferred})
	x, y, ok := grid.NearestWalkable(3, 3, 3, func(c Cell) bool { return c.Kind == CellPreferred })
	if !ok || x != 6 || y != 3 {
		t.Fatalf("expected road tile (6,3), got (%d,%d) ok=%v", x, y, ok)
	}
	if _, _, ok := grid.NearestWalkable(3, 3, 2, func(c Cell) bool { return c.Kind == CellPreferred }); ok {
		t.Fatalf("expected no road within radius 2")
	}
}
