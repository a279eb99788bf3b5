package world

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed layouts/*.txt
var layoutFS embed.FS

// DefaultLayoutName is the embedded town used when no layout file is given.
const DefaultLayoutName = "town"

var ErrEmptyLayout = errors.New("world: empty layout")

// Layout is a parsed town: the grid plus the points of interest the
// simulation seeds agents from.
//
// Legend:
//
//	#  blocked         .  open public space   =  road
//	A-Z building interior (the letter is the building id)
//	c  commerce spot   e  enforcer post       v  vermin nest
//	d  companion spawn p  player spawn
type Layout struct {
	Grid            *Grid
	Buildings       map[string][]TilePos
	Commerce        []TilePos
	EnforcerPosts   []TilePos
	VerminNests     []TilePos
	CompanionSpawns []TilePos
	PlayerSpawn     TilePos
	HasPlayerSpawn  bool
}

// DefaultLayout parses the embedded town.
func DefaultLayout(tileSize float64) (*Layout, error) {
	data, err := layoutFS.ReadFile("layouts/" + DefaultLayoutName + ".txt")
	if err != nil {
		return nil, fmt.Errorf("world: read embedded layout: %w", err)
	}
	return ParseLayout(bytes.NewReader(data), tileSize)
}

// LoadLayout parses a layout file from disk.
func LoadLayout(path string, tileSize float64) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: open layout: %w", err)
	}
	defer f.Close()
	return ParseLayout(f, tileSize)
}

// ParseLayout reads an ASCII town map. Short rows are padded with blocked
// tiles; blank lines are ignored.
func ParseLayout(r io.Reader, tileSize float64) (*Layout, error) {
	scanner := bufio.NewScanner(r)
	var rows []string
	cols := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
		if len(line) > cols {
			cols = len(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("world: read layout: %w", err)
	}
	if len(rows) == 0 || cols == 0 {
		return nil, ErrEmptyLayout
	}

	layout := &Layout{
		Grid:      NewGrid(cols, len(rows), tileSize),
		Buildings: make(map[string][]TilePos),
	}
	for y, line := range rows {
		for x := 0; x < cols; x++ {
			ch := byte(' ')
			if x < len(line) {
				ch = line[x]
			}
			pos := TilePos{X: x, Y: y}
			cell := Cell{Kind: CellOpen}
			switch {
			case ch == '#' || ch == ' ':
				cell.Kind = CellBlocked
			case ch == '.':
			case ch == '=':
				cell.Kind = CellPreferred
			case ch == 'c':
				cell.Kind = CellPreferred
				layout.Commerce = append(layout.Commerce, pos)
			case ch == 'e':
				cell.Kind = CellPreferred
				layout.EnforcerPosts = append(layout.EnforcerPosts, pos)
			case ch == 'v':
				layout.VerminNests = append(layout.VerminNests, pos)
			case ch == 'd':
				layout.CompanionSpawns = append(layout.CompanionSpawns, pos)
			case ch == 'p':
				layout.PlayerSpawn = pos
				layout.HasPlayerSpawn = true
			case ch >= 'A' && ch <= 'Z':
				id := string(ch)
				cell.BuildingID = id
				layout.Buildings[id] = append(layout.Buildings[id], pos)
			default:
				return nil, fmt.Errorf("world: layout row %d col %d: unknown tile %q", y, x, ch)
			}
			layout.Grid.Set(x, y, cell)
		}
	}
	return layout, nil
}

// BuildingIDs lists building ids in sorted order.
func (l *Layout) BuildingIDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.Buildings))
	for id := range l.Buildings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Centers converts tiles to world-space tile centres.
func (l *Layout) Centers(tiles []TilePos) []Vec2 {
	if l == nil || len(tiles) == 0 {
		return nil
	}
	out := make([]Vec2, len(tiles))
	for i, tile := range tiles {
		out[i] = l.Grid.TileCenter(tile.X, tile.Y)
	}
	return out
}

// BuildingCenters maps each building id to its interior tile centres.
func (l *Layout) BuildingCenters() map[string][]Vec2 {
	if l == nil {
		return nil
	}
	out := make(map[string][]Vec2, len(l.Buildings))
	for id, tiles := range l.Buildings {
		out[id] = l.Centers(tiles)
	}
	return out
}
