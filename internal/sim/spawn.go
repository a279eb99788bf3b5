package sim

import (
	"context"
	"fmt"

	"github.com/gglang/the-voices-sub000/internal/dispatch"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/lifecycle"
)

// SpawnOptions customises a new agent. Zero values pick sensible defaults.
type SpawnOptions struct {
	ID           string
	HomeBuilding string
	Backup       bool
	Reason       string
}

// SpawnAgent creates an agent at pos. Agents spawned while a step is running
// join the registry after it and first act on the following tick.
func (e *Engine) SpawnAgent(ctx context.Context, kind state.AgentKind, pos world.Vec2, opts SpawnOptions) (*state.Agent, error) {
	id := opts.ID
	if id == "" {
		id = e.nextID(kind)
	} else if _, exists := e.agents[id]; exists {
		return nil, fmt.Errorf("sim: agent %s already exists", id)
	}

	agent := state.NewAgent(id, kind, pos)
	switch kind {
	case state.KindCivilian:
		agent.Speed, agent.FleeSpeed = e.tuning.Civilian.Speed, e.tuning.Civilian.FleeSpeed
		agent.Civilian.HomeBuilding = opts.HomeBuilding
	case state.KindEnforcer:
		agent.Speed, agent.FleeSpeed = e.tuning.Enforcer.Speed, e.tuning.Enforcer.ChaseSpeed
		agent.Enforcer.Backup = opts.Backup
	case state.KindCompanion:
		agent.Speed, agent.FleeSpeed = e.tuning.Companion.Speed, e.tuning.Companion.FleeSpeed
	case state.KindVermin:
		agent.Speed, agent.FleeSpeed = e.tuning.Vermin.Speed, e.tuning.Vermin.FleeSpeed
	default:
		return nil, fmt.Errorf("sim: cannot spawn %s", kind)
	}

	reason := opts.Reason
	if reason == "" {
		reason = "spawn"
	}
	lifecycle.AgentSpawned(ctx, e.pub, e.tick, logging.AgentRef(id), lifecycle.AgentSpawnedPayload{
		Kind:   kind.String(),
		SpawnX: pos.X,
		SpawnY: pos.Y,
		Reason: reason,
	}, nil)

	if e.stepping {
		e.pending = append(e.pending, agent)
		return agent, nil
	}
	e.register(agent)
	return agent, nil
}

func (e *Engine) nextID(kind state.AgentKind) string {
	for {
		e.counters[kind]++
		id := fmt.Sprintf("%s-%d", kind, e.counters[kind])
		if _, taken := e.agents[id]; !taken && !e.pendingID(id) {
			return id
		}
	}
}

func (e *Engine) pendingID(id string) bool {
	for _, a := range e.pending {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) register(agent *state.Agent) {
	e.agents[agent.ID] = agent
	e.reindex()
}

func (e *Engine) flushSpawns() {
	if len(e.pending) == 0 {
		return
	}
	for _, agent := range e.pending {
		e.agents[agent.ID] = agent
	}
	e.pending = e.pending[:0]
	e.reindex()
}

// spawnBackup drops a wave of enforcers scattered around the entry location.
func (e *Engine) spawnBackup(ctx context.Context, entry dispatch.Entry, count int) []string {
	positions := world.ScatterWalkable(e.grid, e.rng, entry.Location, count, e.dispatch.ScatterRadiusTiles())
	ids := make([]string, 0, len(positions))
	for _, pos := range positions {
		agent, err := e.SpawnAgent(ctx, state.KindEnforcer, pos, SpawnOptions{Backup: true, Reason: "backup"})
		if err != nil {
			e.logger.Printf("backup spawn failed: %v", err)
			continue
		}
		agent.Enforcer.Post = entry.Location
		ids = append(ids, agent.ID)
	}
	return ids
}

// Seed populates the layout: civilians in every building, an enforcer per
// post, companions and vermin at their spawns, and the player if the layout
// has a spawn point.
func (e *Engine) Seed(ctx context.Context) error {
	l := e.layout
	if l == nil {
		return fmt.Errorf("sim: seed: %w", world.ErrEmptyLayout)
	}
	pop := e.tuning.Population
	for _, building := range l.BuildingIDs() {
		tiles := l.Buildings[building]
		for i := 0; i < pop.CiviliansPerBuilding && len(tiles) > 0; i++ {
			tile := tiles[e.rng.Intn(len(tiles))]
			if _, err := e.SpawnAgent(ctx, state.KindCivilian, l.Grid.TileCenter(tile.X, tile.Y), SpawnOptions{HomeBuilding: building, Reason: "seed"}); err != nil {
				return err
			}
		}
	}
	for _, pos := range l.Centers(l.EnforcerPosts) {
		if _, err := e.SpawnAgent(ctx, state.KindEnforcer, pos, SpawnOptions{Reason: "seed"}); err != nil {
			return err
		}
	}
	for _, pos := range l.Centers(l.CompanionSpawns) {
		if _, err := e.SpawnAgent(ctx, state.KindCompanion, pos, SpawnOptions{Reason: "seed"}); err != nil {
			return err
		}
	}
	for _, nest := range l.Centers(l.VerminNests) {
		for i := 0; i < pop.VerminPerNest; i++ {
			if _, err := e.SpawnAgent(ctx, state.KindVermin, nest, SpawnOptions{Reason: "seed"}); err != nil {
				return err
			}
		}
	}
	if l.HasPlayerSpawn {
		e.SetPlayer(state.PlayerSnapshot{Present: true, Position: l.Grid.TileCenter(l.PlayerSpawn.X, l.PlayerSpawn.Y)})
	}
	return nil
}
