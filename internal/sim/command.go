package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gglang/the-voices-sub000/internal/ai"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
)

// CommandType enumerates the host operations staged between ticks.
type CommandType string

const (
	CommandSetPlayer    CommandType = "SetPlayer"
	CommandIllicitAct   CommandType = "IllicitAct"
	CommandAction       CommandType = "Action"
	CommandKill         CommandType = "Kill"
	CommandAddHazard    CommandType = "AddHazard"
	CommandRemoveHazard CommandType = "RemoveHazard"
	CommandSetCell      CommandType = "SetCell"
)

var ErrBadCommand = errors.New("sim: malformed command")

// PlayerCommand moves or hides the player.
type PlayerCommand struct {
	Present          bool    `json:"present"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	CarryingEvidence bool    `json:"carryingEvidence"`
}

// ActionCommand applies a player action (lure, capture, release) to an agent.
type ActionCommand struct {
	Name    string `json:"name"`
	AgentID string `json:"agentId"`
}

// HazardCommand places or clears evidence.
type HazardCommand struct {
	ID           string  `json:"id,omitempty"`
	Kind         string  `json:"kind,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HighPriority bool    `json:"highPriority,omitempty"`
}

// CellCommand edits one grid tile.
type CellCommand struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Kind       string `json:"kind"`
	BuildingID string `json:"buildingId,omitempty"`
}

// Command is an intent captured for processing before the next tick.
type Command struct {
	OriginTick uint64         `json:"originTick"`
	Type       CommandType    `json:"type"`
	IssuedAt   time.Time      `json:"issuedAt"`
	AgentID    string         `json:"agentId,omitempty"`
	Player     *PlayerCommand `json:"player,omitempty"`
	Action     *ActionCommand `json:"action,omitempty"`
	Hazard     *HazardCommand `json:"hazard,omitempty"`
	Cell       *CellCommand   `json:"cell,omitempty"`
}

// Apply runs staged commands in order. A failing command does not stop the
// rest; all failures are joined into the returned error.
func (e *Engine) Apply(ctx context.Context, cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		if err := e.apply(ctx, cmd); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cmd.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) apply(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandSetPlayer:
		if cmd.Player == nil {
			return ErrBadCommand
		}
		e.SetPlayer(state.PlayerSnapshot{
			Present:          cmd.Player.Present,
			Position:         world.Vec2{X: cmd.Player.X, Y: cmd.Player.Y},
			CarryingEvidence: cmd.Player.CarryingEvidence,
		})
	case CommandIllicitAct:
		e.FlagIllicitAct()
	case CommandAction:
		if cmd.Action == nil {
			return ErrBadCommand
		}
		kind, ok := ai.ParseActionKind(cmd.Action.Name)
		if !ok {
			return fmt.Errorf("%w: unknown action %q", ErrBadCommand, cmd.Action.Name)
		}
		return e.Perform(kind, cmd.Action.AgentID)
	case CommandKill:
		_, err := e.Kill(ctx, cmd.AgentID)
		return err
	case CommandAddHazard:
		if cmd.Hazard == nil {
			return ErrBadCommand
		}
		kind, ok := state.ParseHazardKind(cmd.Hazard.Kind)
		if !ok {
			return fmt.Errorf("%w: unknown hazard kind %q", ErrBadCommand, cmd.Hazard.Kind)
		}
		e.AddHazard(state.Hazard{
			ID:           cmd.Hazard.ID,
			Kind:         kind,
			Position:     world.Vec2{X: cmd.Hazard.X, Y: cmd.Hazard.Y},
			HighPriority: cmd.Hazard.HighPriority,
		})
	case CommandRemoveHazard:
		if cmd.Hazard == nil || !e.RemoveHazard(cmd.Hazard.ID) {
			return ErrBadCommand
		}
	case CommandSetCell:
		if cmd.Cell == nil {
			return ErrBadCommand
		}
		kind, ok := parseCellKind(cmd.Cell.Kind)
		if !ok {
			return fmt.Errorf("%w: unknown cell kind %q", ErrBadCommand, cmd.Cell.Kind)
		}
		if !e.SetCell(cmd.Cell.X, cmd.Cell.Y, world.Cell{Kind: kind, BuildingID: cmd.Cell.BuildingID}) {
			return fmt.Errorf("%w: cell %d,%d out of bounds", ErrBadCommand, cmd.Cell.X, cmd.Cell.Y)
		}
	default:
		return fmt.Errorf("%w: unknown type", ErrBadCommand)
	}
	return nil
}

func parseCellKind(name string) (world.CellKind, bool) {
	for _, kind := range []world.CellKind{world.CellOpen, world.CellBlocked, world.CellPreferred} {
		if kind.String() == name {
			return kind, true
		}
	}
	return 0, false
}
