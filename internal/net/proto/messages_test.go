package proto

import (
	"encoding/json"
	"testing"

	"github.com/gglang/the-voices-sub000/internal/sim"
	"github.com/gglang/the-voices-sub000/internal/state"
)

func TestClientCommand(t *testing.T) {
	t.Run("player command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{
			Type:             TypePlayer,
			Present:          true,
			X:                12.5,
			Y:                -4,
			CarryingEvidence: true,
		})
		if !ok {
			t.Fatalf("expected player command to be recognized")
		}
		if cmd.Type != sim.CommandSetPlayer {
			t.Fatalf("expected set-player type, got %q", cmd.Type)
		}
		if cmd.Player == nil {
			t.Fatalf("expected player payload")
		}
		if !cmd.Player.Present || cmd.Player.X != 12.5 || cmd.Player.Y != -4 || !cmd.Player.CarryingEvidence {
			t.Fatalf("unexpected player payload: %+v", cmd.Player)
		}
	})

	t.Run("action command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeAction, Action: "lure", AgentID: "civilian-1"})
		if !ok {
			t.Fatalf("expected action command to be recognized")
		}
		if cmd.Action == nil || cmd.Action.Name != "lure" || cmd.Action.AgentID != "civilian-1" {
			t.Fatalf("unexpected action payload: %+v", cmd.Action)
		}
	})

	t.Run("action without target", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeAction, Action: "lure"}); ok {
			t.Fatalf("expected action without agent to be rejected")
		}
	})

	t.Run("hazard commands", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeAddHazard, HazardKind: "body", X: 3, Y: 4})
		if !ok || cmd.Hazard == nil || cmd.Hazard.Kind != "body" {
			t.Fatalf("unexpected add hazard command: %+v", cmd)
		}
		if _, ok := ClientCommand(ClientMessage{Type: TypeRemoveHazard}); ok {
			t.Fatalf("expected remove without id to be rejected")
		}
		cmd, ok = ClientCommand(ClientMessage{Type: TypeRemoveHazard, HazardID: "body-1"})
		if !ok || cmd.Type != sim.CommandRemoveHazard || cmd.Hazard.ID != "body-1" {
			t.Fatalf("unexpected remove hazard command: %+v", cmd)
		}
	})

	t.Run("set cell command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeSetCell, TileX: 2, TileY: 7, CellKind: "blocked"})
		if !ok {
			t.Fatalf("expected set cell to be recognized")
		}
		if cmd.Cell == nil || cmd.Cell.X != 2 || cmd.Cell.Y != 7 || cmd.Cell.Kind != "blocked" {
			t.Fatalf("unexpected cell payload: %+v", cmd.Cell)
		}
	})

	t.Run("heartbeat is not a command", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeHeartbeat}); ok {
			t.Fatalf("expected heartbeat not to map to a command")
		}
	})
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"kill","agentId":"vermin-2","seq":4}`))
	if err != nil {
		t.Fatalf("decode client message: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected default version %d, got %d", Version, msg.Ver)
	}
	if msg.Seq() != 4 {
		t.Fatalf("expected seq 4, got %d", msg.Seq())
	}
	if _, err := DecodeClientMessage([]byte(`{"ver":9,"type":"kill"}`)); err == nil {
		t.Fatalf("expected unsupported version to fail")
	}
	if _, err := DecodeClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}

func TestEncodeCommandReject(t *testing.T) {
	encoded, err := EncodeCommandReject(CommandReject{Seq: 3, Reason: "queue_full", Retry: true})
	if err != nil {
		t.Fatalf("encode reject: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal reject: %v", err)
	}
	if decoded["type"] != typeCommandReject || decoded["reason"] != "queue_full" || decoded["retry"] != true {
		t.Fatalf("unexpected reject frame: %s", encoded)
	}
	if _, ok := decoded["tick"]; ok {
		t.Fatalf("expected zero tick to be omitted")
	}
}

func TestEncodeStateSnapshotSetsVersionAndType(t *testing.T) {
	frame := StateSnapshotV1{
		ServerTime: 1234,
		State: sim.Snapshot{
			Tick: 42,
			Agents: []state.AgentSnapshot{{
				ID:    "enforcer-1",
				Kind:  state.KindEnforcer,
				State: state.StateChasing,
				Alive: true,
			}},
		},
	}
	encoded, err := EncodeStateSnapshot(frame)
	if err != nil {
		t.Fatalf("encode state snapshot: %v", err)
	}
	if frame.Ver != 0 {
		t.Fatalf("expected encode to operate on a copy, got version %d", frame.Ver)
	}

	var decoded struct {
		Ver   int    `json:"ver"`
		Type  string `json:"type"`
		State struct {
			Tick   uint64 `json:"tick"`
			Agents []struct {
				Kind  string `json:"kind"`
				State string `json:"state"`
			} `json:"agents"`
		} `json:"state"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal encoded snapshot: %v", err)
	}
	if decoded.Ver != Version || decoded.Type != TypeState {
		t.Fatalf("expected version %d type %q, got %d %q", Version, TypeState, decoded.Ver, decoded.Type)
	}
	if decoded.State.Tick != 42 {
		t.Fatalf("expected tick 42, got %d", decoded.State.Tick)
	}
	if len(decoded.State.Agents) != 1 || decoded.State.Agents[0].Kind != "enforcer" || decoded.State.Agents[0].State != "chasing" {
		t.Fatalf("expected text-encoded enums, got %+v", decoded.State.Agents)
	}
}
