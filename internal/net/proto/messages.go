package proto

import (
	"encoding/json"
	"fmt"

	"github.com/gglang/the-voices-sub000/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
)

// Client message type identifiers.
const (
	TypePlayer       = "player"
	TypeIllicitAct   = "illicitAct"
	TypeAction       = "action"
	TypeKill         = "kill"
	TypeAddHazard    = "addHazard"
	TypeRemoveHazard = "removeHazard"
	TypeSetCell      = "setCell"
	TypeHeartbeat    = "heartbeat"
)

// TypeState is the outbound snapshot identifier.
const TypeState = typeState

// ClientMessage captures an inbound websocket message from a controller.
type ClientMessage struct {
	Ver        int     `json:"ver,omitempty"`
	Type       string  `json:"type"`
	CommandSeq *uint64 `json:"seq,omitempty"`
	SentAt     int64   `json:"sentAt,omitempty"`

	Present          bool    `json:"present,omitempty"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	CarryingEvidence bool    `json:"carryingEvidence,omitempty"`

	Action       string `json:"action,omitempty"`
	AgentID      string `json:"agentId,omitempty"`
	HazardID     string `json:"hazardId,omitempty"`
	HazardKind   string `json:"hazardKind,omitempty"`
	HighPriority bool   `json:"highPriority,omitempty"`

	TileX      int    `json:"tileX"`
	TileY      int    `json:"tileY"`
	CellKind   string `json:"cellKind,omitempty"`
	BuildingID string `json:"buildingId,omitempty"`
}

// Seq returns the command sequence, or zero when the client sent none.
func (m ClientMessage) Seq() uint64 {
	if m.CommandSeq == nil {
		return 0
	}
	return *m.CommandSeq
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps a message onto the simulation command it carries.
// Origin metadata is stamped by intake once the command is accepted.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypePlayer:
		return sim.Command{
			Type: sim.CommandSetPlayer,
			Player: &sim.PlayerCommand{
				Present:          msg.Present,
				X:                msg.X,
				Y:                msg.Y,
				CarryingEvidence: msg.CarryingEvidence,
			},
		}, true
	case TypeIllicitAct:
		return sim.Command{Type: sim.CommandIllicitAct}, true
	case TypeAction:
		if msg.Action == "" || msg.AgentID == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:    sim.CommandAction,
			AgentID: msg.AgentID,
			Action:  &sim.ActionCommand{Name: msg.Action, AgentID: msg.AgentID},
		}, true
	case TypeKill:
		if msg.AgentID == "" {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandKill, AgentID: msg.AgentID}, true
	case TypeAddHazard:
		if msg.HazardKind == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandAddHazard,
			Hazard: &sim.HazardCommand{
				ID:           msg.HazardID,
				Kind:         msg.HazardKind,
				X:            msg.X,
				Y:            msg.Y,
				HighPriority: msg.HighPriority,
			},
		}, true
	case TypeRemoveHazard:
		if msg.HazardID == "" {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandRemoveHazard, Hazard: &sim.HazardCommand{ID: msg.HazardID}}, true
	case TypeSetCell:
		if msg.CellKind == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandSetCell,
			Cell: &sim.CellCommand{
				X:          msg.TileX,
				Y:          msg.TileY,
				Kind:       msg.CellKind,
				BuildingID: msg.BuildingID,
			},
		}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
		Tick: msg.Tick,
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
		Tick:   msg.Tick,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// StateSnapshotV1 wraps a simulation snapshot for observers.
type StateSnapshotV1 struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	ServerTime int64        `json:"serverTime"`
	Resync     bool         `json:"resync,omitempty"`
	State      sim.Snapshot `json:"state"`
}

// EncodeStateSnapshot renders a versioned snapshot payload.
func EncodeStateSnapshot(msg StateSnapshotV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeState
	}
	msg.Ver = Version
	return json.Marshal(msg)
}
