// Package ws serves simulation observers and controllers over websockets.
package ws

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gglang/the-voices-sub000/internal/net/intake"
	"github.com/gglang/the-voices-sub000/internal/net/proto"
	"github.com/gglang/the-voices-sub000/internal/sim"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/network"
)

// Source is the part of sim.Loop a session needs.
type Source interface {
	Enqueue(cmd sim.Command) error
	Snapshot() sim.Snapshot
	Tick() uint64
}

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	// ReadOnly sessions receive snapshots but every command is rejected.
	ReadOnly bool
}

type Handler struct {
	hub      *Hub
	source   Source
	logger   telemetry.Logger
	pub      logging.Publisher
	readOnly bool
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, source Source, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		source:   source,
		logger:   logger,
		pub:      pub,
		readOnly: cfg.ReadOnly,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	ctx := r.Context()

	snap := h.source.Snapshot()
	obs := h.hub.Subscribe(ctx, snap.Tick, conn)

	data, err := proto.EncodeStateSnapshot(proto.StateSnapshotV1{
		ServerTime: time.Now().UnixMilli(),
		Resync:     true,
		State:      snap,
	})
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", obs.ID(), err)
		h.hub.Unsubscribe(ctx, snap.Tick, obs.ID(), "encode_failed")
		return
	}
	if err := obs.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Unsubscribe(ctx, snap.Tick, obs.ID(), "write_failed")
		return
	}

	h.serve(ctx, obs, conn)
}

func (h *Handler) serve(ctx context.Context, obs *Observer, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Unsubscribe(ctx, h.source.Tick(), obs.ID(), "closed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", obs.ID(), err)
			continue
		}

		if !h.handle(ctx, obs, msg) {
			h.hub.Unsubscribe(ctx, h.source.Tick(), obs.ID(), "write_failed")
			return
		}
	}
}

// handle answers one message and reports whether the connection is still
// writable.
func (h *Handler) handle(ctx context.Context, obs *Observer, msg proto.ClientMessage) bool {
	if msg.Type == proto.TypeHeartbeat {
		now := time.Now()
		var rtt int64
		if msg.SentAt > 0 {
			rtt = now.UnixMilli() - msg.SentAt
		}
		data, err := proto.EncodeHeartbeat(proto.Heartbeat{
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt,
		})
		if err != nil {
			h.logger.Printf("failed to marshal heartbeat ack for %s: %v", obs.ID(), err)
			return true
		}
		return obs.WriteMessage(websocket.TextMessage, data) == nil
	}

	seq := msg.Seq()
	if seq > 0 {
		if last := obs.LastCommandSeq(); last > 0 && seq <= last {
			return h.writeAck(obs, proto.CommandAck{Seq: seq})
		}
	}

	if h.readOnly {
		return h.reject(ctx, obs, msg, intake.RejectUnavailable)
	}

	cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
		Queue: h.source,
		Tick:  h.source.Tick,
	}, msg)
	if !ok {
		return h.reject(ctx, obs, msg, reason)
	}
	if seq == 0 {
		return true
	}
	if !h.writeAck(obs, proto.CommandAck{Seq: seq, Tick: cmd.OriginTick}) {
		return false
	}
	obs.StoreLastCommandSeq(seq)
	return true
}

func (h *Handler) reject(ctx context.Context, obs *Observer, msg proto.ClientMessage, reason string) bool {
	seq := msg.Seq()
	network.CommandRejected(ctx, h.pub, h.source.Tick(), obs.ID(), network.CommandRejectedPayload{
		Type:   msg.Type,
		Seq:    seq,
		Reason: reason,
	}, nil)
	if seq == 0 {
		return true
	}
	data, err := proto.EncodeCommandReject(proto.CommandReject{
		Seq:    seq,
		Reason: reason,
		Retry:  reason == intake.RejectQueueFull,
	})
	if err != nil {
		h.logger.Printf("failed to marshal reject for %s: %v", obs.ID(), err)
		return true
	}
	return obs.WriteMessage(websocket.TextMessage, data) == nil
}

func (h *Handler) writeAck(obs *Observer, ack proto.CommandAck) bool {
	data, err := proto.EncodeCommandAck(ack)
	if err != nil {
		h.logger.Printf("failed to marshal ack for %s: %v", obs.ID(), err)
		return true
	}
	return obs.WriteMessage(websocket.TextMessage, data) == nil
}
