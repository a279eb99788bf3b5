package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gglang/the-voices-sub000/internal/net/proto"
	"github.com/gglang/the-voices-sub000/internal/sim"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/network"
)

const (
	metricObservers      = "net_observers"
	metricBroadcastBytes = "net_broadcast_bytes_total"
	metricObserverDrops  = "net_observer_drops_total"

	writeWait = 5 * time.Second
)

// Observer is one websocket subscriber. Writes are serialised because the
// broadcast goroutine and the session's reply path share the connection.
type Observer struct {
	id   string
	conn *websocket.Conn

	mu      sync.Mutex
	lastSeq uint64
}

func (o *Observer) ID() string { return o.id }

func (o *Observer) WriteMessage(messageType int, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return o.conn.WriteMessage(messageType, data)
}

// LastCommandSeq is the highest acknowledged command sequence.
func (o *Observer) LastCommandSeq() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSeq
}

func (o *Observer) StoreLastCommandSeq(seq uint64) {
	o.mu.Lock()
	if seq > o.lastSeq {
		o.lastSeq = seq
	}
	o.mu.Unlock()
}

type HubConfig struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
}

// Hub fans simulation snapshots out to every observer.
type Hub struct {
	mu        sync.Mutex
	observers map[string]*Observer

	pub     logging.Publisher
	logger  telemetry.Logger
	metrics telemetry.Metrics
	newID   func() string
}

func NewHub(cfg HubConfig) *Hub {
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewCounters()
	}
	return &Hub{
		observers: make(map[string]*Observer),
		pub:       pub,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}
}

// Subscribe registers conn and returns its observer.
func (h *Hub) Subscribe(ctx context.Context, tick uint64, conn *websocket.Conn) *Observer {
	obs := &Observer{id: h.newID(), conn: conn}
	h.mu.Lock()
	h.observers[obs.id] = obs
	count := len(h.observers)
	h.mu.Unlock()

	h.metrics.Store(metricObservers, uint64(count))
	network.ObserverJoined(ctx, h.pub, tick, obs.id, network.ObserverPayload{Observers: count}, nil)
	return obs
}

// Unsubscribe drops the observer and closes its connection. It is safe to
// call more than once.
func (h *Hub) Unsubscribe(ctx context.Context, tick uint64, id, reason string) {
	h.mu.Lock()
	obs, ok := h.observers[id]
	if ok {
		delete(h.observers, id)
	}
	count := len(h.observers)
	h.mu.Unlock()
	if !ok {
		return
	}
	obs.conn.Close()
	h.metrics.Store(metricObservers, uint64(count))
	network.ObserverLeft(ctx, h.pub, tick, id, network.ObserverPayload{Observers: count, Reason: reason}, nil)
}

// Close disconnects every observer.
func (h *Hub) Close(ctx context.Context, tick uint64) {
	for _, id := range h.IDs() {
		h.Unsubscribe(ctx, tick, id, "shutdown")
	}
}

// Count reports the number of connected observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// IDs lists connected observers in sorted order.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.observers))
	for id := range h.observers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Broadcast encodes snap once and writes it to every observer. Observers
// whose write fails are dropped. It returns the number reached.
func (h *Hub) Broadcast(ctx context.Context, snap sim.Snapshot) int {
	h.mu.Lock()
	targets := make([]*Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		targets = append(targets, obs)
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return 0
	}

	data, err := proto.EncodeStateSnapshot(proto.StateSnapshotV1{
		ServerTime: time.Now().UnixMilli(),
		State:      snap,
	})
	if err != nil {
		h.logger.Printf("failed to encode snapshot for tick %d: %v", snap.Tick, err)
		return 0
	}

	sent := 0
	for _, obs := range targets {
		if err := obs.WriteMessage(websocket.TextMessage, data); err != nil {
			h.metrics.Add(metricObserverDrops, 1)
			h.Unsubscribe(ctx, snap.Tick, obs.id, "write_failed")
			continue
		}
		sent++
	}
	h.metrics.Add(metricBroadcastBytes, uint64(len(data)*sent))
	return sent
}
