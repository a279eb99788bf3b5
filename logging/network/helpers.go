package network

import (
	"context"

	"github.com/gglang/the-voices-sub000/logging"
)

const (
	// EventObserverJoined is emitted when a websocket observer subscribes.
	EventObserverJoined logging.EventType = "network.observer_joined"
	// EventObserverLeft is emitted when an observer disconnects or is dropped.
	EventObserverLeft logging.EventType = "network.observer_left"
	// EventCommandRejected is emitted when a client command cannot be staged.
	EventCommandRejected logging.EventType = "network.command_rejected"
)

const category = "network"

// ObserverPayload describes an observer session change.
type ObserverPayload struct {
	Observers int    `json:"observers"`
	Reason    string `json:"reason,omitempty"`
}

// CommandRejectedPayload captures why a client command was refused.
type CommandRejectedPayload struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
}

func observerRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindObserver}
}

// ObserverJoined publishes a debug event for a new subscription.
func ObserverJoined(ctx context.Context, pub logging.Publisher, tick uint64, observerID string, payload ObserverPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventObserverJoined,
		Tick:     tick,
		Actor:    observerRef(observerID),
		Severity: logging.SeverityDebug,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}

// ObserverLeft publishes a debug event when an observer goes away.
func ObserverLeft(ctx context.Context, pub logging.Publisher, tick uint64, observerID string, payload ObserverPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventObserverLeft,
		Tick:     tick,
		Actor:    observerRef(observerID),
		Severity: logging.SeverityDebug,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}

// CommandRejected publishes a warning for a refused client command.
func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, observerID string, payload CommandRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandRejected,
		Tick:     tick,
		Actor:    observerRef(observerID),
		Severity: logging.SeverityWarn,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}
