package lifecycle

import (
	"context"

	"github.com/gglang/the-voices-sub000/logging"
)

const (
	// EventAgentSpawned is emitted when an agent joins the simulation.
	EventAgentSpawned logging.EventType = "lifecycle.agent_spawned"
	// EventAgentRemoved is emitted when an agent dies or is removed.
	EventAgentRemoved logging.EventType = "lifecycle.agent_removed"
	// EventAgentStuck is emitted when an agent exhausts its stuck episodes and is forcibly recovered.
	EventAgentStuck logging.EventType = "lifecycle.agent_stuck"
	// EventAgentStateChanged is emitted on every behaviour state transition.
	EventAgentStateChanged logging.EventType = "lifecycle.agent_state_changed"
)

// AgentSpawnedPayload captures spawn metadata.
type AgentSpawnedPayload struct {
	Kind   string  `json:"kind"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Reason string  `json:"reason,omitempty"`
}

// AgentRemovedPayload captures why an agent left.
type AgentRemovedPayload struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Timers int    `json:"cancelledTimers"`
	Hazard string `json:"hazardId,omitempty"`
}

// AgentStuckPayload captures the escalation.
type AgentStuckPayload struct {
	Kind     string  `json:"kind"`
	State    string  `json:"state"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Episodes int     `json:"episodes"`
}

// AgentStateChangedPayload captures a transition.
type AgentStateChangedPayload struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
}

// AgentSpawned publishes a spawn event.
func AgentSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAgentSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AgentRemoved publishes a removal event.
func AgentRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentRemovedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAgentRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AgentStuck publishes a stuck escalation.
func AgentStuck(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentStuckPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAgentStuck,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AgentStateChanged publishes a transition at debug severity.
func AgentStateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentStateChangedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAgentStateChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
