package dispatch

import (
	"context"

	"github.com/gglang/the-voices-sub000/logging"
)

const (
	// EventDisturbanceRaised is emitted when enforcers are assigned to investigate a location.
	EventDisturbanceRaised logging.EventType = "dispatch.disturbance_raised"
	// EventBackupQueued is emitted when a backup wave is scheduled.
	EventBackupQueued logging.EventType = "dispatch.backup_queued"
	// EventBackupArrived is emitted when a backup wave spawns.
	EventBackupArrived logging.EventType = "dispatch.backup_arrived"
	// EventInvestigationResult is emitted when an investigating enforcer reaches its location.
	EventInvestigationResult logging.EventType = "dispatch.investigation_result"
)

type DisturbanceRaisedPayload struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	HazardID  string   `json:"hazardId,omitempty"`
	Assigned  []string `json:"assigned"`
	Available int      `json:"available"`
}

type BackupQueuedPayload struct {
	EntryID      string  `json:"entryId"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HighPriority bool    `json:"highPriority"`
	ArrivalTick  uint64  `json:"arrivalTick"`
}

type BackupArrivedPayload struct {
	EntryID  string   `json:"entryId"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Spawned  []string `json:"spawned"`
	Deferred uint64   `json:"deferredTicks"`
}

type InvestigationResultPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	BodyFound bool    `json:"bodyFound"`
}

// DisturbanceRaised publishes an assignment event.
func DisturbanceRaised(ctx context.Context, pub logging.Publisher, tick uint64, payload DisturbanceRaisedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	targets := make([]logging.EntityRef, 0, len(payload.Assigned))
	for _, id := range payload.Assigned {
		targets = append(targets, logging.AgentRef(id))
	}
	event := logging.Event{
		Type:     EventDisturbanceRaised,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDispatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// BackupQueued publishes a scheduled backup wave.
func BackupQueued(ctx context.Context, pub logging.Publisher, tick uint64, caller logging.EntityRef, payload BackupQueuedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBackupQueued,
		Tick:     tick,
		Actor:    caller,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDispatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// BackupArrived publishes a spawned wave.
func BackupArrived(ctx context.Context, pub logging.Publisher, tick uint64, payload BackupArrivedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	targets := make([]logging.EntityRef, 0, len(payload.Spawned))
	for _, id := range payload.Spawned {
		targets = append(targets, logging.AgentRef(id))
	}
	event := logging.Event{
		Type:     EventBackupArrived,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Targets:  targets,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDispatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// InvestigationResult publishes the outcome of an investigation.
func InvestigationResult(ctx context.Context, pub logging.Publisher, tick uint64, enforcer logging.EntityRef, payload InvestigationResultPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventInvestigationResult,
		Tick:     tick,
		Actor:    enforcer,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDispatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
