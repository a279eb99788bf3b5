package detection

import (
	"context"

	"github.com/gglang/the-voices-sub000/logging"
)

const (
	// EventPlayerIdentified is emitted once per threat episode when a witness identifies the player.
	EventPlayerIdentified logging.EventType = "detection.player_identified"
	// EventPlayerCaught is emitted when an enforcer's close-range detection timer fills.
	EventPlayerCaught logging.EventType = "detection.player_caught"
	// EventHazardReported is emitted when a witness reports a body or broken door.
	EventHazardReported logging.EventType = "detection.hazard_reported"
)

// PlayerIdentifiedPayload records where the witness stood.
type PlayerIdentifiedPayload struct {
	WitnessX float64 `json:"witnessX"`
	WitnessY float64 `json:"witnessY"`
	Episode  uint64  `json:"episode"`
}

// PlayerCaughtPayload records the capture location and how long the timer ran.
type PlayerCaughtPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	CloseTicks int     `json:"closeTicks"`
}

// HazardReportedPayload describes a reported sighting.
type HazardReportedPayload struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// PlayerIdentified publishes the identification event.
func PlayerIdentified(ctx context.Context, pub logging.Publisher, tick uint64, witness logging.EntityRef, payload PlayerIdentifiedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerIdentified,
		Tick:     tick,
		Actor:    witness,
		Targets:  []logging.EntityRef{logging.PlayerRef()},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDetection,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PlayerCaught publishes the terminal failure event.
func PlayerCaught(ctx context.Context, pub logging.Publisher, tick uint64, enforcer logging.EntityRef, payload PlayerCaughtPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerCaught,
		Tick:     tick,
		Actor:    enforcer,
		Targets:  []logging.EntityRef{logging.PlayerRef()},
		Severity: logging.SeverityError,
		Category: logging.CategoryDetection,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// HazardReported publishes a witness report.
func HazardReported(ctx context.Context, pub logging.Publisher, tick uint64, witness logging.EntityRef, hazardID string, payload HazardReportedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHazardReported,
		Tick:     tick,
		Actor:    witness,
		Targets:  []logging.EntityRef{logging.HazardRef(hazardID)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDetection,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
