package state

import "fmt"

// PlayerSnapshot is the read-only player view handed to behaviours each tick.
type PlayerSnapshot struct {
	Present              bool `json:"present"`
	Position             Vec2 `json:"position"`
	PerformingIllicitAct bool `json:"performingIllicitAct"`
	CarryingEvidence     bool `json:"carryingEvidence"`
}

// HazardKind classifies static evidence left in the world.
type HazardKind uint8

const (
	HazardBody HazardKind = iota
	HazardBrokenDoor
)

func (k HazardKind) String() string {
	switch k {
	case HazardBody:
		return "body"
	case HazardBrokenDoor:
		return "broken_door"
	default:
		return "unknown"
	}
}

func (k HazardKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *HazardKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseHazardKind(string(text))
	if !ok {
		return fmt.Errorf("state: unknown hazard kind %q", text)
	}
	*k = parsed
	return nil
}

func ParseHazardKind(name string) (HazardKind, bool) {
	switch name {
	case "body":
		return HazardBody, true
	case "broken_door":
		return HazardBrokenDoor, true
	}
	return 0, false
}

// Hazard is a body or broken door that witnesses may report.
type Hazard struct {
	ID           string     `json:"id"`
	Kind         HazardKind `json:"kind"`
	Position     Vec2       `json:"position"`
	HighPriority bool       `json:"highPriority,omitempty"`
}

// DetectionKind classifies what a witness saw.
type DetectionKind uint8

const (
	DetectIllegalActivity DetectionKind = iota
	DetectCorpseSighting
	DetectBrokenDoor
)

func (k DetectionKind) String() string {
	switch k {
	case DetectIllegalActivity:
		return "illegal_activity"
	case DetectCorpseSighting:
		return "corpse_sighting"
	case DetectBrokenDoor:
		return "broken_door"
	default:
		return "unknown"
	}
}

// DetectionKindFor maps a hazard to the sighting it produces.
func DetectionKindFor(kind HazardKind) DetectionKind {
	if kind == HazardBrokenDoor {
		return DetectBrokenDoor
	}
	return DetectCorpseSighting
}

// DetectionEvent is consumed immediately by the coordinators and never stored.
type DetectionEvent struct {
	WitnessID       string
	WitnessPosition Vec2
	SubjectPosition Vec2
	Kind            DetectionKind
	HazardID        string
}
