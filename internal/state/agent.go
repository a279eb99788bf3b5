package state

import (
	"fmt"

	"github.com/gglang/the-voices-sub000/internal/world"
)

// Vec2 aliases the world vector type for state helpers.
type Vec2 = world.Vec2

// AgentKind discriminates the autonomous agent families.
type AgentKind uint8

const (
	KindCivilian AgentKind = iota
	KindEnforcer
	KindCompanion
	KindVermin
)

var agentKindNames = [...]string{
	KindCivilian:  "civilian",
	KindEnforcer:  "enforcer",
	KindCompanion: "companion",
	KindVermin:    "vermin",
}

func (k AgentKind) String() string {
	if int(k) < len(agentKindNames) {
		return agentKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func (k AgentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AgentKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseAgentKind(string(text))
	if !ok {
		return fmt.Errorf("state: unknown agent kind %q", text)
	}
	*k = parsed
	return nil
}

// ParseAgentKind is the inverse of AgentKind.String.
func ParseAgentKind(name string) (AgentKind, bool) {
	for i, candidate := range agentKindNames {
		if candidate == name {
			return AgentKind(i), true
		}
	}
	return 0, false
}

// AgentKinds lists every kind in declaration order.
func AgentKinds() []AgentKind {
	return []AgentKind{KindCivilian, KindEnforcer, KindCompanion, KindVermin}
}

// AIState is the behaviour state of an agent. Each kind uses a subset.
type AIState uint8

const (
	StateWandering AIState = iota
	StateFleeing
	StateFollowing
	StateConfused
	StateImprisoned
	StateInvestigating
	StateChasing
	StateGoingToLastKnown
	StateRemoved
)

var aiStateNames = [...]string{
	StateWandering:        "wandering",
	StateFleeing:          "fleeing",
	StateFollowing:        "following",
	StateConfused:         "confused",
	StateImprisoned:       "imprisoned",
	StateInvestigating:    "investigating",
	StateChasing:          "chasing",
	StateGoingToLastKnown: "going_to_last_known",
	StateRemoved:          "removed",
}

func (s AIState) String() string {
	if int(s) < len(aiStateNames) {
		return aiStateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

func (s AIState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AIState) UnmarshalText(text []byte) error {
	for i, name := range aiStateNames {
		if name == string(text) {
			*s = AIState(i)
			return nil
		}
	}
	return fmt.Errorf("state: unknown ai state %q", text)
}

// Agent is one autonomous entity. It owns its path and timers exclusively and
// is only mutated by its own behaviour update or by host calls between ticks.
// Exactly one payload pointer matching Kind is set.
type Agent struct {
	ID        string
	Kind      AgentKind
	Position  Vec2
	State     AIState
	Target    Vec2
	HasTarget bool
	Path      PathState
	Speed     float64
	FleeSpeed float64
	Alive     bool

	Blackboard Blackboard

	Civilian  *CivilianData
	Enforcer  *EnforcerData
	Companion *CompanionData
	Vermin    *VerminData
}

// NewAgent allocates an agent with the payload for its kind.
func NewAgent(id string, kind AgentKind, pos Vec2) *Agent {
	agent := &Agent{
		ID:       id,
		Kind:     kind,
		Position: pos,
		State:    StateWandering,
		Alive:    true,
	}
	agent.Blackboard.LastPos = pos
	switch kind {
	case KindCivilian:
		agent.Civilian = &CivilianData{}
	case KindEnforcer:
		agent.Enforcer = &EnforcerData{Post: pos}
	case KindCompanion:
		agent.Companion = &CompanionData{Home: pos}
	case KindVermin:
		agent.Vermin = &VerminData{Origin: pos}
	}
	return agent
}

// Social returns the shared trust/follow payload for kinds that have one.
func (a *Agent) Social() *Social {
	if a == nil {
		return nil
	}
	switch {
	case a.Civilian != nil:
		return &a.Civilian.Social
	case a.Companion != nil:
		return &a.Companion.Social
	}
	return nil
}

// Active reports whether the agent still takes part in the simulation.
func (a *Agent) Active() bool {
	return a != nil && a.Alive && a.State != StateRemoved
}

// ClearTarget drops the movement target and any path towards it.
func (a *Agent) ClearTarget() {
	if a == nil {
		return
	}
	a.HasTarget = false
	a.Target = Vec2{}
	a.Path.Clear()
}

// AgentSnapshot is the read-only view other agents perceive.
type AgentSnapshot struct {
	ID       string    `json:"id"`
	Kind     AgentKind `json:"kind"`
	State    AIState   `json:"state"`
	Position Vec2      `json:"position"`
	Alive    bool      `json:"alive"`
}

func (a *Agent) Snapshot() AgentSnapshot {
	return AgentSnapshot{
		ID:       a.ID,
		Kind:     a.Kind,
		State:    a.State,
		Position: a.Position,
		Alive:    a.Alive,
	}
}
