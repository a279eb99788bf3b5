package ai

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gglang/the-voices-sub000/internal/state"
)

//go:embed configs/capabilities.json
var embeddedCapabilities embed.FS

// ActionKind is a player interaction aimed at one agent.
type ActionKind uint8

const (
	ActionLure ActionKind = iota
	ActionCapture
	ActionRelease
)

var actionNames = [...]string{
	ActionLure:    "lure",
	ActionCapture: "capture",
	ActionRelease: "release",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("action(%d)", k)
}

func ParseActionKind(name string) (ActionKind, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, candidate := range actionNames {
		if candidate == name {
			return ActionKind(i), true
		}
	}
	return 0, false
}

var (
	ErrUnsupportedAction = errors.New("ai: action not supported by agent kind")
	ErrActionRejected    = errors.New("ai: action rejected in current state")
)

var capabilities = mustLoadCapabilities()

func mustLoadCapabilities() map[state.AgentKind][]ActionKind {
	table, err := loadCapabilities()
	if err != nil {
		panic(fmt.Errorf("ai: load capabilities: %w", err))
	}
	return table
}

func loadCapabilities() (map[state.AgentKind][]ActionKind, error) {
	data, err := embeddedCapabilities.ReadFile("configs/capabilities.json")
	if err != nil {
		return nil, err
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	table := make(map[state.AgentKind][]ActionKind, len(raw))
	for kindName, actions := range raw {
		kind, ok := state.ParseAgentKind(kindName)
		if !ok {
			return nil, fmt.Errorf("unknown agent kind %q", kindName)
		}
		list := make([]ActionKind, 0, len(actions))
		for _, name := range actions {
			action, ok := ParseActionKind(name)
			if !ok {
				return nil, fmt.Errorf("%s: unknown action %q", kindName, name)
			}
			list = append(list, action)
		}
		table[kind] = list
	}
	return table, nil
}

// Capabilities lists the actions agents of kind accept.
func Capabilities(kind state.AgentKind) []ActionKind {
	return append([]ActionKind(nil), capabilities[kind]...)
}

func Supports(kind state.AgentKind, action ActionKind) bool {
	for _, candidate := range capabilities[kind] {
		if candidate == action {
			return true
		}
	}
	return false
}

// Apply performs a player action on agent. Behaviour reacts on the agent's
// next update.
func Apply(agent *state.Agent, action ActionKind) error {
	if agent == nil || !agent.Active() {
		return ErrActionRejected
	}
	if !Supports(agent.Kind, action) {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, agent.Kind)
	}
	s := agent.Social()
	if s == nil {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, agent.Kind)
	}
	switch action {
	case ActionLure:
		if s.Captured {
			return fmt.Errorf("%w: %s is captured", ErrActionRejected, agent.ID)
		}
		s.Lured = true
	case ActionCapture:
		s.Captured = true
		s.Lured = false
	case ActionRelease:
		if !s.Captured {
			return fmt.Errorf("%w: %s is not captured", ErrActionRejected, agent.ID)
		}
		s.Captured = false
		s.Released = true
		s.ReturnHome = true
		if agent.Companion != nil {
			agent.Companion.FearsPlayer = true
		}
	}
	return nil
}
