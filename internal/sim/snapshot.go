package sim

import (
	"github.com/gglang/the-voices-sub000/internal/dispatch"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/threat"
)

// Snapshot is a read-only copy of the engine for observers.
type Snapshot struct {
	Tick        uint64                `json:"tick"`
	Player      state.PlayerSnapshot  `json:"player"`
	Agents      []state.AgentSnapshot `json:"agents"`
	Hazards     []state.Hazard        `json:"hazards"`
	Threat      threat.Snapshot       `json:"threat"`
	Backup      []dispatch.Entry      `json:"backup,omitempty"`
	Assignments []dispatch.Assignment `json:"assignments,omitempty"`
	Failed      bool                  `json:"failed"`
	CaughtBy    string                `json:"caughtBy,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	player := e.player
	player.PerformingIllicitAct = e.threat.PerformingIllicitAct()
	snap := Snapshot{
		Tick:        e.tick,
		Player:      player,
		Agents:      make([]state.AgentSnapshot, 0, len(e.order)),
		Hazards:     e.Hazards(),
		Threat:      e.threat.Snapshot(),
		Backup:      e.dispatch.Pending(),
		Assignments: e.dispatch.Assignments(),
		Failed:      e.failed,
		CaughtBy:    e.caughtBy,
	}
	for _, id := range e.order {
		snap.Agents = append(snap.Agents, e.agents[id].Snapshot())
	}
	return snap
}

// Count returns the number of live agents of kind.
func (s Snapshot) Count(kind state.AgentKind) int {
	n := 0
	for _, a := range s.Agents {
		if a.Kind == kind && a.Alive {
			n++
		}
	}
	return n
}
