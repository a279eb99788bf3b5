// Package threat tracks whether the player has been identified and whether
// an illicit act is currently in progress.
package threat

import (
	"context"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/schedule"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/detection"
)

// Owner is the scheduler owner for the coordinator's timers.
const Owner = "threat"

// Coordinator holds the two threat flags. identified is sticky until Reset;
// the illicit-act flag clears itself IllicitActTicks after the last FlagIllicitAct.
type Coordinator struct {
	cfg   config.Threat
	sched *schedule.Scheduler
	pub   logging.Publisher

	identified bool
	episode    uint64
	witness    world.Vec2
	witnessID  string

	illicit   bool
	clearTask schedule.TaskID
}

func New(cfg config.Threat, sched *schedule.Scheduler, pub logging.Publisher) *Coordinator {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if cfg.IllicitActTicks == 0 {
		cfg.IllicitActTicks = config.Default().Threat.IllicitActTicks
	}
	return &Coordinator{cfg: cfg, sched: sched, pub: pub}
}

// MarkIdentified flags the player as a known threat. It reports true only on
// the call that changed the flag; repeated calls are no-ops.
func (c *Coordinator) MarkIdentified(ctx context.Context, tick uint64, witness world.Vec2, witnessID string) bool {
	if c.identified {
		return false
	}
	c.identified = true
	c.episode++
	c.witness = witness
	c.witnessID = witnessID
	detection.PlayerIdentified(ctx, c.pub, tick, logging.AgentRef(witnessID), detection.PlayerIdentifiedPayload{
		WitnessX: witness.X,
		WitnessY: witness.Y,
		Episode:  c.episode,
	}, nil)
	return true
}

func (c *Coordinator) Identified() bool {
	return c.identified
}

// Episode numbers identification episodes starting at 1. It stays at the
// last value after Reset so behaviours can tell episodes apart.
func (c *Coordinator) Episode() uint64 {
	return c.episode
}

// Witness returns the agent and position that last identified the player.
func (c *Coordinator) Witness() (string, world.Vec2) {
	return c.witnessID, c.witness
}

// Reset clears identification. The next MarkIdentified starts a new episode.
func (c *Coordinator) Reset() {
	c.identified = false
	c.witnessID = ""
	c.witness = world.Vec2{}
}

// FlagIllicitAct raises the illicit-act flag. Flagging again while raised
// restarts the expiry.
func (c *Coordinator) FlagIllicitAct(tick uint64) {
	c.illicit = true
	if c.sched == nil {
		return
	}
	if c.clearTask != 0 {
		c.sched.Cancel(c.clearTask)
	}
	c.clearTask = c.sched.At(Owner, tick+c.cfg.IllicitActTicks, "illicit-act-expiry", func(uint64) {
		c.clearTask = 0
		c.illicit = false
	})
}

// ClearIllicitAct lowers the flag immediately.
func (c *Coordinator) ClearIllicitAct() {
	if c.clearTask != 0 && c.sched != nil {
		c.sched.Cancel(c.clearTask)
	}
	c.clearTask = 0
	c.illicit = false
}

func (c *Coordinator) PerformingIllicitAct() bool {
	return c.illicit
}

// Snapshot is the coordinator state reported to observers.
type Snapshot struct {
	Identified           bool   `json:"identified"`
	Episode              uint64 `json:"episode"`
	WitnessID            string `json:"witnessId,omitempty"`
	PerformingIllicitAct bool   `json:"performingIllicitAct"`
}

func (c *Coordinator) Snapshot() Snapshot {
	return Snapshot{
		Identified:           c.identified,
		Episode:              c.episode,
		WitnessID:            c.witnessID,
		PerformingIllicitAct: c.illicit,
	}
}
