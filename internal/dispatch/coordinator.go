// Package dispatch assigns enforcers to disturbances and runs the delayed
// backup queue.
package dispatch

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	dispatchlog "github.com/gglang/the-voices-sub000/logging/dispatch"
)

// Assignment is an enforcer's pending investigation.
type Assignment struct {
	AgentID  string     `json:"agentId"`
	Location world.Vec2 `json:"location"`
	HazardID string     `json:"hazardId,omitempty"`
	Tick     uint64     `json:"tick"`
}

// Entry is a queued backup wave. It is removed once its wave spawns.
type Entry struct {
	ID           string     `json:"id"`
	ArrivalTick  uint64     `json:"arrivalTick"`
	QueuedTick   uint64     `json:"queuedTick"`
	Location     world.Vec2 `json:"location"`
	HighPriority bool       `json:"highPriority"`
	EvidenceID   string     `json:"evidenceId,omitempty"`
	CallerID     string     `json:"callerId,omitempty"`
	Notified     bool       `json:"notified"`
}

// Spawner creates backup enforcers for an arrived entry and returns their ids.
type Spawner interface {
	SpawnBackup(ctx context.Context, entry Entry, count int) []string
}

// SpawnerFunc adapts a function into a Spawner.
type SpawnerFunc func(ctx context.Context, entry Entry, count int) []string

func (f SpawnerFunc) SpawnBackup(ctx context.Context, entry Entry, count int) []string {
	if f == nil {
		return nil
	}
	return f(ctx, entry, count)
}

type Coordinator struct {
	cfg config.Dispatch
	pub logging.Publisher

	assignments map[string]Assignment
	queue       []Entry
	called      map[string]string
	reported    map[string]bool

	newID func() string
}

func New(cfg config.Dispatch, pub logging.Publisher) *Coordinator {
	def := config.Default().Dispatch
	if cfg.MaxResponders <= 0 {
		cfg.MaxResponders = def.MaxResponders
	}
	if cfg.WaveSize <= 0 {
		cfg.WaveSize = def.WaveSize
	}
	if cfg.BackupDelayTicks == 0 {
		cfg.BackupDelayTicks = def.BackupDelayTicks
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Coordinator{
		cfg:         cfg,
		pub:         pub,
		assignments: make(map[string]Assignment),
		called:      make(map[string]string),
		reported:    make(map[string]bool),
		newID:       uuid.NewString,
	}
}

// candidates returns idle enforcers ordered nearest first, ties by id.
func (c *Coordinator) candidates(location world.Vec2, enforcers []state.AgentSnapshot) []state.AgentSnapshot {
	out := make([]state.AgentSnapshot, 0, len(enforcers))
	maxSq := c.cfg.MaxAlertRadius * c.cfg.MaxAlertRadius
	for _, e := range enforcers {
		if e.Kind != state.KindEnforcer || !e.Alive || e.State != state.StateWandering {
			continue
		}
		if _, busy := c.assignments[e.ID]; busy {
			continue
		}
		if c.cfg.MaxAlertRadius > 0 && world.DistanceSq(e.Position, location) > maxSq {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := world.DistanceSq(out[i].Position, location)
		dj := world.DistanceSq(out[j].Position, location)
		if di == dj {
			return out[i].ID < out[j].ID
		}
		return di < dj
	})
	return out
}

// AlertDisturbance assigns the nearest idle enforcers (at most MaxResponders)
// to investigate location and returns their ids. Busy, non-wandering and
// out-of-range enforcers are skipped.
func (c *Coordinator) AlertDisturbance(ctx context.Context, tick uint64, location world.Vec2, hazardID string, enforcers []state.AgentSnapshot) []string {
	candidates := c.candidates(location, enforcers)
	n := len(candidates)
	if n > c.cfg.MaxResponders {
		n = c.cfg.MaxResponders
	}
	assigned := make([]string, 0, n)
	for _, e := range candidates[:n] {
		c.assignments[e.ID] = Assignment{AgentID: e.ID, Location: location, HazardID: hazardID, Tick: tick}
		assigned = append(assigned, e.ID)
	}
	dispatchlog.DisturbanceRaised(ctx, c.pub, tick, dispatchlog.DisturbanceRaisedPayload{
		X:         location.X,
		Y:         location.Y,
		HazardID:  hazardID,
		Assigned:  assigned,
		Available: len(candidates),
	}, nil)
	return assigned
}

// Report turns a corpse or broken-door sighting into a disturbance. Each
// hazard is reported at most once, and only once an enforcer can respond.
func (c *Coordinator) Report(ctx context.Context, tick uint64, ev state.DetectionEvent, enforcers []state.AgentSnapshot) bool {
	if ev.Kind == state.DetectIllegalActivity || ev.HazardID == "" {
		return false
	}
	if c.reported[ev.HazardID] {
		return false
	}
	if len(c.candidates(ev.SubjectPosition, enforcers)) == 0 {
		return false
	}
	c.reported[ev.HazardID] = true
	c.AlertDisturbance(ctx, tick, ev.SubjectPosition, ev.HazardID, enforcers)
	return true
}

// Reported reports whether hazardID already raised a disturbance.
func (c *Coordinator) Reported(hazardID string) bool {
	return c.reported[hazardID]
}

// Assignment returns agentID's pending investigation.
func (c *Coordinator) Assignment(agentID string) (Assignment, bool) {
	a, ok := c.assignments[agentID]
	return a, ok
}

// Release frees agentID for future alerts.
func (c *Coordinator) Release(agentID string) {
	delete(c.assignments, agentID)
}

// Assignments lists pending investigations ordered by agent id.
func (c *Coordinator) Assignments() []Assignment {
	out := make([]Assignment, 0, len(c.assignments))
	for _, a := range c.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// QueueBackup schedules a wave to arrive BackupDelayTicks after tick. A
// second call for evidence that already has backup is a no-op returning
// false.
func (c *Coordinator) QueueBackup(ctx context.Context, tick uint64, callerID string, location world.Vec2, highPriority bool, evidenceID string) (Entry, bool) {
	if evidenceID != "" {
		if _, dup := c.called[evidenceID]; dup {
			return Entry{}, false
		}
	}
	entry := Entry{
		ID:           c.newID(),
		ArrivalTick:  tick + c.cfg.BackupDelayTicks,
		QueuedTick:   tick,
		Location:     location,
		HighPriority: highPriority,
		EvidenceID:   evidenceID,
		CallerID:     callerID,
	}
	if evidenceID != "" {
		c.called[evidenceID] = entry.ID
	}
	caller := logging.WorldRef()
	if callerID != "" {
		caller = logging.AgentRef(callerID)
	}
	dispatchlog.BackupQueued(ctx, c.pub, tick, caller, dispatchlog.BackupQueuedPayload{
		EntryID:      entry.ID,
		X:            location.X,
		Y:            location.Y,
		HighPriority: highPriority,
		ArrivalTick:  entry.ArrivalTick,
	}, nil)
	entry.Notified = true
	c.queue = append(c.queue, entry)
	return entry, true
}

// BackupCalled reports whether backup was already requested for evidenceID.
func (c *Coordinator) BackupCalled(evidenceID string) bool {
	_, ok := c.called[evidenceID]
	return ok
}

// ProcessQueue spawns every entry whose arrival tick has passed and keeps the
// rest. It returns the arrived entries in queue order.
func (c *Coordinator) ProcessQueue(ctx context.Context, now uint64, spawner Spawner) []Entry {
	if len(c.queue) == 0 {
		return nil
	}
	var arrived []Entry
	pending := c.queue[:0]
	for _, entry := range c.queue {
		if now < entry.ArrivalTick {
			pending = append(pending, entry)
			continue
		}
		arrived = append(arrived, entry)
	}
	for i := len(pending); i < len(c.queue); i++ {
		c.queue[i] = Entry{}
	}
	c.queue = pending

	for _, entry := range arrived {
		var spawned []string
		if spawner != nil {
			spawned = spawner.SpawnBackup(ctx, entry, c.cfg.WaveSize)
		}
		dispatchlog.BackupArrived(ctx, c.pub, now, dispatchlog.BackupArrivedPayload{
			EntryID:  entry.ID,
			X:        entry.Location.X,
			Y:        entry.Location.Y,
			Spawned:  spawned,
			Deferred: now - entry.QueuedTick,
		}, nil)
	}
	return arrived
}

// Pending returns a copy of the queued entries.
func (c *Coordinator) Pending() []Entry {
	return append([]Entry(nil), c.queue...)
}

// InvestigationResult publishes the outcome of an investigation.
func (c *Coordinator) InvestigationResult(ctx context.Context, tick uint64, agentID string, location world.Vec2, bodyFound bool) {
	dispatchlog.InvestigationResult(ctx, c.pub, tick, logging.AgentRef(agentID), dispatchlog.InvestigationResultPayload{
		X:         location.X,
		Y:         location.Y,
		BodyFound: bodyFound,
	}, nil)
}

// ScatterRadiusTiles is how far from the location a wave may spawn.
func (c *Coordinator) ScatterRadiusTiles() int {
	return c.cfg.ScatterRadiusTiles
}
