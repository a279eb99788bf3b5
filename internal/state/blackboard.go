package state

// Blackboard stores per-agent runtime memory shared by every behaviour.
type Blackboard struct {
	Initialized      bool
	StateEnteredTick uint64

	Waiting  bool
	WaitTask uint64

	Arrived bool

	LastPos       Vec2
	StuckTicks    int
	StuckEpisodes int
	StuckCount    int
}

// ResetStuck clears the stuck ladder after progress or a forced recovery.
func (b *Blackboard) ResetStuck() {
	b.StuckTicks = 0
	b.StuckEpisodes = 0
}
