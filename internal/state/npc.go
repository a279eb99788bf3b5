package state

// FollowThresholds is the number of follow stop rolls an agent makes.
const FollowThresholds = 3

// FollowProgress tracks distance walked while following the player. Each
// threshold roll happens at most once per follow episode.
type FollowProgress struct {
	Start     Vec2
	Travelled float64
	Rolled    [FollowThresholds]bool
	Stopped   bool
}

// Begin starts a new follow episode at pos.
func (f *FollowProgress) Begin(pos Vec2) {
	*f = FollowProgress{Start: pos}
}

// Social is the trust and custody memory shared by civilians and companions.
type Social struct {
	Lured      bool
	Captured   bool
	Released   bool
	ReturnHome bool
	Follow     FollowProgress
}

// CivilianData is the civilian payload.
type CivilianData struct {
	Social
	HomeBuilding   string
	AlertEpisode   uint64
	LastThreatTick uint64
	ThreatFrom     Vec2
}

// Investigation is an enforcer's active disturbance assignment. Abandoned
// marks a leg given up after the enforcer got stuck on the way.
type Investigation struct {
	Location  Vec2
	HazardID  string
	Arrived   bool
	Done      bool
	Abandoned bool
}

// EnforcerData is the enforcer payload.
type EnforcerData struct {
	Post          Vec2
	Backup        bool
	PlayerVisible bool
	LastKnown     Vec2
	HasLastKnown  bool
	Searched      bool
	CloseTicks    int
	Caught        bool
	Investigation Investigation
}

// CompanionData is the companion animal payload.
type CompanionData struct {
	Social
	Home           Vec2
	FearsPlayer    bool
	LastThreatTick uint64
	ThreatFrom     Vec2
}

// VerminData is the vermin payload.
type VerminData struct {
	Origin     Vec2
	ThreatFrom Vec2
	FleeUntil  uint64
}
