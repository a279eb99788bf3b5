// Package config holds the simulation tuning document. Values load from YAML,
// are validated against a schema reflected from the Go types, and overlay the
// built-in defaults.
package config

// Tuning is the full set of simulation constants.
type Tuning struct {
	TickRate int     `yaml:"tick_rate,omitempty" json:"tick_rate,omitempty" jsonschema:"minimum=1,maximum=240"`
	TileSize float64 `yaml:"tile_size,omitempty" json:"tile_size,omitempty" jsonschema:"minimum=0"`

	Planner    Planner    `yaml:"planner,omitempty" json:"planner,omitempty"`
	Movement   Movement   `yaml:"movement,omitempty" json:"movement,omitempty"`
	Civilian   Civilian   `yaml:"civilian,omitempty" json:"civilian,omitempty"`
	Enforcer   Enforcer   `yaml:"enforcer,omitempty" json:"enforcer,omitempty"`
	Companion  Companion  `yaml:"companion,omitempty" json:"companion,omitempty"`
	Vermin     Vermin     `yaml:"vermin,omitempty" json:"vermin,omitempty"`
	Threat     Threat     `yaml:"threat,omitempty" json:"threat,omitempty"`
	Dispatch   Dispatch   `yaml:"dispatch,omitempty" json:"dispatch,omitempty"`
	Population Population `yaml:"population,omitempty" json:"population,omitempty"`
}

type Planner struct {
	MaxExpansions    int     `yaml:"max_expansions,omitempty" json:"max_expansions,omitempty" jsonschema:"minimum=1"`
	NearTiles        int     `yaml:"near_tiles,omitempty" json:"near_tiles,omitempty" jsonschema:"minimum=0"`
	GoalSearchRadius int     `yaml:"goal_search_radius,omitempty" json:"goal_search_radius,omitempty" jsonschema:"minimum=1"`
	OffRoadPenalty   float64 `yaml:"off_road_penalty,omitempty" json:"off_road_penalty,omitempty" jsonschema:"minimum=1"`
}

type Movement struct {
	WaypointRadius        float64 `yaml:"waypoint_radius,omitempty" json:"waypoint_radius,omitempty" jsonschema:"minimum=0"`
	ArriveRadius          float64 `yaml:"arrive_radius,omitempty" json:"arrive_radius,omitempty" jsonschema:"minimum=0"`
	StuckEpsilon          float64 `yaml:"stuck_epsilon,omitempty" json:"stuck_epsilon,omitempty" jsonschema:"minimum=0"`
	StuckTimeoutTicks     int     `yaml:"stuck_timeout_ticks,omitempty" json:"stuck_timeout_ticks,omitempty" jsonschema:"minimum=1"`
	StuckEscalateEpisodes int     `yaml:"stuck_escalate_episodes,omitempty" json:"stuck_escalate_episodes,omitempty" jsonschema:"minimum=1"`
	ChaseReplanTicks      int     `yaml:"chase_replan_ticks,omitempty" json:"chase_replan_ticks,omitempty" jsonschema:"minimum=1"`
	SnapRadius            int     `yaml:"snap_radius,omitempty" json:"snap_radius,omitempty" jsonschema:"minimum=1"`
}

// Follow configures the follow/stop ladder shared by civilians and companions.
type Follow struct {
	ThresholdTiles []float64 `yaml:"threshold_tiles,omitempty" json:"threshold_tiles,omitempty" jsonschema:"minItems=3,maxItems=3"`
	StopChances    []float64 `yaml:"stop_chances,omitempty" json:"stop_chances,omitempty" jsonschema:"minItems=3,maxItems=3"`
	MaxTiles       float64   `yaml:"max_tiles,omitempty" json:"max_tiles,omitempty" jsonschema:"minimum=0"`
	GapTiles       float64   `yaml:"gap_tiles,omitempty" json:"gap_tiles,omitempty" jsonschema:"minimum=0"`
	ConfusedTicks  uint64    `yaml:"confused_ticks,omitempty" json:"confused_ticks,omitempty" jsonschema:"minimum=1"`
}

type Civilian struct {
	Speed             float64 `yaml:"speed,omitempty" json:"speed,omitempty" jsonschema:"minimum=0"`
	FleeSpeed         float64 `yaml:"flee_speed,omitempty" json:"flee_speed,omitempty" jsonschema:"minimum=0"`
	DetectionRadius   float64 `yaml:"detection_radius,omitempty" json:"detection_radius,omitempty" jsonschema:"minimum=0"`
	WitnessRadius     float64 `yaml:"witness_radius,omitempty" json:"witness_radius,omitempty" jsonschema:"minimum=0"`
	HazardSightRadius float64 `yaml:"hazard_sight_radius,omitempty" json:"hazard_sight_radius,omitempty" jsonschema:"minimum=0"`
	FleeDistance      float64 `yaml:"flee_distance,omitempty" json:"flee_distance,omitempty" jsonschema:"minimum=0"`
	CalmTicks         uint64  `yaml:"calm_ticks,omitempty" json:"calm_ticks,omitempty" jsonschema:"minimum=1"`
	WaitMinTicks      uint64  `yaml:"wait_min_ticks,omitempty" json:"wait_min_ticks,omitempty"`
	WaitMaxTicks      uint64  `yaml:"wait_max_ticks,omitempty" json:"wait_max_ticks,omitempty"`
	HomeWeight        float64 `yaml:"home_weight,omitempty" json:"home_weight,omitempty" jsonschema:"minimum=0,maximum=1"`
	PublicWeight      float64 `yaml:"public_weight,omitempty" json:"public_weight,omitempty" jsonschema:"minimum=0,maximum=1"`
	CommerceWeight    float64 `yaml:"commerce_weight,omitempty" json:"commerce_weight,omitempty" jsonschema:"minimum=0,maximum=1"`
	PublicRadiusTiles float64 `yaml:"public_radius_tiles,omitempty" json:"public_radius_tiles,omitempty" jsonschema:"minimum=0"`
	Follow            Follow  `yaml:"follow,omitempty" json:"follow,omitempty"`
}

type Enforcer struct {
	Speed             float64 `yaml:"speed,omitempty" json:"speed,omitempty" jsonschema:"minimum=0"`
	ChaseSpeed        float64 `yaml:"chase_speed,omitempty" json:"chase_speed,omitempty" jsonschema:"minimum=0"`
	RoadBias          float64 `yaml:"road_bias,omitempty" json:"road_bias,omitempty" jsonschema:"minimum=0,maximum=1"`
	WanderRadiusTiles float64 `yaml:"wander_radius_tiles,omitempty" json:"wander_radius_tiles,omitempty" jsonschema:"minimum=0"`
	SightRadius       float64 `yaml:"sight_radius,omitempty" json:"sight_radius,omitempty" jsonschema:"minimum=0"`
	HazardSightRadius float64 `yaml:"hazard_sight_radius,omitempty" json:"hazard_sight_radius,omitempty" jsonschema:"minimum=0"`
	CloseRadius       float64 `yaml:"close_radius,omitempty" json:"close_radius,omitempty" jsonschema:"minimum=0"`
	CaptureTicks      int     `yaml:"capture_ticks,omitempty" json:"capture_ticks,omitempty" jsonschema:"minimum=1"`
	SearchTicks       uint64  `yaml:"search_ticks,omitempty" json:"search_ticks,omitempty" jsonschema:"minimum=1"`
	InvestigateTicks  uint64  `yaml:"investigate_ticks,omitempty" json:"investigate_ticks,omitempty" jsonschema:"minimum=1"`
	WaitMinTicks      uint64  `yaml:"wait_min_ticks,omitempty" json:"wait_min_ticks,omitempty"`
	WaitMaxTicks      uint64  `yaml:"wait_max_ticks,omitempty" json:"wait_max_ticks,omitempty"`
}

type Companion struct {
	Speed         float64 `yaml:"speed,omitempty" json:"speed,omitempty" jsonschema:"minimum=0"`
	FleeSpeed     float64 `yaml:"flee_speed,omitempty" json:"flee_speed,omitempty" jsonschema:"minimum=0"`
	WitnessRadius float64 `yaml:"witness_radius,omitempty" json:"witness_radius,omitempty" jsonschema:"minimum=0"`
	FleeDistance  float64 `yaml:"flee_distance,omitempty" json:"flee_distance,omitempty" jsonschema:"minimum=0"`
	CalmTicks     uint64  `yaml:"calm_ticks,omitempty" json:"calm_ticks,omitempty" jsonschema:"minimum=1"`
	WanderRadius  float64 `yaml:"wander_radius,omitempty" json:"wander_radius,omitempty" jsonschema:"minimum=0"`
	WaitMinTicks  uint64  `yaml:"wait_min_ticks,omitempty" json:"wait_min_ticks,omitempty"`
	WaitMaxTicks  uint64  `yaml:"wait_max_ticks,omitempty" json:"wait_max_ticks,omitempty"`
	Follow        Follow  `yaml:"follow,omitempty" json:"follow,omitempty"`
}

type Vermin struct {
	Speed        float64 `yaml:"speed,omitempty" json:"speed,omitempty" jsonschema:"minimum=0"`
	FleeSpeed    float64 `yaml:"flee_speed,omitempty" json:"flee_speed,omitempty" jsonschema:"minimum=0"`
	FleeRadius   float64 `yaml:"flee_radius,omitempty" json:"flee_radius,omitempty" jsonschema:"minimum=0"`
	FleeDistance float64 `yaml:"flee_distance,omitempty" json:"flee_distance,omitempty" jsonschema:"minimum=0"`
	CalmTicks    uint64  `yaml:"calm_ticks,omitempty" json:"calm_ticks,omitempty" jsonschema:"minimum=1"`
	WanderRadius float64 `yaml:"wander_radius,omitempty" json:"wander_radius,omitempty" jsonschema:"minimum=0"`
	WaitMinTicks uint64  `yaml:"wait_min_ticks,omitempty" json:"wait_min_ticks,omitempty"`
	WaitMaxTicks uint64  `yaml:"wait_max_ticks,omitempty" json:"wait_max_ticks,omitempty"`
}

type Threat struct {
	IllicitActTicks uint64 `yaml:"illicit_act_ticks,omitempty" json:"illicit_act_ticks,omitempty" jsonschema:"minimum=1"`
}

type Dispatch struct {
	MaxResponders      int     `yaml:"max_responders,omitempty" json:"max_responders,omitempty" jsonschema:"minimum=1"`
	MaxAlertRadius     float64 `yaml:"max_alert_radius,omitempty" json:"max_alert_radius,omitempty" jsonschema:"minimum=0"`
	BackupDelayTicks   uint64  `yaml:"backup_delay_ticks,omitempty" json:"backup_delay_ticks,omitempty" jsonschema:"minimum=1"`
	WaveSize           int     `yaml:"wave_size,omitempty" json:"wave_size,omitempty" jsonschema:"minimum=1"`
	ScatterRadiusTiles int     `yaml:"scatter_radius_tiles,omitempty" json:"scatter_radius_tiles,omitempty" jsonschema:"minimum=1"`
}

// Population controls how a layout is seeded.
type Population struct {
	CiviliansPerBuilding int `yaml:"civilians_per_building,omitempty" json:"civilians_per_building,omitempty" jsonschema:"minimum=0"`
	VerminPerNest        int `yaml:"vermin_per_nest,omitempty" json:"vermin_per_nest,omitempty" jsonschema:"minimum=0"`
}

// Default returns the built-in tuning at 30 ticks per second.
func Default() Tuning {
	return Tuning{
		TickRate: 30,
		TileSize: 32,
		Planner: Planner{
			MaxExpansions:    500,
			NearTiles:        2,
			GoalSearchRadius: 7,
			OffRoadPenalty:   8,
		},
		Movement: Movement{
			WaypointRadius:        6,
			ArriveRadius:          10,
			StuckEpsilon:          0.25,
			StuckTimeoutTicks:     20,
			StuckEscalateEpisodes: 3,
			ChaseReplanTicks:      15,
			SnapRadius:            12,
		},
		Civilian: Civilian{
			Speed:             1.2,
			FleeSpeed:         2.4,
			DetectionRadius:   192,
			WitnessRadius:     224,
			HazardSightRadius: 160,
			FleeDistance:      256,
			CalmTicks:         150,
			WaitMinTicks:      30,
			WaitMaxTicks:      120,
			HomeWeight:        0.85,
			PublicWeight:      0.10,
			CommerceWeight:    0.05,
			PublicRadiusTiles: 4,
			Follow:            defaultFollow(),
		},
		Enforcer: Enforcer{
			Speed:             1.4,
			ChaseSpeed:        2.6,
			RoadBias:          0.8,
			WanderRadiusTiles: 10,
			SightRadius:       256,
			HazardSightRadius: 192,
			CloseRadius:       40,
			CaptureTicks:      45,
			SearchTicks:       90,
			InvestigateTicks:  60,
			WaitMinTicks:      20,
			WaitMaxTicks:      90,
		},
		Companion: Companion{
			Speed:         1.3,
			FleeSpeed:     2.8,
			WitnessRadius: 192,
			FleeDistance:  224,
			CalmTicks:     120,
			WanderRadius:  128,
			WaitMinTicks:  20,
			WaitMaxTicks:  80,
			Follow:        defaultFollow(),
		},
		Vermin: Vermin{
			Speed:        0.9,
			FleeSpeed:    2.0,
			FleeRadius:   140,
			FleeDistance: 160,
			CalmTicks:    60,
			WanderRadius: 200,
			WaitMinTicks: 20,
			WaitMaxTicks: 60,
		},
		Threat: Threat{
			IllicitActTicks: 90,
		},
		Dispatch: Dispatch{
			MaxResponders:      2,
			BackupDelayTicks:   300,
			WaveSize:           3,
			ScatterRadiusTiles: 3,
		},
		Population: Population{
			CiviliansPerBuilding: 1,
			VerminPerNest:        2,
		},
	}
}

func defaultFollow() Follow {
	return Follow{
		ThresholdTiles: []float64{5, 10, 15},
		StopChances:    []float64{0.1, 0.3, 0.5},
		MaxTiles:       20,
		GapTiles:       1.5,
		ConfusedTicks:  45,
	}
}

// Normalized fills zero values from Default so partial documents and
// hand-built structs are always usable.
func (t Tuning) Normalized() Tuning {
	def := Default()
	if t.TickRate <= 0 {
		t.TickRate = def.TickRate
	}
	if t.TileSize <= 0 {
		t.TileSize = def.TileSize
	}
	// NearTiles and RoadBias treat 0 as a real setting, so they only take
	// the default along with the rest of an absent section.
	if t.Planner == (Planner{}) {
		t.Planner = def.Planner
	}
	fillInt(&t.Planner.MaxExpansions, def.Planner.MaxExpansions)
	fillInt(&t.Planner.GoalSearchRadius, def.Planner.GoalSearchRadius)
	fillFloat(&t.Planner.OffRoadPenalty, def.Planner.OffRoadPenalty)
	if t.Planner.NearTiles < 0 {
		t.Planner.NearTiles = 0
	}

	m := &t.Movement
	fillFloat(&m.WaypointRadius, def.Movement.WaypointRadius)
	fillFloat(&m.ArriveRadius, def.Movement.ArriveRadius)
	fillFloat(&m.StuckEpsilon, def.Movement.StuckEpsilon)
	fillInt(&m.StuckTimeoutTicks, def.Movement.StuckTimeoutTicks)
	fillInt(&m.StuckEscalateEpisodes, def.Movement.StuckEscalateEpisodes)
	fillInt(&m.ChaseReplanTicks, def.Movement.ChaseReplanTicks)
	fillInt(&m.SnapRadius, def.Movement.SnapRadius)

	c := &t.Civilian
	fillFloat(&c.Speed, def.Civilian.Speed)
	fillFloat(&c.FleeSpeed, def.Civilian.FleeSpeed)
	fillFloat(&c.DetectionRadius, def.Civilian.DetectionRadius)
	fillFloat(&c.WitnessRadius, def.Civilian.WitnessRadius)
	fillFloat(&c.HazardSightRadius, def.Civilian.HazardSightRadius)
	fillFloat(&c.FleeDistance, def.Civilian.FleeDistance)
	fillUint(&c.CalmTicks, def.Civilian.CalmTicks)
	fillWait(&c.WaitMinTicks, &c.WaitMaxTicks, def.Civilian.WaitMinTicks, def.Civilian.WaitMaxTicks)
	if c.HomeWeight+c.PublicWeight+c.CommerceWeight <= 0 {
		c.HomeWeight, c.PublicWeight, c.CommerceWeight = def.Civilian.HomeWeight, def.Civilian.PublicWeight, def.Civilian.CommerceWeight
	}
	fillFloat(&c.PublicRadiusTiles, def.Civilian.PublicRadiusTiles)
	c.Follow = c.Follow.normalized()

	if t.Enforcer == (Enforcer{}) {
		t.Enforcer = def.Enforcer
	}
	e := &t.Enforcer
	fillFloat(&e.Speed, def.Enforcer.Speed)
	fillFloat(&e.ChaseSpeed, def.Enforcer.ChaseSpeed)
	e.RoadBias = min(max(e.RoadBias, 0), 1)
	fillFloat(&e.WanderRadiusTiles, def.Enforcer.WanderRadiusTiles)
	fillFloat(&e.SightRadius, def.Enforcer.SightRadius)
	fillFloat(&e.HazardSightRadius, def.Enforcer.HazardSightRadius)
	fillFloat(&e.CloseRadius, def.Enforcer.CloseRadius)
	fillInt(&e.CaptureTicks, def.Enforcer.CaptureTicks)
	fillUint(&e.SearchTicks, def.Enforcer.SearchTicks)
	fillUint(&e.InvestigateTicks, def.Enforcer.InvestigateTicks)
	fillWait(&e.WaitMinTicks, &e.WaitMaxTicks, def.Enforcer.WaitMinTicks, def.Enforcer.WaitMaxTicks)

	p := &t.Companion
	fillFloat(&p.Speed, def.Companion.Speed)
	fillFloat(&p.FleeSpeed, def.Companion.FleeSpeed)
	fillFloat(&p.WitnessRadius, def.Companion.WitnessRadius)
	fillFloat(&p.FleeDistance, def.Companion.FleeDistance)
	fillUint(&p.CalmTicks, def.Companion.CalmTicks)
	fillFloat(&p.WanderRadius, def.Companion.WanderRadius)
	fillWait(&p.WaitMinTicks, &p.WaitMaxTicks, def.Companion.WaitMinTicks, def.Companion.WaitMaxTicks)
	p.Follow = p.Follow.normalized()

	v := &t.Vermin
	fillFloat(&v.Speed, def.Vermin.Speed)
	fillFloat(&v.FleeSpeed, def.Vermin.FleeSpeed)
	fillFloat(&v.FleeRadius, def.Vermin.FleeRadius)
	fillFloat(&v.FleeDistance, def.Vermin.FleeDistance)
	fillUint(&v.CalmTicks, def.Vermin.CalmTicks)
	fillFloat(&v.WanderRadius, def.Vermin.WanderRadius)
	fillWait(&v.WaitMinTicks, &v.WaitMaxTicks, def.Vermin.WaitMinTicks, def.Vermin.WaitMaxTicks)

	fillUint(&t.Threat.IllicitActTicks, def.Threat.IllicitActTicks)

	d := &t.Dispatch
	fillInt(&d.MaxResponders, def.Dispatch.MaxResponders)
	fillUint(&d.BackupDelayTicks, def.Dispatch.BackupDelayTicks)
	fillInt(&d.WaveSize, def.Dispatch.WaveSize)
	fillInt(&d.ScatterRadiusTiles, def.Dispatch.ScatterRadiusTiles)
	if d.MaxAlertRadius < 0 {
		d.MaxAlertRadius = 0
	}

	if t.Population.CiviliansPerBuilding <= 0 && t.Population.VerminPerNest <= 0 {
		t.Population = def.Population
	}
	return t
}

func (f Follow) normalized() Follow {
	def := defaultFollow()
	if len(f.ThresholdTiles) != len(def.ThresholdTiles) {
		f.ThresholdTiles = def.ThresholdTiles
	}
	if len(f.StopChances) != len(def.StopChances) {
		f.StopChances = def.StopChances
	}
	fillFloat(&f.MaxTiles, def.MaxTiles)
	if f.GapTiles <= 0 {
		f.GapTiles = def.GapTiles
	}
	fillUint(&f.ConfusedTicks, def.ConfusedTicks)
	return f
}

func fillInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func fillUint(v *uint64, def uint64) {
	if *v == 0 {
		*v = def
	}
}

func fillFloat(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

func fillWait(min, max *uint64, defMin, defMax uint64) {
	if *min == 0 && *max == 0 {
		*min, *max = defMin, defMax
	}
	if *max < *min {
		*max = *min
	}
}
