package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging/detection"
	dispatchlog "github.com/gglang/the-voices-sub000/logging/dispatch"
)

func TestCivilianFollowStopsAtMaxTiles(t *testing.T) {
	tuning := config.Default()
	tuning.Civilian.Follow.StopChances = []float64{0, 0, 0}
	h := newHarness(t, openGrid(80, 5), tuning)
	civ := h.add("c1", state.KindCivilian, 2, 2)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(5, 2)}

	if err := Apply(civ, ActionLure); err != nil {
		t.Fatalf("lure failed: %v", err)
	}

	tile := h.grid.TileSize()
	for i := 0; i < 1200; i++ {
		h.player.Position.X++
		h.step()
		if civ.State == state.StateConfused {
			tiles := civ.Civilian.Follow.Travelled / tile
			if tiles < 20 || tiles > 21 {
				t.Fatalf("expected to stop after 20 tiles, travelled %.2f", tiles)
			}
			if civ.Civilian.Lured {
				t.Fatalf("expected lure to end once confused")
			}
			return
		}
		if civ.State != state.StateFollowing {
			t.Fatalf("expected following at tick %d, got %s", h.tick, civ.State)
		}
	}
	t.Fatalf("civilian never gave up following")
}

func TestCivilianFollowStopsAtFirstThreshold(t *testing.T) {
	tuning := config.Default()
	tuning.Civilian.Follow.StopChances = []float64{1, 0, 0}
	h := newHarness(t, openGrid(80, 5), tuning)
	civ := h.add("c1", state.KindCivilian, 2, 2)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(5, 2)}
	Apply(civ, ActionLure)

	tile := h.grid.TileSize()
	h.runUntil(1200, func() bool {
		h.player.Position.X++
		return civ.State == state.StateConfused
	})
	follow := civ.Civilian.Follow
	tiles := follow.Travelled / tile
	if tiles < 5 || tiles >= 6 {
		t.Fatalf("expected to stop just past 5 tiles, travelled %.2f", tiles)
	}
	if got := follow.Rolled; got != [state.FollowThresholds]bool{true, false, false} {
		t.Fatalf("expected only the first threshold rolled, got %v", got)
	}
}

func TestCivilianConfusionReturnsToWandering(t *testing.T) {
	h := newHarness(t, openGrid(20, 20), config.Default())
	civ := h.add("c1", state.KindCivilian, 5, 5)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(9, 5)}
	Apply(civ, ActionLure)
	h.step()
	if civ.State != state.StateFollowing {
		t.Fatalf("expected following, got %s", civ.State)
	}

	h.player.Present = false
	h.step()
	if civ.State != state.StateConfused {
		t.Fatalf("expected confused once the player is gone, got %s", civ.State)
	}
	h.runUntil(int(h.tuning.Civilian.Follow.ConfusedTicks)+5, func() bool {
		return civ.State == state.StateWandering
	})
}

func TestCivilianWitnessFleesAndAlertsOnce(t *testing.T) {
	h := newHarness(t, openGrid(40, 20), config.Default())
	civ := h.add("c1", state.KindCivilian, 10, 10)
	h.add("e1", state.KindEnforcer, 35, 10)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(13, 10), PerformingIllicitAct: true}

	h.step()
	if civ.State != state.StateFleeing {
		t.Fatalf("expected fleeing after witnessing, got %s", civ.State)
	}
	if !h.threat.Identified() {
		t.Fatalf("expected player identified")
	}
	if _, ok := h.disp.Assignment("e1"); !ok {
		t.Fatalf("expected e1 dispatched to the disturbance")
	}

	for i := 0; i < 50; i++ {
		h.step()
	}
	if n := len(h.events.EventsOfType(dispatchlog.EventDisturbanceRaised)); n != 1 {
		t.Fatalf("expected one disturbance per episode, got %d", n)
	}
	if n := len(h.events.EventsOfType(detection.EventPlayerIdentified)); n != 1 {
		t.Fatalf("expected one identification event, got %d", n)
	}
	if world.Distance(civ.Position, h.player.Position) <= 3*h.grid.TileSize() {
		t.Fatalf("expected civilian to put distance between itself and the player, at %v", civ.Position)
	}
}

func TestCapturedCivilianIsImprisonedUntilReleased(t *testing.T) {
	h := newHarness(t, openGrid(10, 10), config.Default())
	civ := h.add("c1", state.KindCivilian, 5, 5)
	h.step()

	Apply(civ, ActionCapture)
	h.step()
	if civ.State != state.StateImprisoned {
		t.Fatalf("expected imprisoned, got %s", civ.State)
	}
	h.step()
	if civ.State != state.StateImprisoned {
		t.Fatalf("expected to stay imprisoned, got %s", civ.State)
	}

	if err := Apply(civ, ActionRelease); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	h.step()
	if civ.State != state.StateWandering {
		t.Fatalf("expected wandering after release, got %s", civ.State)
	}
}

// boxedEnforcer places an enforcer in a single open tile so it cannot
// wander away from the player.
func boxedEnforcer(t *testing.T) (*harness, *state.Agent) {
	grid := world.NewGrid(5, 5, world.DefaultTileSize)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if x != 2 || y != 2 {
				grid.Set(x, y, world.Cell{Kind: world.CellBlocked})
			}
		}
	}
	h := newHarness(t, grid, config.Default())
	e := h.add("e1", state.KindEnforcer, 2, 2)
	h.player = state.PlayerSnapshot{Present: true, Position: e.Position.Add(Vec2{X: 8})}
	return h, e
}

func TestEnforcerCloseTimerCatchesWithoutIdentification(t *testing.T) {
	h, e := boxedEnforcer(t)
	capture := h.tuning.Enforcer.CaptureTicks

	for i := 1; i < capture; i++ {
		h.step()
	}
	if len(h.caught) != 0 {
		t.Fatalf("expected no catch before %d ticks, got %v", capture, h.caught)
	}
	h.step()
	if len(h.caught) != 1 || h.caught[0] != "e1" {
		t.Fatalf("expected e1 to catch the player, got %v", h.caught)
	}
	if h.threat.Identified() {
		t.Fatalf("expected catch without identification")
	}

	for i := 0; i < 10; i++ {
		h.step()
	}
	if len(h.caught) != 1 {
		t.Fatalf("expected a single catch, got %d", len(h.caught))
	}
	if n := len(h.events.EventsOfType(detection.EventPlayerCaught)); n != 1 {
		t.Fatalf("expected one caught event, got %d", n)
	}
	if !e.Enforcer.Caught {
		t.Fatalf("expected caught flag on enforcer")
	}
}

func TestEnforcerCloseTimerResetsWhenPlayerLeaves(t *testing.T) {
	h, _ := boxedEnforcer(t)
	capture := h.tuning.Enforcer.CaptureTicks

	for i := 0; i < capture-5; i++ {
		h.step()
	}
	h.player.Present = false
	h.step()
	h.player.Present = true
	for i := 1; i < capture; i++ {
		h.step()
	}
	if len(h.caught) != 0 {
		t.Fatalf("expected timer reset after losing the player, caught %v", h.caught)
	}
	h.step()
	if len(h.caught) != 1 {
		t.Fatalf("expected catch after a full uninterrupted window, got %d", len(h.caught))
	}
}

func TestEnforcersInvestigateAndCallBackupOnce(t *testing.T) {
	h := newHarness(t, openGrid(20, 10), config.Default())
	e1 := h.add("e1", state.KindEnforcer, 2, 2)
	e2 := h.add("e2", state.KindEnforcer, 2, 3)
	h.hazards = []state.Hazard{{ID: "body-1", Kind: state.HazardBody, Position: h.grid.TileCenter(7, 2)}}

	h.step()
	if e1.State != state.StateInvestigating || e2.State != state.StateInvestigating {
		t.Fatalf("expected both enforcers investigating, got %s and %s", e1.State, e2.State)
	}
	if n := len(h.events.EventsOfType(detection.EventHazardReported)); n != 1 {
		t.Fatalf("expected one hazard report, got %d", n)
	}

	h.runUntil(600, func() bool {
		return len(h.events.EventsOfType(dispatchlog.EventInvestigationResult)) == 2
	})

	pending := h.disp.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected one backup entry, got %d", len(pending))
	}
	if pending[0].EvidenceID != "body-1" {
		t.Fatalf("expected backup for body-1, got %q", pending[0].EvidenceID)
	}
	for _, ev := range h.events.EventsOfType(dispatchlog.EventInvestigationResult) {
		payload, ok := ev.Payload.(dispatchlog.InvestigationResultPayload)
		if !ok || !payload.BodyFound {
			t.Fatalf("expected body found, got %#v", ev.Payload)
		}
	}
	if len(h.disp.Assignments()) != 0 {
		t.Fatalf("expected assignments released, got %v", h.disp.Assignments())
	}

	h.runUntil(int(h.tuning.Enforcer.InvestigateTicks)+5, func() bool {
		return e1.State == state.StateWandering && e2.State == state.StateWandering
	})
}

func TestEnforcerSkipsBackupWhenEvidenceIsGone(t *testing.T) {
	h := newHarness(t, openGrid(20, 10), config.Default())
	h.add("e1", state.KindEnforcer, 2, 2)
	h.hazards = []state.Hazard{{ID: "body-1", Kind: state.HazardBody, Position: h.grid.TileCenter(7, 2)}}

	h.step()
	h.hazards = nil
	h.runUntil(600, func() bool {
		return len(h.events.EventsOfType(dispatchlog.EventInvestigationResult)) == 1
	})
	if len(h.disp.Pending()) != 0 {
		t.Fatalf("expected no backup without evidence, got %v", h.disp.Pending())
	}
	ev := h.events.EventsOfType(dispatchlog.EventInvestigationResult)[0]
	if payload := ev.Payload.(dispatchlog.InvestigationResultPayload); payload.BodyFound {
		t.Fatalf("expected body not found")
	}
}

func TestEnforcerChasesThenSearchesLastKnown(t *testing.T) {
	h := newHarness(t, openGrid(20, 10), config.Default())
	e := h.add("e1", state.KindEnforcer, 2, 5)
	last := h.grid.TileCenter(6, 5)
	h.player = state.PlayerSnapshot{Present: true, Position: last, PerformingIllicitAct: true}

	h.step()
	if e.State != state.StateChasing {
		t.Fatalf("expected chasing an identified player, got %s", e.State)
	}
	for i := 0; i < 3; i++ {
		h.step()
	}

	h.player = state.PlayerSnapshot{}
	h.step()
	if e.State != state.StateGoingToLastKnown {
		t.Fatalf("expected going to last known after losing sight, got %s", e.State)
	}
	if e.Enforcer.LastKnown != last {
		t.Fatalf("expected last known %v, got %v", last, e.Enforcer.LastKnown)
	}
	h.runUntil(400, func() bool { return e.State == state.StateWandering })
	if !e.Enforcer.Searched {
		t.Fatalf("expected the last known position to be searched")
	}
	if world.Distance(e.Position, last) > h.tuning.Movement.ArriveRadius+h.tuning.Enforcer.Speed {
		t.Fatalf("expected search at %v, enforcer at %v", last, e.Position)
	}
}

func TestVerminFleeAndCalm(t *testing.T) {
	h := newHarness(t, openGrid(30, 30), config.Default())
	rat := h.add("v1", state.KindVermin, 15, 15)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(13, 15)}
	start := world.Distance(rat.Position, h.player.Position)

	h.step()
	if rat.State != state.StateFleeing {
		t.Fatalf("expected vermin to flee, got %s", rat.State)
	}
	if rat.Vermin.ThreatFrom != h.player.Position {
		t.Fatalf("expected threat recorded at %+v, got %+v", h.player.Position, rat.Vermin.ThreatFrom)
	}
	for i := 0; i < 20; i++ {
		h.step()
	}
	if d := world.Distance(rat.Position, h.player.Position); d <= start {
		t.Fatalf("expected vermin to move away, distance %.1f <= %.1f", d, start)
	}

	h.player.Present = false
	calmAt := rat.Vermin.FleeUntil
	h.runUntil(int(h.tuning.Vermin.CalmTicks)+5, func() bool { return rat.State == state.StateWandering })
	if h.tick < calmAt {
		t.Fatalf("expected flee to last until %d, calmed at %d", calmAt, h.tick)
	}
}

func TestVerminIgnoresOwnKind(t *testing.T) {
	h := newHarness(t, openGrid(20, 20), config.Default())
	a := h.add("v1", state.KindVermin, 10, 10)
	b := h.add("v2", state.KindVermin, 11, 10)
	h.step()
	if a.State != state.StateWandering || b.State != state.StateWandering {
		t.Fatalf("expected vermin to ignore each other, got %s and %s", a.State, b.State)
	}
}

func TestCompanionIgnoresIdentificationButFearsAfterRelease(t *testing.T) {
	h := newHarness(t, openGrid(40, 10), config.Default())
	pet := h.add("p1", state.KindCompanion, 5, 5)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(30, 5)}
	h.threat.MarkIdentified(context.Background(), 0, Vec2{}, "someone")

	h.step()
	if pet.State != state.StateWandering {
		t.Fatalf("expected identification alone not to scare a companion, got %s", pet.State)
	}

	Apply(pet, ActionCapture)
	h.step()
	if pet.State != state.StateImprisoned {
		t.Fatalf("expected imprisoned, got %s", pet.State)
	}
	if err := Apply(pet, ActionRelease); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	h.step()
	h.step()
	if pet.State != state.StateFleeing {
		t.Fatalf("expected released companion to flee a distant player, got %s", pet.State)
	}
	if !pet.Companion.FearsPlayer {
		t.Fatalf("expected permanent fear flag")
	}
}

func TestCompanionFleesWitnessedViolence(t *testing.T) {
	h := newHarness(t, openGrid(20, 10), config.Default())
	pet := h.add("p1", state.KindCompanion, 5, 5)
	h.player = state.PlayerSnapshot{Present: true, Position: h.grid.TileCenter(8, 5), CarryingEvidence: true}

	h.step()
	if pet.State != state.StateFleeing {
		t.Fatalf("expected companion to flee evidence, got %s", pet.State)
	}
	if h.threat.Identified() {
		t.Fatalf("companions never identify the player")
	}
}

func TestActionCapabilities(t *testing.T) {
	if !Supports(state.KindCivilian, ActionLure) || !Supports(state.KindCompanion, ActionRelease) {
		t.Fatalf("expected civilians and companions to accept social actions")
	}
	if len(Capabilities(state.KindEnforcer)) != 0 || len(Capabilities(state.KindVermin)) != 0 {
		t.Fatalf("expected enforcers and vermin to accept nothing")
	}

	e := state.NewAgent("e1", state.KindEnforcer, Vec2{})
	if err := Apply(e, ActionLure); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}

	c := state.NewAgent("c1", state.KindCivilian, Vec2{})
	if err := Apply(c, ActionRelease); !errors.Is(err, ErrActionRejected) {
		t.Fatalf("expected release of a free civilian to be rejected, got %v", err)
	}
	Apply(c, ActionCapture)
	if err := Apply(c, ActionLure); !errors.Is(err, ErrActionRejected) {
		t.Fatalf("expected lure of a captive to be rejected, got %v", err)
	}
	if err := Apply(c, ActionRelease); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	if !c.Civilian.ReturnHome || !c.Civilian.Released {
		t.Fatalf("expected released civilian to head home")
	}

	if kind, ok := ParseActionKind(" Capture "); !ok || kind != ActionCapture {
		t.Fatalf("expected capture, got %v %v", kind, ok)
	}
}
