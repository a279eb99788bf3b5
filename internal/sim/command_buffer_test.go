package sim

import (
	"testing"

	"github.com/gglang/the-voices-sub000/internal/telemetry"
)

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{AgentID: "a"},
		{AgentID: "b"},
		{AgentID: "c"},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{AgentID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.AgentID != cmds[i].AgentID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].AgentID, cmd.AgentID)
		}
	}
	for _, cmd := range []Command{{AgentID: "d"}, {AgentID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].AgentID != "d" || wrapped[1].AgentID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflowMetrics(t *testing.T) {
	metrics := telemetry.NewCounters()
	buffer := NewCommandBuffer(1, metrics)
	if !buffer.Push(Command{AgentID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{AgentID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	snap := metrics.Snapshot()
	if snap[metricCommandOverflow] != 1 {
		t.Fatalf("expected 1 overflow, got %d", snap[metricCommandOverflow])
	}
	if snap[metricCommandOccupancy] != 1 {
		t.Fatalf("expected occupancy 1, got %d", snap[metricCommandOccupancy])
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].AgentID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
	if got := metrics.Snapshot()[metricCommandOccupancy]; got != 0 {
		t.Fatalf("expected occupancy 0 after drain, got %d", got)
	}
	if buffer.Drain() != nil {
		t.Fatalf("expected empty drain to return nil")
	}
}
