package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/gglang/the-voices-sub000/internal/net/proto"
	"github.com/gglang/the-voices-sub000/internal/sim"
)

type fakeQueue struct {
	err      error
	commands []sim.Command
}

func (f *fakeQueue) Enqueue(cmd sim.Command) error {
	f.commands = append(f.commands, cmd)
	return f.err
}

func TestStageClientCommandAcceptsKill(t *testing.T) {
	queue := &fakeQueue{}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{
		Queue: queue,
		Tick:  func() uint64 { return 42 },
		Now:   func() time.Time { return issuedAt },
	}

	cmd, ok, reason := StageClientCommand(ctx, proto.ClientMessage{Type: proto.TypeKill, AgentID: "civilian-1"})
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.Type != sim.CommandKill || cmd.AgentID != "civilian-1" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if cmd.OriginTick != 42 {
		t.Fatalf("expected OriginTick to be 42, got %d", cmd.OriginTick)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if len(queue.commands) != 1 {
		t.Fatalf("expected queue to record command, got %d", len(queue.commands))
	}
}

func TestStageClientCommandRejectsUnknownType(t *testing.T) {
	queue := &fakeQueue{}
	_, ok, reason := StageClientCommand(CommandContext{Queue: queue}, proto.ClientMessage{Type: "teleport"})
	if ok {
		t.Fatalf("expected unknown type to be rejected")
	}
	if reason != RejectInvalidCommand {
		t.Fatalf("expected reason %q, got %q", RejectInvalidCommand, reason)
	}
	if len(queue.commands) != 0 {
		t.Fatalf("expected nothing staged, got %d", len(queue.commands))
	}
}

func TestStageClientCommandReportsQueueFull(t *testing.T) {
	queue := &fakeQueue{err: sim.ErrQueueFull}
	_, ok, reason := StageClientCommand(CommandContext{Queue: queue}, proto.ClientMessage{Type: proto.TypeIllicitAct})
	if ok {
		t.Fatalf("expected full queue to reject")
	}
	if reason != RejectQueueFull {
		t.Fatalf("expected reason %q, got %q", RejectQueueFull, reason)
	}
}

func TestStageClientCommandOtherErrors(t *testing.T) {
	queue := &fakeQueue{err: errors.New("closed")}
	if _, _, reason := StageClientCommand(CommandContext{Queue: queue}, proto.ClientMessage{Type: proto.TypeIllicitAct}); reason != RejectUnavailable {
		t.Fatalf("expected reason %q, got %q", RejectUnavailable, reason)
	}
	if _, _, reason := StageClientCommand(CommandContext{}, proto.ClientMessage{Type: proto.TypeIllicitAct}); reason != RejectUnavailable {
		t.Fatalf("expected reason %q without a queue, got %q", RejectUnavailable, reason)
	}
}
