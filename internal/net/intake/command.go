// Package intake validates client messages and stages them on the loop.
package intake

import (
	"errors"
	"time"

	"github.com/gglang/the-voices-sub000/internal/net/proto"
	"github.com/gglang/the-voices-sub000/internal/sim"
)

// Reject reasons reported to clients.
const (
	RejectInvalidCommand = "invalid_command"
	RejectQueueFull      = "queue_full"
	RejectUnavailable    = "unavailable"
)

// Enqueuer is the part of sim.Loop intake needs.
type Enqueuer interface {
	Enqueue(cmd sim.Command) error
}

type CommandContext struct {
	Queue Enqueuer
	Tick  func() uint64
	Now   func() time.Time
}

// StageClientCommand converts msg into a simulation command and stages it
// for the next tick. The returned reason is empty on success.
func StageClientCommand(ctx CommandContext, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidCommand
	}

	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Queue == nil {
		return zero, false, RejectUnavailable
	}
	if err := ctx.Queue.Enqueue(command); err != nil {
		if errors.Is(err, sim.ErrQueueFull) {
			return zero, false, RejectQueueFull
		}
		return zero, false, RejectUnavailable
	}
	return command, true, ""
}
