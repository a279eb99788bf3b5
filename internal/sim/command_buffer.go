package sim

import (
	"sync"

	"github.com/gglang/the-voices-sub000/internal/telemetry"
)

const (
	metricCommandOccupancy = "sim_command_buffer_occupancy"
	metricCommandOverflow  = "sim_command_buffer_overflow_total"
)

// CommandBuffer is a fixed-size FIFO ring of staged commands. Producers may
// push from any goroutine; the loop drains once per tick.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	head    int
	size    int
	metrics telemetry.Metrics
}

func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{ring: make([]Command, capacity), metrics: metrics}
}

func (b *CommandBuffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Push appends cmd, reporting false when the ring is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.ring) {
		if b.metrics != nil {
			b.metrics.Add(metricCommandOverflow, 1)
		}
		return false
	}
	b.ring[(b.head+b.size)%len(b.ring)] = cmd
	b.size++
	b.recordLocked()
	return true
}

// Drain empties the ring, returning commands oldest first.
func (b *CommandBuffer) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, b.size)
	for i := range out {
		slot := (b.head + i) % len(b.ring)
		out[i] = b.ring[slot]
		b.ring[slot] = Command{}
	}
	b.head = (b.head + b.size) % len(b.ring)
	b.size = 0
	b.recordLocked()
	return out
}

func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *CommandBuffer) recordLocked() {
	if b.metrics != nil {
		b.metrics.Store(metricCommandOccupancy, uint64(b.size))
	}
}
