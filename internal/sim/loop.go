package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/simulation"
)

var ErrQueueFull = errors.New("sim: command queue full")

const (
	metricTickOverruns = "sim_tick_budget_overrun_total"
	metricTickStreak   = "sim_tick_budget_overrun_streak"
	metricTicks        = "sim_ticks_total"
)

// LoopConfig tunes the command buffer and tick loop.
type LoopConfig struct {
	TickRate        int
	CommandCapacity int
}

// LoopHooks observe the loop. AfterStep runs on the loop goroutine with the
// engine unlocked.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnCommandError func(error)
}

// LoopStepResult summarises one advanced tick.
type LoopStepResult struct {
	Tick     uint64
	Snapshot Snapshot
	Commands []Command
	Duration time.Duration
	Budget   time.Duration
	Overrun  bool
}

// Loop owns the engine for concurrent hosts: commands are staged in a ring
// buffer and applied just before each step, and every engine access takes
// the same mutex.
type Loop struct {
	mu      sync.Mutex
	engine  *Engine
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	pub     logging.Publisher
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	streak uint64
}

func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = engine.tuning.TickRate
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 256
	}
	return &Loop{
		engine:  engine,
		buffer:  NewCommandBuffer(cfg.CommandCapacity, engine.metrics),
		hooks:   hooks,
		config:  cfg,
		pub:     engine.pub,
		logger:  engine.logger,
		metrics: engine.metrics,
		clock:   logging.ClockFunc(time.Now),
	}
}

// Enqueue stages a command for the next tick.
func (l *Loop) Enqueue(cmd Command) error {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = l.clock.Now()
	}
	if !l.buffer.Push(cmd) {
		return ErrQueueFull
	}
	return nil
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	return l.buffer.Len()
}

// Do runs fn with exclusive access to the engine.
func (l *Loop) Do(fn func(*Engine) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.engine)
}

func (l *Loop) Tick() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Tick()
}

func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Snapshot()
}

// Advance applies staged commands and steps the engine once.
func (l *Loop) Advance(ctx context.Context) LoopStepResult {
	commands := l.buffer.Drain()
	l.mu.Lock()
	if err := l.engine.Apply(ctx, commands); err != nil {
		if l.hooks.OnCommandError != nil {
			l.hooks.OnCommandError(err)
		} else {
			l.logger.Printf("rejected commands: %v", err)
		}
	}
	l.engine.Step(ctx)
	result := LoopStepResult{
		Tick:     l.engine.Tick(),
		Snapshot: l.engine.Snapshot(),
		Commands: commands,
	}
	l.mu.Unlock()
	l.metrics.Add(metricTicks, 1)
	return result
}

// Run steps at TickRate until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	budget := time.Second / time.Duration(l.config.TickRate)
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := l.clock.Now()
			result := l.Advance(ctx)
			result.Duration = l.clock.Now().Sub(start)
			result.Budget = budget
			result.Overrun = l.recordBudget(ctx, result)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

// recordBudget tracks consecutive overruns and publishes one event per
// overrunning tick.
func (l *Loop) recordBudget(ctx context.Context, result LoopStepResult) bool {
	if result.Budget <= 0 || result.Duration <= result.Budget {
		if l.streak > 0 {
			l.streak = 0
			l.metrics.Store(metricTickStreak, 0)
		}
		return false
	}
	l.streak++
	l.metrics.Add(metricTickOverruns, 1)
	l.metrics.Store(metricTickStreak, l.streak)
	simulation.TickBudgetOverrun(ctx, l.pub, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.streak,
		Agents:         len(result.Snapshot.Agents),
	}, nil)
	return true
}
