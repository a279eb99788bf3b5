package ai

import (
	"context"
	"fmt"

	"github.com/gglang/the-voices-sub000/internal/config"
	"github.com/gglang/the-voices-sub000/internal/dispatch"
	"github.com/gglang/the-voices-sub000/internal/state"
	"github.com/gglang/the-voices-sub000/internal/threat"
	"github.com/gglang/the-voices-sub000/logging"
	"github.com/gglang/the-voices-sub000/logging/lifecycle"
)

// Transition moves an agent to To when When holds. Transitions are checked in
// order and the first match wins.
type Transition struct {
	When func(*Context) bool
	To   state.AIState
}

// StateSpec describes one behaviour state.
type StateSpec struct {
	Enter       func(*Context)
	Tick        func(*Context)
	Transitions []Transition
}

// Policy is the per-kind state table run by the Machine.
type Policy struct {
	Kind    state.AgentKind
	Initial state.AIState
	States  map[state.AIState]StateSpec
	// Perceive runs before transitions every update.
	Perceive func(*Context)
	// Recover runs when the stuck ladder escalates.
	Recover func(*Context)
}

// Deps are the collaborators shared by every policy.
type Deps struct {
	Runtime   *Runtime
	Threat    *threat.Coordinator
	Dispatch  *dispatch.Coordinator
	Publisher logging.Publisher
	Tuning    config.Tuning
	// OnCaught is called once when an enforcer's close-range timer fills.
	OnCaught func(ctx context.Context, enforcerID string, tick uint64)
}

// Context is what a policy callback sees during one agent update.
type Context struct {
	Ctx    context.Context
	Agent  *state.Agent
	View   *WorldView
	Tick   uint64
	RT     *Runtime
	Threat *threat.Coordinator
	Disp   *dispatch.Coordinator
	Tuning config.Tuning
	Pub    logging.Publisher

	machine *Machine
}

// TileSize is the grid's world units per tile.
func (c *Context) TileSize() float64 {
	if c.View != nil && c.View.Grid != nil {
		return c.View.Grid.TileSize()
	}
	return c.Tuning.TileSize
}

// Machine runs the per-kind policies.
type Machine struct {
	deps     Deps
	policies map[state.AgentKind]*Policy
}

// NewMachine registers the four built-in policies.
func NewMachine(deps Deps) *Machine {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	deps.Tuning = deps.Tuning.Normalized()
	m := &Machine{deps: deps, policies: make(map[state.AgentKind]*Policy)}
	m.Register(CivilianPolicy())
	m.Register(EnforcerPolicy())
	m.Register(CompanionPolicy())
	m.Register(VerminPolicy())
	return m
}

// Register installs or replaces the policy for p.Kind.
func (m *Machine) Register(p *Policy) {
	if p == nil {
		return
	}
	m.policies[p.Kind] = p
}

// Policy returns the registered policy for kind.
func (m *Machine) Policy(kind state.AgentKind) *Policy {
	return m.policies[kind]
}

func (m *Machine) context(ctx context.Context, agent *state.Agent, view *WorldView) *Context {
	return &Context{
		Ctx:     ctx,
		Agent:   agent,
		View:    view,
		Tick:    view.Tick,
		RT:      m.deps.Runtime,
		Threat:  m.deps.Threat,
		Disp:    m.deps.Dispatch,
		Tuning:  m.deps.Tuning,
		Pub:     m.deps.Publisher,
		machine: m,
	}
}

// Update advances one agent by one tick: perceive, take at most one
// transition, tick the current state, then track stuck progress.
func (m *Machine) Update(ctx context.Context, agent *state.Agent, view *WorldView) {
	if agent == nil || view == nil || !agent.Active() {
		return
	}
	policy := m.policies[agent.Kind]
	if policy == nil {
		return
	}
	c := m.context(ctx, agent, view)

	if !agent.Blackboard.Initialized {
		agent.Blackboard.Initialized = true
		agent.Blackboard.LastPos = agent.Position
		m.enter(c, policy, policy.Initial)
	}

	if policy.Perceive != nil {
		policy.Perceive(c)
	}
	if !agent.Active() {
		return
	}

	spec, ok := policy.States[agent.State]
	if !ok {
		m.enter(c, policy, policy.Initial)
		spec = policy.States[agent.State]
	}
	for _, t := range spec.Transitions {
		if t.When != nil && t.When(c) {
			if t.To != agent.State {
				m.enter(c, policy, t.To)
				spec = policy.States[agent.State]
			}
			break
		}
	}

	if spec.Tick != nil {
		spec.Tick(c)
	}

	if m.deps.Runtime.TrackStuck(agent, c.Tick) {
		lifecycle.AgentStuck(ctx, c.Pub, c.Tick, logging.AgentRef(agent.ID), lifecycle.AgentStuckPayload{
			Kind:     agent.Kind.String(),
			State:    agent.State.String(),
			X:        agent.Position.X,
			Y:        agent.Position.Y,
			Episodes: m.deps.Tuning.Movement.StuckEscalateEpisodes,
		}, nil)
		if policy.Recover != nil {
			policy.Recover(c)
		} else {
			agent.ClearTarget()
		}
	}
}

// enter switches agent to next and runs its Enter hook. Waits and routes from
// the previous state never carry over.
func (m *Machine) enter(c *Context, policy *Policy, next state.AIState) {
	agent := c.Agent
	prev := agent.State
	m.deps.Runtime.CancelWait(agent)
	agent.ClearTarget()
	agent.Blackboard.ResetStuck()
	agent.Blackboard.StateEnteredTick = c.Tick
	agent.State = next

	if prev != next {
		lifecycle.AgentStateChanged(c.Ctx, c.Pub, c.Tick, logging.AgentRef(agent.ID), lifecycle.AgentStateChangedPayload{
			Kind: agent.Kind.String(),
			From: prev.String(),
			To:   next.String(),
		}, nil)
	}
	spec, ok := policy.States[next]
	if !ok {
		panic(fmt.Sprintf("ai: %s policy has no state %s", policy.Kind, next))
	}
	if spec.Enter != nil {
		spec.Enter(c)
	}
}

func (m *Machine) caught(c *Context) {
	if m.deps.OnCaught != nil {
		m.deps.OnCaught(c.Ctx, c.Agent.ID, c.Tick)
	}
}
