package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a configured edge may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects the edges of a machine before it is built
type StateMachineBuilder interface {
	// Configure returns the edge configuration for the given source state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration declares the edges leaving one state
type StateConfiguration interface {
	// Permit allows action to move the machine to toState
	Permit(action Action, toState State) StateConfiguration

	// PermitIf allows action to move the machine to toState when guard passes
	PermitIf(action Action, toState State, guard GuardFunc) StateConfiguration
}

// Edge is one permitted (from, action, to) triple
type Edge struct {
	From   State
	Action Action
	To     State
}

type edge struct {
	to    State
	guard GuardFunc
}

type stateConfig struct {
	from  State
	edges map[Action][]edge
}

type stateMachineBuilder struct {
	configs map[State]*stateConfig
}

type stateMachine struct {
	current State
	configs map[State]*stateConfig
}

// NewBuilder creates an empty builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configs: make(map[State]*stateConfig),
	}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	cfg, ok := b.configs[state]
	if !ok {
		cfg = &stateConfig{from: state, edges: make(map[Action][]edge)}
		b.configs[state] = cfg
	}
	return cfg
}

// Build copies the configured edges so later Configure calls never leak into built machines
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configs := make(map[State]*stateConfig, len(b.configs))
	for state, cfg := range b.configs {
		edges := make(map[Action][]edge, len(cfg.edges))
		for action, list := range cfg.edges {
			edges[action] = append([]edge(nil), list...)
		}
		configs[state] = &stateConfig{from: state, edges: edges}
	}

	return &stateMachine{current: initialState, configs: configs}
}

func (c *stateConfig) Permit(action Action, toState State) StateConfiguration {
	return c.PermitIf(action, toState, nil)
}

func (c *stateConfig) PermitIf(action Action, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if c.from.IsTerminal() {
		panic(fmt.Sprintf("terminal state %s cannot have outgoing edges", c.from))
	}

	c.edges[action] = append(c.edges[action], edge{to: toState, guard: guard})
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(action Action) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.edges[action]) > 0
}

func (m *stateMachine) Target(ctx context.Context, action Action) (State, error) {
	cfg, ok := m.configs[m.current]
	if !ok || len(cfg.edges[action]) == 0 {
		return "", fmt.Errorf("%w: cannot %s an expense in %s", ErrInvalidTransition, action, m.current)
	}

	for _, e := range cfg.edges[action] {
		if e.guard == nil || e.guard(ctx) {
			return e.to, nil
		}
	}
	return "", fmt.Errorf("%w: %s from %s", ErrGuardFailed, action, m.current)
}

func (m *stateMachine) Fire(ctx context.Context, action Action) error {
	to, err := m.Target(ctx, action)
	if err != nil {
		return err
	}
	m.current = to
	return nil
}

func (m *stateMachine) PermittedActions() []Action {
	cfg, ok := m.configs[m.current]
	if !ok {
		return []Action{}
	}

	actions := make([]Action, 0, len(cfg.edges))
	for action := range cfg.edges {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

func (m *stateMachine) Edges() []Edge {
	var out []Edge
	for from, cfg := range m.configs {
		for action, list := range cfg.edges {
			for _, e := range list {
				out = append(out, Edge{From: from, Action: action, To: e.to})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Action < out[j].Action
	})
	return out
}
