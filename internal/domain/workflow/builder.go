package workflow

import (
	"context"
	"fmt"
	"sort"
)

// StateMachineBuilder builds a configured state machine for one record kind
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration
}

type stateConfig struct {
	kind        Kind
	transitions map[Trigger]State
}

type stateMachineBuilder struct {
	kind           Kind
	configurations map[State]*stateConfig
}

type stateMachine struct {
	kind           Kind
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a builder whose states are checked against the kind's vocabulary
func NewBuilder(kind Kind) StateMachineBuilder {
	return &stateMachineBuilder{
		kind:           kind,
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.ValidFor(b.kind) {
		panic(fmt.Sprintf("invalid %s state: %q", b.kind, state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			kind:        b.kind,
			transitions: make(map[Trigger]State),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state.
// Machines never share configuration maps with the builder.
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.ValidFor(b.kind) {
		panic(fmt.Sprintf("invalid initial %s state: %q", b.kind, initialState))
	}

	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger]State, len(config.transitions))
		for trigger, to := range config.transitions {
			transitionsCopy[trigger] = to
		}
		configsCopy[state] = &stateConfig{
			kind:        b.kind,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		kind:           b.kind,
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state.
// A trigger leads to exactly one state; permitting it again panics.
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	if !toState.ValidFor(c.kind) {
		panic(fmt.Sprintf("invalid target %s state: %q", c.kind, toState))
	}
	if existing, dup := c.transitions[trigger]; dup {
		panic(fmt.Sprintf("%s trigger %s already leads to %s", c.kind, trigger, existing))
	}

	c.transitions[trigger] = toState
	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is configured for the current state
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	_, ok := config.transitions[trigger]
	return ok
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	if m.currentState.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal at %s", ErrInvalidTransition, m.kind, m.currentState)
	}

	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	to, ok := config.transitions[trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	m.currentState = to
	return nil
}

// PermittedTriggers returns the triggers configured for the current state, sorted by name
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
