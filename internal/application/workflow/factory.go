package workflow

import (
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// BuildStateMachine creates a state machine for one record kind positioned at current.
// Every edge comes from the canonical lifecycle table; creation rows (from the
// none pseudo-state) are resolved with domainwf.Find instead.
func BuildStateMachine(kind domainwf.Kind, current domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder(kind)

	for _, t := range domainwf.TransitionsFor(kind) {
		if t.From == domainwf.StateNone {
			continue
		}
		builder.Configure(t.From).Permit(t.Trigger, t.To)
	}

	return builder.Build(current)
}

// initialState returns the status a new record of kind is created in
func initialState(kind domainwf.Kind, trigger domainwf.Trigger) (domainwf.State, error) {
	t, err := domainwf.Find(kind, domainwf.StateNone, trigger)
	if err != nil {
		return domainwf.StateNone, err
	}
	return t.To, nil
}
