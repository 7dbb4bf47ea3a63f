package workflow

import "fmt"

// AnyRole matches every known designation
const AnyRole Role = "*"

// CommentRule describes the free-text payload a transition takes
type CommentRule int

const (
	CommentNone CommentRule = iota
	CommentOptional
	CommentRequired
)

// Transition is one row of the lifecycle table
type Transition struct {
	Kind    Kind
	From    State
	Trigger Trigger
	Role    Role
	To      State
	Comment CommentRule
}

// Allows reports whether the role may fire this transition
func (t Transition) Allows(role Role) bool {
	if t.Role == AnyRole {
		return role.IsValid()
	}
	return t.Role == role
}

// transitions is the single source of truth for statuses, roles and edges.
// Receipts freeze at voucher_created; from there the voucher carries the lifecycle.
var transitions = []Transition{
	{KindReceipt, StateNone, TriggerSubmit, AnyRole, StatePending, CommentNone},
	{KindReceipt, StatePending, TriggerApprove, RoleFinance, StateApproved, CommentOptional},
	{KindReceipt, StatePending, TriggerReject, RoleFinance, StateRejected, CommentRequired},
	{KindReceipt, StateApproved, TriggerCreateVoucher, RoleVoucher, StateVoucherCreated, CommentNone},

	{KindVoucher, StateNone, TriggerCreateVoucher, RoleVoucher, StateVoucherCreated, CommentNone},
	{KindVoucher, StateVoucherCreated, TriggerCheck, RoleChecker, StateChecked, CommentRequired},
	{KindVoucher, StateVoucherCreated, TriggerCheckReject, RoleChecker, StateRejected, CommentRequired},
	{KindVoucher, StateChecked, TriggerInitiate, RoleInitiator, StateInitiated, CommentOptional},
	{KindVoucher, StateInitiated, TriggerRelease, RolePayment, StatePaymentReleased, CommentRequired},
	{KindVoucher, StateInitiated, TriggerPaymentReject, RolePayment, StateRejected, CommentRequired},
	{KindVoucher, StatePaymentReleased, TriggerUploadProof, RoleInitiator, StatePaymentCompleted, CommentNone},
}

// Transitions returns a copy of the lifecycle table
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// TransitionsFor returns the rows of one record kind
func TransitionsFor(kind Kind) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Authorize checks the role requirement of a trigger independently of the current state.
// It runs before the state check so a wrong role is always reported as unauthorized.
func Authorize(kind Kind, trigger Trigger, role Role) error {
	known := false
	for _, t := range transitions {
		if t.Kind != kind || t.Trigger != trigger {
			continue
		}
		known = true
		if t.Allows(role) {
			return nil
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown %s trigger %s", ErrInvalidTransition, kind, trigger)
	}
	return fmt.Errorf("%w: role %q cannot %s a %s", ErrUnauthorized, role, trigger, kind)
}

// Find returns the row for (kind, from, trigger)
func Find(kind Kind, from State, trigger Trigger) (Transition, error) {
	for _, t := range transitions {
		if t.Kind == kind && t.From == from && t.Trigger == trigger {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: cannot fire trigger %s from %s state %q", ErrInvalidTransition, trigger, kind, from)
}

// Resolve authorizes the role and then finds the row leaving the current state
func Resolve(kind Kind, from State, trigger Trigger, role Role) (Transition, error) {
	if err := Authorize(kind, trigger, role); err != nil {
		return Transition{}, err
	}
	return Find(kind, from, trigger)
}

// TriggersForRole lists the triggers a role may fire on a kind, in table order
func TriggersForRole(kind Kind, role Role) []Trigger {
	seen := make(map[Trigger]bool)
	var out []Trigger
	for _, t := range transitions {
		if t.Kind != kind || !t.Allows(role) || seen[t.Trigger] {
			continue
		}
		seen[t.Trigger] = true
		out = append(out, t.Trigger)
	}
	return out
}

// SourceStates lists the states a role acts on for a kind, in table order
func SourceStates(kind Kind, role Role) []State {
	seen := make(map[State]bool)
	var out []State
	for _, t := range transitions {
		if t.Kind != kind || t.From == StateNone || !t.Allows(role) || seen[t.From] {
			continue
		}
		seen[t.From] = true
		out = append(out, t.From)
	}
	return out
}
