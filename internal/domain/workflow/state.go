package workflow

// State is a status value shared by receipts and vouchers
type State string

// StateNone is the pseudo-state of a record that does not exist yet
const StateNone State = ""

const (
	StatePending          State = "pending"
	StateApproved         State = "approved"
	StateRejected         State = "rejected"
	StateVoucherCreated   State = "voucher_created"
	StateChecked          State = "checked"
	StateInitiated        State = "initiated"
	StatePaymentReleased  State = "payment_released"
	StatePaymentCompleted State = "payment_completed"
)

// Kind identifies which record collection a state belongs to
type Kind string

const (
	KindReceipt Kind = "receipt"
	KindVoucher Kind = "voucher"
)

var receiptStates = map[State]bool{
	StatePending:        true,
	StateApproved:       true,
	StateRejected:       true,
	StateVoucherCreated: true,
}

var voucherStates = map[State]bool{
	StateVoucherCreated:   true,
	StateChecked:          true,
	StateInitiated:        true,
	StatePaymentReleased:  true,
	StatePaymentCompleted: true,
	StateRejected:         true,
}

var terminalStates = map[State]bool{
	StateRejected:         true,
	StatePaymentCompleted: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state belongs to either record vocabulary
func (s State) IsValid() bool {
	return receiptStates[s] || voucherStates[s]
}

// ValidFor reports whether the state is part of the given kind's vocabulary
func (s State) ValidFor(kind Kind) bool {
	switch kind {
	case KindReceipt:
		return receiptStates[s]
	case KindVoucher:
		return voucherStates[s]
	default:
		return false
	}
}

// Label returns the display label used by listings and exports
func (s State) Label() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateApproved:
		return "Approved"
	case StateRejected:
		return "Rejected"
	case StateVoucherCreated:
		return "Voucher Created"
	case StateChecked:
		return "Checked"
	case StateInitiated:
		return "Payment Initiated"
	case StatePaymentReleased:
		return "Payment Released"
	case StatePaymentCompleted:
		return "Payment Completed"
	default:
		return "Unknown"
	}
}

// ParseState validates a raw status string against a kind's vocabulary
func ParseState(kind Kind, raw string) (State, error) {
	s := State(raw)
	if !s.ValidFor(kind) {
		return StateNone, &StateError{Kind: kind, Value: raw}
	}
	return s, nil
}
