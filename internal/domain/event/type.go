package event

// Type identifies the type of domain event
type Type string

const (
	TypeReceiptSubmitted Type = "receipt.submitted"
	TypeReceiptApproved  Type = "receipt.approved"
	TypeReceiptRejected  Type = "receipt.rejected"
	TypeReceiptDeleted   Type = "receipt.deleted"

	TypeVoucherCreated   Type = "voucher.created"
	TypeVoucherChecked   Type = "voucher.checked"
	TypeVoucherInitiated Type = "voucher.initiated"
	TypeVoucherReleased  Type = "voucher.released"
	TypeVoucherCompleted Type = "voucher.completed"
	TypeVoucherRejected  Type = "voucher.rejected"
	TypeVoucherCommented Type = "voucher.commented"

	TypeBlobOrphaned Type = "blob.orphaned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReceiptSubmitted,
		TypeReceiptApproved,
		TypeReceiptRejected,
		TypeReceiptDeleted,
		TypeVoucherCreated,
		TypeVoucherChecked,
		TypeVoucherInitiated,
		TypeVoucherReleased,
		TypeVoucherCompleted,
		TypeVoucherRejected,
		TypeVoucherCommented,
		TypeBlobOrphaned:
		return true
	default:
		return false
	}
}

// AllTypes lists every event type, used to subscribe audit handlers
func AllTypes() []Type {
	return []Type{
		TypeReceiptSubmitted,
		TypeReceiptApproved,
		TypeReceiptRejected,
		TypeReceiptDeleted,
		TypeVoucherCreated,
		TypeVoucherChecked,
		TypeVoucherInitiated,
		TypeVoucherReleased,
		TypeVoucherCompleted,
		TypeVoucherRejected,
		TypeVoucherCommented,
		TypeBlobOrphaned,
	}
}
