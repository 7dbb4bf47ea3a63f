package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit        Trigger = "submit"
	TriggerApprove       Trigger = "approve"
	TriggerReject        Trigger = "reject"
	TriggerCreateVoucher Trigger = "create_voucher"
	TriggerCheck         Trigger = "check"
	TriggerCheckReject   Trigger = "check_reject"
	TriggerInitiate      Trigger = "initiate"
	TriggerRelease       Trigger = "release"
	TriggerPaymentReject Trigger = "payment_reject"
	TriggerUploadProof   Trigger = "upload_proof"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
