package entity

import "github.com/garyjia/zoompay/internal/domain/workflow"

// CombinedStatus is the status shown for a receipt. Once a voucher exists the
// receipt's own status is frozen at voucher_created, so the voucher's status wins.
func CombinedStatus(receipt workflow.State, voucher *workflow.State) workflow.State {
	if voucher != nil && *voucher != workflow.StateNone {
		return *voucher
	}
	return receipt
}

// ReceiptView pairs a receipt with its voucher for read-side display
type ReceiptView struct {
	Receipt        *Receipt       `json:"receipt"`
	Voucher        *Voucher       `json:"voucher,omitempty"`
	CombinedStatus workflow.State `json:"combined_status"`

	// Filled on detail reads only
	Actions        []workflow.Trigger `json:"actions,omitempty"`
	VoucherActions []workflow.Trigger `json:"voucher_actions,omitempty"`
}

// NewReceiptView recomputes the combined status from the two records
func NewReceiptView(r *Receipt, v *Voucher) *ReceiptView {
	var vs *workflow.State
	if v != nil {
		s := v.Status
		vs = &s
	}
	return &ReceiptView{
		Receipt:        r,
		Voucher:        v,
		CombinedStatus: CombinedStatus(r.Status, vs),
	}
}
