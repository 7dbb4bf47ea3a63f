package entity

import (
	"time"

	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// Voucher is the payment instruction derived from an approved receipt
type Voucher struct {
	ID            string         `json:"id"`
	ReceiptID     string         `json:"receipt_id"`
	ImageURL      string         `json:"image_url"`
	VoucherURL    string         `json:"voucher_url"`
	Status        workflow.State `json:"status"`
	BankName      string         `json:"bank_name"`
	AccountTitle  string         `json:"account_title"`
	AccountNumber string         `json:"account_number"`
	Amount        float64        `json:"amount"`
	Description   string         `json:"description"`
	TicketNumber  string         `json:"ticket_number"`
	Company       string         `json:"company"`
	CreatedBy     string         `json:"created_by"`
	CreatedByName string         `json:"created_by_name"`
	CreatedAt     time.Time      `json:"created_at"`

	Checked   *StageStamp `json:"checked,omitempty"`
	Initiated *StageStamp `json:"initiated,omitempty"`
	Released  *StageStamp `json:"released,omitempty"`
	Rejected  *StageStamp `json:"rejected,omitempty"`

	RejectedReason string `json:"rejected_reason,omitempty"`

	ProofOfPaymentURL string      `json:"proof_of_payment_url,omitempty"`
	ProofUploaded     *StageStamp `json:"proof_uploaded,omitempty"`

	Comments  []Comment `json:"comments"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageStamp records who moved a voucher through a stage and when
type StageStamp struct {
	By     string    `json:"by"`
	ByName string    `json:"by_name"`
	At     time.Time `json:"at"`
}

// NewStageStamp attributes a stage to the actor at now
func NewStageStamp(actor Actor, now time.Time) *StageStamp {
	return &StageStamp{By: actor.ID, ByName: actor.DisplayName(), At: now}
}

// Clone returns a deep copy so callers can keep a snapshot
func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	c := *v
	c.Checked = cloneStamp(v.Checked)
	c.Initiated = cloneStamp(v.Initiated)
	c.Released = cloneStamp(v.Released)
	c.Rejected = cloneStamp(v.Rejected)
	c.ProofUploaded = cloneStamp(v.ProofUploaded)
	c.Comments = append([]Comment(nil), v.Comments...)
	return &c
}

func cloneStamp(s *StageStamp) *StageStamp {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
