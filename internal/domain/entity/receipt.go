package entity

import (
	"time"

	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// Receipt is a submitted expense document
type Receipt struct {
	ID        string         `json:"id"`
	ImageURL  string         `json:"image_url"`
	Status    workflow.State `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by"`
	UserName  string         `json:"user_name"`
	UserEmail string         `json:"user_email"`
	Company   string         `json:"company"`

	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`

	ProcessedBy     string     `json:"processed_by,omitempty"`
	ProcessedByName string     `json:"processed_by_name,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	VoucherID       string     `json:"voucher_id,omitempty"`

	Comments  []Comment `json:"comments"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReceiptCounts summarises a submitter's receipts
type ReceiptCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Clone returns a deep copy so callers can keep a snapshot
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}
	c := *r
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.ProcessedAt = cloneTime(r.ProcessedAt)
	c.Comments = append([]Comment(nil), r.Comments...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
