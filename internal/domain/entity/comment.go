package entity

import (
	"time"

	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// Comment is an append-only note attached to a receipt or voucher.
// Receipt comments fill Author; voucher comments fill CreatedBy, CreatedByName and Role.
type Comment struct {
	Seq           int           `json:"seq"`
	Text          string        `json:"text"`
	CreatedAt     time.Time     `json:"created_at"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedByName string        `json:"created_by_name,omitempty"`
	Role          workflow.Role `json:"role,omitempty"`
	Author        string        `json:"author,omitempty"`
}

// ProofUploadedComment is appended when proof of payment closes a voucher
const ProofUploadedComment = "Proof of payment uploaded"

// NewReceiptComment builds a finance comment on a receipt
func NewReceiptComment(actor Actor, text string, now time.Time) Comment {
	return Comment{
		Text:      text,
		CreatedAt: now,
		CreatedBy: actor.ID,
		Author:    actor.DisplayName(),
	}
}

// NewVoucherComment builds a voucher comment carrying the actor's role at the time
func NewVoucherComment(actor Actor, text string, now time.Time) Comment {
	return Comment{
		Text:          text,
		CreatedAt:     now,
		CreatedBy:     actor.ID,
		CreatedByName: actor.DisplayName(),
		Role:          actor.Role,
	}
}
