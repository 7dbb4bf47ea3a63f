package workflow

import (
	"context"

	"github.com/garyjia/zoompay/internal/domain/entity"
)

// LifecycleEngine exposes one operation per receipt and voucher transition.
// Every operation checks the actor's role, then the record's current status,
// then the payload, and only then writes. It returns the stored record as
// re-read after the write.
type LifecycleEngine interface {
	SubmitReceipt(ctx context.Context, actor entity.Actor, image Upload) (*entity.Receipt, error)
	ApproveReceipt(ctx context.Context, actor entity.Actor, receiptID, comment string) (*entity.Receipt, error)
	RejectReceipt(ctx context.Context, actor entity.Actor, receiptID, reason string) (*entity.Receipt, error)
	DeleteReceipt(ctx context.Context, actor entity.Actor, receiptID string) error

	// CreateVoucher creates a voucher from an approved receipt and moves the
	// receipt to voucher_created in the same write.
	CreateVoucher(ctx context.Context, actor entity.Actor, receiptID string, in CreateVoucherInput) (*entity.Voucher, *entity.Receipt, error)
	CheckVoucher(ctx context.Context, actor entity.Actor, voucherID, comment string) (*entity.Voucher, error)
	RejectAtCheck(ctx context.Context, actor entity.Actor, voucherID, reason string) (*entity.Voucher, error)
	InitiateVoucher(ctx context.Context, actor entity.Actor, voucherID, notes string) (*entity.Voucher, error)
	ReleasePayment(ctx context.Context, actor entity.Actor, voucherID, comment string) (*entity.Voucher, error)
	RejectPayment(ctx context.Context, actor entity.Actor, voucherID, reason string) (*entity.Voucher, error)
	UploadProof(ctx context.Context, actor entity.Actor, voucherID string, proof Upload) (*entity.Voucher, error)

	// AddVoucherComment appends to a live voucher's log without changing its status
	AddVoucherComment(ctx context.Context, actor entity.Actor, voucherID, text string) (*entity.Voucher, error)
}

// Upload is a document received from a client
type Upload struct {
	Filename string
	Data     []byte
}

// Empty reports whether no document was provided
func (u Upload) Empty() bool {
	return len(u.Data) == 0
}

// CreateVoucherInput is the voucher creator's form. Amount is the raw user text.
type CreateVoucherInput struct {
	BankName      string
	AccountTitle  string
	AccountNumber string
	Amount        string
	Description   string
	Document      Upload
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
