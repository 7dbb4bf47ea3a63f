package port

import (
	"context"
	"time"

	"github.com/garyjia/zoompay/internal/domain/entity"
	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// Order selects the timestamp a listing is sorted by, newest first
type Order string

const (
	OrderCreatedAt  Order = "created_at"
	OrderApprovedAt Order = "approved_at"
	OrderCheckedAt  Order = "checked_at"
	OrderReleasedAt Order = "released_at"
)

// ReceiptQuery filters a receipt listing. Zero fields do not filter.
type ReceiptQuery struct {
	CreatedBy string
	Company   string
	Statuses  []workflow.State
	OrderBy   Order
}

// VoucherQuery filters a voucher listing. Zero fields do not filter.
type VoucherQuery struct {
	CreatedBy string
	Statuses  []workflow.State
	Ticket    string
	OrderBy   Order
}

// ReceiptRepository defines persistence operations for receipts.
// Lookups return (nil, nil) when the record does not exist.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id string) (*entity.Receipt, error)
	// UpdateIfStatus writes the mutable fields of receipt only when the stored
	// status still equals from. It reports whether a row was written.
	UpdateIfStatus(ctx context.Context, receipt *entity.Receipt, from workflow.State) (bool, error)
	// DeleteIfStatus removes the receipt only when it belongs to createdBy and is in status
	DeleteIfStatus(ctx context.Context, id, createdBy string, status workflow.State) (bool, error)
	List(ctx context.Context, q ReceiptQuery) ([]*entity.Receipt, error)
	CountByCreator(ctx context.Context, createdBy string) (entity.ReceiptCounts, error)
}

// VoucherRepository defines persistence operations for vouchers
type VoucherRepository interface {
	Create(ctx context.Context, voucher *entity.Voucher) error
	GetByID(ctx context.Context, id string) (*entity.Voucher, error)
	GetByReceiptID(ctx context.Context, receiptID string) (*entity.Voucher, error)
	UpdateIfStatus(ctx context.Context, voucher *entity.Voucher, from workflow.State) (bool, error)
	List(ctx context.Context, q VoucherQuery) ([]*entity.Voucher, error)
}

// CommentRepository appends to and reads the per-record comment log
type CommentRepository interface {
	// Append inserts the comment at the end of the record's log and sets its Seq
	Append(ctx context.Context, kind workflow.Kind, recordID string, comment *entity.Comment) error
	List(ctx context.Context, kind workflow.Kind, recordID string) ([]entity.Comment, error)
}

// UserRepository defines persistence operations for accounts
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// UpdatePassword replaces the stored hash only
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	ClearCompany(ctx context.Context, company string) (int64, error)
	ClearBank(ctx context.Context, bank string) (int64, error)
}

// CompanyRepository defines persistence operations for companies
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	List(ctx context.Context) ([]*entity.Company, error)
	Delete(ctx context.Context, id string) error
}

// BankRepository defines persistence operations for banks
type BankRepository interface {
	Create(ctx context.Context, bank *entity.Bank) error
	GetByID(ctx context.Context, id string) (*entity.Bank, error)
	List(ctx context.Context) ([]*entity.Bank, error)
	Delete(ctx context.Context, id string) error
}

// OrphanedBlob is an uploaded blob whose record write failed
type OrphanedBlob struct {
	ID         int64
	Path       string
	Kind       workflow.Kind
	RecordID   string
	Reason     string
	RecordedAt time.Time
	DeletedAt  *time.Time
}

// OrphanRepository tracks blobs left behind by failed writes
type OrphanRepository interface {
	Record(ctx context.Context, blob *OrphanedBlob) error
	ListPending(ctx context.Context, olderThan time.Time) ([]*OrphanedBlob, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
	CountPending(ctx context.Context) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
