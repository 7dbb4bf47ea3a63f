package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
)

const voucherColumns = `
	id, receipt_id, image_url, voucher_url, status,
	bank_name, account_title, account_number, amount, description,
	ticket_number, company, created_by, created_by_name, created_at,
	checked_by, checked_by_name, checked_at,
	initiated_by, initiated_by_name, initiated_at,
	released_by, released_by_name, released_at,
	rejected_by, rejected_by_name, rejected_at, rejected_reason,
	proof_of_payment_url, proof_uploaded_by, proof_uploaded_by_name, proof_uploaded_at,
	updated_at`

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a voucher, assigning an id when it has none. A second
// voucher for the same receipt violates the receipt_id unique key.
func (r *VoucherRepository) Create(ctx context.Context, voucher *entity.Voucher) error {
	if voucher.ID == "" {
		voucher.ID = uuid.New().String()
	}
	if voucher.UpdatedAt.IsZero() {
		voucher.UpdatedAt = voucher.CreatedAt
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", 33), ", ")
	query := `INSERT INTO vouchers (` + voucherColumns + `) VALUES (` + marks + `)`

	args := []interface{}{
		voucher.ID,
		voucher.ReceiptID,
		voucher.ImageURL,
		voucher.VoucherURL,
		string(voucher.Status),
		voucher.BankName,
		voucher.AccountTitle,
		voucher.AccountNumber,
		voucher.Amount,
		voucher.Description,
		voucher.TicketNumber,
		voucher.Company,
		voucher.CreatedBy,
		voucher.CreatedByName,
		voucher.CreatedAt.UTC(),
	}
	args = append(args, r.stageArgs(voucher)...)
	args = append(args, voucher.UpdatedAt.UTC())

	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create voucher", zap.String("receipt_id", voucher.ReceiptID), zap.Error(err))
		return sqlite.StoreError("create voucher", err)
	}
	return nil
}

// stageArgs renders the stage columns in voucherColumns order
func (r *VoucherRepository) stageArgs(v *entity.Voucher) []interface{} {
	var args []interface{}
	args = append(args, stampArgs(v.Checked)...)
	args = append(args, stampArgs(v.Initiated)...)
	args = append(args, stampArgs(v.Released)...)
	args = append(args, stampArgs(v.Rejected)...)
	args = append(args, nullString(v.RejectedReason), nullString(v.ProofOfPaymentURL))
	args = append(args, stampArgs(v.ProofUploaded)...)
	return args
}

// GetByID retrieves a voucher with its comments
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	return r.getOne(ctx, `id = ?`, id)
}

// GetByReceiptID retrieves the voucher created from a receipt
func (r *VoucherRepository) GetByReceiptID(ctx context.Context, receiptID string) (*entity.Voucher, error) {
	return r.getOne(ctx, `receipt_id = ?`, receiptID)
}

func (r *VoucherRepository) getOne(ctx context.Context, where string, arg string) (*entity.Voucher, error) {
	exec := sqlite.Conn(ctx, r.db)
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE ` + where

	voucher, err := scanVoucher(exec.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.String("key", arg), zap.Error(err))
		return nil, err
	}

	voucher.Comments, err = listComments(ctx, exec, domainwf.KindVoucher, voucher.ID)
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

// UpdateIfStatus writes status and stage fields only while the stored status is still from
func (r *VoucherRepository) UpdateIfStatus(ctx context.Context, voucher *entity.Voucher, from domainwf.State) (bool, error) {
	query := `
		UPDATE vouchers
		SET status = ?,
			checked_by = ?, checked_by_name = ?, checked_at = ?,
			initiated_by = ?, initiated_by_name = ?, initiated_at = ?,
			released_by = ?, released_by_name = ?, released_at = ?,
			rejected_by = ?, rejected_by_name = ?, rejected_at = ?, rejected_reason = ?,
			proof_of_payment_url = ?, proof_uploaded_by = ?, proof_uploaded_by_name = ?, proof_uploaded_at = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	args := []interface{}{string(voucher.Status)}
	args = append(args, r.stageArgs(voucher)...)
	args = append(args, voucher.UpdatedAt.UTC(), voucher.ID, string(from))

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update voucher", zap.String("voucher_id", voucher.ID), zap.Error(err))
		return false, sqlite.StoreError("update voucher", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, sqlite.StoreError("update voucher", err)
	}
	return n == 1, nil
}

// List returns vouchers matching q, newest first. Listings do not carry comments.
func (r *VoucherRepository) List(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, q.CreatedBy)
	}
	if len(q.Statuses) > 0 {
		clause, statusArgs := statusFilter(q.Statuses)
		where = append(where, clause)
		args = append(args, statusArgs...)
	}
	if q.Ticket != "" {
		where = append(where, `ticket_number LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(q.Ticket)+"%")
	}

	query := `SELECT ` + voucherColumns + ` FROM vouchers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderClause(q.OrderBy, port.OrderCreatedAt, port.OrderCheckedAt, port.OrderReleasedAt)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list vouchers", zap.Error(err))
		return nil, sqlite.StoreError("list vouchers", err)
	}
	defer rows.Close()

	vouchers := []*entity.Voucher{}
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, voucher)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list vouchers", err)
	}
	return vouchers, nil
}

func scanVoucher(row rowScanner) (*entity.Voucher, error) {
	var (
		v                                      entity.Voucher
		status                                 string
		createdAt, updatedAt                   time.Time
		checked, initiated, released, rejected stampColumns
		proofUploaded                          stampColumns
		rejectedReason, proofURL               sql.NullString
	)

	dest := []interface{}{
		&v.ID, &v.ReceiptID, &v.ImageURL, &v.VoucherURL, &status,
		&v.BankName, &v.AccountTitle, &v.AccountNumber, &v.Amount, &v.Description,
		&v.TicketNumber, &v.Company, &v.CreatedBy, &v.CreatedByName, &createdAt,
	}
	dest = append(dest, checked.dest()...)
	dest = append(dest, initiated.dest()...)
	dest = append(dest, released.dest()...)
	dest = append(dest, rejected.dest()...)
	dest = append(dest, &rejectedReason, &proofURL)
	dest = append(dest, proofUploaded.dest()...)
	dest = append(dest, &updatedAt)

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, sqlite.StoreError("scan voucher", err)
	}

	if v.Status, err = parseStatus(domainwf.KindVoucher, v.ID, status); err != nil {
		return nil, err
	}
	v.CreatedAt = createdAt.UTC()
	v.UpdatedAt = updatedAt.UTC()
	v.Checked = checked.stamp()
	v.Initiated = initiated.stamp()
	v.Released = released.stamp()
	v.Rejected = rejected.stamp()
	v.RejectedReason = rejectedReason.String
	v.ProofOfPaymentURL = proofURL.String
	v.ProofUploaded = proofUploaded.stamp()
	v.Comments = []entity.Comment{}
	return &v, nil
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
