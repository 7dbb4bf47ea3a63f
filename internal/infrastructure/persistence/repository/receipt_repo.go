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

const receiptColumns = `
	id, image_url, status, created_at, created_by, user_name, user_email, company,
	approved_by, approved_at, rejected_reason,
	processed_by, processed_by_name, processed_at, voucher_id, updated_at`

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a receipt, assigning an id when it has none
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.UpdatedAt.IsZero() {
		receipt.UpdatedAt = receipt.CreatedAt
	}

	query := `INSERT INTO receipts (` + receiptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		receipt.ID,
		receipt.ImageURL,
		string(receipt.Status),
		receipt.CreatedAt.UTC(),
		receipt.CreatedBy,
		receipt.UserName,
		receipt.UserEmail,
		receipt.Company,
		nullString(receipt.ApprovedBy),
		nullTime(receipt.ApprovedAt),
		nullString(receipt.RejectedReason),
		nullString(receipt.ProcessedBy),
		nullString(receipt.ProcessedByName),
		nullTime(receipt.ProcessedAt),
		nullString(receipt.VoucherID),
		receipt.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.String("receipt_id", receipt.ID), zap.Error(err))
		return sqlite.StoreError("create receipt", err)
	}
	return nil
}

// GetByID retrieves a receipt with its comments
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	exec := sqlite.Conn(ctx, r.db)
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = ?`

	receipt, err := scanReceipt(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt", zap.String("receipt_id", id), zap.Error(err))
		return nil, err
	}

	receipt.Comments, err = listComments(ctx, exec, domainwf.KindReceipt, id)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// UpdateIfStatus writes the mutable fields only while the stored status is still from
func (r *ReceiptRepository) UpdateIfStatus(ctx context.Context, receipt *entity.Receipt, from domainwf.State) (bool, error) {
	query := `
		UPDATE receipts
		SET status = ?, approved_by = ?, approved_at = ?, rejected_reason = ?,
			processed_by = ?, processed_by_name = ?, processed_at = ?, voucher_id = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		string(receipt.Status),
		nullString(receipt.ApprovedBy),
		nullTime(receipt.ApprovedAt),
		nullString(receipt.RejectedReason),
		nullString(receipt.ProcessedBy),
		nullString(receipt.ProcessedByName),
		nullTime(receipt.ProcessedAt),
		nullString(receipt.VoucherID),
		receipt.UpdatedAt.UTC(),
		receipt.ID,
		string(from),
	)
	if err != nil {
		r.logger.Error("Failed to update receipt", zap.String("receipt_id", receipt.ID), zap.Error(err))
		return false, sqlite.StoreError("update receipt", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, sqlite.StoreError("update receipt", err)
	}
	return n == 1, nil
}

// DeleteIfStatus removes the creator's receipt while it is still in status
func (r *ReceiptRepository) DeleteIfStatus(ctx context.Context, id, createdBy string, status domainwf.State) (bool, error) {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`DELETE FROM receipts WHERE id = ? AND created_by = ? AND status = ?`,
		id, createdBy, string(status))
	if err != nil {
		r.logger.Error("Failed to delete receipt", zap.String("receipt_id", id), zap.Error(err))
		return false, sqlite.StoreError("delete receipt", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, sqlite.StoreError("delete receipt", err)
	}
	if n == 0 {
		return false, nil
	}
	return true, deleteComments(ctx, exec, domainwf.KindReceipt, id)
}

// List returns receipts matching q, newest first. Listings do not carry comments.
func (r *ReceiptRepository) List(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, q.CreatedBy)
	}
	if q.Company != "" {
		where = append(where, "company = ?")
		args = append(args, q.Company)
	}
	if len(q.Statuses) > 0 {
		clause, statusArgs := statusFilter(q.Statuses)
		where = append(where, clause)
		args = append(args, statusArgs...)
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderClause(q.OrderBy, port.OrderCreatedAt, port.OrderApprovedAt)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.Error(err))
		return nil, sqlite.StoreError("list receipts", err)
	}
	defer rows.Close()

	receipts := []*entity.Receipt{}
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list receipts", err)
	}
	return receipts, nil
}

// CountByCreator tallies the creator's receipts. voucher_created is counted nowhere.
func (r *ReceiptRepository) CountByCreator(ctx context.Context, createdBy string) (entity.ReceiptCounts, error) {
	var counts entity.ReceiptCounts

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM receipts WHERE created_by = ? GROUP BY status`, createdBy)
	if err != nil {
		return counts, sqlite.StoreError("count receipts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, sqlite.StoreError("count receipts", err)
		}
		switch domainwf.State(status) {
		case domainwf.StatePending:
			counts.Pending = n
		case domainwf.StateApproved:
			counts.Approved = n
		case domainwf.StateRejected:
			counts.Rejected = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, sqlite.StoreError("count receipts", err)
	}
	return counts, nil
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var (
		receipt                    entity.Receipt
		status                     string
		approvedBy, rejectedReason sql.NullString
		processedBy, processedName sql.NullString
		voucherID                  sql.NullString
		approvedAt, processedAt    sql.NullTime
		createdAt, updatedAt       time.Time
	)

	err := row.Scan(
		&receipt.ID,
		&receipt.ImageURL,
		&status,
		&createdAt,
		&receipt.CreatedBy,
		&receipt.UserName,
		&receipt.UserEmail,
		&receipt.Company,
		&approvedBy,
		&approvedAt,
		&rejectedReason,
		&processedBy,
		&processedName,
		&processedAt,
		&voucherID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, sqlite.StoreError("scan receipt", err)
	}

	if receipt.Status, err = parseStatus(domainwf.KindReceipt, receipt.ID, status); err != nil {
		return nil, err
	}
	receipt.CreatedAt = createdAt.UTC()
	receipt.UpdatedAt = updatedAt.UTC()
	receipt.ApprovedBy = approvedBy.String
	receipt.ApprovedAt = timePtr(approvedAt)
	receipt.RejectedReason = rejectedReason.String
	receipt.ProcessedBy = processedBy.String
	receipt.ProcessedByName = processedName.String
	receipt.ProcessedAt = timePtr(processedAt)
	receipt.VoucherID = voucherID.String
	receipt.Comments = []entity.Comment{}
	return &receipt, nil
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
