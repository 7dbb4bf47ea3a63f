package repository

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
)

// OrphanRepository implements port.OrphanRepository
type OrphanRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrphanRepository creates a new orphaned-blob repository
func NewOrphanRepository(db *sql.DB, logger *zap.Logger) port.OrphanRepository {
	return &OrphanRepository{db: db, logger: logger}
}

// Record stores an orphaned blob. It never joins a transaction carried by ctx.
func (r *OrphanRepository) Record(ctx context.Context, blob *port.OrphanedBlob) error {
	if blob.RecordedAt.IsZero() {
		blob.RecordedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO orphaned_blobs (path, record_kind, record_id, reason, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		blob.Path, string(blob.Kind), blob.RecordID, blob.Reason, blob.RecordedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to record orphaned blob", zap.String("path", blob.Path), zap.Error(err))
		return sqlite.StoreError("record orphaned blob", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return sqlite.StoreError("record orphaned blob", err)
	}
	blob.ID = id
	return nil
}

// ListPending returns undeleted orphans recorded before olderThan, oldest first
func (r *OrphanRepository) ListPending(ctx context.Context, olderThan time.Time) ([]*port.OrphanedBlob, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, path, record_kind, record_id, reason, recorded_at
		FROM orphaned_blobs
		WHERE deleted_at IS NULL AND recorded_at < ?
		ORDER BY recorded_at ASC
	`, olderThan.UTC())
	if err != nil {
		return nil, sqlite.StoreError("list orphaned blobs", err)
	}
	defer rows.Close()

	var blobs []*port.OrphanedBlob
	for rows.Next() {
		var b port.OrphanedBlob
		var kind string
		if err := rows.Scan(&b.ID, &b.Path, &kind, &b.RecordID, &b.Reason, &b.RecordedAt); err != nil {
			return nil, sqlite.StoreError("scan orphaned blob", err)
		}
		b.Kind = domainwf.Kind(kind)
		b.RecordedAt = b.RecordedAt.UTC()
		blobs = append(blobs, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list orphaned blobs", err)
	}
	return blobs, nil
}

// MarkDeleted records that the blob has been removed from the blob store
func (r *OrphanRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orphaned_blobs SET deleted_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return sqlite.StoreError("mark orphaned blob deleted", err)
	}
	return nil
}

// CountPending counts orphans not yet deleted
func (r *OrphanRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orphaned_blobs WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, sqlite.StoreError("count orphaned blobs", err)
	}
	return n, nil
}

// Verify interface compliance
var _ port.OrphanRepository = (*OrphanRepository)(nil)
