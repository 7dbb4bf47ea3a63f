package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
)

// CommentRepository implements port.CommentRepository over an append-only table
type CommentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts the comment after the record's last one. The next seq is
// computed inside the INSERT, so concurrent appends never overwrite each other.
func (r *CommentRepository) Append(ctx context.Context, kind domainwf.Kind, recordID string, comment *entity.Comment) error {
	query := `
		INSERT INTO comments (
			record_kind, record_id, seq, text, created_at,
			created_by, created_by_name, role, author
		)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM comments
		WHERE record_kind = ? AND record_id = ?
		RETURNING seq
	`

	var seq int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		string(kind),
		recordID,
		comment.Text,
		comment.CreatedAt.UTC(),
		comment.CreatedBy,
		comment.CreatedByName,
		string(comment.Role),
		comment.Author,
		string(kind),
		recordID,
	).Scan(&seq)
	if err != nil {
		r.logger.Error("Failed to append comment",
			zap.String("kind", string(kind)),
			zap.String("record_id", recordID),
			zap.Error(err))
		return sqlite.StoreError("append comment", err)
	}

	comment.Seq = seq
	return nil
}

// List returns the record's comments in append order
func (r *CommentRepository) List(ctx context.Context, kind domainwf.Kind, recordID string) ([]entity.Comment, error) {
	return listComments(ctx, sqlite.Conn(ctx, r.db), kind, recordID)
}

func listComments(ctx context.Context, exec sqlite.Executor, kind domainwf.Kind, recordID string) ([]entity.Comment, error) {
	query := `
		SELECT seq, text, created_at, created_by, created_by_name, role, author
		FROM comments
		WHERE record_kind = ? AND record_id = ?
		ORDER BY seq ASC
	`

	rows, err := exec.QueryContext(ctx, query, string(kind), recordID)
	if err != nil {
		return nil, sqlite.StoreError("list comments", err)
	}
	defer rows.Close()

	comments := []entity.Comment{}
	for rows.Next() {
		var c entity.Comment
		var role string
		if err := rows.Scan(&c.Seq, &c.Text, &c.CreatedAt, &c.CreatedBy, &c.CreatedByName, &role, &c.Author); err != nil {
			return nil, sqlite.StoreError("scan comment", err)
		}
		c.Role = domainwf.Role(role)
		c.CreatedAt = c.CreatedAt.UTC()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list comments", err)
	}
	return comments, nil
}

func deleteComments(ctx context.Context, exec sqlite.Executor, kind domainwf.Kind, recordID string) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM comments WHERE record_kind = ? AND record_id = ?`, string(kind), recordID)
	if err != nil {
		return sqlite.StoreError("delete comments", err)
	}
	return nil
}

// Verify interface compliance
var _ port.CommentRepository = (*CommentRepository)(nil)
