package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
)

const userColumns = `
	id, name, email, password_hash, designation, company, bank,
	pending, approved, created_at, updated_at, updated_by, contact`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an account. A taken email returns ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Designation),
		user.Company,
		user.Bank,
		user.Pending,
		user.Approved,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
		user.UpdatedBy,
		user.Contact,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return sqlite.StoreError("create user", err)
	}
	return nil
}

// GetByID retrieves an account by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

// GetByEmail retrieves an account by its (lower-cased) email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `email = ?`, email)
}

func (r *UserRepository) getOne(ctx context.Context, where, arg string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// List returns every account, newest first
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, sqlite.StoreError("list users", err)
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list users", err)
	}
	return users, nil
}

// Update writes the profile, designation and approval fields
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET name = ?, contact = ?, designation = ?, company = ?, bank = ?,
			pending = ?, approved = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		user.Name,
		user.Contact,
		string(user.Designation),
		user.Company,
		user.Bank,
		user.Pending,
		user.Approved,
		user.UpdatedAt.UTC(),
		user.UpdatedBy,
		user.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		return sqlite.StoreError("update user", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domainwf.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash of an account
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		hash, at.UTC(), id, id)
	if err != nil {
		r.logger.Error("Failed to update password", zap.String("user_id", id), zap.Error(err))
		return sqlite.StoreError("update password", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domainwf.ErrNotFound
	}
	return nil
}

// ClearCompany unassigns every user of a company
func (r *UserRepository) ClearCompany(ctx context.Context, company string) (int64, error) {
	return r.clear(ctx, "company", company)
}

// ClearBank unassigns every user of a bank
func (r *UserRepository) ClearBank(ctx context.Context, bank string) (int64, error) {
	return r.clear(ctx, "bank", bank)
}

// clear blanks column on matching users. column is one of two fixed names.
func (r *UserRepository) clear(ctx context.Context, column, value string) (int64, error) {
	query := `UPDATE users SET ` + column + ` = '', updated_at = ? WHERE ` + column + ` = ?`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, time.Now().UTC(), value)
	if err != nil {
		return 0, sqlite.StoreError("clear user "+column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, sqlite.StoreError("clear user "+column, err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user                 entity.User
		designation          string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&designation,
		&user.Company,
		&user.Bank,
		&user.Pending,
		&user.Approved,
		&createdAt,
		&updatedAt,
		&user.UpdatedBy,
		&user.Contact,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, sqlite.StoreError("scan user", err)
	}

	user.Designation = domainwf.Role(designation)
	if user.Designation != "" && !user.Designation.IsValid() {
		return nil, domainwf.ErrMalformedRecord
	}
	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = updatedAt.UTC()
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
