package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
)

// CompanyRepository implements port.CompanyRepository
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{db: db, logger: logger}
}

const companyColumns = `id, name, address, contact_person, contact_email, contact_phone, created_at, created_by`

func (r *CompanyRepository) Create(ctx context.Context, c *entity.Company) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Address, c.ContactPerson, c.ContactEmail, c.ContactPhone, c.CreatedAt.UTC(), c.CreatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("name", c.Name), zap.Error(err))
		return sqlite.StoreError("create company", err)
	}
	return nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	c, err := scanCompany(sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *CompanyRepository) List(ctx context.Context) ([]*entity.Company, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, sqlite.StoreError("list companies", err)
	}
	defer rows.Close()

	companies := []*entity.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list companies", err)
	}
	return companies, nil
}

func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, sqlite.Conn(ctx, r.db), "companies", id)
}

func scanCompany(row rowScanner) (*entity.Company, error) {
	var c entity.Company
	var createdAt time.Time
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.ContactPerson, &c.ContactEmail, &c.ContactPhone, &createdAt, &c.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, sqlite.StoreError("scan company", err)
	}
	c.CreatedAt = createdAt.UTC()
	return &c, nil
}

// BankRepository implements port.BankRepository
type BankRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBankRepository creates a new bank repository
func NewBankRepository(db *sql.DB, logger *zap.Logger) port.BankRepository {
	return &BankRepository{db: db, logger: logger}
}

const bankColumns = `id, name, address, swift_code, contact_person, contact_email, contact_phone, created_at, created_by`

func (r *BankRepository) Create(ctx context.Context, b *entity.Bank) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO banks (`+bankColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Address, b.SwiftCode, b.ContactPerson, b.ContactEmail, b.ContactPhone, b.CreatedAt.UTC(), b.CreatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create bank", zap.String("name", b.Name), zap.Error(err))
		return sqlite.StoreError("create bank", err)
	}
	return nil
}

func (r *BankRepository) GetByID(ctx context.Context, id string) (*entity.Bank, error) {
	b, err := scanBank(sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *BankRepository) List(ctx context.Context) ([]*entity.Bank, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `SELECT `+bankColumns+` FROM banks ORDER BY name ASC`)
	if err != nil {
		return nil, sqlite.StoreError("list banks", err)
	}
	defer rows.Close()

	banks := []*entity.Bank{}
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.StoreError("list banks", err)
	}
	return banks, nil
}

func (r *BankRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, sqlite.Conn(ctx, r.db), "banks", id)
}

func scanBank(row rowScanner) (*entity.Bank, error) {
	var b entity.Bank
	var createdAt time.Time
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.SwiftCode, &b.ContactPerson, &b.ContactEmail, &b.ContactPhone, &createdAt, &b.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, sqlite.StoreError("scan bank", err)
	}
	b.CreatedAt = createdAt.UTC()
	return &b, nil
}

// deleteByID removes one row from a fixed table name
func deleteByID(ctx context.Context, exec sqlite.Executor, table, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return sqlite.StoreError("delete from "+table, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domainwf.ErrNotFound
	}
	return nil
}

// Verify interface compliance
var (
	_ port.CompanyRepository = (*CompanyRepository)(nil)
	_ port.BankRepository    = (*BankRepository)(nil)
)
