package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/pkg/utils"
)

// CompanyInput is the form for registering a company
type CompanyInput struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
}

// BankInput is the form for registering a bank
type BankInput struct {
	Name          string `json:"name"`
	SwiftCode     string `json:"swift_code"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
}

// AssignUserInput changes a user's designation and affiliations. Nil fields are left alone.
type AssignUserInput struct {
	Role    *string `json:"role"`
	Company *string `json:"company"`
	Bank    *string `json:"bank"`
}

// AdminService is the superuser surface over companies, banks and accounts
type AdminService interface {
	CreateCompany(ctx context.Context, actor entity.Actor, in CompanyInput) (*entity.Company, error)
	ListCompanies(ctx context.Context, actor entity.Actor) ([]*entity.Company, error)
	DeleteCompany(ctx context.Context, actor entity.Actor, id string) error

	CreateBank(ctx context.Context, actor entity.Actor, in BankInput) (*entity.Bank, error)
	ListBanks(ctx context.Context, actor entity.Actor) ([]*entity.Bank, error)
	DeleteBank(ctx context.Context, actor entity.Actor, id string) error

	ListUsers(ctx context.Context, actor entity.Actor) ([]*entity.User, error)
	AssignUser(ctx context.Context, actor entity.Actor, userID string, in AssignUserInput) (*entity.User, error)
}

type adminServiceImpl struct {
	users     port.UserRepository
	companies port.CompanyRepository
	banks     port.BankRepository
	txManager port.TransactionManager
	logger    Logger
	clock     func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(
	users port.UserRepository,
	companies port.CompanyRepository,
	banks port.BankRepository,
	txManager port.TransactionManager,
	logger Logger,
) AdminService {
	return &adminServiceImpl{
		users:     users,
		companies: companies,
		banks:     banks,
		txManager: txManager,
		logger:    logger,
		clock:     time.Now,
	}
}

func requireSuperuser(actor entity.Actor) error {
	if actor.Role != domainwf.RoleSuperuser {
		return fmt.Errorf("%w: administration requires the superuser designation", domainwf.ErrUnauthorized)
	}
	return nil
}

// required trims each value in order and fails on the first blank one
func required(fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return domainwf.NewValidationError(f[0], f[0]+" is required")
		}
	}
	return nil
}

func (s *adminServiceImpl) CreateCompany(ctx context.Context, actor entity.Actor, in CompanyInput) (*entity.Company, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := required(
		[2]string{"name", in.Name},
		[2]string{"contact_person", in.ContactPerson},
		[2]string{"contact_email", in.ContactEmail},
	); err != nil {
		return nil, err
	}
	if err := utils.ValidateEmail(strings.TrimSpace(in.ContactEmail)); err != nil {
		return nil, domainwf.NewValidationError("contact_email", err.Error())
	}

	company := &entity.Company{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(in.Name),
		Address:       strings.TrimSpace(in.Address),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		CreatedAt:     s.clock().UTC(),
		CreatedBy:     actor.ID,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("Company created", "company_id", company.ID, "name", company.Name, "actor_id", actor.ID)
	return company, nil
}

func (s *adminServiceImpl) ListCompanies(ctx context.Context, actor entity.Actor) ([]*entity.Company, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.companies.List(ctx)
}

// DeleteCompany removes the company and unassigns its users in one transaction
func (s *adminServiceImpl) DeleteCompany(ctx context.Context, actor entity.Actor, id string) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load company %s: %w", id, err)
	}
	if company == nil {
		return fmt.Errorf("%w: company %s", domainwf.ErrNotFound, id)
	}

	var cleared int64
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.companies.Delete(ctx, id); err != nil {
			return err
		}
		n, err := s.users.ClearCompany(ctx, company.Name)
		cleared = n
		return err
	})
	if err != nil {
		s.logger.Error("Failed to delete company", "company_id", id, "error", err)
		return fmt.Errorf("failed to delete company %s: %w", id, err)
	}

	s.logger.Info("Company deleted", "company_id", id, "users_cleared", cleared, "actor_id", actor.ID)
	return nil
}

func (s *adminServiceImpl) CreateBank(ctx context.Context, actor entity.Actor, in BankInput) (*entity.Bank, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := required(
		[2]string{"name", in.Name},
		[2]string{"swift_code", in.SwiftCode},
	); err != nil {
		return nil, err
	}
	if email := strings.TrimSpace(in.ContactEmail); email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return nil, domainwf.NewValidationError("contact_email", err.Error())
		}
	}

	bank := &entity.Bank{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(in.Name),
		Address:       strings.TrimSpace(in.Address),
		SwiftCode:     strings.ToUpper(strings.TrimSpace(in.SwiftCode)),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		CreatedAt:     s.clock().UTC(),
		CreatedBy:     actor.ID,
	}
	if err := s.banks.Create(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}

	s.logger.Info("Bank created", "bank_id", bank.ID, "name", bank.Name, "actor_id", actor.ID)
	return bank, nil
}

func (s *adminServiceImpl) ListBanks(ctx context.Context, actor entity.Actor) ([]*entity.Bank, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.banks.List(ctx)
}

// DeleteBank removes the bank and unassigns its users in one transaction
func (s *adminServiceImpl) DeleteBank(ctx context.Context, actor entity.Actor, id string) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	bank, err := s.banks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load bank %s: %w", id, err)
	}
	if bank == nil {
		return fmt.Errorf("%w: bank %s", domainwf.ErrNotFound, id)
	}

	var cleared int64
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.banks.Delete(ctx, id); err != nil {
			return err
		}
		n, err := s.users.ClearBank(ctx, bank.Name)
		cleared = n
		return err
	})
	if err != nil {
		s.logger.Error("Failed to delete bank", "bank_id", id, "error", err)
		return fmt.Errorf("failed to delete bank %s: %w", id, err)
	}

	s.logger.Info("Bank deleted", "bank_id", id, "users_cleared", cleared, "actor_id", actor.ID)
	return nil
}

func (s *adminServiceImpl) ListUsers(ctx context.Context, actor entity.Actor) ([]*entity.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// AssignUser sets a designation and affiliations. Assigning a designation approves the account.
func (s *adminServiceImpl) AssignUser(ctx context.Context, actor entity.Actor, userID string, in AssignUserInput) (*entity.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domainwf.ErrNotFound, userID)
	}

	if in.Role != nil {
		role := domainwf.Role(strings.TrimSpace(*in.Role))
		if !role.IsValid() {
			return nil, domainwf.NewValidationError("role", fmt.Sprintf("unknown designation %q", *in.Role))
		}
		user.Designation = role
		user.Pending = false
		user.Approved = true
	}
	if in.Company != nil {
		user.Company = strings.TrimSpace(*in.Company)
	}
	if in.Bank != nil {
		user.Bank = strings.TrimSpace(*in.Bank)
	}
	user.UpdatedAt = s.clock().UTC()
	user.UpdatedBy = actor.ID

	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}

	s.logger.Info("User assigned",
		"user_id", user.ID,
		"designation", user.Designation,
		"company", user.Company,
		"bank", user.Bank,
		"actor_id", actor.ID)
	return user, nil
}
