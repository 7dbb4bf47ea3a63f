package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/pkg/utils"
)

// ErrUnauthenticated is returned for bad credentials and missing or invalid tokens.
// It also matches domainwf.ErrUnauthorized.
var ErrUnauthenticated = fmt.Errorf("%w: not authenticated", domainwf.ErrUnauthorized)

// MinPasswordLength is the shortest password accepted at signup
const MinPasswordLength = 8

// SignupInput is the self-registration form
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput is the self-service profile form. Company and bank stay superuser-managed.
type ProfileInput struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// PasswordChangeInput re-proves the current password before replacing it
type PasswordChangeInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// maxContactLength bounds the free-text contact field
const maxContactLength = 64

// Session is the result of a successful login
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// AuthService registers accounts and turns credentials and tokens into actors
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Authenticate resolves a bearer token to the current actor, reading the account live
	Authenticate(ctx context.Context, token string) (entity.Actor, error)
	Me(ctx context.Context, actor entity.Actor) (*entity.User, error)
	UpdateProfile(ctx context.Context, actor entity.Actor, in ProfileInput) (*entity.User, error)
	// ChangePassword rejects a wrong current password as a validation error on current_password
	ChangePassword(ctx context.Context, actor entity.Actor, in PasswordChangeInput) error
	// Bootstrap creates an approved superuser directly
	Bootstrap(ctx context.Context, in SignupInput) (*entity.User, error)
}

type authServiceImpl struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	logger Logger
	clock  func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users port.UserRepository, hasher port.PasswordHasher, tokens port.TokenIssuer, logger Logger) AuthService {
	return &authServiceImpl{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		clock:  time.Now,
	}
}

func (s *authServiceImpl) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	user.Pending = true

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("User signed up", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *authServiceImpl) Bootstrap(ctx context.Context, in SignupInput) (*entity.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	user.Designation = domainwf.RoleSuperuser
	user.Approved = true

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create superuser: %w", err)
	}
	s.logger.Info("Superuser bootstrapped", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *authServiceImpl) newUser(ctx context.Context, in SignupInput) (*entity.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, domainwf.NewValidationError("name", "name is required")
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, domainwf.NewValidationError("email", err.Error())
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domainwf.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", domainwf.ErrConflict, email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock().UTC()
	return &entity.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	}
	if !user.CanSignIn() {
		return nil, fmt.Errorf("%w: account is pending approval", domainwf.ErrUnauthorized)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "designation", user.Designation)
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (entity.Actor, error) {
	if strings.TrimSpace(token) == "" {
		return entity.Actor{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return entity.Actor{}, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
	}
	if !user.CanSignIn() {
		return entity.Actor{}, fmt.Errorf("%w: account is pending approval", domainwf.ErrUnauthorized)
	}
	return user.Actor(), nil
}

func (s *authServiceImpl) Me(ctx context.Context, actor entity.Actor) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domainwf.ErrNotFound, actor.ID)
	}
	return user, nil
}

func (s *authServiceImpl) UpdateProfile(ctx context.Context, actor entity.Actor, in ProfileInput) (*entity.User, error) {
	name := strings.TrimSpace(utils.SanitizeString(in.Name))
	if name == "" {
		return nil, domainwf.NewValidationError("name", "name is required")
	}
	contact := strings.TrimSpace(utils.SanitizeString(in.Contact))
	if len(contact) > maxContactLength {
		return nil, domainwf.NewValidationError("contact", fmt.Sprintf("contact must be at most %d characters", maxContactLength))
	}

	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Contact = contact
	user.UpdatedAt = s.clock().UTC()
	user.UpdatedBy = actor.ID
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Profile updated", "user_id", user.ID)
	return user, nil
}

func (s *authServiceImpl) ChangePassword(ctx context.Context, actor entity.Actor, in PasswordChangeInput) error {
	if in.CurrentPassword == "" {
		return domainwf.NewValidationError("current_password", "current password is required")
	}
	if len(in.NewPassword) < MinPasswordLength {
		return domainwf.NewValidationError("new_password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, in.CurrentPassword); err != nil {
		return domainwf.NewValidationError("current_password", "current password is incorrect")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.clock()); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", user.ID)
	return nil
}

// IsUnauthenticated reports whether err means the caller has no valid identity
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
