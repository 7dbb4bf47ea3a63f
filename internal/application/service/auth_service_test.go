package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

func newAuthService(users *mockUserRepo) (AuthService, *mockTokens) {
	tokens := &mockTokens{}
	return NewAuthService(users, mockHasher{}, tokens, &mockLogger{}), tokens
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		in        SignupInput
		wantField string
	}{
		{name: "missing name", in: SignupInput{Email: "a@b.co", Password: "longenough"}, wantField: "name"},
		{name: "bad email", in: SignupInput{Name: "A", Email: "not-an-email", Password: "longenough"}, wantField: "email"},
		{name: "short password", in: SignupInput{Name: "A", Email: "a@b.co", Password: "short"}, wantField: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepo()
			svc, _ := newAuthService(users)

			_, err := svc.Signup(ctx, tt.in)
			var verr *domainwf.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Empty(t, users.users)
		})
	}

	t.Run("new account is pending without designation", func(t *testing.T) {
		users := newMockUserRepo()
		svc, _ := newAuthService(users)

		u, err := svc.Signup(ctx, SignupInput{Name: "Sam", Email: " Sam@Acme.TEST ", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "sam@acme.test", u.Email)
		assert.True(t, u.Pending)
		assert.False(t, u.Approved)
		assert.Empty(t, u.Designation)
		assert.Equal(t, "hashed:correct horse", u.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := newMockUserRepo(&entity.User{ID: "u-1", Email: "sam@acme.test"})
		svc, _ := newAuthService(users)

		_, err := svc.Signup(ctx, SignupInput{Name: "Sam", Email: "sam@acme.test", Password: "correct horse"})
		assert.ErrorIs(t, err, domainwf.ErrConflict)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	approved := &entity.User{
		ID:           "u-1",
		Email:        "sam@acme.test",
		PasswordHash: "hashed:correct horse",
		Designation:  domainwf.RoleChecker,
		Approved:     true,
	}
	pending := &entity.User{
		ID:           "u-2",
		Email:        "new@acme.test",
		PasswordHash: "hashed:correct horse",
		Pending:      true,
	}

	svc, tokens := newAuthService(newMockUserRepo(approved, pending))

	session, err := svc.Login(ctx, "SAM@acme.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "token-u-1", session.Token)
	assert.Equal(t, "u-1", session.User.ID)

	_, err = svc.Login(ctx, "sam@acme.test", "wrong")
	assert.True(t, IsUnauthenticated(err))

	_, err = svc.Login(ctx, "nobody@acme.test", "correct horse")
	assert.True(t, IsUnauthenticated(err))

	_, err = svc.Login(ctx, "new@acme.test", "correct horse")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	assert.False(t, IsUnauthenticated(err))
	assert.Contains(t, err.Error(), "pending approval")

	assert.Len(t, tokens.issued, 1)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	user := &entity.User{
		ID:          "u-1",
		Name:        "Sam",
		Email:       "sam@acme.test",
		Designation: domainwf.RoleFinance,
		Company:     "Acme",
		Approved:    true,
	}
	users := newMockUserRepo(user)
	svc, _ := newAuthService(users)

	actor, err := svc.Authenticate(ctx, "token-u-1")
	require.NoError(t, err)
	assert.Equal(t, domainwf.RoleFinance, actor.Role)
	assert.Equal(t, "Acme", actor.Company)

	t.Run("designation changes apply without a new token", func(t *testing.T) {
		users.users["u-1"].Designation = domainwf.RoleChecker
		actor, err := svc.Authenticate(ctx, "token-u-1")
		require.NoError(t, err)
		assert.Equal(t, domainwf.RoleChecker, actor.Role)
	})

	t.Run("bad tokens", func(t *testing.T) {
		for _, token := range []string{"", "garbage", "token-u-404"} {
			_, err := svc.Authenticate(ctx, token)
			assert.True(t, IsUnauthenticated(err), "token %q", token)
		}
	})

	t.Run("me returns the live profile", func(t *testing.T) {
		u, err := svc.Me(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, "sam@acme.test", u.Email)
	})
}

func TestAuthService_Bootstrap(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)

	u, err := svc.Bootstrap(context.Background(), SignupInput{Name: "Root", Email: "root@zoompay.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, domainwf.RoleSuperuser, u.Designation)
	assert.True(t, u.CanSignIn())
	assert.True(t, u.Approved)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	user := &entity.User{ID: "u-1", Name: "Sam", Email: "sam@acme.test", Company: "Acme", Designation: domainwf.RoleSubmitter}
	actor := user.Actor()

	t.Run("name and contact are updated", func(t *testing.T) {
		users := newMockUserRepo(user)
		svc, _ := newAuthService(users)

		u, err := svc.UpdateProfile(ctx, actor, ProfileInput{Name: "  Samira ", Contact: " 0300-1234567 "})
		require.NoError(t, err)
		assert.Equal(t, "Samira", u.Name)
		assert.Equal(t, "0300-1234567", u.Contact)
		assert.Equal(t, "Acme", u.Company, "company stays superuser-managed")
		assert.Equal(t, "u-1", u.UpdatedBy)
		assert.Equal(t, "Samira", users.users["u-1"].Name)
	})

	tests := []struct {
		name      string
		in        ProfileInput
		wantField string
	}{
		{name: "blank name", in: ProfileInput{Name: "  ", Contact: "1"}, wantField: "name"},
		{name: "long contact", in: ProfileInput{Name: "Sam", Contact: strings.Repeat("9", maxContactLength+1)}, wantField: "contact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthService(newMockUserRepo(user))
			_, err := svc.UpdateProfile(ctx, actor, tt.in)
			var verr *domainwf.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}

	t.Run("missing account", func(t *testing.T) {
		svc, _ := newAuthService(newMockUserRepo())
		_, err := svc.UpdateProfile(ctx, actor, ProfileInput{Name: "Sam"})
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	newUser := func() *entity.User {
		return &entity.User{ID: "u-1", Email: "sam@acme.test", PasswordHash: "hashed:correct horse", Designation: domainwf.RoleChecker}
	}

	tests := []struct {
		name      string
		in        PasswordChangeInput
		wantField string
	}{
		{name: "missing current", in: PasswordChangeInput{NewPassword: "battery staple"}, wantField: "current_password"},
		{name: "short new", in: PasswordChangeInput{CurrentPassword: "correct horse", NewPassword: "short"}, wantField: "new_password"},
		{name: "wrong current", in: PasswordChangeInput{CurrentPassword: "guess", NewPassword: "battery staple"}, wantField: "current_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUser()
			users := newMockUserRepo(u)
			svc, _ := newAuthService(users)

			err := svc.ChangePassword(ctx, u.Actor(), tt.in)
			var verr *domainwf.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Zero(t, users.passwordUpdates)
		})
	}

	t.Run("new password signs in", func(t *testing.T) {
		u := newUser()
		users := newMockUserRepo(u)
		svc, _ := newAuthService(users)

		require.NoError(t, svc.ChangePassword(ctx, u.Actor(), PasswordChangeInput{CurrentPassword: "correct horse", NewPassword: "battery staple"}))
		assert.Equal(t, 1, users.passwordUpdates)

		_, err := svc.Login(ctx, "sam@acme.test", "correct horse")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = svc.Login(ctx, "sam@acme.test", "battery staple")
		assert.NoError(t, err)
	})
}
