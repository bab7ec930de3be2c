package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/mocks"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
	"github.com/beaconlabs/statuspage-backend/internal/core/services"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	validParams := func() ports.RegisterParams {
		return ports.RegisterParams{
			FullName:         "Ada Lovelace",
			Email:            "ada@example.com",
			Password:         "SecurePass1",
			OrganizationName: "Acme",
			OrganizationSlug: "acme",
		}
	}

	t.Run("new slug creates organization and admin", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockOrgs := mocks.NewMockOrganizationRepository()
		svc := services.NewAuthService(mockUsers, mockOrgs, mocks.NewMockTransactionManager())

		mockUsers.On("GetByEmail", ctx, "ada@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockOrgs.On("GetBySlug", ctx, "acme").Return(nil, apperrors.ErrOrganizationNotFound)
		mockOrgs.On("Create", ctx, mock.MatchedBy(func(o *domain.Organization) bool {
			return o.Name == "Acme" && o.Slug == "acme"
		})).Return(&domain.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme"}, nil)
		mockUsers.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleAdmin && u.Email == "ada@example.com"
		})).Return(&domain.User{ID: uuid.New(), Email: "ada@example.com", Role: domain.RoleAdmin}, nil)

		user, err := svc.Register(ctx, validParams())

		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, user.Role)
		mockOrgs.AssertExpectations(t)
		mockUsers.AssertExpectations(t)
	})

	t.Run("existing slug joins as member", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockOrgs := mocks.NewMockOrganizationRepository()
		svc := services.NewAuthService(mockUsers, mockOrgs, mocks.NewMockTransactionManager())

		existingOrg := &domain.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme"}
		mockUsers.On("GetByEmail", ctx, "ada@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockOrgs.On("GetBySlug", ctx, "acme").Return(existingOrg, nil)
		mockUsers.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleMember && u.OrganizationID == existingOrg.ID
		})).Return(&domain.User{ID: uuid.New(), Role: domain.RoleMember, OrganizationID: existingOrg.ID}, nil)

		user, err := svc.Register(ctx, validParams())

		require.NoError(t, err)
		assert.Equal(t, domain.RoleMember, user.Role)
		mockOrgs.AssertNotCalled(t, "Create")
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockOrgs := mocks.NewMockOrganizationRepository()
		svc := services.NewAuthService(mockUsers, mockOrgs, mocks.NewMockTransactionManager())

		mockUsers.On("GetByEmail", ctx, "ada@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "ada@example.com"}, nil)

		_, err := svc.Register(ctx, validParams())

		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockUsers.AssertNotCalled(t, "Create")
	})

	t.Run("weak password rejected before any lookup", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockOrgs := mocks.NewMockOrganizationRepository()
		svc := services.NewAuthService(mockUsers, mockOrgs, mocks.NewMockTransactionManager())

		params := validParams()
		params.Password = "weak"

		_, err := svc.Register(ctx, params)

		require.Error(t, err)
		var validationErrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Contains(t, validationErrs.Errors, "password")
		mockUsers.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("bad slug rejected", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockOrgs := mocks.NewMockOrganizationRepository()
		svc := services.NewAuthService(mockUsers, mockOrgs, mocks.NewMockTransactionManager())

		mockUsers.On("GetByEmail", ctx, "ada@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockOrgs.On("GetBySlug", ctx, "Not A Slug").Return(nil, apperrors.ErrOrganizationNotFound)

		params := validParams()
		params.OrganizationSlug = "Not A Slug"

		_, err := svc.Register(ctx, params)

		assert.ErrorIs(t, err, domain.ErrInvalidSlug)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	newUser := func(t *testing.T, password string) *domain.User {
		t.Helper()
		hash, err := domain.HashPassword(password)
		require.NoError(t, err)
		return &domain.User{
			ID:             uuid.New(),
			Email:          "ada@example.com",
			HashedPassword: hash,
			Role:           domain.RoleAdmin,
			OrganizationID: uuid.New(),
		}
	}

	t.Run("success", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUsers, mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		user := newUser(t, "SecurePass1")
		mockUsers.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "ada@example.com", "SecurePass1")

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUsers, mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		mockUsers.On("GetByEmail", ctx, "ada@example.com").Return(newUser(t, "SecurePass1"), nil)

		_, err := svc.Login(ctx, "ada@example.com", "WrongPass1")

		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email does not leak existence", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUsers, mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		mockUsers.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)

		_, err := svc.Login(ctx, "ghost@example.com", "SecurePass1")

		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("empty inputs", func(t *testing.T) {
		svc := services.NewAuthService(mocks.NewMockUserRepository(), mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		_, err := svc.Login(ctx, "", "SecurePass1")
		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)

		_, err = svc.Login(ctx, "ada@example.com", "")
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	})
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the account behind the claims", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUsers, mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		user := &domain.User{
			ID:             uuid.New(),
			OrganizationID: uuid.New(),
			FullName:       "Ada Lovelace",
			Email:          "ada@example.com",
			Role:           domain.RoleAdmin,
		}
		mockUsers.On("GetByID", ctx, user.ID).Return(user, nil)

		found, err := svc.CurrentUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "ada@example.com", found.Email)
	})

	t.Run("unknown id", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUsers, mocks.NewMockOrganizationRepository(), mocks.NewMockTransactionManager())

		id := uuid.New()
		mockUsers.On("GetByID", ctx, id).Return(nil, apperrors.ErrUserNotFound)

		_, err := svc.CurrentUser(ctx, id)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}
