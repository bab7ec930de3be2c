package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// AuthService implements authentication business logic
type AuthService struct {
	userRepo  ports.UserRepository
	orgRepo   ports.OrganizationRepository
	txManager ports.TransactionManager
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new authentication service
func NewAuthService(userRepo ports.UserRepository, orgRepo ports.OrganizationRepository, txManager ports.TransactionManager) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		txManager: txManager,
	}
}

// Register creates a new dashboard account. When the slug is unused a fresh
// organization is created and the user becomes its admin; when it names an
// existing organization the user joins it as a member.
func (s *AuthService) Register(ctx context.Context, params ports.RegisterParams) (*domain.User, error) {
	regParams := domain.UserRegistrationParams{
		FullName: params.FullName,
		Email:    params.Email,
		Password: params.Password,
	}
	if err := regParams.Validate(); err != nil {
		return nil, err
	}

	// Check if user already exists
	_, err := s.userRepo.GetByEmail(ctx, params.Email)
	if err == nil {
		return nil, apperrors.ErrUserExists
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err // An actual DB error occurred
	}

	var created *domain.User
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		org, err := s.orgRepo.GetBySlug(txCtx, params.OrganizationSlug)
		role := domain.RoleMember

		switch {
		case err == nil:
			// Existing organization: join it.
		case errors.Is(err, apperrors.ErrOrganizationNotFound):
			org, err = domain.NewOrganization(params.OrganizationName, params.OrganizationSlug)
			if err != nil {
				return err
			}
			org, err = s.orgRepo.Create(txCtx, org)
			if err != nil {
				return err
			}
			role = domain.RoleAdmin
		default:
			return err
		}

		user, err := domain.NewUser(regParams, org.ID, role)
		if err != nil {
			return err
		}

		created, err = s.userRepo.Create(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login authenticates a user with email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't reveal whether email exists
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

// CurrentUser loads the account behind an authenticated request's claims.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
