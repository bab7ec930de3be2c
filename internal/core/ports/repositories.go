package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
)

// OrganizationRepository defines the port for organization persistence.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)
}

// UserRepository defines the port for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ServiceRepository defines the port for service persistence, including the
// status history used for uptime reporting.
type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) (*domain.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) (*domain.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AppendStatusChange(ctx context.Context, change *domain.StatusChange) error
	ListStatusHistory(ctx context.Context, serviceID uuid.UUID, since time.Time) ([]*domain.StatusChange, error)
}

// IncidentRepository defines the port for incident persistence. Create and
// AppendUpdate participate in transactions started by a TransactionManager.
type IncidentRepository interface {
	Create(ctx context.Context, inc *domain.Incident) (*domain.Incident, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, openOnly bool) ([]*domain.Incident, error)
	Update(ctx context.Context, inc *domain.Incident) (*domain.Incident, error)
	AppendUpdate(ctx context.Context, update *domain.IncidentUpdate) (*domain.IncidentUpdate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriberRepository defines the port for status-page email subscriptions.
type SubscriberRepository interface {
	Create(ctx context.Context, sub *domain.Subscriber) (*domain.Subscriber, error)
	DeleteByEmail(ctx context.Context, orgID uuid.UUID, email string) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Subscriber, error)
}
