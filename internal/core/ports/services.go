package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// RegisterParams defines the input for creating a new dashboard account.
// When OrganizationSlug names a new slug, a fresh organization is created and
// the user becomes its admin; otherwise the user joins the existing one.
type RegisterParams struct {
	FullName         string
	Email            string
	Password         string
	OrganizationName string
	OrganizationSlug string
}

// CreateServiceParams defines the input for adding a service to a status page.
type CreateServiceParams struct {
	OrganizationID uuid.UUID
	Name           string
	Description    string
	Status         domain.ServiceStatus
	ActorID        uuid.UUID
}

// UpdateServiceParams defines the input for changing a service. Nil fields are
// left untouched.
type UpdateServiceParams struct {
	ServiceID      uuid.UUID
	OrganizationID uuid.UUID
	Name           *string
	Description    *string
	Status         *domain.ServiceStatus
	ActorID        uuid.UUID
}

// DailyStatus is the worst status a service showed on one day of the
// reporting window.
type DailyStatus struct {
	Date   string               `json:"date"`
	Status domain.ServiceStatus `json:"status"`
}

// ServiceUptime is one service's availability over a reporting window: the
// overall percentage plus a per-day breakdown for the status-page timeline.
type ServiceUptime struct {
	ServiceID     uuid.UUID     `json:"service_id"`
	ServiceName   string        `json:"service_name"`
	UptimePercent float64       `json:"uptime_percent"`
	WindowDays    int           `json:"window_days"`
	DailyStatuses []DailyStatus `json:"daily_statuses"`
}

// ServiceService defines the core business operations for managing the
// services shown on an organization's status page.
type ServiceService interface {
	CreateService(ctx context.Context, params CreateServiceParams) (*domain.Service, error)
	GetService(ctx context.Context, serviceID, orgID uuid.UUID) (*domain.Service, error)
	ListServices(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error)
	UpdateService(ctx context.Context, params UpdateServiceParams) (*domain.Service, error)
	DeleteService(ctx context.Context, serviceID, orgID uuid.UUID) error
	Uptime(ctx context.Context, orgID uuid.UUID, days int) ([]ServiceUptime, error)
	Shutdown()
}

// CreateIncidentParams defines the input for opening a new incident.
type CreateIncidentParams struct {
	OrganizationID   uuid.UUID
	Title            string
	Description      string
	Severity         domain.IncidentSeverity
	AffectedServices []uuid.UUID
	InitialMessage   string
	ActorID          uuid.UUID
}

// UpdateIncidentParams defines the input for updating an incident. Nil fields
// are left untouched; a non-empty Message appends a timeline entry.
type UpdateIncidentParams struct {
	IncidentID       uuid.UUID
	OrganizationID   uuid.UUID
	Title            *string
	Description      *string
	Status           *domain.IncidentStatus
	Severity         *domain.IncidentSeverity
	AffectedServices []uuid.UUID
	Message          string
	ActorID          uuid.UUID
}

// IncidentService defines the core business operations for incidents.
type IncidentService interface {
	CreateIncident(ctx context.Context, params CreateIncidentParams) (*domain.Incident, error)
	GetIncident(ctx context.Context, incidentID, orgID uuid.UUID) (*domain.Incident, error)
	ListIncidents(ctx context.Context, orgID uuid.UUID, openOnly bool) ([]*domain.Incident, error)
	UpdateIncident(ctx context.Context, params UpdateIncidentParams) (*domain.Incident, error)
	DeleteIncident(ctx context.Context, incidentID, orgID uuid.UUID) error
	Shutdown()
}

// PublicSnapshot is everything a status-page viewer loads before attaching the
// real-time feed.
type PublicSnapshot struct {
	Organization *domain.Organization `json:"organization"`
	Services     []*domain.Service    `json:"services"`
	Incidents    []*domain.Incident   `json:"incidents"`
}

// PublicService defines the unauthenticated read surface of a status page.
type PublicService interface {
	Snapshot(ctx context.Context, slug string) (*PublicSnapshot, error)
	OrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	OrganizationByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	Subscribe(ctx context.Context, slug, email string) (*domain.Subscriber, error)
	Unsubscribe(ctx context.Context, slug, email string) error
}

// EventBroadcaster defines the port mutation handlers use to push domain
// events to connected status-page viewers. Implementations must be cheap and
// non-blocking from the caller's perspective.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// NotificationParams defines the input for notifying an organization's email
// subscribers.
type NotificationParams struct {
	OrganizationID uuid.UUID
	Subject        string
	Message        string
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
