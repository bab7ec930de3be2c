package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for service-specific validation.
var (
	ErrServiceNameRequired = errors.New("service name is required")
	ErrInvalidServiceState = errors.New("invalid service status")
)

// ServiceStatus represents the operational state shown on the status page.
type ServiceStatus string

const (
	StatusOperational    ServiceStatus = "operational"
	StatusDegraded       ServiceStatus = "degraded_performance"
	StatusPartialOutage  ServiceStatus = "partial_outage"
	StatusMajorOutage    ServiceStatus = "major_outage"
	StatusMaintenance    ServiceStatus = "under_maintenance"
)

// ValidServiceStatuses lists every accepted status value, used by request
// validation and by the uptime calculation.
var ValidServiceStatuses = []ServiceStatus{
	StatusOperational,
	StatusDegraded,
	StatusPartialOutage,
	StatusMajorOutage,
	StatusMaintenance,
}

// IsValid reports whether s is a member of the closed status set.
func (s ServiceStatus) IsValid() bool {
	for _, v := range ValidServiceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CountsAsUp reports whether the status counts as available for uptime math.
// Degraded performance still counts as up; outages do not.
func (s ServiceStatus) CountsAsUp() bool {
	return s == StatusOperational || s == StatusDegraded
}

// Service is a monitored component on an organization's status page.
type Service struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         ServiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`
}

// StatusChange is one entry in a service's status history. OldStatus is nil
// for the initial entry written at creation time.
type StatusChange struct {
	ID        int64          `json:"id"`
	ServiceID uuid.UUID      `json:"service_id"`
	OldStatus *ServiceStatus `json:"old_status,omitempty"`
	NewStatus ServiceStatus  `json:"new_status"`
	ChangedAt time.Time      `json:"changed_at"`
}

// NewService is a factory function to create a valid new service.
func NewService(orgID uuid.UUID, name, description string, status ServiceStatus) (*Service, error) {
	if name == "" {
		return nil, ErrServiceNameRequired
	}
	if status == "" {
		status = StatusOperational
	}
	if !status.IsValid() {
		return nil, ErrInvalidServiceState
	}

	return &Service{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ChangeStatus transitions the service to a new status and reports whether the
// status actually changed (a no-op change writes no history entry).
func (s *Service) ChangeStatus(newStatus ServiceStatus) (bool, error) {
	if !newStatus.IsValid() {
		return false, ErrInvalidServiceState
	}
	if s.Status == newStatus {
		return false, nil
	}
	s.Status = newStatus
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return true, nil
}

// Rename updates the display fields of the service.
func (s *Service) Rename(name, description string) error {
	if name == "" {
		return ErrServiceNameRequired
	}
	s.Name = name
	s.Description = description
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return nil
}
