package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrIncidentTitleRequired   = errors.New("incident title is required")
	ErrInvalidIncidentStatus   = errors.New("invalid incident status")
	ErrInvalidIncidentSeverity = errors.New("invalid incident severity")
	ErrUpdateMessageRequired   = errors.New("update message is required")
)

// IncidentStatus tracks an incident through its public lifecycle.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// IsValid reports whether s is a member of the closed status set.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

// IncidentSeverity indicates impact level.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityMajor    IncidentSeverity = "major"
	SeverityCritical IncidentSeverity = "critical"
)

// IsValid reports whether s is a member of the closed severity set.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// IncidentUpdate is one timeline message posted to an incident.
type IncidentUpdate struct {
	ID         int64     `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	Message    string    `json:"message"`
	PostedByID uuid.UUID `json:"posted_by_id"`
	PostedAt   time.Time `json:"posted_at"`
}

// Incident is a reported disruption affecting one or more services of an
// organization. Updates are ordered newest first.
type Incident struct {
	ID               uuid.UUID        `json:"id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Status           IncidentStatus   `json:"status"`
	Severity         IncidentSeverity `json:"severity"`
	AffectedServices []uuid.UUID      `json:"affected_services"`
	Updates          []IncidentUpdate `json:"updates"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
}

// NewIncident is a factory function to create a valid new incident.
func NewIncident(orgID uuid.UUID, title, description string, severity IncidentSeverity, affected []uuid.UUID) (*Incident, error) {
	if title == "" {
		return nil, ErrIncidentTitleRequired
	}
	if severity == "" {
		severity = SeverityMinor
	}
	if !severity.IsValid() {
		return nil, ErrInvalidIncidentSeverity
	}

	return &Incident{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		Title:            title,
		Description:      description,
		Status:           IncidentInvestigating,
		Severity:         severity,
		AffectedServices: affected,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ChangeStatus moves the incident to a new status. Transitioning to resolved
// stamps ResolvedAt; leaving resolved clears it again.
func (i *Incident) ChangeStatus(newStatus IncidentStatus) error {
	if !newStatus.IsValid() {
		return ErrInvalidIncidentStatus
	}

	now := time.Now().UTC()
	if newStatus == IncidentResolved && i.Status != IncidentResolved {
		i.ResolvedAt = &now
	} else if newStatus != IncidentResolved && i.Status == IncidentResolved {
		i.ResolvedAt = nil
	}

	i.Status = newStatus
	i.UpdatedAt = &now
	return nil
}

// IsResolved reports whether the incident has been closed out.
func (i *Incident) IsResolved() bool {
	return i.Status == IncidentResolved
}
