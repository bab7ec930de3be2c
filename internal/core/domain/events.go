package domain

import "github.com/google/uuid"

// EventType identifies one of the real-time event kinds pushed to status-page
// viewers. The set is closed: use the New*Event constructors so callers cannot
// emit a type outside it.
type EventType string

const (
	EventServiceCreated  EventType = "service_created"
	EventServiceUpdated  EventType = "service_updated"
	EventServiceDeleted  EventType = "service_deleted"
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventIncidentDeleted EventType = "incident_deleted"
)

// Event is an immutable record of one committed state change, scoped to a
// single organization. OrganizationID is the routing key; Payload is the
// changed entity's current representation (or a tombstone for deletions).
type Event struct {
	Type           EventType `json:"event_type"`
	OrganizationID uuid.UUID `json:"-"`
	Payload        any       `json:"payload"`
}

// DeletedPayload is the tombstone payload broadcast for delete events.
type DeletedPayload struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
}

func NewServiceCreatedEvent(svc *Service) Event {
	return Event{Type: EventServiceCreated, OrganizationID: svc.OrganizationID, Payload: svc}
}

func NewServiceUpdatedEvent(svc *Service) Event {
	return Event{Type: EventServiceUpdated, OrganizationID: svc.OrganizationID, Payload: svc}
}

func NewServiceDeletedEvent(serviceID, orgID uuid.UUID) Event {
	return Event{
		Type:           EventServiceDeleted,
		OrganizationID: orgID,
		Payload:        DeletedPayload{ID: serviceID.String(), OrganizationID: orgID.String()},
	}
}

func NewIncidentCreatedEvent(inc *Incident) Event {
	return Event{Type: EventIncidentCreated, OrganizationID: inc.OrganizationID, Payload: inc}
}

func NewIncidentUpdatedEvent(inc *Incident) Event {
	return Event{Type: EventIncidentUpdated, OrganizationID: inc.OrganizationID, Payload: inc}
}

func NewIncidentDeletedEvent(incidentID, orgID uuid.UUID) Event {
	return Event{
		Type:           EventIncidentDeleted,
		OrganizationID: orgID,
		Payload:        DeletedPayload{ID: incidentID.String(), OrganizationID: orgID.String()},
	}
}
