package statusfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies one of the event kinds carried on the status feed. The
// set is closed; envelopes with any other value are rejected by State.Apply.
type EventType string

const (
	EventServiceCreated  EventType = "service_created"
	EventServiceUpdated  EventType = "service_updated"
	EventServiceDeleted  EventType = "service_deleted"
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventIncidentDeleted EventType = "incident_deleted"
)

// ErrUnknownEventType reports an envelope whose event_type is outside the
// closed set. Callers log these at the decode boundary; they are never merged.
var ErrUnknownEventType = errors.New("statusfeed: unknown event type")

// Event is one envelope as it arrives on the wire.
type Event struct {
	Type    EventType       `json:"event_type"`
	Payload json.RawMessage `json:"payload"`
}

// Service is a monitored component as shown on a status page.
type Service struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// IncidentUpdate is one timeline entry on an incident, newest first.
type IncidentUpdate struct {
	ID         int64     `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	Message    string    `json:"message"`
	PostedAt   time.Time `json:"posted_at"`
}

// Incident is an ongoing or resolved disruption.
type Incident struct {
	ID               uuid.UUID        `json:"id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Status           string           `json:"status"`
	Severity         string           `json:"severity"`
	AffectedServices []uuid.UUID      `json:"affected_services"`
	Updates          []IncidentUpdate `json:"updates"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
}

// tombstone is the payload of the *_deleted event kinds.
type tombstone struct {
	ID uuid.UUID `json:"id"`
}

// State is the feed's local view of one organization's status page: the
// current services and incidents, kept in arrival order. Safe for concurrent
// readers while the feed applies events.
type State struct {
	mu        sync.RWMutex
	services  []Service
	incidents []Incident
}

// NewState returns an empty view.
func NewState() *State {
	return &State{}
}

// Apply merges one event into the view.
//
// Created and updated events replace the entity in place when its id is
// already known and append it otherwise, so a replayed create or an update
// that races a create both converge on the same view. Deleted events remove
// the entity and are a no-op when it is already gone.
func (s *State) Apply(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case EventServiceCreated, EventServiceUpdated:
		var svc Service
		if err := json.Unmarshal(event.Payload, &svc); err != nil {
			return fmt.Errorf("statusfeed: decode %s payload: %w", event.Type, err)
		}
		s.services = upsertService(s.services, svc)
		return nil

	case EventServiceDeleted:
		var tomb tombstone
		if err := json.Unmarshal(event.Payload, &tomb); err != nil {
			return fmt.Errorf("statusfeed: decode %s payload: %w", event.Type, err)
		}
		s.services = removeService(s.services, tomb.ID)
		return nil

	case EventIncidentCreated, EventIncidentUpdated:
		var inc Incident
		if err := json.Unmarshal(event.Payload, &inc); err != nil {
			return fmt.Errorf("statusfeed: decode %s payload: %w", event.Type, err)
		}
		s.incidents = upsertIncident(s.incidents, inc)
		return nil

	case EventIncidentDeleted:
		var tomb tombstone
		if err := json.Unmarshal(event.Payload, &tomb); err != nil {
			return fmt.Errorf("statusfeed: decode %s payload: %w", event.Type, err)
		}
		s.incidents = removeIncident(s.incidents, tomb.ID)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}
}

// Services returns a copy of the current services.
func (s *State) Services() []Service {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Service, len(s.services))
	copy(out, s.services)
	return out
}

// Incidents returns a copy of the current incidents.
func (s *State) Incidents() []Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

func upsertService(services []Service, svc Service) []Service {
	for i := range services {
		if services[i].ID == svc.ID {
			services[i] = svc
			return services
		}
	}
	return append(services, svc)
}

func removeService(services []Service, id uuid.UUID) []Service {
	for i := range services {
		if services[i].ID == id {
			return append(services[:i], services[i+1:]...)
		}
	}
	return services
}

func upsertIncident(incidents []Incident, inc Incident) []Incident {
	for i := range incidents {
		if incidents[i].ID == inc.ID {
			incidents[i] = inc
			return incidents
		}
	}
	return append(incidents, inc)
}

func removeIncident(incidents []Incident, id uuid.UUID) []Incident {
	for i := range incidents {
		if incidents[i].ID == id {
			return append(incidents[:i], incidents[i+1:]...)
		}
	}
	return incidents
}
