package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// IncidentService implements business logic for incident management.
type IncidentService struct {
	incidentRepo ports.IncidentRepository
	serviceRepo  ports.ServiceRepository
	txManager    ports.TransactionManager
	notifier     ports.Notifier
	broadcaster  ports.EventBroadcaster
	wg           sync.WaitGroup
}

var _ ports.IncidentService = (*IncidentService)(nil)

// NewIncidentService creates a new incident service.
func NewIncidentService(
	incidentRepo ports.IncidentRepository,
	serviceRepo ports.ServiceRepository,
	txManager ports.TransactionManager,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
) *IncidentService {
	return &IncidentService{
		incidentRepo: incidentRepo,
		serviceRepo:  serviceRepo,
		txManager:    txManager,
		notifier:     notifier,
		broadcaster:  broadcaster,
	}
}

// CreateIncident opens a new incident. The incident row and its optional
// initial timeline message are written atomically.
func (s *IncidentService) CreateIncident(ctx context.Context, params ports.CreateIncidentParams) (*domain.Incident, error) {
	if err := s.validateAffectedServices(ctx, params.OrganizationID, params.AffectedServices); err != nil {
		return nil, err
	}

	inc, err := domain.NewIncident(params.OrganizationID, params.Title, params.Description, params.Severity, params.AffectedServices)
	if err != nil {
		return nil, err
	}

	var created *domain.Incident
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		created, err = s.incidentRepo.Create(txCtx, inc)
		if err != nil {
			return err
		}

		if params.InitialMessage != "" {
			update, err := s.incidentRepo.AppendUpdate(txCtx, &domain.IncidentUpdate{
				IncidentID: created.ID,
				Message:    params.InitialMessage,
				PostedByID: params.ActorID,
			})
			if err != nil {
				return err
			}
			created.Updates = []domain.IncidentUpdate{*update}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentCreatedEvent(created))
	s.notifySubscribers(created.OrganizationID,
		fmt.Sprintf("New incident: %s", created.Title),
		fmt.Sprintf("A %s incident is being investigated: %s", created.Severity, created.Title),
	)
	return created, nil
}

// GetIncident retrieves one incident scoped to an organization.
func (s *IncidentService) GetIncident(ctx context.Context, incidentID, orgID uuid.UUID) (*domain.Incident, error) {
	inc, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.OrganizationID != orgID {
		return nil, apperrors.ErrIncidentNotFound
	}
	return inc, nil
}

// ListIncidents returns an organization's incidents, optionally only the
// unresolved ones (what the public page shows).
func (s *IncidentService) ListIncidents(ctx context.Context, orgID uuid.UUID, openOnly bool) ([]*domain.Incident, error) {
	return s.incidentRepo.ListByOrganization(ctx, orgID, openOnly)
}

// UpdateIncident applies partial changes and/or appends a timeline message.
func (s *IncidentService) UpdateIncident(ctx context.Context, params ports.UpdateIncidentParams) (*domain.Incident, error) {
	inc, err := s.GetIncident(ctx, params.IncidentID, params.OrganizationID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if *params.Title == "" {
			return nil, domain.ErrIncidentTitleRequired
		}
		inc.Title = *params.Title
	}
	if params.Description != nil {
		inc.Description = *params.Description
	}
	if params.Severity != nil {
		if !params.Severity.IsValid() {
			return nil, domain.ErrInvalidIncidentSeverity
		}
		inc.Severity = *params.Severity
	}
	if params.AffectedServices != nil {
		if err := s.validateAffectedServices(ctx, params.OrganizationID, params.AffectedServices); err != nil {
			return nil, err
		}
		inc.AffectedServices = params.AffectedServices
	}
	if params.Status != nil {
		if err := inc.ChangeStatus(*params.Status); err != nil {
			return nil, err
		}
	}

	var updated *domain.Incident
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		updated, err = s.incidentRepo.Update(txCtx, inc)
		if err != nil {
			return err
		}

		if params.Message != "" {
			update, err := s.incidentRepo.AppendUpdate(txCtx, &domain.IncidentUpdate{
				IncidentID: updated.ID,
				Message:    params.Message,
				PostedByID: params.ActorID,
			})
			if err != nil {
				return err
			}
			// Timeline is ordered newest first.
			updated.Updates = append([]domain.IncidentUpdate{*update}, updated.Updates...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentUpdatedEvent(updated))
	if params.Message != "" {
		s.notifySubscribers(updated.OrganizationID,
			fmt.Sprintf("Incident update: %s", updated.Title),
			params.Message,
		)
	}
	return updated, nil
}

// DeleteIncident removes an incident and tells viewers to drop it.
func (s *IncidentService) DeleteIncident(ctx context.Context, incidentID, orgID uuid.UUID) error {
	inc, err := s.GetIncident(ctx, incidentID, orgID)
	if err != nil {
		return err
	}

	if err := s.incidentRepo.Delete(ctx, inc.ID); err != nil {
		return err
	}

	_ = s.broadcaster.Broadcast(domain.NewIncidentDeletedEvent(inc.ID, inc.OrganizationID))
	return nil
}

// validateAffectedServices checks that every referenced service exists and
// belongs to the incident's organization.
func (s *IncidentService) validateAffectedServices(ctx context.Context, orgID uuid.UUID, serviceIDs []uuid.UUID) error {
	for _, serviceID := range serviceIDs {
		svc, err := s.serviceRepo.GetByID(ctx, serviceID)
		if err != nil {
			return apperrors.ErrAffectedServiceInvalid
		}
		if svc.OrganizationID != orgID {
			return apperrors.ErrAffectedServiceInvalid
		}
	}
	return nil
}

func (s *IncidentService) notifySubscribers(orgID uuid.UUID, subject, message string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.Notify(context.Background(), ports.NotificationParams{
			OrganizationID: orgID,
			Subject:        subject,
			Message:        message,
		})
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (s *IncidentService) Shutdown() {
	s.wg.Wait()
}
