package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// PublicService serves the unauthenticated status-page surface: the initial
// snapshot a viewer loads before attaching the real-time feed, and the email
// subscription endpoints.
type PublicService struct {
	orgRepo        ports.OrganizationRepository
	serviceRepo    ports.ServiceRepository
	incidentRepo   ports.IncidentRepository
	subscriberRepo ports.SubscriberRepository
}

var _ ports.PublicService = (*PublicService)(nil)

// NewPublicService creates a new public status-page service.
func NewPublicService(
	orgRepo ports.OrganizationRepository,
	serviceRepo ports.ServiceRepository,
	incidentRepo ports.IncidentRepository,
	subscriberRepo ports.SubscriberRepository,
) *PublicService {
	return &PublicService{
		orgRepo:        orgRepo,
		serviceRepo:    serviceRepo,
		incidentRepo:   incidentRepo,
		subscriberRepo: subscriberRepo,
	}
}

// OrganizationBySlug resolves a status page's organization from its public slug.
func (s *PublicService) OrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return s.orgRepo.GetBySlug(ctx, slug)
}

// OrganizationByID resolves an organization by id, used to validate feed
// handshakes.
func (s *PublicService) OrganizationByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return s.orgRepo.GetByID(ctx, id)
}

// Snapshot returns the current state of a status page: the organization, its
// services and any unresolved incidents. Viewers render this once and then
// apply feed events on top of it.
func (s *PublicService) Snapshot(ctx context.Context, slug string) (*ports.PublicSnapshot, error) {
	org, err := s.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	svcs, err := s.serviceRepo.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	incidents, err := s.incidentRepo.ListByOrganization(ctx, org.ID, true)
	if err != nil {
		return nil, err
	}

	return &ports.PublicSnapshot{
		Organization: org,
		Services:     svcs,
		Incidents:    incidents,
	}, nil
}

// Subscribe adds an email address to a status page's notification list.
// Subscribing an address that is already on the list is not an error; the
// existing subscription is returned.
func (s *PublicService) Subscribe(ctx context.Context, slug, email string) (*domain.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !domain.IsValidEmail(email) {
		return nil, apperrors.ErrEmailInvalid
	}

	org, err := s.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriberRepo.Create(ctx, &domain.Subscriber{
		OrganizationID: org.ID,
		Email:          email,
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes an email address from a status page's notification
// list. It succeeds whether or not the address was subscribed, so callers
// cannot probe which addresses are on the list.
func (s *PublicService) Unsubscribe(ctx context.Context, slug, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	org, err := s.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	err = s.subscriberRepo.DeleteByEmail(ctx, org.ID, email)
	if err != nil && !errors.Is(err, apperrors.ErrSubscriberNotFound) {
		return err
	}
	return nil
}
