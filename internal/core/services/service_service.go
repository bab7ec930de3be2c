package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// ServiceService implements business logic for the services shown on an
// organization's status page. Every committed mutation is pushed to connected
// viewers through the event broadcaster; status changes additionally notify
// the organization's email subscribers.
type ServiceService struct {
	serviceRepo ports.ServiceRepository
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	wg          sync.WaitGroup
}

var _ ports.ServiceService = (*ServiceService)(nil)

// NewServiceService creates a new service service.
func NewServiceService(
	serviceRepo ports.ServiceRepository,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
) *ServiceService {
	return &ServiceService{
		serviceRepo: serviceRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

// CreateService handles the use case for adding a service to a status page.
func (s *ServiceService) CreateService(ctx context.Context, params ports.CreateServiceParams) (*domain.Service, error) {
	svc, err := domain.NewService(params.OrganizationID, params.Name, params.Description, params.Status)
	if err != nil {
		return nil, err
	}

	created, err := s.serviceRepo.Create(ctx, svc)
	if err != nil {
		return nil, err
	}

	// Seed the status history so uptime reporting has a starting point.
	if err := s.serviceRepo.AppendStatusChange(ctx, &domain.StatusChange{
		ServiceID: created.ID,
		NewStatus: created.Status,
		ChangedAt: created.CreatedAt,
	}); err != nil {
		return nil, err
	}

	_ = s.broadcaster.Broadcast(domain.NewServiceCreatedEvent(created))
	return created, nil
}

// GetService retrieves a single service scoped to an organization.
func (s *ServiceService) GetService(ctx context.Context, serviceID, orgID uuid.UUID) (*domain.Service, error) {
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	// Tenant isolation: a service of another organization does not exist as
	// far as this caller is concerned.
	if svc.OrganizationID != orgID {
		return nil, apperrors.ErrServiceNotFound
	}
	return svc, nil
}

// ListServices returns all services for one organization.
func (s *ServiceService) ListServices(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error) {
	return s.serviceRepo.ListByOrganization(ctx, orgID)
}

// UpdateService applies partial changes to a service. A status change appends
// to the status history, notifies subscribers and is broadcast to viewers.
func (s *ServiceService) UpdateService(ctx context.Context, params ports.UpdateServiceParams) (*domain.Service, error) {
	svc, err := s.GetService(ctx, params.ServiceID, params.OrganizationID)
	if err != nil {
		return nil, err
	}

	oldStatus := svc.Status

	if params.Name != nil {
		description := svc.Description
		if params.Description != nil {
			description = *params.Description
		}
		if err := svc.Rename(*params.Name, description); err != nil {
			return nil, err
		}
	} else if params.Description != nil {
		if err := svc.Rename(svc.Name, *params.Description); err != nil {
			return nil, err
		}
	}

	statusChanged := false
	if params.Status != nil {
		statusChanged, err = svc.ChangeStatus(*params.Status)
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.serviceRepo.Update(ctx, svc)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		change := &domain.StatusChange{
			ServiceID: updated.ID,
			OldStatus: &oldStatus,
			NewStatus: updated.Status,
			ChangedAt: time.Now().UTC(),
		}
		if err := s.serviceRepo.AppendStatusChange(ctx, change); err != nil {
			return nil, err
		}
		s.notifyStatusChange(updated, oldStatus)
	}

	_ = s.broadcaster.Broadcast(domain.NewServiceUpdatedEvent(updated))
	return updated, nil
}

// DeleteService removes a service and tells viewers to drop it.
func (s *ServiceService) DeleteService(ctx context.Context, serviceID, orgID uuid.UUID) error {
	svc, err := s.GetService(ctx, serviceID, orgID)
	if err != nil {
		return err
	}

	if err := s.serviceRepo.Delete(ctx, svc.ID); err != nil {
		return err
	}

	_ = s.broadcaster.Broadcast(domain.NewServiceDeletedEvent(svc.ID, svc.OrganizationID))
	return nil
}

// Uptime computes per-service availability over the reporting window from the
// status history. Degraded performance counts as up; maintenance windows are
// excluded from the denominator.
func (s *ServiceService) Uptime(ctx context.Context, orgID uuid.UUID, days int) ([]ports.ServiceUptime, error) {
	if days <= 0 {
		days = 90
	}

	svcs, err := s.serviceRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -days)

	report := make([]ports.ServiceUptime, 0, len(svcs))
	for _, svc := range svcs {
		history, err := s.serviceRepo.ListStatusHistory(ctx, svc.ID, windowStart)
		if err != nil {
			return nil, err
		}
		segments := buildSegments(history, svc.Status, windowStart)
		report = append(report, ports.ServiceUptime{
			ServiceID:     svc.ID,
			ServiceName:   svc.Name,
			UptimePercent: computeUptime(segments, svc.Status, now),
			WindowDays:    days,
			DailyStatuses: computeDailyStatuses(segments, windowStart, now, days),
		})
	}
	return report, nil
}

// statusSegment is one run of a single status inside the reporting window,
// lasting from its start until the next segment begins (or the window ends).
type statusSegment struct {
	status domain.ServiceStatus
	from   time.Time
}

// buildSegments turns the in-window status changes into segments. The status
// before the first change is taken from its OldStatus; with no history at all
// the current status is assumed for the whole window.
func buildSegments(history []*domain.StatusChange, current domain.ServiceStatus, windowStart time.Time) []statusSegment {
	if len(history) == 0 {
		return []statusSegment{{status: current, from: windowStart}}
	}

	initial := history[0].NewStatus
	if history[0].OldStatus != nil {
		initial = *history[0].OldStatus
	}
	segments := []statusSegment{{status: initial, from: windowStart}}
	for _, change := range history {
		at := change.ChangedAt
		if at.Before(windowStart) {
			at = windowStart
		}
		segments = append(segments, statusSegment{status: change.NewStatus, from: at})
	}
	return segments
}

func computeUptime(segments []statusSegment, current domain.ServiceStatus, windowEnd time.Time) float64 {
	var up, total time.Duration
	for i, seg := range segments {
		end := windowEnd
		if i+1 < len(segments) {
			end = segments[i+1].from
		}
		length := end.Sub(seg.from)
		if length <= 0 {
			continue
		}
		if seg.status == domain.StatusMaintenance {
			continue
		}
		total += length
		if seg.status.CountsAsUp() {
			up += length
		}
	}

	if total <= 0 {
		if current.CountsAsUp() {
			return 100.0
		}
		return 0.0
	}
	return float64(up) / float64(total) * 100.0
}

// statusSeverity ranks statuses for the daily rollup; higher is worse.
func statusSeverity(s domain.ServiceStatus) int {
	switch s {
	case domain.StatusMajorOutage:
		return 4
	case domain.StatusPartialOutage:
		return 3
	case domain.StatusDegraded:
		return 2
	case domain.StatusMaintenance:
		return 1
	default:
		return 0
	}
}

// computeDailyStatuses rolls the segments up into one entry per day of the
// window, oldest first, keeping the worst status the service showed that day.
func computeDailyStatuses(segments []statusSegment, windowStart, windowEnd time.Time, days int) []ports.DailyStatus {
	out := make([]ports.DailyStatus, 0, days)
	for d := 0; d < days; d++ {
		dayStart := windowStart.Add(time.Duration(d) * 24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)
		if dayEnd.After(windowEnd) {
			dayEnd = windowEnd
		}

		worst := domain.StatusOperational
		for i, seg := range segments {
			segEnd := windowEnd
			if i+1 < len(segments) {
				segEnd = segments[i+1].from
			}
			if seg.from.Before(dayEnd) && segEnd.After(dayStart) {
				if statusSeverity(seg.status) > statusSeverity(worst) {
					worst = seg.status
				}
			}
		}

		out = append(out, ports.DailyStatus{
			Date:   dayStart.Format("2006-01-02"),
			Status: worst,
		})
	}
	return out
}

// notifyStatusChange emails the organization's subscribers about a status
// transition. Runs in the background; the HTTP request does not wait for it.
func (s *ServiceService) notifyStatusChange(svc *domain.Service, oldStatus domain.ServiceStatus) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done.
		s.notifier.Notify(context.Background(), ports.NotificationParams{
			OrganizationID: svc.OrganizationID,
			Subject:        fmt.Sprintf("Service status changed: %s", svc.Name),
			Message:        fmt.Sprintf("%s changed from %s to %s.", svc.Name, oldStatus, svc.Status),
		})
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (s *ServiceService) Shutdown() {
	s.wg.Wait()
}
