package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/mocks"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
	"github.com/beaconlabs/statuspage-backend/internal/core/services"
)

func TestServiceService_CreateService(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("success broadcasts created event", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		mockNotifier := mocks.NewMockNotifier()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewServiceService(mockRepo, mockNotifier, mockBroadcaster)

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Service")).
			Return(&domain.Service{
				ID:             uuid.New(),
				OrganizationID: orgID,
				Name:           "API",
				Status:         domain.StatusOperational,
				CreatedAt:      time.Now().UTC(),
			}, nil)
		mockRepo.On("AppendStatusChange", ctx, mock.AnythingOfType("*domain.StatusChange")).Return(nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventServiceCreated && e.OrganizationID == orgID
		})).Return(nil)

		created, err := svc.CreateService(ctx, ports.CreateServiceParams{
			OrganizationID: orgID,
			Name:           "API",
		})

		require.NoError(t, err)
		assert.Equal(t, "API", created.Name)
		assert.Equal(t, domain.StatusOperational, created.Status)
		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mocks.NewMockEventBroadcaster())

		_, err := svc.CreateService(ctx, ports.CreateServiceParams{OrganizationID: orgID})

		assert.ErrorIs(t, err, domain.ErrServiceNameRequired)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mocks.NewMockEventBroadcaster())

		_, err := svc.CreateService(ctx, ports.CreateServiceParams{
			OrganizationID: orgID,
			Name:           "API",
			Status:         "on-fire",
		})

		assert.ErrorIs(t, err, domain.ErrInvalidServiceState)
	})
}

func TestServiceService_GetService(t *testing.T) {
	ctx := context.Background()

	t.Run("hides services of other organizations", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mocks.NewMockEventBroadcaster())

		serviceID := uuid.New()
		mockRepo.On("GetByID", ctx, serviceID).Return(&domain.Service{
			ID:             serviceID,
			OrganizationID: uuid.New(),
			Name:           "API",
		}, nil)

		_, err := svc.GetService(ctx, serviceID, uuid.New())

		assert.ErrorIs(t, err, apperrors.ErrServiceNotFound)
	})
}

func TestServiceService_UpdateService(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	serviceID := uuid.New()

	existing := func() *domain.Service {
		return &domain.Service{
			ID:             serviceID,
			OrganizationID: orgID,
			Name:           "API",
			Status:         domain.StatusOperational,
			CreatedAt:      time.Now().UTC().Add(-time.Hour),
		}
	}

	t.Run("status change appends history and notifies subscribers", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		mockNotifier := mocks.NewMockNotifier()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewServiceService(mockRepo, mockNotifier, mockBroadcaster)

		mockRepo.On("GetByID", ctx, serviceID).Return(existing(), nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*domain.Service")).
			Return(&domain.Service{
				ID:             serviceID,
				OrganizationID: orgID,
				Name:           "API",
				Status:         domain.StatusMajorOutage,
			}, nil)
		mockRepo.On("AppendStatusChange", ctx, mock.MatchedBy(func(c *domain.StatusChange) bool {
			return c.ServiceID == serviceID &&
				c.OldStatus != nil && *c.OldStatus == domain.StatusOperational &&
				c.NewStatus == domain.StatusMajorOutage
		})).Return(nil)
		mockNotifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.OrganizationID == orgID
		})).Return()
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventServiceUpdated
		})).Return(nil)

		newStatus := domain.StatusMajorOutage
		updated, err := svc.UpdateService(ctx, ports.UpdateServiceParams{
			ServiceID:      serviceID,
			OrganizationID: orgID,
			Status:         &newStatus,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusMajorOutage, updated.Status)

		svc.Shutdown() // wait for the async notification
		mockRepo.AssertExpectations(t)
		mockNotifier.AssertExpectations(t)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("same status writes no history entry", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		mockNotifier := mocks.NewMockNotifier()
		mockBroadcaster := mocks.NewMockEventBroadcaster()

		svc := services.NewServiceService(mockRepo, mockNotifier, mockBroadcaster)

		mockRepo.On("GetByID", ctx, serviceID).Return(existing(), nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*domain.Service")).Return(existing(), nil)
		mockBroadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return(nil)

		sameStatus := domain.StatusOperational
		_, err := svc.UpdateService(ctx, ports.UpdateServiceParams{
			ServiceID:      serviceID,
			OrganizationID: orgID,
			Status:         &sameStatus,
		})

		require.NoError(t, err)
		svc.Shutdown()
		mockRepo.AssertNotCalled(t, "AppendStatusChange")
		mockNotifier.AssertNotCalled(t, "Notify")
	})

	t.Run("rename only", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mockBroadcaster)

		mockRepo.On("GetByID", ctx, serviceID).Return(existing(), nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(s *domain.Service) bool {
			return s.Name == "Public API"
		})).Return(&domain.Service{
			ID:             serviceID,
			OrganizationID: orgID,
			Name:           "Public API",
			Status:         domain.StatusOperational,
		}, nil)
		mockBroadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return(nil)

		name := "Public API"
		updated, err := svc.UpdateService(ctx, ports.UpdateServiceParams{
			ServiceID:      serviceID,
			OrganizationID: orgID,
			Name:           &name,
		})

		require.NoError(t, err)
		assert.Equal(t, "Public API", updated.Name)
		assert.Equal(t, domain.StatusOperational, updated.Status)
	})
}

func TestServiceService_DeleteService(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	serviceID := uuid.New()

	t.Run("broadcasts tombstone", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mockBroadcaster)

		mockRepo.On("GetByID", ctx, serviceID).Return(&domain.Service{
			ID:             serviceID,
			OrganizationID: orgID,
			Name:           "API",
		}, nil)
		mockRepo.On("Delete", ctx, serviceID).Return(nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			if e.Type != domain.EventServiceDeleted {
				return false
			}
			payload, ok := e.Payload.(domain.DeletedPayload)
			return ok && payload.ID == serviceID.String()
		})).Return(nil)

		err := svc.DeleteService(ctx, serviceID, orgID)

		require.NoError(t, err)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("refuses cross-organization delete", func(t *testing.T) {
		mockRepo := mocks.NewMockServiceRepository()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mocks.NewMockEventBroadcaster())

		mockRepo.On("GetByID", ctx, serviceID).Return(&domain.Service{
			ID:             serviceID,
			OrganizationID: uuid.New(),
		}, nil)

		err := svc.DeleteService(ctx, serviceID, orgID)

		assert.ErrorIs(t, err, apperrors.ErrServiceNotFound)
		mockRepo.AssertNotCalled(t, "Delete")
	})
}

func TestServiceService_Uptime(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	serviceID := uuid.New()

	statusPtr := func(s domain.ServiceStatus) *domain.ServiceStatus { return &s }

	newService := func(status domain.ServiceStatus) *domain.Service {
		return &domain.Service{ID: serviceID, OrganizationID: orgID, Name: "API", Status: status}
	}

	run := func(t *testing.T, svcRow *domain.Service, history []*domain.StatusChange) ports.ServiceUptime {
		t.Helper()
		mockRepo := mocks.NewMockServiceRepository()
		svc := services.NewServiceService(mockRepo, mocks.NewMockNotifier(), mocks.NewMockEventBroadcaster())

		mockRepo.On("ListByOrganization", ctx, orgID).Return([]*domain.Service{svcRow}, nil)
		mockRepo.On("ListStatusHistory", ctx, serviceID, mock.AnythingOfType("time.Time")).Return(history, nil)

		report, err := svc.Uptime(ctx, orgID, 90)
		require.NoError(t, err)
		require.Len(t, report, 1)
		assert.Equal(t, 90, report[0].WindowDays)
		return report[0]
	}

	t.Run("no history assumes current status for the whole window", func(t *testing.T) {
		uptime := run(t, newService(domain.StatusOperational), nil)
		assert.InDelta(t, 100.0, uptime.UptimePercent, 0.001)

		require.Len(t, uptime.DailyStatuses, 90)
		for _, day := range uptime.DailyStatuses {
			assert.Equal(t, domain.StatusOperational, day.Status)
		}
	})

	t.Run("no history and current outage is zero", func(t *testing.T) {
		uptime := run(t, newService(domain.StatusMajorOutage), nil)
		assert.InDelta(t, 0.0, uptime.UptimePercent, 0.001)
	})

	t.Run("outage segment lowers the percentage", func(t *testing.T) {
		now := time.Now().UTC()
		// Down for the most recent 9 days of a 90 day window: 90% up.
		history := []*domain.StatusChange{
			{
				ServiceID: serviceID,
				OldStatus: statusPtr(domain.StatusOperational),
				NewStatus: domain.StatusMajorOutage,
				ChangedAt: now.AddDate(0, 0, -9),
			},
		}
		uptime := run(t, newService(domain.StatusMajorOutage), history)
		assert.InDelta(t, 90.0, uptime.UptimePercent, 0.1)
	})

	t.Run("degraded performance counts as up", func(t *testing.T) {
		now := time.Now().UTC()
		history := []*domain.StatusChange{
			{
				ServiceID: serviceID,
				OldStatus: statusPtr(domain.StatusOperational),
				NewStatus: domain.StatusDegraded,
				ChangedAt: now.AddDate(0, 0, -30),
			},
		}
		uptime := run(t, newService(domain.StatusDegraded), history)
		assert.InDelta(t, 100.0, uptime.UptimePercent, 0.001)
	})

	t.Run("maintenance windows are excluded from the denominator", func(t *testing.T) {
		now := time.Now().UTC()
		// 45 days operational, 45 days maintenance: still 100% of measured time.
		history := []*domain.StatusChange{
			{
				ServiceID: serviceID,
				OldStatus: statusPtr(domain.StatusOperational),
				NewStatus: domain.StatusMaintenance,
				ChangedAt: now.AddDate(0, 0, -45),
			},
		}
		uptime := run(t, newService(domain.StatusMaintenance), history)
		assert.InDelta(t, 100.0, uptime.UptimePercent, 0.001)
	})

	t.Run("daily breakdown keeps the worst status per day", func(t *testing.T) {
		now := time.Now().UTC()
		// A two-hour outage the day before yesterday, fully recovered since.
		history := []*domain.StatusChange{
			{
				ServiceID: serviceID,
				OldStatus: statusPtr(domain.StatusOperational),
				NewStatus: domain.StatusMajorOutage,
				ChangedAt: now.Add(-38 * time.Hour),
			},
			{
				ServiceID: serviceID,
				OldStatus: statusPtr(domain.StatusMajorOutage),
				NewStatus: domain.StatusOperational,
				ChangedAt: now.Add(-36 * time.Hour),
			},
		}

		uptime := run(t, newService(domain.StatusOperational), history)
		require.Len(t, uptime.DailyStatuses, 90)

		// Days are oldest first; the outage lands on the 88th day of the
		// window and the rest stays operational.
		assert.Equal(t, domain.StatusOperational, uptime.DailyStatuses[0].Status)
		assert.Equal(t, domain.StatusMajorOutage, uptime.DailyStatuses[88].Status)
		assert.Equal(t, domain.StatusOperational, uptime.DailyStatuses[89].Status)

		windowStart := now.AddDate(0, 0, -90)
		assert.Equal(t, windowStart.Format("2006-01-02"), uptime.DailyStatuses[0].Date)
		assert.Equal(t, now.Add(-24*time.Hour).Format("2006-01-02"), uptime.DailyStatuses[89].Date)
	})
}
