package email

import (
	"context"
	"log/slog"

	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails to a
// status page's subscribers. It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	subscriberRepo ports.SubscriberRepository
	logger         *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier.
// It requires a SubscriberRepository to fetch recipient addresses.
func NewMockSMTPNotifier(subscriberRepo ports.SubscriberRepository, logger *slog.Logger) *MockSMTPNotifier {
	return &MockSMTPNotifier{
		subscriberRepo: subscriberRepo,
		logger:         logger.With("component", "email_notifier"),
	}
}

// Notify logs one mock email per subscriber instead of sending real mail.
// Callers run it in a separate goroutine; it handles its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	subscribers, err := n.subscriberRepo.ListByOrganization(ctx, params.OrganizationID)
	if err != nil {
		n.logger.Error("failed to list subscribers for notification",
			"org_id", params.OrganizationID.String(),
			"error", err,
		)
		return
	}

	if len(subscribers) == 0 {
		return
	}

	for _, sub := range subscribers {
		n.logger.Info("mock email sent",
			"to_email", sub.Email,
			"org_id", params.OrganizationID.String(),
			"subject", params.Subject,
			"message", params.Message,
		)
	}
}
