package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is an email address that receives notifications about status
// changes and incident activity for one organization.
type Subscriber struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}
