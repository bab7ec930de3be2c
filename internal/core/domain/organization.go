package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrgNameRequired = errors.New("organization name is required")
	ErrInvalidSlug     = errors.New("slug must be lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Organization is the tenant boundary: it owns services, incidents and exactly
// one public status page addressed by its slug.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrganization is a factory function to create a valid new organization.
func NewOrganization(name, slug string) (*Organization, error) {
	if name == "" {
		return nil, ErrOrgNameRequired
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}, nil
}
