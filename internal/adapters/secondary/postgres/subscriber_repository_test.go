package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
)

func TestSubscriberRepository_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewSubscriberRepository(testPool)

	first, err := repo.Create(ctx, &domain.Subscriber{
		OrganizationID: org.ID,
		Email:          "ada@example.com",
	})
	require.NoError(t, err)

	// Subscribing the same address again returns the existing row.
	second, err := repo.Create(ctx, &domain.Subscriber{
		OrganizationID: org.ID,
		Email:          "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	subscribers, err := repo.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, subscribers, 1)
}

func TestSubscriberRepository_SameEmailAcrossOrganizations(t *testing.T) {
	ctx := context.Background()
	orgA := createTestOrganization(t)
	orgB := createTestOrganization(t)
	repo := NewSubscriberRepository(testPool)

	subA, err := repo.Create(ctx, &domain.Subscriber{OrganizationID: orgA.ID, Email: "ada@example.com"})
	require.NoError(t, err)
	subB, err := repo.Create(ctx, &domain.Subscriber{OrganizationID: orgB.ID, Email: "ada@example.com"})
	require.NoError(t, err)

	assert.NotEqual(t, subA.ID, subB.ID)
}

func TestSubscriberRepository_DeleteByEmail(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewSubscriberRepository(testPool)

	_, err := repo.Create(ctx, &domain.Subscriber{OrganizationID: org.ID, Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByEmail(ctx, org.ID, "ada@example.com"))

	subscribers, err := repo.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, subscribers)

	assert.ErrorIs(t, repo.DeleteByEmail(ctx, org.ID, "ada@example.com"), apperrors.ErrSubscriberNotFound)
}

func TestOrganizationRepository_SlugTaken(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationRepository(testPool)

	org, err := domain.NewOrganization("Acme", "acme-unique-slug")
	require.NoError(t, err)
	_, err = repo.Create(ctx, org)
	require.NoError(t, err)

	dup, err := domain.NewOrganization("Acme Again", "acme-unique-slug")
	require.NoError(t, err)
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrSlugTaken)
}

func TestOrganizationRepository_GetBySlug(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationRepository(testPool)

	created := createTestOrganization(t)

	found, err := repo.GetBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.GetBySlug(ctx, "no-such-page")
	assert.ErrorIs(t, err, apperrors.ErrOrganizationNotFound)
}
