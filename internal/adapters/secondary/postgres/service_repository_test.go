package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
)

func TestServiceRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	svc, err := domain.NewService(org.ID, "API Gateway", "public edge", domain.StatusOperational)
	require.NoError(t, err)

	created, err := repo.Create(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, svc.ID, created.ID)
	assert.Equal(t, "API Gateway", created.Name)
	assert.Equal(t, domain.StatusOperational, created.Status)
	assert.Nil(t, created.UpdatedAt)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, org.ID, found.OrganizationID)
}

func TestServiceRepository_GetByID_NotFound(t *testing.T) {
	repo := NewServiceRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrServiceNotFound)
}

func TestServiceRepository_ListByOrganization(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	otherOrg := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	first := createTestService(t, org.ID)
	second := createTestService(t, org.ID)
	createTestService(t, otherOrg.ID)

	services, err := repo.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, first.ID, services[0].ID)
	assert.Equal(t, second.ID, services[1].ID)
}

func TestServiceRepository_Update(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	svc := createTestService(t, org.ID)

	changed, err := svc.ChangeStatus(domain.StatusMajorOutage)
	require.NoError(t, err)
	require.True(t, changed)

	updated, err := repo.Update(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMajorOutage, updated.Status)
	require.NotNil(t, updated.UpdatedAt)
}

func TestServiceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	svc := createTestService(t, org.ID)

	require.NoError(t, repo.Delete(ctx, svc.ID))

	_, err := repo.GetByID(ctx, svc.ID)
	assert.ErrorIs(t, err, apperrors.ErrServiceNotFound)

	// Deleting again reports not found.
	assert.ErrorIs(t, repo.Delete(ctx, svc.ID), apperrors.ErrServiceNotFound)
}

func TestServiceRepository_StatusHistory(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	svc := createTestService(t, org.ID)

	now := time.Now().UTC()
	oldStatus := domain.StatusOperational

	require.NoError(t, repo.AppendStatusChange(ctx, &domain.StatusChange{
		ServiceID: svc.ID,
		NewStatus: domain.StatusOperational,
		ChangedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.AppendStatusChange(ctx, &domain.StatusChange{
		ServiceID: svc.ID,
		OldStatus: &oldStatus,
		NewStatus: domain.StatusDegraded,
		ChangedAt: now.Add(-24 * time.Hour),
	}))

	// Only changes inside the window come back, oldest first.
	history, err := repo.ListStatusHistory(ctx, svc.ID, now.Add(-36*time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusDegraded, history[0].NewStatus)
	require.NotNil(t, history[0].OldStatus)
	assert.Equal(t, domain.StatusOperational, *history[0].OldStatus)

	history, err = repo.ListStatusHistory(ctx, svc.ID, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].OldStatus)
}

func TestServiceRepository_DeleteCascadesHistory(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewServiceRepository(testPool)

	svc := createTestService(t, org.ID)
	require.NoError(t, repo.AppendStatusChange(ctx, &domain.StatusChange{
		ServiceID: svc.ID,
		NewStatus: domain.StatusOperational,
		ChangedAt: time.Now().UTC(),
	}))

	require.NoError(t, repo.Delete(ctx, svc.ID))

	history, err := repo.ListStatusHistory(ctx, svc.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, history)
}
