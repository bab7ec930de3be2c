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

func createTestIncident(t *testing.T, orgID uuid.UUID, affected []uuid.UUID) *domain.Incident {
	t.Helper()

	repo := NewIncidentRepository(testPool)
	inc, err := domain.NewIncident(orgID, "Incident "+uuid.NewString()[:8], "something broke", domain.SeverityMajor, affected)
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), inc)
	require.NoError(t, err)
	return created
}

func TestIncidentRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	svc := createTestService(t, org.ID)
	repo := NewIncidentRepository(testPool)

	created := createTestIncident(t, org.ID, []uuid.UUID{svc.ID})

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, domain.IncidentInvestigating, found.Status)
	assert.Equal(t, domain.SeverityMajor, found.Severity)
	require.Len(t, found.AffectedServices, 1)
	assert.Equal(t, svc.ID, found.AffectedServices[0])
	assert.Empty(t, found.Updates)
	assert.Nil(t, found.ResolvedAt)
}

func TestIncidentRepository_GetByID_NotFound(t *testing.T) {
	repo := NewIncidentRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrIncidentNotFound)
}

func TestIncidentRepository_AppendUpdate(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewIncidentRepository(testPool)

	inc := createTestIncident(t, org.ID, nil)
	posterID := uuid.New()

	first, err := repo.AppendUpdate(ctx, &domain.IncidentUpdate{
		IncidentID: inc.ID,
		Message:    "Investigating elevated error rates.",
		PostedByID: posterID,
		PostedAt:   time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := repo.AppendUpdate(ctx, &domain.IncidentUpdate{
		IncidentID: inc.ID,
		Message:    "Root cause identified.",
		PostedByID: posterID,
	})
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, found.Updates, 2)
	// Timeline comes back newest first.
	assert.Equal(t, second.ID, found.Updates[0].ID)
	assert.Equal(t, "Root cause identified.", found.Updates[0].Message)
	assert.Equal(t, first.ID, found.Updates[1].ID)
}

func TestIncidentRepository_ListByOrganization_OpenOnly(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewIncidentRepository(testPool)

	open := createTestIncident(t, org.ID, nil)
	resolved := createTestIncident(t, org.ID, nil)

	require.NoError(t, resolved.ChangeStatus(domain.IncidentResolved))
	_, err := repo.Update(ctx, resolved)
	require.NoError(t, err)

	all, err := repo.ListByOrganization(ctx, org.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	openOnly, err := repo.ListByOrganization(ctx, org.ID, true)
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	assert.Equal(t, open.ID, openOnly[0].ID)
}

func TestIncidentRepository_Update_ResolvedAt(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewIncidentRepository(testPool)

	inc := createTestIncident(t, org.ID, nil)

	require.NoError(t, inc.ChangeStatus(domain.IncidentResolved))
	updated, err := repo.Update(ctx, inc)
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)

	// Reopening clears the resolution timestamp.
	require.NoError(t, updated.ChangeStatus(domain.IncidentInvestigating))
	reopened, err := repo.Update(ctx, updated)
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestIncidentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	repo := NewIncidentRepository(testPool)

	inc := createTestIncident(t, org.ID, nil)
	_, err := repo.AppendUpdate(ctx, &domain.IncidentUpdate{
		IncidentID: inc.ID,
		Message:    "first update",
		PostedByID: uuid.New(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, inc.ID))

	_, err = repo.GetByID(ctx, inc.ID)
	assert.ErrorIs(t, err, apperrors.ErrIncidentNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, inc.ID), apperrors.ErrIncidentNotFound)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	org := createTestOrganization(t)
	incidentRepo := NewIncidentRepository(testPool)
	tm := NewTransactionManager(testPool)

	inc, err := domain.NewIncident(org.ID, "Doomed incident", "", domain.SeverityMinor, nil)
	require.NoError(t, err)

	sentinel := assert.AnError
	err = tm.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := incidentRepo.Create(txCtx, inc); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// The insert must have been rolled back.
	_, err = incidentRepo.GetByID(ctx, inc.ID)
	assert.ErrorIs(t, err, apperrors.ErrIncidentNotFound)
}
