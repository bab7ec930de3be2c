package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

type IncidentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IncidentRepository = (*IncidentRepository)(nil)

func NewIncidentRepository(pool *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{pool: pool}
}

const incidentColumns = `id, organization_id, title, description, status, severity,
	affected_services, created_at, updated_at, resolved_at`

func (r *IncidentRepository) Create(ctx context.Context, inc *domain.Incident) (*domain.Incident, error) {
	const query = `
		INSERT INTO incidents (id, organization_id, title, description, status, severity, affected_services, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + incidentColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		inc.ID, inc.OrganizationID, inc.Title, inc.Description,
		inc.Status, inc.Severity, inc.AffectedServices, inc.CreatedAt,
	)
	return scanIncident(row)
}

func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIncidentNotFound
		}
		return nil, err
	}

	if err := r.attachUpdates(ctx, []*domain.Incident{inc}); err != nil {
		return nil, err
	}
	return inc, nil
}

// ListByOrganization returns an organization's incidents, newest first, with
// their timelines attached. With openOnly set, resolved incidents are skipped.
func (r *IncidentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, openOnly bool) ([]*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE organization_id = $1`
	if openOnly {
		query += ` AND status <> 'resolved'`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachUpdates(ctx, incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (r *IncidentRepository) Update(ctx context.Context, inc *domain.Incident) (*domain.Incident, error) {
	const query = `
		UPDATE incidents
		SET title = $2, description = $3, status = $4, severity = $5,
		    affected_services = $6, updated_at = $7, resolved_at = $8
		WHERE id = $1
		RETURNING ` + incidentColumns

	updatedAt := inc.UpdatedAt
	if updatedAt == nil {
		now := time.Now().UTC()
		updatedAt = &now
	}

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		inc.ID, inc.Title, inc.Description, inc.Status, inc.Severity,
		inc.AffectedServices, updatedAt, inc.ResolvedAt,
	)

	updated, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIncidentNotFound
		}
		return nil, err
	}

	if err := r.attachUpdates(ctx, []*domain.Incident{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *IncidentRepository) AppendUpdate(ctx context.Context, update *domain.IncidentUpdate) (*domain.IncidentUpdate, error) {
	const query = `
		INSERT INTO incident_updates (incident_id, message, posted_by_id, posted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, incident_id, message, posted_by_id, posted_at`

	postedAt := update.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}

	var created domain.IncidentUpdate
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		update.IncidentID, update.Message, update.PostedByID, postedAt,
	).Scan(
		&created.ID, &created.IncidentID, &created.Message, &created.PostedByID, &created.PostedAt,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM incidents WHERE id = $1`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIncidentNotFound
	}
	return nil
}

// attachUpdates loads the timelines for a batch of incidents in one query,
// newest entry first.
func (r *IncidentRepository) attachUpdates(ctx context.Context, incidents []*domain.Incident) error {
	if len(incidents) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(incidents))
	byID := make(map[uuid.UUID]*domain.Incident, len(incidents))
	for _, inc := range incidents {
		ids = append(ids, inc.ID)
		byID[inc.ID] = inc
		inc.Updates = make([]domain.IncidentUpdate, 0)
	}

	const query = `
		SELECT id, incident_id, message, posted_by_id, posted_at
		FROM incident_updates
		WHERE incident_id = ANY($1)
		ORDER BY posted_at DESC, id DESC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var update domain.IncidentUpdate
		if err := rows.Scan(
			&update.ID, &update.IncidentID, &update.Message, &update.PostedByID, &update.PostedAt,
		); err != nil {
			return err
		}
		if inc, ok := byID[update.IncidentID]; ok {
			inc.Updates = append(inc.Updates, update)
		}
	}
	return rows.Err()
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	if err := row.Scan(
		&inc.ID, &inc.OrganizationID, &inc.Title, &inc.Description,
		&inc.Status, &inc.Severity, &inc.AffectedServices,
		&inc.CreatedAt, &inc.UpdatedAt, &inc.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if inc.AffectedServices == nil {
		inc.AffectedServices = []uuid.UUID{}
	}
	return &inc, nil
}
