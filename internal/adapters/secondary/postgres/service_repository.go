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

type ServiceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ServiceRepository = (*ServiceRepository)(nil)

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `id, organization_id, name, description, status, created_at, updated_at`

func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) (*domain.Service, error) {
	const query = `
		INSERT INTO services (id, organization_id, name, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + serviceColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		svc.ID, svc.OrganizationID, svc.Name, svc.Description, svc.Status, svc.CreatedAt,
	)
	return scanService(row)
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	svc, err := scanService(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceNotFound
		}
		return nil, err
	}
	return svc, nil
}

func (r *ServiceRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Service, error) {
	const query = `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE organization_id = $1
		ORDER BY created_at, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]*domain.Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) (*domain.Service, error) {
	const query = `
		UPDATE services
		SET name = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + serviceColumns

	updatedAt := svc.UpdatedAt
	if updatedAt == nil {
		now := time.Now().UTC()
		updatedAt = &now
	}

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		svc.ID, svc.Name, svc.Description, svc.Status, updatedAt,
	)

	updated, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM services WHERE id = $1`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) AppendStatusChange(ctx context.Context, change *domain.StatusChange) error {
	const query = `
		INSERT INTO service_status_history (service_id, old_status, new_status, changed_at)
		VALUES ($1, $2, $3, $4)`

	_, err := GetDBTX(ctx, r.pool).Exec(ctx, query,
		change.ServiceID, change.OldStatus, change.NewStatus, change.ChangedAt,
	)
	return err
}

// ListStatusHistory returns the in-window status changes for a service,
// oldest first, so callers can replay them as segments.
func (r *ServiceRepository) ListStatusHistory(ctx context.Context, serviceID uuid.UUID, since time.Time) ([]*domain.StatusChange, error) {
	const query = `
		SELECT id, service_id, old_status, new_status, changed_at
		FROM service_status_history
		WHERE service_id = $1 AND changed_at >= $2
		ORDER BY changed_at, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, serviceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*domain.StatusChange, 0)
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID, &change.ServiceID, &change.OldStatus, &change.NewStatus, &change.ChangedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, &change)
	}
	return history, rows.Err()
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var svc domain.Service
	if err := row.Scan(
		&svc.ID, &svc.OrganizationID, &svc.Name, &svc.Description,
		&svc.Status, &svc.CreatedAt, &svc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &svc, nil
}
