package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

type SubscriberRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository(pool *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

// Create inserts a subscription. Re-subscribing an address that is already on
// the list returns the existing row, so the operation is idempotent.
func (r *SubscriberRepository) Create(ctx context.Context, sub *domain.Subscriber) (*domain.Subscriber, error) {
	const query = `
		INSERT INTO subscribers (id, organization_id, email, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (organization_id, email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, organization_id, email, created_at`

	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var created domain.Subscriber
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id, sub.OrganizationID, sub.Email).Scan(
		&created.ID, &created.OrganizationID, &created.Email, &created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *SubscriberRepository) DeleteByEmail(ctx context.Context, orgID uuid.UUID, email string) error {
	const query = `DELETE FROM subscribers WHERE organization_id = $1 AND email = $2`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query, orgID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubscriberNotFound
	}
	return nil
}

func (r *SubscriberRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*domain.Subscriber, error) {
	const query = `
		SELECT id, organization_id, email, created_at
		FROM subscribers
		WHERE organization_id = $1
		ORDER BY created_at, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscribers := make([]*domain.Subscriber, 0)
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(&sub.ID, &sub.OrganizationID, &sub.Email, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, &sub)
	}
	return subscribers, rows.Err()
}
