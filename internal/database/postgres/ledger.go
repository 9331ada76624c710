package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/yieldland/production-core/internal/domain"
)

// GetResource returns the balance row, or a zero row when none exists yet.
func (o ops) GetResource(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error) {
	const query = `
		SELECT amount, frozen_amount, updated_at
		FROM user_resources
		WHERE user_id = $1 AND resource_type = $2`

	res := &domain.UserResource{UserID: userID, ResourceType: rt}
	err := o.q.QueryRow(ctx, query, userID, string(rt)).Scan(&res.Amount, &res.FrozenAmount, &res.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return res, nil
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}

// SaveResource upserts the balance row.
func (o ops) SaveResource(ctx context.Context, res domain.UserResource) error {
	const query = `
		INSERT INTO user_resources (user_id, resource_type, amount, frozen_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, resource_type)
		DO UPDATE SET amount = EXCLUDED.amount,
		              frozen_amount = EXCLUDED.frozen_amount,
		              updated_at = EXCLUDED.updated_at`

	updatedAt := res.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := o.q.Exec(ctx, query, res.UserID, string(res.ResourceType), res.Amount, res.FrozenAmount, updatedAt); err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

// ListResources returns every balance row for the user, ordered by type.
func (o ops) ListResources(ctx context.Context, userID string) ([]domain.UserResource, error) {
	const query = `
		SELECT resource_type, amount, frozen_amount, updated_at
		FROM user_resources
		WHERE user_id = $1
		ORDER BY resource_type`

	rows, err := o.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []domain.UserResource
	for rows.Next() {
		res := domain.UserResource{UserID: userID}
		var rt string
		if err := rows.Scan(&rt, &res.Amount, &res.FrozenAmount, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		res.ResourceType = domain.ResourceType(rt)
		out = append(out, res)
	}
	return out, rows.Err()
}
