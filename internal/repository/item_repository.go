package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sync-service/internal/domain"
)

// ItemRepository reads collaborator-owned item state. This engine never
// writes items; it only checks existence and content timestamps.
type ItemRepository interface {
	LoadByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error)
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository builds repository.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

func (r *itemRepository) LoadByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error) {
	result := make(map[string]domain.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	const query = `SELECT id, name, updated_time FROM items WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.UpdatedTime); err != nil {
			return nil, err
		}
		result[item.ID] = item
	}
	return result, rows.Err()
}
