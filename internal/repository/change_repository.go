package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sync-service/internal/domain"
)

// ErrCursorNotFound is returned when a cursor id does not resolve to a change
// row, typically because the row was pruned by TTL compaction.
var ErrCursorNotFound = errors.New("cursor not found")

// PruneBatchResult reports the outcome of one TTL pruning batch transaction.
type PruneBatchResult struct {
	ItemIDs    []string
	RowsPruned int64
}

// ChangeRepository encapsulates the append-only change log.
type ChangeRepository interface {
	// Append inserts one change row. When tx is non-nil the insert joins the
	// caller's transaction so the row commits atomically with the item
	// mutation it documents. The counter is assigned by the store at commit.
	Append(ctx context.Context, tx pgx.Tx, change *domain.Change) error

	// ResolveCursor maps an opaque change id to its private ordering counter.
	ResolveCursor(ctx context.Context, changeID string) (int64, error)

	// ListForPrincipal returns up to limit rows with counter > sinceCounter,
	// ordered by counter ascending, scoped to what the principal may see:
	// their own creates/deletes plus updates on items currently shared with
	// them.
	ListForPrincipal(ctx context.Context, userID string, sinceCounter int64, limit int) ([]domain.Change, error)

	// PruneBatch deletes, inside one transaction, all but the most recent
	// Update row per item for up to batchSize items whose prunable Updates
	// are older than cutoff. Create and Delete rows are never touched.
	PruneBatch(ctx context.Context, cutoff time.Time, batchSize int) (*PruneBatchResult, error)
}

type changeRepository struct {
	pool *pgxpool.Pool
}

// NewChangeRepository instantiates repository.
func NewChangeRepository(pool *pgxpool.Pool) ChangeRepository {
	return &changeRepository{pool: pool}
}

const appendQuery = `
        INSERT INTO changes (id, item_id, item_name, type, user_id, previous_item)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING counter, created_time`

func (r *changeRepository) Append(ctx context.Context, tx pgx.Tx, change *domain.Change) error {
	row := rowQuerier(r.pool, tx).QueryRow(ctx, appendQuery,
		change.ID,
		change.ItemID,
		change.ItemName,
		change.Type,
		change.UserID,
		change.PreviousItem,
	)
	return row.Scan(&change.Counter, &change.CreatedTime)
}

func (r *changeRepository) ResolveCursor(ctx context.Context, changeID string) (int64, error) {
	const query = `SELECT counter FROM changes WHERE id=$1`
	var counter int64
	if err := r.pool.QueryRow(ctx, query, changeID).Scan(&counter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCursorNotFound
		}
		return 0, err
	}
	return counter, nil
}

func (r *changeRepository) ListForPrincipal(ctx context.Context, userID string, sinceCounter int64, limit int) ([]domain.Change, error) {
	const query = `
        SELECT id, counter, item_id, item_name, type, user_id, previous_item, created_time
        FROM changes
        WHERE counter > $2
          AND (
                (type IN ('create','delete') AND user_id = $1)
             OR (type = 'update' AND EXISTS (
                    SELECT 1 FROM user_items ui
                    WHERE ui.user_id = $1 AND ui.item_id = changes.item_id))
          )
        ORDER BY counter ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, userID, sinceCounter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func (r *changeRepository) PruneBatch(ctx context.Context, cutoff time.Time, batchSize int) (*PruneBatchResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const selectQuery = `
        SELECT item_id FROM changes
        WHERE type='update' AND created_time < $1
        GROUP BY item_id
        HAVING COUNT(*) > 1
        ORDER BY item_id
        LIMIT $2`
	rows, err := tx.Query(ctx, selectQuery, cutoff, batchSize)
	if err != nil {
		return nil, err
	}
	itemIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		itemIDs = append(itemIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &PruneBatchResult{ItemIDs: itemIDs}

	const deleteQuery = `
        DELETE FROM changes
        WHERE item_id=$1 AND type='update' AND created_time < $2
          AND counter < (
                SELECT MAX(counter) FROM changes
                WHERE item_id=$1 AND type='update' AND created_time < $2)`
	for _, id := range itemIDs {
		cmd, err := tx.Exec(ctx, deleteQuery, id, cutoff)
		if err != nil {
			return nil, err
		}
		result.RowsPruned += cmd.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func rowQuerier(pool *pgxpool.Pool, tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return pool
}

func scanChanges(rows pgx.Rows) ([]domain.Change, error) {
	var result []domain.Change
	for rows.Next() {
		var change domain.Change
		if err := rows.Scan(
			&change.ID,
			&change.Counter,
			&change.ItemID,
			&change.ItemName,
			&change.Type,
			&change.UserID,
			&change.PreviousItem,
			&change.CreatedTime,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
