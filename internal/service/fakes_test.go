package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sync-service/internal/domain"
	"github.com/spec-kit/sync-service/internal/repository"
)

// fakeChangeRepo is an in-memory stand-in for the postgres change log.
type fakeChangeRepo struct {
	rows []domain.Change
	// userID -> itemID -> currently visible (the user_items join)
	visible map[string]map[string]bool

	listErr error
}

func newFakeChangeRepo() *fakeChangeRepo {
	return &fakeChangeRepo{visible: make(map[string]map[string]bool)}
}

func (f *fakeChangeRepo) share(userID, itemID string) {
	if f.visible[userID] == nil {
		f.visible[userID] = make(map[string]bool)
	}
	f.visible[userID][itemID] = true
}

func (f *fakeChangeRepo) unshare(userID, itemID string) {
	if f.visible[userID] != nil {
		delete(f.visible[userID], itemID)
	}
}

func (f *fakeChangeRepo) Append(ctx context.Context, tx pgx.Tx, change *domain.Change) error {
	change.Counter = int64(len(f.rows) + 1)
	if change.CreatedTime.IsZero() {
		change.CreatedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(change.Counter) * time.Second)
	}
	f.rows = append(f.rows, *change)
	return nil
}

func (f *fakeChangeRepo) ResolveCursor(ctx context.Context, changeID string) (int64, error) {
	for _, row := range f.rows {
		if row.ID == changeID {
			return row.Counter, nil
		}
	}
	return 0, repository.ErrCursorNotFound
}

func (f *fakeChangeRepo) ListForPrincipal(ctx context.Context, userID string, sinceCounter int64, limit int) ([]domain.Change, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []domain.Change
	for _, row := range f.rows {
		if row.Counter <= sinceCounter {
			continue
		}
		if !f.isVisible(userID, row) {
			continue
		}
		result = append(result, row)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeChangeRepo) isVisible(userID string, row domain.Change) bool {
	switch row.Type {
	case domain.ChangeTypeCreate, domain.ChangeTypeDelete:
		return row.UserID != nil && *row.UserID == userID
	case domain.ChangeTypeUpdate:
		return f.visible[userID][row.ItemID]
	}
	return false
}

func (f *fakeChangeRepo) PruneBatch(ctx context.Context, cutoff time.Time, batchSize int) (*repository.PruneBatchResult, error) {
	return &repository.PruneBatchResult{}, nil
}

// fakeItemRepo serves collaborator item state from a map.
type fakeItemRepo struct {
	items map[string]domain.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]domain.Item)}
}

func (f *fakeItemRepo) put(id string, updated time.Time) {
	f.items[id] = domain.Item{ID: id, Name: id + "-name", UpdatedTime: updated}
}

func (f *fakeItemRepo) remove(id string) {
	delete(f.items, id)
}

func (f *fakeItemRepo) LoadByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error) {
	result := make(map[string]domain.Item, len(ids))
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			result[id] = item
		}
	}
	return result, nil
}
