package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/sync-service/internal/config"
	"github.com/spec-kit/sync-service/internal/domain"
	"github.com/spec-kit/sync-service/internal/observability"
	"github.com/spec-kit/sync-service/internal/repository"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

// DeltaService serves the resumable, visibility-scoped delta feed.
type DeltaService struct {
	changes   repository.ChangeRepository
	items     repository.ItemRepository
	compactor *Compactor
	metrics   *observability.Metrics
	sync      config.SyncConfig
}

// DeltaDependencies bundles collaborators for the delta service.
type DeltaDependencies struct {
	ChangeRepo repository.ChangeRepository
	ItemRepo   repository.ItemRepository
	Compactor  *Compactor
	Metrics    *observability.Metrics
	Sync       config.SyncConfig
}

// DeltaRequest describes one feed page request.
type DeltaRequest struct {
	Cursor string
	Limit  int
}

// DeltaItem is one compacted change plus the item's current content
// timestamp, which lets clients skip re-downloading unchanged bodies.
type DeltaItem struct {
	Change      domain.Change
	ContentTime *time.Time
}

// DeltaPage is one feed response.
//
// Cursor and HasMore are derived from the raw fetch, never from the compacted
// output: a page that compacts to zero visible items still advances the
// cursor, so clients always make forward progress through the log.
type DeltaPage struct {
	Items   []DeltaItem
	Cursor  string
	HasMore bool
}

// NewDeltaService constructs the service.
func NewDeltaService(deps DeltaDependencies) *DeltaService {
	return &DeltaService{
		changes:   deps.ChangeRepo,
		items:     deps.ItemRepo,
		compactor: deps.Compactor,
		metrics:   deps.Metrics,
		sync:      deps.Sync,
	}
}

// Delta returns the next page of changes for the principal.
func (s *DeltaService) Delta(ctx context.Context, userID string, req DeltaRequest) (*DeltaPage, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("principal is required", nil)
	}
	limit := s.clampLimit(req.Limit)

	var sinceCounter int64
	if req.Cursor != "" {
		counter, err := s.changes.ResolveCursor(ctx, req.Cursor)
		if err != nil {
			if errors.Is(err, repository.ErrCursorNotFound) {
				return nil, apperrors.NewResyncRequired(req.Cursor)
			}
			return nil, apperrors.NewStorageUnavailable(err)
		}
		sinceCounter = counter
	}

	raw, err := s.changes.ListForPrincipal(ctx, userID, sinceCounter, limit)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	compacted := s.compactor.Compact(raw)

	itemIDs := make([]string, 0, len(compacted))
	seen := make(map[string]struct{}, len(compacted))
	for _, change := range compacted {
		if _, ok := seen[change.ItemID]; ok {
			continue
		}
		seen[change.ItemID] = struct{}{}
		itemIDs = append(itemIDs, change.ItemID)
	}
	items, err := s.items.LoadByIDs(ctx, itemIDs)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	page := &DeltaPage{
		Cursor:  req.Cursor,
		HasMore: len(raw) >= limit,
	}
	for _, change := range compacted {
		item, exists := items[change.ItemID]
		if change.Type != domain.ChangeTypeDelete {
			// the item was purged since this change was written; there is
			// nothing left to sync. A Delete still passes through so the
			// client removes its local copy.
			if !exists {
				continue
			}
			contentTime := item.UpdatedTime
			page.Items = append(page.Items, DeltaItem{Change: change, ContentTime: &contentTime})
			continue
		}
		page.Items = append(page.Items, DeltaItem{Change: change})
	}

	if len(raw) > 0 {
		page.Cursor = raw[len(raw)-1].ID
	}

	s.metrics.RecordDeltaPage(len(raw), len(page.Items))
	return page, nil
}

func (s *DeltaService) clampLimit(limit int) int {
	defaultLimit := s.sync.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	maxLimit := s.sync.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
