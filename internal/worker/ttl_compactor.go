package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sync-service/internal/config"
	"github.com/spec-kit/sync-service/internal/events"
	"github.com/spec-kit/sync-service/internal/repository"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

const compactionLockKey = "sync:ttl-compactor:lock"

// RunLocker guards against concurrent compaction runs across replicas.
type RunLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// TTLCompactor is the background job that prunes superseded historical
// Update rows to bound storage growth. It never touches Create or Delete
// rows and never changes any principal's eventual compacted view; it only
// shrinks the history needed to reconstruct it.
type TTLCompactor struct {
	changes    repository.ChangeRepository
	locker     RunLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.CompactionConfig
}

// TTLCompactorDeps bundles collaborators for the worker.
type TTLCompactorDeps struct {
	ChangeRepo repository.ChangeRepository
	Locker     RunLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.CompactionConfig
}

// NewTTLCompactor constructs the worker.
func NewTTLCompactor(deps TTLCompactorDeps) *TTLCompactor {
	return &TTLCompactor{
		changes:    deps.ChangeRepo,
		locker:     deps.Locker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        deps.Config,
	}
}

// Start launches the periodic run loop until ctx is cancelled.
func (w *TTLCompactor) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *TTLCompactor) loop(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("ttl compaction run failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				// the next scheduled run re-queries live state, so a failed
				// run is simply retried later
				w.logger.Error("ttl compaction run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single compaction run in bounded per-batch
// transactions. An item id reappearing in a later batch of the same run
// signals a logic error, not legitimate concurrency: the run aborts rather
// than risk deleting the wrong "most recent" row.
func (w *TTLCompactor) RunOnce(ctx context.Context) error {
	if w.locker != nil {
		acquired, err := w.locker.AcquireLock(ctx, compactionLockKey, w.cfg.LockTTL())
		if err != nil {
			w.logger.Warn("compaction lock unavailable", zap.Error(err))
			return nil
		}
		if !acquired {
			w.logger.Debug("compaction lock held elsewhere, skipping run")
			return nil
		}
		defer func() {
			if err := w.locker.ReleaseLock(context.WithoutCancel(ctx), compactionLockKey); err != nil {
				w.logger.Warn("failed to release compaction lock", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	cutoff := started.Add(-w.cfg.TTL())
	processed := make(map[string]struct{})
	var rowsPruned int64
	batches := 0

	for {
		result, err := w.changes.PruneBatch(ctx, cutoff, w.cfg.BatchSize)
		if err != nil {
			w.publishRunFinished(ctx, len(processed), rowsPruned, batches, time.Since(started), true)
			return apperrors.NewStorageUnavailable(err)
		}
		if len(result.ItemIDs) == 0 {
			break
		}
		batches++
		for _, itemID := range result.ItemIDs {
			if _, seen := processed[itemID]; seen {
				w.publishRunFinished(ctx, len(processed), rowsPruned, batches, time.Since(started), true)
				return apperrors.NewInvariantViolation(
					"item reprocessed within one compaction run",
					map[string]any{"item_id": itemID})
			}
			processed[itemID] = struct{}{}
		}
		rowsPruned += result.RowsPruned
	}

	w.publishRunFinished(ctx, len(processed), rowsPruned, batches, time.Since(started), false)
	w.logger.Info("ttl compaction run complete",
		zap.Int("items_processed", len(processed)),
		zap.Int64("rows_pruned", rowsPruned),
		zap.Int("batches", batches))
	return nil
}

func (w *TTLCompactor) publishRunFinished(ctx context.Context, items int, rows int64, batches int, duration time.Duration, aborted bool) {
	if w.dispatcher == nil {
		return
	}
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCompactionRunFinished,
		Timestamp: time.Now(),
		Payload: events.CompactionRunFinishedPayload{
			ItemsProcessed: items,
			RowsPruned:     rows,
			Batches:        batches,
			Duration:       duration,
			Aborted:        aborted,
		},
	})
}
