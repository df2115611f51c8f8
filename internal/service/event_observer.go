package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sync-service/internal/events"
	"github.com/spec-kit/sync-service/internal/observability"
)

// SyncEventObserver routes dispatcher events into logging and metrics.
type SyncEventObserver struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewSyncEventObserver creates the observer.
func NewSyncEventObserver(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *SyncEventObserver {
	return &SyncEventObserver{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// RegisterHandlers subscribes to events.
func (o *SyncEventObserver) RegisterHandlers() {
	if o.dispatcher == nil {
		return
	}
	o.dispatcher.Subscribe(events.EventChangeRecorded, o.handleChangeRecorded)
	o.dispatcher.Subscribe(events.EventCompactionRunFinished, o.handleCompactionRunFinished)
}

func (o *SyncEventObserver) handleChangeRecorded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ChangeRecordedPayload)
	if !ok {
		return nil
	}
	o.metrics.RecordChange(payload.ChangeType)
	o.logger.Debug("ChangeRecorded",
		zap.String("item_id", event.ItemID),
		zap.String("change_id", payload.ChangeID),
		zap.String("change_type", string(payload.ChangeType)))
	return nil
}

func (o *SyncEventObserver) handleCompactionRunFinished(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CompactionRunFinishedPayload)
	if !ok {
		return nil
	}
	o.metrics.RecordPrunedRows(payload.RowsPruned)
	if payload.Aborted {
		o.metrics.RecordInvariantViolation()
	}
	o.logger.Info("CompactionRunFinished",
		zap.Int("items_processed", payload.ItemsProcessed),
		zap.Int64("rows_pruned", payload.RowsPruned),
		zap.Int("batches", payload.Batches),
		zap.Duration("duration", payload.Duration),
		zap.Bool("aborted", payload.Aborted))
	return nil
}
