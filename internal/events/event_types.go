package events

import (
	"time"

	"github.com/spec-kit/sync-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventChangeRecorded        EventType = "change_recorded"
	EventCompactionRunFinished EventType = "compaction_run_finished"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ItemID    string      `json:"item_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ChangeRecordedPayload describes a freshly appended change row.
type ChangeRecordedPayload struct {
	ChangeID   string            `json:"change_id"`
	ChangeType domain.ChangeType `json:"change_type"`
	UserID     *string           `json:"user_id,omitempty"`
}

// CompactionRunFinishedPayload summarizes one TTL compaction run.
type CompactionRunFinishedPayload struct {
	ItemsProcessed int           `json:"items_processed"`
	RowsPruned     int64         `json:"rows_pruned"`
	Batches        int           `json:"batches"`
	Duration       time.Duration `json:"duration"`
	Aborted        bool          `json:"aborted"`
}
