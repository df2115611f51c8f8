package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sync-service/internal/domain"
	"github.com/spec-kit/sync-service/internal/events"
	"github.com/spec-kit/sync-service/internal/repository"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

// RecorderService is the write API the item collaborator calls inside its own
// transaction: one change row is appended per item mutation, so a reader that
// observes the change also observes a consistent item state.
type RecorderService struct {
	changes    repository.ChangeRepository
	dispatcher events.Dispatcher
}

// NewRecorderService constructs the service.
func NewRecorderService(changes repository.ChangeRepository, dispatcher events.Dispatcher) *RecorderService {
	return &RecorderService{changes: changes, dispatcher: dispatcher}
}

// RecordCreateInput describes a create mutation to document.
type RecordCreateInput struct {
	ItemID   string
	ItemName string
	UserID   string
}

// RecordUpdateInput describes an update mutation to document. Previous is
// set only when the update is relevant to move/share detection; such rows
// survive compaction individually.
type RecordUpdateInput struct {
	ItemID   string
	ItemName string
	Previous *domain.PreviousItem
}

// RecordDeleteInput describes a delete mutation to document.
type RecordDeleteInput struct {
	ItemID   string
	ItemName string
	UserID   string
}

// RecordCreate appends a create change attributed to the acting owner.
func (s *RecorderService) RecordCreate(ctx context.Context, tx pgx.Tx, input RecordCreateInput) (*domain.Change, error) {
	if input.ItemID == "" {
		return nil, apperrors.NewValidationError("item id is required", nil)
	}
	if input.UserID == "" {
		return nil, apperrors.NewValidationError("user id is required for create changes", nil)
	}
	userID := input.UserID
	change := &domain.Change{
		ID:       uuid.NewString(),
		ItemID:   input.ItemID,
		ItemName: input.ItemName,
		Type:     domain.ChangeTypeCreate,
		UserID:   &userID,
	}
	return s.append(ctx, tx, change)
}

// RecordUpdate appends an update change. Updates carry no owner: sharing can
// change after the edit, so visibility is evaluated against current
// membership at read time.
func (s *RecorderService) RecordUpdate(ctx context.Context, tx pgx.Tx, input RecordUpdateInput) (*domain.Change, error) {
	if input.ItemID == "" {
		return nil, apperrors.NewValidationError("item id is required", nil)
	}
	change := &domain.Change{
		ID:           uuid.NewString(),
		ItemID:       input.ItemID,
		ItemName:     input.ItemName,
		Type:         domain.ChangeTypeUpdate,
		PreviousItem: input.Previous,
	}
	return s.append(ctx, tx, change)
}

// RecordDelete appends a delete change attributed to the acting owner.
func (s *RecorderService) RecordDelete(ctx context.Context, tx pgx.Tx, input RecordDeleteInput) (*domain.Change, error) {
	if input.ItemID == "" {
		return nil, apperrors.NewValidationError("item id is required", nil)
	}
	if input.UserID == "" {
		return nil, apperrors.NewValidationError("user id is required for delete changes", nil)
	}
	userID := input.UserID
	change := &domain.Change{
		ID:       uuid.NewString(),
		ItemID:   input.ItemID,
		ItemName: input.ItemName,
		Type:     domain.ChangeTypeDelete,
		UserID:   &userID,
	}
	return s.append(ctx, tx, change)
}

func (s *RecorderService) append(ctx context.Context, tx pgx.Tx, change *domain.Change) (*domain.Change, error) {
	if !change.Type.Valid() {
		return nil, apperrors.NewValidationError("unknown change type", map[string]any{"type": change.Type})
	}
	if err := s.changes.Append(ctx, tx, change); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	s.publish(ctx, change)
	return change, nil
}

func (s *RecorderService) publish(ctx context.Context, change *domain.Change) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventChangeRecorded,
		ItemID:    change.ItemID,
		Timestamp: time.Now(),
		Payload: events.ChangeRecordedPayload{
			ChangeID:   change.ID,
			ChangeType: change.Type,
			UserID:     change.UserID,
		},
	})
}
