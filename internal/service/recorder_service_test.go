package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sync-service/internal/domain"
	"github.com/spec-kit/sync-service/internal/events"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

func TestRecordCreateAppendsAttributedRow(t *testing.T) {
	repo := newFakeChangeRepo()
	recorder := NewRecorderService(repo, nil)

	change, err := recorder.RecordCreate(context.Background(), nil, RecordCreateInput{
		ItemID:   "item-1",
		ItemName: "note.md",
		UserID:   "owner-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, change.ID)
	assert.Equal(t, int64(1), change.Counter)
	assert.Equal(t, domain.ChangeTypeCreate, change.Type)
	require.NotNil(t, change.UserID)
	assert.Equal(t, "owner-1", *change.UserID)
	require.Len(t, repo.rows, 1)
}

func TestRecordUpdateCarriesNoOwner(t *testing.T) {
	repo := newFakeChangeRepo()
	recorder := NewRecorderService(repo, nil)

	change, err := recorder.RecordUpdate(context.Background(), nil, RecordUpdateInput{
		ItemID:   "item-1",
		ItemName: "note.md",
		Previous: prevParent("F1"),
	})
	require.NoError(t, err)

	// sharing can change after the edit; visibility is evaluated at read time
	assert.Nil(t, change.UserID)
	require.NotNil(t, change.PreviousItem)
	assert.Equal(t, "F1", *change.PreviousItem.ParentID)
}

func TestRecordValidation(t *testing.T) {
	repo := newFakeChangeRepo()
	recorder := NewRecorderService(repo, nil)
	ctx := context.Background()

	_, err := recorder.RecordCreate(ctx, nil, RecordCreateInput{ItemID: "item-1"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = recorder.RecordDelete(ctx, nil, RecordDeleteInput{ItemID: "item-1"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = recorder.RecordUpdate(ctx, nil, RecordUpdateInput{})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	assert.Empty(t, repo.rows)
}

func TestRecordPublishesChangeRecordedEvent(t *testing.T) {
	repo := newFakeChangeRepo()
	dispatcher := events.NewInMemoryDispatcher()

	var received []events.Event
	dispatcher.Subscribe(events.EventChangeRecorded, func(ctx context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	recorder := NewRecorderService(repo, dispatcher)
	change, err := recorder.RecordDelete(context.Background(), nil, RecordDeleteInput{
		ItemID:   "item-1",
		ItemName: "note.md",
		UserID:   "owner-1",
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	payload, ok := received[0].Payload.(events.ChangeRecordedPayload)
	require.True(t, ok)
	assert.Equal(t, change.ID, payload.ChangeID)
	assert.Equal(t, domain.ChangeTypeDelete, payload.ChangeType)
	assert.Equal(t, "item-1", received[0].ItemID)
}
