package worker

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sync-service/internal/config"
	"github.com/spec-kit/sync-service/internal/domain"
	"github.com/spec-kit/sync-service/internal/events"
	"github.com/spec-kit/sync-service/internal/repository"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

// batchChangeRepo feeds scripted prune batches to the worker.
type batchChangeRepo struct {
	batches []*repository.PruneBatchResult
	calls   int
}

func (f *batchChangeRepo) Append(ctx context.Context, tx pgx.Tx, change *domain.Change) error {
	return nil
}

func (f *batchChangeRepo) ResolveCursor(ctx context.Context, changeID string) (int64, error) {
	return 0, repository.ErrCursorNotFound
}

func (f *batchChangeRepo) ListForPrincipal(ctx context.Context, userID string, sinceCounter int64, limit int) ([]domain.Change, error) {
	return nil, nil
}

func (f *batchChangeRepo) PruneBatch(ctx context.Context, cutoff time.Time, batchSize int) (*repository.PruneBatchResult, error) {
	f.calls++
	if f.calls > len(f.batches) {
		return &repository.PruneBatchResult{}, nil
	}
	return f.batches[f.calls-1], nil
}

type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.acquired++
	return !f.held, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, key string) error {
	f.released++
	return nil
}

func newTestCompactor(repo repository.ChangeRepository, locker RunLocker, dispatcher events.Dispatcher) *TTLCompactor {
	return NewTTLCompactor(TTLCompactorDeps{
		ChangeRepo: repo,
		Locker:     locker,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Config: config.CompactionConfig{
			Enabled:         true,
			TTLDays:         90,
			BatchSize:       2,
			IntervalMinutes: 60,
			LockTTLSeconds:  60,
		},
	})
}

func TestRunOnceProcessesAllBatches(t *testing.T) {
	repo := &batchChangeRepo{batches: []*repository.PruneBatchResult{
		{ItemIDs: []string{"A", "B"}, RowsPruned: 5},
		{ItemIDs: []string{"C"}, RowsPruned: 2},
	}}
	locker := &fakeLocker{}
	dispatcher := events.NewInMemoryDispatcher()

	var finished []events.CompactionRunFinishedPayload
	dispatcher.Subscribe(events.EventCompactionRunFinished, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.CompactionRunFinishedPayload)
		if ok {
			finished = append(finished, payload)
		}
		return nil
	})

	compactor := newTestCompactor(repo, locker, dispatcher)
	require.NoError(t, compactor.RunOnce(context.Background()))

	assert.Equal(t, 3, repo.calls) // two data batches plus the empty terminator
	assert.Equal(t, 1, locker.released)
	require.Len(t, finished, 1)
	assert.Equal(t, 3, finished[0].ItemsProcessed)
	assert.Equal(t, int64(7), finished[0].RowsPruned)
	assert.Equal(t, 2, finished[0].Batches)
	assert.False(t, finished[0].Aborted)
}

func TestRunOnceAbortsOnReprocessedItem(t *testing.T) {
	// item B reappearing in a later batch of the same run signals a logic
	// error; the run must abort rather than delete the wrong row
	repo := &batchChangeRepo{batches: []*repository.PruneBatchResult{
		{ItemIDs: []string{"A", "B"}, RowsPruned: 3},
		{ItemIDs: []string{"B"}, RowsPruned: 1},
	}}
	locker := &fakeLocker{}
	dispatcher := events.NewInMemoryDispatcher()

	var finished []events.CompactionRunFinishedPayload
	dispatcher.Subscribe(events.EventCompactionRunFinished, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.CompactionRunFinishedPayload)
		if ok {
			finished = append(finished, payload)
		}
		return nil
	})

	compactor := newTestCompactor(repo, locker, dispatcher)
	err := compactor.RunOnce(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVARIANT_VIOLATION"))
	assert.Equal(t, 1, locker.released)
	require.Len(t, finished, 1)
	assert.True(t, finished[0].Aborted)
}

func TestRunOnceSkipsWhenLockHeldElsewhere(t *testing.T) {
	repo := &batchChangeRepo{batches: []*repository.PruneBatchResult{
		{ItemIDs: []string{"A"}, RowsPruned: 1},
	}}
	locker := &fakeLocker{held: true}

	compactor := newTestCompactor(repo, locker, nil)
	require.NoError(t, compactor.RunOnce(context.Background()))

	assert.Equal(t, 0, repo.calls)
	assert.Equal(t, 0, locker.released)
}
