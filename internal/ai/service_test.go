package ai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mkrawiec/textsync/internal/config"
	"github.com/mkrawiec/textsync/internal/ai/mock"
	"github.com/mkrawiec/textsync/internal/store"
	"github.com/mkrawiec/textsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct {
	mu         sync.Mutex
	model      *models.AIModel
	taskStatus string
	pending    []*models.TaskItem
	processed  map[int64]store.ProcessedUpdate
	tooLong    map[int64]string
	errorLines []string
	counters   store.CounterDeltas

	// markProcessedErr, when set, is returned by MarkItemProcessed.
	markProcessedErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		taskStatus: models.TaskStatusInProgress,
		processed:  make(map[int64]store.ProcessedUpdate),
		tooLong:    make(map[int64]string),
	}
}

func (s *mockStore) GetAIModel(_ context.Context, id int64) (*models.AIModel, error) {
	if s.model == nil || s.model.ID != id {
		return nil, store.ErrNotFound
	}
	return s.model, nil
}

func (s *mockStore) GetTaskStatus(_ context.Context, _ int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskStatus, nil
}

func (s *mockStore) ListPendingItems(_ context.Context, _ int64, limit int) ([]*models.TaskItem, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *mockStore) GetItem(_ context.Context, _, itemID int64) (*models.TaskItem, error) {
	for _, item := range s.pending {
		if item.ID == itemID {
			return item, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) MarkItemProcessed(_ context.Context, itemID int64, upd store.ProcessedUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markProcessedErr != nil {
		return s.markProcessedErr
	}
	s.processed[itemID] = upd
	return nil
}

func (s *mockStore) MarkItemTooLong(_ context.Context, itemID int64, status string, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tooLong[itemID] = status
	return nil
}

func (s *mockStore) AddTaskCounters(_ context.Context, _ int64, d store.CounterDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Processed += d.Processed
	return nil
}

func (s *mockStore) AppendTaskError(_ context.Context, _ int64, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLines = append(s.errorLines, line)
	return nil
}

func (s *mockStore) WithTx(_ context.Context, fn func(store.Store) error) error {
	return fn(s)
}

// Unused Store methods.
func (s *mockStore) Ping(_ context.Context) error { return nil }
func (s *mockStore) ClaimNextTask(_ context.Context) (*models.Task, string, error) {
	return nil, "", store.ErrNotFound
}
func (s *mockStore) ClaimTask(_ context.Context, _ int64) (*models.Task, string, error) {
	return nil, "", store.ErrNotFound
}
func (s *mockStore) GetTask(_ context.Context, _ int64) (*models.Task, error) {
	return nil, store.ErrNotFound
}
func (s *mockStore) NextEligibleTask(_ context.Context) (*models.Task, error) {
	return nil, store.ErrNotFound
}
func (s *mockStore) NextProcessableTask(_ context.Context) (*models.Task, error) {
	return nil, store.ErrNotFound
}
func (s *mockStore) UpdateTaskStage(_ context.Context, _ int64, _ string, _ float64, _ ...store.TaskUpdateOption) error {
	return nil
}
func (s *mockStore) FinalizeTask(_ context.Context, _ int64, _ string, _ time.Duration) error {
	return nil
}
func (s *mockStore) SetTaskStatus(_ context.Context, _ int64, _ string) error { return nil }
func (s *mockStore) GetConnection(_ context.Context, _ int64) (*models.DatabaseConnection, error) {
	return nil, store.ErrNotFound
}
func (s *mockStore) MarkConnectionError(_ context.Context, _ int64) error { return nil }
func (s *mockStore) InsertItem(_ context.Context, _ *models.TaskItem) error {
	return nil
}
func (s *mockStore) GetItemsByRemoteIDs(_ context.Context, _ int64, _ []int64) (map[int64]*models.TaskItem, error) {
	return nil, nil
}
func (s *mockStore) ListItems(_ context.Context, _, _ int64, _ int) ([]*models.TaskItem, error) {
	return nil, nil
}
func (s *mockStore) ListChangedItems(_ context.Context, _, _ int64, _ int) ([]*models.TaskItem, error) {
	return nil, nil
}
func (s *mockStore) TouchItemVerified(_ context.Context, _ int64, _ string, _ time.Time) error {
	return nil
}
func (s *mockStore) SetItemChanged(_ context.Context, _ int64, _ bool) error { return nil }
func (s *mockStore) MarkItemConflict(_ context.Context, _ int64, _ string) error {
	return nil
}
func (s *mockStore) ResetItemOriginal(_ context.Context, _ int64, _, _ string, _ time.Time) error {
	return nil
}
func (s *mockStore) MarkItemsOutdatedBefore(_ context.Context, _ int64, _ time.Time) (int64, error) {
	return 0, nil
}
func (s *mockStore) CountItems(_ context.Context, _ int64) (int64, error) { return 0, nil }
func (s *mockStore) CountItemsByStatus(_ context.Context, _ int64) (map[string]int64, error) {
	return nil, nil
}

var _ store.Store = (*mockStore)(nil)

// --- fixtures ---

func testModel() *models.AIModel {
	temp := 0.2
	return &models.AIModel{
		ID:           7,
		Provider:     models.ProviderOpenAI,
		ModelName:    "test-model",
		MaxCharInput: 10000,
		Temperature:  &temp,
		CostPer1KIn:  0.5,
		CostPer1KOut: 1.5,
		IsActive:     true,
	}
}

func testTask() *models.Task {
	modelID := int64(7)
	return &models.Task{
		ID:        1,
		AIModelID: &modelID,
		Status:    models.TaskStatusInProgress,
		SyncStage: models.StageDone,
	}
}

func pendingItem(id int64, text string) *models.TaskItem {
	return &models.TaskItem{
		ID:           id,
		TaskID:       1,
		RemoteID:     id * 10,
		TextOriginal: text,
		Status:       models.ItemStatusPending,
	}
}

func testConfig() config.AIConfig {
	return config.AIConfig{
		RequestTimeout: time.Second,
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}
}

func factoryFor(p models.Provider) ProviderFactory {
	return func(_ *models.AIModel, _ time.Duration) (models.Provider, error) {
		return p, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// --- tests ---

func TestProcessTask_Success(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "Thiss has a typo.")}

	provider := mock.NewEchoProvider("This has a typo.")
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.LeftPending)

	upd, ok := st.processed[1]
	require.True(t, ok)
	assert.Equal(t, "This has a typo.", upd.TextCorrected)
	assert.NotEqual(t, uuid.Nil, upd.OperationUUID)
	assert.InDelta(t, 0.5*0.1+1.5*0.05, upd.CostUSD, 1e-9) // 100 in, 50 out
	assert.Greater(t, upd.SimilarityScore, 0.8)
	assert.Equal(t, int64(1), st.counters.Processed)
}

func TestProcessTask_RespectsMaxItems(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	for i := int64(1); i <= 5; i++ {
		st.pending = append(st.pending, pendingItem(i, "text"))
	}

	provider := mock.NewEchoProvider("text")
	p := NewPipeline(st, testConfig(), 20, testLogger(),
		WithProviderFactory(factoryFor(provider)), WithMaxItems(2))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
}

func TestProcessTask_TooLongItem(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.model.MaxCharInput = 5
	st.pending = []*models.TaskItem{pendingItem(1, "far too long for this model")}

	provider := mock.NewEchoProvider("unused")
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 1, res.TooLong)
	assert.Equal(t, models.ItemStatusTooLong1, st.tooLong[1])
	assert.Zero(t, provider.Calls)
}

func TestProcessTask_TransientFailureLeavesPending(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "text")}

	provider := mock.NewFailingProvider(
		models.TransientModelError("mock", errors.New("connection reset")))
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 1, res.LeftPending)
	assert.Empty(t, st.processed)
	require.Len(t, st.errorLines, 1)
	assert.Contains(t, st.errorLines[0], "item 1")

	// MaxAttempts=2 means one retry.
	assert.Equal(t, 2, provider.Calls)
}

func TestProcessTask_ItemResolvedByAnotherWorker(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "text")}
	// The item stopped being pending between listing and the write, i.e. a
	// concurrent worker finished it first.
	st.markProcessedErr = store.ErrNotFound

	provider := mock.NewEchoProvider("text")
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)

	// The winner's write carries the counters; this run records nothing.
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.LeftPending)
	assert.Zero(t, st.counters.Processed)
	assert.Empty(t, st.errorLines)
}

func TestProcessTask_PermanentFailureAborts(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "text")}

	provider := mock.NewFailingProvider(
		models.PermanentModelError("mock", errors.New("invalid api key")))
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	_, err := p.ProcessTask(context.Background(), testTask())
	require.Error(t, err)
	assert.False(t, models.IsTransient(err))

	// No retry on permanent failures.
	assert.Equal(t, 1, provider.Calls)
}

func TestProcessTask_MalformedResponseLeavesPending(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "text")}

	provider := &mock.MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ string) (models.Completion, error) {
			return models.Completion{Text: "not json at all"}, nil
		},
	}
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 1, res.LeftPending)
	assert.Empty(t, st.processed)
}

func TestProcessTask_InterruptedByCancelledStatus(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.taskStatus = models.TaskStatusCancelled
	st.pending = []*models.TaskItem{pendingItem(1, "text")}

	provider := mock.NewEchoProvider("text")
	p := NewPipeline(st, testConfig(), 20, testLogger(), WithProviderFactory(factoryFor(provider)))

	_, err := p.ProcessTask(context.Background(), testTask())
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Zero(t, provider.Calls)
}

func TestProcessTask_NoModel(t *testing.T) {
	st := newMockStore()
	task := testTask()
	task.AIModelID = nil

	p := NewPipeline(st, testConfig(), 20, testLogger())

	_, err := p.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, ErrNoModel)
}

func TestProcessTask_DryRun(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	st.pending = []*models.TaskItem{pendingItem(1, "text")}

	provider := mock.NewEchoProvider("text")
	p := NewPipeline(st, testConfig(), 20, testLogger(),
		WithProviderFactory(factoryFor(provider)), WithDryRun(true))

	res, err := p.ProcessTask(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, st.processed)
	assert.Zero(t, provider.Calls)
}

func TestProcessItem_NotPending(t *testing.T) {
	st := newMockStore()
	st.model = testModel()
	done := pendingItem(1, "text")
	done.Status = models.ItemStatusProcessed
	st.pending = []*models.TaskItem{done}

	p := NewPipeline(st, testConfig(), 20, testLogger())

	err := p.ProcessItem(context.Background(), testTask(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not pending")
}
