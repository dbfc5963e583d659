package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mkrawiec/textsync/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface for the local mirror. All local
// database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Tasks
	ClaimNextTask(ctx context.Context) (*models.Task, string, error)
	ClaimTask(ctx context.Context, id int64) (*models.Task, string, error)
	NextEligibleTask(ctx context.Context) (*models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	GetTaskStatus(ctx context.Context, id int64) (string, error)
	NextProcessableTask(ctx context.Context) (*models.Task, error)
	UpdateTaskStage(ctx context.Context, id int64, stage string, progress float64, opts ...TaskUpdateOption) error
	AddTaskCounters(ctx context.Context, id int64, d CounterDeltas) error
	AppendTaskError(ctx context.Context, id int64, line string) error
	FinalizeTask(ctx context.Context, id int64, status string, totalTime time.Duration) error
	SetTaskStatus(ctx context.Context, id int64, status string) error

	// Reference data
	GetConnection(ctx context.Context, id int64) (*models.DatabaseConnection, error)
	MarkConnectionError(ctx context.Context, id int64) error
	GetAIModel(ctx context.Context, id int64) (*models.AIModel, error)

	// Task items
	InsertItem(ctx context.Context, item *models.TaskItem) error
	GetItem(ctx context.Context, taskID, itemID int64) (*models.TaskItem, error)
	GetItemsByRemoteIDs(ctx context.Context, taskID int64, remoteIDs []int64) (map[int64]*models.TaskItem, error)
	ListItems(ctx context.Context, taskID, afterID int64, limit int) ([]*models.TaskItem, error)
	ListChangedItems(ctx context.Context, taskID, afterID int64, limit int) ([]*models.TaskItem, error)
	ListPendingItems(ctx context.Context, taskID int64, limit int) ([]*models.TaskItem, error)
	TouchItemVerified(ctx context.Context, itemID int64, localHash string, at time.Time) error
	SetItemChanged(ctx context.Context, itemID int64, changed bool) error
	MarkItemConflict(ctx context.Context, itemID int64, localHash string) error
	ResetItemOriginal(ctx context.Context, itemID int64, text, hash string, at time.Time) error
	MarkItemsOutdatedBefore(ctx context.Context, taskID int64, cutoff time.Time) (int64, error)
	MarkItemTooLong(ctx context.Context, itemID int64, status string, opUUID uuid.UUID) error
	MarkItemProcessed(ctx context.Context, itemID int64, upd ProcessedUpdate) error
	CountItems(ctx context.Context, taskID int64) (int64, error)
	CountItemsByStatus(ctx context.Context, taskID int64) (map[string]int64, error)

	// WithTx runs fn against a transaction-bound Store. A returned error
	// rolls the transaction back; page-scoped writes go through this.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// CounterDeltas is a set of increments applied to a task's progress counters.
type CounterDeltas struct {
	Fetched   int64
	Processed int64
	New       int64
	Updated   int64
	Deleted   int64
}

// IsZero reports whether applying the deltas would be a no-op.
func (d CounterDeltas) IsZero() bool {
	return d == CounterDeltas{}
}

// ProcessedUpdate carries the result of one successful AI call, written to a
// task_item in the same transaction as the owning task's counters.
type ProcessedUpdate struct {
	TextCorrected   string
	ChangeSummary   string
	SimilarityScore float64
	TokensInput     int64
	TokensOutput    int64
	CostUSD         float64
	AIModel         string
	FinishReason    string
	OperationUUID   uuid.UUID
	ProcessedAt     time.Time
}

// TaskUpdate collects the optional column writes of UpdateTaskStage. Nil
// fields are left untouched.
type TaskUpdate struct {
	LastProcessedID  *int64
	ResumeMarker     *string
	RecordsTotal     *int64
	RecordsFetched   *int64
	RecordsProcessed *int64
	CycleStart       *time.Time
}

type TaskUpdateOption func(*TaskUpdate)

// WithLastProcessedID persists the remote-key fetch watermark.
func WithLastProcessedID(id int64) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.LastProcessedID = &id
	}
}

// WithResumeMarker persists the local watermark used by the compare and
// update stages.
func WithResumeMarker(marker string) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.ResumeMarker = &marker
	}
}

// WithRecordsTotal sets the remote row count measured during init.
func WithRecordsTotal(total int64) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.RecordsTotal = &total
	}
}

// WithRecordsFetched snaps records_fetched to the live mirror size. The verify
// stage uses it so repeated passes do not double-count re-fetched rows.
func WithRecordsFetched(fetched int64) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.RecordsFetched = &fetched
	}
}

// WithRecordsProcessed snaps records_processed to the count of items that
// carry AI output, recomputed at finalization.
func WithRecordsProcessed(processed int64) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.RecordsProcessed = &processed
	}
}

// WithCycleStart marks the beginning of a fresh reconciliation pass; it also
// clears finished_at left over from a previous completed run.
func WithCycleStart(at time.Time) TaskUpdateOption {
	return func(p *TaskUpdate) {
		p.CycleStart = &at
	}
}
