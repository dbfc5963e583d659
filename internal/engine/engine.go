// Package engine owns the task state machine: claiming work, driving the
// reconciliation stages, running the AI pass and finalizing the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mkrawiec/textsync/internal/ai"
	"github.com/mkrawiec/textsync/internal/config"
	"github.com/mkrawiec/textsync/internal/source"
	"github.com/mkrawiec/textsync/internal/store"
	"github.com/mkrawiec/textsync/pkg/models"
)

// Sentinel results of an engine run.
var (
	// ErrNoTask means no eligible task existed; callers treat it as an
	// idle no-op, not a failure.
	ErrNoTask = errors.New("no eligible task")
	// ErrTaskFailed means the claimed task ended in status error. The
	// failure is already persisted in the task's error_log.
	ErrTaskFailed = errors.New("task finished with errors")
	// ErrInterrupted means the task was cancelled or paused externally and
	// the engine stopped at a page boundary with resume markers intact.
	ErrInterrupted = errors.New("task interrupted")
)

// SourceOpener connects to a remote source; injectable for tests.
type SourceOpener func(ctx context.Context, conn *models.DatabaseConnection) (source.Source, error)

// Engine executes one task at a time. Instances are single-threaded;
// parallelism comes from independent processes coordinated only through the
// atomic claim in the store.
type Engine struct {
	store      store.Store
	pipeline   *ai.Pipeline
	logger     *slog.Logger
	cfg        config.EngineConfig
	dryRun     bool
	openSource SourceOpener
}

// Option configures an Engine.
type Option func(*Engine)

// WithDryRun makes the engine perform every read and classification step but
// suppress all local writes.
func WithDryRun(dry bool) Option {
	return func(e *Engine) { e.dryRun = dry }
}

// WithSourceOpener replaces the default remote connector.
func WithSourceOpener(open SourceOpener) Option {
	return func(e *Engine) { e.openSource = open }
}

// WithBatchSize overrides the configured page size.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cfg.BatchSize = n
		}
	}
}

// New creates an Engine.
func New(st store.Store, pipeline *ai.Pipeline, cfg config.EngineConfig, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		pipeline:   pipeline,
		logger:     logger,
		cfg:        cfg,
		openSource: source.Open,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether local writes are suppressed.
func (e *Engine) DryRun() bool { return e.dryRun }

// SyncNext claims the oldest eligible task and runs its reconciliation pass.
// A dry run reads the task without claiming it, so the row keeps its status
// and stays claimable by a real run.
func (e *Engine) SyncNext(ctx context.Context) (*models.Task, error) {
	if e.dryRun {
		task, err := e.store.NextEligibleTask(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoTask
		}
		if err != nil {
			return nil, err
		}
		return task, e.sync(ctx, task, task.Status)
	}
	task, prev, err := e.store.ClaimNextTask(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, err
	}
	return task, e.sync(ctx, task, prev)
}

// SyncTask claims one specific task and runs its reconciliation pass.
func (e *Engine) SyncTask(ctx context.Context, id int64) (*models.Task, error) {
	if e.dryRun {
		task, err := e.store.GetTask(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoTask
		}
		if err != nil {
			return nil, err
		}
		if !claimableStatus(task.Status) {
			return nil, ErrNoTask
		}
		return task, e.sync(ctx, task, task.Status)
	}
	task, prev, err := e.store.ClaimTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, err
	}
	return task, e.sync(ctx, task, prev)
}

// claimableStatus mirrors the eligibility predicate of the store's claim.
func claimableStatus(status string) bool {
	switch status {
	case models.TaskStatusNew, models.TaskStatusResync, models.TaskStatusPaused:
		return true
	}
	return false
}

// sync drives the claimed task through the stage sequence. Task-level
// failures are persisted and reported as ErrTaskFailed; the process itself
// never crashes on them.
func (e *Engine) sync(ctx context.Context, task *models.Task, prevStatus string) error {
	log := e.logger.With("task", task.ID, "table", task.TableName, "column", task.ColumnName)
	log.Info("task claimed", "prev_status", prevStatus, "stage", task.SyncStage)

	// A resync request or a finished previous pass starts from scratch;
	// paused or crashed tasks resume exactly where the markers point.
	if prevStatus == models.TaskStatusResync || task.SyncStage == models.StageDone {
		task.SyncStage = models.StageInit
	}

	conn, err := e.store.GetConnection(ctx, task.ConnectionID)
	if err != nil {
		return e.fail(ctx, task, task.SyncStage, fmt.Errorf("load connection %d: %w", task.ConnectionID, err))
	}
	if conn.Status != models.ConnStatusActive {
		return e.fail(ctx, task, task.SyncStage,
			fmt.Errorf("connection %q is %s, not active", conn.Alias, conn.Status))
	}

	src, err := e.connect(ctx, conn)
	if err != nil {
		if !e.dryRun {
			if markErr := e.store.MarkConnectionError(ctx, conn.ID); markErr != nil {
				log.Error("mark connection error", "error", markErr)
			}
		}
		return e.fail(ctx, task, task.SyncStage, err)
	}
	defer src.Close()

	run := &syncRun{engine: e, task: task, src: src, log: log}
	if err := run.drive(ctx); err != nil {
		if errors.Is(err, ErrInterrupted) {
			log.Info("task interrupted, markers preserved", "stage", task.SyncStage)
			return err
		}
		return e.fail(ctx, task, task.SyncStage, err)
	}

	log.Info("reconciliation finished",
		"new", task.RecordsNew, "updated", task.RecordsUpdated, "deleted", task.RecordsDeleted)
	return nil
}

// connect opens the remote source, retrying transient failures with
// exponential backoff up to the configured bound.
func (e *Engine) connect(ctx context.Context, conn *models.DatabaseConnection) (source.Source, error) {
	var src source.Source
	op := func() error {
		openCtx, cancel := context.WithTimeout(ctx, e.cfg.SourceTimeout)
		defer cancel()
		var err error
		src, err = e.openSource(openCtx, conn)
		if err != nil && !errors.Is(err, source.ErrUnreachable) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.cfg.ConnectRetries)),
		ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("connect source %q: %w", conn.Alias, err)
	}
	return src, nil
}

// Process runs the AI pass over a task whose reconciliation is done, then
// finalizes the outcome if no pending work remains.
func (e *Engine) Process(ctx context.Context, task *models.Task) error {
	log := e.logger.With("task", task.ID)

	if task.SyncStage != models.StageDone {
		return fmt.Errorf("task %d not synchronized (stage %s)", task.ID, task.SyncStage)
	}

	res, err := e.pipeline.ProcessTask(ctx, task)
	if err != nil {
		if errors.Is(err, ai.ErrInterrupted) {
			// Re-check so a cancelled task gets finalized before we stop.
			if ierr := e.checkInterrupted(ctx, task); ierr != nil {
				return ierr
			}
			return ErrInterrupted
		}
		// Permanent model failures abort the whole task.
		return e.fail(ctx, task, "process", err)
	}
	log.Info("ai pass finished",
		"processed", res.Processed, "too_long", res.TooLong, "left_pending", res.LeftPending)

	return e.finalize(ctx, task, log)
}

// ProcessItem runs the AI step for one specific pending item, outside the
// normal claim flow. Used for targeted reprocessing.
func (e *Engine) ProcessItem(ctx context.Context, taskID, itemID int64) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	return e.pipeline.ProcessItem(ctx, task, itemID)
}

// ProcessNext picks the oldest synchronized task and runs the AI pass.
func (e *Engine) ProcessNext(ctx context.Context) (*models.Task, error) {
	task, err := e.store.NextProcessableTask(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, err
	}
	return task, e.Process(ctx, task)
}

// finalize closes the task out when nothing is left to do. Completion
// requires every fetched record processed and no unresolved conflicts;
// anything else is an error outcome with a structured log line.
func (e *Engine) finalize(ctx context.Context, task *models.Task, log *slog.Logger) error {
	counts, err := e.store.CountItemsByStatus(ctx, task.ID)
	if err != nil {
		return err
	}

	if counts[models.ItemStatusPending] > 0 {
		// More AI batches (or retried transient failures) to come; the
		// task stays claimed and a later invocation continues it.
		log.Info("task left in progress", "pending", counts[models.ItemStatusPending])
		return nil
	}

	processed := counts[models.ItemStatusProcessed] +
		counts[models.ItemStatusAccepted] +
		counts[models.ItemStatusRejected] +
		counts[models.ItemStatusExported]
	fetched := task.RecordsFetched
	conflicts := counts[models.ItemStatusConflict]
	elapsed := e.elapsed(task)

	if e.dryRun {
		log.Info("dry run: task outcome suppressed",
			"would_complete", processed == fetched && conflicts == 0,
			"processed", processed, "fetched", fetched, "conflicts", conflicts)
		return nil
	}

	if err := e.store.UpdateTaskStage(ctx, task.ID, models.StageDone, 100,
		store.WithRecordsProcessed(processed)); err != nil {
		return err
	}

	if processed == fetched && conflicts == 0 {
		if err := e.store.FinalizeTask(ctx, task.ID, models.TaskStatusCompleted, elapsed); err != nil {
			return err
		}
		log.Info("task completed", "records_processed", processed, "elapsed", elapsed)
		return nil
	}

	cause := fmt.Sprintf("processed %d of %d records, %d conflicts, %d too long",
		processed, fetched, conflicts,
		counts[models.ItemStatusTooLong1]+counts[models.ItemStatusTooLong2])
	if err := e.store.AppendTaskError(ctx, task.ID, errorLine("finalize", cause)); err != nil {
		return err
	}
	if err := e.store.FinalizeTask(ctx, task.ID, models.TaskStatusError, elapsed); err != nil {
		return err
	}
	log.Warn("task finished with errors", "cause", cause)
	return ErrTaskFailed
}

// fail persists a task-level failure and moves the task to error. The
// returned error is always ErrTaskFailed so callers map it to an exit code.
func (e *Engine) fail(ctx context.Context, task *models.Task, stage string, cause error) error {
	e.logger.Error("task failed", "task", task.ID, "stage", stage, "error", cause)
	if e.dryRun {
		return ErrTaskFailed
	}
	if err := e.store.AppendTaskError(ctx, task.ID, errorLine(stage, cause.Error())); err != nil {
		e.logger.Error("persist error log", "task", task.ID, "error", err)
	}
	if err := e.store.FinalizeTask(ctx, task.ID, models.TaskStatusError, e.elapsed(task)); err != nil {
		e.logger.Error("finalize failed task", "task", task.ID, "error", err)
	}
	return ErrTaskFailed
}

func (e *Engine) elapsed(task *models.Task) time.Duration {
	if task.StartedAt == nil {
		return 0
	}
	return time.Since(*task.StartedAt)
}

// checkInterrupted implements cooperative cancellation: between pages the
// engine re-reads the task status and stops when an external actor cancelled
// or paused the task.
func (e *Engine) checkInterrupted(ctx context.Context, task *models.Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	status, err := e.store.GetTaskStatus(ctx, task.ID)
	if err != nil {
		return err
	}
	switch status {
	case models.TaskStatusCancelled:
		if !e.dryRun {
			if err := e.store.FinalizeTask(ctx, task.ID, models.TaskStatusCancelled, e.elapsed(task)); err != nil {
				e.logger.Error("finalize cancelled task", "task", task.ID, "error", err)
			}
		}
		return fmt.Errorf("%w: cancelled", ErrInterrupted)
	case models.TaskStatusPaused:
		if e.dryRun {
			// An unclaimed row keeps its paused status during a dry run;
			// that is the task under inspection, not an external signal.
			return nil
		}
		return fmt.Errorf("%w: paused", ErrInterrupted)
	}
	return nil
}

// errorLine formats one structured error_log entry: timestamp, stage, cause.
func errorLine(stage, cause string) string {
	return fmt.Sprintf("%s [%s] %s", time.Now().UTC().Format(time.RFC3339), stage, cause)
}
