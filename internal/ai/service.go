package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mkrawiec/textsync/internal/config"
	"github.com/mkrawiec/textsync/internal/store"
	"github.com/mkrawiec/textsync/pkg/models"
)

// Result summarizes one pipeline run over a task.
type Result struct {
	Processed   int
	TooLong     int
	LeftPending int
}

// itemOutcome is what happened to a single item.
type itemOutcome int

const (
	outcomeProcessed itemOutcome = iota
	outcomeTooLong
	outcomeLeftPending
	// outcomeSkipped means a concurrent worker resolved the item first; its
	// write carries the counters, so this run records nothing.
	outcomeSkipped
)

// ProviderFactory builds a Provider from a stored model row; injectable for
// tests.
type ProviderFactory func(model *models.AIModel, timeout time.Duration) (models.Provider, error)

// Pipeline feeds pending task items to the task's AI model, one call per
// item, and persists output, token usage and cost per item.
type Pipeline struct {
	store    store.Store
	logger   *slog.Logger
	cfg      config.AIConfig
	maxItems int
	dryRun   bool
	factory  ProviderFactory
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProviderFactory replaces the default provider construction.
func WithProviderFactory(f ProviderFactory) Option {
	return func(p *Pipeline) { p.factory = f }
}

// WithDryRun suppresses provider calls and all local writes.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dryRun = dry }
}

// WithMaxItems overrides the per-run item cap.
func WithMaxItems(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxItems = n
		}
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(st store.Store, cfg config.AIConfig, maxItems int, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		cfg:      cfg,
		maxItems: maxItems,
		logger:   logger,
		factory:  NewProvider,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessTask runs one AI batch over the task's oldest pending items. A
// returned error is either ErrInterrupted or a permanent failure that must
// move the task to error; transient per-item failures only annotate the
// task's error log and leave the item pending.
func (p *Pipeline) ProcessTask(ctx context.Context, task *models.Task) (Result, error) {
	var res Result
	log := p.logger.With("task", task.ID)

	model, provider, err := p.modelProvider(ctx, task)
	if err != nil {
		return res, err
	}

	items, err := p.store.ListPendingItems(ctx, task.ID, p.maxItems)
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		return res, nil
	}
	log.Info("ai batch started", "items", len(items), "provider", provider.Name(), "model", model.ModelName)

	for _, item := range items {
		if err := p.checkInterrupted(ctx, task.ID); err != nil {
			return res, err
		}
		outcome, err := p.runItem(ctx, task, model, provider, item)
		if err != nil {
			return res, err
		}
		switch outcome {
		case outcomeProcessed:
			res.Processed++
			task.RecordsProcessed++
		case outcomeTooLong:
			res.TooLong++
		case outcomeLeftPending:
			res.LeftPending++
		}
	}
	return res, nil
}

// ProcessItem runs the pipeline for exactly one pending item.
func (p *Pipeline) ProcessItem(ctx context.Context, task *models.Task, itemID int64) error {
	item, err := p.store.GetItem(ctx, task.ID, itemID)
	if err != nil {
		return err
	}
	if item.Status != models.ItemStatusPending {
		return fmt.Errorf("item %d is %s, not pending", itemID, item.Status)
	}

	model, provider, err := p.modelProvider(ctx, task)
	if err != nil {
		return err
	}

	outcome, err := p.runItem(ctx, task, model, provider, item)
	if err != nil {
		return err
	}
	switch outcome {
	case outcomeTooLong:
		return fmt.Errorf("item %d exceeds the model's input limit", itemID)
	case outcomeLeftPending:
		return fmt.Errorf("item %d left pending after %d attempts", itemID, p.cfg.MaxAttempts)
	}
	return nil
}

func (p *Pipeline) modelProvider(ctx context.Context, task *models.Task) (*models.AIModel, models.Provider, error) {
	if task.AIModelID == nil {
		return nil, nil, fmt.Errorf("task %d: %w", task.ID, ErrNoModel)
	}
	model, err := p.store.GetAIModel(ctx, *task.AIModelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("task %d: model %d inactive or missing: %w", task.ID, *task.AIModelID, ErrNoModel)
	}
	if err != nil {
		return nil, nil, err
	}
	provider, err := p.factory(model, p.cfg.RequestTimeout)
	if err != nil {
		return nil, nil, err
	}
	return model, provider, nil
}

// runItem processes one item end to end. The returned error is reserved for
// permanent failures; everything else resolves to an outcome.
func (p *Pipeline) runItem(ctx context.Context, task *models.Task, model *models.AIModel, provider models.Provider, item *models.TaskItem) (itemOutcome, error) {
	log := p.logger.With("task", task.ID, "item", item.ID, "remote_id", item.RemoteID)

	if model.MaxCharInput > 0 && int64(len([]rune(item.TextOriginal))) > model.MaxCharInput {
		return p.markTooLong(ctx, item, models.ItemStatusTooLong1, log)
	}
	prompt := BuildPrompt(task.Description, item.TextOriginal)
	if PromptTooLong(prompt) {
		return p.markTooLong(ctx, item, models.ItemStatusTooLong2, log)
	}

	if p.dryRun {
		log.Info("dry run: would send item to provider", "chars", len(item.TextOriginal))
		return outcomeProcessed, nil
	}

	completion, err := p.complete(ctx, provider, prompt)
	if err != nil {
		if !models.IsTransient(err) {
			return 0, fmt.Errorf("item %d: %w", item.ID, err)
		}
		return p.leavePending(ctx, task.ID, item.ID, err, log)
	}

	corr, err := ParseCorrection(completion.Text)
	if err != nil {
		// Malformed output is left for a later run; the model may answer
		// correctly next time.
		return p.leavePending(ctx, task.ID, item.ID, err, log)
	}

	upd := store.ProcessedUpdate{
		TextCorrected:   corr.Corrected,
		ChangeSummary:   corr.Summary,
		SimilarityScore: Similarity(item.TextOriginal, corr.Corrected),
		TokensInput:     completion.TokensInput,
		TokensOutput:    completion.TokensOutput,
		CostUSD:         model.Cost(completion.TokensInput, completion.TokensOutput),
		AIModel:         completionModel(completion, model),
		FinishReason:    completion.FinishReason,
		OperationUUID:   uuid.New(),
		ProcessedAt:     time.Now().UTC(),
	}
	err = p.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.MarkItemProcessed(ctx, item.ID, upd); err != nil {
			return err
		}
		return tx.AddTaskCounters(ctx, task.ID, store.CounterDeltas{Processed: 1})
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("item no longer pending, result discarded")
		return outcomeSkipped, nil
	}
	if err != nil {
		return 0, fmt.Errorf("persist item %d result: %w", item.ID, err)
	}

	log.Debug("item processed",
		"similarity", upd.SimilarityScore, "tokens_in", upd.TokensInput,
		"tokens_out", upd.TokensOutput, "cost_usd", upd.CostUSD)
	return outcomeProcessed, nil
}

func (p *Pipeline) markTooLong(ctx context.Context, item *models.TaskItem, status string, log *slog.Logger) (itemOutcome, error) {
	log.Warn("item exceeds length limit", "status", status, "chars", len(item.TextOriginal))
	if p.dryRun {
		return outcomeTooLong, nil
	}
	if err := p.store.MarkItemTooLong(ctx, item.ID, status, uuid.New()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return outcomeSkipped, nil
		}
		return 0, err
	}
	return outcomeTooLong, nil
}

// leavePending annotates the task's error log and keeps the item pending so
// a later run retries it.
func (p *Pipeline) leavePending(ctx context.Context, taskID, itemID int64, cause error, log *slog.Logger) (itemOutcome, error) {
	log.Warn("item left pending", "error", cause)
	line := fmt.Sprintf("%s [process] item %d: %v", time.Now().UTC().Format(time.RFC3339), itemID, cause)
	if err := p.store.AppendTaskError(ctx, taskID, line); err != nil {
		return 0, err
	}
	return outcomeLeftPending, nil
}

// complete calls the provider, retrying transient failures with exponential
// backoff up to the configured attempt budget.
func (p *Pipeline) complete(ctx context.Context, provider models.Provider, prompt string) (models.Completion, error) {
	var out models.Completion
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		c, err := provider.Complete(callCtx, prompt)
		if err != nil {
			if !models.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = c
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialBackoff
	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(p.cfg.MaxAttempts-1)), ctx))
	return out, err
}

// checkInterrupted stops the pipeline between items when an external actor
// cancelled or paused the task.
func (p *Pipeline) checkInterrupted(ctx context.Context, taskID int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	status, err := p.store.GetTaskStatus(ctx, taskID)
	if err != nil {
		return err
	}
	if status == models.TaskStatusCancelled || status == models.TaskStatusPaused {
		return fmt.Errorf("%w: task %s", ErrInterrupted, status)
	}
	return nil
}

func completionModel(c models.Completion, m *models.AIModel) string {
	if c.Model != "" {
		return c.Model
	}
	return m.ModelName
}
