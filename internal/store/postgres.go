package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkrawiec/textsync/pkg/models"
)

// DBTX is the subset of pgx operations shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore backed by a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}

// WithTx runs fn against a transaction-bound copy of the store. Inside an
// existing transaction it reuses the current one.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const taskColumns = `id_task, id_user, id_database_connection, id_ai_model, name, description,
	table_name, id_column_name, column_name, hash_method, status, sync_stage, sync_progress,
	records_total, records_fetched, records_processed, records_new, records_updated,
	records_deleted, records_approved, records_rejected, records_exported,
	last_processed_id, resume_marker, started_at, finished_at, total_time_ms, error_log, created_at`

func scanTask(row pgx.Row, extra ...any) (*models.Task, error) {
	var t models.Task
	dest := []any{
		&t.ID, &t.UserID, &t.ConnectionID, &t.AIModelID, &t.Name, &t.Description,
		&t.TableName, &t.IDColumnName, &t.ColumnName, &t.HashMethod, &t.Status, &t.SyncStage, &t.SyncProgress,
		&t.RecordsTotal, &t.RecordsFetched, &t.RecordsProcessed, &t.RecordsNew, &t.RecordsUpdated,
		&t.RecordsDeleted, &t.RecordsApproved, &t.RecordsRejected, &t.RecordsExported,
		&t.LastProcessedID, &t.ResumeMarker, &t.StartedAt, &t.FinishedAt, &t.TotalTimeMs, &t.ErrorLog, &t.CreatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Tasks ---

// ClaimNextTask atomically claims the oldest eligible task. Exactly one of
// several concurrent callers wins; the rest get ErrNotFound. The second
// return value is the status the task held before the claim, which decides
// whether a fresh pass starts or an interrupted one resumes.
func (s *PostgresStore) ClaimNextTask(ctx context.Context) (*models.Task, string, error) {
	return s.claim(ctx, `
		WITH candidate AS (
			SELECT id_task, status AS prev_status FROM task
			WHERE status IN ('new', 'resync', 'paused')
			ORDER BY created_at ASC, id_task ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE task t SET status = 'in_progress'
		FROM candidate c
		WHERE t.id_task = c.id_task AND t.status IN ('new', 'resync', 'paused')
		RETURNING `+prefixed("t.", taskColumns)+`, c.prev_status`)
}

// ClaimTask claims one specific task if it is eligible.
func (s *PostgresStore) ClaimTask(ctx context.Context, id int64) (*models.Task, string, error) {
	return s.claim(ctx, `
		WITH candidate AS (
			SELECT id_task, status AS prev_status FROM task
			WHERE id_task = $1 AND status IN ('new', 'resync', 'paused')
			FOR UPDATE SKIP LOCKED
		)
		UPDATE task t SET status = 'in_progress'
		FROM candidate c
		WHERE t.id_task = c.id_task AND t.status IN ('new', 'resync', 'paused')
		RETURNING `+prefixed("t.", taskColumns)+`, c.prev_status`, id)
}

func (s *PostgresStore) claim(ctx context.Context, query string, args ...any) (*models.Task, string, error) {
	var prev string
	t, err := scanTask(s.db.QueryRow(ctx, query, args...), &prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("claim task: %w", err)
	}
	return t, prev, nil
}

// NextEligibleTask returns the oldest claimable task without claiming it.
// Dry runs use it so inspecting a task never flips its status.
func (s *PostgresStore) NextEligibleTask(ctx context.Context) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM task
		 WHERE status IN ('new', 'resync', 'paused')
		 ORDER BY created_at ASC, id_task ASC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next eligible task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM task WHERE id_task = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTaskStatus(ctx context.Context, id int64) (string, error) {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM task WHERE id_task = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get task status: %w", err)
	}
	return status, nil
}

// NextProcessableTask returns the oldest task whose reconciliation pass is
// finished and which is still held in_progress, i.e. ready for AI processing.
// SKIP LOCKED diverts concurrent pickups of the same task; the pending-only
// predicate on the item writes keeps any residual overlap from double-writing.
func (s *PostgresStore) NextProcessableTask(ctx context.Context) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `
		WITH candidate AS (
			SELECT id_task FROM task
			WHERE status = 'in_progress' AND sync_stage = 'done'
			ORDER BY created_at ASC, id_task ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		SELECT `+prefixed("t.", taskColumns)+` FROM task t
		JOIN candidate c ON c.id_task = t.id_task`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next processable task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTaskStage(ctx context.Context, id int64, stage string, progress float64, opts ...TaskUpdateOption) error {
	params := &TaskUpdate{}
	for _, opt := range opts {
		opt(params)
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	query := `UPDATE task SET sync_stage = $2, sync_progress = $3`
	args := []any{id, stage, progress}
	argIdx := 4

	if params.LastProcessedID != nil {
		query += fmt.Sprintf(", last_processed_id = $%d", argIdx)
		args = append(args, *params.LastProcessedID)
		argIdx++
	}
	if params.ResumeMarker != nil {
		query += fmt.Sprintf(", resume_marker = $%d", argIdx)
		args = append(args, *params.ResumeMarker)
		argIdx++
	}
	if params.RecordsTotal != nil {
		query += fmt.Sprintf(", records_total = $%d", argIdx)
		args = append(args, *params.RecordsTotal)
		argIdx++
	}
	if params.RecordsFetched != nil {
		query += fmt.Sprintf(", records_fetched = $%d", argIdx)
		args = append(args, *params.RecordsFetched)
		argIdx++
	}
	if params.RecordsProcessed != nil {
		query += fmt.Sprintf(", records_processed = $%d", argIdx)
		args = append(args, *params.RecordsProcessed)
		argIdx++
	}
	if params.CycleStart != nil {
		query += fmt.Sprintf(", started_at = $%d, finished_at = NULL", argIdx)
		args = append(args, *params.CycleStart)
		argIdx++
	}

	query += " WHERE id_task = $1"

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddTaskCounters(ctx context.Context, id int64, d CounterDeltas) error {
	if d.IsZero() {
		return nil
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE task SET
			records_fetched = records_fetched + $2,
			records_processed = records_processed + $3,
			records_new = records_new + $4,
			records_updated = records_updated + $5,
			records_deleted = records_deleted + $6
		 WHERE id_task = $1`,
		id, d.Fetched, d.Processed, d.New, d.Updated, d.Deleted)
	if err != nil {
		return fmt.Errorf("add task counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendTaskError(ctx context.Context, id int64, line string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE task SET error_log = CASE
			WHEN error_log = '' THEN $2
			ELSE error_log || E'\n' || $2
		 END WHERE id_task = $1`, id, line)
	if err != nil {
		return fmt.Errorf("append task error: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinalizeTask(ctx context.Context, id int64, status string, totalTime time.Duration) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task SET status = $2, finished_at = NOW(), total_time_ms = $3
		 WHERE id_task = $1`, id, status, totalTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("finalize task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetTaskStatus(ctx context.Context, id int64, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task SET status = $2 WHERE id_task = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Reference data ---

func (s *PostgresStore) GetConnection(ctx context.Context, id int64) (*models.DatabaseConnection, error) {
	var c models.DatabaseConnection
	err := s.db.QueryRow(ctx,
		`SELECT id_database, id_user, alias, db_type, host, port, db_name, db_user, db_password, status, created_at
		 FROM database_connection WHERE id_database = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Alias, &c.DBType, &c.Host, &c.Port, &c.DBName, &c.DBUser, &c.DBPass, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) MarkConnectionError(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE database_connection SET status = 'error' WHERE id_database = $1`, id)
	if err != nil {
		return fmt.Errorf("mark connection error: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAIModel(ctx context.Context, id int64) (*models.AIModel, error) {
	var m models.AIModel
	err := s.db.QueryRow(ctx,
		`SELECT id_ai_model, id_user, provider, model_name, api_key, base_url, temperature,
		        max_tokens, max_char_input, cost_per_1k_input, cost_per_1k_output, is_active
		 FROM ai_model WHERE id_ai_model = $1 AND is_active`, id,
	).Scan(&m.ID, &m.UserID, &m.Provider, &m.ModelName, &m.APIKey, &m.BaseURL, &m.Temperature,
		&m.MaxTokens, &m.MaxCharInput, &m.CostPer1KIn, &m.CostPer1KOut, &m.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ai model: %w", err)
	}
	return &m, nil
}

// --- Task items ---

const itemColumns = `id_task_item, id_task, remote_id, text_original, text_corrected, change_summary,
	original_hash, local_hash, is_changed, status, similarity_score, tokens_input, tokens_output,
	cost_usd, ai_model, finish_reason, operation_uuid, fetched_at, verified_at, processed_at, approved_at`

func scanItem(row pgx.Row) (*models.TaskItem, error) {
	var i models.TaskItem
	err := row.Scan(
		&i.ID, &i.TaskID, &i.RemoteID, &i.TextOriginal, &i.TextCorrected, &i.ChangeSummary,
		&i.OriginalHash, &i.LocalHash, &i.IsChanged, &i.Status, &i.SimilarityScore, &i.TokensInput, &i.TokensOutput,
		&i.CostUSD, &i.AIModel, &i.FinishReason, &i.OperationUUID, &i.FetchedAt, &i.VerifiedAt, &i.ProcessedAt, &i.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *PostgresStore) scanItems(rows pgx.Rows) ([]*models.TaskItem, error) {
	defer rows.Close()
	var items []*models.TaskItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) InsertItem(ctx context.Context, item *models.TaskItem) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO task_item (id_task, remote_id, text_original, original_hash, local_hash, is_changed, status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id_task_item`,
		item.TaskID, item.RemoteID, item.TextOriginal, item.OriginalHash, item.LocalHash,
		item.IsChanged, item.Status, item.FetchedAt,
	).Scan(&item.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert task item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, taskID, itemID int64) (*models.TaskItem, error) {
	item, err := scanItem(s.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM task_item WHERE id_task = $1 AND id_task_item = $2`,
		taskID, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) GetItemsByRemoteIDs(ctx context.Context, taskID int64, remoteIDs []int64) (map[int64]*models.TaskItem, error) {
	if len(remoteIDs) == 0 {
		return map[int64]*models.TaskItem{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM task_item WHERE id_task = $1 AND remote_id = ANY($2)`,
		taskID, remoteIDs)
	if err != nil {
		return nil, fmt.Errorf("get items by remote ids: %w", err)
	}
	items, err := s.scanItems(rows)
	if err != nil {
		return nil, err
	}
	byRemote := make(map[int64]*models.TaskItem, len(items))
	for _, item := range items {
		byRemote[item.RemoteID] = item
	}
	return byRemote, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, taskID, afterID int64, limit int) ([]*models.TaskItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM task_item
		 WHERE id_task = $1 AND id_task_item > $2
		 ORDER BY id_task_item ASC LIMIT $3`, taskID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return s.scanItems(rows)
}

func (s *PostgresStore) ListChangedItems(ctx context.Context, taskID, afterID int64, limit int) ([]*models.TaskItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM task_item
		 WHERE id_task = $1 AND id_task_item > $2 AND is_changed AND status <> 'conflict'
		 ORDER BY id_task_item ASC LIMIT $3`, taskID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list changed items: %w", err)
	}
	return s.scanItems(rows)
}

func (s *PostgresStore) ListPendingItems(ctx context.Context, taskID int64, limit int) ([]*models.TaskItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM task_item
		 WHERE id_task = $1 AND status = 'pending'
		 ORDER BY fetched_at ASC, id_task_item ASC LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	return s.scanItems(rows)
}

func (s *PostgresStore) TouchItemVerified(ctx context.Context, itemID int64, localHash string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET local_hash = $2, verified_at = $3 WHERE id_task_item = $1`,
		itemID, localHash, at)
	if err != nil {
		return fmt.Errorf("touch item verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetItemChanged(ctx context.Context, itemID int64, changed bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET is_changed = $2 WHERE id_task_item = $1`, itemID, changed)
	if err != nil {
		return fmt.Errorf("set item changed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkItemConflict flags an approved item whose source changed underneath it.
// text_corrected and approved_at are deliberately left untouched.
func (s *PostgresStore) MarkItemConflict(ctx context.Context, itemID int64, localHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET status = 'conflict', is_changed = TRUE, local_hash = $2, verified_at = NOW()
		 WHERE id_task_item = $1`, itemID, localHash)
	if err != nil {
		return fmt.Errorf("mark item conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetItemOriginal overwrites the mirrored text with a newer remote version
// and returns the item to the pending pool, clearing stale AI output.
func (s *PostgresStore) ResetItemOriginal(ctx context.Context, itemID int64, text, hash string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET
			text_original = $2, original_hash = $3, local_hash = $3,
			is_changed = FALSE, status = 'pending',
			text_corrected = NULL, change_summary = NULL, similarity_score = NULL,
			processed_at = NULL, fetched_at = $4
		 WHERE id_task_item = $1`, itemID, text, hash, at)
	if err != nil {
		return fmt.Errorf("reset item original: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkItemsOutdatedBefore marks items not observed since cutoff as removed
// from the source. Approved and conflicted items keep their status so no
// user-visible history is lost.
func (s *PostgresStore) MarkItemsOutdatedBefore(ctx context.Context, taskID int64, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET status = 'outdated'
		 WHERE id_task = $1
		   AND status NOT IN ('outdated', 'conflict', 'accepted', 'exported')
		   AND fetched_at < $2
		   AND (verified_at IS NULL OR verified_at < $2)`, taskID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark items outdated: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkItemTooLong moves a pending item to a too-long status. An item another
// worker already resolved yields ErrNotFound instead of being overwritten.
func (s *PostgresStore) MarkItemTooLong(ctx context.Context, itemID int64, status string, opUUID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET status = $2, operation_uuid = $3, processed_at = NOW()
		 WHERE id_task_item = $1 AND status = 'pending'`, itemID, status, opUUID)
	if err != nil {
		return fmt.Errorf("mark item too long: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkItemProcessed writes one successful AI result. The pending-only
// predicate makes the write race-safe: when two workers race on the same
// item, exactly one update lands and the loser gets ErrNotFound.
func (s *PostgresStore) MarkItemProcessed(ctx context.Context, itemID int64, upd ProcessedUpdate) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE task_item SET
			text_corrected = $2, change_summary = $3, similarity_score = $4,
			tokens_input = $5, tokens_output = $6, cost_usd = $7,
			ai_model = $8, finish_reason = $9, operation_uuid = $10,
			processed_at = $11, status = 'processed'
		 WHERE id_task_item = $1 AND status = 'pending'`,
		itemID, upd.TextCorrected, upd.ChangeSummary, upd.SimilarityScore,
		upd.TokensInput, upd.TokensOutput, upd.CostUSD,
		upd.AIModel, upd.FinishReason, upd.OperationUUID, upd.ProcessedAt)
	if err != nil {
		return fmt.Errorf("mark item processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountItems(ctx context.Context, taskID int64) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_item WHERE id_task = $1`, taskID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountItemsByStatus(ctx context.Context, taskID int64) (map[string]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, COUNT(*) FROM task_item WHERE id_task = $1 GROUP BY status`, taskID)
	if err != nil {
		return nil, fmt.Errorf("count items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// prefixed qualifies every column in a comma-separated list with prefix.
func prefixed(prefix, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += prefix + col
	}
	return out
}

func splitColumns(columns string) []string {
	var cols []string
	cur := ""
	for _, r := range columns {
		switch r {
		case ',':
			cols = append(cols, cur)
			cur = ""
		case ' ', '\t', '\n':
			// skip
		default:
			cur += string(r)
		}
	}
	if cur != "" {
		cols = append(cols, cur)
	}
	return cols
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
