package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mkrawiec/textsync/internal/source"
	"github.com/mkrawiec/textsync/internal/store"
	textsync "github.com/mkrawiec/textsync/internal/sync"
	"github.com/mkrawiec/textsync/pkg/models"
)

// Progress bands per stage. Each stage moves the percentage within its band
// so a reader of the task row can tell how far a pass has come.
const (
	progressInit    = 5
	progressFetch   = 40
	progressCompare = 70
	progressUpdate  = 90
	progressVerify  = 98
	progressDone    = 100
)

// syncRun is the per-pass state of one reconciliation.
type syncRun struct {
	engine *Engine
	task   *models.Task
	src    source.Source
	log    *slog.Logger

	maxKey int64
}

// drive advances the task stage by stage until done. Every stage persists
// its own watermarks, so a crash or interruption resumes mid-stage.
func (r *syncRun) drive(ctx context.Context) error {
	for {
		if err := r.engine.checkInterrupted(ctx, r.task); err != nil {
			return err
		}

		var err error
		switch r.task.SyncStage {
		case models.StageInit:
			err = r.stageInit(ctx)
		case models.StageFetch:
			err = r.stageFetch(ctx)
		case models.StageCompare:
			err = r.stageCompare(ctx)
		case models.StageUpdate:
			err = r.stageUpdate(ctx)
		case models.StageVerify:
			err = r.stageVerify(ctx)
		case models.StageDone:
			return nil
		default:
			err = fmt.Errorf("unknown sync stage %q", r.task.SyncStage)
		}
		if err != nil {
			return err
		}
	}
}

// advance persists the stage transition and mirrors it on the in-memory task.
func (r *syncRun) advance(ctx context.Context, stage string, progress float64, opts ...store.TaskUpdateOption) error {
	r.task.SyncStage = stage
	r.task.SyncProgress = progress
	if r.engine.dryRun {
		return nil
	}
	return r.engine.store.UpdateTaskStage(ctx, r.task.ID, stage, progress, opts...)
}

// stageInit validates the remote schema, counts the source rows and resets
// the pass watermarks. Every fresh pass starts here; resumed passes skip it.
func (r *syncRun) stageInit(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.engine.cfg.SourceTimeout)
	defer cancel()

	if err := r.src.DescribeSchema(probeCtx, r.task.TableName, r.task.IDColumnName, r.task.ColumnName); err != nil {
		return fmt.Errorf("schema check %s.%s: %w", r.task.TableName, r.task.ColumnName, err)
	}
	total, err := r.src.CountRows(probeCtx, r.task.TableName)
	if err != nil {
		return fmt.Errorf("count source rows: %w", err)
	}

	now := time.Now().UTC()
	r.task.RecordsTotal = total
	r.task.LastProcessedID = 0
	r.task.ResumeMarker = ""
	r.task.StartedAt = &now
	r.task.FinishedAt = nil
	r.log.Info("pass started", "records_total", total)

	return r.advance(ctx, models.StageFetch, progressInit,
		store.WithRecordsTotal(total),
		store.WithLastProcessedID(0),
		store.WithResumeMarker(""),
		store.WithCycleStart(now))
}

// stageFetch pulls remote pages above the last_processed_id watermark,
// inserts unseen rows and refreshes the local hash of known ones. One page
// is one transaction, so a crash loses at most the page in flight.
func (r *syncRun) stageFetch(ctx context.Context) error {
	if r.maxKey == 0 {
		keyCtx, cancel := context.WithTimeout(ctx, r.engine.cfg.SourceTimeout)
		maxKey, err := r.src.MaxKey(keyCtx, r.task.TableName, r.task.IDColumnName)
		cancel()
		if err != nil {
			return fmt.Errorf("read max key: %w", err)
		}
		r.maxKey = maxKey
	}

	for {
		if err := r.engine.checkInterrupted(ctx, r.task); err != nil {
			return err
		}

		pageCtx, cancel := context.WithTimeout(ctx, r.engine.cfg.SourceTimeout)
		rows, err := r.src.FetchPage(pageCtx, r.task.TableName, r.task.IDColumnName, r.task.ColumnName,
			r.task.LastProcessedID, r.engine.cfg.BatchSize)
		cancel()
		if err != nil {
			return fmt.Errorf("fetch page after id %d: %w", r.task.LastProcessedID, err)
		}
		if len(rows) == 0 {
			break
		}

		if err := r.ingestPage(ctx, rows); err != nil {
			return err
		}
		if len(rows) < r.engine.cfg.BatchSize {
			break
		}
	}

	return r.advance(ctx, models.StageCompare, progressFetch, store.WithResumeMarker(""))
}

// ingestPage classifies one remote page against the local mirror and commits
// items, counters and the advanced watermark atomically.
func (r *syncRun) ingestPage(ctx context.Context, rows []source.Row) error {
	remoteIDs := make([]int64, len(rows))
	for i, row := range rows {
		remoteIDs[i] = row.RemoteID
	}
	lastKey := remoteIDs[len(remoteIDs)-1]

	existing, err := r.engine.store.GetItemsByRemoteIDs(ctx, r.task.ID, remoteIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	deltas := store.CounterDeltas{Fetched: int64(len(rows))}

	if r.engine.dryRun {
		for _, row := range rows {
			if _, ok := existing[row.RemoteID]; !ok {
				deltas.New++
			}
		}
		r.task.LastProcessedID = lastKey
		r.task.RecordsNew += deltas.New
		r.log.Info("dry run: page scanned", "rows", len(rows), "new", deltas.New, "last_id", lastKey)
		return nil
	}

	err = r.engine.store.WithTx(ctx, func(tx store.Store) error {
		for _, row := range rows {
			hash := textsync.HashText(row.Text, r.task.HashMethod)
			item, ok := existing[row.RemoteID]
			if !ok {
				deltas.New++
				if err := tx.InsertItem(ctx, &models.TaskItem{
					TaskID:       r.task.ID,
					RemoteID:     row.RemoteID,
					TextOriginal: row.Text,
					OriginalHash: hash,
					LocalHash:    hash,
					Status:       models.ItemStatusPending,
					FetchedAt:    now,
				}); err != nil {
					return fmt.Errorf("insert item remote_id %d: %w", row.RemoteID, err)
				}
				continue
			}
			if item.Status == models.ItemStatusOutdated {
				// A removed row that reappears in the source returns to the
				// pending pool with whatever text it carries now.
				deltas.Updated++
				if err := tx.ResetItemOriginal(ctx, item.ID, row.Text, hash, now); err != nil {
					return fmt.Errorf("revive item %d: %w", item.ID, err)
				}
				continue
			}
			if err := tx.TouchItemVerified(ctx, item.ID, hash, now); err != nil {
				return fmt.Errorf("touch item %d: %w", item.ID, err)
			}
		}
		if err := tx.AddTaskCounters(ctx, r.task.ID, deltas); err != nil {
			return err
		}
		return tx.UpdateTaskStage(ctx, r.task.ID, models.StageFetch, r.fetchProgress(lastKey),
			store.WithLastProcessedID(lastKey))
	})
	if err != nil {
		return err
	}

	r.task.LastProcessedID = lastKey
	r.task.RecordsFetched += deltas.Fetched
	r.task.RecordsNew += deltas.New
	r.task.RecordsUpdated += deltas.Updated
	r.task.SyncProgress = r.fetchProgress(lastKey)
	r.log.Debug("page ingested", "rows", len(rows), "new", deltas.New, "last_id", lastKey)
	return nil
}

// fetchProgress maps the key watermark onto the fetch band. Keyset position
// is monotone across crashes, unlike a per-run row counter.
func (r *syncRun) fetchProgress(lastKey int64) float64 {
	if r.maxKey <= 0 {
		return progressFetch
	}
	p := progressInit + float64(progressFetch-progressInit)*float64(lastKey)/float64(r.maxKey)
	if p > progressFetch {
		p = progressFetch
	}
	return p
}

// stageCompare walks the local mirror and derives each item's change state
// from the persisted hashes. Approved items whose source text moved become
// conflicts instead of being flagged for overwrite.
func (r *syncRun) stageCompare(ctx context.Context) error {
	total, err := r.engine.store.CountItems(ctx, r.task.ID)
	if err != nil {
		return err
	}

	var seen int64
	marker := parseMarker(r.task.ResumeMarker)
	for {
		if err := r.engine.checkInterrupted(ctx, r.task); err != nil {
			return err
		}

		items, err := r.engine.store.ListItems(ctx, r.task.ID, marker, r.engine.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}
		marker = items[len(items)-1].ID
		seen += int64(len(items))
		progress := bandProgress(progressFetch, progressCompare, seen, total)

		if r.engine.dryRun {
			for _, item := range items {
				switch textsync.Classify(item, item.LocalHash) {
				case textsync.ClassModified:
					r.log.Info("dry run: item changed at source", "item", item.ID, "remote_id", item.RemoteID)
				case textsync.ClassConflict:
					r.log.Info("dry run: approved item changed at source", "item", item.ID, "remote_id", item.RemoteID)
				}
			}
			continue
		}

		err = r.engine.store.WithTx(ctx, func(tx store.Store) error {
			for _, item := range items {
				switch textsync.Classify(item, item.LocalHash) {
				case textsync.ClassUnchanged:
					if item.IsChanged {
						if err := tx.SetItemChanged(ctx, item.ID, false); err != nil {
							return err
						}
					}
				case textsync.ClassModified:
					if !item.IsChanged {
						if err := tx.SetItemChanged(ctx, item.ID, true); err != nil {
							return err
						}
					}
				case textsync.ClassConflict:
					if item.Status != models.ItemStatusConflict {
						if err := tx.MarkItemConflict(ctx, item.ID, item.LocalHash); err != nil {
							return err
						}
					}
				}
			}
			return tx.UpdateTaskStage(ctx, r.task.ID, models.StageCompare, progress,
				store.WithResumeMarker(formatMarker(marker)))
		})
		if err != nil {
			return err
		}
		r.task.ResumeMarker = formatMarker(marker)
		r.task.SyncProgress = progress

		if len(items) < r.engine.cfg.BatchSize {
			break
		}
	}

	return r.advance(ctx, models.StageUpdate, progressCompare, store.WithResumeMarker(""))
}

// stageUpdate re-reads the source text of every flagged item and replaces
// the local copy, resetting it for a fresh AI pass. Items whose remote text
// moved back to the known hash are simply unflagged.
func (r *syncRun) stageUpdate(ctx context.Context) error {
	total, err := r.engine.store.CountItems(ctx, r.task.ID)
	if err != nil {
		return err
	}

	var seen int64
	marker := parseMarker(r.task.ResumeMarker)
	for {
		if err := r.engine.checkInterrupted(ctx, r.task); err != nil {
			return err
		}

		items, err := r.engine.store.ListChangedItems(ctx, r.task.ID, marker, r.engine.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}
		marker = items[len(items)-1].ID
		seen += int64(len(items))
		progress := bandProgress(progressCompare, progressUpdate, seen, total)

		byRemote := make(map[int64]*models.TaskItem, len(items))
		keys := make([]int64, len(items))
		for i, item := range items {
			keys[i] = item.RemoteID
			byRemote[item.RemoteID] = item
		}

		fetchCtx, cancel := context.WithTimeout(ctx, r.engine.cfg.SourceTimeout)
		rows, err := r.src.FetchByKeys(fetchCtx, r.task.TableName, r.task.IDColumnName, r.task.ColumnName, keys)
		cancel()
		if err != nil {
			return fmt.Errorf("refetch %d changed rows: %w", len(keys), err)
		}

		if r.engine.dryRun {
			r.log.Info("dry run: would refresh items", "count", len(rows))
			continue
		}

		now := time.Now().UTC()
		deltas := store.CounterDeltas{}
		err = r.engine.store.WithTx(ctx, func(tx store.Store) error {
			for _, row := range rows {
				item, ok := byRemote[row.RemoteID]
				if !ok {
					continue
				}
				hash := textsync.HashText(row.Text, r.task.HashMethod)
				if hash == item.OriginalHash {
					if err := tx.SetItemChanged(ctx, item.ID, false); err != nil {
						return err
					}
					continue
				}
				deltas.Updated++
				if err := tx.ResetItemOriginal(ctx, item.ID, row.Text, hash, now); err != nil {
					return fmt.Errorf("reset item %d: %w", item.ID, err)
				}
			}
			if !deltas.IsZero() {
				if err := tx.AddTaskCounters(ctx, r.task.ID, deltas); err != nil {
					return err
				}
			}
			return tx.UpdateTaskStage(ctx, r.task.ID, models.StageUpdate, progress,
				store.WithResumeMarker(formatMarker(marker)))
		})
		if err != nil {
			return err
		}
		r.task.ResumeMarker = formatMarker(marker)
		r.task.RecordsUpdated += deltas.Updated
		r.task.SyncProgress = progress

		if len(items) < r.engine.cfg.BatchSize {
			break
		}
	}

	return r.advance(ctx, models.StageVerify, progressUpdate, store.WithResumeMarker(""))
}

// stageVerify sweeps items the pass never saw into outdated and snaps
// records_fetched to the live mirror size.
func (r *syncRun) stageVerify(ctx context.Context) error {
	if r.task.StartedAt == nil {
		return errors.New("verify without a pass start timestamp")
	}

	if r.engine.dryRun {
		r.log.Info("dry run: skipping outdated sweep")
		return r.advance(ctx, models.StageDone, progressDone)
	}

	outdated, err := r.engine.store.MarkItemsOutdatedBefore(ctx, r.task.ID, *r.task.StartedAt)
	if err != nil {
		return fmt.Errorf("sweep outdated items: %w", err)
	}
	if outdated > 0 {
		if err := r.engine.store.AddTaskCounters(ctx, r.task.ID,
			store.CounterDeltas{Deleted: outdated}); err != nil {
			return err
		}
		r.task.RecordsDeleted += outdated
		r.log.Info("items outdated", "count", outdated)
	}

	counts, err := r.engine.store.CountItemsByStatus(ctx, r.task.ID)
	if err != nil {
		return err
	}
	var live int64
	for status, n := range counts {
		if status != models.ItemStatusOutdated {
			live += n
		}
	}
	r.task.RecordsFetched = live

	if err := r.advance(ctx, models.StageVerify, progressVerify,
		store.WithRecordsFetched(live)); err != nil {
		return err
	}
	return r.advance(ctx, models.StageDone, progressDone)
}

// bandProgress maps seen/total onto the (from, to] progress band.
func bandProgress(from, to float64, seen, total int64) float64 {
	if total <= 0 || seen >= total {
		return to
	}
	return from + (to-from)*float64(seen)/float64(total)
}

func parseMarker(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func formatMarker(id int64) string {
	return strconv.FormatInt(id, 10)
}
