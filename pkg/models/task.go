// Package models contains shared data models used across the textsync codebase.
package models

import "time"

// Task statuses. A task is claimed from new/resync/paused, runs as in_progress
// and ends in completed, error or cancelled. archived is set externally.
const (
	TaskStatusNew        = "new"
	TaskStatusInProgress = "in_progress"
	TaskStatusPaused     = "paused"
	TaskStatusResync     = "resync"
	TaskStatusCompleted  = "completed"
	TaskStatusError      = "error"
	TaskStatusCancelled  = "cancelled"
	TaskStatusArchived   = "archived"
)

// Sync stages, advancing strictly forward within one reconciliation pass.
const (
	StageInit    = "init"
	StageFetch   = "fetch"
	StageCompare = "compare"
	StageUpdate  = "update"
	StageVerify  = "verify"
	StageDone    = "done"
)

// Task is one synchronization/processing job over a single source table+column.
type Task struct {
	ID               int64      `db:"id_task"                json:"id_task"`
	UserID           int64      `db:"id_user"                json:"id_user"`
	ConnectionID     int64      `db:"id_database_connection" json:"id_database_connection"`
	AIModelID        *int64     `db:"id_ai_model"            json:"id_ai_model,omitempty"`
	Name             string     `db:"name"                   json:"name"`
	Description      string     `db:"description"            json:"description"`
	TableName        string     `db:"table_name"             json:"table_name"`
	IDColumnName     string     `db:"id_column_name"         json:"id_column_name"`
	ColumnName       string     `db:"column_name"            json:"column_name"`
	HashMethod       string     `db:"hash_method"            json:"hash_method"`
	Status           string     `db:"status"                 json:"status"`
	SyncStage        string     `db:"sync_stage"             json:"sync_stage"`
	SyncProgress     float64    `db:"sync_progress"          json:"sync_progress"`
	RecordsTotal     int64      `db:"records_total"          json:"records_total"`
	RecordsFetched   int64      `db:"records_fetched"        json:"records_fetched"`
	RecordsProcessed int64      `db:"records_processed"      json:"records_processed"`
	RecordsNew       int64      `db:"records_new"            json:"records_new"`
	RecordsUpdated   int64      `db:"records_updated"        json:"records_updated"`
	RecordsDeleted   int64      `db:"records_deleted"        json:"records_deleted"`
	RecordsApproved  int64      `db:"records_approved"       json:"records_approved"`
	RecordsRejected  int64      `db:"records_rejected"       json:"records_rejected"`
	RecordsExported  int64      `db:"records_exported"       json:"records_exported"`
	LastProcessedID  int64      `db:"last_processed_id"      json:"last_processed_id"`
	ResumeMarker     string     `db:"resume_marker"          json:"resume_marker"`
	StartedAt        *time.Time `db:"started_at"             json:"started_at,omitempty"`
	FinishedAt       *time.Time `db:"finished_at"            json:"finished_at,omitempty"`
	TotalTimeMs      int64      `db:"total_time_ms"          json:"total_time_ms"`
	ErrorLog         string     `db:"error_log"              json:"error_log"`
	CreatedAt        time.Time  `db:"created_at"             json:"created_at"`
}

// IsTerminal reports whether the task status admits no further engine work.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusArchived:
		return true
	}
	return false
}
