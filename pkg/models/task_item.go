package models

import (
	"time"

	"github.com/google/uuid"
)

// Task item statuses. pending items are the AI pipeline's input; accepted and
// exported are set by the approval UI and are never overwritten by a resync.
const (
	ItemStatusPending   = "pending"
	ItemStatusProcessed = "processed"
	ItemStatusAccepted  = "accepted"
	ItemStatusRejected  = "rejected"
	ItemStatusExported  = "exported"
	ItemStatusConflict  = "conflict"
	ItemStatusOutdated  = "outdated"
	ItemStatusTooLong1  = "too_long_1"
	ItemStatusTooLong2  = "too_long_2"
)

// TaskItem is one remote record's local shadow copy and its processing state,
// unique per (id_task, remote_id).
type TaskItem struct {
	ID              int64      `db:"id_task_item"     json:"id_task_item"`
	TaskID          int64      `db:"id_task"          json:"id_task"`
	RemoteID        int64      `db:"remote_id"        json:"remote_id"`
	TextOriginal    string     `db:"text_original"    json:"text_original"`
	TextCorrected   *string    `db:"text_corrected"   json:"text_corrected,omitempty"`
	ChangeSummary   *string    `db:"change_summary"   json:"change_summary,omitempty"`
	OriginalHash    string     `db:"original_hash"    json:"original_hash"`
	LocalHash       string     `db:"local_hash"       json:"local_hash"`
	IsChanged       bool       `db:"is_changed"       json:"is_changed"`
	Status          string     `db:"status"           json:"status"`
	SimilarityScore *float64   `db:"similarity_score" json:"similarity_score,omitempty"`
	TokensInput     int64      `db:"tokens_input"     json:"tokens_input"`
	TokensOutput    int64      `db:"tokens_output"    json:"tokens_output"`
	CostUSD         float64    `db:"cost_usd"         json:"cost_usd"`
	AIModel         *string    `db:"ai_model"         json:"ai_model,omitempty"`
	FinishReason    *string    `db:"finish_reason"    json:"finish_reason,omitempty"`
	OperationUUID   *uuid.UUID `db:"operation_uuid"   json:"operation_uuid,omitempty"`
	FetchedAt       time.Time  `db:"fetched_at"       json:"fetched_at"`
	VerifiedAt      *time.Time `db:"verified_at"      json:"verified_at,omitempty"`
	ProcessedAt     *time.Time `db:"processed_at"     json:"processed_at,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at"      json:"approved_at,omitempty"`
}

// IsApproved reports whether the item carries user-approved content that a
// later source change must not overwrite.
func (i *TaskItem) IsApproved() bool {
	return i.Status == ItemStatusAccepted || i.Status == ItemStatusExported
}
