package sync

import "github.com/mkrawiec/textsync/pkg/models"

// Classification is the change detector's verdict for one remote row.
type Classification int

const (
	// ClassNew: no local shadow copy exists yet.
	ClassNew Classification = iota
	// ClassUnchanged: local original hash matches the remote content.
	ClassUnchanged
	// ClassModified: remote content diverged and the local item carries no
	// user-approved edit; the mirror may be overwritten.
	ClassModified
	// ClassConflict: remote content diverged but the item was accepted or
	// exported; approved content is never silently overwritten.
	ClassConflict
)

func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassUnchanged:
		return "unchanged"
	case ClassModified:
		return "modified"
	case ClassConflict:
		return "conflict"
	}
	return "unknown"
}

// Classify compares a freshly hashed remote row against its local shadow
// copy. existing is nil when the remote_id has never been seen. Comparison
// is by hash equality only; full text never travels twice.
func Classify(existing *models.TaskItem, remoteHash string) Classification {
	if existing == nil {
		return ClassNew
	}
	if existing.OriginalHash == remoteHash {
		return ClassUnchanged
	}
	if existing.IsApproved() {
		return ClassConflict
	}
	return ClassModified
}
