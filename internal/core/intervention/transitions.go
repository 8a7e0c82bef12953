// Package intervention contains the pure business rules of the intervention
// lifecycle: which status changes are legal, who may perform them, and what
// each change writes. Nothing here touches the database.
package intervention

import (
	"time"

	"github.com/esilogis/backend/internal/models"
)

// Operation names a lifecycle step.
type Operation string

const (
	OpBegin   Operation = "begin"
	OpPause   Operation = "pause"
	OpResume  Operation = "resume"
	OpResolve Operation = "resolve"
	OpCancel  Operation = "cancel"
	OpDeny    Operation = "deny"
	OpApprove Operation = "approve"
)

type rule struct {
	from []models.InterventionStatus
	to   models.InterventionStatus
}

var rules = map[Operation]rule{
	OpBegin: {
		from: []models.InterventionStatus{models.StatusPending, models.StatusApproved},
		to:   models.StatusInProgress,
	},
	OpPause: {
		from: []models.InterventionStatus{models.StatusInProgress},
		to:   models.StatusPaused,
	},
	OpResume: {
		from: []models.InterventionStatus{models.StatusPaused},
		to:   models.StatusInProgress,
	},
	OpResolve: {
		from: []models.InterventionStatus{models.StatusInProgress, models.StatusPaused},
		to:   models.StatusCompleted,
	},
	OpCancel: {
		from: []models.InterventionStatus{
			models.StatusPending, models.StatusApproved, models.StatusInProgress, models.StatusPaused,
		},
		to: models.StatusCancelled,
	},
	OpDeny: {
		from: []models.InterventionStatus{models.StatusPending, models.StatusApproved},
		to:   models.StatusDenied,
	},
	OpApprove: {
		from: []models.InterventionStatus{models.StatusPending},
		to:   models.StatusApproved,
	},
}

// Target returns the status an operation leads to.
func Target(op Operation) (models.InterventionStatus, bool) {
	r, ok := rules[op]
	return r.to, ok
}

// Allows reports whether op may be applied to an intervention in status from.
func Allows(op Operation, from models.InterventionStatus) bool {
	r, ok := rules[op]
	if !ok {
		return false
	}
	for _, s := range r.from {
		if s == from {
			return true
		}
	}
	return false
}

// OperationFor resolves a requested target status to the operation that
// reaches it from the current status. IN_PROGRESS is reached by begin from
// PENDING/APPROVED and by resume from PAUSED.
func OperationFor(from, to models.InterventionStatus) (Operation, bool) {
	switch to {
	case models.StatusInProgress:
		if from == models.StatusPaused {
			return OpResume, true
		}
		return OpBegin, true
	case models.StatusPaused:
		return OpPause, true
	case models.StatusCompleted:
		return OpResolve, true
	case models.StatusCancelled:
		return OpCancel, true
	case models.StatusDenied:
		return OpDeny, true
	case models.StatusApproved:
		return OpApprove, true
	}
	return "", false
}

// StatusTransitionResult captures the new status and the fields that change with it.
type StatusTransitionResult struct {
	NewStatus  models.InterventionStatus
	ResolvedAt *time.Time // set only when NewStatus is COMPLETED
}

// ApplyStatusTransition computes the write for a transition into newStatus.
// The caller passes now so tests control the clock.
func ApplyStatusTransition(newStatus models.InterventionStatus, now time.Time) StatusTransitionResult {
	result := StatusTransitionResult{
		NewStatus: newStatus,
	}

	if newStatus == models.StatusCompleted {
		result.ResolvedAt = &now
	}

	return result
}

// InitialStatus is the status of every newly created intervention.
func InitialStatus() models.InterventionStatus {
	return models.StatusPending
}
