package intervention

import (
	"fmt"
	"strings"
	"time"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    apperror.Kind
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return &apperror.Error{Kind: r.Kind, Message: r.Reason}
}

func allow() GuardResult {
	return GuardResult{Allowed: true}
}

func deny(kind apperror.Kind, format string, args ...interface{}) GuardResult {
	return GuardResult{Allowed: false, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// TransitionContext provides context for lifecycle transition guards.
type TransitionContext struct {
	InterventionID uint
	Operation      Operation
	Status         models.InterventionStatus
	ActorRole      models.Role
	ActorAssigned  bool
}

// CanTransition evaluates whether the actor may apply the operation.
// Rules:
// - Terminal interventions accept no operation
// - The current status must be a legal source for the operation
// - begin, resolve: admin or assigned technician
// - pause, resume: assigned technician
// - cancel, deny, approve: admin
func CanTransition(ctx TransitionContext) GuardResult {
	if _, ok := rules[ctx.Operation]; !ok {
		return deny(apperror.KindValidation, "unknown operation %q", ctx.Operation)
	}

	if ctx.Status.IsTerminal() {
		return deny(apperror.KindInvalidTransition,
			"intervention %d is %s and cannot be changed", ctx.InterventionID, ctx.Status)
	}

	if !Allows(ctx.Operation, ctx.Status) {
		return deny(apperror.KindInvalidTransition,
			"cannot %s intervention %d from status %s", ctx.Operation, ctx.InterventionID, ctx.Status)
	}

	assignedTech := ctx.ActorRole == models.RoleTechnician && ctx.ActorAssigned

	switch ctx.Operation {
	case OpBegin, OpResolve:
		if ctx.ActorRole != models.RoleAdmin && !assignedTech {
			return deny(apperror.KindForbidden,
				"only an admin or an assigned technician can %s intervention %d", ctx.Operation, ctx.InterventionID)
		}
	case OpPause, OpResume:
		if !assignedTech {
			return deny(apperror.KindForbidden,
				"only an assigned technician can %s intervention %d", ctx.Operation, ctx.InterventionID)
		}
	case OpCancel, OpDeny, OpApprove:
		if ctx.ActorRole != models.RoleAdmin {
			return deny(apperror.KindForbidden,
				"only an admin can %s intervention %d", ctx.Operation, ctx.InterventionID)
		}
	}

	return allow()
}

// CreateContext provides context for reactive intervention creation.
type CreateContext struct {
	Description string
	Priority    string
	LocationID  uint
}

// CanCreate validates the required fields of a new intervention.
// Existence of the location and equipment is checked by the caller.
func CanCreate(ctx CreateContext) GuardResult {
	if strings.TrimSpace(ctx.Description) == "" {
		return deny(apperror.KindValidation, "description is required")
	}
	if ctx.Priority == "" {
		return deny(apperror.KindValidation, "priority is required")
	}
	if _, ok := models.ParsePriority(ctx.Priority); !ok {
		return deny(apperror.KindValidation, "invalid priority %q", ctx.Priority)
	}
	if ctx.LocationID == 0 {
		return deny(apperror.KindValidation, "locationId is required")
	}
	return allow()
}

// PlanifyContext provides context for preventive intervention planning.
type PlanifyContext struct {
	Description        string
	Priority           string // empty defaults to MEDIUM
	LocationID         uint
	PlannedAt          *time.Time
	IsRecurring        *bool
	RecurrenceInterval *int
	Assignees          []uint
}

// CanPlanify validates a preventive intervention request.
// Rules:
// - description, locationId, plannedAt and isRecurring are required
// - recurrenceInterval is required and positive when recurring, absent otherwise
// - at least one assignee
func CanPlanify(ctx PlanifyContext) GuardResult {
	if strings.TrimSpace(ctx.Description) == "" {
		return deny(apperror.KindValidation, "description is required")
	}
	if ctx.Priority != "" {
		if _, ok := models.ParsePriority(ctx.Priority); !ok {
			return deny(apperror.KindValidation, "invalid priority %q", ctx.Priority)
		}
	}
	if ctx.LocationID == 0 {
		return deny(apperror.KindValidation, "locationId is required")
	}
	if ctx.PlannedAt == nil || ctx.PlannedAt.IsZero() {
		return deny(apperror.KindValidation, "plannedAt is required")
	}
	if ctx.IsRecurring == nil {
		return deny(apperror.KindValidation, "isRecurring is required")
	}
	if *ctx.IsRecurring {
		if ctx.RecurrenceInterval == nil {
			return deny(apperror.KindValidation, "recurrenceInterval is required for recurring interventions")
		}
		if *ctx.RecurrenceInterval <= 0 {
			return deny(apperror.KindValidation, "recurrenceInterval must be a positive number of days")
		}
	} else if ctx.RecurrenceInterval != nil {
		return deny(apperror.KindValidation, "recurrenceInterval is only allowed for recurring interventions")
	}
	if len(ctx.Assignees) == 0 {
		return deny(apperror.KindValidation, "at least one assignee is required")
	}
	for _, id := range ctx.Assignees {
		if id == 0 {
			return deny(apperror.KindValidation, "assignee ids must be positive")
		}
	}
	return allow()
}

// CanDelete evaluates whether the actor may delete an intervention.
func CanDelete(interventionID uint, role models.Role) GuardResult {
	if role != models.RoleAdmin {
		return deny(apperror.KindForbidden, "only an admin can delete intervention %d", interventionID)
	}
	return allow()
}

// ViewContext provides context for read access to a single intervention.
type ViewContext struct {
	InterventionID uint
	ActorID        uint
	ActorRole      models.Role
	ReportedByID   uint
	ActorAssigned  bool
}

// CanView applies the row filter of the list views to a single intervention:
// admins see everything, technicians their assignments, users their reports.
func CanView(ctx ViewContext) GuardResult {
	switch ctx.ActorRole {
	case models.RoleAdmin:
		return allow()
	case models.RoleTechnician:
		if ctx.ActorAssigned || ctx.ReportedByID == ctx.ActorID {
			return allow()
		}
	case models.RoleUser:
		if ctx.ReportedByID == ctx.ActorID {
			return allow()
		}
	}
	return deny(apperror.KindForbidden, "you do not have access to intervention %d", ctx.InterventionID)
}
