package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/core/intervention"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InterventionService owns every status and assignment change of an intervention.
// Status is never written outside transition, which performs a version
// compare-and-swap so concurrent writers surface as a conflict.
type InterventionService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewInterventionService(db *gorm.DB) *InterventionService {
	return &InterventionService{
		db:  db,
		now: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *InterventionService) WithClock(now func() time.Time) *InterventionService {
	s.now = now
	return s
}

type CreateInterventionInput struct {
	Description string
	Priority    string
	LocationID  uint
	EquipmentID *uint
}

type PlanifyInterventionInput struct {
	Description        string
	Priority           string
	LocationID         uint
	EquipmentID        *uint
	PlannedAt          *time.Time
	IsRecurring        *bool
	RecurrenceInterval *int
	Assignees          []uint
}

type ResolveInput struct {
	Action      *string
	Notes       *string
	PartsUsed   *string
	EquipmentID *uint
}

// UpdateInterventionInput carries the optional fields of a generic update.
// A non-nil Status is applied through the transition rules.
type UpdateInterventionInput struct {
	Description        *string
	Priority           *string
	LocationID         *uint
	EquipmentID        *uint
	PlannedAt          *time.Time
	IsRecurring        *bool
	RecurrenceInterval *int
	Action             *string
	Notes              *string
	PartsUsed          *string
	Status             *string
}

func (in UpdateInterventionInput) touchesPlanning() bool {
	return in.Description != nil || in.Priority != nil || in.LocationID != nil ||
		in.PlannedAt != nil || in.IsRecurring != nil || in.RecurrenceInterval != nil
}

// CreateIntervention records a reactive intervention reported by actor.
func (s *InterventionService) CreateIntervention(ctx context.Context, actor models.Actor, in CreateInterventionInput) (*models.Intervention, error) {
	if err := intervention.CanCreate(intervention.CreateContext{
		Description: in.Description,
		Priority:    in.Priority,
		LocationID:  in.LocationID,
	}).Error(); err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, in.LocationID, in.EquipmentID); err != nil {
		return nil, err
	}

	now := s.now()
	iv := models.Intervention{
		Description:  in.Description,
		Priority:     models.InterventionPriority(in.Priority),
		Status:       intervention.InitialStatus(),
		LocationID:   in.LocationID,
		EquipmentID:  in.EquipmentID,
		ReportedByID: actor.ID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&iv).Error; err != nil {
			return fmt.Errorf("failed to create intervention: %w", err)
		}
		return s.record(tx, models.InterventionUpdate{
			InterventionID: iv.ID,
			PersonID:       actor.ID,
			Type:           models.UpdateTypeCreated,
			ToStatus:       &iv.Status,
			Content:        "Intervention reported",
		})
	})
	if err != nil {
		logger.WithError(err, "intervention_service").Error("Failed to create intervention")
		return nil, apperror.Internal("failed to create intervention", err)
	}

	logger.WithIntervention(iv.ID, actor.ID).WithFields(logrus.Fields{
		"priority":    iv.Priority,
		"location_id": iv.LocationID,
	}).Info("Intervention created")

	return s.load(ctx, iv.ID)
}

// PlanifyIntervention creates a preventive intervention together with its assignments.
func (s *InterventionService) PlanifyIntervention(ctx context.Context, actor models.Actor, in PlanifyInterventionInput) (*models.Intervention, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can plan interventions")
	}

	if err := intervention.CanPlanify(intervention.PlanifyContext{
		Description:        in.Description,
		Priority:           in.Priority,
		LocationID:         in.LocationID,
		PlannedAt:          in.PlannedAt,
		IsRecurring:        in.IsRecurring,
		RecurrenceInterval: in.RecurrenceInterval,
		Assignees:          in.Assignees,
	}).Error(); err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, in.LocationID, in.EquipmentID); err != nil {
		return nil, err
	}

	assignees := uniqueIDs(in.Assignees)
	technicians, err := s.loadPersons(ctx, assignees)
	if err != nil {
		return nil, err
	}
	for _, id := range assignees {
		p, ok := technicians[id]
		if !ok {
			return nil, apperror.NotFound("technician %d not found", id)
		}
		if !p.IsTechnician() {
			return nil, apperror.Validation("person %d is not a technician", id)
		}
	}

	priority := models.PriorityMedium
	if in.Priority != "" {
		priority = models.InterventionPriority(in.Priority)
	}

	now := s.now()
	iv := models.Intervention{
		Description:        in.Description,
		Priority:           priority,
		Status:             intervention.InitialStatus(),
		LocationID:         in.LocationID,
		EquipmentID:        in.EquipmentID,
		ReportedByID:       actor.ID,
		PlannedAt:          in.PlannedAt,
		IsRecurring:        *in.IsRecurring,
		RecurrenceInterval: in.RecurrenceInterval,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&iv).Error; err != nil {
			return fmt.Errorf("failed to create intervention: %w", err)
		}
		for _, id := range assignees {
			a := models.Assignment{InterventionID: iv.ID, PersonID: id, AssignedAt: now}
			if err := tx.Create(&a).Error; err != nil {
				return fmt.Errorf("failed to assign technician %d: %w", id, err)
			}
		}
		return s.record(tx, models.InterventionUpdate{
			InterventionID: iv.ID,
			PersonID:       actor.ID,
			Type:           models.UpdateTypeCreated,
			ToStatus:       &iv.Status,
			Content:        fmt.Sprintf("Preventive intervention planned with %d technician(s)", len(assignees)),
		})
	})
	if err != nil {
		logger.WithError(err, "intervention_service").Error("Failed to plan intervention")
		return nil, apperror.Internal("failed to plan intervention", err)
	}

	logger.WithIntervention(iv.ID, actor.ID).WithFields(logrus.Fields{
		"planned_at":   iv.PlannedAt,
		"is_recurring": iv.IsRecurring,
		"assignees":    assignees,
	}).Info("Preventive intervention planned")

	return s.load(ctx, iv.ID)
}

// UpdateStatus moves an intervention to newStatus if the transition rules allow it.
func (s *InterventionService) UpdateStatus(ctx context.Context, actor models.Actor, id uint, newStatus string) (*models.Intervention, error) {
	target, ok := models.ParseStatus(newStatus)
	if !ok {
		return nil, apperror.Validation("invalid status %q", newStatus)
	}

	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	op, err := operationFor(iv, target)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, iv, op, nil)
}

func (s *InterventionService) Pause(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	return s.apply(ctx, actor, id, intervention.OpPause)
}

func (s *InterventionService) Resume(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	return s.apply(ctx, actor, id, intervention.OpResume)
}

func (s *InterventionService) Cancel(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	return s.apply(ctx, actor, id, intervention.OpCancel)
}

func (s *InterventionService) Approve(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	return s.apply(ctx, actor, id, intervention.OpApprove)
}

func (s *InterventionService) Deny(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	return s.apply(ctx, actor, id, intervention.OpDeny)
}

// ResolveIntervention completes an intervention and stores the resolution report.
func (s *InterventionService) ResolveIntervention(ctx context.Context, actor models.Actor, id uint, in ResolveInput) (*models.Intervention, error) {
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.EquipmentID != nil {
		if err := s.checkReferences(ctx, 0, in.EquipmentID); err != nil {
			return nil, err
		}
	}

	extra := map[string]interface{}{}
	if in.Action != nil {
		extra["action"] = *in.Action
	}
	if in.Notes != nil {
		extra["notes"] = *in.Notes
	}
	if in.PartsUsed != nil {
		extra["parts_used"] = *in.PartsUsed
	}
	if in.EquipmentID != nil {
		extra["equipment_id"] = *in.EquipmentID
	}

	return s.transition(ctx, actor, iv, intervention.OpResolve, extra)
}

// UpdateIntervention applies a generic field update. Admins may edit every
// field; assigned technicians only the resolution report, the equipment and
// the status.
func (s *InterventionService) UpdateIntervention(ctx context.Context, actor models.Actor, id uint, in UpdateInterventionInput) (*models.Intervention, error) {
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTechnician:
		if !iv.IsAssigned(actor.ID) {
			return nil, apperror.Forbidden("you are not assigned to intervention %d", id)
		}
		if in.touchesPlanning() {
			return nil, apperror.Forbidden("only an admin can change the description, priority, location or planning")
		}
	default:
		return nil, apperror.Forbidden("you cannot update intervention %d", id)
	}

	updates, err := s.fieldUpdates(ctx, iv, in)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		target, ok := models.ParseStatus(*in.Status)
		if !ok {
			return nil, apperror.Validation("invalid status %q", *in.Status)
		}
		op, err := operationFor(iv, target)
		if err != nil {
			return nil, err
		}
		return s.transition(ctx, actor, iv, op, updates)
	}

	if len(updates) == 0 {
		return iv, nil
	}

	fields := len(updates)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, iv, updates); err != nil {
			return err
		}
		return s.record(tx, models.InterventionUpdate{
			InterventionID: iv.ID,
			PersonID:       actor.ID,
			Type:           models.UpdateTypeEdit,
			Content:        fmt.Sprintf("%d field(s) updated", fields),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.WithIntervention(iv.ID, actor.ID).WithFields(logrus.Fields{
		"fields": fields,
	}).Info("Intervention updated")

	return s.load(ctx, iv.ID)
}

// DeleteIntervention removes an intervention with its assignments and documents.
func (s *InterventionService) DeleteIntervention(ctx context.Context, actor models.Actor, id uint) error {
	if err := intervention.CanDelete(id, actor.Role).Error(); err != nil {
		return err
	}

	var iv models.Intervention
	if err := s.db.WithContext(ctx).First(&iv, id).Error; err != nil {
		return notFoundOr(err, "intervention %d not found", id)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("intervention_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		if err := tx.Where("intervention_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		if err := tx.Where("intervention_id = ?", id).Delete(&models.InterventionUpdate{}).Error; err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		if err := tx.Delete(&models.Intervention{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete intervention: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.WithError(err, "intervention_service").Error("Failed to delete intervention")
		return apperror.Internal("failed to delete intervention", err)
	}

	logger.WithIntervention(id, actor.ID).Info("Intervention deleted")
	return nil
}

func (s *InterventionService) apply(ctx context.Context, actor models.Actor, id uint, op intervention.Operation) (*models.Intervention, error) {
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, iv, op, nil)
}

// transition is the single place where status is written.
func (s *InterventionService) transition(ctx context.Context, actor models.Actor, iv *models.Intervention, op intervention.Operation, extra map[string]interface{}) (*models.Intervention, error) {
	if err := intervention.CanTransition(intervention.TransitionContext{
		InterventionID: iv.ID,
		Operation:      op,
		Status:         iv.Status,
		ActorRole:      actor.Role,
		ActorAssigned:  iv.IsAssigned(actor.ID),
	}).Error(); err != nil {
		return nil, err
	}

	target, _ := intervention.Target(op)
	result := intervention.ApplyStatusTransition(target, s.now())

	updates := map[string]interface{}{}
	for k, v := range extra {
		updates[k] = v
	}
	updates["status"] = result.NewStatus
	updates["resolved_at"] = result.ResolvedAt

	from := iv.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, iv, updates); err != nil {
			return err
		}
		return s.record(tx, models.InterventionUpdate{
			InterventionID: iv.ID,
			PersonID:       actor.ID,
			Type:           models.UpdateTypeStatusChange,
			FromStatus:     &from,
			ToStatus:       &result.NewStatus,
			Content:        string(op),
		})
	})
	if err != nil {
		return nil, err
	}

	transitionsTotal.WithLabelValues(string(iv.Status), string(result.NewStatus)).Inc()
	logger.WithIntervention(iv.ID, actor.ID).WithFields(logrus.Fields{
		"operation": op,
		"from":      iv.Status,
		"to":        result.NewStatus,
	}).Info("Intervention status changed")

	return s.load(ctx, iv.ID)
}

// compareAndSwap writes updates only if the row still carries the version
// that was read, bumping it on success.
func (s *InterventionService) compareAndSwap(tx *gorm.DB, iv *models.Intervention, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = s.now()

	res := tx.Model(&models.Intervention{}).
		Where("id = ? AND version = ?", iv.ID, iv.Version).
		Updates(updates)
	if res.Error != nil {
		logger.WithError(res.Error, "intervention_service").Error("Failed to update intervention")
		return apperror.Internal("failed to update intervention", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("intervention %d was modified concurrently, reload and retry", iv.ID)
	}
	return nil
}

// record appends a history entry. Failures are returned as internal errors so
// the surrounding transaction rolls back.
func (s *InterventionService) record(tx *gorm.DB, u models.InterventionUpdate) error {
	u.CreatedAt = s.now()
	if err := tx.Create(&u).Error; err != nil {
		logger.WithError(err, "intervention_service").Error("Failed to record intervention update")
		return apperror.Internal("failed to record intervention history", err)
	}
	return nil
}

func (s *InterventionService) fieldUpdates(ctx context.Context, iv *models.Intervention, in UpdateInterventionInput) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if in.Description != nil {
		if *in.Description == "" {
			return nil, apperror.Validation("description cannot be empty")
		}
		updates["description"] = *in.Description
	}
	if in.Priority != nil {
		p, ok := models.ParsePriority(*in.Priority)
		if !ok {
			return nil, apperror.Validation("invalid priority %q", *in.Priority)
		}
		updates["priority"] = p
	}
	if in.LocationID != nil {
		if err := s.checkReferences(ctx, *in.LocationID, nil); err != nil {
			return nil, err
		}
		updates["location_id"] = *in.LocationID
	}
	if in.EquipmentID != nil {
		if err := s.checkReferences(ctx, 0, in.EquipmentID); err != nil {
			return nil, err
		}
		updates["equipment_id"] = *in.EquipmentID
	}
	if in.PlannedAt != nil {
		updates["planned_at"] = *in.PlannedAt
	}

	if in.IsRecurring != nil || in.RecurrenceInterval != nil {
		recurring := iv.IsRecurring
		if in.IsRecurring != nil {
			recurring = *in.IsRecurring
		}
		interval := iv.RecurrenceInterval
		if in.RecurrenceInterval != nil {
			interval = in.RecurrenceInterval
		}
		switch {
		case recurring && interval == nil:
			return nil, apperror.Validation("recurrenceInterval is required for recurring interventions")
		case recurring && *interval <= 0:
			return nil, apperror.Validation("recurrenceInterval must be a positive number of days")
		case !recurring && in.RecurrenceInterval != nil:
			return nil, apperror.Validation("recurrenceInterval is only allowed for recurring interventions")
		}
		updates["is_recurring"] = recurring
		if recurring {
			updates["recurrence_interval"] = *interval
		} else {
			updates["recurrence_interval"] = nil
		}
	}

	if in.Action != nil {
		updates["action"] = *in.Action
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if in.PartsUsed != nil {
		updates["parts_used"] = *in.PartsUsed
	}

	return updates, nil
}

func operationFor(iv *models.Intervention, target models.InterventionStatus) (intervention.Operation, error) {
	if iv.Status.IsTerminal() {
		return "", apperror.InvalidTransition("intervention %d is %s and cannot be changed", iv.ID, iv.Status)
	}
	op, ok := intervention.OperationFor(iv.Status, target)
	if !ok {
		return "", apperror.InvalidTransition("cannot move intervention %d from %s to %s", iv.ID, iv.Status, target)
	}
	return op, nil
}

// checkReferences verifies the location (when non-zero) and equipment (when non-nil) exist.
func (s *InterventionService) checkReferences(ctx context.Context, locationID uint, equipmentID *uint) error {
	if locationID != 0 {
		ok, err := s.exists(ctx, &models.Location{}, locationID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("location %d not found", locationID)
		}
	}
	if equipmentID != nil {
		ok, err := s.exists(ctx, &models.Equipment{}, *equipmentID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("equipment %d not found", *equipmentID)
		}
	}
	return nil
}

func (s *InterventionService) exists(ctx context.Context, model interface{}, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperror.Internal("failed to look up reference", err)
	}
	return count > 0, nil
}

func (s *InterventionService) loadPersons(ctx context.Context, ids []uint) (map[uint]models.Person, error) {
	var persons []models.Person
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&persons).Error; err != nil {
		return nil, apperror.Internal("failed to load technicians", err)
	}
	byID := make(map[uint]models.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}
	return byID, nil
}

func (s *InterventionService) load(ctx context.Context, id uint) (*models.Intervention, error) {
	var iv models.Intervention
	if err := withRelations(s.db.WithContext(ctx)).First(&iv, id).Error; err != nil {
		return nil, notFoundOr(err, "intervention %d not found", id)
	}
	return &iv, nil
}

func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Location").
		Preload("Equipment").
		Preload("ReportedBy").
		Preload("Assignments.Person").
		Preload("Documents")
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(format, args...)
	}
	return apperror.Internal("database query failed", err)
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
