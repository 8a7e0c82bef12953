package services

import (
	"context"
	"fmt"
	"time"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignFailure describes one intervention/technician pair that could not be assigned.
type AssignFailure struct {
	InterventionID uint   `json:"interventionId"`
	TechnicianID   uint   `json:"technicianId"`
	Reason         string `json:"reason"`
}

// AssignResult aggregates a bulk assignment. SuccessCount includes pairs that
// were already assigned, which are left untouched.
type AssignResult struct {
	SuccessCount    int             `json:"successCount"`
	CreatedCount    int             `json:"createdCount"`
	AlreadyAssigned int             `json:"alreadyAssigned"`
	FailedIDs       []uint          `json:"failedIds"`
	Failures        []AssignFailure `json:"failures"`
}

// AssignMultiple assigns every technician to every intervention. Each pair is
// attempted on its own: a failing pair is reported and the rest proceed.
func (s *InterventionService) AssignMultiple(ctx context.Context, actor models.Actor, interventionIDs, technicianIDs []uint) (*AssignResult, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can assign technicians")
	}
	if len(interventionIDs) == 0 {
		return nil, apperror.Validation("interventionIds must not be empty")
	}
	if len(technicianIDs) == 0 {
		return nil, apperror.Validation("technicianIds must not be empty")
	}

	interventionIDs = uniqueIDs(interventionIDs)
	technicianIDs = uniqueIDs(technicianIDs)

	var interventions []models.Intervention
	if err := s.db.WithContext(ctx).Select("id", "status").Where("id IN ?", interventionIDs).Find(&interventions).Error; err != nil {
		return nil, apperror.Internal("failed to load interventions", err)
	}
	statusByID := make(map[uint]models.InterventionStatus, len(interventions))
	for _, iv := range interventions {
		statusByID[iv.ID] = iv.Status
	}

	technicians, err := s.loadPersons(ctx, technicianIDs)
	if err != nil {
		return nil, err
	}

	result := &AssignResult{FailedIDs: []uint{}, Failures: []AssignFailure{}}
	failed := map[uint]bool{}
	fail := func(ivID, techID uint, reason string) {
		result.Failures = append(result.Failures, AssignFailure{InterventionID: ivID, TechnicianID: techID, Reason: reason})
		if !failed[ivID] {
			failed[ivID] = true
			result.FailedIDs = append(result.FailedIDs, ivID)
		}
		assignmentsTotal.WithLabelValues("failed").Inc()
	}

	now := s.now()
	for _, ivID := range interventionIDs {
		status, ok := statusByID[ivID]
		for _, techID := range technicianIDs {
			if !ok {
				fail(ivID, techID, "intervention not found")
				continue
			}
			if status.IsTerminal() {
				fail(ivID, techID, "intervention is "+string(status))
				continue
			}
			p, found := technicians[techID]
			if !found {
				fail(ivID, techID, "technician not found")
				continue
			}
			if !p.IsTechnician() {
				fail(ivID, techID, "person is not a technician")
				continue
			}

			created, err := s.assign(ctx, actor, ivID, p, now)
			if err != nil {
				logger.WithError(err, "intervention_service").Error("Failed to create assignment")
				fail(ivID, techID, "failed to save assignment")
				continue
			}

			result.SuccessCount++
			if !created {
				result.AlreadyAssigned++
				assignmentsTotal.WithLabelValues("existing").Inc()
			} else {
				result.CreatedCount++
				assignmentsTotal.WithLabelValues("created").Inc()
			}
		}
	}

	logger.WithContext(map[string]interface{}{
		"actor_id":         actor.ID,
		"component":        "intervention_service",
		"interventions":    len(interventionIDs),
		"technicians":      len(technicianIDs),
		"success":          result.SuccessCount,
		"created":          result.CreatedCount,
		"already_assigned": result.AlreadyAssigned,
		"failed":           len(result.Failures),
	}).Info("Bulk assignment completed")

	return result, nil
}

// assign inserts one assignment unless the pair already exists, recording the
// new assignment in the intervention history.
func (s *InterventionService) assign(ctx context.Context, actor models.Actor, interventionID uint, tech models.Person, now time.Time) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a := models.Assignment{InterventionID: interventionID, PersonID: tech.ID, AssignedAt: now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return s.record(tx, models.InterventionUpdate{
			InterventionID: interventionID,
			PersonID:       actor.ID,
			Type:           models.UpdateTypeAssignment,
			Content:        fmt.Sprintf("Assigned %s %s", tech.FirstName, tech.LastName),
		})
	})
	return created, err
}
