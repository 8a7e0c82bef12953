package services

import (
	"context"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/core/intervention"
	"github.com/esilogis/backend/internal/models"
	"gorm.io/gorm"
)

// ListFilter narrows list views. Empty fields match everything.
type ListFilter struct {
	Status   string
	Priority string
}

func (f ListFilter) apply(q *gorm.DB) (*gorm.DB, error) {
	if f.Status != "" {
		status, ok := models.ParseStatus(f.Status)
		if !ok {
			return nil, apperror.Validation("invalid status %q", f.Status)
		}
		q = q.Where("status = ?", status)
	}
	if f.Priority != "" {
		priority, ok := models.ParsePriority(f.Priority)
		if !ok {
			return nil, apperror.Validation("invalid priority %q", f.Priority)
		}
		q = q.Where("priority = ?", priority)
	}
	return q, nil
}

// List returns the interventions visible to actor: everything for admins,
// assigned work for technicians, own reports for users.
func (s *InterventionService) List(ctx context.Context, actor models.Actor, filter ListFilter) ([]models.Intervention, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.GetAll(ctx, filter)
	case models.RoleTechnician:
		return s.GetMyAssigned(ctx, actor.ID, filter)
	default:
		return s.GetMyReported(ctx, actor.ID, filter)
	}
}

func (s *InterventionService) GetAll(ctx context.Context, filter ListFilter) ([]models.Intervention, error) {
	return s.find(ctx, filter, func(q *gorm.DB) *gorm.DB { return q })
}

// GetMyAssigned returns interventions where personID holds an assignment.
func (s *InterventionService) GetMyAssigned(ctx context.Context, personID uint, filter ListFilter) ([]models.Intervention, error) {
	return s.find(ctx, filter, func(q *gorm.DB) *gorm.DB {
		sub := s.db.WithContext(ctx).Model(&models.Assignment{}).Select("intervention_id").Where("person_id = ?", personID)
		return q.Where("id IN (?)", sub)
	})
}

// GetMyReported returns interventions reported by userID.
func (s *InterventionService) GetMyReported(ctx context.Context, userID uint, filter ListFilter) ([]models.Intervention, error) {
	return s.find(ctx, filter, func(q *gorm.DB) *gorm.DB {
		return q.Where("reported_by_id = ?", userID)
	})
}

// GetPlanned returns preventive interventions, those carrying a planned date.
func (s *InterventionService) GetPlanned(ctx context.Context, filter ListFilter) ([]models.Intervention, error) {
	return s.find(ctx, filter, func(q *gorm.DB) *gorm.DB {
		return q.Where("planned_at IS NOT NULL")
	})
}

// GetByID returns one intervention if actor may see it.
func (s *InterventionService) GetByID(ctx context.Context, actor models.Actor, id uint) (*models.Intervention, error) {
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := intervention.CanView(intervention.ViewContext{
		InterventionID: iv.ID,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		ReportedByID:   iv.ReportedByID,
		ActorAssigned:  iv.IsAssigned(actor.ID),
	}).Error(); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetHistory returns the history of an intervention, oldest first, to anyone
// allowed to view it.
func (s *InterventionService) GetHistory(ctx context.Context, actor models.Actor, id uint) ([]models.InterventionUpdate, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}

	updates := []models.InterventionUpdate{}
	if err := s.db.WithContext(ctx).Preload("Person").
		Where("intervention_id = ?", id).
		Order("created_at asc").Order("id asc").
		Find(&updates).Error; err != nil {
		return nil, apperror.Internal("failed to fetch intervention history", err)
	}
	return updates, nil
}

func (s *InterventionService) find(ctx context.Context, filter ListFilter, scope func(*gorm.DB) *gorm.DB) ([]models.Intervention, error) {
	q, err := filter.apply(withRelations(s.db.WithContext(ctx).Model(&models.Intervention{})))
	if err != nil {
		return nil, err
	}

	interventions := []models.Intervention{}
	if err := scope(q).Order("created_at desc").Order("id desc").Find(&interventions).Error; err != nil {
		return nil, apperror.Internal("failed to fetch interventions", err)
	}
	return interventions, nil
}
