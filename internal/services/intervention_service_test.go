package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/models"
)

var ctxBG = context.Background()

func boolPtr(b bool) *bool           { return &b }
func intPtr(i int) *int              { return &i }
func strPtr(s string) *string        { return &s }
func uintPtr(u uint) *uint           { return &u }
func timePtr(t time.Time) *time.Time { return &t }

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "error: %v", err)
}

func TestCreateIntervention(t *testing.T) {
	f := newFixture(t)

	iv := f.reported(t, "leak in S7")

	assert.Equal(t, models.StatusPending, iv.Status)
	assert.Nil(t, iv.ResolvedAt)
	assert.Equal(t, models.PriorityHigh, iv.Priority)
	assert.Equal(t, f.user.ID, iv.ReportedByID)
	assert.Equal(t, 1, iv.Version)
	require.NotNil(t, iv.Location)
	assert.Equal(t, f.location.Name, iv.Location.Name)
	assert.True(t, iv.CreatedAt.Equal(fixedNow))
}

func TestCreateInterventionWithEquipment(t *testing.T) {
	f := newFixture(t)

	iv, err := f.svc.CreateIntervention(ctxBG, f.user, CreateInterventionInput{
		Description: "boiler noise",
		Priority:    "LOW",
		LocationID:  f.location.ID,
		EquipmentID: uintPtr(f.equipment.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, iv.Equipment)
	assert.Equal(t, "Boiler B2", iv.Equipment.Name)
}

func TestCreateInterventionValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   CreateInterventionInput
		kind apperror.Kind
	}{
		{"missing description", CreateInterventionInput{Priority: "HIGH", LocationID: f.location.ID}, apperror.KindValidation},
		{"missing priority", CreateInterventionInput{Description: "x", LocationID: f.location.ID}, apperror.KindValidation},
		{"missing location", CreateInterventionInput{Description: "x", Priority: "HIGH"}, apperror.KindValidation},
		{"unknown location", CreateInterventionInput{Description: "x", Priority: "HIGH", LocationID: 999}, apperror.KindNotFound},
		{"unknown equipment", CreateInterventionInput{Description: "x", Priority: "HIGH", LocationID: f.location.ID, EquipmentID: uintPtr(999)}, apperror.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateIntervention(ctxBG, f.user, tt.in)
			requireKind(t, err, tt.kind)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Intervention{}).Count(&count).Error)
	assert.Zero(t, count, "failed creations must not persist rows")
}

func TestPlanifyIntervention(t *testing.T) {
	f := newFixture(t)
	planned := fixedNow.Add(72 * time.Hour)

	iv, err := f.svc.PlanifyIntervention(ctxBG, f.admin, PlanifyInterventionInput{
		Description:        "monthly fire extinguisher check",
		LocationID:         f.location.ID,
		PlannedAt:          &planned,
		IsRecurring:        boolPtr(true),
		RecurrenceInterval: intPtr(30),
		Assignees:          []uint{f.tech1.ID, f.tech2.ID, f.tech1.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, iv.Status)
	assert.Equal(t, models.PriorityMedium, iv.Priority, "priority defaults to MEDIUM")
	assert.True(t, iv.IsRecurring)
	require.NotNil(t, iv.RecurrenceInterval)
	assert.Equal(t, 30, *iv.RecurrenceInterval)
	require.NotNil(t, iv.PlannedAt)
	assert.True(t, iv.PlannedAt.Equal(planned))
	assert.Len(t, iv.Assignments, 2)
	assert.True(t, iv.IsAssigned(f.tech1.ID))
	assert.True(t, iv.IsAssigned(f.tech2.ID))
}

func TestPlanifyInterventionErrors(t *testing.T) {
	f := newFixture(t)
	planned := fixedNow.Add(24 * time.Hour)

	base := func() PlanifyInterventionInput {
		return PlanifyInterventionInput{
			Description: "inspect roof drains",
			LocationID:  f.location.ID,
			PlannedAt:   &planned,
			IsRecurring: boolPtr(false),
			Assignees:   []uint{f.tech1.ID},
		}
	}

	t.Run("recurring without interval", func(t *testing.T) {
		in := base()
		in.IsRecurring = boolPtr(true)
		_, err := f.svc.PlanifyIntervention(ctxBG, f.admin, in)
		requireKind(t, err, apperror.KindValidation)
	})

	t.Run("empty assignees", func(t *testing.T) {
		in := base()
		in.Assignees = nil
		_, err := f.svc.PlanifyIntervention(ctxBG, f.admin, in)
		requireKind(t, err, apperror.KindValidation)
	})

	t.Run("unknown technician", func(t *testing.T) {
		in := base()
		in.Assignees = []uint{f.tech1.ID, 9999}
		_, err := f.svc.PlanifyIntervention(ctxBG, f.admin, in)
		requireKind(t, err, apperror.KindNotFound)
	})

	t.Run("assignee is not a technician", func(t *testing.T) {
		in := base()
		in.Assignees = []uint{f.user.ID}
		_, err := f.svc.PlanifyIntervention(ctxBG, f.admin, in)
		requireKind(t, err, apperror.KindValidation)
	})

	t.Run("unknown location", func(t *testing.T) {
		in := base()
		in.LocationID = 4242
		_, err := f.svc.PlanifyIntervention(ctxBG, f.admin, in)
		requireKind(t, err, apperror.KindNotFound)
	})

	t.Run("non admin", func(t *testing.T) {
		_, err := f.svc.PlanifyIntervention(ctxBG, f.tech1, base())
		requireKind(t, err, apperror.KindForbidden)
	})

	var count int64
	require.NoError(t, f.db.Model(&models.Intervention{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBeginPauseResume(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "leak in S7")

	iv, err := f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, iv.Status)

	iv, err = f.svc.Pause(ctxBG, f.tech1, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, iv.Status)

	iv, err = f.svc.Resume(ctxBG, f.tech1, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, iv.Status)
	assert.Nil(t, iv.ResolvedAt)
	assert.Equal(t, 4, iv.Version)
}

func TestPauseRequiresInProgress(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "broken window")

	_, err := f.svc.Pause(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindInvalidTransition)

	_, err = f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = f.svc.Pause(ctxBG, f.tech1, iv.ID)
	require.NoError(t, err)

	_, err = f.svc.Pause(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestResumeFromPendingFails(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "door jammed")

	_, err := f.svc.Resume(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestTransitionGuards(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "elevator stuck")

	_, err := f.svc.UpdateStatus(ctxBG, f.tech2, iv.ID, "IN_PROGRESS")
	requireKind(t, err, apperror.KindForbidden)

	_, err = f.svc.UpdateStatus(ctxBG, f.user, iv.ID, "IN_PROGRESS")
	requireKind(t, err, apperror.KindForbidden)

	_, err = f.svc.UpdateStatus(ctxBG, f.admin, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)

	_, err = f.svc.Pause(ctxBG, f.admin, iv.ID)
	requireKind(t, err, apperror.KindForbidden)

	_, err = f.svc.Cancel(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindForbidden)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "light flicker")

	_, err := f.svc.UpdateStatus(ctxBG, f.admin, iv.ID, "DONE")
	requireKind(t, err, apperror.KindValidation)

	_, err = f.svc.UpdateStatus(ctxBG, f.admin, 9999, "IN_PROGRESS")
	requireKind(t, err, apperror.KindNotFound)

	_, err = f.svc.UpdateStatus(ctxBG, f.admin, iv.ID, "PENDING")
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestUpdateStatusIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "ceiling stain")

	_, err := f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestResolveIntervention(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "leaking valve")

	_, err := f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	iv, err = f.svc.ResolveIntervention(ctxBG, f.tech1, iv.ID, ResolveInput{
		Action:    strPtr("replaced valve"),
		PartsUsed: strPtr("valve x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, iv.Status)
	require.NotNil(t, iv.ResolvedAt)
	assert.True(t, iv.ResolvedAt.Equal(fixedNow.Add(2*time.Hour)))
	require.NotNil(t, iv.Action)
	assert.Equal(t, "replaced valve", *iv.Action)
	require.NotNil(t, iv.PartsUsed)
	assert.Equal(t, "valve x1", *iv.PartsUsed)
	assert.Nil(t, iv.Notes)
}

func TestResolveRecordsEquipment(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "no hot water")
	_, err := f.svc.UpdateStatus(ctxBG, f.admin, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)

	_, err = f.svc.ResolveIntervention(ctxBG, f.admin, iv.ID, ResolveInput{EquipmentID: uintPtr(777)})
	requireKind(t, err, apperror.KindNotFound)

	iv, err = f.svc.ResolveIntervention(ctxBG, f.admin, iv.ID, ResolveInput{
		Notes:       strPtr("boiler reset"),
		EquipmentID: uintPtr(f.equipment.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, iv.EquipmentID)
	assert.Equal(t, f.equipment.ID, *iv.EquipmentID)
}

func TestResolveFromPendingFails(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "loose tile")

	_, err := f.svc.ResolveIntervention(ctxBG, f.tech1, iv.ID, ResolveInput{Action: strPtr("fixed")})
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	f := newFixture(t)

	completed := f.assigned(t, "completed one")
	_, err := f.svc.UpdateStatus(ctxBG, f.tech1, completed.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = f.svc.ResolveIntervention(ctxBG, f.tech1, completed.ID, ResolveInput{Action: strPtr("done")})
	require.NoError(t, err)

	cancelled := f.assigned(t, "cancelled one")
	_, err = f.svc.Cancel(ctxBG, f.admin, cancelled.ID)
	require.NoError(t, err)

	denied := f.assigned(t, "denied one")
	_, err = f.svc.Deny(ctxBG, f.admin, denied.ID)
	require.NoError(t, err)

	for _, iv := range []*models.Intervention{completed, cancelled, denied} {
		for _, status := range []string{"IN_PROGRESS", "PAUSED", "COMPLETED", "CANCELLED", "DENIED", "APPROVED", "PENDING"} {
			_, err := f.svc.UpdateStatus(ctxBG, f.admin, iv.ID, status)
			requireKind(t, err, apperror.KindInvalidTransition)
		}
		_, err := f.svc.Pause(ctxBG, f.tech1, iv.ID)
		requireKind(t, err, apperror.KindInvalidTransition)
		_, err = f.svc.Resume(ctxBG, f.tech1, iv.ID)
		requireKind(t, err, apperror.KindInvalidTransition)
		_, err = f.svc.ResolveIntervention(ctxBG, f.tech1, iv.ID, ResolveInput{})
		requireKind(t, err, apperror.KindInvalidTransition)
	}
}

func TestResolvedAtMatchesCompletedStatus(t *testing.T) {
	f := newFixture(t)

	a := f.assigned(t, "a")
	_, err := f.svc.UpdateStatus(ctxBG, f.tech1, a.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctxBG, f.tech1, a.ID, "COMPLETED")
	require.NoError(t, err)

	b := f.assigned(t, "b")
	_, err = f.svc.UpdateStatus(ctxBG, f.tech1, b.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctxBG, f.admin, b.ID)
	require.NoError(t, err)

	f.assigned(t, "c")

	var all []models.Intervention
	require.NoError(t, f.db.Find(&all).Error)
	require.Len(t, all, 3)
	for _, iv := range all {
		assert.Equal(t, iv.Status == models.StatusCompleted, iv.ResolvedAt != nil,
			"intervention %d status %s resolvedAt %v", iv.ID, iv.Status, iv.ResolvedAt)
	}
}

func TestApproveFlow(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "repaint corridor")

	_, err := f.svc.Approve(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindForbidden)

	iv, err = f.svc.Approve(ctxBG, f.admin, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, iv.Status)

	_, err = f.svc.Approve(ctxBG, f.admin, iv.ID)
	requireKind(t, err, apperror.KindInvalidTransition)

	iv, err = f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, iv.Status)

	_, err = f.svc.Deny(ctxBG, f.admin, iv.ID)
	requireKind(t, err, apperror.KindInvalidTransition)
}

func TestStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "race")

	stale := *iv
	_, err := f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
	require.NoError(t, err)

	// A writer holding the version read before the first change loses.
	err = f.svc.compareAndSwap(f.db.WithContext(ctxBG), &stale, map[string]interface{}{"status": models.StatusCancelled})
	requireKind(t, err, apperror.KindConflict)

	reloaded, err := f.svc.GetByID(ctxBG, f.admin, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "concurrent")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateStatus(ctxBG, f.tech1, iv.ID, "IN_PROGRESS")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := apperror.KindOf(err)
		assert.True(t, kind == apperror.KindConflict || kind == apperror.KindInvalidTransition, "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestUpdateIntervention(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "flooded basement")

	t.Run("admin edits planning fields", func(t *testing.T) {
		out, err := f.svc.UpdateIntervention(ctxBG, f.admin, iv.ID, UpdateInterventionInput{
			Description:        strPtr("flooded basement, level -1"),
			Priority:           strPtr("CRITICAL"),
			IsRecurring:        boolPtr(true),
			RecurrenceInterval: intPtr(14),
		})
		require.NoError(t, err)
		assert.Equal(t, "flooded basement, level -1", out.Description)
		assert.Equal(t, models.PriorityCritical, out.Priority)
		assert.True(t, out.IsRecurring)
		assert.Equal(t, models.StatusPending, out.Status)
	})

	t.Run("turning recurrence off clears interval", func(t *testing.T) {
		out, err := f.svc.UpdateIntervention(ctxBG, f.admin, iv.ID, UpdateInterventionInput{IsRecurring: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, out.IsRecurring)
		assert.Nil(t, out.RecurrenceInterval)
	})

	t.Run("technician cannot edit planning", func(t *testing.T) {
		_, err := f.svc.UpdateIntervention(ctxBG, f.tech1, iv.ID, UpdateInterventionInput{Priority: strPtr("LOW")})
		requireKind(t, err, apperror.KindForbidden)
	})

	t.Run("unassigned technician rejected", func(t *testing.T) {
		_, err := f.svc.UpdateIntervention(ctxBG, f.tech2, iv.ID, UpdateInterventionInput{Notes: strPtr("x")})
		requireKind(t, err, apperror.KindForbidden)
	})

	t.Run("status goes through the transition rules", func(t *testing.T) {
		_, err := f.svc.UpdateIntervention(ctxBG, f.tech1, iv.ID, UpdateInterventionInput{Status: strPtr("PAUSED")})
		requireKind(t, err, apperror.KindInvalidTransition)

		out, err := f.svc.UpdateIntervention(ctxBG, f.tech1, iv.ID, UpdateInterventionInput{
			Status: strPtr("IN_PROGRESS"),
			Notes:  strPtr("pump on site"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, out.Status)
		require.NotNil(t, out.Notes)
		assert.Equal(t, "pump on site", *out.Notes)
	})

	t.Run("recurring without interval rejected", func(t *testing.T) {
		_, err := f.svc.UpdateIntervention(ctxBG, f.admin, iv.ID, UpdateInterventionInput{IsRecurring: boolPtr(true)})
		requireKind(t, err, apperror.KindValidation)
	})

	t.Run("user cannot update", func(t *testing.T) {
		_, err := f.svc.UpdateIntervention(ctxBG, f.user, iv.ID, UpdateInterventionInput{Notes: strPtr("x")})
		requireKind(t, err, apperror.KindForbidden)
	})
}

func TestDeleteIntervention(t *testing.T) {
	f := newFixture(t)
	iv := f.assigned(t, "to delete")
	require.NoError(t, f.db.Create(&models.Document{InterventionID: &iv.ID, FileName: "photo.jpg", URL: "https://files/photo.jpg", UploadedAt: fixedNow}).Error)

	err := f.svc.DeleteIntervention(ctxBG, f.tech1, iv.ID)
	requireKind(t, err, apperror.KindForbidden)

	require.NoError(t, f.svc.DeleteIntervention(ctxBG, f.admin, iv.ID))

	_, err = f.svc.GetByID(ctxBG, f.admin, iv.ID)
	requireKind(t, err, apperror.KindNotFound)
	assert.Zero(t, f.assignmentCount(t, iv.ID))

	var docs int64
	require.NoError(t, f.db.Model(&models.Document{}).Count(&docs).Error)
	assert.Zero(t, docs)

	var history int64
	require.NoError(t, f.db.Model(&models.InterventionUpdate{}).Where("intervention_id = ?", iv.ID).Count(&history).Error)
	assert.Zero(t, history)

	err = f.svc.DeleteIntervention(ctxBG, f.admin, iv.ID)
	requireKind(t, err, apperror.KindNotFound)
}

func TestNotFoundIsDistinguishable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Pause(ctxBG, f.tech1, 12345)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
