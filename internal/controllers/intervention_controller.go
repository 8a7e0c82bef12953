package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/esilogis/backend/internal/models"
	"github.com/esilogis/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type InterventionController struct {
	service *services.InterventionService
}

func NewInterventionController(service *services.InterventionService) *InterventionController {
	return &InterventionController{service: service}
}

type CreateInterventionRequest struct {
	Description string `json:"description"`
	Priority    string `json:"priority"`
	LocationID  uint   `json:"locationId"`
	EquipmentID *uint  `json:"equipmentId"`
}

type PlanifyInterventionRequest struct {
	Description        string     `json:"description"`
	Priority           string     `json:"priority"`
	LocationID         uint       `json:"locationId"`
	EquipmentID        *uint      `json:"equipmentId"`
	PlannedAt          *time.Time `json:"plannedAt"`
	IsRecurring        *bool      `json:"isRecurring"`
	RecurrenceInterval *int       `json:"recurrenceInterval"`
	Assignees          []uint     `json:"assignees"`
}

type UpdateInterventionRequest struct {
	Description        *string    `json:"description"`
	Priority           *string    `json:"priority"`
	LocationID         *uint      `json:"locationId"`
	EquipmentID        *uint      `json:"equipmentId"`
	PlannedAt          *time.Time `json:"plannedAt"`
	IsRecurring        *bool      `json:"isRecurring"`
	RecurrenceInterval *int       `json:"recurrenceInterval"`
	Action             *string    `json:"action"`
	Notes              *string    `json:"notes"`
	PartsUsed          *string    `json:"partsUsed"`
	Status             *string    `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ResolveInterventionRequest struct {
	Action      *string `json:"action"`
	Notes       *string `json:"notes"`
	PartsUsed   *string `json:"partsUsed"`
	EquipmentID *uint   `json:"equipmentId"`
}

type AssignMultipleRequest struct {
	InterventionIDs []uint `json:"interventionIds"`
	TechnicianIDs   []uint `json:"technicianIds"`
}

func listFilter(c *gin.Context) services.ListFilter {
	return services.ListFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
}

func (ic *InterventionController) GetMyAssigned(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	list, err := ic.service.GetMyAssigned(c.Request.Context(), a.ID, listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (ic *InterventionController) GetMyReported(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	list, err := ic.service.GetMyReported(c.Request.Context(), a.ID, listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (ic *InterventionController) GetAll(c *gin.Context) {
	list, err := ic.service.GetAll(c.Request.Context(), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (ic *InterventionController) GetPlanned(c *gin.Context) {
	list, err := ic.service.GetPlanned(c.Request.Context(), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (ic *InterventionController) GetByID(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	iv, err := ic.service.GetByID(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, iv)
}

func (ic *InterventionController) GetHistory(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	history, err := ic.service.GetHistory(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, history)
}

func (ic *InterventionController) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	iv, err := ic.service.CreateIntervention(c.Request.Context(), a, services.CreateInterventionInput{
		Description: req.Description,
		Priority:    req.Priority,
		LocationID:  req.LocationID,
		EquipmentID: req.EquipmentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, iv)
}

func (ic *InterventionController) Planify(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req PlanifyInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	iv, err := ic.service.PlanifyIntervention(c.Request.Context(), a, services.PlanifyInterventionInput{
		Description:        req.Description,
		Priority:           req.Priority,
		LocationID:         req.LocationID,
		EquipmentID:        req.EquipmentID,
		PlannedAt:          req.PlannedAt,
		IsRecurring:        req.IsRecurring,
		RecurrenceInterval: req.RecurrenceInterval,
		Assignees:          req.Assignees,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, iv)
}

func (ic *InterventionController) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	iv, err := ic.service.UpdateIntervention(c.Request.Context(), a, id, services.UpdateInterventionInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, iv)
}

func (ic *InterventionController) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	iv, err := ic.service.UpdateStatus(c.Request.Context(), a, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, iv)
}

func (ic *InterventionController) Resolve(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ResolveInterventionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request data: "+err.Error())
			return
		}
	}
	iv, err := ic.service.ResolveIntervention(c.Request.Context(), a, id, services.ResolveInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, iv)
}

// Pause, Resume, Cancel, Approve and Deny take no body.
func (ic *InterventionController) Pause(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	iv, err := ic.service.Pause(c.Request.Context(), a, id)
	ic.respondTransition(c, iv, err)
}

func (ic *InterventionController) Resume(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	iv, err := ic.service.Resume(c.Request.Context(), a, id)
	ic.respondTransition(c, iv, err)
}

func (ic *InterventionController) Cancel(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	iv, err := ic.service.Cancel(c.Request.Context(), a, id)
	ic.respondTransition(c, iv, err)
}

func (ic *InterventionController) Approve(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	iv, err := ic.service.Approve(c.Request.Context(), a, id)
	ic.respondTransition(c, iv, err)
}

func (ic *InterventionController) Deny(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	iv, err := ic.service.Deny(c.Request.Context(), a, id)
	ic.respondTransition(c, iv, err)
}

func (ic *InterventionController) Delete(c *gin.Context) {
	a, id, ok := actorAndID(c)
	if !ok {
		return
	}
	if err := ic.service.DeleteIntervention(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Intervention deleted successfully")
}

func (ic *InterventionController) AssignMultiple(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req AssignMultipleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	result, err := ic.service.AssignMultiple(c.Request.Context(), a, req.InterventionIDs, req.TechnicianIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": assignMessage(result),
		"data":    result,
	})
}

func actorAndID(c *gin.Context) (models.Actor, uint, bool) {
	a, ok := actor(c)
	if !ok {
		return models.Actor{}, 0, false
	}
	id, ok := paramID(c, "id")
	return a, id, ok
}

func (ic *InterventionController) respondTransition(c *gin.Context, iv *models.Intervention, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, iv)
}

func assignMessage(result *services.AssignResult) string {
	if len(result.Failures) == 0 {
		return fmt.Sprintf("%d assignment(s) succeeded", result.SuccessCount)
	}
	return fmt.Sprintf("%d assignment(s) succeeded, %d failed", result.SuccessCount, len(result.Failures))
}
