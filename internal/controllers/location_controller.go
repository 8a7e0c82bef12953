package controllers

import (
	"net/http"
	"strconv"

	"github.com/esilogis/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type LocationController struct {
	locations *services.LocationService
}

func NewLocationController(locations *services.LocationService) *LocationController {
	return &LocationController{locations: locations}
}

type CreateLocationRequest struct {
	Name        string  `json:"name" binding:"required"`
	Building    *string `json:"building"`
	Floor       *string `json:"floor"`
	Description *string `json:"description"`
}

type CreateEquipmentRequest struct {
	Name         string  `json:"name" binding:"required"`
	SerialNumber *string `json:"serialNumber"`
	Barcode      *string `json:"barcode"`
	LocationID   uint    `json:"locationId" binding:"required"`
}

func (lc *LocationController) CreateLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	loc, err := lc.locations.CreateLocation(c.Request.Context(), a, services.CreateLocationInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, loc)
}

func (lc *LocationController) GetLocations(c *gin.Context) {
	locs, err := lc.locations.ListLocations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, locs)
}

func (lc *LocationController) CreateEquipment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	eq, err := lc.locations.CreateEquipment(c.Request.Context(), a, services.CreateEquipmentInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, eq)
}

// GetEquipment lists equipment, optionally for one ?locationId=.
func (lc *LocationController) GetEquipment(c *gin.Context) {
	var locationID uint
	if raw := c.Query("locationId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid locationId")
			return
		}
		locationID = uint(id)
	}
	equipment, err := lc.locations.ListEquipment(c.Request.Context(), locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, equipment)
}

func (lc *LocationController) GetEquipmentByBarcode(c *gin.Context) {
	eq, err := lc.locations.FindEquipmentByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, eq)
}
