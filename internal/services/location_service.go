package services

import (
	"context"
	"errors"
	"strings"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/models"
	"gorm.io/gorm"
)

// LocationService manages the places and equipment interventions refer to.
type LocationService struct {
	db *gorm.DB
}

func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

type CreateLocationInput struct {
	Name        string
	Building    *string
	Floor       *string
	Description *string
}

type CreateEquipmentInput struct {
	Name         string
	SerialNumber *string
	Barcode      *string
	LocationID   uint
}

func (s *LocationService) CreateLocation(ctx context.Context, actor models.Actor, in CreateLocationInput) (*models.Location, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can create locations")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	var existing models.Location
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, apperror.Conflict("location %q already exists", name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to look up location", err)
	}

	loc := models.Location{Name: name, Building: in.Building, Floor: in.Floor, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&loc).Error; err != nil {
		return nil, apperror.Internal("failed to create location", err)
	}
	return &loc, nil
}

func (s *LocationService) ListLocations(ctx context.Context) ([]models.Location, error) {
	locations := []models.Location{}
	if err := s.db.WithContext(ctx).Order("name asc").Find(&locations).Error; err != nil {
		return nil, apperror.Internal("failed to fetch locations", err)
	}
	return locations, nil
}

func (s *LocationService) CreateEquipment(ctx context.Context, actor models.Actor, in CreateEquipmentInput) (*models.Equipment, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can create equipment")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.Validation("name is required")
	}
	if in.LocationID == 0 {
		return nil, apperror.Validation("locationId is required")
	}

	var loc models.Location
	if err := s.db.WithContext(ctx).First(&loc, in.LocationID).Error; err != nil {
		return nil, notFoundOr(err, "location %d not found", in.LocationID)
	}

	eq := models.Equipment{
		Name:         strings.TrimSpace(in.Name),
		SerialNumber: in.SerialNumber,
		Barcode:      in.Barcode,
		LocationID:   in.LocationID,
	}
	if err := s.db.WithContext(ctx).Create(&eq).Error; err != nil {
		return nil, apperror.Internal("failed to create equipment", err)
	}
	eq.Location = &loc
	return &eq, nil
}

// ListEquipment returns equipment, optionally for a single location.
func (s *LocationService) ListEquipment(ctx context.Context, locationID uint) ([]models.Equipment, error) {
	q := s.db.WithContext(ctx).Preload("Location")
	if locationID != 0 {
		q = q.Where("location_id = ?", locationID)
	}
	equipment := []models.Equipment{}
	if err := q.Order("name asc").Find(&equipment).Error; err != nil {
		return nil, apperror.Internal("failed to fetch equipment", err)
	}
	return equipment, nil
}

// FindEquipmentByBarcode resolves a scanned code to its equipment.
func (s *LocationService) FindEquipmentByBarcode(ctx context.Context, code string) (*models.Equipment, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.Validation("barcode is required")
	}
	var eq models.Equipment
	if err := s.db.WithContext(ctx).Preload("Location").
		Where("barcode = ? OR serial_number = ?", code, code).First(&eq).Error; err != nil {
		return nil, notFoundOr(err, "no equipment matches code %q", code)
	}
	return &eq, nil
}
