// Package seed loads reference data (people, locations, equipment) from a JSON
// file. Existing rows are left untouched, so a file can be applied repeatedly.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/esilogis/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PersonData represents the structure of persons in the JSON file
type PersonData struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Role      string  `json:"role"`
	Phone     *string `json:"phone"`
}

type LocationData struct {
	Name        string  `json:"name"`
	Building    *string `json:"building"`
	Floor       *string `json:"floor"`
	Description *string `json:"description"`
}

// EquipmentData references its location by name.
type EquipmentData struct {
	Name         string  `json:"name"`
	SerialNumber *string `json:"serialNumber"`
	Barcode      *string `json:"barcode"`
	Location     string  `json:"location"`
}

// File represents the structure of the seed file
type File struct {
	Persons   []PersonData    `json:"persons"`
	Locations []LocationData  `json:"locations"`
	Equipment []EquipmentData `json:"equipment"`
}

// Event reports the outcome for one seeded record.
type Event struct {
	Kind    string
	Name    string
	Created bool
	Err     error
}

type Summary struct {
	Created int
	Skipped int
	Failed  int
}

func (s *Summary) add(e Event) {
	switch {
	case e.Err != nil:
		s.Failed++
	case e.Created:
		s.Created++
	default:
		s.Skipped++
	}
}

// Load reads a seed file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// Apply inserts every record that does not exist yet. report, when non-nil,
// is called once per record. Per-record failures are counted, not returned.
func Apply(ctx context.Context, conn *gorm.DB, f *File, report func(Event)) (Summary, error) {
	var summary Summary
	emit := func(e Event) {
		summary.add(e)
		if report != nil {
			report(e)
		}
	}

	conn = conn.WithContext(ctx)
	for _, p := range f.Persons {
		created, err := seedPerson(conn, p)
		emit(Event{Kind: "person", Name: p.Email, Created: created, Err: err})
	}

	locationIDs := map[string]uint{}
	for _, l := range f.Locations {
		id, created, err := seedLocation(conn, l)
		if err == nil {
			locationIDs[l.Name] = id
		}
		emit(Event{Kind: "location", Name: l.Name, Created: created, Err: err})
	}

	for _, e := range f.Equipment {
		created, err := seedEquipment(conn, e, locationIDs)
		emit(Event{Kind: "equipment", Name: e.Name, Created: created, Err: err})
	}

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

func seedPerson(conn *gorm.DB, p PersonData) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	role, ok := models.ParseRole(strings.ToUpper(p.Role))
	if !ok {
		return false, fmt.Errorf("unknown role %q", p.Role)
	}

	var count int64
	if err := conn.Model(&models.Person{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	person := models.Person{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      role,
		Phone:     p.Phone,
	}
	if err := conn.Create(&person).Error; err != nil {
		return false, err
	}
	return true, nil
}

func seedLocation(conn *gorm.DB, l LocationData) (uint, bool, error) {
	var existing models.Location
	err := conn.Where("name = ?", l.Name).Limit(1).Find(&existing).Error
	if err != nil {
		return 0, false, err
	}
	if existing.ID != 0 {
		return existing.ID, false, nil
	}

	loc := models.Location{
		Name:        l.Name,
		Building:    l.Building,
		Floor:       l.Floor,
		Description: l.Description,
	}
	if err := conn.Create(&loc).Error; err != nil {
		return 0, false, err
	}
	return loc.ID, true, nil
}

func seedEquipment(conn *gorm.DB, e EquipmentData, locationIDs map[string]uint) (bool, error) {
	locationID, ok := locationIDs[e.Location]
	if !ok {
		return false, fmt.Errorf("unknown location %q", e.Location)
	}

	var count int64
	if err := conn.Model(&models.Equipment{}).
		Where("name = ? AND location_id = ?", e.Name, locationID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	eq := models.Equipment{
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Barcode:      e.Barcode,
		LocationID:   locationID,
	}
	if err := conn.Create(&eq).Error; err != nil {
		return false, err
	}
	return true, nil
}
