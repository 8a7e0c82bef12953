package services

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/esilogis/backend/internal/db"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/models"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

// fixture holds a migrated in-memory database with a few people and places.
type fixture struct {
	db        *gorm.DB
	svc       *InterventionService
	clock     *time.Time
	admin     models.Actor
	tech1     models.Actor
	tech2     models.Actor
	user      models.Actor
	location  models.Location
	equipment models.Equipment
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(conn))
	return conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)

	f := &fixture{db: conn}
	now := fixedNow
	f.clock = &now
	f.svc = NewInterventionService(conn).WithClock(func() time.Time { return *f.clock })

	f.admin = f.person(t, "admin@esilogis.test", models.RoleAdmin)
	f.tech1 = f.person(t, "tech1@esilogis.test", models.RoleTechnician)
	f.tech2 = f.person(t, "tech2@esilogis.test", models.RoleTechnician)
	f.user = f.person(t, "user@esilogis.test", models.RoleUser)

	f.location = models.Location{Name: "Building S - Room 7"}
	require.NoError(t, conn.Create(&f.location).Error)
	f.equipment = models.Equipment{Name: "Boiler B2", LocationID: f.location.ID}
	require.NoError(t, conn.Create(&f.equipment).Error)

	return f
}

func (f *fixture) person(t *testing.T, email string, role models.Role) models.Actor {
	t.Helper()
	p := models.Person{Email: email, Password: "x", FirstName: "Test", LastName: string(role), Role: role}
	require.NoError(t, f.db.Create(&p).Error)
	return models.Actor{ID: p.ID, Email: p.Email, Role: p.Role}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// reported creates a PENDING intervention reported by the plain user.
func (f *fixture) reported(t *testing.T, description string) *models.Intervention {
	t.Helper()
	iv, err := f.svc.CreateIntervention(ctxBG, f.user, CreateInterventionInput{
		Description: description,
		Priority:    "HIGH",
		LocationID:  f.location.ID,
	})
	require.NoError(t, err)
	return iv
}

// assigned creates an intervention with tech1 assigned to it.
func (f *fixture) assigned(t *testing.T, description string) *models.Intervention {
	t.Helper()
	iv := f.reported(t, description)
	_, err := f.svc.AssignMultiple(ctxBG, f.admin, []uint{iv.ID}, []uint{f.tech1.ID})
	require.NoError(t, err)
	return iv
}

func (f *fixture) assignmentCount(t *testing.T, interventionID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Assignment{}).Where("intervention_id = ?", interventionID).Count(&n).Error)
	return n
}
