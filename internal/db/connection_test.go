package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/esilogis/backend/internal/models"
)

func TestPingNil(t *testing.T) {
	assert.Error(t, Ping(nil))
}

// TestConnectAndMigrate runs against a real PostgreSQL container.
func TestConnectAndMigrate(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("esilogis_test"),
		postgres.WithUsername("esilogis"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))
	require.NoError(t, Ping(conn))

	loc := models.Location{Name: "Building S"}
	require.NoError(t, conn.Create(&loc).Error)

	person := models.Person{Email: "tech@esilogis.test", Password: "x", FirstName: "T", LastName: "One", Role: models.RoleTechnician}
	require.NoError(t, conn.Create(&person).Error)

	iv := models.Intervention{
		Description: "leak in S7", Priority: models.PriorityHigh, Status: models.StatusPending,
		LocationID: loc.ID, ReportedByID: person.ID, Version: 1,
	}
	require.NoError(t, conn.Create(&iv).Error)

	a := models.Assignment{InterventionID: iv.ID, PersonID: person.ID, AssignedAt: time.Now()}
	require.NoError(t, conn.Create(&a).Error)
	// composite key rejects a second identical pair
	assert.Error(t, conn.Create(&models.Assignment{InterventionID: iv.ID, PersonID: person.ID, AssignedAt: time.Now()}).Error)
}
