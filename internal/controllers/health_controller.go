package controllers

import (
	"net/http"
	"time"

	"github.com/esilogis/backend/internal/config"
	"github.com/esilogis/backend/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	conn *gorm.DB
	now  func() time.Time
}

func NewHealthController(conn *gorm.DB) *HealthController {
	return &HealthController{conn: conn, now: time.Now}
}

// Health reports the service and database status.
func (hc *HealthController) Health(c *gin.Context) {
	database := gin.H{"status": "ok"}
	status, code := "ok", http.StatusOK
	if err := db.Ping(hc.conn); err != nil {
		database = gin.H{"status": "error", "error": err.Error()}
		status, code = "error", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": hc.now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"services": gin.H{
			"database": database,
		},
	})
}
