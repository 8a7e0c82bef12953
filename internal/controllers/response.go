package controllers

import (
	"net/http"
	"strconv"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/middleware"
	"github.com/esilogis/backend/internal/models"
	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
	})
}

// respondError maps a service error onto the JSON error envelope.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.WithError(err, "controller").WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{
		"success": false,
		"code":    kind,
		"message": err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    apperror.KindValidation,
		"message": message,
	})
}

// actor returns the caller, writing a 401 when the auth middleware did not run.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"code":    apperror.KindUnauthorized,
			"message": "User not authenticated",
		})
	}
	return a, ok
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
