package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"scorta/pkg/metrics"
	"scorta/pkg/response"
)

type SystemHandler struct {
	db      *gorm.DB
	started time.Time
}

func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{db: db, started: time.Now()}
}

// Health pings the database and reports uptime.
func (h *SystemHandler) Health(c *gin.Context) {
	dbStatus := "up"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "down"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "down"
	}
	status := "ok"
	if dbStatus != "up" {
		status = "degraded"
	}
	c.JSON(200, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.started).String(),
	})
}

// SystemStats exposes host cpu/mem figures for the ops dashboard.
func (h *SystemHandler) SystemStats(c *gin.Context) {
	response.Success(c, "ok", metrics.CollectSystemStats())
}
