package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/inkpress/core/internal/pkg/redis"
	"gorm.io/gorm"
)

// Handler reports liveness of the process and its backing stores.
type Handler struct {
	db      *gorm.DB
	rc      *pkgredis.Client
	started time.Time
}

func NewHandler(db *gorm.DB, rc *pkgredis.Client) *Handler {
	return &Handler{db: db, rc: rc, started: time.Now()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.check)
}

func (h *Handler) check(c *gin.Context) {
	ctx := c.Request.Context()

	dbOK := false
	if sqlDB, err := h.db.DB(); err == nil {
		dbOK = sqlDB.PingContext(ctx) == nil
	}

	redisOK := h.rc != nil && h.rc.Ping(ctx) == nil

	status := "ok"
	code := http.StatusOK
	if !dbOK || !redisOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbOK,
		"redis":    redisOK,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
