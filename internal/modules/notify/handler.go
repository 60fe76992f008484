package notify

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/middleware"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/pkg/pagination"
	"github.com/inkpress/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes each user's own notification feed.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)
	g.GET("", h.list)
	g.POST("/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	q := pagination.FromContext(c)

	query := h.db.Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND lifecycle = ?", userID, models.LifecycleActive).
		Order("created_at DESC")
	if c.Query("unread") == "true" {
		query = query.Where("`read` = ?", false)
	}

	var items []models.NotificationModel
	page, err := pagination.Paginate(query, q, &items)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) markRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var n models.NotificationModel
	err := h.db.Where("id = ? AND recipient_id = ? AND lifecycle = ?",
		c.Param("id"), userID, models.LifecycleActive).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c)
		return
	}

	if err := h.db.Model(&n).Update("read", true).Error; err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, n)
}
