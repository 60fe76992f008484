package review

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/middleware"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"github.com/inkpress/core/internal/pkg/pagination"
	"github.com/inkpress/core/internal/pkg/response"
)

type Handler struct {
	svc    *Service
	oracle roles.Oracle
}

func NewHandler(svc *Service, oracle roles.Oracle) *Handler {
	return &Handler{svc: svc, oracle: oracle}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/reviews", authMW)
	g.GET("/assigned", h.assigned)
	g.GET("/:id", h.get)
}

// assigned lists the authenticated reviewer's records, newest first,
// optionally filtered by status.
func (h *Handler) assigned(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	m, err := h.oracle.Membership(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c)
		return
	}
	if !m.Has(roles.RoleReviewer) {
		response.ForbiddenMsg(c, response.CodeMissingRequiredRole, "reviewer role required")
		return
	}

	status := models.ReviewStatus(c.Query("status"))
	switch status {
	case "", models.ReviewPending, models.ReviewInProgress, models.ReviewCompleted:
	default:
		response.UnprocessableEntity(c, "invalid status filter", gin.H{"status": "must be pending, in_progress or completed"})
		return
	}

	q := pagination.FromContext(c)
	var records []models.ReviewRecordModel
	page, err := pagination.Paginate(h.svc.AssignedQuery(c.Request.Context(), userID, status), q, &records)
	if err != nil {
		response.InternalError(c)
		return
	}

	items := make([]Detail, 0, len(records))
	for i := range records {
		items = append(items, NewDetail(&records[i], userID))
	}
	response.Paged(c, items, page)
}

// get returns one record. Only the reviewing user and the article's author may
// see it; notes stay private to the reviewer.
func (h *Handler) get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	record, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c)
		return
	}

	isReviewer := record.ReviewerID == userID
	isAuthor := record.Article != nil && record.Article.AuthorID == userID
	if !isReviewer && !isAuthor {
		response.Forbidden(c)
		return
	}

	response.OK(c, NewDetail(record, userID))
}
