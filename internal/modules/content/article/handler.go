package article

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/middleware"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/access"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"github.com/inkpress/core/internal/modules/editorial/workflow"
	"github.com/inkpress/core/internal/pkg/markdown"
	"github.com/inkpress/core/internal/pkg/pagination"
	"github.com/inkpress/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	engine *workflow.Engine
	oracle roles.Oracle
	logger *zap.Logger
}

func NewHandler(svc *Service, engine *workflow.Engine, oracle roles.Oracle, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, engine: engine, oracle: oracle, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/articles", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/mentionable", h.mentionable)

	g.POST("/:id/submit", h.submit)
	g.POST("/:id/claim-review", h.claimReview)
	g.POST("/:id/review-decision", h.reviewDecision)
	g.POST("/:id/publish", h.publish)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/assign-reviewer", h.assignReviewer)
	g.POST("/:id/assign-editor", h.assignEditor)
}

// membership resolves the caller's role snapshot; a vanished user gets 401.
func (h *Handler) membership(c *gin.Context) (roles.Membership, bool) {
	m, err := h.oracle.Membership(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Unauthorized(c)
		return roles.Membership{}, false
	}
	return m, true
}

func (h *Handler) list(c *gin.Context) {
	m, ok := h.membership(c)
	if !ok {
		return
	}

	query := h.svc.VisibleQuery(c.Request.Context(), m)
	if status := models.ArticleStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			response.UnprocessableEntity(c, "invalid status filter", gin.H{"status": "unknown status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	q := pagination.FromContext(c)
	var items []models.ArticleModel
	page, err := pagination.Paginate(query, q, &items)
	if err != nil {
		h.logger.Error("list articles", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) create(c *gin.Context) {
	m, ok := h.membership(c)
	if !ok {
		return
	}
	if !m.Has(roles.RoleContributor) && !m.IsManager() {
		response.ForbiddenMsg(c, response.CodeMissingRequiredRole, "contributor role required")
		return
	}

	var dto CreateArticleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}

	a, err := h.svc.Create(c.Request.Context(), m.UserID, &dto)
	if err != nil {
		h.logger.Error("create article", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, a)
}

// loadWithLevel fetches the article and computes the caller's permission.
func (h *Handler) loadWithLevel(c *gin.Context) (*models.ArticleModel, access.Level, bool) {
	m, ok := h.membership(c)
	if !ok {
		return nil, access.None, false
	}
	a, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return nil, access.None, false
	}
	if err != nil {
		h.logger.Error("load article", zap.Error(err))
		response.InternalError(c)
		return nil, access.None, false
	}
	return a, access.PermissionLevel(m, a), true
}

func (h *Handler) get(c *gin.Context) {
	a, level, ok := h.loadWithLevel(c)
	if !ok {
		return
	}
	if level < access.Read {
		response.Forbidden(c)
		return
	}

	response.OK(c, gin.H{
		"article":    a,
		"html":       markdown.Render(a.Text),
		"permission": level.String(),
	})
}

func (h *Handler) update(c *gin.Context) {
	a, level, ok := h.loadWithLevel(c)
	if !ok {
		return
	}
	if level < access.Write {
		response.Forbidden(c)
		return
	}

	var dto UpdateArticleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), a, &dto)
	if err != nil {
		h.logger.Error("update article", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, updated)
}

// delete soft-deletes a draft. Only the author of a draft or a manager may do
// it; articles in flight stay visible to their reviewers.
func (h *Handler) delete(c *gin.Context) {
	m, ok := h.membership(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c)
		return
	}

	ownDraft := a.AuthorID == m.UserID && a.Status == models.StatusDraft
	if !ownDraft && !m.IsManager() {
		response.Forbidden(c)
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), a.ID); err != nil {
		h.logger.Error("delete article", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}

func (h *Handler) mentionable(c *gin.Context) {
	a, level, ok := h.loadWithLevel(c)
	if !ok {
		return
	}
	if level < access.Read {
		response.Forbidden(c)
		return
	}
	response.OK(c, gin.H{"user_ids": access.Mentionable(a)})
}

func (h *Handler) submit(c *gin.Context) {
	h.transition(c, workflow.TransitionInput{
		ArticleID: c.Param("id"),
		Target:    models.StatusSubmittedForReview,
		ActorID:   middleware.CurrentUserID(c),
	})
}

func (h *Handler) claimReview(c *gin.Context) {
	var dto ClaimReviewDTO
	// Body is optional for a self-claim.
	_ = c.ShouldBindJSON(&dto)

	h.transition(c, workflow.TransitionInput{
		ArticleID:  c.Param("id"),
		Target:     models.StatusUnderReview,
		ActorID:    middleware.CurrentUserID(c),
		ReviewerID: dto.ReviewerID,
	})
}

func (h *Handler) reviewDecision(c *gin.Context) {
	var dto ReviewDecisionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"decision": "required"})
		return
	}

	var target models.ArticleStatus
	switch dto.Decision {
	case DecisionChangesRequested:
		target = models.StatusChangesRequested
	case DecisionReady:
		target = models.StatusReadyForPublishing
	case DecisionRejected:
		target = models.StatusRejected
	default:
		response.UnprocessableEntity(c, "invalid review decision", gin.H{
			"decision": "must be changes_requested, ready or rejected",
		})
		return
	}

	h.transition(c, workflow.TransitionInput{
		ArticleID: c.Param("id"),
		Target:    target,
		ActorID:   middleware.CurrentUserID(c),
		Notes:     dto.Notes,
	})
}

func (h *Handler) publish(c *gin.Context) {
	h.transition(c, workflow.TransitionInput{
		ArticleID: c.Param("id"),
		Target:    models.StatusPublished,
		ActorID:   middleware.CurrentUserID(c),
	})
}

// reject is the manager force-override; it works from any non-terminal state.
func (h *Handler) reject(c *gin.Context) {
	var dto ReviewDecisionDTO
	_ = c.ShouldBindJSON(&dto)

	h.transition(c, workflow.TransitionInput{
		ArticleID: c.Param("id"),
		Target:    models.StatusRejected,
		ActorID:   middleware.CurrentUserID(c),
		Notes:     dto.Notes,
	})
}

func (h *Handler) assignReviewer(c *gin.Context) {
	var dto AssignDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"user_id": "required"})
		return
	}
	a, err := h.engine.AssignReviewer(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.UserID)
	if err != nil {
		h.workflowError(c, err)
		return
	}
	response.OK(c, a)
}

func (h *Handler) assignEditor(c *gin.Context) {
	var dto AssignDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"user_id": "required"})
		return
	}
	a, err := h.engine.AssignEditor(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.UserID)
	if err != nil {
		h.workflowError(c, err)
		return
	}
	response.OK(c, a)
}

func (h *Handler) transition(c *gin.Context, in workflow.TransitionInput) {
	a, err := h.engine.Transition(c.Request.Context(), in)
	if err != nil {
		h.workflowError(c, err)
		return
	}
	response.OK(c, a)
}

// workflowError translates the engine's error taxonomy to the response envelope.
func (h *Handler) workflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, workflow.ErrForbidden):
		response.ForbiddenMsg(c, response.CodeForbidden, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, workflow.ErrConflictingTransition):
		response.Conflict(c, response.CodeConflict, err.Error())
	default:
		h.logger.Error("workflow transition", zap.Error(err))
		response.InternalError(c)
	}
}
