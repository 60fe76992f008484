package category

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	cats := rg.Group("/categories")
	cats.GET("", h.list)
	cats.GET("/:id", h.get)

	admin := cats.Group("", adminMW)
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	cats, err := h.svc.List()
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, cats)
}

func (h *Handler) get(c *gin.Context) {
	cat, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if cat == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, cat)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}
	cat, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, response.CodeAlreadyExists, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, cat)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}
	cat, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c)
		return
	}
	if cat == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, cat)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}
