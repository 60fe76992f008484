package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/middleware"
	"github.com/inkpress/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", h.login)
	g.GET("/me", authMW, h.me)

	rg.POST("/users", adminMW, h.createUser)
}

type loginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var dto loginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), strings.TrimSpace(dto.Username), dto.Password, c.ClientIP())
	if errors.Is(err, ErrInvalidCredentials) {
		response.Fail(c, 401, response.CodeInvalidCredentials, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("login", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"token": token, "user": user})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "invalid request body", gin.H{"error": err.Error()})
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), &dto)
	if errors.Is(err, ErrUsernameTaken) {
		response.Conflict(c, response.CodeAlreadyExists, err.Error())
		return
	}
	if err != nil {
		if strings.Contains(err.Error(), "unknown role") {
			response.UnprocessableEntity(c, err.Error(), gin.H{"roles": "unknown role name"})
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, user)
}
