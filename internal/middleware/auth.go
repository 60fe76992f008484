package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/pkg/jwt"
	"github.com/inkpress/core/internal/pkg/response"
	"gorm.io/gorm"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces JWT authentication.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := ValidateToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// AdminOnly enforces authentication plus the manager/admin capability. The
// token is validated inline; nothing downstream runs until both checks pass.
func AdminOnly(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := ValidateToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		var user models.UserModel
		if err := db.Select("id, is_admin").First(&user, "id = ?", userID).Error; err != nil || !user.IsAdmin {
			response.Forbidden(c)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// ValidateToken validates a JWT and returns the authenticated user id. The
// user must still exist; a token for a deleted account is rejected.
func ValidateToken(db *gorm.DB, rawToken string) (string, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return "", errors.New("token is required")
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&models.UserModel{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "", errors.New("user no longer exists")
	}
	return claims.UserID, nil
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
