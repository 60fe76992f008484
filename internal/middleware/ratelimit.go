package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/pkg/jwt"
	"github.com/inkpress/core/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimit enforces a per-IP window limit for unauthenticated requests.
// Only requests bearing a token that actually parses are exempt, so a made-up
// Authorization header does not buy a way around the limit.
func RateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if HasParseableToken(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("ip:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble should not take the API down with it.
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > rateLimitMax {
			c.Header("Retry-After", "1")
			response.Fail(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests, slow down")
			return
		}

		c.Next()
	}
}

// HasParseableToken reports whether the Authorization header carries a JWT
// with a valid signature. Expiry and user existence are left to the auth
// middleware.
func HasParseableToken(c *gin.Context) bool {
	token := NormalizeToken(c.GetHeader("Authorization"))
	if token == "" {
		return false
	}
	_, err := jwt.Parse(token)
	return err == nil
}
