package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/225715H/chat-app/tools/errs"
)

const (
	ctxUserID   = "auth.user_id"
	ctxUserName = "auth.user_name"
	ctxToken    = "auth.token"
)

// SessionValidator authenticates a bearer token and slides the session
// expiry forward. Implemented by the user service.
type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (userID int64, name string, err error)
}

// Auth extracts the session token (Authorization: Bearer, or a token query
// parameter for websocket clients that cannot set headers), validates it,
// and stores the caller identity on the request context.
func Auth(v SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		userID, name, err := v.ValidateToken(c.Request.Context(), token)
		if err != nil {
			Fail(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUserName, name)
		c.Set(ctxToken, token)
		c.Next()
	}
}

func BearerToken(c *gin.Context) string {
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	return strings.TrimSpace(c.Query("token"))
}

func CallerID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func CallerName(c *gin.Context) string {
	return c.GetString(ctxUserName)
}

func Token(c *gin.Context) string {
	return c.GetString(ctxToken)
}

// Fail writes the taxonomy-mapped error response.
func Fail(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{
		"error": gin.H{
			"code":    errs.CodeOf(err),
			"message": errs.MessageOf(err),
		},
	})
}
