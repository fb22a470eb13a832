package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

const (
	// SessionCookie carries the same token as the Authorization header.
	SessionCookie = "session"

	sessionKey = "session"
)

var errMissingToken = errors.New("missing session token")

type SessionResolver interface {
	Authenticate(ctx context.Context, token, userAgent string) (domain.Session, error)
}

type Authenticator struct {
	resolver SessionResolver
}

func NewAuthenticator(resolver SessionResolver) *Authenticator {
	return &Authenticator{
		resolver: resolver,
	}
}

// RequireSession rejects the request with 401 unless it carries a token of a
// live session, then stores the session in the gin context.
func (a *Authenticator) RequireSession() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		sess, err := a.resolver.Authenticate(ctx.Request.Context(), token, ctx.Request.UserAgent())
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		ctx.Set(sessionKey, sess)
		ctx.Next()
	}
}

func SessionFromContext(ctx *gin.Context) (domain.Session, bool) {
	v, ok := ctx.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}

	sess, ok := v.(domain.Session)
	return sess, ok
}

func extractToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if cookie, err := ctx.Cookie(SessionCookie); err == nil {
		return cookie
	}

	return ""
}
