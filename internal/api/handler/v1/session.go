package v1

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

var errNoSession = errors.New("no session in request context")

// getSessionFromContext expects middleware.Authenticator to have run.
func getSessionFromContext(ctx *gin.Context) (domain.Session, *response.Err) {
	sess, ok := middleware.SessionFromContext(ctx)
	if !ok {
		return domain.Session{}, response.ErrUnauthorized(errNoSession)
	}

	return sess, nil
}
