package response

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Err struct {
	HTTPStatusCode int    `json:"-"`
	Message        string `json:"error"`
	Err            error  `json:"-"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Err) Unwrap() error {
	return e.Err
}

func ErrBadRequest(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusBadRequest,
		Message:        err.Error(),
		Err:            err,
	}
}

func ErrNotFound(resource, key string, value interface{}) *Err {
	return &Err{
		HTTPStatusCode: http.StatusNotFound,
		Message:        fmt.Sprintf("%s with %s=%v was not found", resource, key, value),
	}
}

func ErrWrongCredentials(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "wrong user name or password",
		Err:            err,
	}
}

func ErrUnauthorized(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "please log in first",
		Err:            err,
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusForbidden,
		Message:        "permission denied",
		Err:            err,
	}
}

func ErrConflict(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusConflict,
		Message:        err.Error(),
		Err:            err,
	}
}

func ErrTooManyRequests() *Err {
	return &Err{
		HTTPStatusCode: http.StatusTooManyRequests,
		Message:        "too many requests, slow down",
	}
}

// ErrInternalServerError hides err from the client. It is logged by RenderErr.
func ErrInternalServerError(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusInternalServerError,
		Message:        "internal server error",
		Err:            err,
	}
}

func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(e.Err),
		)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}
