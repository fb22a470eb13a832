package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

type stubResolver struct {
	token string
}

func (r stubResolver) Authenticate(_ context.Context, token, userAgent string) (domain.Session, error) {
	if token != r.token {
		return domain.Session{}, errors.New("invalid session")
	}

	return domain.Session{ID: "sid", AccountID: 42, UserAgent: userAgent}, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", NewAuthenticator(stubResolver{token: "good"}).RequireSession(), func(ctx *gin.Context) {
		sess, ok := SessionFromContext(ctx)
		if !ok {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, sess)
	})

	return r
}

func TestAuthenticator_RequireSession(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(req *http.Request)
		wantStatus int
	}{
		{
			name:       "no token",
			prepare:    func(req *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "bearer token",
			prepare: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer good")
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "lower case scheme",
			prepare: func(req *http.Request) {
				req.Header.Set("Authorization", "bearer good")
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "cookie",
			prepare: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "revoked token",
			prepare: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer stale")
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	r := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"account_id":42`)
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRateLimiter_Limit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewRateLimiter(0.001, 2).Limit(), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestConfigCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ConfigCORS([]string{"http://localhost:3000"}))
	r.GET("/", func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
