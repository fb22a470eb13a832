package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/request"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/config"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, account domain.Account, balance *int64) (domain.Account, error)
	Login(ctx context.Context, userName, password, userAgent string) (service.LoginResult, error)
	Logout(ctx context.Context, sess domain.Session) (domain.Account, error)
	DeleteAccount(ctx context.Context, sess domain.Session) error
}

type AuthHandler struct {
	conf *config.APIConfig
	svc  AuthService
}

func NewAuthHandler(conf *config.APIConfig, svc AuthService) *AuthHandler {
	return &AuthHandler{
		conf: conf,
		svc:  svc,
	}
}

// HandleRegister godoc
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request   body      request.RegisterRequest true "request body"
// @Success      201      {object}   domain.Account
// @Failure      400      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/register [post]
func (h *AuthHandler) HandleRegister(ctx *gin.Context) {
	var req request.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	account, err := h.svc.Register(ctx.Request.Context(), domain.Account{
		Name:     req.Name,
		UserName: req.UserName,
		Password: req.Password,
	}, req.Balance)
	if err != nil {
		if errors.Is(err, service.ErrUserNameExists) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrUserNameExists))
			return
		}

		err = fmt.Errorf("v1.HandleRegister -> h.svc.Register -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, account)
}

// HandleLogin godoc
// @Summary      Log in and start a session
// @Description  Returns a session token and also sets it as an HttpOnly cookie.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request   body      request.LoginRequest true "request body"
// @Success      200      {object}   response.LoginResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/login [post]
func (h *AuthHandler) HandleLogin(ctx *gin.Context) {
	req := request.LoginRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Login(ctx.Request.Context(), req.UserName, req.Password, ctx.Request.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.RenderErr(ctx, response.ErrWrongCredentials(err))
			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.svc.Login -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, result.Token, int(h.conf.SessionTTL.Seconds()), "/", "", h.secureCookies(), true)

	ctx.JSON(http.StatusOK, response.LoginResponse{
		Message: fmt.Sprintf("Successfully logged in. Welcome %s", result.Account.Name),
		Token:   result.Token,
	})
}

// HandleLogout godoc
// @Summary      Log out of the current session
// @Tags         users
// @Produce      json
// @Success      200      {object}   response.MessageResponse
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/logout [post]
// @Security BearerAuth
func (h *AuthHandler) HandleLogout(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	account, err := h.svc.Logout(ctx.Request.Context(), sess)
	h.clearCookie(ctx)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("account", "id", sess.AccountID))
			return
		}

		err = fmt.Errorf("v1.HandleLogout -> h.svc.Logout -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.MessageResponse{
		Message: fmt.Sprintf("Successfully logged out %s", account.Name),
	})
}

// HandleDeleteMe godoc
// @Summary      Delete the logged in account
// @Description  Deletes the account, every item it owns and all of its sessions.
// @Tags         users
// @Produce      json
// @Success      200      {object}   response.MessageResponse
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/me [delete]
// @Security BearerAuth
func (h *AuthHandler) HandleDeleteMe(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteAccount(ctx.Request.Context(), sess); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("account", "id", sess.AccountID))
			return
		}

		err = fmt.Errorf("v1.HandleDeleteMe -> h.svc.DeleteAccount -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	h.clearCookie(ctx)
	ctx.JSON(http.StatusOK, response.MessageResponse{
		Message: "User deleted successfully",
	})
}

func (h *AuthHandler) clearCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies(), true)
}

func (h *AuthHandler) secureCookies() bool {
	return h.conf.Environment == "production"
}
