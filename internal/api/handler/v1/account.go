package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/service"
)

type AccountService interface {
	Profile(ctx context.Context, accountID uint) (domain.AccountWithItems, error)
	Summary(ctx context.Context) ([]domain.AccountWithItems, error)
}

type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{
		svc: svc,
	}
}

// HandleGetMe godoc
// @Summary      Get the logged in account with its items
// @Tags         users
// @Produce      json
// @Success      200      {object}   domain.AccountWithItems
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /users/me [get]
// @Security BearerAuth
func (h *AccountHandler) HandleGetMe(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	profile, err := h.svc.Profile(ctx.Request.Context(), sess.AccountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("account", "id", sess.AccountID))
			return
		}

		err = fmt.Errorf("v1.HandleGetMe -> h.svc.Profile -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, profile)
}

// HandleGetSummary godoc
// @Summary      List every account with the items it owns
// @Tags         users
// @Produce      json
// @Success      200      {array}    domain.AccountWithItems
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /summary [get]
// @Security BearerAuth
func (h *AccountHandler) HandleGetSummary(ctx *gin.Context) {
	summary, err := h.svc.Summary(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleGetSummary -> h.svc.Summary -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
