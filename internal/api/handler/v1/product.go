package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/request"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/service"
)

var errInvalidProductID = errors.New("product id must be a positive integer")

type ItemService interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, ownerID uint, name string, price int64) (domain.Item, error)
	DeleteItem(ctx context.Context, accountID, itemID uint) error
}

type PurchaseService interface {
	Buy(ctx context.Context, buyerID, itemID uint) (domain.PurchaseResult, error)
}

type ProductHandler struct {
	items     ItemService
	purchases PurchaseService
}

func NewProductHandler(items ItemService, purchases PurchaseService) *ProductHandler {
	return &ProductHandler{
		items:     items,
		purchases: purchases,
	}
}

// HandleCreateProduct godoc
// @Summary      List a new product owned by the logged in account
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request   body      request.CreateProductRequest true "request body"
// @Success      201      {object}   domain.Item
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /products [post]
// @Security BearerAuth
func (h *ProductHandler) HandleCreateProduct(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	item, err := h.items.CreateItem(ctx.Request.Context(), sess.AccountID, req.Name, *req.Price)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("account", "id", sess.AccountID))
			return
		}

		err = fmt.Errorf("v1.HandleCreateProduct -> h.items.CreateItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, item)
}

// HandleListProducts godoc
// @Summary      List all products
// @Description  Owners are never included.
// @Tags         products
// @Produce      json
// @Success      200      {array}    domain.Item
// @Failure      500      {object}   response.Err
// @Router       /products [get]
func (h *ProductHandler) HandleListProducts(ctx *gin.Context) {
	items, err := h.items.ListItems(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleListProducts -> h.items.ListItems -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleDeleteProduct godoc
// @Summary      Delete a product owned by the logged in account
// @Tags         products
// @Produce      json
// @Param        id       path       int  true  "product id"
// @Success      200      {object}   response.MessageResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /products/{id} [delete]
// @Security BearerAuth
func (h *ProductHandler) HandleDeleteProduct(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.RenderErr(ctx, response.ErrBadRequest(errInvalidProductID))
		return
	}

	if err = h.items.DeleteItem(ctx.Request.Context(), sess.AccountID, uint(id)); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("product", "id", id))
			return
		}
		if errors.Is(err, service.ErrNotItemOwner) {
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
			return
		}

		err = fmt.Errorf("v1.HandleDeleteProduct -> h.items.DeleteItem -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.MessageResponse{
		Message: "Product deleted successfully",
	})
}

// HandleBuyProduct godoc
// @Summary      Buy a product
// @Description  Already owning the product or lacking funds is not an error; the outcome field says what happened.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request   body      request.BuyRequest true "request body"
// @Success      200      {object}   domain.PurchaseResult
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /products/buy [post]
// @Security BearerAuth
func (h *ProductHandler) HandleBuyProduct(ctx *gin.Context) {
	sess, respErr := getSessionFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.BuyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.purchases.Buy(ctx.Request.Context(), sess.AccountID, req.ProductID)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("product", "id", req.ProductID))
			return
		}
		if errors.Is(err, service.ErrBuyerNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("account", "id", sess.AccountID))
			return
		}
		if errors.Is(err, service.ErrBalanceOverflow) {
			response.RenderErr(ctx, response.ErrConflict(service.ErrBalanceOverflow))
			return
		}

		err = fmt.Errorf("v1.HandleBuyProduct -> h.purchases.Buy -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, result)
}
