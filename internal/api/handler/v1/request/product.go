package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

type CreateProductRequest struct {
	Name  string `json:"name"`
	Price *int64 `json:"price"`
}

func (req *CreateProductRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Price, validation.NotNil, validation.Min(int64(0)), validation.Max(domain.MaxAmount)),
	)
}

type BuyRequest struct {
	ProductID uint `json:"productID"`
}

func (req *BuyRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ProductID, validation.Required),
	)
}
