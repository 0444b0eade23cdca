package dto

import (
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// UpsertProductRequest ficha de catálogo que usan los documentos de salida.
type UpsertProductRequest struct {
	SKU      string `json:"sku" validate:"required,min=1,max=100"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	ImageURL string `json:"image_url"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToProductResponse convierte la entidad.
func ToProductResponse(p *entity.Product) *ProductResponse {
	return &ProductResponse{
		ID:         p.ID,
		MerchantID: p.MerchantID,
		SKU:        p.SKU,
		Name:       p.Name,
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
