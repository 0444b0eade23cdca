package dto

import (
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// CreateWarehouseRequest entrada para registrar una bodega.
type CreateWarehouseRequest struct {
	Code       string `json:"code" validate:"required,min=1,max=50"`
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Type       string `json:"type" validate:"required,oneof=platform merchant"`
	MerchantID string `json:"merchant_id"`
	Address    string `json:"address"`
}

// WarehouseResponse salida de una bodega.
type WarehouseResponse struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	MerchantID string    `json:"merchant_id,omitempty"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WarehouseListResponse lista paginada de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// ToWarehouseResponse convierte la entidad.
func ToWarehouseResponse(w *entity.Warehouse) *WarehouseResponse {
	return &WarehouseResponse{
		ID:         w.ID,
		Code:       w.Code,
		Name:       w.Name,
		Type:       string(w.Type),
		MerchantID: w.MerchantID,
		Address:    w.Address,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}
