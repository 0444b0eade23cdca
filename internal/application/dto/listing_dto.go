package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// CreateListingRequest body de POST /api/listings.
type CreateListingRequest struct {
	ChannelConnectionID string          `json:"channel_connection_id" validate:"required"`
	InventoryRecordID   string          `json:"inventory_record_id" validate:"required"`
	Price               decimal.Decimal `json:"price"`
	AllocationMode      string          `json:"allocation_mode" validate:"omitempty,oneof=shared dedicated"`
	AllocatedQuantity   int64           `json:"allocated_quantity"`
}

// UpdatePriceRequest body de PUT /api/listings/:id/price.
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// AllocationRequest body de PUT /api/listings/:id/allocation.
// mode=dedicated usa allocated_quantity; delta≠0 ajusta un dedicado existente.
type AllocationRequest struct {
	Mode              string `json:"mode"`
	AllocatedQuantity int64  `json:"allocated_quantity"`
	Delta             int64  `json:"delta"`
}

// ListingResponse salida de un listing.
type ListingResponse struct {
	ID                  string          `json:"id"`
	MerchantID          string          `json:"merchant_id"`
	ChannelConnectionID string          `json:"channel_connection_id"`
	InventoryRecordID   string          `json:"inventory_record_id"`
	SKU                 string          `json:"sku"`
	AllocationMode      string          `json:"allocation_mode"`
	AllocatedQuantity   int64           `json:"allocated_quantity"`
	SoldQuantity        int64           `json:"sold_quantity"`
	Price               decimal.Decimal `json:"price"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToListingResponse convierte la entidad.
func ToListingResponse(l *entity.Listing) *ListingResponse {
	return &ListingResponse{
		ID:                  l.ID,
		MerchantID:          l.MerchantID,
		ChannelConnectionID: l.ChannelConnectionID,
		InventoryRecordID:   l.InventoryRecordID,
		SKU:                 l.SKU,
		AllocationMode:      string(l.AllocationMode),
		AllocatedQuantity:   l.AllocatedQuantity,
		SoldQuantity:        l.SoldQuantity,
		Price:               l.Price,
		Status:              string(l.Status),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// ToListingList convierte una lista.
func ToListingList(ls []*entity.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, *ToListingResponse(l))
	}
	return out
}

// CreateChannelProductRequest body de POST /api/channel-products.
type CreateChannelProductRequest struct {
	ChannelID     string          `json:"channel_id" validate:"required"`
	SKU           string          `json:"sku" validate:"required"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	StockMode     string          `json:"stock_mode" validate:"omitempty,oneof=aggregate lowest fixed"`
	FixedQuantity int64           `json:"fixed_quantity"`
	SafetyBuffer  int64           `json:"safety_buffer"`
}

// AddSourceRequest body de POST /api/channel-products/:id/sources.
type AddSourceRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Priority  int    `json:"priority"`
}

// UpdateSourceRequest body de PATCH /api/channel-products/:id/sources/:sourceId.
type UpdateSourceRequest struct {
	Priority *int  `json:"priority"`
	IsActive *bool `json:"is_active"`
}

// StockSettingsRequest body de PATCH /api/channel-products/:id.
type StockSettingsRequest struct {
	StockMode     *string          `json:"stock_mode"`
	FixedQuantity *int64           `json:"fixed_quantity"`
	SafetyBuffer  *int64           `json:"safety_buffer"`
	Price         *decimal.Decimal `json:"price"`
}

// ChannelProductSourceResponse fuente de un producto de canal.
type ChannelProductSourceResponse struct {
	ID           string `json:"id"`
	ListingID    string `json:"listing_id"`
	Priority     int    `json:"priority"`
	IsActive     bool   `json:"is_active"`
	SoldQuantity int64  `json:"sold_quantity"`
}

// ChannelProductResponse salida de un producto de canal.
type ChannelProductResponse struct {
	ID            string                         `json:"id"`
	ChannelID     string                         `json:"channel_id"`
	SKU           string                         `json:"sku"`
	Title         string                         `json:"title"`
	Price         decimal.Decimal                `json:"price"`
	StockMode     string                         `json:"stock_mode"`
	FixedQuantity int64                          `json:"fixed_quantity"`
	SafetyBuffer  int64                          `json:"safety_buffer"`
	StockQuantity int64                          `json:"stock_quantity"`
	Sources       []ChannelProductSourceResponse `json:"sources"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// ToChannelProductResponse convierte la entidad; las fuentes salen en orden de prioridad guardado.
func ToChannelProductResponse(cp *entity.ChannelProduct) *ChannelProductResponse {
	out := &ChannelProductResponse{
		ID:            cp.ID,
		ChannelID:     cp.ChannelID,
		SKU:           cp.SKU,
		Title:         cp.Title,
		Price:         cp.Price,
		StockMode:     string(cp.StockMode),
		FixedQuantity: cp.FixedQuantity,
		SafetyBuffer:  cp.SafetyBuffer,
		StockQuantity: cp.StockQuantity,
		Sources:       make([]ChannelProductSourceResponse, 0, len(cp.Sources)),
		UpdatedAt:     cp.UpdatedAt,
	}
	for _, s := range cp.Sources {
		out.Sources = append(out.Sources, ChannelProductSourceResponse{
			ID:           s.ID,
			ListingID:    s.ListingID,
			Priority:     s.Priority,
			IsActive:     s.IsActive,
			SoldQuantity: s.SoldQuantity,
		})
	}
	return out
}
