package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// OutboundItemResponse línea del documento de salida.
type OutboundItemResponse struct {
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	Quantity    int64  `json:"quantity"`
}

// OutboundResponse documento de salida con su estado físico y de sincronización.
type OutboundResponse struct {
	ID             string                 `json:"id"`
	OutboundNo     string                 `json:"outbound_no"`
	FulfillmentID  string                 `json:"fulfillment_id"`
	OrderID        string                 `json:"order_id"`
	WarehouseID    string                 `json:"warehouse_id"`
	Status         string                 `json:"status"`
	SyncStatus     string                 `json:"sync_status"`
	ExternalID     string                 `json:"external_id,omitempty"`
	SyncAttempts   int                    `json:"sync_attempts"`
	SyncError      string                 `json:"sync_error,omitempty"`
	LastSyncAt     *time.Time             `json:"last_sync_at,omitempty"`
	Receiver       entity.Address         `json:"receiver"`
	Carrier        string                 `json:"carrier,omitempty"`
	TrackingNumber string                 `json:"tracking_number,omitempty"`
	Items          []OutboundItemResponse `json:"items"`
	ShippedAt      *time.Time             `json:"shipped_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ToOutboundResponse convierte la entidad.
func ToOutboundResponse(o *entity.OutboundOrder) *OutboundResponse {
	out := &OutboundResponse{
		ID:             o.ID,
		OutboundNo:     o.OutboundNo,
		FulfillmentID:  o.FulfillmentID,
		OrderID:        o.OrderID,
		WarehouseID:    o.WarehouseID,
		Status:         string(o.Status),
		SyncStatus:     string(o.SyncStatus),
		ExternalID:     o.ExternalID,
		SyncAttempts:   o.SyncAttempts,
		SyncError:      o.SyncError,
		LastSyncAt:     o.LastSyncAt,
		Receiver:       o.Receiver,
		Carrier:        o.Carrier,
		TrackingNumber: o.TrackingNumber,
		Items:          make([]OutboundItemResponse, 0, len(o.Items)),
		ShippedAt:      o.ShippedAt,
		CreatedAt:      o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, OutboundItemResponse{
			SKU: it.SKU, ProductName: it.ProductName, ImageURL: it.ImageURL, Quantity: it.Quantity,
		})
	}
	return out
}

// ToOutboundList convierte una lista.
func ToOutboundList(os []*entity.OutboundOrder) []OutboundResponse {
	out := make([]OutboundResponse, 0, len(os))
	for _, o := range os {
		out = append(out, *ToOutboundResponse(o))
	}
	return out
}

// SyncPendingResponse resultado de un barrido de sincronización.
type SyncPendingResponse struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// CreateInboundRequest body de POST /api/inbound.
type CreateInboundRequest struct {
	WarehouseID       string                     `json:"warehouse_id" validate:"required"`
	ExpectedArrivalAt *time.Time                 `json:"expected_arrival_at"`
	Remark            string                     `json:"remark"`
	Items             []CreateInboundItemRequest `json:"items" validate:"required,min=1"`
}

// CreateInboundItemRequest línea esperada.
type CreateInboundItemRequest struct {
	SKU              string           `json:"sku"`
	ExpectedQuantity int64            `json:"expected_quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ConfirmItemRequest body de POST /api/inbound/:id/items/:itemId/confirm.
type ConfirmItemRequest struct {
	Received int64            `json:"received"`
	Damaged  int64            `json:"damaged"`
	Remark   string           `json:"remark"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// InboundItemResponse línea esperada vs recibida.
type InboundItemResponse struct {
	ID                string              `json:"id"`
	SKU               string              `json:"sku"`
	InventoryRecordID string              `json:"inventory_record_id"`
	ExpectedQuantity  int64               `json:"expected_quantity"`
	ReceivedQuantity  int64               `json:"received_quantity"`
	DamagedQuantity   int64               `json:"damaged_quantity"`
	UnitCost          decimal.NullDecimal `json:"unit_cost"`
	Status            string              `json:"status"`
	Remark            string              `json:"remark,omitempty"`
}

// InboundResponse documento de entrada.
type InboundResponse struct {
	ID                string                `json:"id"`
	InboundNo         string                `json:"inbound_no"`
	MerchantID        string                `json:"merchant_id"`
	WarehouseID       string                `json:"warehouse_id"`
	Status            string                `json:"status"`
	Carrier           string                `json:"carrier,omitempty"`
	TrackingNumber    string                `json:"tracking_number,omitempty"`
	ExpectedArrivalAt *time.Time            `json:"expected_arrival_at,omitempty"`
	Remark            string                `json:"remark,omitempty"`
	Items             []InboundItemResponse `json:"items"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// ToInboundResponse convierte la entidad.
func ToInboundResponse(o *entity.InboundOrder) *InboundResponse {
	out := &InboundResponse{
		ID:                o.ID,
		InboundNo:         o.InboundNo,
		MerchantID:        o.MerchantID,
		WarehouseID:       o.WarehouseID,
		Status:            string(o.Status),
		Carrier:           o.Carrier,
		TrackingNumber:    o.TrackingNumber,
		ExpectedArrivalAt: o.ExpectedArrivalAt,
		Remark:            o.Remark,
		Items:             make([]InboundItemResponse, 0, len(o.Items)),
		CompletedAt:       o.CompletedAt,
		CreatedAt:         o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, InboundItemResponse{
			ID:                it.ID,
			SKU:               it.SKU,
			InventoryRecordID: it.InventoryRecordID,
			ExpectedQuantity:  it.ExpectedQuantity,
			ReceivedQuantity:  it.ReceivedQuantity,
			DamagedQuantity:   it.DamagedQuantity,
			UnitCost:          it.UnitCost,
			Status:            string(it.Status),
			Remark:            it.Remark,
		})
	}
	return out
}

// ToInboundList convierte una lista.
func ToInboundList(os []*entity.InboundOrder) []InboundResponse {
	out := make([]InboundResponse, 0, len(os))
	for _, o := range os {
		out = append(out, *ToInboundResponse(o))
	}
	return out
}

// CreateExceptionRequest novedad manual.
type CreateExceptionRequest struct {
	InboundOrderID     string `json:"inbound_order_id" validate:"required"`
	InboundOrderItemID string `json:"inbound_order_item_id"`
	Type               string `json:"type" validate:"required"`
	Quantity           int64  `json:"quantity"`
	Description        string `json:"description"`
}

// ResolveExceptionRequest body de POST /api/exceptions/:id/resolve y /close.
type ResolveExceptionRequest struct {
	Resolution string `json:"resolution"`
	Note       string `json:"note"`
}

// ExceptionResponse novedad de recepción.
type ExceptionResponse struct {
	ID                 string     `json:"id"`
	ExceptionNo        string     `json:"exception_no"`
	InboundOrderID     string     `json:"inbound_order_id"`
	InboundOrderItemID string     `json:"inbound_order_item_id,omitempty"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Quantity           int64      `json:"quantity"`
	Description        string     `json:"description,omitempty"`
	Resolution         string     `json:"resolution,omitempty"`
	ResolutionNote     string     `json:"resolution_note,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToExceptionResponse convierte la entidad.
func ToExceptionResponse(e *entity.InboundException) *ExceptionResponse {
	return &ExceptionResponse{
		ID:                 e.ID,
		ExceptionNo:        e.ExceptionNo,
		InboundOrderID:     e.InboundOrderID,
		InboundOrderItemID: e.InboundOrderItemID,
		Type:               string(e.Type),
		Status:             string(e.Status),
		Quantity:           e.Quantity,
		Description:        e.Description,
		Resolution:         string(e.Resolution),
		ResolutionNote:     e.ResolutionNote,
		ResolvedAt:         e.ResolvedAt,
		CreatedAt:          e.CreatedAt,
	}
}

// ToExceptionList convierte una lista.
func ToExceptionList(es []*entity.InboundException) []ExceptionResponse {
	out := make([]ExceptionResponse, 0, len(es))
	for _, e := range es {
		out = append(out, *ToExceptionResponse(e))
	}
	return out
}
