package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// IngestOrderRequest orden tal como la envía el canal (webhook HTTP).
type IngestOrderRequest struct {
	ChannelID       string              `json:"channel_id" validate:"required"`
	ExternalOrderNo string              `json:"external_order_no" validate:"required"`
	Paid            bool                `json:"paid"`
	Receiver        entity.Address      `json:"receiver"`
	Items           []IngestOrderItemIn `json:"items" validate:"required,min=1"`
}

// IngestOrderItemIn línea de la orden recibida.
type IngestOrderItemIn struct {
	ChannelProductID string          `json:"channel_product_id"`
	SKU              string          `json:"sku"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// CancelRequest motivo de una cancelación.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// ShipRequest datos de transporte al despachar.
type ShipRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

// OrderItemResponse línea con sus contadores.
type OrderItemResponse struct {
	ID                string          `json:"id"`
	ChannelProductID  string          `json:"channel_product_id"`
	SKU               string          `json:"sku"`
	Quantity          int64           `json:"quantity"`
	AllocatedQuantity int64           `json:"allocated_quantity"`
	ShippedQuantity   int64           `json:"shipped_quantity"`
	PendingQuantity   int64           `json:"pending_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	AllocationStatus  string          `json:"allocation_status"`
}

// OrderResponse salida de una orden.
type OrderResponse struct {
	ID                   string              `json:"id"`
	ChannelID            string              `json:"channel_id"`
	ExternalOrderNo      string              `json:"external_order_no"`
	Status               string              `json:"status"`
	PaymentStatus        string              `json:"payment_status"`
	AllocationFailReason string              `json:"allocation_fail_reason,omitempty"`
	CancelReason         string              `json:"cancel_reason,omitempty"`
	Receiver             entity.Address      `json:"receiver"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Items                []OrderItemResponse `json:"items"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ToOrderResponse convierte la entidad.
func ToOrderResponse(o *entity.Order) *OrderResponse {
	out := &OrderResponse{
		ID:                   o.ID,
		ChannelID:            o.ChannelID,
		ExternalOrderNo:      o.ExternalOrderNo,
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
		AllocationFailReason: o.AllocationFailReason,
		CancelReason:         o.CancelReason,
		Receiver:             o.Receiver,
		TotalAmount:          o.TotalAmount,
		Items:                make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for i := range o.Items {
		it := &o.Items[i]
		out.Items = append(out.Items, OrderItemResponse{
			ID:                it.ID,
			ChannelProductID:  it.ChannelProductID,
			SKU:               it.SKU,
			Quantity:          it.Quantity,
			AllocatedQuantity: it.AllocatedQuantity,
			ShippedQuantity:   it.ShippedQuantity,
			PendingQuantity:   it.PendingQuantity(),
			UnitPrice:         it.UnitPrice,
			AllocationStatus:  string(it.AllocationStatus),
		})
	}
	return out
}

// ToOrderList convierte una lista.
func ToOrderList(os []*entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, *ToOrderResponse(o))
	}
	return out
}

// FulfillmentItemResponse línea fijada a un registro.
type FulfillmentItemResponse struct {
	ID                string          `json:"id"`
	OrderItemID       string          `json:"order_item_id"`
	InventoryRecordID string          `json:"inventory_record_id"`
	ListingID         string          `json:"listing_id"`
	SKU               string          `json:"sku"`
	Quantity          int64           `json:"quantity"`
	SettlementPrice   decimal.Decimal `json:"settlement_price"`
	Commission        decimal.Decimal `json:"commission"`
}

// FulfillmentResponse salida de un fulfillment.
type FulfillmentResponse struct {
	ID             string                    `json:"id"`
	FulfillmentNo  string                    `json:"fulfillment_no"`
	OrderID        string                    `json:"order_id"`
	WarehouseID    string                    `json:"warehouse_id"`
	OwnerKey       string                    `json:"owner_key"`
	Type           string                    `json:"type"`
	Status         string                    `json:"status"`
	Carrier        string                    `json:"carrier,omitempty"`
	TrackingNumber string                    `json:"tracking_number,omitempty"`
	CancelReason   string                    `json:"cancel_reason,omitempty"`
	Items          []FulfillmentItemResponse `json:"items"`
	ShippedAt      *time.Time                `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time                `json:"delivered_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// ToFulfillmentResponse convierte la entidad.
func ToFulfillmentResponse(f *entity.Fulfillment) *FulfillmentResponse {
	out := &FulfillmentResponse{
		ID:             f.ID,
		FulfillmentNo:  f.FulfillmentNo,
		OrderID:        f.OrderID,
		WarehouseID:    f.WarehouseID,
		OwnerKey:       f.OwnerKey,
		Type:           string(f.Type),
		Status:         string(f.Status),
		Carrier:        f.Carrier,
		TrackingNumber: f.TrackingNumber,
		CancelReason:   f.CancelReason,
		Items:          make([]FulfillmentItemResponse, 0, len(f.Items)),
		ShippedAt:      f.ShippedAt,
		DeliveredAt:    f.DeliveredAt,
		CreatedAt:      f.CreatedAt,
	}
	for _, it := range f.Items {
		out.Items = append(out.Items, FulfillmentItemResponse{
			ID:                it.ID,
			OrderItemID:       it.OrderItemID,
			InventoryRecordID: it.InventoryRecordID,
			ListingID:         it.ListingID,
			SKU:               it.SKU,
			Quantity:          it.Quantity,
			SettlementPrice:   it.SettlementPrice,
			Commission:        it.Commission,
		})
	}
	return out
}

// ToFulfillmentList convierte una lista.
func ToFulfillmentList(fs []*entity.Fulfillment) []FulfillmentResponse {
	out := make([]FulfillmentResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, *ToFulfillmentResponse(f))
	}
	return out
}
