package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// FulfillmentType quién opera la bodega de despacho.
type FulfillmentType string

const (
	FulfillmentPlatformWarehouse FulfillmentType = "platform_warehouse"
	FulfillmentMerchantWarehouse FulfillmentType = "merchant_warehouse"
)

// FulfillmentStatus estado del fulfillment.
type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "pending"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

// PlatformOwner es la llave de dueño de los fulfillments de bodega de plataforma.
const PlatformOwner = "platform"

// Fulfillment agrupa las líneas de una orden que salen de una (bodega, comerciante-o-plataforma).
type Fulfillment struct {
	ID             string
	FulfillmentNo  string
	OrderID        string
	WarehouseID    string
	OwnerKey       string // merchant ID o PlatformOwner
	Type           FulfillmentType
	Status         FulfillmentStatus
	Carrier        string
	TrackingNumber string
	CancelReason   string
	Items          []FulfillmentItem
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FulfillmentItem fija una cantidad a un InventoryRecord+Listing con snapshot de liquidación.
type FulfillmentItem struct {
	ID                string
	FulfillmentID     string
	OrderItemID       string
	InventoryRecordID string
	ListingID         string
	SourceID          string
	SKU               string
	Quantity          int64
	SettlementPrice   decimal.Decimal // precio unitario de liquidación
	Commission        decimal.Decimal // comisión total de la línea
	CreatedAt         time.Time
}

// OwnerKeyFor devuelve la llave de dueño según el tipo de bodega.
func OwnerKeyFor(t FulfillmentType, merchantID string) string {
	if t == FulfillmentPlatformWarehouse {
		return PlatformOwner
	}
	return merchantID
}

func (f *Fulfillment) transitionErr(action string) error {
	return domain.NewTransitionError("fulfillment", f.ID, string(f.Status), action)
}

// AddItem agrega una línea; solo mientras está pendiente.
func (f *Fulfillment) AddItem(it FulfillmentItem) error {
	if f.Status != FulfillmentPending {
		return f.transitionErr("agregar líneas")
	}
	if it.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	it.FulfillmentID = f.ID
	f.Items = append(f.Items, it)
	return nil
}

// TotalQuantity suma las unidades del fulfillment.
func (f *Fulfillment) TotalQuantity() int64 {
	var n int64
	for _, it := range f.Items {
		n += it.Quantity
	}
	return n
}

// StartProcessing pending → processing.
func (f *Fulfillment) StartProcessing(now time.Time) error {
	switch f.Status {
	case FulfillmentPending:
		f.Status = FulfillmentProcessing
		f.UpdatedAt = now
		return nil
	case FulfillmentProcessing:
		return nil
	default:
		return f.transitionErr("procesar")
	}
}

// MarkShipped pending|processing → shipped. El caller debe consumir lo reservado y
// propagar las cantidades despachadas a las líneas de la orden en la misma transacción.
func (f *Fulfillment) MarkShipped(carrier, trackingNumber string, now time.Time) error {
	switch f.Status {
	case FulfillmentPending, FulfillmentProcessing:
		f.Status = FulfillmentShipped
		f.Carrier = carrier
		f.TrackingNumber = trackingNumber
		f.ShippedAt = &now
		f.UpdatedAt = now
		return nil
	default:
		return f.transitionErr("despachar")
	}
}

// MarkDelivered shipped → delivered.
func (f *Fulfillment) MarkDelivered(now time.Time) error {
	if f.Status != FulfillmentShipped {
		return f.transitionErr("entregar")
	}
	f.Status = FulfillmentDelivered
	f.DeliveredAt = &now
	f.UpdatedAt = now
	return nil
}

// Cancel solo desde pending|processing; el caller libera lo reservado.
func (f *Fulfillment) Cancel(reason string, now time.Time) error {
	switch f.Status {
	case FulfillmentPending, FulfillmentProcessing:
		f.Status = FulfillmentCancelled
		f.CancelReason = reason
		f.UpdatedAt = now
		return nil
	default:
		return f.transitionErr("cancelar")
	}
}

// Open indica si el fulfillment aún no salió ni fue cancelado.
func (f *Fulfillment) Open() bool {
	return f.Status == FulfillmentPending || f.Status == FulfillmentProcessing
}
