package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// OrderStatus estado de la orden.
type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderAllocating       OrderStatus = "allocating"
	OrderAllocated        OrderStatus = "allocated"
	OrderAllocationFailed OrderStatus = "allocation_failed"
	OrderPartiallyShipped OrderStatus = "partially_shipped"
	OrderShipped          OrderStatus = "shipped"
	OrderCompleted        OrderStatus = "completed"
	OrderCancelled        OrderStatus = "cancelled"
)

// PaymentStatus estado de pago informado por el canal.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// AllocationStatus estado de asignación de una línea.
type AllocationStatus string

const (
	AllocationPending AllocationStatus = "pending"
	AllocationPartial AllocationStatus = "partial"
	AllocationFull    AllocationStatus = "full"
	AllocationFailed  AllocationStatus = "failed"
)

// Address dirección del receptor (snapshot en la orden y en el documento de salida).
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	Province   string `json:"province"`
	City       string `json:"city"`
	District   string `json:"district"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code"`
}

// Order orden pagada recibida de un canal de venta.
type Order struct {
	ID                   string
	ChannelID            string
	ExternalOrderNo      string
	Status               OrderStatus
	PaymentStatus        PaymentStatus
	AllocationFailReason string
	Receiver             Address
	TotalAmount          decimal.Decimal
	Items                []OrderItem
	CancelReason         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderItem línea de la orden contra un producto de canal.
type OrderItem struct {
	ID                string
	OrderID           string
	ChannelProductID  string
	SKU               string
	Quantity          int64
	AllocatedQuantity int64
	ShippedQuantity   int64
	UnitPrice         decimal.Decimal
	AllocationStatus  AllocationStatus
}

// PendingQuantity = max(0, cantidad − asignado).
func (i *OrderItem) PendingQuantity() int64 {
	if i.AllocatedQuantity >= i.Quantity {
		return 0
	}
	return i.Quantity - i.AllocatedQuantity
}

// RefreshAllocationStatus deriva el estado: full, partial o pending. Borra un failed previo.
func (i *OrderItem) RefreshAllocationStatus() {
	switch {
	case i.AllocatedQuantity >= i.Quantity:
		i.AllocationStatus = AllocationFull
	case i.AllocatedQuantity > 0:
		i.AllocationStatus = AllocationPartial
	default:
		i.AllocationStatus = AllocationPending
	}
}

// Allocate suma unidades asignadas.
func (i *OrderItem) Allocate(qty int64) error {
	if qty <= 0 || qty > i.PendingQuantity() {
		return domain.ErrInvalidInput
	}
	i.AllocatedQuantity += qty
	i.RefreshAllocationStatus()
	return nil
}

// Deallocate resta unidades asignadas (cancelación de un fulfillment).
func (i *OrderItem) Deallocate(qty int64) {
	i.AllocatedQuantity -= qty
	if i.AllocatedQuantity < i.ShippedQuantity {
		i.AllocatedQuantity = i.ShippedQuantity
	}
	i.RefreshAllocationStatus()
}

// MarkAllocationFailed marca la línea como fallida cuando ninguna fuente cubre el remanente.
func (i *OrderItem) MarkAllocationFailed() {
	if i.PendingQuantity() > 0 {
		i.AllocationStatus = AllocationFailed
	}
}

// Ship suma unidades despachadas; nunca más de lo asignado.
func (i *OrderItem) Ship(qty int64) error {
	if qty <= 0 || i.ShippedQuantity+qty > i.AllocatedQuantity {
		return domain.ErrInvalidInput
	}
	i.ShippedQuantity += qty
	return nil
}

// Item busca una línea por ID.
func (o *Order) Item(id string) (*OrderItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].ID == id {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

func (o *Order) transitionErr(action string) error {
	return domain.NewTransitionError("orden", o.ID, string(o.Status), action)
}

// StartAllocation pending|allocation_failed → allocating. Solo órdenes pagadas.
func (o *Order) StartAllocation(now time.Time) error {
	if o.PaymentStatus != PaymentPaid {
		return o.transitionErr("asignar una orden no pagada")
	}
	switch o.Status {
	case OrderPending, OrderAllocationFailed:
		o.Status = OrderAllocating
		o.AllocationFailReason = ""
		for idx := range o.Items {
			o.Items[idx].RefreshAllocationStatus()
		}
		o.UpdatedAt = now
		return nil
	default:
		return o.transitionErr("iniciar asignación")
	}
}

// FullyAllocated indica si ninguna línea tiene pendiente.
func (o *Order) FullyAllocated() bool {
	for _, it := range o.Items {
		if it.PendingQuantity() > 0 {
			return false
		}
	}
	return true
}

// CompleteAllocation allocating → allocated, o partially_shipped si parte de la orden ya salió
// antes de reasignar lo devuelto.
func (o *Order) CompleteAllocation(now time.Time) error {
	if o.Status != OrderAllocating {
		return o.transitionErr("completar asignación")
	}
	if !o.FullyAllocated() {
		return o.transitionErr("completar asignación con líneas pendientes")
	}
	o.Status = OrderAllocated
	if o.HasShipments() {
		o.Status = OrderPartiallyShipped
	}
	o.UpdatedAt = now
	return nil
}

// FailAllocation allocating → allocation_failed; marca las líneas cortas como failed.
func (o *Order) FailAllocation(reason string, now time.Time) error {
	if o.Status != OrderAllocating {
		return o.transitionErr("fallar asignación")
	}
	for idx := range o.Items {
		o.Items[idx].MarkAllocationFailed()
	}
	o.Status = OrderAllocationFailed
	o.AllocationFailReason = reason
	o.UpdatedAt = now
	return nil
}

// ReopenAllocation allocated|partially_shipped → allocation_failed cuando se cancela un
// fulfillment de una orden vigente; el reintento asigna solo lo devuelto.
func (o *Order) ReopenAllocation(reason string, now time.Time) error {
	switch o.Status {
	case OrderAllocated, OrderAllocationFailed, OrderPartiallyShipped:
		o.Status = OrderAllocationFailed
	default:
		return o.transitionErr("reabrir asignación")
	}
	for idx := range o.Items {
		o.Items[idx].MarkAllocationFailed()
	}
	o.AllocationFailReason = reason
	o.UpdatedAt = now
	return nil
}

// RefreshShipment recalcula partially_shipped/shipped a partir de las líneas.
// Una orden allocation_failed con pendiente por asignar se queda así para poder reintentar.
func (o *Order) RefreshShipment(now time.Time) error {
	switch o.Status {
	case OrderAllocated, OrderPartiallyShipped, OrderAllocationFailed:
	default:
		return o.transitionErr("registrar despacho")
	}
	if o.Status == OrderAllocationFailed && !o.FullyAllocated() {
		o.UpdatedAt = now
		return nil
	}
	var shipped, total int64
	for _, it := range o.Items {
		shipped += it.ShippedQuantity
		total += it.Quantity
	}
	switch {
	case shipped >= total && total > 0:
		o.Status = OrderShipped
	case shipped > 0:
		o.Status = OrderPartiallyShipped
	}
	o.UpdatedAt = now
	return nil
}

// Complete shipped → completed (todo entregado).
func (o *Order) Complete(now time.Time) error {
	if o.Status != OrderShipped {
		return o.transitionErr("completar")
	}
	o.Status = OrderCompleted
	o.UpdatedAt = now
	return nil
}

// HasShipments indica si alguna línea ya fue despachada.
func (o *Order) HasShipments() bool {
	for _, it := range o.Items {
		if it.ShippedQuantity > 0 {
			return true
		}
	}
	return false
}

// Cancel pasa la orden a cancelled. No se permite si algo ya fue despachado
// o si hay una asignación en curso.
func (o *Order) Cancel(reason string, now time.Time) error {
	switch o.Status {
	case OrderPending, OrderAllocated, OrderAllocationFailed:
		if o.HasShipments() {
			return o.transitionErr("cancelar con despachos")
		}
		o.Status = OrderCancelled
		o.CancelReason = reason
		o.UpdatedAt = now
		return nil
	default:
		return o.transitionErr("cancelar")
	}
}

// MarkPaid registra el pago.
func (o *Order) MarkPaid(now time.Time) error {
	if o.PaymentStatus == PaymentRefunded {
		return o.transitionErr("marcar pagada una orden reembolsada")
	}
	o.PaymentStatus = PaymentPaid
	o.UpdatedAt = now
	return nil
}
