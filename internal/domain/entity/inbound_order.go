package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// InboundStatus estado del documento de entrada (reposición comerciante → bodega).
type InboundStatus string

const (
	InboundDraft            InboundStatus = "draft"
	InboundPending          InboundStatus = "pending"
	InboundShipped          InboundStatus = "shipped"
	InboundArrived          InboundStatus = "arrived"
	InboundReceiving        InboundStatus = "receiving"
	InboundCompleted        InboundStatus = "completed"
	InboundPartialCompleted InboundStatus = "partial_completed"
	InboundCancelled        InboundStatus = "cancelled"
)

// InboundItemStatus resultado de la recepción de una línea.
type InboundItemStatus string

const (
	InboundItemPending  InboundItemStatus = "pending"
	InboundItemReceived InboundItemStatus = "received"
	InboundItemPartial  InboundItemStatus = "partial"
	InboundItemOver     InboundItemStatus = "over"
	InboundItemMissing  InboundItemStatus = "missing"
)

// InboundOrder documento de reposición.
type InboundOrder struct {
	ID                string
	InboundNo         string
	MerchantID        string
	WarehouseID       string
	Status            InboundStatus
	Carrier           string
	TrackingNumber    string
	ExpectedArrivalAt *time.Time
	Remark            string
	Items             []InboundOrderItem
	SubmittedAt       *time.Time
	ShippedAt         *time.Time
	ArrivedAt         *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// InboundOrderItem línea esperada vs recibida.
type InboundOrderItem struct {
	ID                string
	InboundOrderID    string
	SKU               string
	InventoryRecordID string
	ExpectedQuantity  int64
	ReceivedQuantity  int64
	DamagedQuantity   int64
	UnitCost          decimal.NullDecimal
	Status            InboundItemStatus
	Remark            string
	ReceivedAt        *time.Time
}

// Discrepancy brecha detectada al recibir una línea.
type Discrepancy struct {
	Type     ExceptionType
	Quantity int64
}

// ConfirmReceived registra lo recibido y dañado y deriva el estado frente a lo esperado.
// El caller debe aplicar InventoryRecord.ConfirmInbound(received, damaged) en la misma transacción.
func (i *InboundOrderItem) ConfirmReceived(received, damaged int64, remark string, now time.Time) error {
	if received < 0 || damaged < 0 {
		return domain.ErrInvalidInput
	}
	if i.Status != InboundItemPending && i.Status != "" {
		return domain.NewTransitionError("línea de entrada", i.ID, string(i.Status), "confirmar recepción")
	}
	i.ReceivedQuantity = received
	i.DamagedQuantity = damaged
	i.Remark = remark
	i.ReceivedAt = &now
	switch {
	case received == 0 && damaged == 0:
		i.Status = InboundItemMissing
	case received > i.ExpectedQuantity:
		i.Status = InboundItemOver
	case received == i.ExpectedQuantity:
		i.Status = InboundItemReceived
	default:
		i.Status = InboundItemPartial
	}
	return nil
}

// Discrepancies lista las brechas de una línea ya confirmada.
func (i *InboundOrderItem) Discrepancies() []Discrepancy {
	var out []Discrepancy
	if short := i.ExpectedQuantity - i.ReceivedQuantity - i.DamagedQuantity; short > 0 {
		out = append(out, Discrepancy{Type: ExceptionQuantityShort, Quantity: short})
	}
	if over := i.ReceivedQuantity - i.ExpectedQuantity; over > 0 {
		out = append(out, Discrepancy{Type: ExceptionQuantityOver, Quantity: over})
	}
	if i.DamagedQuantity > 0 {
		out = append(out, Discrepancy{Type: ExceptionDamaged, Quantity: i.DamagedQuantity})
	}
	return out
}

// Item busca una línea por ID.
func (o *InboundOrder) Item(id string) (*InboundOrderItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].ID == id {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

func (o *InboundOrder) transitionErr(action string) error {
	return domain.NewTransitionError("documento de entrada", o.ID, string(o.Status), action)
}

// Submit draft → pending.
func (o *InboundOrder) Submit(now time.Time) error {
	if o.Status != InboundDraft {
		return o.transitionErr("enviar")
	}
	if len(o.Items) == 0 {
		return domain.ErrInvalidInput
	}
	o.Status = InboundPending
	o.SubmittedAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkShipped pending → shipped. El caller suma en tránsito por cada línea.
func (o *InboundOrder) MarkShipped(carrier, trackingNumber string, now time.Time) error {
	if o.Status != InboundPending {
		return o.transitionErr("despachar")
	}
	o.Status = InboundShipped
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkArrived shipped → arrived.
func (o *InboundOrder) MarkArrived(now time.Time) error {
	if o.Status != InboundShipped {
		return o.transitionErr("marcar llegada")
	}
	o.Status = InboundArrived
	o.ArrivedAt = &now
	o.UpdatedAt = now
	return nil
}

// StartReceiving arrived → receiving.
func (o *InboundOrder) StartReceiving(now time.Time) error {
	switch o.Status {
	case InboundArrived:
		o.Status = InboundReceiving
		o.UpdatedAt = now
		return nil
	case InboundReceiving:
		return nil
	default:
		return o.transitionErr("iniciar recepción")
	}
}

// Complete receiving → completed si todas las líneas llegaron exactas, si no partial_completed.
// Las líneas sin confirmar quedan como missing.
func (o *InboundOrder) Complete(now time.Time) error {
	if o.Status != InboundReceiving {
		return o.transitionErr("completar")
	}
	exact := true
	for idx := range o.Items {
		it := &o.Items[idx]
		if it.Status == InboundItemPending || it.Status == "" {
			it.Status = InboundItemMissing
		}
		if it.Status != InboundItemReceived {
			exact = false
		}
	}
	if exact {
		o.Status = InboundCompleted
	} else {
		o.Status = InboundPartialCompleted
	}
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel desde cualquier estado previo a completar.
func (o *InboundOrder) Cancel(now time.Time) error {
	switch o.Status {
	case InboundDraft, InboundPending, InboundShipped, InboundArrived, InboundReceiving:
		o.Status = InboundCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now
		return nil
	default:
		return o.transitionErr("cancelar")
	}
}
