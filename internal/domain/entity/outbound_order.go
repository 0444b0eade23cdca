package entity

import (
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// OutboundStatus sub-estado físico del documento de salida.
type OutboundStatus string

const (
	OutboundPending   OutboundStatus = "pending"
	OutboundPicking   OutboundStatus = "picking"
	OutboundPacking   OutboundStatus = "packing"
	OutboundReady     OutboundStatus = "ready"
	OutboundShipped   OutboundStatus = "shipped"
	OutboundCancelled OutboundStatus = "cancelled"
)

// SyncStatus estado de sincronización con el WMS, independiente del físico.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncFailed   SyncStatus = "failed"
	SyncCallback SyncStatus = "callback" // confirmación asíncrona del WMS (terminal)
)

// OutboundOrder documento de salida 1:1 con un fulfillment de bodega de plataforma.
type OutboundOrder struct {
	ID             string
	OutboundNo     string
	FulfillmentID  string
	OrderID        string
	WarehouseID    string
	Status         OutboundStatus
	SyncStatus     SyncStatus
	ExternalID     string
	SyncAttempts   int
	SyncError      string
	LastSyncAt     *time.Time
	Receiver       Address
	Carrier        string
	TrackingNumber string
	Items          []OutboundOrderItem
	PickedAt       *time.Time
	PackedAt       *time.Time
	ShippedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboundOrderItem línea del documento con snapshot del catálogo.
type OutboundOrderItem struct {
	ID                string
	OutboundOrderID   string
	FulfillmentItemID string
	SKU               string
	ProductName       string
	ImageURL          string
	Quantity          int64
}

func (o *OutboundOrder) transitionErr(action string) error {
	return domain.NewTransitionError("documento de salida", o.ID, string(o.Status), action)
}

func (o *OutboundOrder) syncErr(action string) error {
	return domain.NewTransitionError("documento de salida (sync)", o.ID, string(o.SyncStatus), action)
}

// TotalQuantity suma las unidades del documento.
func (o *OutboundOrder) TotalQuantity() int64 {
	var n int64
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// CanSync true para pending/failed.
func (o *OutboundOrder) CanSync() bool {
	switch o.SyncStatus {
	case SyncPending, SyncFailed:
		return true
	default:
		return false
	}
}

// MarkSynced registra el ID externo devuelto por el WMS.
func (o *OutboundOrder) MarkSynced(externalID string, now time.Time) error {
	if !o.CanSync() {
		return o.syncErr("marcar sincronizado")
	}
	if externalID == "" {
		return domain.ErrInvalidInput
	}
	o.SyncStatus = SyncSynced
	o.ExternalID = externalID
	o.SyncError = ""
	o.LastSyncAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkSyncFailed registra un intento fallido; el documento queda reintentable.
func (o *OutboundOrder) MarkSyncFailed(syncErr string, now time.Time) error {
	if !o.CanSync() {
		return o.syncErr("registrar fallo de sincronización")
	}
	o.SyncStatus = SyncFailed
	o.SyncAttempts++
	o.SyncError = syncErr
	o.LastSyncAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkCallback registra la confirmación asíncrona del WMS.
func (o *OutboundOrder) MarkCallback(now time.Time) error {
	if o.SyncStatus == SyncCallback {
		return nil
	}
	o.SyncStatus = SyncCallback
	o.SyncError = ""
	o.UpdatedAt = now
	return nil
}

// StartPicking pending → picking.
func (o *OutboundOrder) StartPicking(now time.Time) error {
	if o.Status != OutboundPending {
		return o.transitionErr("iniciar picking")
	}
	o.Status = OutboundPicking
	o.PickedAt = &now
	o.UpdatedAt = now
	return nil
}

// StartPacking picking → packing.
func (o *OutboundOrder) StartPacking(now time.Time) error {
	if o.Status != OutboundPicking {
		return o.transitionErr("iniciar empaque")
	}
	o.Status = OutboundPacking
	o.PackedAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkReady packing → ready.
func (o *OutboundOrder) MarkReady(now time.Time) error {
	if o.Status != OutboundPacking {
		return o.transitionErr("marcar listo")
	}
	o.Status = OutboundReady
	o.UpdatedAt = now
	return nil
}

// AdvanceTo recorre la cadena pending → picking → packing → ready hasta target.
// Los callbacks del WMS pueden saltarse pasos intermedios.
func (o *OutboundOrder) AdvanceTo(target OutboundStatus, now time.Time) error {
	rank := map[OutboundStatus]int{OutboundPending: 0, OutboundPicking: 1, OutboundPacking: 2, OutboundReady: 3}
	want, ok := rank[target]
	if !ok {
		return domain.ErrInvalidInput
	}
	cur, ok := rank[o.Status]
	if !ok || cur > want {
		return o.transitionErr("avanzar a " + string(target))
	}
	for o.Status != target {
		var err error
		switch o.Status {
		case OutboundPending:
			err = o.StartPicking(now)
		case OutboundPicking:
			err = o.StartPacking(now)
		case OutboundPacking:
			err = o.MarkReady(now)
		default:
			err = o.transitionErr("avanzar a " + string(target))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkShipped ready → shipped y despacha el fulfillment padre.
// El caller consume lo reservado y actualiza las líneas de la orden en la misma transacción.
func (o *OutboundOrder) MarkShipped(f *Fulfillment, carrier, trackingNumber string, now time.Time) error {
	if f == nil || f.ID != o.FulfillmentID {
		return domain.ErrInvalidInput
	}
	if o.Status != OutboundReady {
		return o.transitionErr("despachar")
	}
	if err := f.MarkShipped(carrier, trackingNumber, now); err != nil {
		return err
	}
	o.Status = OutboundShipped
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel solo desde pending|picking.
func (o *OutboundOrder) Cancel(now time.Time) error {
	switch o.Status {
	case OutboundPending, OutboundPicking:
		o.Status = OutboundCancelled
		o.UpdatedAt = now
		return nil
	default:
		return o.transitionErr("cancelar")
	}
}
