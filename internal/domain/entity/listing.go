package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/inventory"
)

// AllocationMode cómo un listing toma stock del registro.
type AllocationMode string

const (
	AllocationShared    AllocationMode = "shared"
	AllocationDedicated AllocationMode = "dedicated"
)

// ListingStatus estado de publicación.
type ListingStatus string

const (
	ListingDraft   ListingStatus = "draft"
	ListingActive  ListingStatus = "active"
	ListingPaused  ListingStatus = "paused"
	ListingSoldOut ListingStatus = "sold_out"
)

// Listing expone un InventoryRecord a una conexión de canal de venta de un comerciante.
type Listing struct {
	ID                  string
	MerchantID          string
	ChannelConnectionID string
	InventoryRecordID   string
	SKU                 string
	AllocationMode      AllocationMode
	AllocatedQuantity   int64 // solo dedicados
	SoldQuantity        int64
	Price               decimal.Decimal
	Status              ListingStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Earmarked es lo que el listing tiene comprometido del registro (0 si es compartido).
func (l *Listing) Earmarked() int64 {
	if l.AllocationMode != AllocationDedicated {
		return 0
	}
	return inventory.DedicatedRemaining(l.AllocatedQuantity, l.SoldQuantity)
}

// AvailableQuantity dedicado: asignado − vendido; compartido: el pool del registro
// (disponible menos lo comprometido por los dedicados hermanos).
func (l *Listing) AvailableQuantity(rec *InventoryRecord) int64 {
	switch l.AllocationMode {
	case AllocationDedicated:
		return l.Earmarked()
	case AllocationShared:
		if rec == nil {
			return 0
		}
		return rec.SharedPool()
	default:
		return 0
	}
}

// Sellable indica si el listing puede recibir ventas.
func (l *Listing) Sellable() bool {
	return l.Status == ListingActive
}

func (l *Listing) transitionErr(action string) error {
	return domain.NewTransitionError("listing", l.ID, string(l.Status), action)
}

// Activate publica el listing.
func (l *Listing) Activate(now time.Time) error {
	switch l.Status {
	case ListingDraft, ListingPaused:
		l.Status = ListingActive
		l.refreshSoldOut()
	case ListingActive, ListingSoldOut:
		return nil
	default:
		return l.transitionErr("activar")
	}
	l.UpdatedAt = now
	return nil
}

// Pause saca el listing de venta.
func (l *Listing) Pause(now time.Time) error {
	switch l.Status {
	case ListingActive, ListingSoldOut:
		l.Status = ListingPaused
		l.UpdatedAt = now
		return nil
	case ListingPaused:
		return nil
	default:
		return l.transitionErr("pausar")
	}
}

// UpdatePrice cambia el precio de venta.
func (l *Listing) UpdatePrice(price decimal.Decimal, now time.Time) error {
	if price.IsNegative() {
		return domain.ErrInvalidInput
	}
	l.Price = price.Round(2)
	l.UpdatedAt = now
	return nil
}

// SetDedicated pasa el listing a modo dedicado con allocated unidades.
// El chequeo de OverAllocation contra el registro lo hace el caso de uso con los hermanos bloqueados.
func (l *Listing) SetDedicated(allocated int64, now time.Time) error {
	if allocated < l.SoldQuantity || allocated < 0 {
		return domain.ErrInvalidInput
	}
	l.AllocationMode = AllocationDedicated
	l.AllocatedQuantity = allocated
	l.refreshSoldOut()
	l.UpdatedAt = now
	return nil
}

// SetShared pasa el listing a modo compartido y libera su compromiso.
func (l *Listing) SetShared(now time.Time) {
	l.AllocationMode = AllocationShared
	l.AllocatedQuantity = 0
	if l.Status == ListingSoldOut {
		l.Status = ListingActive
	}
	l.UpdatedAt = now
}

// AdjustAllocatedQuantity suma delta a la asignación de un listing dedicado.
func (l *Listing) AdjustAllocatedQuantity(delta int64, now time.Time) error {
	if l.AllocationMode != AllocationDedicated {
		return l.transitionErr("ajustar asignación de un listing compartido")
	}
	return l.SetDedicated(l.AllocatedQuantity+delta, now)
}

// RecordSale suma unidades vendidas; un dedicado sin remanente queda sold_out.
func (l *Listing) RecordSale(qty int64, now time.Time) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	l.SoldQuantity += qty
	l.refreshSoldOut()
	l.UpdatedAt = now
	return nil
}

// RevertSale devuelve unidades vendidas (cancelación antes del despacho).
func (l *Listing) RevertSale(qty int64, now time.Time) {
	l.SoldQuantity -= qty
	if l.SoldQuantity < 0 {
		l.SoldQuantity = 0
	}
	l.refreshSoldOut()
	l.UpdatedAt = now
}

func (l *Listing) refreshSoldOut() {
	if l.AllocationMode == AllocationDedicated && l.Earmarked() == 0 {
		if l.Status == ListingActive {
			l.Status = ListingSoldOut
		}
		return
	}
	if l.Status == ListingSoldOut {
		l.Status = ListingActive
	}
}
