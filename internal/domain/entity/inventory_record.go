package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/inventory"
)

// InventoryRecord es el stock de un SKU de un comerciante en una bodega, repartido
// en cuatro baldes excluyentes. Se crea en el primer movimiento de entrada y nunca se borra.
// Los baldes solo cambian a través de los mutadores de este archivo; cada uno devuelve
// exactamente una InventoryTransaction que el caller debe persistir en la misma transacción.
type InventoryRecord struct {
	ID                string
	MerchantID        string
	WarehouseID       string
	SKU               string
	QuantityInTransit int64
	QuantityAvailable int64
	QuantityReserved  int64
	QuantityDamaged   int64
	// QuantityEarmarked suma lo comprometido por listings dedicados aún no vendido.
	QuantityEarmarked int64
	AverageCost       decimal.Decimal
	SafetyStock       *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RecordKey identifica un registro por (comerciante, bodega, SKU).
type RecordKey struct {
	MerchantID  string
	WarehouseID string
	SKU         string
}

// NewInventoryRecord crea un registro vacío para la clave dada.
func NewInventoryRecord(id string, key RecordKey, now time.Time) *InventoryRecord {
	return &InventoryRecord{
		ID:          id,
		MerchantID:  key.MerchantID,
		WarehouseID: key.WarehouseID,
		SKU:         key.SKU,
		AverageCost: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Key devuelve la clave natural del registro.
func (r *InventoryRecord) Key() RecordKey {
	return RecordKey{MerchantID: r.MerchantID, WarehouseID: r.WarehouseID, SKU: r.SKU}
}

// TotalOnHand = disponible + reservado.
func (r *InventoryRecord) TotalOnHand() int64 {
	return r.QuantityAvailable + r.QuantityReserved
}

// Buckets devuelve la foto actual de los baldes.
func (r *InventoryRecord) Buckets() domain.Buckets {
	return domain.Buckets{
		InTransit: r.QuantityInTransit,
		Available: r.QuantityAvailable,
		Reserved:  r.QuantityReserved,
		Damaged:   r.QuantityDamaged,
	}
}

// IsLowStock indica si el disponible cayó al stock de seguridad o por debajo.
func (r *InventoryRecord) IsLowStock() bool {
	return r.SafetyStock != nil && r.QuantityAvailable <= *r.SafetyStock
}

// SharedPool es lo que pueden vender los listings compartidos del registro.
func (r *InventoryRecord) SharedPool() int64 {
	return inventory.SharedPool(r.QuantityAvailable, r.QuantityEarmarked)
}

func (r *InventoryRecord) stockErr(op string, err error, qty int64) error {
	return &domain.StockError{Err: err, Op: op, RecordID: r.ID, Attempted: qty, Buckets: r.Buckets()}
}

func (r *InventoryRecord) newTx(t TransactionType, st StockType, delta, before, after int64, ref Reference, now time.Time) *InventoryTransaction {
	r.UpdatedAt = now
	return &InventoryTransaction{
		InventoryRecordID: r.ID,
		Type:              t,
		StockType:         st,
		QuantityDelta:     delta,
		BalanceBefore:     before,
		BalanceAfter:      after,
		Buckets:           r.Buckets(),
		AverageCost:       r.AverageCost,
		ReferenceType:     ref.Type,
		ReferenceID:       ref.ID,
		CreatedAt:         now,
	}
}

// AddInTransit suma mercancía despachada hacia la bodega.
func (r *InventoryRecord) AddInTransit(qty int64, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if qty <= 0 {
		return nil, r.stockErr("addInTransit", domain.ErrInvalidInput, qty)
	}
	before := r.QuantityInTransit
	r.QuantityInTransit += qty
	return r.newTx(TransactionInTransit, StockInTransit, qty, before, r.QuantityInTransit, ref, now), nil
}

// ConfirmInbound mueve lo recibido de en tránsito a disponible (y lo dañado a dañado).
// En tránsito se descuenta por recibido+dañado y nunca baja de cero.
func (r *InventoryRecord) ConfirmInbound(received, damaged int64, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if received < 0 || damaged < 0 || received+damaged == 0 {
		return nil, r.stockErr("confirmInbound", domain.ErrInvalidInput, received+damaged)
	}
	r.QuantityInTransit -= received + damaged
	if r.QuantityInTransit < 0 {
		r.QuantityInTransit = 0
	}
	before := r.QuantityAvailable
	r.QuantityAvailable += received
	r.QuantityDamaged += damaged
	tx := r.newTx(TransactionInbound, StockAvailable, received, before, r.QuantityAvailable, ref, now)
	tx.DamagedDelta = damaged
	return tx, nil
}

// Reserve aparta unidades disponibles para una orden.
func (r *InventoryRecord) Reserve(qty int64, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if qty <= 0 {
		return nil, r.stockErr("reserve", domain.ErrInvalidInput, qty)
	}
	if qty > r.QuantityAvailable {
		return nil, r.stockErr("reserve", domain.ErrInsufficientStock, qty)
	}
	before := r.QuantityReserved
	r.QuantityAvailable -= qty
	r.QuantityReserved += qty
	return r.newTx(TransactionReserve, StockReserved, qty, before, r.QuantityReserved, ref, now), nil
}

// Release devuelve unidades reservadas a disponible.
func (r *InventoryRecord) Release(qty int64, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if qty <= 0 {
		return nil, r.stockErr("release", domain.ErrInvalidInput, qty)
	}
	if qty > r.QuantityReserved {
		return nil, r.stockErr("release", domain.ErrOverRelease, qty)
	}
	before := r.QuantityReserved
	r.QuantityReserved -= qty
	r.QuantityAvailable += qty
	return r.newTx(TransactionRelease, StockReserved, -qty, before, r.QuantityReserved, ref, now), nil
}

// ConfirmOutbound consume unidades reservadas al despacharlas.
func (r *InventoryRecord) ConfirmOutbound(qty int64, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if qty <= 0 {
		return nil, r.stockErr("confirmOutbound", domain.ErrInvalidInput, qty)
	}
	if qty > r.QuantityReserved {
		return nil, r.stockErr("confirmOutbound", domain.ErrOverShip, qty)
	}
	before := r.QuantityReserved
	r.QuantityReserved -= qty
	return r.newTx(TransactionOutbound, StockReserved, -qty, before, r.QuantityReserved, ref, now), nil
}

// UpdateAverageCost recalcula el costo promedio ponderado con una entrada de qty unidades a unitCost.
// Se invoca antes de ConfirmInbound para que el stock actual sea el previo a la entrada.
func (r *InventoryRecord) UpdateAverageCost(qty int64, unitCost decimal.Decimal, ref Reference, now time.Time) (*InventoryTransaction, error) {
	if qty <= 0 || unitCost.IsNegative() {
		return nil, r.stockErr("updateAverageCost", domain.ErrInvalidInput, qty)
	}
	r.AverageCost = inventory.WeightedAverageCost(r.TotalOnHand(), r.AverageCost, qty, unitCost)
	tx := r.newTx(TransactionCostAdjust, StockAvailable, 0, r.QuantityAvailable, r.QuantityAvailable, ref, now)
	tx.UnitCost = unitCost
	return tx, nil
}
