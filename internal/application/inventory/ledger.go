package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// LedgerUseCase aplica los mutadores de baldes con bloqueo de fila (SELECT FOR UPDATE)
// y persiste registro + transacción como una unidad.
// Los métodos *InTx usan los repos del caller (misma transacción); no abren otra.
type LedgerUseCase struct {
	store   ports.Store
	clock   clock.Clock
	log     *logger.Logger
	metrics *telemetry.Metrics
}

// NewLedgerUseCase construye el caso de uso del libro.
func NewLedgerUseCase(store ports.Store, clk clock.Clock, log *logger.Logger, metrics *telemetry.Metrics) *LedgerUseCase {
	return &LedgerUseCase{store: store, clock: clk, log: log.Named("ledger"), metrics: metrics}
}

type mutation func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error)

// apply ejecuta un mutador sobre un registro ya bloqueado y persiste el resultado.
func (uc *LedgerUseCase) apply(ctx context.Context, r ports.Repos, rec *entity.InventoryRecord, op string, m mutation) error {
	tx, err := m(rec)
	if err != nil {
		var se *domain.StockError
		if errors.As(err, &se) {
			uc.metrics.StockError(se.Op)
			uc.log.Warn().
				Str("op", se.Op).
				Str("record_id", se.RecordID).
				Int64("attempted", se.Attempted).
				Interface("buckets", se.Buckets).
				Err(se.Err).
				Msg("mutación de inventario rechazada")
		}
		return err
	}
	tx.ID = domain.NewID()
	if err := r.Records.Update(ctx, rec); err != nil {
		return fmt.Errorf("%s: actualizar registro: %w", op, err)
	}
	if err := r.Transactions.Create(ctx, tx); err != nil {
		return fmt.Errorf("%s: registrar transacción: %w", op, err)
	}
	uc.metrics.Transaction(string(tx.Type))
	return nil
}

func (uc *LedgerUseCase) lock(ctx context.Context, r ports.Repos, recordID string) (*entity.InventoryRecord, error) {
	rec, err := r.Records.GetForUpdate(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("registro %s: %w", recordID, domain.ErrNotFound)
	}
	return rec, nil
}

// EnsureRecordInTx bloquea el registro de la clave, creándolo vacío si no existe.
func (uc *LedgerUseCase) EnsureRecordInTx(ctx context.Context, r ports.Repos, key entity.RecordKey) (*entity.InventoryRecord, error) {
	if key.MerchantID == "" || key.WarehouseID == "" || key.SKU == "" {
		return nil, domain.ErrInvalidInput
	}
	rec, err := r.Records.GetByKeyForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	rec = entity.NewInventoryRecord(domain.NewID(), key, uc.clock.Now())
	if err := r.Records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("crear registro: %w", err)
	}
	// Releer por llave: si otro escritor la creó primero, Create no inserta.
	rec, err = r.Records.GetByKeyForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("registro %s/%s/%s: %w", key.MerchantID, key.WarehouseID, key.SKU, domain.ErrNotFound)
	}
	return rec, nil
}

// AddInTransitInTx suma en tránsito; crea el registro en el primer movimiento de entrada.
func (uc *LedgerUseCase) AddInTransitInTx(ctx context.Context, r ports.Repos, key entity.RecordKey, qty int64, ref entity.Reference) (*entity.InventoryRecord, error) {
	rec, err := uc.EnsureRecordInTx(ctx, r, key)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	err = uc.apply(ctx, r, rec, "addInTransit", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
		return rec.AddInTransit(qty, ref, now)
	})
	return rec, err
}

// ConfirmInboundInTx recalcula el costo promedio con lo recibido (si hay costo) y luego
// pasa lo recibido a disponible y lo dañado a dañado.
func (uc *LedgerUseCase) ConfirmInboundInTx(ctx context.Context, r ports.Repos, recordID string, received, damaged int64, unitCost decimal.NullDecimal, ref entity.Reference) (*entity.InventoryRecord, error) {
	rec, err := uc.lock(ctx, r, recordID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	if unitCost.Valid && received > 0 {
		err = uc.apply(ctx, r, rec, "updateAverageCost", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
			return rec.UpdateAverageCost(received, unitCost.Decimal, ref, now)
		})
		if err != nil {
			return nil, err
		}
	}
	err = uc.apply(ctx, r, rec, "confirmInbound", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
		return rec.ConfirmInbound(received, damaged, ref, now)
	})
	return rec, err
}

// ReserveInTx bloquea el registro y reserva qty unidades disponibles.
func (uc *LedgerUseCase) ReserveInTx(ctx context.Context, r ports.Repos, recordID string, qty int64, ref entity.Reference) (*entity.InventoryRecord, error) {
	rec, err := uc.lock(ctx, r, recordID)
	if err != nil {
		return nil, err
	}
	return rec, uc.ReserveLockedInTx(ctx, r, rec, qty, ref)
}

// ReserveLockedInTx reserva sobre un registro que el caller ya bloqueó.
func (uc *LedgerUseCase) ReserveLockedInTx(ctx context.Context, r ports.Repos, rec *entity.InventoryRecord, qty int64, ref entity.Reference) error {
	now := uc.clock.Now()
	return uc.apply(ctx, r, rec, "reserve", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
		return rec.Reserve(qty, ref, now)
	})
}

// ReleaseInTx devuelve reservado a disponible.
func (uc *LedgerUseCase) ReleaseInTx(ctx context.Context, r ports.Repos, recordID string, qty int64, ref entity.Reference) (*entity.InventoryRecord, error) {
	rec, err := uc.lock(ctx, r, recordID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	err = uc.apply(ctx, r, rec, "release", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
		return rec.Release(qty, ref, now)
	})
	return rec, err
}

// ConfirmOutboundInTx consume reservado al despachar.
func (uc *LedgerUseCase) ConfirmOutboundInTx(ctx context.Context, r ports.Repos, recordID string, qty int64, ref entity.Reference) (*entity.InventoryRecord, error) {
	rec, err := uc.lock(ctx, r, recordID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	err = uc.apply(ctx, r, rec, "confirmOutbound", func(rec *entity.InventoryRecord) (*entity.InventoryTransaction, error) {
		return rec.ConfirmOutbound(qty, ref, now)
	})
	return rec, err
}

// RefreshEarmarkInTx recalcula lo comprometido por los listings dedicados del registro.
// El caller debe tener el registro bloqueado; persiste solo si cambió.
func (uc *LedgerUseCase) RefreshEarmarkInTx(ctx context.Context, r ports.Repos, rec *entity.InventoryRecord) error {
	listings, err := r.Listings.ListByRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	var total int64
	for _, l := range listings {
		total += l.Earmarked()
	}
	if total == rec.QuantityEarmarked {
		return nil
	}
	rec.QuantityEarmarked = total
	rec.UpdatedAt = uc.clock.Now()
	return r.Records.Update(ctx, rec)
}

// CheckEarmarkInTx verifica que lo comprometido por dedicados quepa en el disponible.
func CheckEarmarkInTx(rec *entity.InventoryRecord, totalEarmarked int64) error {
	if !inventory.EarmarkFits(totalEarmarked, rec.QuantityAvailable) {
		return &domain.StockError{
			Err:       domain.ErrOverAllocation,
			Op:        "allocate",
			RecordID:  rec.ID,
			Attempted: totalEarmarked,
			Buckets:   rec.Buckets(),
		}
	}
	return nil
}

// GetRecord obtiene un registro por ID.
func (uc *LedgerUseCase) GetRecord(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	rec, err := uc.store.Repos().Records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// GetRecordByKey obtiene un registro por (comerciante, bodega, SKU).
func (uc *LedgerUseCase) GetRecordByKey(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error) {
	rec, err := uc.store.Repos().Records.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// ListRecords lista registros con filtros.
func (uc *LedgerUseCase) ListRecords(ctx context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.store.Repos().Records.List(ctx, f)
}

// ListTransactions lista el libro de un registro, más recientes primero.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, recordID string, limit, offset int) ([]*entity.InventoryTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.store.Repos().Transactions.ListByRecord(ctx, recordID, limit, offset)
}

// SetSafetyStock fija (o quita con nil) el stock de seguridad de un registro del comerciante.
func (uc *LedgerUseCase) SetSafetyStock(ctx context.Context, merchantID, recordID string, safety *int64) (*entity.InventoryRecord, error) {
	if safety != nil && *safety < 0 {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.InventoryRecord
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		rec, err := uc.lock(ctx, r, recordID)
		if err != nil {
			return err
		}
		if merchantID != "" && rec.MerchantID != merchantID {
			return domain.ErrForbidden
		}
		rec.SafetyStock = safety
		rec.UpdatedAt = uc.clock.Now()
		out = rec
		return r.Records.Update(ctx, rec)
	})
	return out, err
}
