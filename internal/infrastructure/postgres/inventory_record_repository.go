package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository      = (*InventoryRecordRepo)(nil)
	_ repository.InventoryTransactionRepository = (*InventoryTransactionRepo)(nil)
)

// InventoryRecordRepo implementación de InventoryRecordRepository sobre PostgreSQL.
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

const recordColumns = `id, merchant_id, warehouse_id, sku, quantity_in_transit, quantity_available,
	quantity_reserved, quantity_damaged, quantity_earmarked, average_cost, safety_stock, created_at, updated_at`

func scanRecord(s scanner) (*entity.InventoryRecord, error) {
	var r entity.InventoryRecord
	err := s.Scan(&r.ID, &r.MerchantID, &r.WarehouseID, &r.SKU, &r.QuantityInTransit, &r.QuantityAvailable,
		&r.QuantityReserved, &r.QuantityDamaged, &r.QuantityEarmarked, &r.AverageCost, &r.SafetyStock,
		&r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

// Create inserta el registro. Si otro escritor ya creó la misma llave no falla: el caller relee por llave.
func (r *InventoryRecordRepo) Create(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (merchant_id, warehouse_id, sku) DO NOTHING`
	_, err := r.q.Exec(ctx, query, rec.ID, rec.MerchantID, rec.WarehouseID, rec.SKU, rec.QuantityInTransit,
		rec.QuantityAvailable, rec.QuantityReserved, rec.QuantityDamaged, rec.QuantityEarmarked,
		rec.AverageCost, rec.SafetyStock, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create inventory record: %w", err)
	}
	return nil
}

func (r *InventoryRecordRepo) getOne(ctx context.Context, where string, args ...any) (*entity.InventoryRecord, error) {
	rec, err := noRows(scanRecord(r.q.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE `+where, args...)))
	if err != nil {
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

func (r *InventoryRecordRepo) GetByID(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetForUpdate bloquea la fila hasta el fin de la transacción.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *InventoryRecordRepo) GetByKey(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error) {
	return r.getOne(ctx, `merchant_id = $1 AND warehouse_id = $2 AND sku = $3`, key.MerchantID, key.WarehouseID, key.SKU)
}

func (r *InventoryRecordRepo) GetByKeyForUpdate(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error) {
	return r.getOne(ctx, `merchant_id = $1 AND warehouse_id = $2 AND sku = $3 FOR UPDATE`, key.MerchantID, key.WarehouseID, key.SKU)
}

// Update reescribe baldes, costo promedio y stock de seguridad.
func (r *InventoryRecordRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		UPDATE inventory_records SET
			quantity_in_transit = $2, quantity_available = $3, quantity_reserved = $4,
			quantity_damaged = $5, quantity_earmarked = $6, average_cost = $7,
			safety_stock = $8, updated_at = $9
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, rec.ID, rec.QuantityInTransit, rec.QuantityAvailable,
		rec.QuantityReserved, rec.QuantityDamaged, rec.QuantityEarmarked, rec.AverageCost,
		rec.SafetyStock, rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update inventory record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *InventoryRecordRepo) List(ctx context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	query := `
		SELECT ` + recordColumns + ` FROM inventory_records
		WHERE ($1 = '' OR merchant_id = $1)
		  AND ($2 = '' OR warehouse_id = $2)
		  AND ($3 = '' OR sku = $3)
		  AND (NOT $4 OR (safety_stock IS NOT NULL AND quantity_available <= safety_stock))
		ORDER BY sku, id
		LIMIT $5 OFFSET $6`
	rows, err := r.q.Query(ctx, query, f.MerchantID, f.WarehouseID, f.SKU, f.LowStockOnly, limitArg(f.Limit), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory records: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// InventoryTransactionRepo libro de transacciones (solo inserción).
type InventoryTransactionRepo struct {
	q Querier
}

// NewInventoryTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryTransactionRepository(q Querier) *InventoryTransactionRepo {
	return &InventoryTransactionRepo{q: q}
}

const transactionColumns = `id, inventory_record_id, type, stock_type, quantity_delta, damaged_delta,
	balance_before, balance_after, in_transit_after, available_after, reserved_after, damaged_after,
	unit_cost, average_cost, reference_type, reference_id, created_at`

func (r *InventoryTransactionRepo) Create(ctx context.Context, t *entity.InventoryTransaction) error {
	query := `
		INSERT INTO inventory_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query, t.ID, t.InventoryRecordID, t.Type, t.StockType, t.QuantityDelta, t.DamagedDelta,
		t.BalanceBefore, t.BalanceAfter, t.Buckets.InTransit, t.Buckets.Available, t.Buckets.Reserved, t.Buckets.Damaged,
		t.UnitCost, t.AverageCost, t.ReferenceType, t.ReferenceID, t.CreatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create inventory transaction: %w", err)
	}
	return nil
}

func (r *InventoryTransactionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryTransaction
	for rows.Next() {
		var t entity.InventoryTransaction
		if err := rows.Scan(&t.ID, &t.InventoryRecordID, &t.Type, &t.StockType, &t.QuantityDelta, &t.DamagedDelta,
			&t.BalanceBefore, &t.BalanceAfter, &t.Buckets.InTransit, &t.Buckets.Available, &t.Buckets.Reserved,
			&t.Buckets.Damaged, &t.UnitCost, &t.AverageCost, &t.ReferenceType, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// ListByRecord más recientes primero.
func (r *InventoryTransactionRepo) ListByRecord(ctx context.Context, recordID string, limit, offset int) ([]*entity.InventoryTransaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM inventory_transactions
		WHERE inventory_record_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`, recordID, limitArg(limit), offset)
}

// ListByReference en orden de inserción.
func (r *InventoryTransactionRepo) ListByReference(ctx context.Context, refType, refID string) ([]*entity.InventoryTransaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM inventory_transactions
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY seq`, refType, refID)
}
