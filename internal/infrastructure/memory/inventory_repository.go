package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository      = (*recordRepo)(nil)
	_ repository.InventoryTransactionRepository = (*transactionRepo)(nil)
)

type recordRepo struct {
	s  *Store
	tx *tx
}

func recordLock(id string) string { return "record:" + id }

func recordKeyLock(k entity.RecordKey) string {
	return fmt.Sprintf("record-key:%s|%s|%s", k.MerchantID, k.WarehouseID, k.SKU)
}

func (r *recordRepo) Create(_ context.Context, rec *entity.InventoryRecord) error {
	r.tx.lock(recordKeyLock(rec.Key()))
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.recordKeys[rec.Key()]; ok {
		// Otro escritor lo creó primero; el caller relee por llave.
		return nil
	}
	put(r.tx, r.s.t.records, rec.ID, cloneRecord(rec))
	key := rec.Key()
	r.s.t.recordKeys[key] = rec.ID
	r.tx.onRollback(func() { delete(r.s.t.recordKeys, key) })
	return nil
}

func (r *recordRepo) get(id string) *entity.InventoryRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if rec, ok := r.s.t.records[id]; ok {
		return cloneRecord(rec)
	}
	return nil
}

func (r *recordRepo) GetByID(_ context.Context, id string) (*entity.InventoryRecord, error) {
	return r.get(id), nil
}

func (r *recordRepo) GetForUpdate(_ context.Context, id string) (*entity.InventoryRecord, error) {
	r.tx.lock(recordLock(id))
	return r.get(id), nil
}

func (r *recordRepo) idByKey(key entity.RecordKey) (string, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.t.recordKeys[key]
	return id, ok
}

func (r *recordRepo) GetByKey(_ context.Context, key entity.RecordKey) (*entity.InventoryRecord, error) {
	id, ok := r.idByKey(key)
	if !ok {
		return nil, nil
	}
	return r.get(id), nil
}

func (r *recordRepo) GetByKeyForUpdate(ctx context.Context, key entity.RecordKey) (*entity.InventoryRecord, error) {
	r.tx.lock(recordKeyLock(key))
	id, ok := r.idByKey(key)
	if !ok {
		return nil, nil
	}
	return r.GetForUpdate(ctx, id)
}

func (r *recordRepo) Update(_ context.Context, rec *entity.InventoryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.records[rec.ID]; !ok {
		return fmt.Errorf("registro %s: %w", rec.ID, domain.ErrNotFound)
	}
	put(r.tx, r.s.t.records, rec.ID, cloneRecord(rec))
	return nil
}

func (r *recordRepo) List(_ context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	r.s.mu.RLock()
	var out []*entity.InventoryRecord
	for _, rec := range r.s.t.records {
		if f.MerchantID != "" && rec.MerchantID != f.MerchantID {
			continue
		}
		if f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID {
			continue
		}
		if f.SKU != "" && rec.SKU != f.SKU {
			continue
		}
		if f.LowStockOnly && !rec.IsLowStock() {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

type transactionRepo struct {
	s  *Store
	tx *tx
}

func (r *transactionRepo) Create(_ context.Context, t *entity.InventoryTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.transactions[t.ID]; ok {
		return domain.ErrDuplicate
	}
	put(r.tx, r.s.t.transactions, t.ID, cloneTransaction(t))
	r.s.t.txOrder = append(r.s.t.txOrder, t.ID)
	return nil
}

// ordered recorre el libro en orden de inserción; las filas deshechas se saltan.
func (r *transactionRepo) ordered(match func(*entity.InventoryTransaction) bool) []*entity.InventoryTransaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.InventoryTransaction
	for _, id := range r.s.t.txOrder {
		t, ok := r.s.t.transactions[id]
		if ok && match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out
}

func (r *transactionRepo) ListByRecord(_ context.Context, recordID string, limit, offset int) ([]*entity.InventoryTransaction, error) {
	list := r.ordered(func(t *entity.InventoryTransaction) bool { return t.InventoryRecordID == recordID })
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return page(list, limit, offset), nil
}

func (r *transactionRepo) ListByReference(_ context.Context, refType, refID string) ([]*entity.InventoryTransaction, error) {
	return r.ordered(func(t *entity.InventoryTransaction) bool {
		return t.ReferenceType == refType && t.ReferenceID == refID
	}), nil
}
