package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*warehouseRepo)(nil)
	_ repository.ProductRepository   = (*productRepo)(nil)
)

type warehouseRepo struct {
	s  *Store
	tx *tx
}

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.t.warehouses {
		if other.ID == w.ID || (w.Code != "" && other.Code == w.Code) {
			return domain.ErrDuplicate
		}
	}
	put(r.tx, r.s.t.warehouses, w.ID, cloneWarehouse(w))
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if w, ok := r.s.t.warehouses[id]; ok {
		return cloneWarehouse(w), nil
	}
	return nil, nil
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	r.s.mu.RLock()
	out := make([]*entity.Warehouse, 0, len(r.s.t.warehouses))
	for _, w := range r.s.t.warehouses {
		out = append(out, cloneWarehouse(w))
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}

type productRepo struct {
	s  *Store
	tx *tx
}

func productKey(merchantID, sku string) string { return merchantID + "|" + sku }

func (r *productRepo) Upsert(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(r.tx, r.s.t.products, productKey(p.MerchantID, p.SKU), cloneProduct(p))
	return nil
}

func (r *productRepo) GetBySKU(_ context.Context, merchantID, sku string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.t.products[productKey(merchantID, sku)]; ok {
		return cloneProduct(p), nil
	}
	return nil, nil
}
