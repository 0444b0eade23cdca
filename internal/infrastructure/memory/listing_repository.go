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
	_ repository.ListingRepository        = (*listingRepo)(nil)
	_ repository.ChannelProductRepository = (*channelProductRepo)(nil)
)

type listingRepo struct {
	s  *Store
	tx *tx
}

func (r *listingRepo) Create(_ context.Context, l *entity.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.listings[l.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.s.t.listings {
		if other.InventoryRecordID == l.InventoryRecordID && other.ChannelConnectionID == l.ChannelConnectionID {
			return domain.ErrDuplicate
		}
	}
	put(r.tx, r.s.t.listings, l.ID, cloneListing(l))
	return nil
}

func (r *listingRepo) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.t.listings[id]; ok {
		return cloneListing(l), nil
	}
	return nil, nil
}

func (r *listingRepo) GetForUpdate(ctx context.Context, id string) (*entity.Listing, error) {
	r.tx.lock("listing:" + id)
	return r.GetByID(ctx, id)
}

func (r *listingRepo) Update(_ context.Context, l *entity.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.listings[l.ID]; !ok {
		return fmt.Errorf("listing %s: %w", l.ID, domain.ErrNotFound)
	}
	put(r.tx, r.s.t.listings, l.ID, cloneListing(l))
	return nil
}

func (r *listingRepo) filter(match func(*entity.Listing) bool) []*entity.Listing {
	r.s.mu.RLock()
	var out []*entity.Listing
	for _, l := range r.s.t.listings {
		if match(l) {
			out = append(out, cloneListing(l))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *listingRepo) ListByRecord(_ context.Context, recordID string) ([]*entity.Listing, error) {
	return r.filter(func(l *entity.Listing) bool { return l.InventoryRecordID == recordID }), nil
}

func (r *listingRepo) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*entity.Listing, error) {
	list := r.filter(func(l *entity.Listing) bool { return l.MerchantID == merchantID })
	return page(list, limit, offset), nil
}

type channelProductRepo struct {
	s  *Store
	tx *tx
}

func (r *channelProductRepo) Create(_ context.Context, cp *entity.ChannelProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.channelProducts[cp.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.s.t.channelProducts {
		if other.ChannelID == cp.ChannelID && other.SKU == cp.SKU {
			return domain.ErrDuplicate
		}
	}
	put(r.tx, r.s.t.channelProducts, cp.ID, cloneChannelProduct(cp))
	return nil
}

func (r *channelProductRepo) GetByID(_ context.Context, id string) (*entity.ChannelProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if cp, ok := r.s.t.channelProducts[id]; ok {
		return cloneChannelProduct(cp), nil
	}
	return nil, nil
}

func (r *channelProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.ChannelProduct, error) {
	r.tx.lock("channel-product:" + id)
	return r.GetByID(ctx, id)
}

func (r *channelProductRepo) GetByChannelSKU(_ context.Context, channelID, sku string) (*entity.ChannelProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, cp := range r.s.t.channelProducts {
		if cp.ChannelID == channelID && cp.SKU == sku {
			return cloneChannelProduct(cp), nil
		}
	}
	return nil, nil
}

// mutate aplica fn sobre una copia del producto guardado y la guarda. El rollback aplica undo
// sobre lo guardado en ese momento: solo deshace los campos que tocó esta transacción.
// Debe llamarse sin s.mu tomado.
func (r *channelProductRepo) mutate(cpID string, fn func(cp *entity.ChannelProduct) error, undo func(cp *entity.ChannelProduct)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.t.channelProducts
	cur, ok := m[cpID]
	if !ok {
		return fmt.Errorf("producto de canal %s: %w", cpID, domain.ErrNotFound)
	}
	next := cloneChannelProduct(cur)
	if err := fn(next); err != nil {
		return err
	}
	m[cpID] = next
	r.tx.onRollback(func() {
		if cur, ok := m[cpID]; ok {
			restored := cloneChannelProduct(cur)
			undo(restored)
			m[cpID] = restored
		}
	})
	return nil
}

// Update reescribe la cabecera y conserva las fuentes guardadas.
func (r *channelProductRepo) Update(_ context.Context, cp *entity.ChannelProduct) error {
	var prev entity.ChannelProduct
	return r.mutate(cp.ID, func(cur *entity.ChannelProduct) error {
		prev = *cur
		sources := cur.Sources
		*cur = *cp
		cur.Sources = sources
		return nil
	}, func(cur *entity.ChannelProduct) {
		sources := cur.Sources
		*cur = prev
		cur.Sources = sources
	})
}

func (r *channelProductRepo) AddSource(_ context.Context, src *entity.ChannelProductSource) error {
	return r.mutate(src.ChannelProductID, func(cp *entity.ChannelProduct) error {
		return cp.AddSource(*src)
	}, func(cp *entity.ChannelProduct) {
		kept := cp.Sources[:0]
		for _, s := range cp.Sources {
			if s.ID != src.ID {
				kept = append(kept, s)
			}
		}
		cp.Sources = kept
	})
}

// UpdateSource reescribe la configuración de la fuente. SoldQuantity solo cambia por IncrementSourceSold.
func (r *channelProductRepo) UpdateSource(_ context.Context, src *entity.ChannelProductSource) error {
	var prev entity.ChannelProductSource
	return r.mutate(src.ChannelProductID, func(cp *entity.ChannelProduct) error {
		cur, ok := cp.Source(src.ID)
		if !ok {
			return fmt.Errorf("fuente %s: %w", src.ID, domain.ErrNotFound)
		}
		prev = *cur
		sold := cur.SoldQuantity
		*cur = *src
		cur.SoldQuantity = sold
		return nil
	}, func(cp *entity.ChannelProduct) {
		if cur, ok := cp.Source(src.ID); ok {
			sold := cur.SoldQuantity
			*cur = prev
			cur.SoldQuantity = sold
		}
	})
}

func (r *channelProductRepo) ownerOf(sourceID string) (string, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, cp := range r.s.t.channelProducts {
		if _, ok := cp.Source(sourceID); ok {
			return cp.ID, true
		}
	}
	return "", false
}

func (r *channelProductRepo) IncrementSourceSold(_ context.Context, sourceID string, delta int64) error {
	cpID, ok := r.ownerOf(sourceID)
	if !ok {
		return fmt.Errorf("fuente %s: %w", sourceID, domain.ErrNotFound)
	}
	r.tx.lock("source:" + sourceID)
	var prev int64
	return r.mutate(cpID, func(cp *entity.ChannelProduct) error {
		src, ok := cp.Source(sourceID)
		if !ok {
			return fmt.Errorf("fuente %s: %w", sourceID, domain.ErrNotFound)
		}
		prev = src.SoldQuantity
		src.SoldQuantity += delta
		if src.SoldQuantity < 0 {
			src.SoldQuantity = 0
		}
		return nil
	}, func(cp *entity.ChannelProduct) {
		if src, ok := cp.Source(sourceID); ok {
			src.SoldQuantity = prev
		}
	})
}

func (r *channelProductRepo) filter(match func(*entity.ChannelProduct) bool) []*entity.ChannelProduct {
	r.s.mu.RLock()
	var out []*entity.ChannelProduct
	for _, cp := range r.s.t.channelProducts {
		if match(cp) {
			out = append(out, cloneChannelProduct(cp))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *channelProductRepo) ListByListing(_ context.Context, listingID string) ([]*entity.ChannelProduct, error) {
	return r.filter(func(cp *entity.ChannelProduct) bool { return cp.HasListing(listingID) }), nil
}

func (r *channelProductRepo) ListByChannel(_ context.Context, channelID string, limit, offset int) ([]*entity.ChannelProduct, error) {
	list := r.filter(func(cp *entity.ChannelProduct) bool { return channelID == "" || cp.ChannelID == channelID })
	return page(list, limit, offset), nil
}
