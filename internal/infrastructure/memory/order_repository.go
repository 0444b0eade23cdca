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
	_ repository.OrderRepository       = (*orderRepo)(nil)
	_ repository.FulfillmentRepository = (*fulfillmentRepo)(nil)
)

type orderRepo struct {
	s  *Store
	tx *tx
}

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	r.tx.lock("order-ext:" + o.ChannelID + "|" + o.ExternalOrderNo)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.s.t.orders {
		if other.ChannelID == o.ChannelID && other.ExternalOrderNo == o.ExternalOrderNo {
			return domain.ErrDuplicate
		}
	}
	put(r.tx, r.s.t.orders, o.ID, cloneOrder(o))
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.t.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	r.tx.lock("order:" + id)
	return r.GetByID(ctx, id)
}

func (r *orderRepo) GetByExternal(_ context.Context, channelID, externalOrderNo string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.t.orders {
		if o.ChannelID == channelID && o.ExternalOrderNo == externalOrderNo {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (r *orderRepo) Update(_ context.Context, o *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.orders[o.ID]; !ok {
		return fmt.Errorf("orden %s: %w", o.ID, domain.ErrNotFound)
	}
	put(r.tx, r.s.t.orders, o.ID, cloneOrder(o))
	return nil
}

func (r *orderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	r.s.mu.RLock()
	var out []*entity.Order
	for _, o := range r.s.t.orders {
		if f.ChannelID != "" && o.ChannelID != f.ChannelID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

type fulfillmentRepo struct {
	s  *Store
	tx *tx
}

func (r *fulfillmentRepo) Create(_ context.Context, f *entity.Fulfillment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.fulfillments[f.ID]; ok {
		return domain.ErrDuplicate
	}
	put(r.tx, r.s.t.fulfillments, f.ID, cloneFulfillment(f))
	return nil
}

func (r *fulfillmentRepo) AddItem(_ context.Context, it *entity.FulfillmentItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.fulfillments[it.FulfillmentID]
	if !ok {
		return fmt.Errorf("fulfillment %s: %w", it.FulfillmentID, domain.ErrNotFound)
	}
	next := cloneFulfillment(cur)
	next.Items = append(next.Items, *it)
	put(r.tx, r.s.t.fulfillments, next.ID, next)
	return nil
}

func (r *fulfillmentRepo) GetByID(_ context.Context, id string) (*entity.Fulfillment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if f, ok := r.s.t.fulfillments[id]; ok {
		return cloneFulfillment(f), nil
	}
	return nil, nil
}

func (r *fulfillmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Fulfillment, error) {
	r.tx.lock("fulfillment:" + id)
	return r.GetByID(ctx, id)
}

func (r *fulfillmentRepo) FindOpenByKey(_ context.Context, orderID, warehouseID, ownerKey string) (*entity.Fulfillment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, f := range r.s.t.fulfillments {
		if f.OrderID == orderID && f.WarehouseID == warehouseID && f.OwnerKey == ownerKey && f.Status == entity.FulfillmentPending {
			return cloneFulfillment(f), nil
		}
	}
	return nil, nil
}

func (r *fulfillmentRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Fulfillment, error) {
	r.s.mu.RLock()
	var out []*entity.Fulfillment
	for _, f := range r.s.t.fulfillments {
		if f.OrderID == orderID {
			out = append(out, cloneFulfillment(f))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update reescribe la cabecera y conserva las líneas guardadas.
func (r *fulfillmentRepo) Update(_ context.Context, f *entity.Fulfillment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.fulfillments[f.ID]
	if !ok {
		return fmt.Errorf("fulfillment %s: %w", f.ID, domain.ErrNotFound)
	}
	next := cloneFulfillment(f)
	next.Items = append([]entity.FulfillmentItem(nil), cur.Items...)
	put(r.tx, r.s.t.fulfillments, f.ID, next)
	return nil
}
