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
	_ repository.OutboundOrderRepository    = (*outboundRepo)(nil)
	_ repository.InboundOrderRepository     = (*inboundRepo)(nil)
	_ repository.InboundExceptionRepository = (*exceptionRepo)(nil)
	_ repository.DocumentSequenceRepository = (*sequenceRepo)(nil)
)

type outboundRepo struct {
	s  *Store
	tx *tx
}

func (r *outboundRepo) Create(_ context.Context, o *entity.OutboundOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.t.outbound {
		if other.ID == o.ID || other.FulfillmentID == o.FulfillmentID {
			return domain.ErrDuplicate
		}
	}
	put(r.tx, r.s.t.outbound, o.ID, cloneOutbound(o))
	return nil
}

func (r *outboundRepo) find(match func(*entity.OutboundOrder) bool) *entity.OutboundOrder {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.t.outbound {
		if match(o) {
			return cloneOutbound(o)
		}
	}
	return nil
}

func (r *outboundRepo) GetByID(_ context.Context, id string) (*entity.OutboundOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.t.outbound[id]; ok {
		return cloneOutbound(o), nil
	}
	return nil, nil
}

func (r *outboundRepo) GetForUpdate(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	r.tx.lock("outbound:" + id)
	return r.GetByID(ctx, id)
}

func (r *outboundRepo) GetByFulfillment(_ context.Context, fulfillmentID string) (*entity.OutboundOrder, error) {
	return r.find(func(o *entity.OutboundOrder) bool { return o.FulfillmentID == fulfillmentID }), nil
}

func (r *outboundRepo) GetByOutboundNo(_ context.Context, outboundNo string) (*entity.OutboundOrder, error) {
	return r.find(func(o *entity.OutboundOrder) bool { return o.OutboundNo == outboundNo }), nil
}

func (r *outboundRepo) Update(_ context.Context, o *entity.OutboundOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.outbound[o.ID]
	if !ok {
		return fmt.Errorf("documento de salida %s: %w", o.ID, domain.ErrNotFound)
	}
	next := cloneOutbound(o)
	next.Items = append([]entity.OutboundOrderItem(nil), cur.Items...)
	put(r.tx, r.s.t.outbound, o.ID, next)
	return nil
}

func (r *outboundRepo) filter(match func(*entity.OutboundOrder) bool) []*entity.OutboundOrder {
	r.s.mu.RLock()
	var out []*entity.OutboundOrder
	for _, o := range r.s.t.outbound {
		if match(o) {
			out = append(out, cloneOutbound(o))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *outboundRepo) ListSyncable(_ context.Context, limit int) ([]*entity.OutboundOrder, error) {
	list := r.filter(func(o *entity.OutboundOrder) bool {
		return o.CanSync() && o.Status != entity.OutboundCancelled
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].SyncAttempts < list[j].SyncAttempts })
	return page(list, limit, 0), nil
}

func (r *outboundRepo) List(_ context.Context, f repository.OutboundFilter) ([]*entity.OutboundOrder, error) {
	list := r.filter(func(o *entity.OutboundOrder) bool {
		return (f.WarehouseID == "" || o.WarehouseID == f.WarehouseID) &&
			(f.Status == "" || o.Status == f.Status) &&
			(f.SyncStatus == "" || o.SyncStatus == f.SyncStatus)
	})
	return page(list, f.Limit, f.Offset), nil
}

type inboundRepo struct {
	s  *Store
	tx *tx
}

func (r *inboundRepo) Create(_ context.Context, o *entity.InboundOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.inbound[o.ID]; ok {
		return domain.ErrDuplicate
	}
	put(r.tx, r.s.t.inbound, o.ID, cloneInbound(o))
	return nil
}

func (r *inboundRepo) GetByID(_ context.Context, id string) (*entity.InboundOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.t.inbound[id]; ok {
		return cloneInbound(o), nil
	}
	return nil, nil
}

func (r *inboundRepo) GetForUpdate(ctx context.Context, id string) (*entity.InboundOrder, error) {
	r.tx.lock("inbound:" + id)
	return r.GetByID(ctx, id)
}

func (r *inboundRepo) GetByInboundNo(_ context.Context, inboundNo string) (*entity.InboundOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.t.inbound {
		if o.InboundNo == inboundNo {
			return cloneInbound(o), nil
		}
	}
	return nil, nil
}

// Update reescribe la cabecera y conserva las líneas guardadas.
func (r *inboundRepo) Update(_ context.Context, o *entity.InboundOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.inbound[o.ID]
	if !ok {
		return fmt.Errorf("documento de entrada %s: %w", o.ID, domain.ErrNotFound)
	}
	next := cloneInbound(o)
	next.Items = append([]entity.InboundOrderItem(nil), cur.Items...)
	put(r.tx, r.s.t.inbound, o.ID, next)
	return nil
}

func (r *inboundRepo) UpdateItem(_ context.Context, it *entity.InboundOrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.inbound[it.InboundOrderID]
	if !ok {
		return fmt.Errorf("documento de entrada %s: %w", it.InboundOrderID, domain.ErrNotFound)
	}
	next := cloneInbound(cur)
	dst, ok := next.Item(it.ID)
	if !ok {
		return fmt.Errorf("línea de entrada %s: %w", it.ID, domain.ErrNotFound)
	}
	*dst = *it
	put(r.tx, r.s.t.inbound, next.ID, next)
	return nil
}

func (r *inboundRepo) List(_ context.Context, f repository.InboundFilter) ([]*entity.InboundOrder, error) {
	r.s.mu.RLock()
	var out []*entity.InboundOrder
	for _, o := range r.s.t.inbound {
		if (f.MerchantID == "" || o.MerchantID == f.MerchantID) &&
			(f.WarehouseID == "" || o.WarehouseID == f.WarehouseID) &&
			(f.Status == "" || o.Status == f.Status) {
			out = append(out, cloneInbound(o))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

type exceptionRepo struct {
	s  *Store
	tx *tx
}

func (r *exceptionRepo) Create(_ context.Context, e *entity.InboundException) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.exceptions[e.ID]; ok {
		return domain.ErrDuplicate
	}
	put(r.tx, r.s.t.exceptions, e.ID, cloneException(e))
	return nil
}

func (r *exceptionRepo) GetByID(_ context.Context, id string) (*entity.InboundException, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if e, ok := r.s.t.exceptions[id]; ok {
		return cloneException(e), nil
	}
	return nil, nil
}

func (r *exceptionRepo) GetForUpdate(ctx context.Context, id string) (*entity.InboundException, error) {
	r.tx.lock("exception:" + id)
	return r.GetByID(ctx, id)
}

func (r *exceptionRepo) Update(_ context.Context, e *entity.InboundException) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.exceptions[e.ID]; !ok {
		return fmt.Errorf("novedad %s: %w", e.ID, domain.ErrNotFound)
	}
	put(r.tx, r.s.t.exceptions, e.ID, cloneException(e))
	return nil
}

func (r *exceptionRepo) filter(match func(*entity.InboundException) bool) []*entity.InboundException {
	r.s.mu.RLock()
	var out []*entity.InboundException
	for _, e := range r.s.t.exceptions {
		if match(e) {
			out = append(out, cloneException(e))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *exceptionRepo) ListByInbound(_ context.Context, inboundOrderID string) ([]*entity.InboundException, error) {
	return r.filter(func(e *entity.InboundException) bool { return e.InboundOrderID == inboundOrderID }), nil
}

func (r *exceptionRepo) List(_ context.Context, status entity.ExceptionStatus, limit, offset int) ([]*entity.InboundException, error) {
	list := r.filter(func(e *entity.InboundException) bool { return status == "" || e.Status == status })
	return page(list, limit, offset), nil
}

// sequenceRepo contador por (prefijo, día). Como una secuencia SQL, no participa del rollback.
type sequenceRepo struct {
	s *Store
}

func (r *sequenceRepo) Next(_ context.Context, prefix, day string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := prefix + day
	r.s.t.sequences[key]++
	return r.s.t.sequences[key], nil
}
