package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/juju/clock"

	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

// UseCase ciclo de vida de los fulfillments: despacho, entrega y cancelación.
//
// Orden de bloqueo en todas las transacciones: orden → fulfillment → documento de salida →
// registros (por ID) → listing del registro → producto de canal.
type UseCase struct {
	store     ports.Store
	ledger    *inventory.LedgerUseCase
	refresher ports.StockRefresher
	clock     clock.Clock
	log       *logger.Logger
}

// NewUseCase construye el caso de uso. refresher puede ser nil.
func NewUseCase(store ports.Store, ledger *inventory.LedgerUseCase, refresher ports.StockRefresher, clk clock.Clock, log *logger.Logger) *UseCase {
	return &UseCase{store: store, ledger: ledger, refresher: refresher, clock: clk, log: log.Named("fulfillment")}
}

// Get obtiene un fulfillment visible para el comerciante (merchantID vacío = plataforma).
func (uc *UseCase) Get(ctx context.Context, merchantID, id string) (*entity.Fulfillment, error) {
	f, err := uc.store.Repos().Fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrNotFound
	}
	if err := authorize(f, merchantID); err != nil {
		return nil, err
	}
	return f, nil
}

// ListByOrder lista los fulfillments de una orden.
func (uc *UseCase) ListByOrder(ctx context.Context, orderID string) ([]*entity.Fulfillment, error) {
	return uc.store.Repos().Fulfillments.ListByOrder(ctx, orderID)
}

func authorize(f *entity.Fulfillment, merchantID string) error {
	if merchantID != "" && f.OwnerKey != merchantID {
		return domain.ErrForbidden
	}
	return nil
}

// lockPair bloquea la orden y luego el fulfillment.
func (uc *UseCase) lockPair(ctx context.Context, r ports.Repos, id string) (*entity.Order, *entity.Fulfillment, error) {
	cur, err := r.Fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cur == nil {
		return nil, nil, domain.ErrNotFound
	}
	o, err := r.Orders.GetForUpdate(ctx, cur.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, fmt.Errorf("orden %s: %w", cur.OrderID, domain.ErrNotFound)
	}
	f, err := r.Fulfillments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, domain.ErrNotFound
	}
	return o, f, nil
}

// StartProcessing pending → processing; a partir de aquí no se agregan líneas.
func (uc *UseCase) StartProcessing(ctx context.Context, merchantID, id string) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		_, f, err := uc.lockPair(ctx, r, id)
		if err != nil {
			return err
		}
		if err := authorize(f, merchantID); err != nil {
			return err
		}
		if err := f.StartProcessing(uc.clock.Now()); err != nil {
			return err
		}
		out = f
		return r.Fulfillments.Update(ctx, f)
	})
	return out, err
}

// Ship despacha un fulfillment de bodega de comerciante. Los de plataforma salen por el
// callback del WMS sobre su documento de salida.
func (uc *UseCase) Ship(ctx context.Context, merchantID, id, carrier, trackingNumber string) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, f, err := uc.lockPair(ctx, r, id)
		if err != nil {
			return err
		}
		if err := authorize(f, merchantID); err != nil {
			return err
		}
		if f.Type != entity.FulfillmentMerchantWarehouse {
			return domain.NewTransitionError("fulfillment", f.ID, string(f.Status), "despachar manualmente desde bodega de plataforma")
		}
		if err := f.MarkShipped(carrier, trackingNumber, uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.ShipInTx(ctx, r, o, f); err != nil {
			return err
		}
		out = f
		return r.Fulfillments.Update(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("fulfillment_id", out.ID).Str("order_id", out.OrderID).Int64("qty", out.TotalQuantity()).Msg("fulfillment despachado")
	uc.refresh(ctx, out)
	return out, nil
}

// ShipInTx consume lo reservado de cada línea (registros en orden de ID) y propaga lo
// despachado a la orden. El caller ya transicionó f a shipped y tiene orden y fulfillment bloqueados;
// persiste la orden, no el fulfillment.
func (uc *UseCase) ShipInTx(ctx context.Context, r ports.Repos, o *entity.Order, f *entity.Fulfillment) error {
	ref := entity.Reference{Type: entity.RefFulfillment, ID: f.ID}
	for _, it := range sortedItems(f) {
		if _, err := uc.ledger.ConfirmOutboundInTx(ctx, r, it.InventoryRecordID, it.Quantity, ref); err != nil {
			return err
		}
		oi, ok := o.Item(it.OrderItemID)
		if !ok {
			return fmt.Errorf("línea de orden %s: %w", it.OrderItemID, domain.ErrNotFound)
		}
		if err := oi.Ship(it.Quantity); err != nil {
			return err
		}
	}
	if err := o.RefreshShipment(uc.clock.Now()); err != nil {
		return err
	}
	return r.Orders.Update(ctx, o)
}

// MarkDelivered shipped → delivered; la orden se completa cuando todo lo despachado fue entregado.
func (uc *UseCase) MarkDelivered(ctx context.Context, merchantID, id string) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, f, err := uc.lockPair(ctx, r, id)
		if err != nil {
			return err
		}
		if err := authorize(f, merchantID); err != nil {
			return err
		}
		now := uc.clock.Now()
		if err := f.MarkDelivered(now); err != nil {
			return err
		}
		if err := r.Fulfillments.Update(ctx, f); err != nil {
			return err
		}
		out = f
		if o.Status != entity.OrderShipped {
			return nil
		}
		siblings, err := r.Fulfillments.ListByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, s := range siblings {
			if s.ID == f.ID {
				continue
			}
			if s.Status != entity.FulfillmentDelivered && s.Status != entity.FulfillmentCancelled {
				return nil
			}
		}
		if err := o.Complete(now); err != nil {
			return err
		}
		return r.Orders.Update(ctx, o)
	})
	return out, err
}

// Cancel cancela un fulfillment abierto, devuelve lo reservado y reabre la asignación de la orden.
func (uc *UseCase) Cancel(ctx context.Context, merchantID, id, reason string) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, f, err := uc.lockPair(ctx, r, id)
		if err != nil {
			return err
		}
		if err := authorize(f, merchantID); err != nil {
			return err
		}
		if err := uc.cancelInTx(ctx, r, o, f, reason); err != nil {
			return err
		}
		if err := o.ReopenAllocation(fmt.Sprintf("fulfillment %s cancelado: %s", f.FulfillmentNo, reason), uc.clock.Now()); err != nil {
			return err
		}
		out = f
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("fulfillment_id", out.ID).Str("order_id", out.OrderID).Str("reason", reason).Msg("fulfillment cancelado")
	uc.refresh(ctx, out)
	return out, nil
}

// CancelForOrderInTx cancela todos los fulfillments abiertos de una orden bloqueada.
// Primero bloquea cada fulfillment y después libera las líneas de todos juntos por ID de registro.
// Devuelve los registros tocados para refrescar el stock de canal después del commit.
// El caller persiste la orden.
func (uc *UseCase) CancelForOrderInTx(ctx context.Context, r ports.Repos, o *entity.Order, reason string) ([]string, error) {
	list, err := r.Fulfillments.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	var locked []*entity.Fulfillment
	for _, cur := range list {
		if !cur.Open() {
			continue
		}
		f, err := r.Fulfillments.GetForUpdate(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		locked = append(locked, f)
	}
	if err := uc.cancelAllInTx(ctx, r, o, locked, reason); err != nil {
		return nil, err
	}
	return recordIDs(locked...), nil
}

func (uc *UseCase) cancelInTx(ctx context.Context, r ports.Repos, o *entity.Order, f *entity.Fulfillment, reason string) error {
	return uc.cancelAllInTx(ctx, r, o, []*entity.Fulfillment{f}, reason)
}

// cancelAllInTx revierte la asignación de los fulfillments: documento de salida, reservado,
// líneas de la orden, ventas del listing y de la fuente, y lo comprometido del registro.
// Las líneas de todos se recorren en un único orden (registro, listing, fuente).
func (uc *UseCase) cancelAllInTx(ctx context.Context, r ports.Repos, o *entity.Order, list []*entity.Fulfillment, reason string) error {
	now := uc.clock.Now()
	type line struct {
		fulfillmentID string
		item          entity.FulfillmentItem
	}
	var lines []line
	for _, f := range list {
		if err := f.Cancel(reason, now); err != nil {
			return err
		}
		if f.Type == entity.FulfillmentPlatformWarehouse {
			if err := uc.cancelOutboundInTx(ctx, r, f.ID, now); err != nil {
				return err
			}
		}
		for _, it := range f.Items {
			lines = append(lines, line{fulfillmentID: f.ID, item: it})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].item, lines[j].item
		if a.InventoryRecordID != b.InventoryRecordID {
			return a.InventoryRecordID < b.InventoryRecordID
		}
		if a.ListingID != b.ListingID {
			return a.ListingID < b.ListingID
		}
		return a.SourceID < b.SourceID
	})

	for _, ln := range lines {
		it := ln.item
		ref := entity.Reference{Type: entity.RefFulfillment, ID: ln.fulfillmentID}
		rec, err := uc.ledger.ReleaseInTx(ctx, r, it.InventoryRecordID, it.Quantity, ref)
		if err != nil {
			return err
		}
		if oi, ok := o.Item(it.OrderItemID); ok {
			oi.Deallocate(it.Quantity)
		}
		l, err := r.Listings.GetForUpdate(ctx, it.ListingID)
		if err != nil {
			return err
		}
		if l != nil {
			l.RevertSale(it.Quantity, now)
			if err := r.Listings.Update(ctx, l); err != nil {
				return err
			}
		}
		if it.SourceID != "" {
			if err := r.ChannelProducts.IncrementSourceSold(ctx, it.SourceID, -it.Quantity); err != nil {
				return err
			}
		}
		if err := uc.ledger.RefreshEarmarkInTx(ctx, r, rec); err != nil {
			return err
		}
	}
	for _, f := range list {
		if err := r.Fulfillments.Update(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (uc *UseCase) cancelOutboundInTx(ctx context.Context, r ports.Repos, fulfillmentID string, now time.Time) error {
	cur, err := r.Outbound.GetByFulfillment(ctx, fulfillmentID)
	if err != nil || cur == nil {
		return err
	}
	doc, err := r.Outbound.GetForUpdate(ctx, cur.ID)
	if err != nil {
		return err
	}
	if doc.Status == entity.OutboundCancelled {
		return nil
	}
	if err := doc.Cancel(now); err != nil {
		return err
	}
	return r.Outbound.Update(ctx, doc)
}

func (uc *UseCase) refresh(ctx context.Context, f *entity.Fulfillment) {
	if uc.refresher == nil {
		return
	}
	// el error ya queda registrado por el refresher
	_ = uc.refresher.RefreshRecords(ctx, recordIDs(f)...)
}

func sortedItems(f *entity.Fulfillment) []entity.FulfillmentItem {
	items := append([]entity.FulfillmentItem(nil), f.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].InventoryRecordID < items[j].InventoryRecordID })
	return items
}

func recordIDs(fs ...*entity.Fulfillment) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, f := range fs {
		for _, it := range f.Items {
			if _, ok := seen[it.InventoryRecordID]; ok {
				continue
			}
			seen[it.InventoryRecordID] = struct{}{}
			ids = append(ids, it.InventoryRecordID)
		}
	}
	sort.Strings(ids)
	return ids
}
