// Package allocation enruta las líneas de una orden pagada hacia los registros de inventario
// siguiendo la prioridad de las fuentes de cada producto de canal.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/juju/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/docnumber"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// Router asigna órdenes. Cada paso (línea × fuente) es una transacción corta que bloquea
// orden → fulfillment → registro → listing; nunca se sostienen bloqueos entre fuentes.
type Router struct {
	store     ports.Store
	ledger    *inventory.LedgerUseCase
	outbound  *outbound.UseCase
	pricing   ports.PricingEvaluator
	refresher ports.StockRefresher
	clock     clock.Clock
	log       *logger.Logger
	metrics   *telemetry.Metrics
}

// NewRouter construye el enrutador. refresher puede ser nil.
func NewRouter(
	store ports.Store,
	ledger *inventory.LedgerUseCase,
	outboundUC *outbound.UseCase,
	pricing ports.PricingEvaluator,
	refresher ports.StockRefresher,
	clk clock.Clock,
	log *logger.Logger,
	metrics *telemetry.Metrics,
) *Router {
	return &Router{
		store:     store,
		ledger:    ledger,
		outbound:  outboundUC,
		pricing:   pricing,
		refresher: refresher,
		clock:     clk,
		log:       log.Named("allocation"),
		metrics:   metrics,
	}
}

// Allocate asigna el remanente de cada línea: pending|allocation_failed → allocating →
// allocated (crea documentos de salida) o allocation_failed (conserva lo ya asignado).
func (rt *Router) Allocate(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "allocation.Allocate", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	var o *entity.Order
	err := rt.store.Run(ctx, func(r ports.Repos) error {
		cur, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrNotFound
		}
		if err := cur.StartAllocation(rt.clock.Now()); err != nil {
			return err
		}
		o = cur
		return r.Orders.Update(ctx, cur)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	touched := make(map[string]struct{})
	var stepErr error
	for _, item := range o.Items {
		if item.PendingQuantity() == 0 {
			continue
		}
		if stepErr = rt.allocateItem(ctx, orderID, item, touched); stepErr != nil {
			break
		}
	}

	final, err := rt.finish(ctx, orderID, stepErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.status", string(final.Status)))
	rt.metrics.Allocation(string(final.Status))
	rt.refresh(ctx, touched)
	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, "allocation step")
		return final, stepErr
	}
	return final, nil
}

// allocateItem recorre las fuentes activas en orden de prioridad hasta cubrir el remanente.
// Una fuente sin stock suficiente no es error: se pasa a la siguiente.
func (rt *Router) allocateItem(ctx context.Context, orderID string, item entity.OrderItem, touched map[string]struct{}) error {
	cp, err := rt.store.Repos().ChannelProducts.GetByID(ctx, item.ChannelProductID)
	if err != nil {
		return err
	}
	if cp == nil {
		rt.log.Warn().Str("order_id", orderID).Str("channel_product_id", item.ChannelProductID).Msg("producto de canal inexistente")
		return nil
	}
	remaining := item.PendingQuantity()
	for _, src := range cp.ActiveSourcesByPriority() {
		if remaining <= 0 {
			break
		}
		got, recordID, err := rt.step(ctx, orderID, item.ID, src, remaining)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				rt.metrics.Reservation("insufficient")
				continue
			}
			return err
		}
		if got == 0 {
			continue
		}
		rt.metrics.Reservation("reserved")
		touched[recordID] = struct{}{}
		remaining -= got
	}
	return nil
}

// step reserva hasta want unidades de una fuente y las fija a un fulfillment de (bodega, dueño).
func (rt *Router) step(ctx context.Context, orderID, itemID string, src entity.ChannelProductSource, want int64) (int64, string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "allocation.step", trace.WithAttributes(
		attribute.String("source.id", src.ID),
		attribute.String("listing.id", src.ListingID),
	))
	defer span.End()

	var allocated int64
	var recordID string
	err := rt.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if o.Status != entity.OrderAllocating {
			return domain.NewTransitionError("orden", o.ID, string(o.Status), "asignar")
		}
		item, ok := o.Item(itemID)
		if !ok {
			return domain.ErrNotFound
		}
		if p := item.PendingQuantity(); p < want {
			want = p
		}
		if want <= 0 {
			return nil
		}

		l, err := r.Listings.GetByID(ctx, src.ListingID)
		if err != nil || l == nil || !l.Sellable() {
			return err
		}
		snapshot, err := r.Records.GetByID(ctx, l.InventoryRecordID)
		if err != nil || snapshot == nil {
			return err
		}
		f, err := rt.openFulfillment(ctx, r, o, snapshot)
		if err != nil {
			return err
		}

		rec, err := r.Records.GetForUpdate(ctx, l.InventoryRecordID)
		if err != nil {
			return err
		}
		l, err = r.Listings.GetForUpdate(ctx, src.ListingID)
		if err != nil {
			return err
		}
		if !l.Sellable() {
			return nil
		}
		qty := l.AvailableQuantity(rec)
		if qty > want {
			qty = want
		}
		if qty <= 0 {
			return nil
		}

		now := rt.clock.Now()
		ref := entity.Reference{Type: entity.RefFulfillment, ID: f.ID}
		if err := rt.ledger.ReserveLockedInTx(ctx, r, rec, qty, ref); err != nil {
			return err
		}
		if err := item.Allocate(qty); err != nil {
			return err
		}
		if err := l.RecordSale(qty, now); err != nil {
			return err
		}
		if err := r.Listings.Update(ctx, l); err != nil {
			return err
		}
		if err := r.ChannelProducts.IncrementSourceSold(ctx, src.ID, qty); err != nil {
			return err
		}
		if err := rt.ledger.RefreshEarmarkInTx(ctx, r, rec); err != nil {
			return err
		}

		settlement, err := rt.pricing.Evaluate(ctx, l, qty)
		if err != nil {
			return fmt.Errorf("liquidación listing %s: %w", l.ID, err)
		}
		if err := f.AddItem(entity.FulfillmentItem{
			ID:                domain.NewID(),
			OrderItemID:       item.ID,
			InventoryRecordID: rec.ID,
			ListingID:         l.ID,
			SourceID:          src.ID,
			SKU:               item.SKU,
			Quantity:          qty,
			SettlementPrice:   settlement.UnitPrice,
			Commission:        settlement.Commission,
			CreatedAt:         now,
		}); err != nil {
			return err
		}
		if err := r.Fulfillments.AddItem(ctx, &f.Items[len(f.Items)-1]); err != nil {
			return err
		}
		if err := r.Orders.Update(ctx, o); err != nil {
			return err
		}
		allocated = qty
		recordID = rec.ID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, "", err
	}
	span.SetAttributes(attribute.Int64("allocated", allocated))
	if allocated > 0 {
		rt.log.Debug().Str("order_id", orderID).Str("record_id", recordID).Str("listing_id", src.ListingID).Int64("qty", allocated).Msg("unidades asignadas")
	}
	return allocated, recordID, nil
}

// openFulfillment bloquea el fulfillment pendiente de la orden para la bodega y dueño del registro,
// creándolo si no existe.
func (rt *Router) openFulfillment(ctx context.Context, r ports.Repos, o *entity.Order, rec *entity.InventoryRecord) (*entity.Fulfillment, error) {
	ftype := entity.FulfillmentMerchantWarehouse
	wh, err := r.Warehouses.GetByID(ctx, rec.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh != nil {
		ftype = wh.FulfillmentType()
	}
	owner := entity.OwnerKeyFor(ftype, rec.MerchantID)

	cur, err := r.Fulfillments.FindOpenByKey(ctx, o.ID, rec.WarehouseID, owner)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return r.Fulfillments.GetForUpdate(ctx, cur.ID)
	}
	now := rt.clock.Now()
	no, err := docnumber.Next(ctx, r.Sequences, docnumber.PrefixFulfillment, now)
	if err != nil {
		return nil, err
	}
	f := &entity.Fulfillment{
		ID:            domain.NewID(),
		FulfillmentNo: no,
		OrderID:       o.ID,
		WarehouseID:   rec.WarehouseID,
		OwnerKey:      owner,
		Type:          ftype,
		Status:        entity.FulfillmentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Fulfillments.Create(ctx, f); err != nil {
		return nil, err
	}
	return r.Fulfillments.GetForUpdate(ctx, f.ID)
}

// finish cierra la asignación. Con stepErr la orden queda en allocation_failed con ese motivo.
func (rt *Router) finish(ctx context.Context, orderID string, stepErr error) (*entity.Order, error) {
	var out *entity.Order
	var docs []*entity.OutboundOrder
	err := rt.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		now := rt.clock.Now()
		switch {
		case stepErr == nil && o.FullyAllocated():
			if err := o.CompleteAllocation(now); err != nil {
				return err
			}
			if docs, err = rt.outbound.CreateForOrderInTx(ctx, r, o); err != nil {
				return err
			}
		case stepErr != nil:
			if err := o.FailAllocation(stepErr.Error(), now); err != nil {
				return err
			}
		default:
			if err := o.FailAllocation(shortReason(o), now); err != nil {
				return err
			}
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	ev := rt.log.Info()
	if out.Status != entity.OrderAllocated {
		ev = rt.log.Warn().Str("reason", out.AllocationFailReason)
	}
	ev.Str("order_id", out.ID).Str("status", string(out.Status)).Int("outbound_docs", len(docs)).Msg("asignación terminada")
	return out, nil
}

func shortReason(o *entity.Order) string {
	var parts []string
	for _, it := range o.Items {
		if p := it.PendingQuantity(); p > 0 {
			parts = append(parts, fmt.Sprintf("%s (faltan %d)", it.SKU, p))
		}
	}
	return "stock insuficiente: " + strings.Join(parts, ", ")
}

func (rt *Router) refresh(ctx context.Context, touched map[string]struct{}) {
	if rt.refresher == nil || len(touched) == 0 {
		return
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	_ = rt.refresher.RefreshRecords(ctx, ids...)
}
