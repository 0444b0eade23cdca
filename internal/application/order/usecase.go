package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/fulfillment"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

// UseCase recepción de órdenes de canal, pago y cancelación.
type UseCase struct {
	store        ports.Store
	fulfillments *fulfillment.UseCase
	refresher    ports.StockRefresher
	clock        clock.Clock
	log          *logger.Logger
}

// NewUseCase construye el caso de uso. refresher puede ser nil.
func NewUseCase(store ports.Store, fulfillments *fulfillment.UseCase, refresher ports.StockRefresher, clk clock.Clock, log *logger.Logger) *UseCase {
	return &UseCase{store: store, fulfillments: fulfillments, refresher: refresher, clock: clk, log: log.Named("order")}
}

// IngestItem línea recibida del canal. Se resuelve por ChannelProductID o, si viene vacío, por SKU del canal.
type IngestItem struct {
	ChannelProductID string
	SKU              string
	Quantity         int64
	UnitPrice        decimal.Decimal
}

// IngestInput orden tal como la entrega el canal.
type IngestInput struct {
	ChannelID       string
	ExternalOrderNo string
	Paid            bool
	Receiver        entity.Address
	Items           []IngestItem
}

// Ingest registra la orden; es idempotente sobre (canal, número externo).
// created es false cuando la orden ya existía.
func (uc *UseCase) Ingest(ctx context.Context, in IngestInput) (o *entity.Order, created bool, err error) {
	if in.ChannelID == "" || strings.TrimSpace(in.ExternalOrderNo) == "" || len(in.Items) == 0 {
		return nil, false, domain.ErrInvalidInput
	}
	repos := uc.store.Repos()
	if existing, err := repos.Orders.GetByExternal(ctx, in.ChannelID, in.ExternalOrderNo); err != nil || existing != nil {
		return existing, false, err
	}

	now := uc.clock.Now()
	o = &entity.Order{
		ID:              domain.NewID(),
		ChannelID:       in.ChannelID,
		ExternalOrderNo: in.ExternalOrderNo,
		Status:          entity.OrderPending,
		PaymentStatus:   entity.PaymentUnpaid,
		Receiver:        in.Receiver,
		TotalAmount:     decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Paid {
		o.PaymentStatus = entity.PaymentPaid
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return nil, false, domain.ErrInvalidInput
		}
		cp, err := uc.resolveChannelProduct(ctx, repos, in.ChannelID, it)
		if err != nil {
			return nil, false, err
		}
		price := it.UnitPrice.Round(2)
		o.Items = append(o.Items, entity.OrderItem{
			ID:               domain.NewID(),
			OrderID:          o.ID,
			ChannelProductID: cp.ID,
			SKU:              cp.SKU,
			Quantity:         it.Quantity,
			UnitPrice:        price,
			AllocationStatus: entity.AllocationPending,
		})
		o.TotalAmount = o.TotalAmount.Add(price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	err = uc.store.Run(ctx, func(r ports.Repos) error {
		return r.Orders.Create(ctx, o)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		existing, gerr := repos.Orders.GetByExternal(ctx, in.ChannelID, in.ExternalOrderNo)
		return existing, false, gerr
	}
	if err != nil {
		return nil, false, err
	}
	uc.log.Info().Str("order_id", o.ID).Str("channel_id", o.ChannelID).Str("external_order_no", o.ExternalOrderNo).Int("items", len(o.Items)).Msg("orden recibida")
	return o, true, nil
}

func (uc *UseCase) resolveChannelProduct(ctx context.Context, r ports.Repos, channelID string, it IngestItem) (*entity.ChannelProduct, error) {
	var cp *entity.ChannelProduct
	var err error
	if it.ChannelProductID != "" {
		cp, err = r.ChannelProducts.GetByID(ctx, it.ChannelProductID)
	} else {
		cp, err = r.ChannelProducts.GetByChannelSKU(ctx, channelID, it.SKU)
	}
	if err != nil {
		return nil, err
	}
	if cp == nil || cp.ChannelID != channelID {
		return nil, fmt.Errorf("producto de canal %q/%q: %w", it.ChannelProductID, it.SKU, domain.ErrNotFound)
	}
	return cp, nil
}

// MarkPaid registra el pago informado por el canal.
func (uc *UseCase) MarkPaid(ctx context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if err := o.MarkPaid(uc.clock.Now()); err != nil {
			return err
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	return out, err
}

// Cancel cancela la orden y todos sus fulfillments abiertos, devolviendo lo reservado.
// Falla si algo ya salió o si un documento de salida ya pasó de picking.
func (uc *UseCase) Cancel(ctx context.Context, id, reason string) (*entity.Order, error) {
	var out *entity.Order
	var records []string
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if o.Status == entity.OrderAllocating || o.HasShipments() {
			return domain.NewTransitionError("orden", o.ID, string(o.Status), "cancelar")
		}
		records, err = uc.fulfillments.CancelForOrderInTx(ctx, r, o, reason)
		if err != nil {
			return err
		}
		if err := o.Cancel(reason, uc.clock.Now()); err != nil {
			return err
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", out.ID).Str("reason", reason).Msg("orden cancelada")
	if uc.refresher != nil && len(records) > 0 {
		_ = uc.refresher.RefreshRecords(ctx, records...)
	}
	return out, nil
}

// Get obtiene una orden por ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*entity.Order, error) {
	o, err := uc.store.Repos().Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// GetByExternal busca por número externo del canal.
func (uc *UseCase) GetByExternal(ctx context.Context, channelID, externalOrderNo string) (*entity.Order, error) {
	o, err := uc.store.Repos().Orders.GetByExternal(ctx, channelID, externalOrderNo)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// List lista órdenes.
func (uc *UseCase) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.store.Repos().Orders.List(ctx, f)
}
