package inbound

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/docnumber"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
)

// UseCase documentos de reposición comerciante → bodega y sus novedades.
type UseCase struct {
	store     ports.Store
	ledger    *inventory.LedgerUseCase
	refresher ports.StockRefresher
	clock     clock.Clock
	log       *logger.Logger
}

// NewUseCase construye el caso de uso. refresher puede ser nil.
func NewUseCase(store ports.Store, ledger *inventory.LedgerUseCase, refresher ports.StockRefresher, clk clock.Clock, log *logger.Logger) *UseCase {
	return &UseCase{store: store, ledger: ledger, refresher: refresher, clock: clk, log: log.Named("inbound")}
}

// ItemInput línea esperada.
type ItemInput struct {
	SKU              string
	ExpectedQuantity int64
	UnitCost         decimal.NullDecimal
}

// CreateInput datos del documento de entrada.
type CreateInput struct {
	MerchantID        string
	WarehouseID       string
	ExpectedArrivalAt *time.Time
	Remark            string
	Items             []ItemInput
}

// Create registra el documento en draft.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*entity.InboundOrder, error) {
	if in.MerchantID == "" || in.WarehouseID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" || it.ExpectedQuantity <= 0 || (it.UnitCost.Valid && it.UnitCost.Decimal.IsNegative()) {
			return nil, domain.ErrInvalidInput
		}
		if _, dup := seen[sku]; dup {
			return nil, fmt.Errorf("SKU %s repetido: %w", sku, domain.ErrInvalidInput)
		}
		seen[sku] = struct{}{}
	}

	var out *entity.InboundOrder
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		wh, err := r.Warehouses.GetByID(ctx, in.WarehouseID)
		if err != nil {
			return err
		}
		if wh == nil {
			return fmt.Errorf("bodega %s: %w", in.WarehouseID, domain.ErrNotFound)
		}
		if !wh.IsPlatform() && wh.MerchantID != in.MerchantID {
			return domain.ErrForbidden
		}
		now := uc.clock.Now()
		no, err := docnumber.Next(ctx, r.Sequences, docnumber.PrefixInbound, now)
		if err != nil {
			return err
		}
		o := &entity.InboundOrder{
			ID:                domain.NewID(),
			InboundNo:         no,
			MerchantID:        in.MerchantID,
			WarehouseID:       in.WarehouseID,
			Status:            entity.InboundDraft,
			ExpectedArrivalAt: in.ExpectedArrivalAt,
			Remark:            in.Remark,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		for _, it := range in.Items {
			o.Items = append(o.Items, entity.InboundOrderItem{
				ID:               domain.NewID(),
				InboundOrderID:   o.ID,
				SKU:              strings.TrimSpace(it.SKU),
				ExpectedQuantity: it.ExpectedQuantity,
				UnitCost:         it.UnitCost,
				Status:           entity.InboundItemPending,
			})
		}
		out = o
		return r.Inbound.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("inbound_no", out.InboundNo).Str("merchant_id", out.MerchantID).Int("items", len(out.Items)).Msg("documento de entrada creado")
	return out, nil
}

func authorize(o *entity.InboundOrder, merchantID string) error {
	if merchantID != "" && o.MerchantID != merchantID {
		return domain.ErrForbidden
	}
	return nil
}

// mutate bloquea el documento, aplica fn y persiste la cabecera.
func (uc *UseCase) mutate(ctx context.Context, merchantID, id string, fn func(r ports.Repos, o *entity.InboundOrder, now time.Time) error) (*entity.InboundOrder, error) {
	var out *entity.InboundOrder
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Inbound.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if err := authorize(o, merchantID); err != nil {
			return err
		}
		if err := fn(r, o, uc.clock.Now()); err != nil {
			return err
		}
		out = o
		return r.Inbound.Update(ctx, o)
	})
	return out, err
}

// Submit draft → pending.
func (uc *UseCase) Submit(ctx context.Context, merchantID, id string) (*entity.InboundOrder, error) {
	return uc.mutate(ctx, merchantID, id, func(_ ports.Repos, o *entity.InboundOrder, now time.Time) error {
		return o.Submit(now)
	})
}

// Ship pending → shipped; suma lo esperado de cada línea a en tránsito, creando los registros
// que falten. Los registros se bloquean en orden de ID.
func (uc *UseCase) Ship(ctx context.Context, merchantID, id, carrier, trackingNumber string) (*entity.InboundOrder, error) {
	o, err := uc.mutate(ctx, merchantID, id, func(r ports.Repos, o *entity.InboundOrder, now time.Time) error {
		if err := o.MarkShipped(carrier, trackingNumber, now); err != nil {
			return err
		}
		for idx := range o.Items {
			it := &o.Items[idx]
			key := entity.RecordKey{MerchantID: o.MerchantID, WarehouseID: o.WarehouseID, SKU: it.SKU}
			rec, err := r.Records.GetByKey(ctx, key)
			if err != nil {
				return err
			}
			if rec == nil {
				if rec, err = uc.ledger.EnsureRecordInTx(ctx, r, key); err != nil {
					return err
				}
			}
			it.InventoryRecordID = rec.ID
		}
		items := make([]*entity.InboundOrderItem, 0, len(o.Items))
		for idx := range o.Items {
			items = append(items, &o.Items[idx])
		}
		sort.Slice(items, func(i, j int) bool { return items[i].InventoryRecordID < items[j].InventoryRecordID })
		ref := entity.Reference{Type: entity.RefInboundOrder, ID: o.ID}
		for _, it := range items {
			key := entity.RecordKey{MerchantID: o.MerchantID, WarehouseID: o.WarehouseID, SKU: it.SKU}
			if _, err := uc.ledger.AddInTransitInTx(ctx, r, key, it.ExpectedQuantity, ref); err != nil {
				return err
			}
			if err := r.Inbound.UpdateItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("inbound_no", o.InboundNo).Str("carrier", carrier).Msg("documento de entrada despachado")
	return o, nil
}

// Arrive shipped → arrived.
func (uc *UseCase) Arrive(ctx context.Context, id string) (*entity.InboundOrder, error) {
	return uc.mutate(ctx, "", id, func(_ ports.Repos, o *entity.InboundOrder, now time.Time) error {
		return o.MarkArrived(now)
	})
}

// StartReceiving arrived → receiving.
func (uc *UseCase) StartReceiving(ctx context.Context, id string) (*entity.InboundOrder, error) {
	return uc.mutate(ctx, "", id, func(_ ports.Repos, o *entity.InboundOrder, now time.Time) error {
		return o.StartReceiving(now)
	})
}

// ConfirmItemInput conteo físico de una línea.
type ConfirmItemInput struct {
	ItemID   string
	Received int64
	Damaged  int64
	Remark   string
	UnitCost decimal.NullDecimal // reemplaza el costo declarado si viene
}

// ConfirmItem registra lo recibido de una línea, mueve en tránsito a disponible/dañado,
// recalcula el costo promedio y abre novedades por faltante, sobrante o daño.
func (uc *UseCase) ConfirmItem(ctx context.Context, id string, in ConfirmItemInput) (*entity.InboundOrder, []*entity.InboundException, error) {
	var exceptions []*entity.InboundException
	var recordID string
	o, err := uc.mutate(ctx, "", id, func(r ports.Repos, o *entity.InboundOrder, now time.Time) error {
		if err := o.StartReceiving(now); err != nil {
			return err
		}
		it, ok := o.Item(in.ItemID)
		if !ok {
			return fmt.Errorf("línea %s: %w", in.ItemID, domain.ErrNotFound)
		}
		if it.InventoryRecordID == "" {
			return fmt.Errorf("línea %s sin registro de inventario: %w", it.ID, domain.ErrInvalidInput)
		}
		if err := it.ConfirmReceived(in.Received, in.Damaged, in.Remark, now); err != nil {
			return err
		}
		if in.UnitCost.Valid {
			if in.UnitCost.Decimal.IsNegative() {
				return domain.ErrInvalidInput
			}
			it.UnitCost = in.UnitCost
		}
		ref := entity.Reference{Type: entity.RefInboundOrder, ID: o.ID}
		if it.ReceivedQuantity+it.DamagedQuantity > 0 {
			if _, err := uc.ledger.ConfirmInboundInTx(ctx, r, it.InventoryRecordID, it.ReceivedQuantity, it.DamagedQuantity, it.UnitCost, ref); err != nil {
				return err
			}
		}
		if err := r.Inbound.UpdateItem(ctx, it); err != nil {
			return err
		}
		for _, d := range it.Discrepancies() {
			e, err := uc.newException(ctx, r, o.ID, it.ID, d.Type, d.Quantity, autoDescription(it, d), now)
			if err != nil {
				return err
			}
			exceptions = append(exceptions, e)
		}
		recordID = it.InventoryRecordID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for _, e := range exceptions {
		uc.log.Warn().Str("exception_no", e.ExceptionNo).Str("type", string(e.Type)).Int64("qty", e.Quantity).Str("inbound_no", o.InboundNo).Msg("novedad de recepción")
	}
	if uc.refresher != nil {
		_ = uc.refresher.RefreshRecords(ctx, recordID)
	}
	return o, exceptions, nil
}

// ConfirmBySKU aplica un recibo informado por el WMS sobre el documento y SKU dados.
func (uc *UseCase) ConfirmBySKU(ctx context.Context, inboundNo, sku string, received, damaged int64, remark string) (*entity.InboundOrder, []*entity.InboundException, error) {
	o, err := uc.store.Repos().Inbound.GetByInboundNo(ctx, inboundNo)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, domain.ErrNotFound
	}
	for _, it := range o.Items {
		if it.SKU == sku {
			return uc.ConfirmItem(ctx, o.ID, ConfirmItemInput{ItemID: it.ID, Received: received, Damaged: damaged, Remark: remark})
		}
	}
	return nil, nil, fmt.Errorf("SKU %s en %s: %w", sku, inboundNo, domain.ErrNotFound)
}

func autoDescription(it *entity.InboundOrderItem, d entity.Discrepancy) string {
	return fmt.Sprintf("%s %s x%d: esperado %d, recibido %d, dañado %d",
		it.SKU, d.Type, d.Quantity, it.ExpectedQuantity, it.ReceivedQuantity, it.DamagedQuantity)
}

// Complete receiving → completed|partial_completed; las líneas sin confirmar quedan missing.
func (uc *UseCase) Complete(ctx context.Context, id string) (*entity.InboundOrder, error) {
	o, err := uc.mutate(ctx, "", id, func(r ports.Repos, o *entity.InboundOrder, now time.Time) error {
		pending := make(map[string]bool, len(o.Items))
		for _, it := range o.Items {
			pending[it.ID] = it.Status == entity.InboundItemPending || it.Status == ""
		}
		if err := o.Complete(now); err != nil {
			return err
		}
		for idx := range o.Items {
			it := &o.Items[idx]
			if !pending[it.ID] {
				continue
			}
			if err := r.Inbound.UpdateItem(ctx, it); err != nil {
				return err
			}
			if _, err := uc.newException(ctx, r, o.ID, it.ID, entity.ExceptionQuantityShort, it.ExpectedQuantity,
				fmt.Sprintf("%s: sin recibir al cerrar", it.SKU), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("inbound_no", o.InboundNo).Str("status", string(o.Status)).Msg("recepción cerrada")
	return o, nil
}

// Cancel cancela el documento. Lo ya sumado a en tránsito no se revierte.
func (uc *UseCase) Cancel(ctx context.Context, merchantID, id string) (*entity.InboundOrder, error) {
	return uc.mutate(ctx, merchantID, id, func(_ ports.Repos, o *entity.InboundOrder, now time.Time) error {
		return o.Cancel(now)
	})
}

// Get obtiene un documento visible para el comerciante.
func (uc *UseCase) Get(ctx context.Context, merchantID, id string) (*entity.InboundOrder, error) {
	o, err := uc.store.Repos().Inbound.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	if err := authorize(o, merchantID); err != nil {
		return nil, err
	}
	return o, nil
}

// List lista documentos de entrada.
func (uc *UseCase) List(ctx context.Context, f repository.InboundFilter) ([]*entity.InboundOrder, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.store.Repos().Inbound.List(ctx, f)
}
