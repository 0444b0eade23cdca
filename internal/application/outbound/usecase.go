package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/marketplace-ledger/internal/application/fulfillment"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/docnumber"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// Options política de sincronización con el WMS.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// UseCase documentos de salida: creación, sincronización con el WMS y callbacks.
type UseCase struct {
	store        ports.Store
	fulfillments *fulfillment.UseCase
	wms          ports.WMSClient
	slips        ports.PackingSlipGenerator
	refresher    ports.StockRefresher
	clock        clock.Clock
	log          *logger.Logger
	metrics      *telemetry.Metrics
	opts         Options
}

// NewUseCase construye el caso de uso. slips y refresher pueden ser nil.
func NewUseCase(
	store ports.Store,
	fulfillments *fulfillment.UseCase,
	wms ports.WMSClient,
	slips ports.PackingSlipGenerator,
	refresher ports.StockRefresher,
	clk clock.Clock,
	log *logger.Logger,
	metrics *telemetry.Metrics,
	opts Options,
) *UseCase {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Millisecond
	}
	return &UseCase{
		store:        store,
		fulfillments: fulfillments,
		wms:          wms,
		slips:        slips,
		refresher:    refresher,
		clock:        clk,
		log:          log.Named("outbound"),
		metrics:      metrics,
		opts:         opts,
	}
}

// CreateForOrderInTx crea un documento de salida por cada fulfillment abierto de bodega de
// plataforma de la orden que aún no lo tenga, con snapshot del catálogo y del receptor.
func (uc *UseCase) CreateForOrderInTx(ctx context.Context, r ports.Repos, o *entity.Order) ([]*entity.OutboundOrder, error) {
	list, err := r.Fulfillments.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	var out []*entity.OutboundOrder
	for _, f := range list {
		if f.Type != entity.FulfillmentPlatformWarehouse || !f.Open() {
			continue
		}
		existing, err := r.Outbound.GetByFulfillment(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		doc, err := uc.newDocument(ctx, r, o, f)
		if err != nil {
			return nil, err
		}
		if err := r.Outbound.Create(ctx, doc); err != nil {
			return nil, err
		}
		uc.log.Info().Str("outbound_no", doc.OutboundNo).Str("fulfillment_id", f.ID).Int64("qty", doc.TotalQuantity()).Msg("documento de salida creado")
		out = append(out, doc)
	}
	return out, nil
}

func (uc *UseCase) newDocument(ctx context.Context, r ports.Repos, o *entity.Order, f *entity.Fulfillment) (*entity.OutboundOrder, error) {
	now := uc.clock.Now()
	no, err := docnumber.Next(ctx, r.Sequences, docnumber.PrefixOutbound, now)
	if err != nil {
		return nil, err
	}
	doc := &entity.OutboundOrder{
		ID:            domain.NewID(),
		OutboundNo:    no,
		FulfillmentID: f.ID,
		OrderID:       o.ID,
		WarehouseID:   f.WarehouseID,
		Status:        entity.OutboundPending,
		SyncStatus:    entity.SyncPending,
		Receiver:      o.Receiver,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range f.Items {
		line := entity.OutboundOrderItem{
			ID:                domain.NewID(),
			OutboundOrderID:   doc.ID,
			FulfillmentItemID: it.ID,
			SKU:               it.SKU,
			ProductName:       it.SKU,
			Quantity:          it.Quantity,
		}
		rec, err := r.Records.GetByID(ctx, it.InventoryRecordID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			p, err := r.Products.GetBySKU(ctx, rec.MerchantID, it.SKU)
			if err != nil {
				return nil, err
			}
			if p != nil {
				line.ProductName = p.Name
				line.ImageURL = p.ImageURL
			}
		}
		doc.Items = append(doc.Items, line)
	}
	return doc, nil
}

// Sync envía el documento al WMS con hasta MaxAttempts intentos por llamada. SyncAttempts es
// el contador acumulado y no limita llamadas futuras: un documento failed siempre se puede reintentar.
// Cada fallo queda registrado (failed, intentos+1) en su propia transacción; la llamada
// al WMS nunca ocurre con bloqueos tomados. Un documento ya sincronizado se devuelve tal cual.
func (uc *UseCase) Sync(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "outbound.Sync", trace.WithAttributes(attribute.String("outbound.id", id)))
	defer span.End()

	doc, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == entity.OutboundCancelled {
		return nil, domain.NewTransitionError("documento de salida", doc.ID, string(doc.Status), "sincronizar")
	}
	if !doc.CanSync() {
		return doc, nil
	}
	var externalID string
	var persistErr error
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			ext, err := uc.wms.SubmitOutbound(ctx, doc)
			if err != nil {
				uc.metrics.SyncAttempt("failed")
				persistErr = uc.recordFailure(ctx, doc.ID, err)
				return err
			}
			externalID = ext
			return nil
		},
		IsFatalError: func(err error) bool {
			return persistErr != nil || errors.Is(err, domain.ErrInvalidInput)
		},
		NotifyFunc: func(err error, attempt int) {
			uc.log.Warn().Err(err).Str("outbound_no", doc.OutboundNo).Int("attempt", attempt).Msg("sincronización con WMS fallida, reintentando")
		},
		Attempts: uc.opts.MaxAttempts,
		Delay:    uc.opts.RetryDelay,
		Clock:    uc.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if persistErr != nil {
			err = persistErr
		} else if retry.IsAttemptsExceeded(err) {
			err = retry.LastError(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "wms sync")
		uc.log.Error().Err(err).Str("outbound_no", doc.OutboundNo).Msg("sincronización con WMS fallida")
		latest, gerr := uc.Get(ctx, id)
		if gerr != nil {
			latest = doc
		}
		return latest, fmt.Errorf("%s: %w: %v", doc.OutboundNo, domain.ErrSyncFailure, err)
	}

	var out *entity.OutboundOrder
	err = uc.store.Run(ctx, func(r ports.Repos) error {
		cur, err := r.Outbound.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = cur
		// un callback pudo llegar antes que la respuesta
		if !cur.CanSync() {
			return nil
		}
		if err := cur.MarkSynced(externalID, uc.clock.Now()); err != nil {
			return err
		}
		return r.Outbound.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.SyncAttempt("synced")
	span.SetAttributes(attribute.String("outbound.external_id", externalID))
	uc.log.Info().Str("outbound_no", out.OutboundNo).Str("external_id", externalID).Msg("documento sincronizado con WMS")
	return out, nil
}

func (uc *UseCase) recordFailure(ctx context.Context, id string, cause error) error {
	return uc.store.Run(ctx, func(r ports.Repos) error {
		doc, err := r.Outbound.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil || !doc.CanSync() {
			return nil
		}
		if err := doc.MarkSyncFailed(cause.Error(), uc.clock.Now()); err != nil {
			return err
		}
		return r.Outbound.Update(ctx, doc)
	})
}

// SyncPending sincroniza hasta limit documentos pendientes o fallidos.
func (uc *UseCase) SyncPending(ctx context.Context, limit int) (synced, failed int, err error) {
	if limit <= 0 {
		limit = 50
	}
	docs, err := uc.store.Repos().Outbound.ListSyncable(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, d := range docs {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if _, err := uc.Sync(ctx, d.ID); err != nil {
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// CallbackInput avance físico informado por el WMS.
type CallbackInput struct {
	OutboundNo     string
	ExternalID     string
	Status         entity.OutboundStatus
	Carrier        string
	TrackingNumber string
}

var progressRank = map[entity.OutboundStatus]int{
	entity.OutboundPending: 0,
	entity.OutboundPicking: 1,
	entity.OutboundPacking: 2,
	entity.OutboundReady:   3,
	entity.OutboundShipped: 4,
}

// HandleCallback aplica un callback del WMS. Los estados ya alcanzados se ignoran, de modo que
// los reenvíos son idempotentes. shipped consume lo reservado y despacha el fulfillment.
func (uc *UseCase) HandleCallback(ctx context.Context, in CallbackInput) (*entity.OutboundOrder, error) {
	target, ok := progressRank[in.Status]
	if !ok || in.Status == entity.OutboundPending || in.OutboundNo == "" {
		return nil, domain.ErrInvalidInput
	}
	cur, err := uc.store.Repos().Outbound.GetByOutboundNo(ctx, in.OutboundNo)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	var out *entity.OutboundOrder
	var shipped *entity.Fulfillment
	err = uc.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, cur.OrderID)
		if err != nil {
			return err
		}
		f, err := r.Fulfillments.GetForUpdate(ctx, cur.FulfillmentID)
		if err != nil {
			return err
		}
		doc, err := r.Outbound.GetForUpdate(ctx, cur.ID)
		if err != nil {
			return err
		}
		if o == nil || f == nil || doc == nil {
			return domain.ErrNotFound
		}
		now := uc.clock.Now()
		if doc.Status == entity.OutboundCancelled {
			return domain.NewTransitionError("documento de salida", doc.ID, string(doc.Status), "aplicar callback")
		}
		if progressRank[doc.Status] < target {
			if err := f.StartProcessing(now); err != nil {
				return err
			}
			step := in.Status
			if step == entity.OutboundShipped {
				step = entity.OutboundReady
			}
			if err := doc.AdvanceTo(step, now); err != nil {
				return err
			}
			if in.Status == entity.OutboundShipped {
				if err := doc.MarkShipped(f, in.Carrier, in.TrackingNumber, now); err != nil {
					return err
				}
				if err := uc.fulfillments.ShipInTx(ctx, r, o, f); err != nil {
					return err
				}
				shipped = f
			}
			if err := r.Fulfillments.Update(ctx, f); err != nil {
				return err
			}
		}
		if doc.ExternalID == "" {
			doc.ExternalID = in.ExternalID
		}
		if err := doc.MarkCallback(now); err != nil {
			return err
		}
		out = doc
		return r.Outbound.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("outbound_no", out.OutboundNo).Str("status", string(out.Status)).Msg("callback de WMS aplicado")
	if shipped != nil && uc.refresher != nil {
		ids := make([]string, 0, len(shipped.Items))
		for _, it := range shipped.Items {
			ids = append(ids, it.InventoryRecordID)
		}
		_ = uc.refresher.RefreshRecords(ctx, ids...)
	}
	return out, nil
}

// Cancel cancela el documento (solo pending/picking) junto con su fulfillment y devuelve lo reservado.
func (uc *UseCase) Cancel(ctx context.Context, id, reason string) (*entity.OutboundOrder, error) {
	doc, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.OutboundPending && doc.Status != entity.OutboundPicking {
		return nil, domain.NewTransitionError("documento de salida", doc.ID, string(doc.Status), "cancelar")
	}
	if _, err := uc.fulfillments.Cancel(ctx, "", doc.FulfillmentID, reason); err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// PackingSlip genera el PDF de la guía de empaque.
func (uc *UseCase) PackingSlip(ctx context.Context, id string) ([]byte, *entity.OutboundOrder, error) {
	if uc.slips == nil {
		return nil, nil, fmt.Errorf("guía de empaque: generador no configurado: %w", domain.ErrInvalidInput)
	}
	doc, err := uc.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	wh, err := uc.store.Repos().Warehouses.GetByID(ctx, doc.WarehouseID)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := uc.slips.PackingSlip(doc, wh)
	if err != nil {
		return nil, nil, err
	}
	return pdf, doc, nil
}

// Get obtiene un documento por ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*entity.OutboundOrder, error) {
	doc, err := uc.store.Repos().Outbound.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// List lista documentos de salida.
func (uc *UseCase) List(ctx context.Context, f repository.OutboundFilter) ([]*entity.OutboundOrder, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.store.Repos().Outbound.List(ctx, f)
}
