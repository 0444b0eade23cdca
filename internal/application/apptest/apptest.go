// Package apptest arma un entorno completo sobre la persistencia en memoria para pruebas de casos de uso.
package apptest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application"
	"github.com/jhoicas/marketplace-ledger/internal/application/listing"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/application/pricing"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// Epoch instante inicial del reloj de pruebas.
var Epoch = time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

// Env entorno de pruebas.
type Env struct {
	*application.Services
	Store     *memory.Store
	Clock     *testclock.Clock
	Metrics   *telemetry.Metrics
	WMS       *FakeWMS
	Publisher *RecordingPublisher
}

// Option ajusta las dependencias antes de construir los servicios.
type Option func(*application.Deps)

// WithWallClock usa el reloj real (reintentos de sincronización con espera).
func WithWallClock() Option {
	return func(d *application.Deps) { d.Clock = clock.WallClock }
}

// WithOutbound fija la política de sincronización.
func WithOutbound(o outbound.Options) Option {
	return func(d *application.Deps) { d.Outbound = o }
}

// New construye el entorno con comisión del 10%.
func New(t testing.TB, opts ...Option) *Env {
	t.Helper()
	env := &Env{
		Store:     memory.NewStore(),
		Clock:     testclock.NewClock(Epoch),
		Metrics:   telemetry.NewMetrics(),
		WMS:       &FakeWMS{},
		Publisher: &RecordingPublisher{},
	}
	deps := application.Deps{
		Store:     env.Store,
		Clock:     env.Clock,
		Log:       logger.Nop(),
		Metrics:   env.Metrics,
		Publisher: env.Publisher,
		WMS:       env.WMS,
		Pricing:   pricing.NewCommissionEvaluator(decimal.RequireFromString("0.10")),
		Outbound:  outbound.Options{MaxAttempts: 3, RetryDelay: time.Millisecond},
	}
	for _, o := range opts {
		o(&deps)
	}
	env.Services = application.NewServices(deps)
	return env
}

// Warehouse registra una bodega.
func (e *Env) Warehouse(t testing.TB, code string, typ entity.WarehouseType, merchantID string) *entity.Warehouse {
	t.Helper()
	w := &entity.Warehouse{
		ID:         "wh-" + code,
		Code:       code,
		Name:       "Bodega " + code,
		Type:       typ,
		MerchantID: merchantID,
		CreatedAt:  Epoch,
		UpdatedAt:  Epoch,
	}
	require.NoError(t, e.Store.Repos().Warehouses.Create(context.Background(), w))
	return w
}

// Product registra el catálogo de un SKU.
func (e *Env) Product(t testing.TB, merchantID, sku, name string) {
	t.Helper()
	require.NoError(t, e.Store.Repos().Products.Upsert(context.Background(), &entity.Product{
		ID: domain.NewID(), MerchantID: merchantID, SKU: sku, Name: name, ImageURL: "https://img.example/" + sku + ".png",
		CreatedAt: Epoch, UpdatedAt: Epoch,
	}))
}

// Stock deja qty unidades disponibles en (comerciante, bodega, SKU) pasando por en tránsito.
func (e *Env) Stock(t testing.TB, merchantID, warehouseID, sku string, qty int64) *entity.InventoryRecord {
	t.Helper()
	ctx := context.Background()
	ref := entity.Reference{Type: entity.RefInboundOrder, ID: "seed-" + sku}
	var rec *entity.InventoryRecord
	require.NoError(t, e.Store.Run(ctx, func(r ports.Repos) error {
		cur, err := e.Ledger.AddInTransitInTx(ctx, r, entity.RecordKey{MerchantID: merchantID, WarehouseID: warehouseID, SKU: sku}, qty, ref)
		if err != nil {
			return err
		}
		rec, err = e.Ledger.ConfirmInboundInTx(ctx, r, cur.ID, qty, 0, decimal.NullDecimal{}, ref)
		return err
	}))
	return rec
}

// Record relee un registro.
func (e *Env) Record(t testing.TB, id string) *entity.InventoryRecord {
	t.Helper()
	rec, err := e.Ledger.GetRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// ActiveListing crea y activa un listing compartido a precio 10.
func (e *Env) ActiveListing(t testing.TB, rec *entity.InventoryRecord) *entity.Listing {
	t.Helper()
	ctx := context.Background()
	l, err := e.Listings.CreateListing(ctx, listing.CreateListingInput{
		MerchantID:          rec.MerchantID,
		ChannelConnectionID: "conn-" + rec.MerchantID,
		InventoryRecordID:   rec.ID,
		Price:               decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	l, err = e.Listings.Activate(ctx, rec.MerchantID, l.ID)
	require.NoError(t, err)
	return l
}

// ChannelProduct crea un producto de canal aggregate con las fuentes en el orden dado (prioridad 1, 2, …).
func (e *Env) ChannelProduct(t testing.TB, channelID, sku string, listings ...*entity.Listing) *entity.ChannelProduct {
	t.Helper()
	ctx := context.Background()
	cp, err := e.Listings.CreateChannelProduct(ctx, listing.CreateChannelProductInput{
		ChannelID: channelID, SKU: sku, Title: sku, Price: decimal.NewFromInt(12), StockMode: entity.StockModeAggregate,
	})
	require.NoError(t, err)
	for i, l := range listings {
		cp, err = e.Listings.AddSource(ctx, cp.ID, l.ID, i+1)
		require.NoError(t, err)
	}
	return cp
}

// FakeWMS WMS de pruebas: falla las primeras FailFirst llamadas.
type FakeWMS struct {
	mu        sync.Mutex
	FailFirst int
	Calls     int
	Err       error
}

// SubmitOutbound implementa ports.WMSClient.
func (w *FakeWMS) SubmitOutbound(_ context.Context, doc *entity.OutboundOrder) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Calls++
	if w.Calls <= w.FailFirst {
		if w.Err != nil {
			return "", w.Err
		}
		return "", fmt.Errorf("wms no disponible (llamada %d)", w.Calls)
	}
	return "WMS-" + doc.OutboundNo, nil
}

// CallCount devuelve las llamadas recibidas.
func (w *FakeWMS) CallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Calls
}

// RecordingPublisher guarda lo publicado.
type RecordingPublisher struct {
	mu      sync.Mutex
	Updates []ports.ChannelStockUpdate
}

// PublishStock implementa ports.ChannelStockPublisher.
func (p *RecordingPublisher) PublishStock(_ context.Context, updates []ports.ChannelStockUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Updates = append(p.Updates, updates...)
	return nil
}

// Last devuelve la última cifra publicada para el producto de canal.
func (p *RecordingPublisher) Last(channelProductID string) (ports.ChannelStockUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.Updates) - 1; i >= 0; i-- {
		if p.Updates[i].ChannelProductID == channelProductID {
			return p.Updates[i], true
		}
	}
	return ports.ChannelStockUpdate{}, false
}
