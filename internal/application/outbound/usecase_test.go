package outbound_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

type fixture struct {
	env    *apptest.Env
	order  *entity.Order
	doc    *entity.OutboundOrder
	record *entity.InventoryRecord
}

// platformOrder asigna 3 de 5 unidades desde una bodega de plataforma.
func platformOrder(t *testing.T, opts ...apptest.Option) fixture {
	t.Helper()
	env := apptest.New(t, opts...)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	rec := env.Stock(t, "m1", "wh-P1", "SKU-1", 5)
	cp := env.ChannelProduct(t, "shop", "SKU-1", env.ActiveListing(t, rec))

	o, created, err := env.IngestAndAllocate(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "EXT-100", Paid: true,
		Receiver: entity.Address{Name: "Luis", City: "Medellín"},
		Items:    []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, entity.OrderAllocated, o.Status)

	docs, err := env.Outbound.List(ctx, repository.OutboundFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return fixture{env: env, order: o, doc: docs[0], record: rec}
}

func TestSync_MarksSynced(t *testing.T) {
	fx := platformOrder(t)
	got, err := fx.env.Outbound.Sync(context.Background(), fx.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, got.SyncStatus)
	assert.Equal(t, "WMS-"+fx.doc.OutboundNo, got.ExternalID)
	assert.Equal(t, 0, got.SyncAttempts)
	assert.Equal(t, 1, fx.env.WMS.CallCount())

	// ya sincronizado: no vuelve a llamar al WMS
	again, err := fx.env.Outbound.Sync(context.Background(), fx.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, again.SyncStatus)
	assert.Equal(t, 1, fx.env.WMS.CallCount())
}

func TestSync_RetriesThenSucceeds(t *testing.T) {
	fx := platformOrder(t, apptest.WithWallClock(), apptest.WithOutbound(outbound.Options{MaxAttempts: 3, RetryDelay: time.Millisecond}))
	fx.env.WMS.FailFirst = 2

	got, err := fx.env.Outbound.Sync(context.Background(), fx.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, got.SyncStatus)
	assert.Equal(t, 2, got.SyncAttempts)
	assert.Empty(t, got.SyncError)
	assert.Equal(t, 3, fx.env.WMS.CallCount())
}

func TestSync_ExhaustsAttemptsPerCall(t *testing.T) {
	fx := platformOrder(t, apptest.WithWallClock(), apptest.WithOutbound(outbound.Options{MaxAttempts: 3, RetryDelay: time.Millisecond}))
	fx.env.WMS.FailFirst = 100
	ctx := context.Background()

	got, err := fx.env.Outbound.Sync(ctx, fx.doc.ID)
	require.ErrorIs(t, err, domain.ErrSyncFailure)
	require.NotNil(t, got)
	assert.Equal(t, entity.SyncFailed, got.SyncStatus)
	assert.Equal(t, 3, got.SyncAttempts)
	assert.Contains(t, got.SyncError, "wms no disponible")
	assert.Equal(t, 3, fx.env.WMS.CallCount())

	// cada llamada tiene su propio presupuesto; el acumulado solo cuenta
	got, err = fx.env.Outbound.Sync(ctx, fx.doc.ID)
	require.ErrorIs(t, err, domain.ErrSyncFailure)
	assert.Equal(t, 6, got.SyncAttempts)
	assert.Equal(t, 6, fx.env.WMS.CallCount())
	assert.True(t, got.CanSync())
}

func TestSyncPending_RetriesFailedAfterOutage(t *testing.T) {
	fx := platformOrder(t, apptest.WithWallClock(), apptest.WithOutbound(outbound.Options{MaxAttempts: 3, RetryDelay: time.Millisecond}))
	fx.env.WMS.FailFirst = 3
	ctx := context.Background()

	synced, failed, err := fx.env.Outbound.SyncPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, synced)
	assert.Equal(t, 1, failed)

	// el WMS se recupera: el documento fallido vuelve a salir en el barrido
	synced, failed, err = fx.env.Outbound.SyncPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Zero(t, failed)
	assert.Equal(t, 4, fx.env.WMS.CallCount())

	got, err := fx.env.Outbound.Get(ctx, fx.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, got.SyncStatus)
	assert.Equal(t, "WMS-"+got.OutboundNo, got.ExternalID)
	assert.Equal(t, 3, got.SyncAttempts)
}

func TestSyncPending(t *testing.T) {
	fx := platformOrder(t)
	synced, failed, err := fx.env.Outbound.SyncPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Zero(t, failed)
}

func TestHandleCallback_ProgressAndShipment(t *testing.T) {
	fx := platformOrder(t)
	ctx := context.Background()
	_, err := fx.env.Outbound.Sync(ctx, fx.doc.ID)
	require.NoError(t, err)

	got, err := fx.env.Outbound.HandleCallback(ctx, outbound.CallbackInput{OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundPicking})
	require.NoError(t, err)
	assert.Equal(t, entity.OutboundPicking, got.Status)
	assert.Equal(t, entity.SyncCallback, got.SyncStatus)
	f, err := fx.env.Fulfillments.Get(ctx, "", got.FulfillmentID)
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentProcessing, f.Status)

	// reenvío idempotente
	got, err = fx.env.Outbound.HandleCallback(ctx, outbound.CallbackInput{OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundPicking})
	require.NoError(t, err)
	assert.Equal(t, entity.OutboundPicking, got.Status)

	// shipped salta packing/ready
	got, err = fx.env.Outbound.HandleCallback(ctx, outbound.CallbackInput{
		OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundShipped, Carrier: "Servientrega", TrackingNumber: "TRK-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OutboundShipped, got.Status)
	assert.Equal(t, "TRK-1", got.TrackingNumber)

	rec := fx.env.Record(t, fx.record.ID)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, int64(2), rec.QuantityAvailable)

	o, err := fx.env.Orders.Get(ctx, fx.order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderShipped, o.Status)
	assert.Equal(t, int64(3), o.Items[0].ShippedQuantity)

	// segundo shipped no consume dos veces
	_, err = fx.env.Outbound.HandleCallback(ctx, outbound.CallbackInput{OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundShipped})
	require.NoError(t, err)
	assert.Equal(t, int64(0), fx.env.Record(t, fx.record.ID).QuantityReserved)

	_, err = fx.env.Fulfillments.MarkDelivered(ctx, "", got.FulfillmentID)
	require.NoError(t, err)
	o, err = fx.env.Orders.Get(ctx, fx.order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCompleted, o.Status)
}

func TestHandleCallback_UnknownDocument(t *testing.T) {
	fx := platformOrder(t)
	_, err := fx.env.Outbound.HandleCallback(context.Background(), outbound.CallbackInput{OutboundNo: "OB-X", Status: entity.OutboundPicking})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = fx.env.Outbound.HandleCallback(context.Background(), outbound.CallbackInput{OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancel_ReleasesStockAndReopensOrder(t *testing.T) {
	fx := platformOrder(t)
	ctx := context.Background()

	got, err := fx.env.Outbound.Cancel(ctx, fx.doc.ID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, entity.OutboundCancelled, got.Status)

	rec := fx.env.Record(t, fx.record.ID)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, int64(5), rec.QuantityAvailable)

	o, err := fx.env.Orders.Get(ctx, fx.order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocationFailed, o.Status)
	assert.Equal(t, int64(0), o.Items[0].AllocatedQuantity)
}

func TestCancel_NotAllowedOncePacking(t *testing.T) {
	fx := platformOrder(t)
	ctx := context.Background()
	_, err := fx.env.Outbound.HandleCallback(ctx, outbound.CallbackInput{OutboundNo: fx.doc.OutboundNo, Status: entity.OutboundPacking})
	require.NoError(t, err)

	_, err = fx.env.Outbound.Cancel(ctx, fx.doc.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = fx.env.Orders.Cancel(ctx, fx.order.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, int64(3), fx.env.Record(t, fx.record.ID).QuantityReserved)
}
