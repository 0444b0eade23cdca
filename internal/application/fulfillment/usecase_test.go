package fulfillment_test

import (
	"context"
	"fmt"
	"sync"
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
)

// twoWarehouses asigna 4 unidades de una bodega de comerciante y 2 de una de plataforma.
func twoWarehouses(t *testing.T) (*apptest.Env, *entity.Order, map[entity.FulfillmentType]*entity.Fulfillment, []*entity.InventoryRecord) {
	t.Helper()
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	recM := env.Stock(t, "m1", "wh-M1", "SKU-1", 4)
	recP := env.Stock(t, "m1", "wh-P1", "SKU-1", 5)
	cp := env.ChannelProduct(t, "shop", "SKU-1", env.ActiveListing(t, recM), env.ActiveListing(t, recP))

	o, _, err := env.IngestAndAllocate(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "EXT-9", Paid: true,
		Items: []order.IngestItem{{ChannelProductID: cp.ID, Quantity: 6, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)
	require.Equal(t, entity.OrderAllocated, o.Status)

	fs, err := env.Fulfillments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	byType := map[entity.FulfillmentType]*entity.Fulfillment{}
	for _, f := range fs {
		byType[f.Type] = f
	}
	require.Len(t, byType, 2)
	return env, o, byType, []*entity.InventoryRecord{recM, recP}
}

func TestShip_MerchantWarehouse(t *testing.T) {
	env, o, fs, recs := twoWarehouses(t)
	ctx := context.Background()
	merchant := fs[entity.FulfillmentMerchantWarehouse]

	_, err := env.Fulfillments.Ship(ctx, "m2", merchant.ID, "TCC", "1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Fulfillments.Ship(ctx, "", fs[entity.FulfillmentPlatformWarehouse].ID, "TCC", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.Fulfillments.StartProcessing(ctx, "m1", merchant.ID)
	require.NoError(t, err)
	shipped, err := env.Fulfillments.Ship(ctx, "m1", merchant.ID, "TCC", "TRK-9")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentShipped, shipped.Status)
	assert.Equal(t, "TRK-9", shipped.TrackingNumber)

	rec := env.Record(t, recs[0].ID)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, int64(0), rec.QuantityAvailable)

	got, err := env.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPartiallyShipped, got.Status)
	assert.Equal(t, int64(4), got.Items[0].ShippedQuantity)

	_, err = env.Fulfillments.Cancel(ctx, "m1", merchant.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = env.Orders.Cancel(ctx, o.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	delivered, err := env.Fulfillments.MarkDelivered(ctx, "m1", merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentDelivered, delivered.Status)
	got, err = env.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPartiallyShipped, got.Status, "falta el despacho de plataforma")
}

func TestCancel_FulfillmentReopensAllocation(t *testing.T) {
	env, o, fs, recs := twoWarehouses(t)
	ctx := context.Background()
	merchant := fs[entity.FulfillmentMerchantWarehouse]

	cancelled, err := env.Fulfillments.Cancel(ctx, "m1", merchant.ID, "sin empaque")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentCancelled, cancelled.Status)
	assert.Equal(t, "sin empaque", cancelled.CancelReason)

	rec := env.Record(t, recs[0].ID)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, int64(4), rec.QuantityAvailable)

	got, err := env.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocationFailed, got.Status)
	assert.Equal(t, int64(2), got.Items[0].AllocatedQuantity)
	assert.Contains(t, got.AllocationFailReason, "sin empaque")

	// el reintento vuelve a tomar lo liberado
	got, err = env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, got.Status)
	assert.Equal(t, int64(4), env.Record(t, recs[0].ID).QuantityReserved)
}

func TestOrderCancel_ReleasesEverything(t *testing.T) {
	env, o, fs, recs := twoWarehouses(t)
	ctx := context.Background()

	got, err := env.Orders.Cancel(ctx, o.ID, "fraude")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, got.Status)
	assert.Equal(t, "fraude", got.CancelReason)

	for _, r := range recs {
		rec := env.Record(t, r.ID)
		assert.Equal(t, int64(0), rec.QuantityReserved)
	}
	assert.Equal(t, int64(4), env.Record(t, recs[0].ID).QuantityAvailable)
	assert.Equal(t, int64(5), env.Record(t, recs[1].ID).QuantityAvailable)

	for _, f := range fs {
		cur, err := env.Fulfillments.Get(ctx, "", f.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.FulfillmentCancelled, cur.Status)
	}
	doc, err := env.Store.Repos().Outbound.GetByFulfillment(ctx, fs[entity.FulfillmentPlatformWarehouse].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboundCancelled, doc.Status)
}

func TestIngest_IdempotentOnExternalNumber(t *testing.T) {
	env, o, _, _ := twoWarehouses(t)
	ctx := context.Background()

	again, created, err := env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "EXT-9", Paid: true,
		Items: []order.IngestItem{{SKU: "SKU-1", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, o.ID, again.ID)

	_, _, err = env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "EXT-10",
		Items: []order.IngestItem{{SKU: "NOPE", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = env.Orders.Ingest(ctx, order.IngestInput{ChannelID: "shop", ExternalOrderNo: "EXT-11"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancel_ThenSiblingShipsThenRetryAllocates(t *testing.T) {
	env, o, fs, recs := twoWarehouses(t)
	ctx := context.Background()
	merchant := fs[entity.FulfillmentMerchantWarehouse]
	platform := fs[entity.FulfillmentPlatformWarehouse]

	_, err := env.Fulfillments.Cancel(ctx, "m1", merchant.ID, "sin empaque")
	require.NoError(t, err)

	doc, err := env.Store.Repos().Outbound.GetByFulfillment(ctx, platform.ID)
	require.NoError(t, err)
	_, err = env.Outbound.Sync(ctx, doc.ID)
	require.NoError(t, err)
	_, err = env.Outbound.HandleCallback(ctx, outbound.CallbackInput{
		OutboundNo: doc.OutboundNo, Status: entity.OutboundShipped, Carrier: "Servientrega", TrackingNumber: "SV-1",
	})
	require.NoError(t, err)

	got, err := env.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocationFailed, got.Status, "queda pendiente por reasignar")
	assert.Equal(t, int64(2), got.Items[0].ShippedQuantity)

	got, err = env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPartiallyShipped, got.Status)
	assert.Equal(t, int64(6), got.Items[0].AllocatedQuantity)
	assert.Equal(t, int64(4), env.Record(t, recs[0].ID).QuantityReserved)

	list, err := env.Fulfillments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	var reopened *entity.Fulfillment
	for _, f := range list {
		if f.Type == entity.FulfillmentMerchantWarehouse && f.Open() {
			reopened = f
		}
	}
	require.NotNil(t, reopened)
	_, err = env.Fulfillments.StartProcessing(ctx, "m1", reopened.ID)
	require.NoError(t, err)
	_, err = env.Fulfillments.Ship(ctx, "m1", reopened.ID, "TCC", "TRK-2")
	require.NoError(t, err)

	got, err = env.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderShipped, got.Status)
}

// crossOrders crea dos órdenes sobre los mismos dos registros con las líneas en orden inverso,
// de modo que sus fulfillments quedan creados en orden de bodega opuesto.
func crossOrders(t *testing.T, env *apptest.Env, cp1, cp2 *entity.ChannelProduct, n int) (*entity.Order, *entity.Order) {
	t.Helper()
	ctx := context.Background()
	line := func(cp *entity.ChannelProduct) order.IngestItem {
		return order.IngestItem{ChannelProductID: cp.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(12)}
	}
	z, _, err := env.IngestAndAllocate(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: fmt.Sprintf("Z-%d", n), Paid: true,
		Items: []order.IngestItem{line(cp1), line(cp2)},
	})
	require.NoError(t, err)
	require.Equal(t, entity.OrderAllocated, z.Status)
	y, _, err := env.IngestAndAllocate(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: fmt.Sprintf("Y-%d", n), Paid: true,
		Items: []order.IngestItem{line(cp2), line(cp1)},
	})
	require.NoError(t, err)
	require.Equal(t, entity.OrderAllocated, y.Status)
	return z, y
}

func TestOrderCancel_ConcurrentCrossOrdersDoNotDeadlock(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	env.Warehouse(t, "M2", entity.WarehouseMerchant, "m1")
	r1 := env.Stock(t, "m1", "wh-M1", "SKU-1", 50)
	r2 := env.Stock(t, "m1", "wh-M2", "SKU-2", 50)
	cp1 := env.ChannelProduct(t, "shop", "SKU-1", env.ActiveListing(t, r1))
	cp2 := env.ChannelProduct(t, "shop", "SKU-2", env.ActiveListing(t, r2))

	for i := 0; i < 20; i++ {
		z, y := crossOrders(t, env, cp1, cp2, i)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for k, id := range []string{z.ID, y.ID} {
			wg.Add(1)
			go func(k int, id string) {
				defer wg.Done()
				_, errs[k] = env.Orders.Cancel(ctx, id, "fraude")
			}(k, id)
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("iteración %d: las cancelaciones concurrentes no terminaron", i)
		}
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
	}

	for _, r := range []*entity.InventoryRecord{r1, r2} {
		rec := env.Record(t, r.ID)
		assert.Equal(t, int64(0), rec.QuantityReserved)
		assert.Equal(t, int64(50), rec.QuantityAvailable)
	}
}

func TestShipAndOrderCancel_Concurrent(t *testing.T) {
	env, o, fs, recs := twoWarehouses(t)
	ctx := context.Background()
	merchant := fs[entity.FulfillmentMerchantWarehouse]
	_, err := env.Fulfillments.StartProcessing(ctx, "m1", merchant.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var shipErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, shipErr = env.Fulfillments.Ship(ctx, "m1", merchant.ID, "TCC", "TRK-1")
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = env.Orders.Cancel(ctx, o.ID, "cliente")
	}()
	wg.Wait()

	// gana exactamente una y los buckets quedan coherentes con la ganadora
	require.True(t, (shipErr == nil) != (cancelErr == nil), "ship=%v cancel=%v", shipErr, cancelErr)
	recM, recP := env.Record(t, recs[0].ID), env.Record(t, recs[1].ID)
	assert.Equal(t, int64(0), recM.QuantityReserved)
	if shipErr == nil {
		assert.ErrorIs(t, cancelErr, domain.ErrInvalidTransition)
		assert.Equal(t, int64(0), recM.QuantityAvailable)
		assert.Equal(t, int64(2), recP.QuantityReserved)
		return
	}
	assert.ErrorIs(t, shipErr, domain.ErrInvalidTransition)
	assert.Equal(t, int64(4), recM.QuantityAvailable)
	assert.Equal(t, int64(0), recP.QuantityReserved)
	assert.Equal(t, int64(5), recP.QuantityAvailable)
}
