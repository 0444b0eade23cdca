package allocation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/listing"
	"github.com/jhoicas/marketplace-ledger/internal/application/order"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func paidOrder(t *testing.T, env *apptest.Env, cp *entity.ChannelProduct, ext string, qty int64) *entity.Order {
	t.Helper()
	o, created, err := env.Orders.Ingest(context.Background(), order.IngestInput{
		ChannelID:       cp.ChannelID,
		ExternalOrderNo: ext,
		Paid:            true,
		Receiver:        entity.Address{Name: "Ana", City: "Bogotá", Line1: "Cra 7 # 1-2"},
		Items:           []order.IngestItem{{ChannelProductID: cp.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)
	require.True(t, created)
	return o
}

func TestAllocate_SplitsAcrossSourcesByPriority(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	env.Product(t, "m2", "SKU-A", "Camiseta azul")

	recA := env.Stock(t, "m1", "wh-M1", "SKU-A", 4)
	recB := env.Stock(t, "m2", "wh-P1", "SKU-A", 6)
	la := env.ActiveListing(t, recA)
	lb := env.ActiveListing(t, recB)
	cp := env.ChannelProduct(t, "shop", "SKU-A", la, lb)
	assert.Equal(t, int64(10), cp.StockQuantity)

	o := paidOrder(t, env, cp, "EXT-1", 10)
	got, err := env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, got.Status)
	assert.Equal(t, int64(10), got.Items[0].AllocatedQuantity)
	assert.Equal(t, entity.AllocationFull, got.Items[0].AllocationStatus)

	a, b := env.Record(t, recA.ID), env.Record(t, recB.ID)
	assert.Equal(t, int64(0), a.QuantityAvailable)
	assert.Equal(t, int64(4), a.QuantityReserved)
	assert.Equal(t, int64(0), b.QuantityAvailable)
	assert.Equal(t, int64(6), b.QuantityReserved)

	fs, err := env.Fulfillments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	byType := map[entity.FulfillmentType]*entity.Fulfillment{}
	for _, f := range fs {
		byType[f.Type] = f
	}
	merchant := byType[entity.FulfillmentMerchantWarehouse]
	platform := byType[entity.FulfillmentPlatformWarehouse]
	require.NotNil(t, merchant)
	require.NotNil(t, platform)
	assert.Equal(t, "m1", merchant.OwnerKey)
	assert.Equal(t, int64(4), merchant.TotalQuantity())
	assert.Equal(t, entity.PlatformOwner, platform.OwnerKey)
	assert.Equal(t, int64(6), platform.TotalQuantity())
	assert.Regexp(t, `^FF20250102\d{6}$`, platform.FulfillmentNo)
	assert.True(t, platform.Items[0].SettlementPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, platform.Items[0].Commission.Equal(decimal.NewFromInt(6)))

	doc, err := env.Store.Repos().Outbound.GetByFulfillment(ctx, platform.ID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.OutboundPending, doc.Status)
	assert.Equal(t, entity.SyncPending, doc.SyncStatus)
	assert.Equal(t, "Ana", doc.Receiver.Name)
	assert.Equal(t, "Camiseta azul", doc.Items[0].ProductName)
	none, err := env.Store.Repos().Outbound.GetByFulfillment(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	last, ok := env.Publisher.Last(cp.ID)
	require.True(t, ok)
	assert.Equal(t, int64(0), last.StockQuantity)

	cur, err := env.Listings.GetChannelProduct(ctx, cp.ID)
	require.NoError(t, err)
	for _, s := range cur.Sources {
		switch s.ListingID {
		case la.ID:
			assert.Equal(t, int64(4), s.SoldQuantity)
		case lb.ID:
			assert.Equal(t, int64(6), s.SoldQuantity)
		}
	}
}

func TestAllocate_ShortageThenRetryAllocatesRemainder(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-B", 6)
	l := env.ActiveListing(t, rec)
	cp := env.ChannelProduct(t, "shop", "SKU-B", l)

	o := paidOrder(t, env, cp, "EXT-2", 10)
	got, err := env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocationFailed, got.Status)
	assert.Equal(t, int64(6), got.Items[0].AllocatedQuantity)
	assert.Equal(t, entity.AllocationFailed, got.Items[0].AllocationStatus)
	assert.Contains(t, got.AllocationFailReason, "SKU-B")
	assert.Equal(t, int64(6), env.Record(t, rec.ID).QuantityReserved)

	env.Stock(t, "m1", "wh-M1", "SKU-B", 4)
	got, err = env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, got.Status)
	assert.Equal(t, int64(10), got.Items[0].AllocatedQuantity)
	assert.Empty(t, got.AllocationFailReason)

	after := env.Record(t, rec.ID)
	assert.Equal(t, int64(10), after.QuantityReserved)
	assert.Equal(t, int64(0), after.QuantityAvailable)

	fs, err := env.Fulfillments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, fs, 1, "el remanente se suma al fulfillment pendiente")
	assert.Equal(t, int64(10), fs[0].TotalQuantity())
}

func TestAllocate_SharedListingRespectsDedicatedEarmark(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-C", 10)

	dedicated, err := env.Listings.CreateListing(ctx, listing.CreateListingInput{
		MerchantID: "m1", ChannelConnectionID: "conn-b", InventoryRecordID: rec.ID,
		Price: decimal.NewFromInt(9), AllocationMode: entity.AllocationDedicated, AllocatedQuantity: 3,
	})
	require.NoError(t, err)
	_, err = env.Listings.Activate(ctx, "m1", dedicated.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.Record(t, rec.ID).QuantityEarmarked)

	shared := env.ActiveListing(t, rec)
	cp := env.ChannelProduct(t, "shop", "SKU-C", shared)
	assert.Equal(t, int64(7), cp.StockQuantity)

	o := paidOrder(t, env, cp, "EXT-3", 8)
	got, err := env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocationFailed, got.Status)
	assert.Equal(t, int64(7), got.Items[0].AllocatedQuantity)

	after := env.Record(t, rec.ID)
	assert.Equal(t, int64(3), after.QuantityAvailable)
	assert.Equal(t, int64(3), after.QuantityEarmarked)
	assert.Equal(t, int64(0), after.SharedPool())
}

func TestAllocate_DedicatedListingSellsOut(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-D", 10)
	l, err := env.Listings.CreateListing(ctx, listing.CreateListingInput{
		MerchantID: "m1", ChannelConnectionID: "conn", InventoryRecordID: rec.ID,
		Price: decimal.NewFromInt(5), AllocationMode: entity.AllocationDedicated, AllocatedQuantity: 3,
	})
	require.NoError(t, err)
	_, err = env.Listings.Activate(ctx, "m1", l.ID)
	require.NoError(t, err)
	cp := env.ChannelProduct(t, "shop", "SKU-D", l)

	o := paidOrder(t, env, cp, "EXT-4", 3)
	got, err := env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, got.Status)

	cur, err := env.Listings.GetListing(ctx, "m1", l.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingSoldOut, cur.Status)
	assert.Equal(t, int64(0), cur.Earmarked())
	after := env.Record(t, rec.ID)
	assert.Equal(t, int64(0), after.QuantityEarmarked)
	assert.Equal(t, int64(7), after.QuantityAvailable)
}

func TestAllocate_RequiresPaidOrder(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-E", 5)
	cp := env.ChannelProduct(t, "shop", "SKU-E", env.ActiveListing(t, rec))

	o, _, err := env.Orders.Ingest(ctx, order.IngestInput{
		ChannelID: "shop", ExternalOrderNo: "EXT-5",
		Items: []order.IngestItem{{SKU: "SKU-E", Quantity: 1, UnitPrice: decimal.NewFromInt(12)}},
	})
	require.NoError(t, err)
	assert.Equal(t, cp.ID, o.Items[0].ChannelProductID)

	_, err = env.Router.Allocate(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.Orders.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	got, err := env.Router.Allocate(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderAllocated, got.Status)
}

func TestAllocate_CountsOutcome(t *testing.T) {
	env := apptest.New(t)
	env.Warehouse(t, "M1", entity.WarehouseMerchant, "m1")
	rec := env.Stock(t, "m1", "wh-M1", "SKU-F", 1)
	cp := env.ChannelProduct(t, "shop", "SKU-F", env.ActiveListing(t, rec))

	o := paidOrder(t, env, cp, "EXT-6", 2)
	_, err := env.Router.Allocate(context.Background(), o.ID)
	require.NoError(t, err)

	families, err := env.Metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "ledger_allocations_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAllocate_ConcurrentOrdersNeverOversell(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	env.Warehouse(t, "P1", entity.WarehousePlatform, "")
	rec := env.Stock(t, "m1", "wh-P1", "SKU-1", 10)
	cp := env.ChannelProduct(t, "shop", "SKU-1", env.ActiveListing(t, rec))

	const n = 40
	orders := make([]*entity.Order, n)
	for i := range orders {
		orders[i] = paidOrder(t, env, cp, fmt.Sprintf("EXT-%02d", i), 1)
	}

	var wg sync.WaitGroup
	results := make([]*entity.Order, n)
	for i, o := range orders {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			got, err := env.Router.Allocate(ctx, id)
			if err == nil {
				results[i] = got
			}
		}(i, o.ID)
	}
	wg.Wait()

	var allocated, failed int
	for i, got := range results {
		require.NotNil(t, got, "orden %d sin resultado", i)
		switch got.Status {
		case entity.OrderAllocated:
			allocated++
		case entity.OrderAllocationFailed:
			failed++
		default:
			t.Fatalf("orden %d en estado %s", i, got.Status)
		}
	}
	assert.Equal(t, 10, allocated)
	assert.Equal(t, n-10, failed)

	r := env.Record(t, rec.ID)
	assert.Equal(t, int64(0), r.QuantityAvailable)
	assert.Equal(t, int64(10), r.QuantityReserved)

	txs, err := env.Ledger.ListTransactions(ctx, rec.ID, 100, 0)
	require.NoError(t, err)
	var reserves int
	for _, tx := range txs {
		if tx.Type == entity.TransactionReserve {
			reserves++
		}
	}
	assert.Equal(t, 10, reserves)
}
