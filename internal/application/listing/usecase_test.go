package listing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/apptest"
	"github.com/jhoicas/marketplace-ledger/internal/application/listing"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func dedicated(t *testing.T, env *apptest.Env, rec *entity.InventoryRecord, qty int64) (*entity.Listing, error) {
	t.Helper()
	return env.Listings.CreateListing(context.Background(), listing.CreateListingInput{
		MerchantID: rec.MerchantID, ChannelConnectionID: "conn", InventoryRecordID: rec.ID,
		Price: decimal.NewFromInt(10), AllocationMode: entity.AllocationDedicated, AllocatedQuantity: qty,
	})
}

func TestListing_DedicatedEarmarkCannotExceedAvailable(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	rec := env.Stock(t, "m1", "wh-1", "SKU-1", 10)

	a, err := dedicated(t, env, rec, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(6), env.Record(t, rec.ID).QuantityEarmarked)

	_, err = dedicated(t, env, rec, 5)
	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, domain.ErrOverAllocation)
	assert.Equal(t, int64(11), se.Attempted)

	b, err := dedicated(t, env, rec, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), env.Record(t, rec.ID).QuantityEarmarked)

	_, err = env.Listings.AdjustAllocatedQuantity(ctx, "m1", a.ID, 1)
	assert.ErrorIs(t, err, domain.ErrOverAllocation)
	_, err = env.Listings.AdjustAllocatedQuantity(ctx, "m1", a.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(8), env.Record(t, rec.ID).QuantityEarmarked)

	_, err = env.Listings.SetDedicated(ctx, "m1", b.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(10), env.Record(t, rec.ID).QuantityEarmarked)

	shared, err := env.Listings.SetShared(ctx, "m1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AllocationShared, shared.AllocationMode)
	assert.Equal(t, int64(0), shared.AllocatedQuantity)
	after := env.Record(t, rec.ID)
	assert.Equal(t, int64(6), after.QuantityEarmarked)
	assert.Equal(t, int64(4), after.SharedPool())
}

func TestListing_OwnershipAndValidation(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	rec := env.Stock(t, "m1", "wh-1", "SKU-1", 3)

	_, err := env.Listings.CreateListing(ctx, listing.CreateListingInput{
		MerchantID: "m2", ChannelConnectionID: "conn", InventoryRecordID: rec.ID, Price: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	l := env.ActiveListing(t, rec)
	_, err = env.Listings.Pause(ctx, "m2", l.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Listings.UpdatePrice(ctx, "m1", l.ID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	got, err := env.Listings.UpdatePrice(ctx, "m1", l.ID, decimal.RequireFromString("12.345"))
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.35")))
	_, err = env.Listings.AdjustAllocatedQuantity(ctx, "m1", l.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestChannelProduct_StockModes(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	l5 := env.ActiveListing(t, env.Stock(t, "m1", "wh-1", "SKU-1", 5))
	l7 := env.ActiveListing(t, env.Stock(t, "m2", "wh-2", "SKU-1", 7))

	cp, err := env.Listings.CreateChannelProduct(ctx, listing.CreateChannelProductInput{
		ChannelID: "shop", SKU: "SKU-1", Price: decimal.NewFromInt(15), SafetyBuffer: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StockModeAggregate, cp.StockMode)
	assert.Equal(t, int64(0), cp.StockQuantity)

	cp, err = env.Listings.AddSource(ctx, cp.ID, l5.ID, 2)
	require.NoError(t, err)
	cp, err = env.Listings.AddSource(ctx, cp.ID, l7.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), cp.StockQuantity)

	_, err = env.Listings.AddSource(ctx, cp.ID, l7.ID, 3)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	lowest := entity.StockModeLowest
	cp, err = env.Listings.UpdateStockSettings(ctx, cp.ID, listing.StockSettings{StockMode: &lowest})
	require.NoError(t, err)
	assert.Equal(t, int64(3), cp.StockQuantity)

	fixed := entity.StockModeFixed
	twenty := int64(20)
	cp, err = env.Listings.UpdateStockSettings(ctx, cp.ID, listing.StockSettings{StockMode: &fixed, FixedQuantity: &twenty})
	require.NoError(t, err)
	assert.Equal(t, int64(18), cp.StockQuantity)

	off := false
	for _, s := range cp.Sources {
		cp, err = env.Listings.UpdateSource(ctx, cp.ID, s.ID, nil, &off)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), cp.StockQuantity)

	last, ok := env.Publisher.Last(cp.ID)
	require.True(t, ok)
	assert.Equal(t, int64(0), last.StockQuantity)
	assert.True(t, last.Price.Equal(decimal.NewFromInt(15)))
}

func TestChannelProduct_PausedListingCountsZero(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	rec := env.Stock(t, "m1", "wh-1", "SKU-1", 5)
	l := env.ActiveListing(t, rec)
	cp := env.ChannelProduct(t, "shop", "SKU-1", l)
	assert.Equal(t, int64(5), cp.StockQuantity)

	_, err := env.Listings.Pause(ctx, "m1", l.ID)
	require.NoError(t, err)
	cur, err := env.Listings.GetChannelProduct(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur.StockQuantity)

	_, err = env.Listings.Activate(ctx, "m1", l.ID)
	require.NoError(t, err)
	env.Stock(t, "m1", "wh-1", "SKU-1", 2)
	require.NoError(t, env.Listings.RefreshRecords(ctx, rec.ID))
	cur, err = env.Listings.GetChannelProduct(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cur.StockQuantity)
}
