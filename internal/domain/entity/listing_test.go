package entity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

func TestListing_DedicatedSellsOut(t *testing.T) {
	l := &Listing{ID: "l-1", Status: ListingDraft, Price: decimal.NewFromInt(10)}
	require.NoError(t, l.SetDedicated(10, t0))
	require.NoError(t, l.Activate(t0))
	require.NoError(t, l.RecordSale(3, t0))
	assert.Equal(t, int64(7), l.AvailableQuantity(nil))

	require.NoError(t, l.RecordSale(7, t0))
	assert.Equal(t, ListingSoldOut, l.Status)
	assert.False(t, l.Sellable())
	assert.Equal(t, int64(0), l.Earmarked())

	l.RevertSale(2, t0)
	assert.Equal(t, ListingActive, l.Status)
	assert.Equal(t, int64(2), l.Earmarked())
}

func TestListing_SharedUsesRecordPool(t *testing.T) {
	rec := newRecord(10)
	rec.QuantityEarmarked = 4
	l := &Listing{ID: "l-1", AllocationMode: AllocationShared, Status: ListingActive}
	assert.Equal(t, int64(6), l.AvailableQuantity(rec))
	assert.Equal(t, int64(0), l.Earmarked())
	assert.Equal(t, int64(0), l.AvailableQuantity(nil))
}

func TestListing_SetDedicatedBelowSold(t *testing.T) {
	l := &Listing{ID: "l-1", AllocationMode: AllocationDedicated, AllocatedQuantity: 10, SoldQuantity: 6, Status: ListingActive}
	assert.ErrorIs(t, l.SetDedicated(5, t0), domain.ErrInvalidInput)
	require.NoError(t, l.AdjustAllocatedQuantity(-4, t0))
	assert.Equal(t, ListingSoldOut, l.Status)

	l.SetShared(t0)
	assert.Equal(t, ListingActive, l.Status)
	assert.Equal(t, int64(0), l.AllocatedQuantity)

	var te *domain.TransitionError
	assert.True(t, errors.As(l.AdjustAllocatedQuantity(1, t0), &te))
}

func TestListing_PauseAndPrice(t *testing.T) {
	l := &Listing{ID: "l-1", AllocationMode: AllocationShared, Status: ListingDraft}
	var te *domain.TransitionError
	assert.True(t, errors.As(l.Pause(t0), &te))

	require.NoError(t, l.Activate(t0))
	require.NoError(t, l.Pause(t0))
	assert.False(t, l.Sellable())
	require.NoError(t, l.Pause(t0))

	assert.ErrorIs(t, l.UpdatePrice(decimal.NewFromInt(-1), t0), domain.ErrInvalidInput)
	require.NoError(t, l.UpdatePrice(decimal.RequireFromString("12.345"), t0))
	assert.Equal(t, "12.35", l.Price.StringFixed(2))
}
