package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

func channelProduct(mode StockMode) *ChannelProduct {
	cp := &ChannelProduct{ID: "cp-1", StockMode: mode}
	_ = cp.AddSource(ChannelProductSource{ID: "s-a", ListingID: "l-a", Priority: 2, IsActive: true, CreatedAt: t0})
	_ = cp.AddSource(ChannelProductSource{ID: "s-b", ListingID: "l-b", Priority: 1, IsActive: true, CreatedAt: t0})
	_ = cp.AddSource(ChannelProductSource{ID: "s-c", ListingID: "l-c", Priority: 1, IsActive: true, CreatedAt: t0.Add(time.Minute)})
	return cp
}

func TestChannelProduct_SourceOrder(t *testing.T) {
	cp := channelProduct(StockModeAggregate)
	src, ok := cp.Source("s-c")
	require.True(t, ok)
	src.IsActive = false

	var ids []string
	for _, s := range cp.ActiveSourcesByPriority() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s-b", "s-a"}, ids)

	assert.ErrorIs(t, cp.AddSource(ChannelProductSource{ListingID: "l-a"}), domain.ErrDuplicate)
	assert.ErrorIs(t, cp.AddSource(ChannelProductSource{ListingID: ""}), domain.ErrInvalidInput)
	assert.Equal(t, "cp-1", cp.Sources[0].ChannelProductID)
}

func TestChannelProduct_RecalculateStock(t *testing.T) {
	avail := map[string]int64{"l-a": 10, "l-b": 3, "l-c": -2}
	lookup := func(s ChannelProductSource) int64 { return avail[s.ListingID] }

	cases := []struct {
		name   string
		mode   StockMode
		fixed  int64
		buffer int64
		want   int64
	}{
		{"aggregate", StockModeAggregate, 0, 0, 13},
		{"lowest", StockModeLowest, 0, 0, 0},
		{"fixed", StockModeFixed, 18, 0, 18},
		{"buffer con piso", StockModeAggregate, 0, 20, 0},
		{"buffer", StockModeAggregate, 0, 3, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cp := channelProduct(tc.mode)
			cp.FixedQuantity = tc.fixed
			cp.SafetyBuffer = tc.buffer
			assert.Equal(t, tc.want, cp.RecalculateStock(lookup, t0))
			assert.Equal(t, tc.want, cp.StockQuantity)
		})
	}

	empty := &ChannelProduct{ID: "cp-2", StockMode: StockModeFixed, FixedQuantity: 5}
	assert.Equal(t, int64(0), empty.RecalculateStock(lookup, t0))
}
