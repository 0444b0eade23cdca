package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeightedAverageCost(t *testing.T) {
	tests := []struct {
		name         string
		stock        int64
		cost         string
		qty          int64
		incomingCost string
		want         string
	}{
		{"sin stock toma el costo de entrada", 0, "0", 10, "15.5", "15.50"},
		{"promedio simple", 90, "10", 10, "20", "11.00"},
		{"redondeo a 2 decimales", 3, "10", 1, "11", "10.25"},
		{"tercios", 2, "10", 1, "11", "10.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverageCost(tt.stock, decimal.RequireFromString(tt.cost), tt.qty, decimal.RequireFromString(tt.incomingCost))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPools(t *testing.T) {
	assert.Equal(t, int64(7), DedicatedRemaining(10, 3))
	assert.Equal(t, int64(0), DedicatedRemaining(3, 5))
	assert.Equal(t, int64(4), SharedPool(10, 6))
	assert.Equal(t, int64(0), SharedPool(5, 6))
	assert.True(t, EarmarkFits(10, 10))
	assert.False(t, EarmarkFits(11, 10))
}
