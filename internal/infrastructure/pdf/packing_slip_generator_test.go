package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func TestPackingSlip_GeneratesPDF(t *testing.T) {
	doc := &entity.OutboundOrder{
		OutboundNo: "OB20250102000001",
		OrderID:    "o-1",
		Receiver:   entity.Address{Name: "Ana", City: "Medellín", Line1: "Calle 10"},
		Items: []entity.OutboundOrderItem{
			{SKU: "SKU-1", ProductName: "Camiseta", Quantity: 2},
			{SKU: "SKU-2", Quantity: 1},
		},
		CreatedAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	wh := &entity.Warehouse{Code: "PLAT", Name: "Bodega Central"}

	out, err := NewMarotoPackingSlipGenerator().PackingSlip(doc, wh)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewMarotoPackingSlipGenerator().PackingSlip(nil, wh)
	assert.Error(t, err)
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "Calle 10, Medellín, CO", formatAddress(entity.Address{Line1: "Calle 10", City: "Medellín", Country: "CO"}))
	assert.Equal(t, "—", formatAddress(entity.Address{}))
}
