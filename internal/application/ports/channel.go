package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ChannelStockUpdate stock y precio de un producto de canal para empujar al canal de venta.
type ChannelStockUpdate struct {
	ChannelProductID string          `json:"channel_product_id"`
	ChannelID        string          `json:"channel_id"`
	SKU              string          `json:"sku"`
	StockQuantity    int64           `json:"stock_quantity"`
	Price            decimal.Decimal `json:"price"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ChannelStockPublisher publica cambios de stock de canal. Se llama después del commit.
type ChannelStockPublisher interface {
	PublishStock(ctx context.Context, updates []ChannelStockUpdate) error
}

// StockRefresher recalcula y publica el stock de canal de los productos que tocan los registros dados.
type StockRefresher interface {
	RefreshRecords(ctx context.Context, recordIDs ...string) error
}
