package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// TransactionType tipo de transición de balde.
type TransactionType string

const (
	TransactionInTransit  TransactionType = "in_transit"
	TransactionInbound    TransactionType = "inbound"
	TransactionReserve    TransactionType = "reserve"
	TransactionRelease    TransactionType = "release"
	TransactionOutbound   TransactionType = "outbound"
	TransactionCostAdjust TransactionType = "cost_adjust"
)

// StockType balde principal afectado por la transacción.
type StockType string

const (
	StockInTransit StockType = "in_transit"
	StockAvailable StockType = "available"
	StockReserved  StockType = "reserved"
	StockDamaged   StockType = "damaged"
)

// Tipos de documento de referencia.
const (
	RefInboundOrder = "inbound_order"
	RefFulfillment  = "fulfillment"
	RefOrder        = "order"
	RefOutbound     = "outbound_order"
)

// Reference documento que originó un movimiento.
type Reference struct {
	Type string
	ID   string
}

// InventoryTransaction fila inmutable del libro; una por transición de balde.
// Buckets guarda la foto de los cuatro baldes después del movimiento.
type InventoryTransaction struct {
	ID                string
	InventoryRecordID string
	Type              TransactionType
	StockType         StockType
	QuantityDelta     int64
	DamagedDelta      int64
	BalanceBefore     int64
	BalanceAfter      int64
	Buckets           domain.Buckets
	UnitCost          decimal.Decimal
	AverageCost       decimal.Decimal
	ReferenceType     string
	ReferenceID       string
	CreatedAt         time.Time
}
