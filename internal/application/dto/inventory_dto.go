package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// InventoryRecordResponse registro con sus cuatro baldes.
type InventoryRecordResponse struct {
	ID                string          `json:"id"`
	MerchantID        string          `json:"merchant_id"`
	WarehouseID       string          `json:"warehouse_id"`
	SKU               string          `json:"sku"`
	QuantityInTransit int64           `json:"quantity_in_transit"`
	QuantityAvailable int64           `json:"quantity_available"`
	QuantityReserved  int64           `json:"quantity_reserved"`
	QuantityDamaged   int64           `json:"quantity_damaged"`
	QuantityEarmarked int64           `json:"quantity_earmarked"`
	TotalOnHand       int64           `json:"total_on_hand"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	SafetyStock       *int64          `json:"safety_stock"`
	LowStock          bool            `json:"low_stock"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToInventoryRecordResponse convierte la entidad.
func ToInventoryRecordResponse(r *entity.InventoryRecord) *InventoryRecordResponse {
	return &InventoryRecordResponse{
		ID:                r.ID,
		MerchantID:        r.MerchantID,
		WarehouseID:       r.WarehouseID,
		SKU:               r.SKU,
		QuantityInTransit: r.QuantityInTransit,
		QuantityAvailable: r.QuantityAvailable,
		QuantityReserved:  r.QuantityReserved,
		QuantityDamaged:   r.QuantityDamaged,
		QuantityEarmarked: r.QuantityEarmarked,
		TotalOnHand:       r.TotalOnHand(),
		AverageCost:       r.AverageCost,
		SafetyStock:       r.SafetyStock,
		LowStock:          r.IsLowStock(),
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToInventoryRecordList convierte una lista.
func ToInventoryRecordList(recs []*entity.InventoryRecord) []InventoryRecordResponse {
	out := make([]InventoryRecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, *ToInventoryRecordResponse(r))
	}
	return out
}

// SetSafetyStockRequest body de PUT /api/inventory/records/:id/safety-stock. null lo quita.
type SetSafetyStockRequest struct {
	SafetyStock *int64 `json:"safety_stock"`
}

// InventoryTransactionResponse fila del libro.
type InventoryTransactionResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	StockType     string          `json:"stock_type"`
	QuantityDelta int64           `json:"quantity_delta"`
	DamagedDelta  int64           `json:"damaged_delta,omitempty"`
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	InTransit     int64           `json:"in_transit_after"`
	Available     int64           `json:"available_after"`
	Reserved      int64           `json:"reserved_after"`
	Damaged       int64           `json:"damaged_after"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToTransactionList convierte una lista de transacciones.
func ToTransactionList(txs []*entity.InventoryTransaction) []InventoryTransactionResponse {
	out := make([]InventoryTransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, InventoryTransactionResponse{
			ID:            t.ID,
			Type:          string(t.Type),
			StockType:     string(t.StockType),
			QuantityDelta: t.QuantityDelta,
			DamagedDelta:  t.DamagedDelta,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			InTransit:     t.Buckets.InTransit,
			Available:     t.Buckets.Available,
			Reserved:      t.Buckets.Reserved,
			Damaged:       t.Buckets.Damaged,
			UnitCost:      t.UnitCost,
			AverageCost:   t.AverageCost,
			ReferenceType: t.ReferenceType,
			ReferenceID:   t.ReferenceID,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}

// ReplenishmentSuggestionDTO registro bajo stock de seguridad con la cantidad sugerida.
type ReplenishmentSuggestionDTO struct {
	RecordID          string          `json:"record_id"`
	WarehouseID       string          `json:"warehouse_id"`
	SKU               string          `json:"sku"`
	Available         int64           `json:"available"`
	InTransit         int64           `json:"in_transit"`
	SafetyStock       int64           `json:"safety_stock"`
	SuggestedOrderQty int64           `json:"suggested_order_qty"`
	UnitCost          decimal.Decimal `json:"unit_cost"`      // costo promedio ponderado
	EstimatedCost     decimal.Decimal `json:"estimated_cost"` // SuggestedOrderQty * UnitCost
}

// ToReplenishmentList convierte las sugerencias.
func ToReplenishmentList(list []inventory.ReplenishmentSuggestion) []ReplenishmentSuggestionDTO {
	out := make([]ReplenishmentSuggestionDTO, 0, len(list))
	for _, s := range list {
		var safety int64
		if s.Record.SafetyStock != nil {
			safety = *s.Record.SafetyStock
		}
		out = append(out, ReplenishmentSuggestionDTO{
			RecordID:          s.Record.ID,
			WarehouseID:       s.Record.WarehouseID,
			SKU:               s.Record.SKU,
			Available:         s.Record.QuantityAvailable,
			InTransit:         s.Record.QuantityInTransit,
			SafetyStock:       safety,
			SuggestedOrderQty: s.SuggestedQty,
			UnitCost:          s.Record.AverageCost,
			EstimatedCost:     s.Record.AverageCost.Mul(decimal.NewFromInt(s.SuggestedQty)).Round(2),
		})
	}
	return out
}
