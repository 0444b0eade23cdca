package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// ReplenishmentSuggestion registro bajo stock de seguridad con la cantidad sugerida a reponer.
type ReplenishmentSuggestion struct {
	Record       *entity.InventoryRecord
	SuggestedQty int64
}

// LowStock lista los registros del comerciante con disponible ≤ stock de seguridad y sugiere
// reponer hasta 1.5× el stock de seguridad, descontando lo que ya viene en tránsito.
// Ordenado por mayor faltante primero.
func (uc *LedgerUseCase) LowStock(ctx context.Context, merchantID, warehouseID string) ([]ReplenishmentSuggestion, error) {
	recs, err := uc.store.Repos().Records.List(ctx, repository.RecordFilter{
		MerchantID:   merchantID,
		WarehouseID:  warehouseID,
		LowStockOnly: true,
		Limit:        500,
	})
	if err != nil {
		return nil, err
	}
	out := make([]ReplenishmentSuggestion, 0, len(recs))
	for _, rec := range recs {
		if !rec.IsLowStock() {
			continue
		}
		ideal := *rec.SafetyStock * 3 / 2
		qty := ideal - rec.QuantityAvailable - rec.QuantityInTransit
		if qty < 0 {
			qty = 0
		}
		out = append(out, ReplenishmentSuggestion{Record: rec, SuggestedQty: qty})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuggestedQty > out[j].SuggestedQty
	})
	return out, nil
}
