package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// StockMode algoritmo de agregación del stock de canal.
type StockMode string

const (
	StockModeAggregate StockMode = "aggregate" // suma de las fuentes
	StockModeLowest    StockMode = "lowest"    // mínimo entre fuentes
	StockModeFixed     StockMode = "fixed"     // constante configurada
)

// Valid indica si el modo es conocido.
func (m StockMode) Valid() bool {
	switch m {
	case StockModeAggregate, StockModeLowest, StockModeFixed:
		return true
	}
	return false
}

// ChannelProduct agrega uno o más listings en una sola cifra vendible por canal+SKU.
type ChannelProduct struct {
	ID            string
	ChannelID     string
	SKU           string
	Title         string
	Price         decimal.Decimal
	StockMode     StockMode
	FixedQuantity int64
	SafetyBuffer  int64
	StockQuantity int64
	Sources       []ChannelProductSource
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChannelProductSource enlace priorizado a un Listing; menor Priority = mayor prioridad.
type ChannelProductSource struct {
	ID               string
	ChannelProductID string
	ListingID        string
	Priority         int
	IsActive         bool
	SoldQuantity     int64
	CreatedAt        time.Time
}

// ActiveSourcesByPriority devuelve las fuentes activas en orden de prioridad ascendente.
// El orden gobierna tanto la presentación como el orden de consumo del enrutador.
func (cp *ChannelProduct) ActiveSourcesByPriority() []ChannelProductSource {
	out := make([]ChannelProductSource, 0, len(cp.Sources))
	for _, s := range cp.Sources {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Source busca una fuente por ID.
func (cp *ChannelProduct) Source(id string) (*ChannelProductSource, bool) {
	for i := range cp.Sources {
		if cp.Sources[i].ID == id {
			return &cp.Sources[i], true
		}
	}
	return nil, false
}

// HasListing indica si alguna fuente apunta al listing.
func (cp *ChannelProduct) HasListing(listingID string) bool {
	for _, s := range cp.Sources {
		if s.ListingID == listingID {
			return true
		}
	}
	return false
}

// AddSource agrega una fuente; un listing no puede repetirse en el mismo producto de canal.
func (cp *ChannelProduct) AddSource(src ChannelProductSource) error {
	if src.ListingID == "" || src.Priority < 0 {
		return domain.ErrInvalidInput
	}
	if cp.HasListing(src.ListingID) {
		return domain.ErrDuplicate
	}
	src.ChannelProductID = cp.ID
	cp.Sources = append(cp.Sources, src)
	return nil
}

// RecalculateStock aplica el modo de stock sobre las fuentes activas:
// sin fuentes activas → 0; aggregate = suma; lowest = mínimo; fixed = constante;
// luego resta SafetyBuffer con piso en 0. available resuelve el disponible de cada fuente.
func (cp *ChannelProduct) RecalculateStock(available func(ChannelProductSource) int64, now time.Time) int64 {
	active := cp.ActiveSourcesByPriority()
	var qty int64
	if len(active) > 0 {
		switch cp.StockMode {
		case StockModeAggregate:
			for _, s := range active {
				qty += nonNegative(available(s))
			}
		case StockModeLowest:
			qty = nonNegative(available(active[0]))
			for _, s := range active[1:] {
				if a := nonNegative(available(s)); a < qty {
					qty = a
				}
			}
		case StockModeFixed:
			qty = cp.FixedQuantity
		}
		qty -= cp.SafetyBuffer
	}
	cp.StockQuantity = nonNegative(qty)
	cp.UpdatedAt = now
	return cp.StockQuantity
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
