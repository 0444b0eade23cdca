package listing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// CreateChannelProductInput datos de un producto de canal.
type CreateChannelProductInput struct {
	ChannelID     string
	SKU           string
	Title         string
	Price         decimal.Decimal
	StockMode     entity.StockMode
	FixedQuantity int64
	SafetyBuffer  int64
}

// StockSettings cambios parciales del cálculo de stock de canal.
type StockSettings struct {
	StockMode     *entity.StockMode
	FixedQuantity *int64
	SafetyBuffer  *int64
	Price         *decimal.Decimal
}

// SourceAvailable resuelve lo vendible de una fuente: listing no vendible o inexistente → 0.
// También devuelve el listing y el registro leídos con los repos dados.
func SourceAvailable(ctx context.Context, r ports.Repos, src entity.ChannelProductSource) (int64, *entity.Listing, *entity.InventoryRecord, error) {
	l, err := r.Listings.GetByID(ctx, src.ListingID)
	if err != nil || l == nil {
		return 0, l, nil, err
	}
	rec, err := r.Records.GetByID(ctx, l.InventoryRecordID)
	if err != nil {
		return 0, l, nil, err
	}
	if !l.Sellable() {
		return 0, l, rec, nil
	}
	return l.AvailableQuantity(rec), l, rec, nil
}

// CreateChannelProduct crea el producto de canal sin fuentes (stock 0).
func (uc *UseCase) CreateChannelProduct(ctx context.Context, in CreateChannelProductInput) (*entity.ChannelProduct, error) {
	if in.StockMode == "" {
		in.StockMode = entity.StockModeAggregate
	}
	if in.ChannelID == "" || in.SKU == "" || !in.StockMode.Valid() || in.FixedQuantity < 0 || in.SafetyBuffer < 0 || in.Price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	now := uc.clock.Now()
	cp := &entity.ChannelProduct{
		ID:            domain.NewID(),
		ChannelID:     in.ChannelID,
		SKU:           in.SKU,
		Title:         in.Title,
		Price:         in.Price.Round(2),
		StockMode:     in.StockMode,
		FixedQuantity: in.FixedQuantity,
		SafetyBuffer:  in.SafetyBuffer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	cp.RecalculateStock(func(entity.ChannelProductSource) int64 { return 0 }, now)
	if err := uc.store.Run(ctx, func(r ports.Repos) error {
		return r.ChannelProducts.Create(ctx, cp)
	}); err != nil {
		return nil, err
	}
	uc.log.Info().Str("channel_product_id", cp.ID).Str("channel_id", cp.ChannelID).Str("sku", cp.SKU).Msg("producto de canal creado")
	return cp, nil
}

// AddSource enlaza un listing al producto de canal con una prioridad.
func (uc *UseCase) AddSource(ctx context.Context, channelProductID, listingID string, priority int) (*entity.ChannelProduct, error) {
	var out *entity.ChannelProduct
	var update *ports.ChannelStockUpdate
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		l, err := r.Listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if l == nil {
			return domain.ErrNotFound
		}
		cp, err := r.ChannelProducts.GetForUpdate(ctx, channelProductID)
		if err != nil {
			return err
		}
		if cp == nil {
			return domain.ErrNotFound
		}
		src := entity.ChannelProductSource{
			ID:        domain.NewID(),
			ListingID: listingID,
			Priority:  priority,
			IsActive:  true,
			CreatedAt: uc.clock.Now(),
		}
		if err := cp.AddSource(src); err != nil {
			return err
		}
		if err := r.ChannelProducts.AddSource(ctx, &cp.Sources[len(cp.Sources)-1]); err != nil {
			return err
		}
		update, err = uc.recalculateLocked(ctx, r, cp)
		out = cp
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, []ports.ChannelStockUpdate{*update})
	return out, nil
}

// UpdateSource cambia prioridad y/o activación de una fuente.
func (uc *UseCase) UpdateSource(ctx context.Context, channelProductID, sourceID string, priority *int, active *bool) (*entity.ChannelProduct, error) {
	if priority != nil && *priority < 0 {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.ChannelProduct
	var update *ports.ChannelStockUpdate
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		cp, err := r.ChannelProducts.GetForUpdate(ctx, channelProductID)
		if err != nil {
			return err
		}
		if cp == nil {
			return domain.ErrNotFound
		}
		src, ok := cp.Source(sourceID)
		if !ok {
			return domain.ErrNotFound
		}
		if priority != nil {
			src.Priority = *priority
		}
		if active != nil {
			src.IsActive = *active
		}
		if err := r.ChannelProducts.UpdateSource(ctx, src); err != nil {
			return err
		}
		update, err = uc.recalculateLocked(ctx, r, cp)
		out = cp
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, []ports.ChannelStockUpdate{*update})
	return out, nil
}

// UpdateStockSettings cambia modo, cantidad fija, colchón o precio y recalcula.
func (uc *UseCase) UpdateStockSettings(ctx context.Context, channelProductID string, s StockSettings) (*entity.ChannelProduct, error) {
	var out *entity.ChannelProduct
	var update *ports.ChannelStockUpdate
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		cp, err := r.ChannelProducts.GetForUpdate(ctx, channelProductID)
		if err != nil {
			return err
		}
		if cp == nil {
			return domain.ErrNotFound
		}
		if s.StockMode != nil {
			if !s.StockMode.Valid() {
				return domain.ErrInvalidInput
			}
			cp.StockMode = *s.StockMode
		}
		if s.FixedQuantity != nil {
			if *s.FixedQuantity < 0 {
				return domain.ErrInvalidInput
			}
			cp.FixedQuantity = *s.FixedQuantity
		}
		if s.SafetyBuffer != nil {
			if *s.SafetyBuffer < 0 {
				return domain.ErrInvalidInput
			}
			cp.SafetyBuffer = *s.SafetyBuffer
		}
		if s.Price != nil {
			if s.Price.IsNegative() {
				return domain.ErrInvalidInput
			}
			cp.Price = s.Price.Round(2)
		}
		update, err = uc.recalculateLocked(ctx, r, cp)
		out = cp
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, []ports.ChannelStockUpdate{*update})
	return out, nil
}

// Recalculate fuerza el recálculo de un producto de canal.
func (uc *UseCase) Recalculate(ctx context.Context, channelProductID string) (*entity.ChannelProduct, error) {
	var out *entity.ChannelProduct
	var update *ports.ChannelStockUpdate
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		cp, err := r.ChannelProducts.GetForUpdate(ctx, channelProductID)
		if err != nil {
			return err
		}
		if cp == nil {
			return domain.ErrNotFound
		}
		update, err = uc.recalculateLocked(ctx, r, cp)
		out = cp
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, []ports.ChannelStockUpdate{*update})
	return out, nil
}

// GetChannelProduct obtiene un producto de canal con sus fuentes.
func (uc *UseCase) GetChannelProduct(ctx context.Context, id string) (*entity.ChannelProduct, error) {
	cp, err := uc.store.Repos().ChannelProducts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, domain.ErrNotFound
	}
	return cp, nil
}

// ListChannelProducts lista los productos de un canal.
func (uc *UseCase) ListChannelProducts(ctx context.Context, channelID string, limit, offset int) ([]*entity.ChannelProduct, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.store.Repos().ChannelProducts.ListByChannel(ctx, channelID, limit, offset)
}

// RefreshRecords recalcula todos los productos de canal alimentados por listings de los registros
// dados en una transacción propia y publica después del commit.
func (uc *UseCase) RefreshRecords(ctx context.Context, recordIDs ...string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	var updates []ports.ChannelStockUpdate
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		ids, err := uc.affectedChannelProducts(ctx, r, recordIDs)
		if err != nil {
			return err
		}
		for _, id := range ids {
			cp, err := r.ChannelProducts.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if cp == nil {
				continue
			}
			u, err := uc.recalculateLocked(ctx, r, cp)
			if err != nil {
				return err
			}
			updates = append(updates, *u)
		}
		return nil
	})
	if err != nil {
		uc.log.Error().Err(err).Strs("record_ids", recordIDs).Msg("recalcular stock de canal")
		return err
	}
	uc.publish(ctx, updates)
	return nil
}

// affectedChannelProducts IDs ordenados para bloquear siempre en el mismo orden.
func (uc *UseCase) affectedChannelProducts(ctx context.Context, r ports.Repos, recordIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, recordID := range recordIDs {
		listings, err := r.Listings.ListByRecord(ctx, recordID)
		if err != nil {
			return nil, err
		}
		for _, l := range listings {
			cps, err := r.ChannelProducts.ListByListing(ctx, l.ID)
			if err != nil {
				return nil, err
			}
			for _, cp := range cps {
				seen[cp.ID] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (uc *UseCase) recalculateLocked(ctx context.Context, r ports.Repos, cp *entity.ChannelProduct) (*ports.ChannelStockUpdate, error) {
	var lookupErr error
	cp.RecalculateStock(func(src entity.ChannelProductSource) int64 {
		n, _, _, err := SourceAvailable(ctx, r, src)
		if err != nil && lookupErr == nil {
			lookupErr = err
		}
		return n
	}, uc.clock.Now())
	if lookupErr != nil {
		return nil, lookupErr
	}
	if err := r.ChannelProducts.Update(ctx, cp); err != nil {
		return nil, err
	}
	return &ports.ChannelStockUpdate{
		ChannelProductID: cp.ID,
		ChannelID:        cp.ChannelID,
		SKU:              cp.SKU,
		StockQuantity:    cp.StockQuantity,
		Price:            cp.Price,
		UpdatedAt:        cp.UpdatedAt,
	}, nil
}

// publish es best effort: el próximo recálculo vuelve a empujar la cifra.
func (uc *UseCase) publish(ctx context.Context, updates []ports.ChannelStockUpdate) {
	if uc.publisher == nil || len(updates) == 0 {
		return
	}
	if err := uc.publisher.PublishStock(ctx, updates); err != nil {
		uc.log.Warn().Err(err).Int("count", len(updates)).Msg("publicar stock de canal")
		return
	}
	uc.metrics.StockPublished(len(updates))
}
