package listing

import (
	"context"
	"fmt"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/marketplace-ledger/internal/application/inventory"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

var _ ports.StockRefresher = (*UseCase)(nil)

// UseCase administra listings y productos de canal y mantiene su stock agregado al día.
type UseCase struct {
	store     ports.Store
	ledger    *inventory.LedgerUseCase
	publisher ports.ChannelStockPublisher
	clock     clock.Clock
	log       *logger.Logger
	metrics   *telemetry.Metrics
}

// NewUseCase construye el caso de uso. publisher puede ser nil (no se publica).
func NewUseCase(
	store ports.Store,
	ledger *inventory.LedgerUseCase,
	publisher ports.ChannelStockPublisher,
	clk clock.Clock,
	log *logger.Logger,
	metrics *telemetry.Metrics,
) *UseCase {
	return &UseCase{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		clock:     clk,
		log:       log.Named("listing"),
		metrics:   metrics,
	}
}

// CreateListingInput datos para publicar un registro en una conexión de canal.
type CreateListingInput struct {
	MerchantID          string
	ChannelConnectionID string
	InventoryRecordID   string
	Price               decimal.Decimal
	AllocationMode      entity.AllocationMode
	AllocatedQuantity   int64
}

// CreateListing crea el listing en draft. Un dedicado valida la asignación contra el registro bloqueado.
func (uc *UseCase) CreateListing(ctx context.Context, in CreateListingInput) (*entity.Listing, error) {
	if in.MerchantID == "" || in.ChannelConnectionID == "" || in.InventoryRecordID == "" || in.Price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if in.AllocationMode == "" {
		in.AllocationMode = entity.AllocationShared
	}
	if in.AllocationMode != entity.AllocationShared && in.AllocationMode != entity.AllocationDedicated {
		return nil, domain.ErrInvalidInput
	}
	now := uc.clock.Now()
	l := &entity.Listing{
		ID:                  domain.NewID(),
		MerchantID:          in.MerchantID,
		ChannelConnectionID: in.ChannelConnectionID,
		InventoryRecordID:   in.InventoryRecordID,
		AllocationMode:      entity.AllocationShared,
		Price:               in.Price.Round(2),
		Status:              entity.ListingDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		rec, err := r.Records.GetForUpdate(ctx, in.InventoryRecordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("registro %s: %w", in.InventoryRecordID, domain.ErrNotFound)
		}
		if rec.MerchantID != in.MerchantID {
			return domain.ErrForbidden
		}
		l.SKU = rec.SKU
		if in.AllocationMode == entity.AllocationDedicated {
			if err := l.SetDedicated(in.AllocatedQuantity, now); err != nil {
				return err
			}
			if err := uc.checkEarmark(ctx, r, rec, l); err != nil {
				return err
			}
		}
		if err := r.Listings.Create(ctx, l); err != nil {
			return err
		}
		return uc.ledger.RefreshEarmarkInTx(ctx, r, rec)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("listing_id", l.ID).Str("record_id", l.InventoryRecordID).Str("mode", string(l.AllocationMode)).Msg("listing creado")
	return l, uc.RefreshRecords(ctx, l.InventoryRecordID)
}

// checkEarmark suma lo comprometido por los hermanos dedicados reemplazando al listing editado.
func (uc *UseCase) checkEarmark(ctx context.Context, r ports.Repos, rec *entity.InventoryRecord, edited *entity.Listing) error {
	siblings, err := r.Listings.ListByRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	total := edited.Earmarked()
	for _, s := range siblings {
		if s.ID != edited.ID {
			total += s.Earmarked()
		}
	}
	return inventory.CheckEarmarkInTx(rec, total)
}

// mutateListing bloquea registro y listing (en ese orden), aplica fn y refresca lo comprometido.
func (uc *UseCase) mutateListing(ctx context.Context, merchantID, listingID string, fn func(r ports.Repos, rec *entity.InventoryRecord, l *entity.Listing) error) (*entity.Listing, error) {
	cur, err := uc.store.Repos().Listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	if merchantID != "" && cur.MerchantID != merchantID {
		return nil, domain.ErrForbidden
	}
	var out *entity.Listing
	err = uc.store.Run(ctx, func(r ports.Repos) error {
		rec, err := r.Records.GetForUpdate(ctx, cur.InventoryRecordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("registro %s: %w", cur.InventoryRecordID, domain.ErrNotFound)
		}
		l, err := r.Listings.GetForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if l == nil {
			return domain.ErrNotFound
		}
		if err := fn(r, rec, l); err != nil {
			return err
		}
		if err := r.Listings.Update(ctx, l); err != nil {
			return err
		}
		out = l
		return uc.ledger.RefreshEarmarkInTx(ctx, r, rec)
	})
	if err != nil {
		return nil, err
	}
	return out, uc.RefreshRecords(ctx, out.InventoryRecordID)
}

// Activate publica el listing.
func (uc *UseCase) Activate(ctx context.Context, merchantID, listingID string) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(_ ports.Repos, _ *entity.InventoryRecord, l *entity.Listing) error {
		return l.Activate(uc.clock.Now())
	})
}

// Pause saca el listing de venta.
func (uc *UseCase) Pause(ctx context.Context, merchantID, listingID string) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(_ ports.Repos, _ *entity.InventoryRecord, l *entity.Listing) error {
		return l.Pause(uc.clock.Now())
	})
}

// UpdatePrice cambia el precio del listing.
func (uc *UseCase) UpdatePrice(ctx context.Context, merchantID, listingID string, price decimal.Decimal) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(_ ports.Repos, _ *entity.InventoryRecord, l *entity.Listing) error {
		return l.UpdatePrice(price, uc.clock.Now())
	})
}

// SetDedicated pasa a dedicado con allocated unidades; falla con OverAllocation si no cabe.
func (uc *UseCase) SetDedicated(ctx context.Context, merchantID, listingID string, allocated int64) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(r ports.Repos, rec *entity.InventoryRecord, l *entity.Listing) error {
		if err := l.SetDedicated(allocated, uc.clock.Now()); err != nil {
			return err
		}
		return uc.checkEarmark(ctx, r, rec, l)
	})
}

// SetShared pasa a compartido y libera el compromiso.
func (uc *UseCase) SetShared(ctx context.Context, merchantID, listingID string) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(_ ports.Repos, _ *entity.InventoryRecord, l *entity.Listing) error {
		l.SetShared(uc.clock.Now())
		return nil
	})
}

// AdjustAllocatedQuantity suma delta a la asignación dedicada.
func (uc *UseCase) AdjustAllocatedQuantity(ctx context.Context, merchantID, listingID string, delta int64) (*entity.Listing, error) {
	return uc.mutateListing(ctx, merchantID, listingID, func(r ports.Repos, rec *entity.InventoryRecord, l *entity.Listing) error {
		if err := l.AdjustAllocatedQuantity(delta, uc.clock.Now()); err != nil {
			return err
		}
		if delta <= 0 {
			return nil
		}
		return uc.checkEarmark(ctx, r, rec, l)
	})
}

// GetListing obtiene un listing del comerciante (merchantID vacío = plataforma).
func (uc *UseCase) GetListing(ctx context.Context, merchantID, listingID string) (*entity.Listing, error) {
	l, err := uc.store.Repos().Listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNotFound
	}
	if merchantID != "" && l.MerchantID != merchantID {
		return nil, domain.ErrForbidden
	}
	return l, nil
}

// ListListings lista los listings de un comerciante.
func (uc *UseCase) ListListings(ctx context.Context, merchantID string, limit, offset int) ([]*entity.Listing, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.store.Repos().Listings.ListByMerchant(ctx, merchantID, limit, offset)
}
