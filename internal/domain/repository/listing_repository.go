package repository

import (
	"context"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// ListingRepository puerto de persistencia de listings.
type ListingRepository interface {
	Create(ctx context.Context, l *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Listing, error)
	Update(ctx context.Context, l *entity.Listing) error
	ListByRecord(ctx context.Context, recordID string) ([]*entity.Listing, error)
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*entity.Listing, error)
}

// ChannelProductRepository puerto de persistencia de productos de canal y sus fuentes.
// Create y GetByID incluyen las fuentes; Update solo toca la cabecera.
type ChannelProductRepository interface {
	Create(ctx context.Context, cp *entity.ChannelProduct) error
	GetByID(ctx context.Context, id string) (*entity.ChannelProduct, error)
	GetForUpdate(ctx context.Context, id string) (*entity.ChannelProduct, error)
	GetByChannelSKU(ctx context.Context, channelID, sku string) (*entity.ChannelProduct, error)
	Update(ctx context.Context, cp *entity.ChannelProduct) error
	AddSource(ctx context.Context, src *entity.ChannelProductSource) error
	UpdateSource(ctx context.Context, src *entity.ChannelProductSource) error
	IncrementSourceSold(ctx context.Context, sourceID string, delta int64) error
	ListByListing(ctx context.Context, listingID string) ([]*entity.ChannelProduct, error)
	ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]*entity.ChannelProduct, error)
}
