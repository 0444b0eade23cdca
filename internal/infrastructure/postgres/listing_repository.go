package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var (
	_ repository.ListingRepository        = (*ListingRepo)(nil)
	_ repository.ChannelProductRepository = (*ChannelProductRepo)(nil)
)

// ListingRepo implementación de ListingRepository sobre PostgreSQL.
type ListingRepo struct {
	q Querier
}

// NewListingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewListingRepository(q Querier) *ListingRepo {
	return &ListingRepo{q: q}
}

const listingColumns = `id, merchant_id, channel_connection_id, inventory_record_id, sku, allocation_mode,
	allocated_quantity, sold_quantity, price, status, created_at, updated_at`

func scanListing(s scanner) (*entity.Listing, error) {
	var l entity.Listing
	err := s.Scan(&l.ID, &l.MerchantID, &l.ChannelConnectionID, &l.InventoryRecordID, &l.SKU, &l.AllocationMode,
		&l.AllocatedQuantity, &l.SoldQuantity, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *ListingRepo) Create(ctx context.Context, l *entity.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query, l.ID, l.MerchantID, l.ChannelConnectionID, l.InventoryRecordID, l.SKU,
		l.AllocationMode, l.AllocatedQuantity, l.SoldQuantity, l.Price, l.Status, l.CreatedAt, l.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *ListingRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Listing, error) {
	l, err := noRows(scanListing(r.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE `+where, args...)))
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *ListingRepo) GetForUpdate(ctx context.Context, id string) (*entity.Listing, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *ListingRepo) Update(ctx context.Context, l *entity.Listing) error {
	query := `
		UPDATE listings SET allocation_mode = $2, allocated_quantity = $3, sold_quantity = $4,
			price = $5, status = $6, updated_at = $7
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, l.ID, l.AllocationMode, l.AllocatedQuantity, l.SoldQuantity,
		l.Price, l.Status, l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update listing %s: %w", l.ID, err)
	}
	return nil
}

func (r *ListingRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Listing, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()
	var list []*entity.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *ListingRepo) ListByRecord(ctx context.Context, recordID string) ([]*entity.Listing, error) {
	return r.list(ctx, `SELECT `+listingColumns+` FROM listings WHERE inventory_record_id = $1 ORDER BY id`, recordID)
}

func (r *ListingRepo) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*entity.Listing, error) {
	return r.list(ctx, `SELECT `+listingColumns+` FROM listings WHERE merchant_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		merchantID, limitArg(limit), offset)
}

// ChannelProductRepo productos de canal con sus fuentes.
type ChannelProductRepo struct {
	q Querier
}

// NewChannelProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewChannelProductRepository(q Querier) *ChannelProductRepo {
	return &ChannelProductRepo{q: q}
}

const channelProductColumns = `id, channel_id, sku, title, price, stock_mode, fixed_quantity, safety_buffer,
	stock_quantity, created_at, updated_at`

const sourceColumns = `id, channel_product_id, listing_id, priority, is_active, sold_quantity, created_at`

func scanChannelProduct(s scanner) (*entity.ChannelProduct, error) {
	var cp entity.ChannelProduct
	err := s.Scan(&cp.ID, &cp.ChannelID, &cp.SKU, &cp.Title, &cp.Price, &cp.StockMode, &cp.FixedQuantity,
		&cp.SafetyBuffer, &cp.StockQuantity, &cp.CreatedAt, &cp.UpdatedAt)
	return &cp, err
}

func (r *ChannelProductRepo) Create(ctx context.Context, cp *entity.ChannelProduct) error {
	query := `
		INSERT INTO channel_products (` + channelProductColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, cp.ID, cp.ChannelID, cp.SKU, cp.Title, cp.Price, cp.StockMode, cp.FixedQuantity,
		cp.SafetyBuffer, cp.StockQuantity, cp.CreatedAt, cp.UpdatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("create channel product: %w", err)
	}
	for i := range cp.Sources {
		src := cp.Sources[i]
		src.ChannelProductID = cp.ID
		if err := r.AddSource(ctx, &src); err != nil {
			return err
		}
	}
	return nil
}

// withSources carga las fuentes de los productos dados en una sola consulta.
func (r *ChannelProductRepo) withSources(ctx context.Context, list []*entity.ChannelProduct) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.ChannelProduct, len(list))
	for i, cp := range list {
		ids[i] = cp.ID
		byID[cp.ID] = cp
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+sourceColumns+` FROM channel_product_sources
		WHERE channel_product_id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("list channel product sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s entity.ChannelProductSource
		if err := rows.Scan(&s.ID, &s.ChannelProductID, &s.ListingID, &s.Priority, &s.IsActive,
			&s.SoldQuantity, &s.CreatedAt); err != nil {
			return fmt.Errorf("scan channel product source: %w", err)
		}
		if cp, ok := byID[s.ChannelProductID]; ok {
			cp.Sources = append(cp.Sources, s)
		}
	}
	return rows.Err()
}

func (r *ChannelProductRepo) getOne(ctx context.Context, where string, args ...any) (*entity.ChannelProduct, error) {
	cp, err := noRows(scanChannelProduct(r.q.QueryRow(ctx, `SELECT `+channelProductColumns+` FROM channel_products WHERE `+where, args...)))
	if err != nil {
		return nil, fmt.Errorf("get channel product: %w", err)
	}
	if cp == nil {
		return nil, nil
	}
	if err := r.withSources(ctx, []*entity.ChannelProduct{cp}); err != nil {
		return nil, err
	}
	return cp, nil
}

func (r *ChannelProductRepo) GetByID(ctx context.Context, id string) (*entity.ChannelProduct, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *ChannelProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.ChannelProduct, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *ChannelProductRepo) GetByChannelSKU(ctx context.Context, channelID, sku string) (*entity.ChannelProduct, error) {
	return r.getOne(ctx, `channel_id = $1 AND sku = $2`, channelID, sku)
}

// Update reescribe la cabecera; las fuentes se tocan con AddSource/UpdateSource.
func (r *ChannelProductRepo) Update(ctx context.Context, cp *entity.ChannelProduct) error {
	query := `
		UPDATE channel_products SET title = $2, price = $3, stock_mode = $4, fixed_quantity = $5,
			safety_buffer = $6, stock_quantity = $7, updated_at = $8
		WHERE id = $1`
	err := mustAffect(r.q.Exec(ctx, query, cp.ID, cp.Title, cp.Price, cp.StockMode, cp.FixedQuantity,
		cp.SafetyBuffer, cp.StockQuantity, cp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update channel product %s: %w", cp.ID, err)
	}
	return nil
}

func (r *ChannelProductRepo) AddSource(ctx context.Context, src *entity.ChannelProductSource) error {
	query := `
		INSERT INTO channel_product_sources (` + sourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, src.ID, src.ChannelProductID, src.ListingID, src.Priority, src.IsActive,
		src.SoldQuantity, src.CreatedAt)
	if err := insertErr(err); err != nil {
		return fmt.Errorf("add channel product source: %w", err)
	}
	return nil
}

// UpdateSource reescribe prioridad y estado; sold_quantity solo cambia por IncrementSourceSold.
func (r *ChannelProductRepo) UpdateSource(ctx context.Context, src *entity.ChannelProductSource) error {
	err := mustAffect(r.q.Exec(ctx,
		`UPDATE channel_product_sources SET priority = $2, is_active = $3 WHERE id = $1`,
		src.ID, src.Priority, src.IsActive))
	if err != nil {
		return fmt.Errorf("update channel product source %s: %w", src.ID, err)
	}
	return nil
}

// IncrementSourceSold suma delta con piso en 0; la fila queda bloqueada por el UPDATE.
func (r *ChannelProductRepo) IncrementSourceSold(ctx context.Context, sourceID string, delta int64) error {
	err := mustAffect(r.q.Exec(ctx,
		`UPDATE channel_product_sources SET sold_quantity = GREATEST(0, sold_quantity + $2) WHERE id = $1`,
		sourceID, delta))
	if err != nil {
		return fmt.Errorf("increment source sold %s: %w", sourceID, err)
	}
	return nil
}

func (r *ChannelProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ChannelProduct, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channel products: %w", err)
	}
	var list []*entity.ChannelProduct
	for rows.Next() {
		cp, err := scanChannelProduct(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan channel product: %w", err)
		}
		list = append(list, cp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.withSources(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ChannelProductRepo) ListByListing(ctx context.Context, listingID string) ([]*entity.ChannelProduct, error) {
	return r.list(ctx, `
		SELECT `+channelProductColumns+` FROM channel_products cp
		WHERE EXISTS (SELECT 1 FROM channel_product_sources s WHERE s.channel_product_id = cp.id AND s.listing_id = $1)
		ORDER BY id`, listingID)
}

func (r *ChannelProductRepo) ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]*entity.ChannelProduct, error) {
	return r.list(ctx, `
		SELECT `+channelProductColumns+` FROM channel_products
		WHERE ($1 = '' OR channel_id = $1)
		ORDER BY id LIMIT $2 OFFSET $3`, channelID, limitArg(limit), offset)
}
