package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo catálogo de SKUs por comerciante.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Upsert inserta o actualiza nombre e imagen por (comerciante, SKU).
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, merchant_id, sku, name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (merchant_id, sku)
		DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, p.ID, p.MerchantID, p.SKU, p.Name, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetBySKU obtiene la ficha de un SKU del comerciante; (nil, nil) si no existe.
func (r *ProductRepo) GetBySKU(ctx context.Context, merchantID, sku string) (*entity.Product, error) {
	query := `
		SELECT id, merchant_id, sku, name, image_url, created_at, updated_at
		FROM products WHERE merchant_id = $1 AND sku = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, merchantID, sku).Scan(
		&p.ID, &p.MerchantID, &p.SKU, &p.Name, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
