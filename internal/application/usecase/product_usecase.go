package usecase

import (
	"context"
	"strings"

	"github.com/juju/clock"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
	"github.com/jhoicas/marketplace-ledger/internal/domain/repository"
)

// ProductUseCase mantiene la ficha de catálogo de los SKUs de cada comerciante.
// El libro no depende de ella; solo alimenta el snapshot de los documentos de salida.
type ProductUseCase struct {
	repo  repository.ProductRepository
	clock clock.Clock
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, clk clock.Clock) *ProductUseCase {
	return &ProductUseCase{repo: repo, clock: clk}
}

// Upsert crea o reemplaza la ficha (comerciante, SKU).
func (uc *ProductUseCase) Upsert(ctx context.Context, merchantID string, in dto.UpsertProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	if merchantID == "" || sku == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.clock.Now()
	p, err := uc.repo.GetBySKU(ctx, merchantID, sku)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &entity.Product{ID: domain.NewID(), MerchantID: merchantID, SKU: sku, CreatedAt: now}
	}
	p.Name = strings.TrimSpace(in.Name)
	p.ImageURL = in.ImageURL
	p.UpdatedAt = now
	if err := uc.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return dto.ToProductResponse(p), nil
}

// GetBySKU obtiene la ficha del comerciante.
func (uc *ProductUseCase) GetBySKU(ctx context.Context, merchantID, sku string) (*dto.ProductResponse, error) {
	p, err := uc.repo.GetBySKU(ctx, merchantID, sku)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToProductResponse(p), nil
}
