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

// WarehouseUseCase registro de bodegas (plataforma o de comerciante).
type WarehouseUseCase struct {
	repo  repository.WarehouseRepository
	clock clock.Clock
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(repo repository.WarehouseRepository, clk clock.Clock) *WarehouseUseCase {
	return &WarehouseUseCase{repo: repo, clock: clk}
}

// Create registra una bodega. Las de comerciante exigen merchant_id; las de plataforma no lo llevan.
func (uc *WarehouseUseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	code := strings.TrimSpace(in.Code)
	typ := entity.WarehouseType(in.Type)
	if code == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	switch typ {
	case entity.WarehousePlatform:
		in.MerchantID = ""
	case entity.WarehouseMerchant:
		if in.MerchantID == "" {
			return nil, domain.ErrInvalidInput
		}
	default:
		return nil, domain.ErrInvalidInput
	}
	now := uc.clock.Now()
	w := &entity.Warehouse{
		ID:         domain.NewID(),
		Code:       code,
		Name:       strings.TrimSpace(in.Name),
		Type:       typ,
		MerchantID: in.MerchantID,
		Address:    in.Address,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return dto.ToWarehouseResponse(w), nil
}

// GetByID obtiene una bodega por ID.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToWarehouseResponse(w), nil
}

// List lista bodegas con paginación.
func (uc *WarehouseUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.WarehouseListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *dto.ToWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}
