package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/application/dto"
	"github.com/jhoicas/marketplace-ledger/internal/application/usecase"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/memory"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func TestWarehouseCreate_TypeRules(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewWarehouseUseCase(memory.NewStore().Repos().Warehouses, testclock.NewClock(t0))

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG-1", Name: "Bogotá", Type: "platform", MerchantID: "m1"})
	require.NoError(t, err)
	assert.Empty(t, w.MerchantID, "las bodegas de plataforma no llevan comerciante")

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "M-1", Name: "Propia", Type: "merchant"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "X-1", Name: "Otra", Type: "virtual"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG-1", Name: "Duplicada", Type: "platform"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := uc.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "BOG-1", got.Code)

	_, err = uc.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := uc.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestProductUpsert_KeepsIdentity(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(t0)
	uc := usecase.NewProductUseCase(memory.NewStore().Repos().Products, clk)

	first, err := uc.Upsert(ctx, "m1", dto.UpsertProductRequest{SKU: "SKU-1", Name: "Camiseta"})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	second, err := uc.Upsert(ctx, "m1", dto.UpsertProductRequest{SKU: "SKU-1", Name: "Camiseta azul", ImageURL: "https://img/1.png"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Camiseta azul", second.Name)
	assert.True(t, second.UpdatedAt.After(second.CreatedAt))

	_, err = uc.Upsert(ctx, "", dto.UpsertProductRequest{SKU: "SKU-1", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.GetBySKU(ctx, "m2", "SKU-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
