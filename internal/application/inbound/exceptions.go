package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain"
	"github.com/jhoicas/marketplace-ledger/internal/domain/docnumber"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func (uc *UseCase) newException(ctx context.Context, r ports.Repos, inboundID, itemID string, t entity.ExceptionType, qty int64, desc string, now time.Time) (*entity.InboundException, error) {
	no, err := docnumber.Next(ctx, r.Sequences, docnumber.PrefixException, now)
	if err != nil {
		return nil, err
	}
	e := &entity.InboundException{
		ID:                 domain.NewID(),
		ExceptionNo:        no,
		InboundOrderID:     inboundID,
		InboundOrderItemID: itemID,
		Type:               t,
		Status:             entity.ExceptionPending,
		Quantity:           qty,
		Description:        desc,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.Exceptions.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateExceptionInput novedad registrada a mano (calidad, empaque, vencido, etc.).
type CreateExceptionInput struct {
	InboundOrderID     string
	InboundOrderItemID string
	Type               entity.ExceptionType
	Quantity           int64
	Description        string
}

// CreateException registra una novedad manual. No toca el libro.
func (uc *UseCase) CreateException(ctx context.Context, in CreateExceptionInput) (*entity.InboundException, error) {
	if !in.Type.Valid() || in.Quantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.InboundException
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		o, err := r.Inbound.GetByID(ctx, in.InboundOrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrNotFound
		}
		if in.InboundOrderItemID != "" {
			if _, ok := o.Item(in.InboundOrderItemID); !ok {
				return fmt.Errorf("línea %s: %w", in.InboundOrderItemID, domain.ErrNotFound)
			}
		}
		out, err = uc.newException(ctx, r, o.ID, in.InboundOrderItemID, in.Type, in.Quantity, in.Description, uc.clock.Now())
		return err
	})
	return out, err
}

func (uc *UseCase) mutateException(ctx context.Context, id string, fn func(e *entity.InboundException, now time.Time) error) (*entity.InboundException, error) {
	var out *entity.InboundException
	err := uc.store.Run(ctx, func(r ports.Repos) error {
		e, err := r.Exceptions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrNotFound
		}
		if err := fn(e, uc.clock.Now()); err != nil {
			return err
		}
		out = e
		return r.Exceptions.Update(ctx, e)
	})
	return out, err
}

// StartException pending → processing.
func (uc *UseCase) StartException(ctx context.Context, id string) (*entity.InboundException, error) {
	return uc.mutateException(ctx, id, func(e *entity.InboundException, now time.Time) error {
		return e.StartProcessing(now)
	})
}

// ResolveException processing → resolved.
func (uc *UseCase) ResolveException(ctx context.Context, id string, res entity.Resolution, note string) (*entity.InboundException, error) {
	return uc.mutateException(ctx, id, func(e *entity.InboundException, now time.Time) error {
		return e.Resolve(res, note, now)
	})
}

// CloseException pending|processing → closed.
func (uc *UseCase) CloseException(ctx context.Context, id, note string) (*entity.InboundException, error) {
	return uc.mutateException(ctx, id, func(e *entity.InboundException, now time.Time) error {
		return e.Close(note, now)
	})
}

// GetException obtiene una novedad.
func (uc *UseCase) GetException(ctx context.Context, id string) (*entity.InboundException, error) {
	e, err := uc.store.Repos().Exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// ListExceptions lista novedades por estado, o las de un documento si inboundOrderID no está vacío.
func (uc *UseCase) ListExceptions(ctx context.Context, inboundOrderID string, status entity.ExceptionStatus, limit, offset int) ([]*entity.InboundException, error) {
	if inboundOrderID != "" {
		return uc.store.Repos().Exceptions.ListByInbound(ctx, inboundOrderID)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.store.Repos().Exceptions.List(ctx, status, limit, offset)
}
