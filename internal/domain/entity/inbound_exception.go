package entity

import (
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/domain"
)

// ExceptionType tipo de novedad de recepción.
type ExceptionType string

const (
	ExceptionQuantityShort ExceptionType = "quantity_short"
	ExceptionQuantityOver  ExceptionType = "quantity_over"
	ExceptionDamaged       ExceptionType = "damaged"
	ExceptionWrongItem     ExceptionType = "wrong_item"
	ExceptionQualityIssue  ExceptionType = "quality_issue"
	ExceptionPackaging     ExceptionType = "packaging"
	ExceptionExpired       ExceptionType = "expired"
	ExceptionOther         ExceptionType = "other"
)

// Valid indica si el tipo es conocido.
func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionQuantityShort, ExceptionQuantityOver, ExceptionDamaged, ExceptionWrongItem,
		ExceptionQualityIssue, ExceptionPackaging, ExceptionExpired, ExceptionOther:
		return true
	}
	return false
}

// ExceptionStatus estado de la novedad.
type ExceptionStatus string

const (
	ExceptionPending    ExceptionStatus = "pending"
	ExceptionProcessing ExceptionStatus = "processing"
	ExceptionResolved   ExceptionStatus = "resolved"
	ExceptionClosed     ExceptionStatus = "closed"
)

// Resolution cómo se resolvió la novedad.
type Resolution string

const (
	ResolutionAccept        Resolution = "accept"
	ResolutionReject        Resolution = "reject"
	ResolutionClaim         Resolution = "claim"
	ResolutionRecount       Resolution = "recount"
	ResolutionPartialAccept Resolution = "partial_accept"
)

// Valid indica si la resolución es conocida.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionAccept, ResolutionReject, ResolutionClaim, ResolutionRecount, ResolutionPartialAccept:
		return true
	}
	return false
}

// InboundException registro paralelo de conciliación; nunca bloquea el libro.
type InboundException struct {
	ID                 string
	ExceptionNo        string
	InboundOrderID     string
	InboundOrderItemID string
	Type               ExceptionType
	Status             ExceptionStatus
	Quantity           int64
	Description        string
	Resolution         Resolution
	ResolutionNote     string
	ResolvedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (e *InboundException) transitionErr(action string) error {
	return domain.NewTransitionError("novedad", e.ID, string(e.Status), action)
}

// StartProcessing pending → processing.
func (e *InboundException) StartProcessing(now time.Time) error {
	if e.Status != ExceptionPending {
		return e.transitionErr("procesar")
	}
	e.Status = ExceptionProcessing
	e.UpdatedAt = now
	return nil
}

// Resolve processing → resolved.
func (e *InboundException) Resolve(res Resolution, note string, now time.Time) error {
	if !res.Valid() {
		return domain.ErrInvalidInput
	}
	if e.Status != ExceptionProcessing {
		return e.transitionErr("resolver")
	}
	e.Status = ExceptionResolved
	e.Resolution = res
	e.ResolutionNote = note
	e.ResolvedAt = &now
	e.UpdatedAt = now
	return nil
}

// Close pending|processing → closed sin resolución.
func (e *InboundException) Close(note string, now time.Time) error {
	switch e.Status {
	case ExceptionPending, ExceptionProcessing:
		e.Status = ExceptionClosed
		e.ResolutionNote = note
		e.ResolvedAt = &now
		e.UpdatedAt = now
		return nil
	default:
		return e.transitionErr("cerrar")
	}
}
