package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Taxonomía del libro de inventario y de la orquestación.
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOverRelease       = errors.New("liberación mayor a lo reservado")
	ErrOverShip          = errors.New("despacho mayor a lo reservado")
	ErrOverAllocation    = errors.New("asignación dedicada mayor al stock disponible")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrSyncFailure       = errors.New("falló la sincronización con el WMS")
)

// Buckets es una foto de los cuatro baldes de un registro de inventario.
type Buckets struct {
	InTransit int64 `json:"in_transit"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Damaged   int64 `json:"damaged"`
}

// StockError envuelve un error de la taxonomía de stock con el contexto necesario
// para logging y alertas: registro, operación, cantidad intentada y baldes actuales.
type StockError struct {
	Err       error
	Op        string
	RecordID  string
	Attempted int64
	Buckets   Buckets
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %v (registro=%s cantidad=%d en_transito=%d disponible=%d reservado=%d dañado=%d)",
		e.Op, e.Err, e.RecordID, e.Attempted,
		e.Buckets.InTransit, e.Buckets.Available, e.Buckets.Reserved, e.Buckets.Damaged)
}

func (e *StockError) Unwrap() error { return e.Err }

// TransitionError indica que se invocó una acción desde un estado que no la permite.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: no se puede %s desde el estado %q", e.Entity, e.ID, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewTransitionError construye un TransitionError.
func NewTransitionError(entity, id, from, action string) error {
	return &TransitionError{Entity: entity, ID: id, From: from, Action: action}
}
