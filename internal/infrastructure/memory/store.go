// Package memory implementa la persistencia en memoria: tablas en mapas direccionadas por ID,
// bloqueo por llave (kmutex) retenido hasta el fin de la transacción y rollback por bitácora de deshacer.
// Se usa en desarrollo (STORE_DRIVER=memory) y como respaldo de las pruebas de casos de uso.
package memory

import (
	"context"
	"sync"

	"github.com/im7mortal/kmutex"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

var _ ports.Store = (*Store)(nil)

type tables struct {
	records         map[string]*entity.InventoryRecord
	recordKeys      map[entity.RecordKey]string
	transactions    map[string]*entity.InventoryTransaction
	txOrder         []string
	listings        map[string]*entity.Listing
	channelProducts map[string]*entity.ChannelProduct
	orders          map[string]*entity.Order
	fulfillments    map[string]*entity.Fulfillment
	outbound        map[string]*entity.OutboundOrder
	inbound         map[string]*entity.InboundOrder
	exceptions      map[string]*entity.InboundException
	warehouses      map[string]*entity.Warehouse
	products        map[string]*entity.Product
	sequences       map[string]int64
}

// Store persistencia en memoria segura para uso concurrente.
type Store struct {
	mu    sync.RWMutex // protege los mapas
	locks *kmutex.Kmutex
	t     tables
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		locks: kmutex.New(),
		t: tables{
			records:         map[string]*entity.InventoryRecord{},
			recordKeys:      map[entity.RecordKey]string{},
			transactions:    map[string]*entity.InventoryTransaction{},
			listings:        map[string]*entity.Listing{},
			channelProducts: map[string]*entity.ChannelProduct{},
			orders:          map[string]*entity.Order{},
			fulfillments:    map[string]*entity.Fulfillment{},
			outbound:        map[string]*entity.OutboundOrder{},
			inbound:         map[string]*entity.InboundOrder{},
			exceptions:      map[string]*entity.InboundException{},
			warehouses:      map[string]*entity.Warehouse{},
			products:        map[string]*entity.Product{},
			sequences:       map[string]int64{},
		},
	}
}

// tx estado de una transacción: llaves bloqueadas y bitácora de deshacer.
// nil = fuera de transacción (sin bloqueos ni rollback).
type tx struct {
	s    *Store
	held map[string]struct{}
	undo []func()
}

// lock toma la llave una sola vez por transacción (reentrante).
func (t *tx) lock(key string) {
	if t == nil {
		return
	}
	if _, ok := t.held[key]; ok {
		return
	}
	t.s.locks.Lock(key)
	t.held[key] = struct{}{}
}

func (t *tx) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) release() {
	for key := range t.held {
		t.s.locks.Unlock(key)
	}
	t.held = nil
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.undo = nil
}

// Run ejecuta fn con repos atados a una transacción. Error → se deshacen las escrituras.
func (s *Store) Run(ctx context.Context, fn func(r ports.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{s: s, held: map[string]struct{}{}}
	defer t.release()
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()
	if err = fn(s.repos(t)); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Repos devuelve repos fuera de transacción (lecturas y escrituras sueltas).
func (s *Store) Repos() ports.Repos {
	return s.repos(nil)
}

func (s *Store) repos(t *tx) ports.Repos {
	return ports.Repos{
		Records:         &recordRepo{s: s, tx: t},
		Transactions:    &transactionRepo{s: s, tx: t},
		Listings:        &listingRepo{s: s, tx: t},
		ChannelProducts: &channelProductRepo{s: s, tx: t},
		Orders:          &orderRepo{s: s, tx: t},
		Fulfillments:    &fulfillmentRepo{s: s, tx: t},
		Outbound:        &outboundRepo{s: s, tx: t},
		Inbound:         &inboundRepo{s: s, tx: t},
		Exceptions:      &exceptionRepo{s: s, tx: t},
		Warehouses:      &warehouseRepo{s: s, tx: t},
		Products:        &productRepo{s: s, tx: t},
		Sequences:       &sequenceRepo{s: s},
	}
}

// put guarda v en m[id] registrando cómo deshacerlo. Debe llamarse con s.mu tomado.
func put[T any](t *tx, m map[string]*T, id string, v *T) {
	prev, existed := m[id]
	m[id] = v
	t.onRollback(func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
