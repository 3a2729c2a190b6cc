package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción en memoria.
type TxRunner struct {
	s *Store
}

// Run ejecuta fn con repos atados a la tx; confirma si fn devuelve nil y ctx sigue vivo.
// Los bloqueos se liberan siempre al salir.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(r.s)
	defer t.release()

	if err := fn(ctx, reposFor(r.s, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

type statusChange struct {
	status string
	notes  string
	at     time.Time
}

// memTx estado pendiente de una transacción.
type memTx struct {
	s     *Store
	held  map[string]struct{}
	order []string

	stock        map[entity.StockKey]*entity.StockRecord
	movements    []*entity.StockMovement
	sales        map[string]*entity.Sale
	saleStatus   map[string]statusChange
	orders       map[string]*entity.PurchaseOrder
	createdOrder map[string]struct{}
	deleted      map[string]struct{}
	seq          map[string]int
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:            s,
		held:         make(map[string]struct{}),
		stock:        make(map[entity.StockKey]*entity.StockRecord),
		sales:        make(map[string]*entity.Sale),
		saleStatus:   make(map[string]statusChange),
		orders:       make(map[string]*entity.PurchaseOrder),
		createdOrder: make(map[string]struct{}),
		deleted:      make(map[string]struct{}),
		seq:          make(map[string]int),
	}
}

// lock es reentrante dentro de la misma tx.
func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *memTx) holds(key string) bool {
	_, ok := t.held[key]
	return ok
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
	t.held = map[string]struct{}{}
}

// commit valida las mismas restricciones que la base de datos y aplica todo bajo el mutex del Store.
func (t *memTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range t.stock {
		if rec.Quantity < 0 {
			return fmt.Errorf("memory: cantidad negativa en %s", key)
		}
	}
	for _, m := range t.movements {
		if m.NewQuantity != m.PreviousQuantity+m.QuantityDelta {
			return fmt.Errorf("memory: movimiento inconsistente %s", m.ID)
		}
	}
	for id, sale := range t.sales {
		if owner, ok := s.invoices[sale.InvoiceNumber]; ok && owner != id {
			return &domain.DuplicateReferenceError{Kind: "factura", Value: sale.InvoiceNumber}
		}
	}
	for id := range t.createdOrder {
		po, ok := t.orders[id]
		if !ok {
			continue
		}
		if owner, ok := s.poNumbers[po.PONumber]; ok && owner != id {
			return &domain.DuplicateReferenceError{Kind: "orden de compra", Value: po.PONumber}
		}
	}

	for key, rec := range t.stock {
		s.stock[key] = rec
	}
	for _, m := range t.movements {
		s.nextSeq++
		m.Seq = s.nextSeq
		stored := *m
		s.movements = append(s.movements, &stored)
		k := stored.Key()
		s.byPair[k] = append(s.byPair[k], len(s.movements)-1)
	}
	for id, sale := range t.sales {
		s.sales[id] = sale
		s.invoices[sale.InvoiceNumber] = id
	}
	for id, ch := range t.saleStatus {
		if sale, ok := s.sales[id]; ok {
			sale.Status = ch.status
			sale.Notes = ch.notes
			sale.UpdatedAt = ch.at
		}
	}
	for id := range t.deleted {
		if po, ok := s.orders[id]; ok {
			delete(s.poNumbers, po.PONumber)
			delete(s.orders, id)
		}
	}
	for id, po := range t.orders {
		s.orders[id] = po
		s.poNumbers[po.PONumber] = id
	}
	for k, v := range t.seq {
		s.sequences[k] = v
	}
	return nil
}
