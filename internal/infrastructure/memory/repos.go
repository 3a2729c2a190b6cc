package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var (
	_ repository.StockRepository         = (*stockRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
	_ repository.SaleRepository          = (*saleRepo)(nil)
	_ repository.PurchaseOrderRepository = (*orderRepo)(nil)
	_ repository.SequenceRepository      = (*sequenceRepo)(nil)
)

// reposFor construye los repos; tx nil significa vista de solo lectura del estado confirmado.
func reposFor(s *Store, tx *memTx) repository.TxRepos {
	return repository.TxRepos{
		Stock:     &stockRepo{s: s, tx: tx},
		Movements: &movementRepo{s: s, tx: tx},
		Sales:     &saleRepo{s: s, tx: tx},
		Orders:    &orderRepo{s: s, tx: tx},
		Sequences: &sequenceRepo{s: s, tx: tx},
	}
}

func stockLockKey(k entity.StockKey) string { return "stock:" + k.String() }

// ─── Stock ───────────────────────────────────────────────────────────────────

type stockRepo struct {
	s  *Store
	tx *memTx
}

func (r *stockRepo) Get(_ context.Context, productID, branchID string) (*entity.StockRecord, error) {
	key := entity.StockKey{ProductID: productID, BranchID: branchID}
	if r.tx != nil {
		if rec, ok := r.tx.stock[key]; ok {
			return rec.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.stock[key].Clone(), nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, productID, branchID string) (*entity.StockRecord, error) {
	if r.tx == nil {
		return nil, errReadOnly
	}
	key := entity.StockKey{ProductID: productID, BranchID: branchID}
	if err := r.tx.lock(ctx, stockLockKey(key)); err != nil {
		return nil, err
	}
	r.s.pause()
	rec, _ := r.Get(ctx, productID, branchID)
	if rec == nil {
		// creación perezosa: la fila en cero queda pendiente igual que el INSERT ... ON CONFLICT DO NOTHING
		rec = entity.NewStockRecord(productID, branchID)
		rec.UpdatedAt = time.Now()
		r.tx.stock[key] = rec.Clone()
	}
	return rec, nil
}

func (r *stockRepo) Save(_ context.Context, rec *entity.StockRecord) error {
	if r.tx == nil {
		return errReadOnly
	}
	key := entity.StockKey{ProductID: rec.ProductID, BranchID: rec.BranchID}
	if !r.tx.holds(stockLockKey(key)) {
		return domain.ErrConflict
	}
	r.tx.stock[key] = rec.Clone()
	return nil
}

func (r *stockRepo) snapshot(match func(*entity.StockRecord) bool) []*entity.StockRecord {
	merged := make(map[entity.StockKey]*entity.StockRecord)
	r.s.mu.RLock()
	for k, rec := range r.s.stock {
		if match(rec) {
			merged[k] = rec.Clone()
		}
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, rec := range r.tx.stock {
			if match(rec) {
				merged[k] = rec.Clone()
			}
		}
	}
	out := make([]*entity.StockRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return entity.StockKey{ProductID: out[i].ProductID, BranchID: out[i].BranchID}.
			Less(entity.StockKey{ProductID: out[j].ProductID, BranchID: out[j].BranchID})
	})
	return out
}

func (r *stockRepo) ListByBranch(_ context.Context, branchID string, lowStockOnly bool, limit, offset int) ([]*entity.StockRecord, error) {
	out := r.snapshot(func(rec *entity.StockRecord) bool {
		return rec.BranchID == branchID && (!lowStockOnly || rec.IsLowStock)
	})
	return paginate(out, limit, offset), nil
}

func (r *stockRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockRecord, error) {
	return r.snapshot(func(rec *entity.StockRecord) bool { return rec.ProductID == productID }), nil
}

// ─── Movimientos ─────────────────────────────────────────────────────────────

type movementRepo struct {
	s  *Store
	tx *memTx
}

func (r *movementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	if r.tx == nil {
		return errReadOnly
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	r.tx.movements = append(r.tx.movements, m)
	return nil
}

func (r *movementRepo) ListByPair(_ context.Context, productID, branchID string) ([]*entity.StockMovement, error) {
	key := entity.StockKey{ProductID: productID, BranchID: branchID}
	r.s.mu.RLock()
	idx := r.s.byPair[key]
	out := make([]*entity.StockMovement, 0, len(idx))
	for _, i := range idx {
		m := *r.s.movements[i]
		out = append(out, &m)
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, pending := range r.tx.movements {
			if pending.Key() == key {
				m := *pending
				out = append(out, &m)
			}
		}
	}
	return out, nil
}

func (r *movementRepo) Last(ctx context.Context, productID, branchID string) (*entity.StockMovement, error) {
	list, err := r.ListByPair(ctx, productID, branchID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[len(list)-1], nil
}

// List devuelve los movimientos más recientes primero.
func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	r.s.mu.RLock()
	all := make([]*entity.StockMovement, 0, len(r.s.movements))
	for _, m := range r.s.movements {
		c := *m
		all = append(all, &c)
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, m := range r.tx.movements {
			c := *m
			all = append(all, &c)
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if matchMovement(all[i], f) {
			out = append(out, all[i])
		}
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func matchMovement(m *entity.StockMovement, f repository.MovementFilter) bool {
	switch {
	case f.ProductID != "" && m.ProductID != f.ProductID,
		f.BranchID != "" && m.BranchID != f.BranchID,
		f.Type != "" && m.Type != f.Type,
		f.ReferenceType != "" && m.ReferenceType != f.ReferenceType,
		f.ReferenceID != "" && m.ReferenceID != f.ReferenceID,
		f.From != nil && m.CreatedAt.Before(*f.From),
		f.To != nil && m.CreatedAt.After(*f.To):
		return false
	}
	return true
}

// ─── Ventas ──────────────────────────────────────────────────────────────────

type saleRepo struct {
	s  *Store
	tx *memTx
}

func cloneSale(s *entity.Sale) *entity.Sale {
	c := *s
	c.Items = append([]entity.SaleItem(nil), s.Items...)
	return &c
}

func (r *saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	if r.tx == nil {
		return errReadOnly
	}
	r.s.mu.RLock()
	_, taken := r.s.invoices[sale.InvoiceNumber]
	r.s.mu.RUnlock()
	for _, pending := range r.tx.sales {
		if pending.InvoiceNumber == sale.InvoiceNumber {
			taken = true
		}
	}
	if taken {
		return &domain.DuplicateReferenceError{Kind: "factura", Value: sale.InvoiceNumber}
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	r.tx.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (r *saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	var out *entity.Sale
	if r.tx != nil {
		if pending, ok := r.tx.sales[id]; ok {
			out = cloneSale(pending)
		}
	}
	if out == nil {
		r.s.mu.RLock()
		if committed, ok := r.s.sales[id]; ok {
			out = cloneSale(committed)
		}
		r.s.mu.RUnlock()
	}
	if out == nil {
		return nil, nil
	}
	if r.tx != nil {
		if ch, ok := r.tx.saleStatus[id]; ok {
			out.Status, out.Notes, out.UpdatedAt = ch.status, ch.notes, ch.at
		}
	}
	return out, nil
}

func (r *saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	if r.tx == nil {
		return nil, errReadOnly
	}
	if err := r.tx.lock(ctx, "sale:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *saleRepo) UpdateStatus(ctx context.Context, id, status, notes string, at time.Time) error {
	if r.tx == nil {
		return errReadOnly
	}
	current, _ := r.GetByID(ctx, id)
	if current == nil {
		return &domain.NotFoundError{Entity: "venta", ID: id}
	}
	if pending, ok := r.tx.sales[id]; ok {
		pending.Status, pending.Notes, pending.UpdatedAt = status, notes, at
		return nil
	}
	r.tx.saleStatus[id] = statusChange{status: status, notes: notes, at: at}
	return nil
}

func (r *saleRepo) ListByBranch(_ context.Context, branchID string, day *time.Time, limit, offset int) ([]*entity.Sale, error) {
	r.s.mu.RLock()
	out := make([]*entity.Sale, 0)
	for _, sale := range r.s.sales {
		if sale.BranchID != branchID {
			continue
		}
		if day != nil && !sameDay(sale.BusinessDay, *day) {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].InvoiceNumber < out[j].InvoiceNumber
	})
	return paginate(out, limit, offset), nil
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// ─── Órdenes de compra ───────────────────────────────────────────────────────

type orderRepo struct {
	s  *Store
	tx *memTx
}

func (r *orderRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	if r.tx == nil {
		return errReadOnly
	}
	r.s.mu.RLock()
	_, taken := r.s.poNumbers[po.PONumber]
	r.s.mu.RUnlock()
	for _, pending := range r.tx.orders {
		if pending.PONumber == po.PONumber {
			taken = true
		}
	}
	if taken {
		return &domain.DuplicateReferenceError{Kind: "orden de compra", Value: po.PONumber}
	}
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	r.tx.orders[po.ID] = po.Clone()
	r.tx.createdOrder[po.ID] = struct{}{}
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	if r.tx != nil {
		if _, gone := r.tx.deleted[id]; gone {
			return nil, nil
		}
		if pending, ok := r.tx.orders[id]; ok {
			return pending.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.orders[id].Clone(), nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if r.tx == nil {
		return nil, errReadOnly
	}
	if err := r.tx.lock(ctx, "po:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	if r.tx == nil {
		return errReadOnly
	}
	current, _ := r.GetByID(ctx, po.ID)
	if current == nil {
		return &domain.NotFoundError{Entity: "orden de compra", ID: po.ID}
	}
	r.tx.orders[po.ID] = po.Clone()
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	if r.tx == nil {
		return errReadOnly
	}
	current, _ := r.GetByID(ctx, id)
	if current == nil {
		return &domain.NotFoundError{Entity: "orden de compra", ID: id}
	}
	delete(r.tx.orders, id)
	delete(r.tx.createdOrder, id)
	r.tx.deleted[id] = struct{}{}
	return nil
}

func (r *orderRepo) List(_ context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	out := make([]*entity.PurchaseOrder, 0)
	for _, po := range r.s.orders {
		if (f.BranchID != "" && po.BranchID != f.BranchID) ||
			(f.SupplierID != "" && po.SupplierID != f.SupplierID) ||
			(f.Status != "" && po.Status != f.Status) {
			continue
		}
		out = append(out, po.Clone())
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PONumber > out[j].PONumber
	})
	return paginate(out, f.Limit, f.Offset), nil
}

// ─── Secuencias ──────────────────────────────────────────────────────────────

type sequenceRepo struct {
	s  *Store
	tx *memTx
}

func (r *sequenceRepo) Next(ctx context.Context, scope, key string, day time.Time) (int, error) {
	if r.tx == nil {
		return 0, errReadOnly
	}
	k := scope + "|" + key + "|" + day.Format("2006-01-02")
	if err := r.tx.lock(ctx, "seq:"+k); err != nil {
		return 0, err
	}
	v, ok := r.tx.seq[k]
	if !ok {
		r.s.mu.RLock()
		v = r.s.sequences[k]
		r.s.mu.RUnlock()
	}
	v++
	r.tx.seq[k] = v
	return v, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
