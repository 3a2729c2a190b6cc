package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

const poColumns = `id::text, po_number, supplier_id, branch_id::text, status, subtotal, tax_amount, discount, total,
	COALESCE(notes, ''), created_by, COALESCE(approved_by, ''), approved_at, COALESCE(received_by, ''),
	received_date, expected_date, created_at, updated_at`

// PurchaseOrderRepo órdenes de compra sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

func scanPO(row pgx.Row) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := row.Scan(
		&po.ID, &po.PONumber, &po.SupplierID, &po.BranchID, &po.Status, &po.Subtotal, &po.TaxAmount,
		&po.Discount, &po.Total, &po.Notes, &po.CreatedBy, &po.ApprovedBy, &po.ApprovedAt, &po.ReceivedBy,
		&po.ReceivedDate, &po.ExpectedDate, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// Create inserta cabecera y líneas. Número repetido -> DuplicateReferenceError.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (id, po_number, supplier_id, branch_id, status, subtotal, tax_amount, discount,
			total, notes, created_by, expected_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		po.ID, po.PONumber, po.SupplierID, po.BranchID, po.Status, po.Subtotal, po.TaxAmount, po.Discount,
		po.Total, nullIfEmpty(po.Notes), po.CreatedBy, po.ExpectedDate, po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateReferenceError{Kind: "orden de compra", Value: po.PONumber}
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return r.insertItems(ctx, po)
}

func (r *PurchaseOrderRepo) insertItems(ctx context.Context, po *entity.PurchaseOrder) error {
	batch := &pgx.Batch{}
	for i, it := range po.Items {
		batch.Queue(`
			INSERT INTO purchase_order_items (id, po_id, position, product_id, ordered_qty, received_qty, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, po.ID, i, it.ProductID, it.OrderedQty, it.ReceivedQty, it.UnitCost, it.Subtotal,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range po.Items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) loadItems(ctx context.Context, orders ...*entity.PurchaseOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	byID := make(map[string]*entity.PurchaseOrder, len(orders))
	for _, po := range orders {
		ids = append(ids, po.ID)
		byID[po.ID] = po
	}
	query := `
		SELECT id::text, po_id::text, product_id::text, ordered_qty, received_qty, unit_cost, subtotal
		FROM purchase_order_items WHERE po_id::text = ANY($1) ORDER BY po_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.POID, &it.ProductID, &it.OrderedQty, &it.ReceivedQty, &it.UnitCost, &it.Subtotal); err != nil {
			return fmt.Errorf("scan purchase order item: %w", err)
		}
		if po, ok := byID[it.POID]; ok {
			po.Items = append(po.Items, it)
		}
	}
	return rows.Err()
}

func (r *PurchaseOrderRepo) getOne(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	po, err := scanPO(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if err := r.loadItems(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// GetByID obtiene la orden con sus líneas; nil, nil si no existe.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera; las líneas solo se modifican con la cabecera bloqueada.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

// Update reescribe la cabecera y reemplaza el conjunto de líneas.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders
		SET supplier_id = $2, status = $3, subtotal = $4, tax_amount = $5, discount = $6, total = $7,
			notes = $8, approved_by = $9, approved_at = $10, received_by = $11, received_date = $12,
			expected_date = $13, updated_at = $14
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		po.ID, po.SupplierID, po.Status, po.Subtotal, po.TaxAmount, po.Discount, po.Total,
		nullIfEmpty(po.Notes), nullIfEmpty(po.ApprovedBy), po.ApprovedAt, nullIfEmpty(po.ReceivedBy), po.ReceivedDate,
		po.ExpectedDate, po.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "orden de compra", ID: po.ID}
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM purchase_order_items WHERE po_id = $1`, po.ID); err != nil {
		return fmt.Errorf("delete purchase order items: %w", err)
	}
	return r.insertItems(ctx, po)
}

// Delete elimina la orden (las líneas caen por ON DELETE CASCADE).
func (r *PurchaseOrderRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "orden de compra", ID: id}
	}
	return nil
}

// List órdenes filtradas, más recientes primero.
func (r *PurchaseOrderRepo) List(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	if !validIDs(f.BranchID) {
		return nil, nil
	}
	var w whereBuilder
	if f.BranchID != "" {
		w.add("branch_id = $%d", f.BranchID)
	}
	if f.SupplierID != "" {
		w.add("supplier_id = $%d", f.SupplierID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	query := `SELECT ` + poColumns + ` FROM purchase_orders` + w.sql() +
		` ORDER BY created_at DESC, po_number DESC LIMIT ` + w.next(limitArg(f.Limit)) + ` OFFSET ` + w.next(f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	var out []*entity.PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	if err := r.loadItems(ctx, out...); err != nil {
		return nil, err
	}
	return out, nil
}
