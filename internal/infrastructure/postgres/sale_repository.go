package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id::text, invoice_number, branch_id::text, cashier_id, COALESCE(customer_id, ''),
	subtotal, tax_amount, discount, total, payment_method, amount_paid, change_amount,
	status, COALESCE(notes, ''), business_day, created_at, updated_at`

// SaleRepo ventas y sus líneas sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	err := row.Scan(
		&s.ID, &s.InvoiceNumber, &s.BranchID, &s.CashierID, &s.CustomerID,
		&s.Subtotal, &s.TaxAmount, &s.Discount, &s.Total, &s.PaymentMethod, &s.AmountPaid, &s.Change,
		&s.Status, &s.Notes, &s.BusinessDay, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserta cabecera y líneas (batch). Número de factura repetido -> DuplicateReferenceError.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO sales (id, invoice_number, branch_id, cashier_id, customer_id, subtotal, tax_amount,
			discount, total, payment_method, amount_paid, change_amount, status, notes, business_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::date, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.InvoiceNumber, s.BranchID, s.CashierID, nullIfEmpty(s.CustomerID), s.Subtotal, s.TaxAmount,
		s.Discount, s.Total, s.PaymentMethod, s.AmountPaid, s.Change, s.Status, nullIfEmpty(s.Notes),
		s.BusinessDay.Format("2006-01-02"), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateReferenceError{Kind: "factura", Value: s.InvoiceNumber}
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range s.Items {
		batch.Queue(`
			INSERT INTO sale_items (id, sale_id, position, product_id, quantity, unit_price, tax_rate, subtotal, tax_amount, movement_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, s.ID, i, it.ProductID, it.Quantity, it.UnitPrice, it.TaxRate, it.Subtotal, it.TaxAmount, it.MovementID,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range s.Items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

func (r *SaleRepo) loadItems(ctx context.Context, sales ...*entity.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	byID := make(map[string]*entity.Sale, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	query := `
		SELECT id::text, sale_id::text, product_id::text, quantity, unit_price, tax_rate, subtotal, tax_amount, movement_id::text
		FROM sale_items WHERE sale_id::text = ANY($1) ORDER BY sale_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.TaxRate, &it.Subtotal, &it.TaxAmount, &it.MovementID); err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		if s, ok := byID[it.SaleID]; ok {
			s.Items = append(s.Items, it)
		}
	}
	return rows.Err()
}

func (r *SaleRepo) getOne(ctx context.Context, query, id string) (*entity.Sale, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	s, err := scanSale(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if err := r.loadItems(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID obtiene la venta con sus líneas; nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetForUpdate como GetByID pero bloquea la cabecera hasta el fin de la tx.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStatus cambia estado y notas.
func (r *SaleRepo) UpdateStatus(ctx context.Context, id, status, notes string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sales SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`,
		id, status, nullIfEmpty(notes), at,
	)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "venta", ID: id}
	}
	return nil
}

// ListByBranch ventas de una sucursal en orden de creación; day filtra por día de negocio.
func (r *SaleRepo) ListByBranch(ctx context.Context, branchID string, day *time.Time, limit, offset int) ([]*entity.Sale, error) {
	if !validIDs(branchID) {
		return nil, nil
	}
	var w whereBuilder
	w.add("branch_id = $%d", branchID)
	if day != nil {
		w.add("business_day = $%d::date", day.Format("2006-01-02"))
	}
	query := `SELECT ` + saleColumns + ` FROM sales` + w.sql() +
		` ORDER BY created_at, invoice_number LIMIT ` + w.next(limitArg(limit)) + ` OFFSET ` + w.next(offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var out []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if err := r.loadItems(ctx, out...); err != nil {
		return nil, err
	}
	return out, nil
}
