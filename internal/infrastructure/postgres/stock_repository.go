package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id::text, branch_id::text, quantity, is_low_stock, last_restock_date, last_sale_date, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(&s.ProductID, &s.BranchID, &s.Quantity, &s.IsLowStock, &s.LastRestockDate, &s.LastSaleDate, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get obtiene el stock actual; nil, nil si el par no tiene registro.
func (r *StockRepo) Get(ctx context.Context, productID, branchID string) (*entity.StockRecord, error) {
	if !validIDs(productID, branchID) {
		return nil, nil
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE product_id = $1 AND branch_id = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate crea la fila en cero si no existe (ON CONFLICT DO NOTHING) y la bloquea con
// SELECT FOR UPDATE; dos escritores concurrentes del mismo par quedan serializados incluso
// en el primer movimiento.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, branchID string) (*entity.StockRecord, error) {
	insert := `
		INSERT INTO stock_records (product_id, branch_id, quantity, is_low_stock, updated_at)
		VALUES ($1, $2, 0, true, now())
		ON CONFLICT (product_id, branch_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, productID, branchID); err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE product_id = $1 AND branch_id = $2 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, branchID))
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// Save actualiza la fila previamente bloqueada con GetForUpdate.
func (r *StockRepo) Save(ctx context.Context, rec *entity.StockRecord) error {
	query := `
		UPDATE stock_records
		SET quantity = $3, is_low_stock = $4, last_restock_date = $5, last_sale_date = $6, updated_at = $7
		WHERE product_id = $1 AND branch_id = $2`
	tag, err := r.q.Exec(ctx, query,
		rec.ProductID, rec.BranchID, rec.Quantity, rec.IsLowStock,
		rec.LastRestockDate, rec.LastSaleDate, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save stock %s@%s: %w", rec.ProductID, rec.BranchID, domain.ErrNotFound)
	}
	return nil
}

func (r *StockRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByBranch stock de una sucursal ordenado por producto; limit 0 = sin límite.
func (r *StockRepo) ListByBranch(ctx context.Context, branchID string, lowStockOnly bool, limit, offset int) ([]*entity.StockRecord, error) {
	if !validIDs(branchID) {
		return nil, nil
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records
		WHERE branch_id = $1 AND ($2 = false OR is_low_stock)
		ORDER BY product_id
		LIMIT $3 OFFSET $4`
	return r.list(ctx, query, branchID, lowStockOnly, limitArg(limit), offset)
}

// ListByProduct stock de un producto en todas las sucursales.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockRecord, error) {
	if !validIDs(productID) {
		return nil, nil
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE product_id = $1 ORDER BY branch_id`
	return r.list(ctx, query, productID)
}
