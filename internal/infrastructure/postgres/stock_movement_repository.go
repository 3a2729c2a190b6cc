package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id::text, seq, product_id::text, branch_id::text, type, quantity_delta,
	previous_quantity, new_quantity, performed_by, COALESCE(reason, ''), COALESCE(notes, ''),
	COALESCE(reference_type, ''), COALESCE(reference_id::text, ''), COALESCE(counterpart_branch_id::text, ''), created_at`

// StockMovementRepo libro de movimientos (solo INSERT).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(
		&m.ID, &m.Seq, &m.ProductID, &m.BranchID, &m.Type, &m.QuantityDelta,
		&m.PreviousQuantity, &m.NewQuantity, &m.PerformedBy, &m.Reason, &m.Notes,
		&m.ReferenceType, &m.ReferenceID, &m.CounterpartBranchID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Append inserta el movimiento y asigna Seq (bigserial).
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, branch_id, type, quantity_delta, previous_quantity,
			new_quantity, performed_by, reason, notes, reference_type, reference_id, counterpart_branch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ProductID, m.BranchID, m.Type, m.QuantityDelta, m.PreviousQuantity,
		m.NewQuantity, m.PerformedBy, nullIfEmpty(m.Reason), nullIfEmpty(m.Notes),
		nullIfEmpty(m.ReferenceType), nullIfEmpty(m.ReferenceID), nullIfEmpty(m.CounterpartBranchID), m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListByPair movimientos del par en orden de inserción.
func (r *StockMovementRepo) ListByPair(ctx context.Context, productID, branchID string) ([]*entity.StockMovement, error) {
	if !validIDs(productID, branchID) {
		return nil, nil
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE product_id = $1 AND branch_id = $2 ORDER BY seq`
	return r.list(ctx, query, productID, branchID)
}

// Last último movimiento del par; nil, nil si no hay.
func (r *StockMovementRepo) Last(ctx context.Context, productID, branchID string) (*entity.StockMovement, error) {
	if !validIDs(productID, branchID) {
		return nil, nil
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE product_id = $1 AND branch_id = $2 ORDER BY seq DESC LIMIT 1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, productID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last stock movement: %w", err)
	}
	return m, nil
}

// List movimientos filtrados, más recientes primero.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	if !validIDs(f.ProductID, f.BranchID, f.ReferenceID) {
		return nil, nil
	}
	var w whereBuilder
	if f.ProductID != "" {
		w.add("product_id = $%d", f.ProductID)
	}
	if f.BranchID != "" {
		w.add("branch_id = $%d", f.BranchID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.ReferenceType != "" {
		w.add("reference_type = $%d", f.ReferenceType)
	}
	if f.ReferenceID != "" {
		w.add("reference_id = $%d", f.ReferenceID)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= $%d", *f.To)
	}
	where := w.sql()
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where +
		` ORDER BY seq DESC LIMIT ` + w.next(limitArg(f.Limit)) + ` OFFSET ` + w.next(f.Offset)
	return r.list(ctx, query, w.args...)
}
