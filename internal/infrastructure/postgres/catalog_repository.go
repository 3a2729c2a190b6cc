package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.ProductCatalog = (*ProductRepo)(nil)
var _ repository.BranchRegistry = (*BranchRepo)(nil)

// ProductRepo lectura del catálogo de productos.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID; nil, nil si no existe o el ID no es un UUID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	query := `
		SELECT id::text, sku, name, price, tax_rate, min_stock, is_active
		FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Price, &p.TaxRate, &p.MinStock, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// BranchRepo lectura del registro de sucursales.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// GetByID obtiene una sucursal por ID; nil, nil si no existe.
func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	query := `SELECT id::text, code, name, is_active FROM branches WHERE id = $1`
	var b entity.Branch
	err := r.q.QueryRow(ctx, query, id).Scan(&b.ID, &b.Code, &b.Name, &b.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}
