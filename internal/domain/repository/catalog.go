package repository

import (
	"context"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// ProductCatalog puerto de solo lectura al catálogo de productos.
// GetByID devuelve nil, nil si el producto no existe.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}

// BranchRegistry puerto de solo lectura al registro de sucursales.
// GetByID devuelve nil, nil si la sucursal no existe.
type BranchRegistry interface {
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
}
