package repository

import (
	"context"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por producto+sucursal.
// Las escrituras solo ocurren dentro de una transacción del motor de inventario.
type StockRepository interface {
	// Get devuelve el registro o nil, nil si el par no tiene historial.
	Get(ctx context.Context, productID, branchID string) (*entity.StockRecord, error)
	// GetForUpdate crea el registro en cero si no existe y lo bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, productID, branchID string) (*entity.StockRecord, error)
	Save(ctx context.Context, rec *entity.StockRecord) error
	ListByBranch(ctx context.Context, branchID string, lowStockOnly bool, limit, offset int) ([]*entity.StockRecord, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockRecord, error)
}
