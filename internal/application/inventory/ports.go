package inventory

import (
	"context"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// MovementObserver recibe notificaciones después del commit (métricas, invalidación de caché).
// Nunca puede hacer fallar la operación que notifica.
type MovementObserver interface {
	MovementsCommitted(ctx context.Context, movements []*entity.StockMovement)
	OperationRejected(ctx context.Context, operation string, err error)
}

// BranchStockCache caché opcional del listado de stock por sucursal.
// GetBranchStock devuelve la versión de la sucursal leída antes de consultar la base;
// SetBranchStock escribe bajo esa versión y no bajo la vigente al momento de escribir.
// Una versión negativa significa caché no disponible.
type BranchStockCache interface {
	GetBranchStock(ctx context.Context, branchID, key string) (records []*entity.StockRecord, version int64, hit bool)
	SetBranchStock(ctx context.Context, branchID, key string, version int64, records []*entity.StockRecord)
}
