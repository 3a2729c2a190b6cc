package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

const maxMovementPage = 500

// StockQuery rutas de lectura del libro: consultan el stock confirmado sin pasar por el motor.
type StockQuery struct {
	stock     repository.StockRepository
	movements repository.StockMovementRepository
	products  repository.ProductCatalog
	cache     BranchStockCache
}

// NewStockQuery construye el servicio de consultas. cache puede ser nil.
func NewStockQuery(
	stock repository.StockRepository,
	movements repository.StockMovementRepository,
	products repository.ProductCatalog,
	cache BranchStockCache,
) *StockQuery {
	return &StockQuery{stock: stock, movements: movements, products: products, cache: cache}
}

// GetStock devuelve el registro del par; un par sin historial se informa en cero.
func (q *StockQuery) GetStock(ctx context.Context, productID, branchID string) (*entity.StockRecord, error) {
	p, err := q.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Entity: "producto", ID: productID}
	}
	rec, err := q.stock.Get(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = entity.NewStockRecord(productID, branchID)
		rec.IsLowStock = p.MinStock >= 0
	}
	return rec, nil
}

// BranchStock lista el stock de una sucursal (con caché si está configurada).
func (q *StockQuery) BranchStock(ctx context.Context, branchID string, lowOnly bool, limit, offset int) ([]*entity.StockRecord, error) {
	key := fmt.Sprintf("low=%t:limit=%d:offset=%d", lowOnly, limit, offset)
	version := int64(-1)
	if q.cache != nil {
		cached, ver, ok := q.cache.GetBranchStock(ctx, branchID, key)
		if ok {
			return cached, nil
		}
		version = ver
	}
	list, err := q.stock.ListByBranch(ctx, branchID, lowOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	// la versión se capturó antes de leer: si un commit la incrementó entretanto,
	// el listado queda bajo una llave huérfana
	if q.cache != nil && version >= 0 {
		q.cache.SetBranchStock(ctx, branchID, key, version, list)
	}
	return list, nil
}

// Movements lista el libro con filtros; el límite se acota a 500.
func (q *StockQuery) Movements(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	if f.Limit <= 0 || f.Limit > maxMovementPage {
		f.Limit = maxMovementPage
	}
	return q.movements.List(ctx, f)
}

// ReplenishmentSuggestions devuelve los productos en o bajo su stock mínimo con la cantidad
// sugerida de pedido, ordenados por mayor déficit.
func (q *StockQuery) ReplenishmentSuggestions(ctx context.Context, branchID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	low, err := q.stock.ListByBranch(ctx, branchID, true, 0, 0)
	if err != nil {
		return nil, err
	}
	factor := decimal.NewFromFloat(1.5)

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(low))
	for _, rec := range low {
		p, err := q.products.GetByID(ctx, rec.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if p == nil || !p.IsActive {
			continue
		}
		ideal := int(decimal.NewFromInt(int64(p.MinStock)).Mul(factor).Ceil().IntPart())
		suggested := ideal - rec.Quantity
		if suggested <= 0 {
			continue
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:         p.ID,
			SKU:               p.SKU,
			ProductName:       p.Name,
			BranchID:          branchID,
			CurrentStock:      rec.Quantity,
			MinStock:          p.MinStock,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
			UnitPrice:         p.Price,
		})
	}

	// Mayor déficit primero; desempate estable por SKU
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.SuggestedOrderQty != b.SuggestedOrderQty {
			return a.SuggestedOrderQty > b.SuggestedOrderQty
		}
		return a.SKU < b.SKU
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// VerifyPair comprueba el libro de un par: la cantidad del registro coincide con el último
// movimiento y con la suma de deltas, y cada movimiento parte de donde terminó el anterior.
func (q *StockQuery) VerifyPair(ctx context.Context, productID, branchID string) (*dto.LedgerCheckResponse, error) {
	rec, err := q.stock.Get(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	movs, err := q.movements.ListByPair(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	out := &dto.LedgerCheckResponse{ProductID: productID, BranchID: branchID, Movements: len(movs)}
	if rec != nil {
		out.Quantity = rec.Quantity
	}
	prev := 0
	for _, m := range movs {
		if m.PreviousQuantity != prev || m.NewQuantity != m.PreviousQuantity+m.QuantityDelta {
			out.ChainBreaks++
		}
		out.SumOfDeltas += m.QuantityDelta
		prev = m.NewQuantity
	}
	if len(movs) > 0 {
		out.LastMovementQuantity = movs[len(movs)-1].NewQuantity
	}
	out.Consistent = out.ChainBreaks == 0 &&
		out.Quantity == out.SumOfDeltas &&
		out.Quantity == out.LastMovementQuantity
	return out, nil
}
