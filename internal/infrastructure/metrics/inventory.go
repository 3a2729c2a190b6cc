package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

// InventoryMetrics contadores del libro de movimientos y de las operaciones rechazadas.
type InventoryMetrics struct {
	movements  *prometheus.CounterVec
	units      *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewInventoryMetrics registra las métricas en reg. Con reg nil devuelve una instancia inerte.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_movements_total",
		Help:      "Movimientos de stock confirmados por tipo.",
	}, []string{"type"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_units_total",
		Help:      "Unidades movidas por tipo y dirección (in/out).",
	}, []string{"type", "direction"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "operations_rejected_total",
		Help:      "Operaciones de inventario rechazadas por regla de negocio.",
	}, []string{"operation", "reason"})
	reg.MustRegister(movements, units, rejections)
	return &InventoryMetrics{movements: movements, units: units, rejections: rejections}
}

// MovementsCommitted cuenta los movimientos de una transacción confirmada.
func (m *InventoryMetrics) MovementsCommitted(_ context.Context, movements []*entity.StockMovement) {
	if m == nil || m.movements == nil {
		return
	}
	for _, mv := range movements {
		m.movements.WithLabelValues(mv.Type).Inc()
		direction, qty := "in", mv.QuantityDelta
		if qty < 0 {
			direction, qty = "out", -qty
		}
		m.units.WithLabelValues(mv.Type, direction).Add(float64(qty))
	}
}

// OperationRejected cuenta un rechazo con la clase de error como etiqueta.
func (m *InventoryMetrics) OperationRejected(_ context.Context, operation string, err error) {
	if m == nil || m.rejections == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.rejections.WithLabelValues(operation, Reason(err)).Inc()
}

// Reason etiqueta estable para una clase de error de dominio.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTransferCompensated):
		return "transfer_compensated"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrExceededOrderedQuantity):
		return "exceeded_ordered_quantity"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrDuplicateReference):
		return "duplicate_reference"
	case errors.Is(err, domain.ErrInactive):
		return "inactive"
	default:
		return "other"
	}
}
