package metrics

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

func TestInventoryMetrics_CuentaMovimientosYUnidades(t *testing.T) {
	m := NewInventoryMetrics(prometheus.NewRegistry())

	m.MovementsCommitted(context.Background(), []*entity.StockMovement{
		{Type: entity.MovementTypeOUT, QuantityDelta: -3},
		{Type: entity.MovementTypeOUT, QuantityDelta: -2},
		{Type: entity.MovementTypeIN, QuantityDelta: 10},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.movements.WithLabelValues(entity.MovementTypeOUT)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.units.WithLabelValues(entity.MovementTypeOUT, "out")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.units.WithLabelValues(entity.MovementTypeIN, "in")))
}

func TestInventoryMetrics_RechazosPorRazon(t *testing.T) {
	m := NewInventoryMetrics(prometheus.NewRegistry())

	err := fmt.Errorf("venta: %w", domain.NewInsufficientStock("p", "b", 1, 2))
	m.OperationRejected(context.Background(), "sale.create", err)
	m.OperationRejected(context.Background(), "sale.create", err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejections.WithLabelValues("sale.create", "insufficient_stock")))
}

func TestReason_CompensacionTienePrioridadSobreLaCausa(t *testing.T) {
	err := fmt.Errorf("%w: %w", domain.ErrTransferCompensated, domain.NewInsufficientStock("p", "b", 0, 1))
	assert.Equal(t, "transfer_compensated", Reason(err))
	assert.Equal(t, "insufficient_stock", Reason(domain.NewInsufficientStock("p", "b", 0, 1)))
	assert.Equal(t, "other", Reason(fmt.Errorf("db caída")))
}

func TestInventoryMetrics_SinRegistroEsInerte(t *testing.T) {
	m := NewInventoryMetrics(nil)
	m.MovementsCommitted(context.Background(), []*entity.StockMovement{{Type: entity.MovementTypeIN, QuantityDelta: 1}})
	m.OperationRejected(context.Background(), "x", domain.ErrNotFound)

	var nilMetrics *InventoryMetrics
	nilMetrics.OperationRejected(context.Background(), "x", domain.ErrNotFound)
}
