package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

func newTestCache(t *testing.T) (*BranchStockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBranchStockCache(client, time.Minute, zerolog.Nop()), mr
}

func TestBranchStockCache_GuardaYLee(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ver, ok := c.GetBranchStock(ctx, "b1", "low=false:limit=50:offset=0")
	assert.False(t, ok)
	assert.Equal(t, int64(0), ver)

	records := []*entity.StockRecord{{ProductID: "p1", BranchID: "b1", Quantity: 7}}
	c.SetBranchStock(ctx, "b1", "low=false:limit=50:offset=0", ver, records)

	got, _, ok := c.GetBranchStock(ctx, "b1", "low=false:limit=50:offset=0")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Quantity)
}

func TestBranchStockCache_MovimientoInvalidaSoloSuSucursal(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetBranchStock(ctx, "b1", "k", 0, []*entity.StockRecord{{ProductID: "p1", BranchID: "b1", Quantity: 1}})
	c.SetBranchStock(ctx, "b2", "k", 0, []*entity.StockRecord{{ProductID: "p1", BranchID: "b2", Quantity: 2}})

	c.MovementsCommitted(ctx, []*entity.StockMovement{
		{ProductID: "p1", BranchID: "b1", QuantityDelta: -1},
		{ProductID: "p2", BranchID: "b1", QuantityDelta: -1},
	})

	_, _, ok := c.GetBranchStock(ctx, "b1", "k")
	assert.False(t, ok, "b1 debe quedar invalidada")
	_, _, ok = c.GetBranchStock(ctx, "b2", "k")
	assert.True(t, ok, "b2 no fue tocada")
}

func TestBranchStockCache_ExpiraPorTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetBranchStock(ctx, "b1", "k", 0, []*entity.StockRecord{})
	mr.FastForward(2 * time.Minute)

	_, _, ok := c.GetBranchStock(ctx, "b1", "k")
	assert.False(t, ok)
}

func TestBranchStockCache_RedisCaidoEsFalloDeCache(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, ver, ok := c.GetBranchStock(context.Background(), "b1", "k")
	assert.False(t, ok)
	assert.Equal(t, int64(-1), ver)
	c.MovementsCommitted(context.Background(), []*entity.StockMovement{{BranchID: "b1"}})
}

func TestBranchStockCache_NilEsNoop(t *testing.T) {
	var c *BranchStockCache
	_, _, ok := c.GetBranchStock(context.Background(), "b1", "k")
	assert.False(t, ok)
	c.SetBranchStock(context.Background(), "b1", "k", 0, nil)
	assert.NoError(t, c.Invalidate(context.Background(), "b1"))
}

// ─── Carrera lectura/commit ──────────────────────────────────────────────────

func TestBranchStockCache_ListadoLeidoAntesDelCommitNoSeSirve(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// el lector falla la caché y consulta la base con stock 7
	_, ver, ok := c.GetBranchStock(ctx, "b1", "k")
	require.False(t, ok)
	before := []*entity.StockRecord{{ProductID: "p1", BranchID: "b1", Quantity: 7}}

	// entretanto un commit deja el stock en 3 e invalida la sucursal
	c.MovementsCommitted(ctx, []*entity.StockMovement{{ProductID: "p1", BranchID: "b1", QuantityDelta: -4}})

	// el lector escribe tarde el listado viejo
	c.SetBranchStock(ctx, "b1", "k", ver, before)

	_, newVer, ok := c.GetBranchStock(ctx, "b1", "k")
	assert.False(t, ok, "el listado previo al commit no debe servirse")
	assert.Equal(t, ver+1, newVer)

	after := []*entity.StockRecord{{ProductID: "p1", BranchID: "b1", Quantity: 3}}
	c.SetBranchStock(ctx, "b1", "k", newVer, after)
	got, _, ok := c.GetBranchStock(ctx, "b1", "k")
	require.True(t, ok)
	assert.Equal(t, 3, got[0].Quantity)
}

func TestBranchStockCache_InvalidaConContextoVencido(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetBranchStock(ctx, "b1", "k", 0, []*entity.StockRecord{{ProductID: "p1", BranchID: "b1", Quantity: 7}})

	expired, cancel := context.WithCancel(ctx)
	cancel()
	c.MovementsCommitted(expired, []*entity.StockMovement{{ProductID: "p1", BranchID: "b1", QuantityDelta: -1}})

	_, ver, ok := c.GetBranchStock(ctx, "b1", "k")
	assert.False(t, ok, "la invalidación debe aplicarse aunque la petición haya vencido")
	assert.Equal(t, int64(1), ver)
}
