package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

const keyPrefix = "pos:stock:branch"

// BranchStockCache guarda en Redis el listado de stock por sucursal.
// Cada sucursal tiene un contador de versión que forma parte de la llave; un commit que
// toca la sucursal incrementa la versión y deja huérfanas las entradas anteriores (expiran por TTL).
type BranchStockCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewBranchStockCache crea la caché. Un cliente nil deshabilita todas las operaciones.
func NewBranchStockCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *BranchStockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BranchStockCache{client: client, ttl: ttl, log: log}
}

func versionKey(branchID string) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, branchID)
}

func (c *BranchStockCache) version(ctx context.Context, branchID string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(branchID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func dataKey(branchID string, version int64, key string) string {
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, branchID, version, key)
}

// GetBranchStock devuelve el listado cacheado y la versión de la sucursal leída.
// Cualquier error de Redis cuenta como fallo de caché y devuelve versión -1.
func (c *BranchStockCache) GetBranchStock(ctx context.Context, branchID, key string) ([]*entity.StockRecord, int64, bool) {
	if c == nil || c.client == nil {
		return nil, -1, false
	}
	ver, err := c.version(ctx, branchID)
	if err != nil {
		c.log.Warn().Err(err).Str("branch_id", branchID).Msg("cache de stock no disponible")
		return nil, -1, false
	}
	k := dataKey(branchID, ver, key)
	payload, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", k).Msg("lectura de cache de stock falló")
		}
		return nil, ver, false
	}
	var records []*entity.StockRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, ver, false
	}
	return records, ver, true
}

// SetBranchStock guarda el listado bajo la versión que el lector capturó antes de consultar.
// Si un commit incrementó la versión entretanto, la entrada queda huérfana y nunca se sirve.
func (c *BranchStockCache) SetBranchStock(ctx context.Context, branchID, key string, version int64, records []*entity.StockRecord) {
	if c == nil || c.client == nil || version < 0 {
		return
	}
	k := dataKey(branchID, version, key)
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", k).Msg("escritura de cache de stock falló")
	}
}

// Invalidate incrementa la versión de las sucursales indicadas.
func (c *BranchStockCache) Invalidate(ctx context.Context, branchIDs ...string) error {
	if c == nil || c.client == nil || len(branchIDs) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, id := range branchIDs {
		pipe.Incr(ctx, versionKey(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// MovementsCommitted invalida cada sucursal tocada por los movimientos confirmados.
func (c *BranchStockCache) MovementsCommitted(ctx context.Context, movements []*entity.StockMovement) {
	if c == nil || c.client == nil {
		return
	}
	seen := make(map[string]struct{}, len(movements))
	branches := make([]string, 0, len(movements))
	for _, m := range movements {
		if _, ok := seen[m.BranchID]; ok {
			continue
		}
		seen[m.BranchID] = struct{}{}
		branches = append(branches, m.BranchID)
	}
	// el commit ya ocurrió: la invalidación no debe perderse si vence el contexto de la petición
	if err := c.Invalidate(context.WithoutCancel(ctx), branches...); err != nil {
		c.log.Warn().Err(err).Strs("branches", branches).Msg("invalidación de cache de stock falló")
	}
}

// OperationRejected no afecta la caché: una operación rechazada no cambió el stock.
func (c *BranchStockCache) OperationRejected(context.Context, string, error) {}
