package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo consecutivos diarios de documentos. El UPSERT bloquea la fila del contador
// hasta el commit, así dos ventas simultáneas de la misma sucursal nunca obtienen el mismo número.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Debe usarse con una tx.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa y devuelve el consecutivo de (scope, key, día).
func (r *SequenceRepo) Next(ctx context.Context, scope, key string, day time.Time) (int, error) {
	query := `
		INSERT INTO document_sequences (scope, key, day, last_value)
		VALUES ($1, $2, $3::date, 1)
		ON CONFLICT (scope, key, day)
		DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value`
	var v int
	if err := r.q.QueryRow(ctx, query, scope, key, day.Format("2006-01-02")).Scan(&v); err != nil {
		return 0, fmt.Errorf("next sequence %s/%s: %w", scope, key, err)
	}
	return v, nil
}
