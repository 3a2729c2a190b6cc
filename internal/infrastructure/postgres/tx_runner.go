package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL READ COMMITTED;
// la consistencia del stock la dan los bloqueos de fila (SELECT FOR UPDATE).
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Si ctx se cancela, pgx aborta la consulta en curso y la tx completa se revierte.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, Repos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos arma el conjunto de repositorios sobre un Querier (pool para lecturas, tx para escrituras).
func Repos(q Querier) repository.TxRepos {
	return repository.TxRepos{
		Stock:     NewStockRepository(q),
		Movements: NewStockMovementRepository(q),
		Sales:     NewSaleRepository(q),
		Orders:    NewPurchaseOrderRepository(q),
		Sequences: NewSequenceRepository(q),
	}
}
