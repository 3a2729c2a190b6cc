package repository

import "context"

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Stock     StockRepository
	Movements StockMovementRepository
	Sales     SaleRepository
	Orders    PurchaseOrderRepository
	Sequences SequenceRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
// Si ctx termina antes del commit, la transacción se aborta completa.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}
