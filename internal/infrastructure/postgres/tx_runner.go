package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool      *pgxpool.Pool
	isolation pgx.TxIsoLevel
}

// NewTxRunner construye el runner con el pool. isolation acepta "repeatable_read" o "serializable";
// cualquier otro valor usa REPEATABLE READ.
func NewTxRunner(pool *pgxpool.Pool, isolation string) *TxRunner {
	level := pgx.RepeatableRead
	if isolation == "serializable" {
		level = pgx.Serializable
	}
	return &TxRunner{pool: pool, isolation: level}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: r.isolation}, fn)
}

// View abre una transacción REPEATABLE READ READ ONLY: instantánea consistente sin bloqueos de escritura.
func (r *TxRunner) View(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(s repository.Stores) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin transaction", err)
	}
	// Rollback tras Commit es no-op; con un contexto cancelado usa uno nuevo para liberar la conexión.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewStores(tx)); err != nil {
		return classify("transaction", err)
	}
	if err := ctx.Err(); err != nil {
		return classify("transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// NewStores construye todos los repositorios sobre q (pool o tx).
func NewStores(q Querier) repository.Stores {
	return repository.Stores{
		Products:   NewProductRepository(q),
		Warehouses: NewWarehouseRepository(q),
		Cells:      NewCellRepository(q),
		Lots:       NewLotRepository(q),
		Placements: NewPlacementRepository(q),
		Packages:   NewPackageRepository(q),
		Receptions: NewReceptionRepository(q),
		Shipments:  NewShipmentRepository(q),
		Movements:  NewMovementRepository(q),
		Exceptions: NewExceptionRepository(q),
		Users:      NewUserRepository(q),
		Roles:      NewRoleRepository(q),
		Approvs:    NewApprovRepository(q),
	}
}
