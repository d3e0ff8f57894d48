package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/config"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL y la repite ante
// serialización o deadlock, hasta MaxAttempts.
type TxRunner struct {
	pool        *pgxpool.Pool
	maxAttempts int
	baseBackoff time.Duration
	log         *logger.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, cfg config.LedgerConfig, log *logger.Logger) *TxRunner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{
		pool:        pool,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		log:         log.Component("tx_runner"),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt >= r.maxAttempts {
			return fmt.Errorf("transacción abortada tras %d intentos: %w", attempt, err)
		}
		wait := backoff.ExponentialWithJitter(r.baseBackoff, attempt)
		r.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("reintentando transacción")

		if err := backoff.WaitContext(ctx, wait); err != nil {
			return fmt.Errorf("reintento cancelado: %w", err)
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := inventory.TxRepos{
		Items:        NewInventoryItemRepository(tx),
		VehicleStock: NewVehicleStockRepository(tx),
		Transfers:    NewTransferRepository(tx),
		Movements:    NewInventoryMovementRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
