package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/jhoicas/inventario-flota/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsTable = "schema_migrations"

// migrationSource fuente de scripts NNN_nombre.up.sql / .down.sql embebidos en el binario.
func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	return src, nil
}

// Migrate aplica las migraciones pendientes con golang-migrate sobre el pool existente.
// Sin cambios pendientes no es error; una versión sucia sí.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("migrate")

	src, err := migrationSource()
	if err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{
		MigrationsTable: migrationsTable,
		DatabaseName:    pool.Config().ConnConfig.Database,
	})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("migration instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	m.Log = migrateLogger{log: log}

	// Up no recibe contexto; GracefulStop lo detiene entre scripts si ctx se cancela.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("sin migraciones pendientes")
			return nil
		}
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return fmt.Errorf("migration failed: dirty database version %d", dirty.Version)
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	log.Info().Uint("version", version).Msg("migraciones aplicadas")
	return nil
}

// migrateLogger adapta el logger de la aplicación a migrate.Logger.
type migrateLogger struct {
	log *logger.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool { return false }
