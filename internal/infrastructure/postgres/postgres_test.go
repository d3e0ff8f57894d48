package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flota/pkg/config"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Clasificación de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40001"}), "serialization_failure se reintenta")
	assert.True(t, isRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})), "deadlock envuelto se reintenta")
	assert.False(t, isRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isRetryable(errors.New("40001 en texto no cuenta")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestNewTxRunner_AcotaIntentos(t *testing.T) {
	r := NewTxRunner(nil, config.LedgerConfig{MaxAttempts: 0, BaseBackoff: 5 * time.Millisecond}, nil)
	assert.Equal(t, 1, r.maxAttempts, "al menos un intento")
	assert.Equal(t, 5*time.Millisecond, r.baseBackoff)
}

// ──────────────────────────────────────────────────────────────────────────────
// Migraciones embebidas
// ──────────────────────────────────────────────────────────────────────────────

func TestMigrationSource_VersionesConUpYDown(t *testing.T) {
	src, err := migrationSource()
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version, "la primera versión es 001_init")

	for {
		up, ident, err := src.ReadUp(version)
		require.NoError(t, err, "versión %d sin script up", version)
		_ = up.Close()
		assert.NotEmpty(t, ident)

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "versión %d sin script down", version)
		_ = down.Close()

		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
		require.Greater(t, next, version)
		version = next
	}
}

func TestMigrateLogger_NoVerboso(t *testing.T) {
	l := migrateLogger{log: logger.Nop()}
	assert.False(t, l.Verbose())
	assert.NotPanics(t, func() { l.Printf("aplicando %d", 1) })
}

// ──────────────────────────────────────────────────────────────────────────────
// Pool
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyPoolSettings(t *testing.T) {
	pc, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/flota?sslmode=disable")
	require.NoError(t, err)

	applyPoolSettings(pc, config.DBConfig{MaxConns: 1})
	assert.Equal(t, int32(1), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns, "MinConns no supera MaxConns")
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.NotNil(t, pc.AfterConnect, "registra el codec decimal")

	pc, err = pgxpool.ParseConfig("postgres://u:p@localhost:5432/flota?application_name=otra")
	require.NoError(t, err)
	applyPoolSettings(pc, config.DBConfig{})
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, "otra", pc.ConnConfig.RuntimeParams["application_name"], "respeta el nombre del DSN")
}
