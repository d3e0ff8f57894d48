package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/pkg/config"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

var _ inventory.DocumentLocker = (*Locker)(nil)

const keyPrefix = "inventario-flota:lock:"

// obtainer lo que Locker usa de *redislock.Client.
type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Locker candado por documento compartido entre instancias del API.
type Locker struct {
	client obtainer
	ttl    time.Duration
	retry  redislock.RetryStrategy
	log    *logger.Logger
}

// NewClient abre la conexión a Redis a partir de REDIS_URL y verifica con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewLocker construye el candado sobre un cliente go-redis.
func NewLocker(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *Locker {
	return newLocker(redislock.New(rdb), ttl, log)
}

func newLocker(client obtainer, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
		log:    log.Component("redis_locker"),
	}
}

// Lock espera el candado de key con reintentos lineales; si no lo obtiene devuelve ErrConflict.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, keyPrefix+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, &domain.Error{Kind: domain.ErrConflict, Detail: "documento bloqueado por otra operación: " + key}
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		// Liberar aunque la petición ya se haya cancelado.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el candado")
		}
	}, nil
}
