package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
	"github.com/jhoicas/inventario-flota/internal/infrastructure/events"
	"github.com/jhoicas/inventario-flota/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-flota/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/inventario-flota/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventario-flota/internal/interfaces/http"
	"github.com/jhoicas/inventario-flota/pkg/config"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// backend repositorios sin transacción más el runner transaccional del driver elegido.
type backend struct {
	txRunner  inventory.TxRunner
	items     repository.InventoryItemRepository
	vehicles  repository.VehicleRepository
	stock     repository.VehicleStockRepository
	transfers repository.TransferRepository
	movements repository.InventoryMovementRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("almacenamiento")
	}
	defer be.close()

	// Candado distribuido por documento (opcional)
	var locker inventory.DocumentLocker
	if cfg.Redis.URL != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = infraredis.NewLocker(rdb, cfg.Redis.LockTTL, log)
		log.Info().Msg("candado de documentos en Redis activo")
	}

	// Eventos de transferencia (opcional)
	var publisher inventory.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn().Err(err).Msg("cerrar productor Kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.TransferTopic).Msg("publicación de eventos en Kafka activa")
	}

	catalog := inventory.NewCatalog(be.txRunner, be.items, be.vehicles, be.stock, log)
	ledger := inventory.NewInventoryLedger(be.txRunner, be.items, be.movements, log)
	workflow := inventory.NewTransferWorkflow(be.txRunner, be.vehicles, be.transfers, locker, publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs (solo si se generó docs/swagger.json)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Inventario Flota API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Catalog:   catalog,
		Ledger:    ledger,
		Workflow:  workflow,
		JWTSecret: cfg.JWT.Secret,
		Log:       log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.DB.Driver == config.StoreDriverMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &backend{
			txRunner:  s,
			items:     s.Items(),
			vehicles:  s.Vehicles(),
			stock:     s.VehicleStock(),
			transfers: s.Transfers(),
			movements: s.Movements(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &backend{
		txRunner:  postgres.NewTxRunner(pool, cfg.Ledger, log),
		items:     postgres.NewInventoryItemRepository(pool),
		vehicles:  postgres.NewVehicleRepository(pool),
		stock:     postgres.NewVehicleStockRepository(pool),
		transfers: postgres.NewTransferRepository(pool),
		movements: postgres.NewInventoryMovementRepository(pool),
		close:     pool.Close,
	}, nil
}
