package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/juju/clock"

	"github.com/jhoicas/marketplace-ledger/internal/application"
	"github.com/jhoicas/marketplace-ledger/internal/application/outbound"
	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/application/pricing"
	"github.com/jhoicas/marketplace-ledger/internal/application/usecase"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/marketplace-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/marketplace-ledger/internal/infrastructure/wms"
	httpRouter "github.com/jhoicas/marketplace-ledger/internal/interfaces/http"
	"github.com/jhoicas/marketplace-ledger/pkg/config"
	"github.com/jhoicas/marketplace-ledger/pkg/logger"
	"github.com/jhoicas/marketplace-ledger/pkg/telemetry"
)

// version se fija en el build con -ldflags "-X main.version=…".
var version = "dev"

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.App.Name, version, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	// Persistencia: PostgreSQL o memoria (desarrollo)
	var store ports.Store
	switch cfg.Store.Driver {
	case "memory":
		store = memory.NewStore()
		log.Warn().Msg("persistencia en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		store = postgres.NewTxRunner(pool)
	}

	// WMS: cliente HTTP firmado o no-op si no hay URL
	var signer *wms.Signer
	if cfg.WMS.CallbackSecret != "" {
		if signer, err = wms.NewSigner(cfg.WMS.CallbackSecret); err != nil {
			log.Fatal().Err(err).Msg("firmador WMS")
		}
	}
	var wmsClient ports.WMSClient = wms.NoopClient{}
	if cfg.WMS.BaseURL != "" {
		wmsClient = wms.NewHTTPClient(cfg.WMS.BaseURL, cfg.WMS.APIKey, signer, cfg.WMS.Timeout)
	}

	// Stock por canal: Kafka o log
	var publisher ports.ChannelStockPublisher = messaging.NewLogStockPublisher(log)
	if cfg.Kafka.Enabled() {
		kp := messaging.NewKafkaStockPublisher(messaging.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.StockTopic), log)
		defer kp.Close()
		publisher = kp
	}

	metrics := telemetry.NewMetrics()
	clk := clock.WallClock
	svc := application.NewServices(application.Deps{
		Store:     store,
		Clock:     clk,
		Log:       log,
		Metrics:   metrics,
		Publisher: publisher,
		WMS:       wmsClient,
		Slips:     infrapdf.NewMarotoPackingSlipGenerator(),
		Pricing:   pricing.NewCommissionEvaluator(cfg.Pricing.CommissionRate),
		Outbound:  outbound.Options{MaxAttempts: cfg.WMS.MaxAttempts, RetryDelay: cfg.WMS.RetryDelay},
	})
	repos := store.Repos()

	if cfg.WMS.SyncInterval > 0 {
		go runSyncLoop(ctx, clk, svc.Outbound, cfg.WMS.SyncInterval, log)
	}

	// Órdenes de canal por Kafka
	if cfg.Kafka.Enabled() && cfg.Kafka.OrderTopic != "" {
		listener := messaging.NewOrderListener(
			messaging.NewReader(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID),
			svc, clk, log, 3, time.Second,
		)
		defer listener.Close()
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Error().Err(err).Msg("consumidor de órdenes finalizado")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Marketplace Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Services:    svc,
		WarehouseUC: usecase.NewWarehouseUseCase(repos.Warehouses, clk),
		ProductUC:   usecase.NewProductUseCase(repos.Products, clk),
		Metrics:     metrics,
		Signer:      signer,
		Log:         log,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}

// runSyncLoop reintenta periódicamente los documentos de salida pendientes o fallidos.
func runSyncLoop(ctx context.Context, clk clock.Clock, out *outbound.UseCase, every time.Duration, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-clk.After(every):
		}
		synced, failed, err := out.SyncPending(ctx, 100)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("barrido de sincronización WMS")
			continue
		}
		if synced+failed > 0 {
			log.Info().Int("synced", synced).Int("failed", failed).Msg("barrido de sincronización WMS")
		}
	}
}
