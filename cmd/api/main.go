// @title                       Distribuidora API
// @version                     1.0
// @description                 API de inventario y ventas de la distribuidora: libro de stock, lotes, pedidos, compras y devoluciones.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Bearer <token>
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jhoicas/Distribuidora-api/docs"
	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/events"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Distribuidora-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Distribuidora-api/internal/interfaces/http"
	"github.com/jhoicas/Distribuidora-api/pkg/config"
	"github.com/jhoicas/Distribuidora-api/pkg/logger"
)

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
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if _, err := postgres.Migrate(ctx, pool, logger.Component(log, "migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	// Eventos de cambio: siempre al log; a Redis si está configurado.
	emitter := events.Multi{events.NewLogEmitter(logger.Component(log, "events"))}
	var (
		locker    ports.JobLocker
		publisher *events.RedisPublisher
	)
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel, cfg.Ledger.EventBufferSize, logger.Component(log, "events"))
		emitter = append(emitter, publisher)
		locker = infraredis.NewLocker(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDRESS vacío: eventos solo en log y conciliación sin lock distribuido")
	}

	repos := postgres.NewRepos(pool)
	lookups := postgres.NewLookups(pool)
	ledgerMetrics := metrics.NewLedgerMetrics()

	runner := ledger.NewRunner(postgres.NewTxRunner(pool), emitter, ports.SystemClock)
	stockLedger := ledger.NewLedger(runner, repos.Movements, ledgerMetrics)
	tracker := batch.NewTracker(stockLedger, repos.Batches)
	seq := sequence.NewGenerator(sequence.Prefixes{
		Order:   cfg.Ledger.OrderPrefix,
		Payment: cfg.Ledger.VoucherPrefix,
		Return:  cfg.Ledger.ReturnPrefix,
	})
	orderSvc := orders.NewService(orders.Deps{
		Ledger:     stockLedger,
		Sequence:   seq,
		Customers:  lookups,
		Promotions: lookups,
		Statuses:   lookups,
		Orders:     repos.Orders,
		Payments:   repos.Payments,
	})
	returnSvc := returns.NewService(returns.Deps{
		Ledger:     stockLedger,
		Sequence:   seq,
		Orders:     orderSvc,
		Returns:    repos.Returns,
		WindowDays: cfg.Ledger.ReturnDaysLimit,
	})

	job := ledger.NewReconcileJob(stockLedger, locker, cfg.Ledger.ReconcileInterval, cfg.Ledger.Autocorrect, logger.Component(log, "reconcile"))
	jobDone := make(chan struct{})
	go func() {
		defer close(jobDone)
		job.Start(ctx)
	}()

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        cfg.App.Name,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		SwaggerFile: cfg.HTTP.SwaggerFile,
	})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:     stockLedger,
		Batches:    tracker,
		Alerts:     alerts.NewService(repos.Products, repos.Batches, ports.SystemClock),
		Orders:     orderSvc,
		Purchasing: purchasing.NewService(stockLedger, tracker, repos.Purchases),
		Returns:    returnSvc,
		Metrics:    ledgerMetrics.Handler(),
		JWTSecret:  cfg.JWT.Secret,
		Log:        logger.Component(log, "http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// El job puede estar terminando una corrección: sus eventos deben entrar antes de cerrar.
	select {
	case <-jobDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("job de conciliación sin terminar al apagar")
	}
	if publisher != nil {
		if err := publisher.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("eventos pendientes sin publicar")
		}
	}

	log.Info().Msg("aplicación detenida")
}
