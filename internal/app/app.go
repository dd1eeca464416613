package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/txn"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/repository"
	"github.com/xenking/storefront/internal/repository/memory"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// stores bundles the repositories of one storage backend.
type stores struct {
	customers customer.Repository
	products  product.Repository
	orders    order.Repository
	tx        txn.Transactor
	ping      health.CheckFunc
	close     func()
}

func openPostgres(ctx context.Context, cfg *Config) (*stores, error) {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &stores{
		customers: repository.NewCustomerRepository(pool),
		products:  repository.NewProductRepository(pool),
		orders:    repository.NewOrderRepository(pool),
		tx:        repository.NewTransactor(pool),
		ping:      health.PingCheck(pool),
		close:     pool.Close,
	}, nil
}

func openMemory(ctx context.Context, cfg *Config) (*stores, error) {
	s := memory.NewStore()
	products := memory.NewProductRepository(s)
	if cfg.SeedCatalog {
		seed, err := catalog.Decode(db.SeedProducts)
		if err != nil {
			return nil, errors.Wrap(err, "decode bundled catalog")
		}
		if err := catalog.Seed(ctx, products, seed); err != nil {
			return nil, errors.Wrap(err, "seed catalog")
		}
	}
	return &stores{
		customers: memory.NewCustomerRepository(s),
		products:  products,
		orders:    memory.NewOrderRepository(s),
		tx:        memory.NewTransactor(s),
		close:     func() {},
	}, nil
}

func openPublisher(cfg *Config) (events.Publisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Nop{}, func() {}, nil
	}
	k, err := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	return k, func() { _ = k.Close() }, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	var (
		st  *stores
		err error
	)
	switch cfg.Storage {
	case StorageMemory:
		st, err = openMemory(ctx, cfg)
	default:
		st, err = openPostgres(ctx, cfg)
	}
	if err != nil {
		return err
	}
	defer st.close()

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return errors.Wrap(err, "open event publisher")
	}
	defer closePublisher()

	// Health check service.
	healthSvc := health.New()
	if st.ping != nil {
		healthSvc.AddReadinessCheck(cfg.Storage, 5*time.Second, st.ping)
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	customerService := customer.NewService(st.customers)
	orderService := order.NewService(st.orders, st.products, st.customers, st.tx)

	h, err := handler.New(customerService, orderService, st.products, handler.Options{
		Publisher:      publisher,
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", handler.NewEngine(h, serviceName, m.TracerProvider()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument(serviceName, m),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
