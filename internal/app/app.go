// Package app wires configuration, storage, domain services, and the HTTP
// server into a runnable API process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/cache"
	"github.com/copiblocks/shop-api/internal/domain/checkout"
	"github.com/copiblocks/shop-api/internal/domain/order"
	"github.com/copiblocks/shop-api/internal/domain/product"
	"github.com/copiblocks/shop-api/internal/events"
	"github.com/copiblocks/shop-api/internal/handler"
	"github.com/copiblocks/shop-api/internal/starknet"
	"github.com/copiblocks/shop-api/internal/storage/mongodb"
	"github.com/copiblocks/shop-api/pkg/health"
	"github.com/copiblocks/shop-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Order document store.
	db, err := mongodb.Connect(ctx, cfg.Mongo.URL, cfg.Mongo.Database)
	if err != nil {
		return errors.Wrap(err, "connect mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			lg.Error("Mongo disconnect error", zap.Error(err))
		}
	}()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("mongodb", 5*time.Second, func(ctx context.Context) error {
		return db.Client().Ping(ctx, nil)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Product catalog.
	products := product.DefaultProducts()
	if cfg.Catalog.Path != "" {
		products, err = product.LoadProducts(cfg.Catalog.Path)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
	}
	catalog := product.NewCatalog(products)

	// Order service, with optional dedupe and event publishing.
	orderRepo := mongodb.NewOrderRepository(db, cfg.Mongo.Collection)
	var orderOpts []order.Option
	if cfg.Orders.Dedupe {
		orderOpts = append(orderOpts, order.WithDedupe())
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg)
		if err != nil {
			return errors.Wrap(err, "create event publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Error("Publisher close error", zap.Error(err))
			}
		}()
		orderOpts = append(orderOpts, order.WithNotifier(publisher))
	}
	orderService := order.NewService(orderRepo, orderOpts...)
	if cfg.Orders.Dedupe {
		if err := orderService.WarmDedupe(ctx, orderRepo.TransactionHashes); err != nil {
			return errors.Wrap(err, "warm dedupe guard")
		}
	}

	// Wallet agent, with an optional Redis-backed balance cache.
	var wallet starknet.Wallet = starknet.NewAgentClient(
		cfg.Wallet.AgentURL,
		cfg.Starknet.TokenDecimals,
		&http.Client{Timeout: cfg.Wallet.Timeout},
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Error("Redis close error", zap.Error(err))
			}
		}()
		wallet = cache.WrapWallet(wallet, rdb, cfg.Redis.BalanceTTL, lg)
	}

	checkoutService := checkout.NewService(checkout.Config{
		ChamberAddress: cfg.Starknet.ChamberAddress,
		TokenAddress:   cfg.Starknet.TokenAddress,
		TokenDecimals:  cfg.Starknet.TokenDecimals,
	}, catalog, wallet, orderService, lg)

	// HTTP handlers.
	h := handler.NewHandler(catalog, orderService, checkoutService, wallet, cfg.Starknet.TokenAddress)

	api := otelhttp.NewHandler(h.Routes(), "shop-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", api))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
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
