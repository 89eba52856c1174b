package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"golang.org/x/sync/errgroup"

	"github.com/Prince-Singh-05/Lottery-POS/internal/cache"
	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/config"
	"github.com/Prince-Singh-05/Lottery-POS/internal/handlers"
	"github.com/Prince-Singh-05/Lottery-POS/internal/metrics"
	"github.com/Prince-Singh-05/Lottery-POS/internal/services"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage/memory"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage/postgres"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage/postgres/migrations"
)

func main() {
	envFile := flag.String("env", "", "optional .env file (defaults to ./.env)")
	flag.Parse()

	// 1. Load configuration and the ticket type catalog.
	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defer logger.Init("lottery-pos", cfg.Verbose, false, io.Discard).Close()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatalf("Failed to load catalog: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the store.
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store, err)
	}
	defer closeStore()

	// 3. Optional report cache.
	var reportCache services.ReportCache
	if cfg.RedisAddr != "" {
		rc, err := cache.Dial(ctx, cfg.RedisAddr, cfg.ReportCacheTTL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()
		reportCache = rc
		logger.Infof("Caching weekly reports in redis at %s for %s", cfg.RedisAddr, cfg.ReportCacheTTL)
	}

	// 4. Wire the services.
	clk := clock.NewSystem()
	m := metrics.New()
	svc := handlers.Services{
		Registry:  services.NewRegistry(store, catalog, clk, m),
		Planner:   services.NewPlanner(store, services.NewGenerator(catalog, nil), clk, m).WithMaxAllocation(cfg.MaxAllocation),
		Lifecycle: services.NewLifecycle(store, clk, services.ClaimPolicy(cfg.ClaimPolicy), m),
		Reporter:  services.NewReporter(store, clk, cfg.ReportClaimLimit, reportCache),
		Shops:     services.NewShops(store, store, clk),
	}
	limiter := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	httpHandler := handlers.NewHTTPHandler(svc, handlers.NewAuthenticator(cfg.JWTSecret), limiter)

	// 5. Set up the Gin router.
	r := gin.Default()
	r.Use(m.Middleware())
	r.GET("/metrics", gin.WrapH(m.Handler()))
	httpHandler.RegisterPublicRoutes(r)
	httpHandler.RegisterRoutes(r)

	// 6. Start the expiry sweeper.
	sweeper := services.NewSweeper(store, clk, m)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Fatalf("Failed to start sweeper: %v", err)
	}

	// 7. Run the server until a signal arrives.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server starting on http://localhost:%s (store=%s, claims=%s)", cfg.Port, cfg.Store, cfg.ClaimPolicy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Cleanup(30 * time.Minute); n > 0 {
					logger.Infof("Performed cleanup of %d idle rate limiters.", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		sweeper.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.Store != config.StorePostgres {
		logger.Infof("Using in-memory store")
		return memory.New(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(db.DB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if names, err := migrations.Names(); err == nil {
		logger.Infof("Using postgres store, migrations %v applied", names)
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}
