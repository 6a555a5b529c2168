package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/QctheGithuber/seckillweb/middleware/ratelimit"
	"github.com/QctheGithuber/seckillweb/seckill"
	"github.com/QctheGithuber/seckillweb/seckill/application"
	"github.com/QctheGithuber/seckillweb/seckill/domain"
	"github.com/QctheGithuber/seckillweb/seckill/infra"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err = rdb.Ping(pingCtx).Result()
	cancel()
	if err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	db, err := infra.OpenPostgres(cfg.databaseURL)
	if err != nil {
		log.Fatalf("postgres error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if cfg.initSchema {
		if err := infra.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("schema error: %v", err)
		}
	}

	admission := infra.NewAdmissionStore(rdb,
		infra.WithStrategy(cfg.claimStrategy),
		infra.WithFlagTTL(cfg.claimTTL),
	)
	ledger := infra.NewPostgresLedger(db)
	cache := infra.NewRedisSnapshotCache(rdb, infra.WithCacheTTL(cfg.cacheTTL))

	handler := &seckill.Handler{
		Claims:     application.NewCoordinator(admission, ledger, cache),
		Catalog:    application.NewCatalog(admission, ledger, cache),
		AdminToken: cfg.adminToken,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.rateEnabled {
		store := ratelimit.NewStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)
		handler.ClaimMiddleware = ratelimit.Middleware(ratelimit.Options{
			Store:      store,
			KeyFn:      ratelimit.PathParamKey("userID"),
			RetryAfter: cfg.rateRetryAfter,
		})
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.StripSlashes)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Printf("seckill listening on %s", cfg.listenAddr)
		log.Printf("claims: strategy=%s ttl=%s", cfg.claimStrategy, cfg.claimTTL)
		log.Printf("rate: enabled=%v rps=%.3f burst=%d", cfg.rateEnabled, cfg.rateRPS, cfg.rateBurst)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("seckill stopped")
}

type config struct {
	listenAddr    string
	databaseURL   string
	redisAddr     string
	redisPassword string
	redisDB       int
	initSchema    bool

	claimStrategy domain.ClaimStrategy
	claimTTL      time.Duration
	cacheTTL      time.Duration
	adminToken    string

	rateEnabled    bool
	rateRPS        float64
	rateBurst      int
	rateRetryAfter time.Duration
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.databaseURL = os.Getenv("DATABASE_URL")
	cfg.redisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.initSchema = getenvBoolDefault("INIT_SCHEMA", false)

	cfg.claimStrategy = domain.ClaimStrategy(getenvDefault("CLAIM_STRATEGY", string(domain.StrategyPermanentSet)))
	cfg.claimTTL = getenvDurationDefault("CLAIM_TTL", 10*time.Minute)
	cfg.cacheTTL = getenvDurationDefault("CACHE_TTL", 1*time.Hour)
	cfg.adminToken = os.Getenv("ADMIN_TOKEN")

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", false)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 5)
	cfg.rateBurst = getenvIntDefault("RATE_BURST", 10)
	cfg.rateRetryAfter = getenvDurationDefault("RATE_RETRY_AFTER", 1*time.Second)

	if cfg.databaseURL == "" {
		return config{}, errors.New("DATABASE_URL is required")
	}
	if !cfg.claimStrategy.Valid() {
		return config{}, errors.New("CLAIM_STRATEGY must be \"set\" or \"flag\"")
	}
	if cfg.claimStrategy == domain.StrategyFlagTTL && cfg.claimTTL <= 0 {
		return config{}, errors.New("CLAIM_TTL must be > 0 with CLAIM_STRATEGY=flag")
	}
	if cfg.rateEnabled {
		if cfg.rateRPS <= 0 {
			return config{}, errors.New("RATE_RPS must be > 0")
		}
		if cfg.rateBurst <= 0 {
			return config{}, errors.New("RATE_BURST must be > 0")
		}
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
