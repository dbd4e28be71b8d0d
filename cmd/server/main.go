package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/config"
	"github.com/iliyamo/service-booking/internal/database"
	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/logger"
	"github.com/iliyamo/service-booking/internal/metrics"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/obs"
	"github.com/iliyamo/service-booking/internal/queue"
	"github.com/iliyamo/service-booking/internal/repository"
	"github.com/iliyamo/service-booking/internal/router"
	"github.com/iliyamo/service-booking/internal/service"
)

// stores bundles the ledger and the read-only lookups for one driver.
type stores struct {
	ledger   booking.Ledger
	services booking.ServiceLookup
	users    booking.UserLookup
	ratings  booking.RatingLookup
	db       *sql.DB // nil for the memory driver
}

func openStores(ctx context.Context, cfg config.Config, lg *zap.Logger) (stores, error) {
	if cfg.LedgerDriver == config.LedgerMemory {
		lg.Warn("using in-memory ledger with demo catalog; data is lost on restart")
		catalog := repository.NewDemoCatalog()
		return stores{ledger: repository.NewMemoryLedger(), services: catalog, users: catalog, ratings: catalog}, nil
	}

	db, err := database.Open(database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: cfg.DBMaxConns,
	})
	if err != nil {
		return stores{}, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	return stores{
		ledger:   repository.NewBookingLedger(db, cfg.StoreTimeout),
		services: repository.NewServiceRepo(db),
		users:    repository.NewUserRepo(db),
		ratings:  repository.NewReviewRepo(db),
		db:       db,
	}, nil
}

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		lg.Fatal("tracer init failed", zap.Error(err))
	}

	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("ledger store unavailable", zap.String("driver", cfg.LedgerDriver), zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}

	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		lg.Fatal("cache config", zap.Error(err))
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		lg.Fatal("rate limit config", zap.Error(err))
	}
	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; report cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub := service.NewRabbitPublisher(cfg.RabbitMQURL, lg.Named("events"))
		defer pub.Close()
		events = pub
	}
	if cfg.AuditConsumer {
		consumer := &queue.AuditConsumer{URL: cfg.RabbitMQURL, Path: cfg.AuditLogPath, Log: lg.Named("audit")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	m := metrics.New()
	bookings := service.NewBookingService(service.Deps{
		Ledger:   st.ledger,
		Services: st.services,
		Users:    st.users,
		Events:   events,
		Metrics:  m,
		Log:      lg.Named("bookings"),
	})
	stats := service.NewStatsService(service.StatsDeps{
		Ledger:   st.ledger,
		Services: st.services,
		Users:    st.users,
		Ratings:  st.ratings,
		Log:      lg.Named("stats"),
	})

	e := router.New(router.Deps{
		Bookings:  handler.NewBookingHandler(bookings, lg),
		Reports:   handler.NewReportHandler(stats, lg, cfg.RevenueWindowDays, cfg.TopLimit),
		Ready:     &handler.ReadinessHandler{DB: st.db, Redis: rdb},
		Metrics:   m,
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(cacheCfg, rdb, lg.Named("cache")),
		Limiter:   middleware.NewTokenBucket(rateCfg, rdb, lg.Named("ratelimit")),
		Log:       lg.Named("http"),
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("ledger", cfg.LedgerDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		lg.Warn("tracer shutdown", zap.Error(err))
	}
}
