package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/config"
	"github.com/ariebrainware/physio-pain-assessment/endpoint"
	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/ariebrainware/physio-pain-assessment/session"
	"github.com/ariebrainware/physio-pain-assessment/storage"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// backends are the shared connections opened at startup.
type backends struct {
	db  *gorm.DB
	rdb *redis.Client
	kv  storage.KV
}

func (b *backends) Close() {
	if b.kv != nil {
		if err := b.kv.Close(); err != nil {
			logger.Warn("closing history store", zap.Error(err))
		}
	}
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
}

// openBackends connects the database, redis and the history store selected by cfg.
// The database is always opened since it holds the event log.
func openBackends(cfg *config.Config) (*backends, error) {
	db, err := config.ConnectDatabase()
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	if err := db.AutoMigrate(&model.EventLog{}); err != nil {
		return nil, fmt.Errorf("migrating event log: %w", err)
	}

	rdb, err := config.ConnectRedis()
	if err != nil {
		if cfg.StorageBackend == config.StorageRedis {
			return nil, err
		}
		logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	}

	kv, err := storage.Open(cfg, db, rdb)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &backends{db: db, rdb: rdb, kv: kv}, nil
}

func newGateway(ctx context.Context, cfg *config.Config) (*gateway.Gateway, error) {
	if !cfg.HasGeminiCredential() {
		logger.Warn("GEMINI_API_KEY not set, AI endpoints will answer 500")
		return gateway.New(nil, nil, logger.Named("gateway")), nil
	}
	gen, err := gateway.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	logger.Info("Gemini generator ready", zap.String("model", gen.Model()))
	return gateway.New(gen, catalog.DefaultRegions(), logger.Named("gateway")), nil
}

func newRouter(cfg *config.Config, state middleware.AppState) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.EndpointCallLogger())
	r.Use(middleware.AppStateMiddleware(state))

	endpoint.RegisterRoutes(r, middleware.RateLimiter(middleware.RateLimitConfig{
		Limit:  cfg.AIRateLimit,
		Window: cfg.AIRateWindow,
	}))
	return r
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	util.SetEventLogger(logger)

	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	util.SetEventLoggerDB(b.db)

	if cfg.GeoIPDBPath != "" {
		if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
			logger.Warn("GeoIP lookups disabled", zap.Error(err))
		}
		defer util.CloseGeoIP()
	}

	store, err := session.Open(ctx, storage.NewHistoryRepository(b.kv), session.WithLogger(logger.Named("session")))
	if err != nil {
		return fmt.Errorf("loading session history: %w", err)
	}

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}

	router := newRouter(cfg, middleware.AppState{
		Store:         store,
		Gateway:       gw,
		Regions:       catalog.DefaultRegions(),
		MovementTests: catalog.DefaultMovementTests(),
		DB:            b.db,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("app", cfg.AppName), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
