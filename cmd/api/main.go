package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/airline-ticket-service/internal/api"
	"github.com/sanosuguru/airline-ticket-service/internal/api/handler"
	"github.com/sanosuguru/airline-ticket-service/internal/api/middleware"
	"github.com/sanosuguru/airline-ticket-service/internal/application"
	"github.com/sanosuguru/airline-ticket-service/internal/clock"
	"github.com/sanosuguru/airline-ticket-service/internal/config"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/pricing"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/airline-ticket-service/internal/infrastructure/postgres"
	"github.com/sanosuguru/airline-ticket-service/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/airline-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/logger"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/metrics"
	"github.com/sanosuguru/airline-ticket-service/internal/worker"
)

func main() {
	// .env は任意
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer func() { _ = logger.Get().Sync() }()
	m := metrics.Init()

	inv, err := seat.NewInventory(seat.DefaultLayout, pricing.NewEngine())
	if err != nil {
		logger.Fatal("座席在庫の初期化に失敗しました", zap.Error(err))
	}
	clk := clock.NewSystem()

	opts := []application.Option{
		application.WithHoldDuration(cfg.Reservation.HoldExpiration),
		application.WithStrictLevelFilter(cfg.Reservation.StrictLevelFilter),
		application.WithMetrics(m),
	}
	checks := map[string]handler.Pinger{}

	// 空席数キャッシュ
	if cfg.Redis.Enabled {
		rc := redisinfra.NewClient(&cfg.Redis)
		defer rc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisinfra.Ping(ctx, rc); err != nil {
			logger.Warn("Redisに接続できません。キャッシュなしで起動します", zap.Error(err))
		}
		cancel()
		opts = append(opts, application.WithAvailabilityCache(redisinfra.NewAvailabilityCache(rc), cfg.Redis.CacheTTL))
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) }
	}

	// 予約確定ジャーナル
	if cfg.Database.Enabled {
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			logger.Fatal("データベース接続エラー", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
		opts = append(opts, application.WithJournal(postgres.NewTxManager(db), postgres.NewConfirmationRepository(db)))
		checks["postgres"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	}

	// 予約確定イベント
	if cfg.Events.Enabled {
		pub, err := rabbitmq.NewPublisher(cfg.Events.URL, cfg.Events.Queue)
		if err != nil {
			logger.Fatal("RabbitMQ接続エラー", zap.Error(err))
		}
		defer pub.Close()
		opts = append(opts, application.WithPublisher(pub))
	}

	svc := application.NewReservationService(inv, hold.NewLedger(clk), clk, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e, m)
	handler.RegisterRoutes(e, svc, handler.NewHealthHandler(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(middleware.LoadMetricsConfig()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var sweeper *worker.ExpiredHoldSweeper
	if cfg.Reservation.SweepEnabled {
		sweeper = worker.NewExpiredHoldSweeper(svc, cfg.Reservation.SweepInterval)
		go sweeper.Start(ctx)
	}

	go func() {
		logger.Info("サーバー起動",
			zap.String("port", cfg.Server.Port),
			zap.Duration("hold_expiration", svc.HoldDuration()),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
