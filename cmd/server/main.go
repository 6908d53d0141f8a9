package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dcastano/stockpos/internal/adapter/handler"
	"github.com/dcastano/stockpos/internal/adapter/storage"
	"github.com/dcastano/stockpos/internal/config"
	"github.com/dcastano/stockpos/internal/core/service"
	"github.com/dcastano/stockpos/internal/port"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL pool: one borrowed connection/transaction per sale batch.
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	log.Info().Msg("connected to mysql")

	var rdb *redis.Client
	var idem port.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		idem = storage.NewRedisStore(rdb)
		log.Info().Str("addr", cfg.RedisAddr).Msg("duplicate-request gate enabled")
	}

	store := storage.NewMySQLStore(db)

	saleSvc := service.NewSaleService(store)
	productSvc := service.NewProductService(store.Stock(), store)
	reportSvc := service.NewReportService(store.Sales())
	authSvc := service.NewAuthService(store.Users(), []byte(cfg.JWTSecret), time.Hour)

	e := echo.New()
	e.HideBanner = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := handler.NewHTTPHandler(saleSvc, productSvc, reportSvc, authSvc, idem)
	h.Register(e, handler.AuthJWT(authSvc))

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Info().Msg("connections closed")
}
