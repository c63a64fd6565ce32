package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/aionios/aionios/internal/config"
	"github.com/aionios/aionios/internal/infra/database"
	"github.com/aionios/aionios/internal/infra/gateway"
	"github.com/aionios/aionios/internal/infra/repository"
	"github.com/aionios/aionios/internal/infra/telemetry"
	"github.com/aionios/aionios/internal/present/rest"
	"github.com/aionios/aionios/internal/service"
	"github.com/aionios/aionios/internal/usecase"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config",
			slog.String("path", configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.EnableTrace {
		cleanup, err := telemetry.SetupTraceProvider(ctx, cfg.Server.TraceEndpoint, "aionios")
		if err != nil {
			slog.Error("failed to setup tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(cfg.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	capsuleRepo := repository.NewCapsuleRepository(db)

	var ledger usecase.Ledger
	if cfg.Ledger.RPCEndpoint == "" {
		slog.Info("no ledger endpoint configured, using in-memory ledger")
		ledger = gateway.NewMemoryLedger()
	} else {
		ledger, err = gateway.NewEthereumLedger(ctx, cfg.Ledger.RPCEndpoint, cfg.Ledger.ContractAddress)
		if err != nil {
			slog.Error("failed to connect ledger", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var store usecase.ContentStore
	if cfg.IPFS.APIEndpoint == "" {
		slog.Info("no ipfs endpoint configured, using in-memory content store")
		store = gateway.NewMemoryContentStore()
	} else {
		store = gateway.NewIPFSGateway(cfg.IPFS.APIEndpoint)
	}

	var sig *service.SignalService
	var publisher usecase.EventPublisher
	if cfg.Server.RedisAddr != "" {
		rdb := database.NewRedis(cfg.Server.RedisAddr, "", cfg.Server.RedisDB)
		sig = service.NewSignalService(rdb)
		publisher = sig
	}

	uc := usecase.NewCapsuleUsecase(capsuleRepo, ledger, store, publisher)

	listing := service.NewListingService(uc, nil, time.Minute)
	if cfg.Server.MemcachedAddr != "" {
		mc := database.NewMemcached(cfg.Server.MemcachedAddr)
		listing = service.NewListingService(uc, mc, time.Minute)
	}

	sweeper := service.NewSweeperService(uc, time.Duration(cfg.Sweeper.IntervalSeconds)*time.Second)
	go sweeper.Run(ctx)

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware("aionios"))
	}

	handler := rest.NewHandler(uc, listing, sig)
	handler.RegisterRoutes(e)

	go func() {
		slog.Info("listening", slog.String("addr", cfg.Server.Listen))
		if err := e.Start(cfg.Server.Listen); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", slog.String("error", err.Error()))
	}
}
