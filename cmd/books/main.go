package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/eretailgoals/books-backend/internal/app"
	"github.com/eretailgoals/books-backend/internal/banking"
	"github.com/eretailgoals/books-backend/internal/invoices"
	"github.com/eretailgoals/books-backend/internal/platform/cache"
	"github.com/eretailgoals/books-backend/internal/platform/db"
	"github.com/eretailgoals/books-backend/internal/reports"
	"github.com/eretailgoals/books-backend/internal/users"
	"github.com/eretailgoals/books-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, users.NewBcryptHasher())
	usersHandler := users.NewHandler(logger, usersService)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	bankingRepo := banking.NewRepository(pool)
	bankingService := banking.NewService(bankingRepo)
	bankingHandler := banking.NewHandler(logger, bankingService)

	reportsCache := reports.NewCache(redisClient, cfg.ReportsCacheTTL)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(invoicesRepo, bankingRepo, reportsRepo, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		UsersHandler:    usersHandler,
		InvoicesHandler: invoicesHandler,
		BankingHandler:  bankingHandler,
		ReportsHandler:  reportsHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
