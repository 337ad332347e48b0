package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/bananas/internal/config"
	"github.com/MrJamesThe3rd/bananas/internal/database"
	"github.com/MrJamesThe3rd/bananas/internal/export"
	bananasHttp "github.com/MrJamesThe3rd/bananas/internal/http"
	exportHandler "github.com/MrJamesThe3rd/bananas/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/bananas/internal/http/importcsv"
	productionHandler "github.com/MrJamesThe3rd/bananas/internal/http/production"
	"github.com/MrJamesThe3rd/bananas/internal/importer"
	"github.com/MrJamesThe3rd/bananas/internal/production"
	productionStore "github.com/MrJamesThe3rd/bananas/internal/production/store"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	paging := production.Paging{
		DefaultSize: cfg.Ledger.DefaultPageSize,
		MinSize:     cfg.Ledger.MinPageSize,
		MaxSize:     cfg.Ledger.MaxPageSize,
	}

	var (
		productionService = production.NewService(productionStore.New(db), paging)
		importService     = importer.NewService(productionService)
		exportService     = export.NewService(productionService)
	)

	var (
		productionH = productionHandler.NewHandler(productionService)
		importH     = importHandler.NewHandler(importService, cfg.Import.MaxBytes)
		exportH     = exportHandler.NewHandler(exportService)
	)

	router := bananasHttp.New(bananasHttp.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		Timeout:          cfg.Server.Timeout,
		DB:               db,
		ImportsPerMinute: cfg.Import.RatePerMinute,
		ImportBurst:      cfg.Import.Burst,
	}, productionH, importH, exportH)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}
