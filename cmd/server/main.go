// Package main is the entry point for the lumastrip palette server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumastrip/server/internal/api"
	"github.com/lumastrip/server/internal/cache"
	"github.com/lumastrip/server/internal/config"
	"github.com/lumastrip/server/internal/render"
	"github.com/lumastrip/server/internal/service"
	"github.com/spf13/pflag"
)

func main() {
	// Parse command line flags
	configPath := pflag.StringP("config", "c", "config/server.yaml", "Path to configuration file")
	port := pflag.IntP("port", "p", 0, "Override server port from config")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting lumastrip server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager (shared across all palettes)
	cacheManager, err := cache.NewManager(cache.Config{
		StripCacheSizeMB: cfg.Cache.StripSizeMB,
		StripTTL:         time.Duration(cfg.Cache.StripTTLMinutes) * time.Minute,
		QueryCacheSize:   cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Initialize strip renderer (shared across all palettes)
	stripRenderer := render.NewStripRenderer(render.Config{
		PixelSize: cfg.Render.PixelSize,
	})

	// Initialize palette registry
	names := cfg.PaletteNames()
	registry := api.NewPaletteRegistry(cfg.DefaultPalette, names, cfg.Server.Title)

	log.Printf("Initializing %d palette(s), default: %s", len(names), cfg.DefaultPalette)

	for _, name := range names {
		p, err := cfg.Palettes.Defs[name].Build()
		if err != nil {
			log.Fatalf("Failed to build palette %q: %v", name, err)
		}
		log.Printf("  [%s] %s", name, p)

		registry.Register(name, service.NewPaletteService(service.PaletteServiceConfig{
			Name:           name,
			Palette:        p,
			Cache:          cacheManager,
			Renderer:       stripRenderer,
			MaxWidth:       cfg.Render.MaxWidth,
			MaxSheetPixels: cfg.Exports.MaxSheetPixels,
		}))
	}

	// Initialize job manager for sprite-sheet exports (SQLite persistence)
	jobManager, err := api.NewJobManager(api.JobManagerConfig{
		MaxConcurrent: cfg.Exports.MaxConcurrent,
		SQLitePath:    cfg.Exports.SQLitePath,
		RetentionDays: cfg.Exports.RetentionDays,
		CleanupPeriod: 1 * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to initialize job manager: %v", err)
	}
	log.Printf("Export job manager: max_concurrent=%d, retention_days=%d, sqlite=%s",
		cfg.Exports.MaxConcurrent, cfg.Exports.RetentionDays, cfg.Exports.SQLitePath)

	// Wire up export service as job executor
	exportService := service.NewExportService(registry)
	jobManager.Executor = exportService.ExecuteExportJob

	jobManager.Start()
	defer jobManager.Stop()

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		Cache:       cacheManager,
		CORSOrigins: cfg.Server.CORSOrigins,
		JobManager:  jobManager,
		StripHeight: cfg.Render.StripHeight,
		MaxFrames:   cfg.Exports.MaxFrames,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
