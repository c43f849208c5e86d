package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/hnjobs/api"
	dbfs "github.com/garnizeh/hnjobs/db"
	"github.com/garnizeh/hnjobs/internal/ai"
	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/internal/db"
	"github.com/garnizeh/hnjobs/internal/hn"
	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/internal/repository/sqlite"
	"github.com/garnizeh/hnjobs/internal/scheduler"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/ollama"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	hn.SetLogger(logger)
	ollama.SetLogger(logger)
	ai.SetProcessorLogger(logger)

	log.Printf("Starting hnjobs server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	// Open database connection and apply migrations
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	sqlRepo := sqlite.New(database)
	jobRepo := jobs.NewRepository(database)
	repo := &repository.Repository{
		Story:    sqlRepo,
		Comment:  sqlRepo,
		Admin:    sqlRepo,
		Schema:   sqlRepo,
		Template: sqlRepo,
		Job:      jobRepo,
	}

	ollamaClient, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		log.Fatalf("Failed to create ollama client: %v", err)
	}

	engine, err := ai.NewEngine(ctx, ollamaClient, cfg.Engine, sqlRepo, sqlRepo)
	if err != nil {
		log.Fatalf("Failed to create extraction engine: %v", err)
	}
	processor := ai.NewProcessor(engine, sqlRepo)

	hnClient := hn.NewClient(cfg.HN, nil)

	// Worker pool with the two job handlers: thread sync and extraction.
	// The syncer enqueues follow-up extraction jobs on the same pool, so the
	// handlers map is filled in after both exist.
	handlers := map[string]jobs.Handler{}
	pool := jobs.NewWorkerPool(jobRepo, handlers, logger, cfg.Workers)
	syncer := hn.NewSyncer(hnClient, sqlRepo, sqlRepo, pool, logger)
	handlers[jobs.TypeSyncThread] = func(ctx context.Context, j *models.BackgroundJob) error {
		var p jobs.SyncThreadPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return err
		}
		_, err := syncer.SyncThread(ctx, p.HNID)
		return err
	}
	handlers[jobs.TypeExtractPosting] = func(ctx context.Context, j *models.BackgroundJob) error {
		return processor.HandleExtractJob(ctx, j.Payload)
	}
	pool.Start(ctx)

	sched := scheduler.New(cfg.Scheduler, pool, sqlRepo, logger)
	sched.Start(ctx)

	handler := api.SetupRoutes(cfg, version, buildTime, repo, pool, processor, engine)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	sched.Stop()
	pool.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := ollamaClient.Close(); err != nil {
		log.Printf("Error closing ollama client: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
