package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/workforce-monitor/internal/api"
	"github.com/ignite/workforce-monitor/internal/config"
	"github.com/ignite/workforce-monitor/internal/ingest"
	"github.com/ignite/workforce-monitor/internal/repository/postgres"
	"github.com/ignite/workforce-monitor/internal/service/dataset"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Optional Redis cache for the aggregated views.
	var cache *dataset.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable at %s, running without cache: %v", cfg.Redis.Addr, err)
		} else {
			cache = dataset.NewCache(rdb, time.Duration(cfg.Redis.CacheTTLMinutes)*time.Minute)
			log.Printf("Redis cache enabled at %s", cfg.Redis.Addr)
		}
	}

	datasets := dataset.NewService(cache)

	// Optional Postgres import log; required for the S3 watcher.
	var importLog *postgres.ImportLogRepo
	var imports api.ImportLister
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		importLog = postgres.NewImportLogRepo(db)
		if err := importLog.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure import log schema: %v", err)
		}
		imports = importLog
		log.Println("Import log ready")
	}

	var watcher *ingest.Watcher
	if cfg.Watcher.Enabled {
		if importLog == nil {
			log.Fatal("Watcher requires database.url for the import log")
		}
		watcher, err = ingest.NewWatcher(ingest.WatcherConfig{
			Bucket:     cfg.Watcher.S3Bucket,
			Region:     cfg.Watcher.S3Region,
			AWSProfile: cfg.Watcher.AWSProfile,
			Interval:   time.Duration(cfg.Watcher.IntervalMinutes) * time.Minute,
		}, importLog, datasets)
		if err != nil {
			log.Fatalf("Failed to build S3 watcher: %v", err)
		}
		watcher.Start()
		defer watcher.Stop()
		log.Printf("Watching s3://%s every %dm", cfg.Watcher.S3Bucket, cfg.Watcher.IntervalMinutes)
	}

	handlers := api.NewHandlers(datasets, imports, watcher)
	server := api.NewServer(handlers, cfg.Server.AllowedOrigins)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
