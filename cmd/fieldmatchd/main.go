package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldmatch-backend/config"
	"fieldmatch-backend/internal/api"
	"fieldmatch-backend/internal/booking"
	"fieldmatch-backend/internal/db"
	"fieldmatch-backend/internal/finding"
	"fieldmatch-backend/internal/notification"
	"fieldmatch-backend/internal/reconcile"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/wallet"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "fieldmatch-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Check for VAPID keys
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Escrow ledger and data store
	ledger := wallet.NewLedger(cfg.System.AccountID)
	appStore := store.NewGormStore(gormDB, ledger)
	logger.Println("data store initialized")

	// Notification worker pool and persisting notifier
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	pool.Start(ctx)
	notifier := notification.NewService(gormDB, pool)

	// Domain services share the configured business timezone
	loc := cfg.Location()
	bookings := booking.NewService(appStore, notifier, loc)
	posts := finding.NewPostService(appStore, notifier, loc)
	requests := finding.NewRequestService(appStore, notifier, loc)

	// Background reconciler: expire stale WAITING bookings, mark overdue posts
	reconciler := reconcile.New(&cfg.Reconciler, bookings, posts)
	go reconciler.Run(ctx)

	// Initialize router
	router := api.NewRouter(cfg, appStore, bookings, posts, requests, ledger, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
