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

	"github.com/SherClockHolmes/webpush-go"

	"occupancy-status-backend/config"
	"occupancy-status-backend/internal/api"
	"occupancy-status-backend/internal/auth"
	"occupancy-status-backend/internal/db"
	"occupancy-status-backend/internal/notification"
	"occupancy-status-backend/internal/notify"
	"occupancy-status-backend/internal/store"
	"occupancy-status-backend/internal/tracker"
	"occupancy-status-backend/internal/visibility"
	"occupancy-status-backend/internal/ws"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "occupancy-backend ", log.LstdFlags)

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

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	occupancyTracker := tracker.New(appStore)

	window, err := visibility.NewWindow(cfg.Visibility)
	if err != nil {
		logger.Fatalf("invalid visibility configuration: %v", err)
	}
	policy := auth.NewPolicy(cfg.Auth)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()

	// Web push is optional; without VAPID keys only the websocket channel runs.
	var workerPool *notification.WorkerPool
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		workerPool.Start(ctx)
		logger.Println("web push worker pool started")
	} else {
		logger.Println("VAPID keys not configured; web push notifications disabled")
	}

	var dispatcher notify.Dispatcher
	if workerPool != nil {
		dispatcher = workerPool
	}
	notifier := notify.New(window, hub, dispatcher)

	// Initialize router
	handler := api.NewHandler(appStore, occupancyTracker, notifier, window, policy, webpushOptions)
	router := api.NewRouter(ctx, &cfg.Server, handler, hub)
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

	hub.Close()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
