package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qcss/internal/dispatcher"
	"qcss/internal/httpapi"
	"qcss/internal/migrations"
	"qcss/internal/store"
	"qcss/pkg/config"
	"qcss/pkg/database"
	"qcss/pkg/logger"
	"qcss/pkg/metrics"
)

// fleetSweepInterval is how often collectord refreshes every configured
// device in the background, independent of the refresh-on-read decorator
// in internal/httpapi. It is also what drives the periodic expiry sweep,
// since Dispatcher.Refresh("", "", "") runs one at the end of a fleet pass.
const fleetSweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("error")
		logger.Log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	metrics.InitMetrics("qcss", "collectord")
	metrics.Get().SetServiceInfo("dev")

	logger.Log.Info("starting collectord", "web", cfg.Web.Address())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Database.Enabled {
		logger.Log.Error("collectord requires database.enabled")
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.FS, "."); err != nil {
		logger.Log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	reader := store.NewReader(db)
	writer := store.NewWriter(db)
	expirer := store.NewExpirer(db, cfg.Collector.Expire)

	disp := dispatcher.New(cfg, writer, expirer)

	stopSweep := make(chan struct{})
	go fleetSweep(ctx, disp, stopSweep)

	var server *http.Server
	if cfg.Web.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/", httpapi.NewServer(reader, disp))
		mux.HandleFunc("/health", handleHealth)
		mux.Handle("/metrics", metrics.Handler())

		server = &http.Server{
			Addr:    cfg.Web.Address(),
			Handler: mux,
		}
		go func() {
			logger.Log.Info("collectord HTTP API listening", "address", cfg.Web.Address())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Error("HTTP API server failed", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down collectord")
	close(stopSweep)
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("HTTP API shutdown error", "error", err)
		}
	}

	logger.Log.Info("collectord stopped")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// fleetSweep runs a full-fleet refresh (and, at its tail, an expiry sweep)
// every fleetSweepInterval until stop is closed or ctx is cancelled.
func fleetSweep(ctx context.Context, disp *dispatcher.Dispatcher, stop <-chan struct{}) {
	ticker := time.NewTicker(fleetSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := disp.Refresh(ctx, "", "", ""); err != nil {
				logger.Log.Warn("fleet sweep failed", "error", err)
			}
		}
	}
}
