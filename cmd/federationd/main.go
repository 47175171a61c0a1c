package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qcss/internal/federation"
	"qcss/pkg/config"
	"qcss/pkg/logger"
	"qcss/pkg/metrics"
)

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

	metrics.InitMetrics("qcss", "federationd")
	metrics.Get().SetServiceInfo("dev")

	if len(cfg.MetaWeb.Proxy) == 0 {
		logger.Log.Error("federationd requires at least one metaweb.proxy backend")
		os.Exit(1)
	}

	logger.Log.Info("starting federationd", "address", cfg.MetaWeb.Address(), "backends", cfg.MetaWeb.Proxy)

	f := federation.New(cfg.MetaWeb)

	mux := http.NewServeMux()
	mux.Handle("/", federation.NewServer(f))
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    cfg.MetaWeb.Address(),
		Handler: mux,
	}

	go func() {
		logger.Log.Info("federationd listening", "address", cfg.MetaWeb.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("federationd server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down federationd")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("federationd shutdown error", "error", err)
	}

	logger.Log.Info("federationd stopped")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
