// Standalone stub backend daemon for offline development of the client.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mitra/mitra/config"
	"mitra/mitra/stub"
	"mitra/mitra/utils/logging"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "stub-secret"
	}

	srv := &http.Server{
		Addr:    cfg.StubAddr,
		Handler: stub.NewServer(secret).Router(),
	}
	go func() {
		logging.AppLogger.Info("stub backend listening", zap.String("addr", cfg.StubAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
}
