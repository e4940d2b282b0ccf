package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func startHTTP(ctx context.Context, addr string, logger *zap.Logger) {
	srv := &http.Server{Addr: addr, Handler: http.DefaultServeMux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info("http_listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http_server_down", zap.Error(err))
	}
}
