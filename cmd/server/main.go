package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"supportchat/internal/bootstrap"
	"supportchat/internal/config"
	"supportchat/internal/platform/logger"
	httptransport "supportchat/internal/transport/http"
	"supportchat/internal/transport/http/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("bootstrap failed", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			zl.Error("close resources failed", zap.Error(err))
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		GinMode:     cfg.App.GinMode,
		Logger:      zl.Named("http"),
		AuthService: app.AuthService,
		ChatService: app.ChatService,
		Tokens:      app.Tokens,
		Health:      handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, app.HealthChecks()...),
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(server, zl)
}

func waitForShutdown(server *http.Server, zl *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}
