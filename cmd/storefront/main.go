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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/app"
	"github.com/ariefcatur/mobirepair-storefront/internal/config"
	"github.com/ariefcatur/mobirepair-storefront/internal/httpx"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger, app.Deps{})
	if err != nil {
		logger.Fatal("app init", zap.Error(err))
	}
	s := a.Start(ctx)
	logger.Info("session", zap.String("status", string(s.Status)))

	router := httpx.NewRouter(logger.Named("http"))
	(&httpx.StorefrontHandler{App: a}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	a.Close() // flushes the activity producer
	cancel()
}
