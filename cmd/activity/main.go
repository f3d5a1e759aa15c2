package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/config"
	kafkax "github.com/ariefcatur/mobirepair-storefront/internal/kafka"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
	"github.com/ariefcatur/mobirepair-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &activity.Service{Redis: rdb, Log: logger.Named("activity"), Name: "activity"}

	group := config.Getenv("ACTIVITY_GROUP", cfg.ServiceName+"-activity")
	workers := config.Atoi(os.Getenv("ACTIVITY_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, cfg.ActivityTopic, workers, logger.Named("consumer"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("activity consumer started",
			zap.String("group", group), zap.String("topic", cfg.ActivityTopic), zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleActivity); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
