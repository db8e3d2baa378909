package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"course_commerce/internal/config"
	"course_commerce/internal/notify"
	"course_commerce/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(os.Getenv("APP_ENV") != "production")
	logger := logging.Logger()

	consumer := notify.NewConsumer(cfg.KafkaBrokers, cfg.AlertTopic, cfg.AlertGroupID, logger, nil)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("topic", cfg.AlertTopic).Msg("alert worker started")
	consumer.Run(ctx)
	logger.Info().Msg("alert worker stopped")
}
