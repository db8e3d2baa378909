package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"course_commerce/internal/backfill"
	"course_commerce/internal/catalog"
	"course_commerce/internal/config"
	"course_commerce/internal/model"
	"course_commerce/internal/notify"
	"course_commerce/pkg/logging"
)

func main() {
	batchSize := flag.Int("batch-size", 1000, "maximum number of courses to process in one batch")
	sleepTime := flag.Int("sleep-time", 10, "sleep time in seconds between batches")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(os.Getenv("APP_ENV") != "production")
	logger := logging.Logger()

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	if err := model.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	catalogClient := catalog.New(cfg.CatalogBaseURL, cfg.CatalogTimeout, rdb, cfg.CatalogCacheTTL, logger)

	producer := notify.NewProducer(cfg.KafkaBrokers, cfg.AlertTopic)
	defer producer.Close()

	job := backfill.New(db, backfill.Options{
		Catalog:    catalogClient,
		Notifier:   producer,
		OpsMailbox: cfg.OpsMailbox,
		Log:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := job.Run(ctx, *batchSize, time.Duration(*sleepTime)*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("backfill failed")
	}
	fmt.Printf("expired courses: %d, mobile SKUs created: %d, ops alerted: %v\n",
		stats.ExpiredCourses, stats.SKUsCreated, stats.Alerted)
}
