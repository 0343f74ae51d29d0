package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"iffy/internal/adapter/repo"
	"iffy/internal/infra"
	"iffy/internal/metrics"
	"iffy/internal/providers/genai"
	"iffy/internal/storage"
	"iffy/internal/stylize"
	"iffy/internal/trigger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var q queue
	switch cfg.TriggerMode {
	case "redis":
		rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: redis connection failed")
		}
		defer rdb.Close()
		q = trigger.NewRedisQueue(rdb, cfg.StylizeQueueKey, 0)
	case "kafka":
		q = trigger.NewKafkaQueue(cfg.KafkaBrokers, cfg.KafkaTopic, "iffy-worker")
	default:
		logger.Fatal().Str("trigger_mode", cfg.TriggerMode).Msg("worker: needs TRIGGER_MODE redis or kafka")
	}
	defer q.Close()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	iffies := repo.NewIffyRepository(infra.NewSQLRunner(pool, infra.Component(logger, "sql")))

	store, err := storage.Open(ctx, storage.Config{
		Driver:  cfg.StorageDriver,
		Path:    cfg.StoragePath,
		BaseURL: cfg.StorageBaseURL,
		S3: storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	mt := metrics.New(prometheus.DefaultRegisterer)
	painter := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
		Observe: mt.ObserveProvider,
	})
	if painter.Synthetic() {
		logger.Warn().Str("model", painter.Model()).Msg("worker: gemini api key missing, using synthetic stylization")
	}

	w := &stylizeWorker{
		queue:  q,
		runner: stylize.NewService(iffies, store, painter, mt, logger),
		logger: infra.Component(logger, "worker"),
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
