package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"iffy/internal/adapter/repo"
	"iffy/internal/catalog"
	"iffy/internal/gift"
	"iffy/internal/http/handlers"
	"iffy/internal/http/httpapi"
	"iffy/internal/infra"
	"iffy/internal/infra/geoip"
	"iffy/internal/metrics"
	"iffy/internal/providers/genai"
	"iffy/internal/providers/vision"
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

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()
	iffies := repo.NewIffyRepository(infra.NewSQLRunner(pool, infra.Component(logger, "sql")))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
	}

	variant, err := catalog.ResolveVariant(cfg.CatalogVariant, catalog.VariantOverrides{
		SheetIndex:   cfg.CatalogSheetIndex,
		BracketsFile: cfg.AgeBracketsFile,
		DefaultEntry: cfg.DefaultEntryName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid catalog variant")
	}
	source, err := catalog.NewSource(ctx, catalog.SourceConfig{
		Kind:     cfg.CatalogSource,
		XLSXPath: cfg.CatalogXLSXPath,
		Sheets: catalog.SheetsOptions{
			SpreadsheetID:       cfg.GiftSheetID,
			ServiceAccountEmail: cfg.GoogleServiceAccountEmail,
			PrivateKey:          cfg.GooglePrivateKey,
		},
	}, variant)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build catalog source")
	}
	cacheOpts := []catalog.CacheOption{catalog.WithRefreshObserver(mt.ObserveCatalogRefresh)}
	if rdb != nil {
		cacheOpts = append(cacheOpts, catalog.WithSnapshot(catalog.NewRedisSnapshot(rdb, "", 24*time.Hour)))
	}
	cache := catalog.NewCache(source, cfg.CatalogCacheTTL, infra.Component(logger, "catalog"), cacheOpts...)

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
		logger.Fatal().Err(err).Msg("failed to open blob store")
	}

	trig, err := trigger.New(trigger.Options{
		Mode:         cfg.TriggerMode,
		BaseURL:      cfg.StylizeBaseURL,
		Redis:        rdb,
		QueueKey:     cfg.StylizeQueueKey,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stylization trigger")
	}
	if k, ok := trig.(*trigger.Kafka); ok {
		defer k.Close()
	}

	policy, err := gift.NewPolicy(variant, cfg.FallbackOrder, cfg.FallbackImageURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid gift policy")
	}
	analyzer, recommender := newVision(cfg, logger, mt)
	gifts := gift.NewService(gift.Deps{
		Repo:                iffies,
		Catalog:             cache,
		Analyzer:            analyzer,
		Recommender:         recommender,
		Store:               store,
		Trigger:             trigger.Instrument(trig, cfg.TriggerMode, mt),
		Brackets:            variant.Brackets,
		Policy:              policy,
		Metrics:             mt,
		Logger:              infra.Component(logger, "gift"),
		MaxImageDimension:   cfg.MaxImageDimension,
		MaxImagePixels:      cfg.MaxImagePixels,
		MarkFailedOnTrigger: cfg.TriggerFailureMarksFailed,
	})

	painter := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
		Observe: mt.ObserveProvider,
	})
	if painter.Synthetic() {
		logger.Warn().Msg("GEMINI_API_KEY not set, stylization produces synthetic images")
	}
	stylizer := stylize.NewService(iffies, store, painter, mt, logger)

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	app := &handlers.App{
		Gifts:          gifts,
		Iffies:         iffies,
		Stylizer:       stylizer,
		Logger:         logger,
		Ping:           pool.Ping,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	staticDir := ""
	if cfg.StorageDriver == "fs" {
		staticDir = cfg.StoragePath
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		JWTSecret:       cfg.JWTSecret,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   geo.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		Gatherer:        reg,
		StaticDir:       staticDir,
	})

	logger.Info().
		Str("catalog_variant", variant.Name).
		Str("catalog_source", cfg.CatalogSource).
		Str("trigger_mode", cfg.TriggerMode).
		Str("storage_driver", cfg.StorageDriver).
		Msg("iffy api starting")

	server := infra.NewHTTPServer(cfg, router, logger)
	if err := server.Run(ctx, 30*time.Second); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	gifts.Wait()
	logger.Info().Msg("server stopped")
}

func newVision(cfg *infra.Config, logger zerolog.Logger, mt *metrics.Metrics) (gift.Analyzer, gift.Recommender) {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set, every photo is treated as a non-person subject")
		static := vision.NewStatic()
		return static, static
	}
	client, err := vision.NewOpenAIClient(vision.Options{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Organization:   cfg.OpenAIOrg,
		VisionModel:    cfg.OpenAIVisionModel,
		RecommendModel: cfg.OpenAIRecommendModel,
		Logger:         logger,
		Observe:        mt.ObserveProvider,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build openai client")
	}
	return client, client
}
