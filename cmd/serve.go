package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RishiKendai/textscan/internal/analysis"
	"github.com/RishiKendai/textscan/internal/api"
	"github.com/RishiKendai/textscan/internal/blob"
	"github.com/RishiKendai/textscan/internal/cache"
	"github.com/RishiKendai/textscan/internal/config"
	"github.com/RishiKendai/textscan/internal/configs/env"
	"github.com/RishiKendai/textscan/internal/identity"
	mongoInfra "github.com/RishiKendai/textscan/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/textscan/internal/infra/redis"
	"github.com/RishiKendai/textscan/internal/logger"
	"github.com/RishiKendai/textscan/internal/metrics"
	"github.com/RishiKendai/textscan/internal/queue"
	"github.com/RishiKendai/textscan/internal/repository"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/storage"
	"github.com/RishiKendai/textscan/internal/stream"
	"github.com/RishiKendai/textscan/internal/tracing"
	"github.com/RishiKendai/textscan/internal/upstream"
	"github.com/RishiKendai/textscan/internal/wordcloud"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 30 * time.Second
	streamRetention = 24 * time.Hour

	storageHashKey  = "textscan:hashes"
	analysisHashKey = "textscan:analysis-hashes"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one of the textscan services",
	}
	cmd.AddCommand(
		newServiceCmd(config.RoleStorage, "Run the storage service", runStorage),
		newServiceCmd(config.RoleAnalysis, "Run the analysis service", runAnalysis),
		newServiceCmd(config.RoleGateway, "Run the API gateway", runGateway),
	)
	return cmd
}

func newServiceCmd(role config.Role, short string, run func(context.Context, *config.Config) error) *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   string(role),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			if err := env.LoadEnv(files...); err != nil {
				log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(role); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger.Init(cfg.LogLevel, cfg.LogPretty)
			log.Info().Str("service", string(role)).Msg("Starting textscan service")

			metrics.InitPrometheus()
			metricsSrv := metrics.StartServer(cfg.MetricsPort)
			defer metrics.Shutdown(metricsSrv, 5*time.Second)

			ctx := cmd.Context()
			shutdownTracing, err := tracing.Init(ctx, "textscan-"+string(role), cfg.OTelEndpoint)
			if err != nil {
				log.Warn().Err(err).Msg("Tracing disabled")
			} else {
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdownTracing(sctx); err != nil {
						log.Error().Err(err).Msg("Error flushing traces")
					}
				}()
			}

			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")
	return cmd
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redisInfra.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}
	return redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, cfg.RedisDB)
}

func runStorage(ctx context.Context, cfg *config.Config) error {
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	var hashes identity.HashStore = identity.NewMemoryHashStore()
	if cfg.HashIndexBackend == "redis" {
		hashes = identity.NewRedisHashStore(redisClient.Client, storageHashKey)
	}

	index := identity.NewIndex(hashes, snapshots)
	if err := index.Load(ctx); err != nil {
		return err
	}

	var events storage.EventPublisher
	if redisClient != nil {
		events = stream.NewPublisher(redisClient.Client, cfg.FileEventsStream)
	}

	svc := storage.NewService(index, blobs, events, storage.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowPDF:       cfg.AllowPDF,
	})
	router := api.SetupStorageRoutes(api.NewStorageHandler(svc, cfg.MaxUploadBytes))
	srv := api.StartServer(router, "storage", cfg.StoragePort)

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")
	if err := api.ShutdownServer(srv, shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Error shutting down storage server")
	}
	log.Info().Msg("Shutdown complete")
	return nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == "minio" {
		store, err := blob.NewMinioStore(blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return blob.NewDiskStore(cfg.UploadDir)
}

func openSnapshots(ctx context.Context, cfg *config.Config) (identity.Snapshotter, func(), error) {
	switch cfg.MetadataBackend {
	case "postgres":
		pool, err := repository.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		snap := repository.NewPostgresSnapshot(pool)
		if err := snap.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return snap, pool.Close, nil
	case "mysql":
		db, err := repository.ConnectMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		snap := repository.NewMySQLSnapshot(db)
		if err := snap.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return snap, func() { db.Close() }, nil
	default:
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create upload dir: %w", err)
		}
		return repository.NewFileSnapshot(filepath.Join(cfg.UploadDir, "metadata.json")), func() {}, nil
	}
}

func runAnalysis(ctx context.Context, cfg *config.Config) error {
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool := similarity.NewWorkerPool(ctx, cfg.MaxConcurrentBatch)
	defer pool.Close()

	deps := analysis.Deps{
		Source:   upstream.NewStorageClient(cfg.StorageURL, cfg.UpstreamTimeout),
		Pool:     pool,
		Index:    identity.NewIndex(identity.NewMemoryHashStore(), nil),
		Cache:    cache.NewMemoryCache(cfg.CacheTTL),
		Statuses: cache.NewMemoryStatusStore(),
		Reports:  repository.NewMemoryReports(),
		Clouds:   wordcloud.New(cfg.WordCloudBaseURL, nil),
	}
	if redisClient != nil {
		deps.Index = identity.NewIndex(identity.NewRedisHashStore(redisClient.Client, analysisHashKey), nil)
		deps.Cache = cache.NewRedisCache(redisClient.Client, cfg.CacheTTL)
		deps.Statuses = cache.NewRedisStatusStore(redisClient.Client)
	}

	if cfg.MongoURI != "" {
		mongoClient, err := mongoInfra.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		defer mongoClient.Close(context.Background())
		deps.Reports = repository.NewReportsRepository(repository.NewMongoRepository(mongoClient))
	}

	svc := analysis.NewService(deps)

	if redisClient != nil {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisHost, Password: cfg.RedisPassword, DB: cfg.RedisDB}

		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		svc.SetQueue(queue.NewClient(asynqClient, cfg.BatchTimeout))

		worker := asynq.NewServer(redisOpt, asynq.Config{Concurrency: cfg.MaxConcurrentBatch})
		if err := worker.Start(queue.NewProcessor(svc).Handler()); err != nil {
			return fmt.Errorf("failed to start batch worker: %w", err)
		}
		defer worker.Shutdown()

		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		consumerName := fmt.Sprintf("analysis-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
		consumer := stream.NewConsumer(
			redisClient.Client,
			cfg.FileEventsStream,
			cfg.FileEventsGroup,
			consumerName,
			svc.HandleFileEvent,
			streamRetention,
		)
		go func() {
			if err := consumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("File event consumer stopped")
			}
		}()
		log.Info().Str("consumer_name", consumerName).Msg("File event consumer started")
	} else {
		log.Warn().Msg("REDIS_HOST not set, running batches in-process and skipping file events")
		svc.SetQueue(queue.NewInline(svc, cfg.BatchTimeout))
	}

	router := api.SetupAnalysisRoutes(api.NewAnalysisHandler(svc))
	srv := api.StartServer(router, "analysis", cfg.AnalysisPort)

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")
	if err := api.ShutdownServer(srv, shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Error shutting down analysis server")
	}
	log.Info().Msg("Shutdown complete")
	return nil
}

func runGateway(ctx context.Context, cfg *config.Config) error {
	burst := int(2 * cfg.RateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	handler := api.NewGatewayHandler(
		upstream.NewStorageClient(cfg.StorageURL, cfg.UpstreamTimeout),
		upstream.NewAnalysisClient(cfg.AnalysisURL, cfg.UpstreamTimeout),
		cfg.GatewayMaxUploadBytes,
	)
	router := api.SetupGatewayRoutes(handler, api.NewRateLimiter(cfg.RateLimitRPS, burst))
	srv := api.StartServer(router, "gateway", cfg.GatewayPort)

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")
	if err := api.ShutdownServer(srv, shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Error shutting down gateway server")
	}
	log.Info().Msg("Shutdown complete")
	return nil
}
