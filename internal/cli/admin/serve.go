package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrivoice/agrivoice/internal/api/handlers"
	"github.com/agrivoice/agrivoice/internal/config"
	"github.com/agrivoice/agrivoice/internal/database"
	"github.com/agrivoice/agrivoice/internal/jobs"
	"github.com/agrivoice/agrivoice/internal/openai"
	"github.com/agrivoice/agrivoice/internal/ratelimit"
	"github.com/agrivoice/agrivoice/internal/repository"
	"github.com/agrivoice/agrivoice/internal/server"
	"github.com/agrivoice/agrivoice/internal/service"
	"github.com/agrivoice/agrivoice/internal/storage"
	"github.com/agrivoice/agrivoice/internal/tavily"
	"github.com/agrivoice/agrivoice/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the agrivoice knowledge API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)

	if err := chunkRepo.EnsureVectorIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector index: %w", err)
	}

	coordinator, embeddingClient := buildIngestion(cfg, chunkRepo)

	if archiver, err := buildArchiver(ctx, cfg); err != nil {
		return err
	} else if archiver != nil {
		coordinator = coordinator.WithArchiver(archiver)
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	tavilyClient := tavily.NewClient(cfg.TavilyAPIKey)
	queue := jobs.NewQueue(jobRepo)
	retrieval := service.NewRetrievalService(embeddingClient, chunkRepo)
	grounding := service.NewGroundingService(tavilyClient, tavilyClient, coordinator, queue, retrieval)

	var ingestionWorker *jobs.Worker
	if cfg.HasOpenAI() && cfg.HasTavily() {
		processor := jobs.NewIngestionWorker(jobRepo, coordinator, tavilyClient.FetchContent)
		ingestionWorker = jobs.NewWorker(processor, cfg.WorkerPollInterval)
		go ingestionWorker.Start(ctx)
		log.Println("ingestion worker started")
	} else {
		log.Println("ingestion worker disabled: OPENAI_API_KEY and TAVILY_API_KEY required")
	}

	groundingHandler := handlers.NewGroundingHandler(grounding, retrieval, chunkRepo)
	sourceHandler := handlers.NewSourceHandler(coordinator, queue, jobRepo, chunkRepo)

	router := server.NewRouter(server.RouterConfig{
		GroundingHandler: groundingHandler,
		SourceHandler:    sourceHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestionWorker != nil {
		ingestionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildIngestion assembles the rate-limited embedding pipeline and the
// ingestion coordinator on top of it. The OpenAI client is constructed even
// without an API key so retrieval degrades at call time instead of
// at startup.
func buildIngestion(cfg *config.Config, chunkRepo *repository.ChunkRepository) (*service.IngestionCoordinator, *openai.Client) {
	reservoir := ratelimit.NewReservoir(cfg.EmbedReservoirSize, cfg.EmbedReservoirRefill, cfg.EmbedRefillInterval)
	embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)
	embedder := service.NewEmbedderWithBatchSize(embeddingClient, reservoir, cfg.EmbedBatchSize)

	coordinator := service.NewIngestionCoordinator(chunkRepo, embedder).
		WithChunkConfig(service.ChunkConfig{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}).
		WithFetchConcurrency(cfg.FetchConcurrency)

	return coordinator, embeddingClient
}

func buildArchiver(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	return s3Client, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
