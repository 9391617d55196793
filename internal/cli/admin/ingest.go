package admin

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/agrivoice/agrivoice/internal/config"
	"github.com/agrivoice/agrivoice/internal/database"
	"github.com/agrivoice/agrivoice/internal/repository"
	"github.com/agrivoice/agrivoice/internal/tavily"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <url>...",
		Short: "Fetch, chunk, embed and index one or more source URLs",
		Long: "Fetch the given URLs, split them into overlapping chunks, embed the " +
			"chunks and store them in the knowledge base. Already-indexed URLs are " +
			"skipped; failures on one URL do not abort the others.",
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to embed content")
	}
	if !cfg.HasTavily() {
		return fmt.Errorf("TAVILY_API_KEY is required to fetch content")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	chunkRepo := repository.NewChunkRepository(pool)
	if err := chunkRepo.EnsureVectorIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector index: %w", err)
	}

	coordinator, _ := buildIngestion(cfg, chunkRepo)
	if archiver, err := buildArchiver(ctx, cfg); err != nil {
		return err
	} else if archiver != nil {
		coordinator = coordinator.WithArchiver(archiver)
	}

	tavilyClient := tavily.NewClient(cfg.TavilyAPIKey)

	report, err := coordinator.Ingest(ctx, args, tavilyClient.FetchContent)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	for _, source := range report.Known {
		fmt.Printf("already indexed: %s\n", source)
	}
	for _, source := range report.Skipped {
		fmt.Printf("no content:      %s\n", source)
	}
	for _, source := range report.Ingested {
		fmt.Printf("ingested:        %s\n", source)
	}

	failed := make([]string, 0, len(report.Failed))
	for source := range report.Failed {
		failed = append(failed, source)
	}
	sort.Strings(failed)
	for _, source := range failed {
		log.Printf("failed:          %s: %v", source, report.Failed[source])
	}

	fmt.Printf("%d ingested, %d known, %d skipped, %d failed\n",
		len(report.Ingested), len(report.Known), len(report.Skipped), len(report.Failed))

	if len(report.Failed) > 0 && len(report.Ingested)+len(report.Known)+len(report.Skipped) == 0 {
		return fmt.Errorf("all %d sources failed", len(report.Failed))
	}
	return nil
}
