package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrivoice/agrivoice/internal/config"
	"github.com/agrivoice/agrivoice/internal/database"
	"github.com/agrivoice/agrivoice/internal/openai"
	"github.com/agrivoice/agrivoice/internal/repository"
	"github.com/agrivoice/agrivoice/internal/service"
	"github.com/spf13/cobra"
)

const searchSnippetLength = 160

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Similarity-search the indexed knowledge base",
		Long: "Embed the query and return the most similar indexed chunks, " +
			"optionally restricted to specific source URLs.",
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntP("top-k", "k", service.RetrievalTopK, "Maximum number of results")
	cmd.Flags().StringSlice("source", nil, "Restrict the search to these source URLs (repeatable)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to embed the query")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	chunkRepo := repository.NewChunkRepository(pool)

	sources, _ := cmd.Flags().GetStringSlice("source")
	if len(sources) == 0 {
		summaries, err := chunkRepo.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list indexed sources: %w", err)
		}
		for _, s := range summaries {
			sources = append(sources, s.Source)
		}
	}
	if len(sources) == 0 {
		fmt.Println("knowledge base is empty")
		return nil
	}

	query := strings.Join(args, " ")
	embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)
	vector, err := embeddingClient.GenerateEmbedding(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	hits, err := chunkRepo.SearchBySources(ctx, vector, sources, topK, service.RetrievalCandidatePool)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, hit := range hits {
		fmt.Printf("%2d. [%.4f] %s #%d\n", i+1, hit.Score, hit.Chunk.Source, hit.Chunk.ChunkIndex)
		fmt.Printf("    %s\n", snippet(hit.Chunk.Content))
	}
	return nil
}

func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= searchSnippetLength {
		return content
	}
	return string(runes[:searchSnippetLength]) + "..."
}
