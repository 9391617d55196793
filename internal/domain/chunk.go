package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the output dimension of the embedding model.
// Every stored chunk vector must have exactly this length.
const EmbeddingDimensions = 1024

// Chunk represents one embedded segment of a scraped source document.
// Chunks are immutable once written: re-ingesting a known source is skipped,
// never overwritten.
type Chunk struct {
	ID         string
	Source     string // URL of the document this chunk was cut from
	ChunkIndex int    // position of the chunk within its source
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ValidateChunk validates a Chunk before persistence.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.Source == "" {
		return fmt.Errorf("chunk Source is required")
	}

	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	if len(c.Embedding) != EmbeddingDimensions {
		return ErrDimensionMismatch
	}

	return nil
}
