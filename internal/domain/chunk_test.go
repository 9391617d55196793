package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChunk() *Chunk {
	return &Chunk{
		ID:         "chunk-1",
		Source:     "https://agricoop.gov.in/msp",
		ChunkIndex: 0,
		Content:    "MSP for wheat in the 2026-27 rabi season",
		Embedding:  make([]float32, EmbeddingDimensions),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestValidateChunk(t *testing.T) {
	require.NoError(t, ValidateChunk(validChunk()))
}

func TestValidateChunk_Nil(t *testing.T) {
	err := ValidateChunk(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestValidateChunk_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Chunk)
		errMsg string
	}{
		{"NoSource", func(c *Chunk) { c.Source = "" }, "Source is required"},
		{"NoContent", func(c *Chunk) { c.Content = "" }, "Content is required"},
		{"NegativeIndex", func(c *Chunk) { c.ChunkIndex = -1 }, "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(c)
			err := ValidateChunk(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateChunk_WrongDimensions(t *testing.T) {
	tests := []struct {
		name string
		dims int
	}{
		{"Empty", 0},
		{"TooShort", 512},
		{"TooLong", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			c.Embedding = make([]float32, tt.dims)
			assert.ErrorIs(t, ValidateChunk(c), ErrDimensionMismatch)
		})
	}
}
