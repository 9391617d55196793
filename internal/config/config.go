package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	TavilyAPIKey string `envconfig:"TAVILY_API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"agrivoice-scrapes"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Chunking
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1024"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"100"`

	// Embedding throughput
	EmbedBatchSize        int           `envconfig:"EMBED_BATCH_SIZE" default:"48"`
	EmbedReservoirSize    int           `envconfig:"EMBED_RESERVOIR_SIZE" default:"15"`
	EmbedReservoirRefill  int           `envconfig:"EMBED_RESERVOIR_REFILL" default:"10"`
	EmbedRefillInterval   time.Duration `envconfig:"EMBED_REFILL_INTERVAL" default:"30s"`

	// Ingestion
	FetchConcurrency   int           `envconfig:"FETCH_CONCURRENCY" default:"5"`
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AGRIVOICE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasTavily() bool {
	return c.TavilyAPIKey != ""
}
