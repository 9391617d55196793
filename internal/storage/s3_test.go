package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapeKey(t *testing.T) {
	key := ScrapeKey("https://agri.example/advisory")

	assert.True(t, strings.HasPrefix(key, "scrapes/"))
	assert.True(t, strings.HasSuffix(key, ".txt"))

	// Deterministic for the same source, distinct across sources.
	assert.Equal(t, key, ScrapeKey("https://agri.example/advisory"))
	assert.NotEqual(t, key, ScrapeKey("https://agri.example/other"))
}
