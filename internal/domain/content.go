package domain

// SearchHit is one result returned by the web search collaborator.
// Untyped search responses are normalized into this shape at the boundary.
type SearchHit struct {
	URL   string
	Title string
	Score float64
}

// ExtractResult is the outcome of extracting text content from one URL.
type ExtractResult struct {
	Source  string
	Content string
}

// ContentItem is one piece of grounding content handed back to the agent
// layer: either freshly scraped text or a stored chunk matched by similarity.
type ContentItem struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"` // similarity score; zero for fresh content
}

// ScoredChunk pairs a stored chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SourceSummary describes one indexed source URL.
type SourceSummary struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}
