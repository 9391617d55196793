package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how source documents are split before embedding.
type ChunkConfig struct {
	ChunkSize int // target segment length in runes
	Overlap   int // exact overlap between consecutive segments
}

// DefaultChunkConfig returns the chunking parameters used for web content.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 1024,
		Overlap:   100,
	}
}

// boundarySearchWindow bounds how far back from the target cut the splitter
// looks for a natural break before falling back to a hard cut.
const boundarySearchWindow = 200

// SplitText splits raw document text into ordered overlapping segments.
//
// Segments cover the input with no gaps: each segment after the first starts
// exactly Overlap runes before the previous segment's end, so concatenating
// the non-overlapping portions reconstructs the input. Cuts prefer paragraph,
// then sentence, then word boundaries before a hard rune cut. Splitting is
// deterministic for the same input and config. Empty or whitespace-only
// input yields no segments.
func SplitText(text string, cfg ChunkConfig) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 2
	}

	runes := []rune(text)
	if len(runes) <= cfg.ChunkSize {
		return []string{text}
	}

	segments := make([]string, 0, 1+(len(runes)-cfg.ChunkSize)/(cfg.ChunkSize-cfg.Overlap))
	start := 0
	for {
		end := start + cfg.ChunkSize
		if end >= len(runes) {
			segments = append(segments, string(runes[start:]))
			return segments
		}

		end = boundaryCut(runes, start, end, cfg.Overlap)
		segments = append(segments, string(runes[start:end]))

		// The next segment begins exactly Overlap runes before this cut.
		start = end - cfg.Overlap
	}
}

// boundaryCut picks the cut position for a segment starting at start with a
// hard limit of hardEnd. It scans backwards for a paragraph break, then a
// sentence end, then any whitespace, and returns hardEnd when nothing
// suitable exists. The cut always lands after start+overlap so the following
// segment makes forward progress and carries the full overlap.
func boundaryCut(runes []rune, start, hardEnd, overlap int) int {
	floor := hardEnd - boundarySearchWindow
	if min := start + overlap + 1; floor < min {
		floor = min
	}
	if floor >= hardEnd {
		return hardEnd
	}

	paragraph := -1
	sentence := -1
	word := -1

	for i := hardEnd; i > floor; i-- {
		prev := runes[i-1]
		if paragraph < 0 && prev == '\n' && i >= 2 && runes[i-2] == '\n' {
			paragraph = i
			break
		}
		if sentence < 0 && unicode.IsSpace(prev) && i >= 2 && isSentenceEnd(runes[i-2]) {
			sentence = i
		}
		if word < 0 && unicode.IsSpace(prev) {
			word = i
		}
	}

	switch {
	case paragraph > 0:
		return paragraph
	case sentence > 0:
		return sentence
	case word > 0:
		return word
	default:
		return hardEnd
	}
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '।':
		return true
	default:
		return false
	}
}
