package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_EmptyInput(t *testing.T) {
	assert.Nil(t, SplitText("", DefaultChunkConfig()))
	assert.Nil(t, SplitText("   \n\t  ", DefaultChunkConfig()))
}

func TestSplitText_ShortInputSingleSegment(t *testing.T) {
	text := "Wheat sowing in November needs soil temperature above 15 degrees."
	segments := SplitText(text, DefaultChunkConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, text, segments[0])
}

func TestSplitText_HardCutYieldsThreeSegments(t *testing.T) {
	// 2500 boundary-free runes with the default 1024/100 parameters cut at
	// 1024, 1948 and 2500.
	text := strings.Repeat("a", 2500)
	segments := SplitText(text, DefaultChunkConfig())

	require.Len(t, segments, 3)
	assert.Len(t, []rune(segments[0]), 1024)
	assert.Len(t, []rune(segments[1]), 1024)
	assert.Len(t, []rune(segments[2]), 652)
}

func TestSplitText_OverlapIsExact(t *testing.T) {
	text := strings.Repeat("b", 3000)
	cfg := DefaultChunkConfig()
	segments := SplitText(text, cfg)
	require.Greater(t, len(segments), 1)

	for i := 1; i < len(segments); i++ {
		prev := []rune(segments[i-1])
		cur := []rune(segments[i])
		tail := string(prev[len(prev)-cfg.Overlap:])
		head := string(cur[:cfg.Overlap])
		assert.Equal(t, tail, head, "segments %d and %d must share exactly %d runes", i-1, i, cfg.Overlap)
	}
}

func TestSplitText_CoverageReconstructsInput(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("Paddy transplanting works best three weeks after nursery sowing. ")
		if i%7 == 0 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	cfg := DefaultChunkConfig()
	segments := SplitText(text, cfg)
	require.Greater(t, len(segments), 1)

	var rebuilt strings.Builder
	for i, seg := range segments {
		runes := []rune(seg)
		if i == 0 {
			rebuilt.WriteString(seg)
			continue
		}
		rebuilt.WriteString(string(runes[cfg.Overlap:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitText_PrefersParagraphBreak(t *testing.T) {
	para := strings.Repeat("c", 950) + ".\n\n"
	text := para + strings.Repeat("d", 600)

	segments := SplitText(text, DefaultChunkConfig())
	require.Greater(t, len(segments), 1)
	assert.True(t, strings.HasSuffix(segments[0], "\n\n"), "first cut should land after the paragraph break")
}

func TestSplitText_PrefersSentenceOverWordBreak(t *testing.T) {
	text := strings.Repeat("word ", 190) + "End of sentence. " + strings.Repeat("tail ", 300)

	cfg := DefaultChunkConfig()
	segments := SplitText(text, cfg)
	require.Greater(t, len(segments), 1)
	assert.True(t, strings.HasSuffix(segments[0], "End of sentence. "),
		"got suffix %q", segments[0][len(segments[0])-30:])
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("The monsoon forecast matters for sowing decisions. ", 80)
	first := SplitText(text, DefaultChunkConfig())
	second := SplitText(text, DefaultChunkConfig())
	assert.Equal(t, first, second)
}

func TestSplitText_UnicodeSafe(t *testing.T) {
	// Devanagari text must never be cut mid-rune.
	text := strings.Repeat("किसानों के लिए गेहूं की बुवाई का सही समय नवंबर है। ", 60)
	segments := SplitText(text, DefaultChunkConfig())
	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.True(t, strings.ToValidUTF8(seg, "") == seg)
	}
}
