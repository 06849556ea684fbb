package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDirectJSON(t *testing.T) {
	data, err := Extract(`{"problem_statement": "p", "main_research_question": "q"}`,
		[]string{"problem_statement", "main_research_question"})
	require.NoError(t, err)
	assert.Equal(t, "p", data["problem_statement"])
}

func TestExtractFencedBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json language tag", "```json\n{\"a\": 1}\n```"},
		{"no language tag", "```\n{\"a\": 1}\n```"},
		{"fence with surrounding prose", "Here is the result:\n```json\n{\"a\": 1}\n```\nLet me know."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Extract(tt.raw, []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, float64(1), data["a"])
		})
	}
}

func TestExtractCandidateScan(t *testing.T) {
	raw := `Based on {"c": 1, "d": 2} from earlier, my answer is {"a": 1, "b": 2}.`

	data, err := Extract(raw, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), data["a"])
	assert.NotContains(t, data, "c", "the first object must be skipped when keys don't match")
}

func TestExtractFirstMatchingCandidateWins(t *testing.T) {
	raw := `{"a": 1} and later {"a": 2}`

	data, err := Extract(raw, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), data["a"])
}

func TestExtractNestedObject(t *testing.T) {
	raw := `The plan: {"collection_techniques": ["survey"], "timeline_breakdown": {"month_1": "design"}} done.`

	data, err := Extract(raw, []string{"collection_techniques", "timeline_breakdown"})
	require.NoError(t, err)
	breakdown, ok := data["timeline_breakdown"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "design", breakdown["month_1"])
}

func TestExtractTrailingComma(t *testing.T) {
	data, err := Extract(`{"a": [1, 2,], "b": 3,}`, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), data["b"])
}

func TestExtractRejectsEmptyObject(t *testing.T) {
	_, err := Extract(`{}`, nil)
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
}

func TestExtractMissingRequiredKey(t *testing.T) {
	_, err := Extract(`{"a": 1}`, []string{"a", "b"})
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, []string{"a", "b"}, extraction.RequiredKeys)
}

func TestExtractNoJSONAtAll(t *testing.T) {
	raw := "This response is not json at all. " + strings.Repeat("padding ", 100)

	_, err := Extract(raw, []string{"a"})
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.LessOrEqual(t, len(extraction.Preview), 300)
	assert.True(t, strings.HasPrefix(extraction.Preview, "This response is not json at all."))
}

func TestExtractPreviewKeepsRuneBoundary(t *testing.T) {
	// Byte 300 lands in the middle of a multi-byte rune; the preview must
	// back off to the boundary instead of emitting a split rune.
	raw := strings.Repeat("a", 299) + strings.Repeat("日", 50)

	_, err := Extract(raw, []string{"a"})
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.True(t, utf8.ValidString(extraction.Preview))
	assert.LessOrEqual(t, len(extraction.Preview), 300)
	assert.Equal(t, 299, len(extraction.Preview))
}

func TestExtractEmptyInput(t *testing.T) {
	_, err := Extract("", []string{"a"})
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
}

func TestExtractNoRequiredKeys(t *testing.T) {
	// With no key filter, the first parseable object wins.
	data, err := Extract(`prose {"x": true} prose`, nil)
	require.NoError(t, err)
	assert.Equal(t, true, data["x"])
}
