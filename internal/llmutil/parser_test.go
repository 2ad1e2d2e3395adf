package llmutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipe struct {
	RecipeName  string   `json:"recipeName"`
	Ingredients []string `json:"ingredients"`
}

func TestParseJSONResponse(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		got, err := ParseJSONResponse[[]recipe](`[{"recipeName":"Snickerdoodles","ingredients":["flour"]}]`)
		require.NoError(t, err)
		require.Len(t, *got, 1)
		assert.Equal(t, "Snickerdoodles", (*got)[0].RecipeName)
	})

	t.Run("markdown wrapped object", func(t *testing.T) {
		raw := "\x60\x60\x60json\n{\"recipeName\":\"Shortbread\",\"ingredients\":[\"butter\",\"sugar\"]}\n\x60\x60\x60"
		got, err := ParseJSONResponse[recipe](raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"butter", "sugar"}, got.Ingredients)
	})

	t.Run("array inside prose", func(t *testing.T) {
		raw := `Here are the recipes: [{"recipeName":"A","ingredients":[]},{"recipeName":"B"}] Enjoy.`
		got, err := ParseJSONResponse[[]recipe](raw)
		require.NoError(t, err)
		assert.Len(t, *got, 2)
	})

	t.Run("object inside prose", func(t *testing.T) {
		raw := `Result: {"recipeName":"C","ingredients":["egg"]} done`
		got, err := ParseJSONResponse[recipe](raw)
		require.NoError(t, err)
		assert.Equal(t, "C", got.RecipeName)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseJSONResponse[recipe]("not json at all")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal LLM JSON response")
	})
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "", truncateString("abc", 0))
	assert.Len(t, truncateString(strings.Repeat("x", 1000), 500), 503)
}
