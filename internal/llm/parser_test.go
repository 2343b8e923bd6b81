package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain json untouched",
			content: `[{"description":"A","category":"Other"}]`,
			want:    `[{"description":"A","category":"Other"}]`,
		},
		{
			name:    "json fence",
			content: "```json\n[{\"description\":\"A\",\"category\":\"Other\"}]\n```",
			want:    `[{"description":"A","category":"Other"}]`,
		},
		{
			name:    "bare fence",
			content: "```\n[1,2]\n```",
			want:    "[1,2]",
		},
		{
			name:    "surrounding whitespace",
			content: "\n\n  [1]  \n",
			want:    "[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.content))
		})
	}
}

func TestParseSuggestions(t *testing.T) {
	t.Run("valid array", func(t *testing.T) {
		content := `[{"description":"Tim Hortons Coffee","category":"Food & Dining"},{"description":"LOBLAWS","category":"Groceries"}]`
		got, err := parseSuggestions(content)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Food & Dining", got[0].Category)
	})

	t.Run("fenced array", func(t *testing.T) {
		content := "```json\n[{\"description\":\"X\",\"category\":\"Other\"}]\n```"
		got, err := parseSuggestions(content)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unknown categories dropped", func(t *testing.T) {
		content := `[{"description":"A","category":"Witchcraft"},{"description":"B","category":"Other"}]`
		got, err := parseSuggestions(content)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "B", got[0].Description)
	})

	t.Run("all entries invalid", func(t *testing.T) {
		content := `[{"description":"","category":"Other"}]`
		_, err := parseSuggestions(content)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseSuggestions("Sure! Here are your categories:")
		assert.Error(t, err)
	})

	t.Run("amount echoed back", func(t *testing.T) {
		content := `[{"description":"A","amount":12.50,"category":"Other"}]`
		got, err := parseSuggestions(content)
		require.NoError(t, err)
		require.NotNil(t, got[0].Amount)
		assert.InDelta(t, 12.50, *got[0].Amount, 0.001)
	})
}
