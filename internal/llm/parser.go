package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// suggestion is one entry of the model's JSON array response. Amount is
// optional; some models echo it back and it tightens fuzzy matching.
type suggestion struct {
	Amount      *float64 `json:"amount,omitempty"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
}

// cleanMarkdownWrapper strips markdown code fences that some models wrap
// around JSON output.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

// parseSuggestions parses the model response into suggestions, tolerating
// fenced output. Suggestions with categories outside the taxonomy are dropped.
func parseSuggestions(content string) ([]suggestion, error) {
	content = cleanMarkdownWrapper(content)

	var raw []suggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	suggestions := make([]suggestion, 0, len(raw))
	for _, s := range raw {
		if s.Description == "" || !ValidCategory(s.Category) {
			continue
		}
		suggestions = append(suggestions, s)
	}

	if len(suggestions) == 0 {
		return nil, fmt.Errorf("no usable suggestions in response")
	}
	return suggestions, nil
}
