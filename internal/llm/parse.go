package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlockRE = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractJSON decodes a JSON object from free-form model output into v.
// Three strategies are tried in order, first success wins:
//
//  1. strict parse of the whole text
//  2. parse of a fenced ```json code block
//  3. parse of the outermost brace-delimited span
//
// The returned error describes the failure; callers are expected to
// substitute their stage-specific safe default rather than propagate it.
func ExtractJSON(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("empty model output")
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if m := fencedBlockRE.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
			return nil
		}
	}

	snippet := trimmed
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return fmt.Errorf("no parseable JSON in model output: %q", snippet)
}
