package llm

import (
	"strings"
	"testing"
)

type evalPayload struct {
	Level     string `json:"level"`
	Reasoning string `json:"reasoning"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel string
		wantErr   bool
	}{
		{
			name:      "raw JSON",
			input:     `{"level": "mostly", "reasoning": "observation only"}`,
			wantLevel: "mostly",
		},
		{
			name:      "fenced json block",
			input:     "```json\n{\"level\": \"complete\", \"reasoning\": \"gave a cause\"}\n```",
			wantLevel: "complete",
		},
		{
			name:      "fenced block without language tag",
			input:     "```\n{\"level\": \"partial\", \"reasoning\": \"vague\"}\n```",
			wantLevel: "partial",
		},
		{
			name:      "JSON embedded in prose",
			input:     "Here is my assessment:\n{\"level\": \"none\", \"reasoning\": \"off topic\"}\nHope that helps!",
			wantLevel: "none",
		},
		{
			name:      "prose around fenced block",
			input:     "Sure! Here you go:\n```json\n{\"level\": \"mostly\", \"reasoning\": \"ok\"}\n```\nLet me know.",
			wantLevel: "mostly",
		},
		{
			name:    "no JSON at all",
			input:   "The student seems to understand the pendulum well.",
			wantErr: true,
		},
		{
			name:    "empty output",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"level": "mostly"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got evalPayload
			err := ExtractJSON(tt.input, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON(%q) = %+v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON(%q) error: %v", tt.input, err)
			}
			if got.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", got.Level, tt.wantLevel)
			}
		})
	}
}

func TestExtractJSONErrorTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("x", 1000)
	err := ExtractJSON(long, &evalPayload{})
	if err == nil {
		t.Fatal("expected error for non-JSON input")
	}
	if len(err.Error()) > 300 {
		t.Errorf("error message too long: %d bytes", len(err.Error()))
	}
}

func TestCombinePrompts(t *testing.T) {
	combined := CombinePrompts("You are Alex.", "Introduce the concept.")
	if !strings.HasPrefix(combined, "You are Alex.") {
		t.Errorf("combined prompt does not start with system prompt: %q", combined)
	}
	if !strings.Contains(combined, "Introduce the concept.") {
		t.Errorf("combined prompt missing instruction: %q", combined)
	}
}

func TestModelRejectsSystemRole(t *testing.T) {
	if !modelRejectsSystemRole("gemma-3-27b-it") {
		t.Error("gemma model should reject system role")
	}
	if modelRejectsSystemRole("gemini-2.0-flash") {
		t.Error("gemini model should accept system role")
	}
}
