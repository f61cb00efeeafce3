package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestHTMLToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string // Substrings that should appear in output
	}{
		{
			name:     "empty string",
			html:     "",
			contains: nil,
		},
		{
			name:     "plain text",
			html:     "Hello world",
			contains: []string{"Hello world"},
		},
		{
			name:     "heading",
			html:     "<h1>Agenda</h1>",
			contains: []string{"# Agenda"},
		},
		{
			name:     "link",
			html:     `<a href="https://example.com">Example</a>`,
			contains: []string{"[Example]", "(https://example.com)"},
		},
		{
			name:     "list",
			html:     "<ul><li>Item 1</li><li>Item 2</li></ul>",
			contains: []string{"- Item 1", "- Item 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HTMLToMarkdown(tt.html)
			for _, substr := range tt.contains {
				if !strings.Contains(result, substr) {
					t.Errorf("HTMLToMarkdown(%q) = %q, expected to contain %q", tt.html, result, substr)
				}
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]string{"key": "value"}
	err := WriteJSON(&buf, data)
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}

	if result["key"] != "value" {
		t.Errorf("Expected key=value, got key=%s", result["key"])
	}
}

func TestBodyText(t *testing.T) {
	t.Run("HTML converted", func(t *testing.T) {
		result := BodyText("HTML", "<h1>Minutes</h1><p>Notes</p>")
		if !strings.Contains(result, "# Minutes") {
			t.Errorf("Expected markdown heading, got %q", result)
		}
	})

	t.Run("case insensitive content type", func(t *testing.T) {
		result := BodyText("html", "<b>Bold</b>")
		if !strings.Contains(result, "**Bold**") {
			t.Errorf("Expected markdown bold, got %q", result)
		}
	})

	t.Run("text passes through trimmed", func(t *testing.T) {
		result := BodyText("Text", "  plain notes \n")
		if result != "plain notes" {
			t.Errorf("Expected trimmed text, got %q", result)
		}
	})
}
