// Package output writes the finished report to stdout and converts
// event bodies for inclusion in it.
package output

import (
	"encoding/json"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// WriteJSON writes a value as indented JSON to the writer.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSONString returns a value as a JSON string.
func WriteJSONString(v any) (string, error) {
	var sb strings.Builder
	if err := WriteJSON(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// HTMLToMarkdown converts HTML content to Markdown.
// Returns the original content if conversion fails or content is empty.
func HTMLToMarkdown(html string) string {
	if html == "" {
		return ""
	}

	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		// Fall back to original content on error
		return html
	}

	return strings.TrimSpace(md)
}

// BodyText extracts a plain representation of an event body: HTML is
// converted to Markdown, anything else passes through trimmed.
func BodyText(contentType, content string) string {
	if strings.EqualFold(contentType, "html") {
		return HTMLToMarkdown(content)
	}
	return strings.TrimSpace(content)
}
