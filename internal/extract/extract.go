// Package extract turns a landing page URL into text fragments.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Labels for the external calls metric
const (
	serviceTavily    = "tavily"
	servicePageFetch = "page_fetch"

	statusOK    = "ok"
	statusError = "error"
)

// Fragment is one piece of extracted page content
type Fragment struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Extractor fetches content for a page
type Extractor interface {
	Extract(ctx context.Context, pageURL string) ([]Fragment, error)
}

// ExternalServiceError is returned when an upstream service answers with a
// non-success status
type ExternalServiceError struct {
	Service string
	Status  int
	Body    string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Service, e.Status, e.Body)
}

// Join concatenates fragment contents separated by blank lines
func Join(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n\n")
}

var htmlTag = regexp.MustCompile(`(?i)<(html|body|div|p|h[1-6]|ul|ol|li|span|a|br|section|article|table)[\s>/]`)

// looksLikeHTML reports whether s carries block or inline markup
func looksLikeHTML(s string) bool {
	return htmlTag.MatchString(s)
}

// toMarkdown converts markup to Markdown, leaving plain text untouched
func toMarkdown(conv *md.Converter, s string) (string, error) {
	if !looksLikeHTML(s) {
		return s, nil
	}
	out, err := conv.ConvertString(s)
	if err != nil {
		return "", fmt.Errorf("md conversion error: %w", err)
	}
	return strings.TrimSpace(out), nil
}
