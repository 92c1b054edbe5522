package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/foxzi/copysmith/internal/models"
)

// ErrMalformedResponse is returned when a completion is not the requested JSON
var ErrMalformedResponse = errors.New("malformed model response")

const (
	structureSystem = "You are an expert at analyzing landing pages and extracting key information."
	draftSystem     = "You are an expert email copywriter. Create a compelling email based on the landing page data provided."
	regenSystem     = "You are an expert email copywriter. Improve a single field of a marketing email."
)

// Fields that can be regenerated on their own
const (
	FieldSubject   = "subject"
	FieldPreheader = "preheader"
	FieldBody      = "body"
)

var fieldGuidance = map[string]string{
	FieldSubject:   "a subject line under 70 characters that makes the reader want to open the email",
	FieldPreheader: "a preheader under 110 characters that complements the subject line",
	FieldBody:      "an email body with a short greeting, two or three benefit bullets and a closing call to action",
}

// ValidField reports whether field can be regenerated
func ValidField(field string) bool {
	_, ok := fieldGuidance[field]
	return ok
}

// Writer turns page content into structured records and email copy
type Writer struct {
	model Model
}

func NewWriter(model Model) *Writer {
	return &Writer{model: model}
}

// Structure extracts the structured content record from page text
func (w *Writer) Structure(ctx context.Context, content string) (*models.StructuredContent, error) {
	prompt := `Analyze this landing page content and extract the following information in JSON format:
{
  "title": "page title",
  "description": "short description of the offer",
  "main_heading": "main heading",
  "sub_heading": "sub heading",
  "cta_text": "call to action text",
  "key_points": ["key point 1", "key point 2"],
  "tone": "tone of voice",
  "industry": "industry"
}

Content:
` + content

	var sc models.StructuredContent
	if err := w.completeInto(ctx, structureSystem, prompt, &sc); err != nil {
		return nil, fmt.Errorf("structure content: %w", err)
	}
	return &sc, nil
}

// Draft writes email copy for a structured content record
func (w *Writer) Draft(ctx context.Context, sc *models.StructuredContent) (*models.EmailCopy, error) {
	data, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal structured content: %w", err)
	}

	prompt := `Create an email for this landing page. Respond in JSON format:
{
  "subject_line": "email subject line",
  "email_body": "email body text",
  "cta_text": "call to action text"
}

Landing page data:
` + string(data)

	var ec models.EmailCopy
	if err := w.completeInto(ctx, draftSystem, prompt, &ec); err != nil {
		return nil, fmt.Errorf("draft email: %w", err)
	}
	return &ec, nil
}

// Regenerate returns an improved version of one email field
func (w *Writer) Regenerate(ctx context.Context, field, value, pageURL string) (string, error) {
	guidance, ok := fieldGuidance[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the email %s below as %s.\n", field, guidance)
	if pageURL != "" {
		fmt.Fprintf(&b, "The email promotes the landing page %s.\n", pageURL)
	}
	b.WriteString("Keep the language and intent. Respond in JSON format: {\"value\": \"new text\"}\n\n")
	fmt.Fprintf(&b, "Current %s:\n%s", field, value)

	var out struct {
		Value string `json:"value"`
	}
	if err := w.completeInto(ctx, regenSystem, b.String(), &out); err != nil {
		return "", fmt.Errorf("regenerate %s: %w", field, err)
	}
	if strings.TrimSpace(out.Value) == "" {
		return "", fmt.Errorf("regenerate %s: %w: empty value", field, ErrMalformedResponse)
	}
	return out.Value, nil
}

func (w *Writer) completeInto(ctx context.Context, system, user string, v any) error {
	text, err := w.model.CompleteJSON(ctx, system, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// stripFence removes a Markdown code fence around a JSON completion
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
