// Package source provides the content sources the analysis pipeline draws from.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxzi/copysmith/internal/extract"
	"github.com/foxzi/copysmith/internal/generate"
	"github.com/foxzi/copysmith/internal/models"
)

// ContentSource turns a landing page into a structured record with drafted copy
type ContentSource interface {
	Analyze(ctx context.Context, pageURL string) (*models.AnalyzedData, error)
	Regenerate(ctx context.Context, field, value, pageURL string) (string, error)
}

// Live extracts page content and drafts copy with a generation model
type Live struct {
	extractor extract.Extractor
	writer    *generate.Writer
	logger    *slog.Logger
}

// NewLive creates a live content source
func NewLive(extractor extract.Extractor, writer *generate.Writer, logger *slog.Logger) *Live {
	return &Live{
		extractor: extractor,
		writer:    writer,
		logger:    logger.With("component", "source"),
	}
}

// Analyze runs extraction, structuring and copy generation in order
func (s *Live) Analyze(ctx context.Context, pageURL string) (*models.AnalyzedData, error) {
	fragments, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	content := extract.Join(fragments)
	s.logger.Debug("content extracted", "url", pageURL, "fragments", len(fragments), "bytes", len(content))

	structured, err := s.writer.Structure(ctx, content)
	if err != nil {
		return nil, err
	}

	email, err := s.writer.Draft(ctx, structured)
	if err != nil {
		return nil, err
	}

	return &models.AnalyzedData{StructuredContent: *structured, EmailCopy: *email}, nil
}

// Regenerate asks the model for a new version of one field
func (s *Live) Regenerate(ctx context.Context, field, value, pageURL string) (string, error) {
	return s.writer.Regenerate(ctx, field, value, pageURL)
}
