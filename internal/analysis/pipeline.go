package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/extract"
	"github.com/foxzi/copysmith/internal/generate"
	"github.com/foxzi/copysmith/internal/metrics"
	"github.com/foxzi/copysmith/internal/models"
)

// Analysis outcomes used for metrics labels
const (
	outcomeNew        = "new"
	outcomeReused     = "reused"
	outcomeReanalyzed = "reanalyzed"
	outcomeFailed     = "failed"
	outcomeLimited    = "rate_limited"
	outcomeInProgress = "in_progress"
)

// AnalyzeResult is a landing page analysis and whether it came from cache
type AnalyzeResult struct {
	Page   *models.LandingPage
	Reused bool
}

// NormalizeURL validates user input and prepends https:// when no scheme is
// given. The result is used verbatim as the cache key.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalidInput("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", invalidInput("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalidInput("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", invalidInput("url has no host")
	}
	return raw, nil
}

// Analyze returns the user's analysis of pageURL, running the content source
// only on a cache miss or when force is set.
func (s *Service) Analyze(ctx context.Context, userID, pageURL string, force bool) (*AnalyzeResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	pageURL, err := NormalizeURL(pageURL)
	if err != nil {
		return nil, err
	}

	start := s.now()
	logger := s.logger.With("user_id", userID, "url", pageURL)

	existing, err := s.pages.GetByURL(ctx, userID, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to look up landing page: %w", err)
	}
	if existing != nil && !force {
		s.recorder.Record(ctx, userID, models.EventReusedLandingPage, map[string]string{"url": pageURL})
		s.observe(outcomeReused, start)
		logger.Debug("reusing landing page analysis", "landing_page_id", existing.ID)
		return &AnalyzeResult{Page: existing, Reused: true}, nil
	}

	if s.guard != nil {
		release, ok := s.guard.Acquire(ctx, userID+":"+pageURL)
		if !ok {
			metrics.IncLockContended()
			s.observe(outcomeInProgress, start)
			return nil, ErrAnalysisInProgress
		}
		defer release()
	}

	if s.limiter != nil {
		res, err := s.limiter.Check(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check rate limit: %w", err)
		}
		if !res.Allowed {
			metrics.IncRateLimitExceeded(string(res.DeniedBy))
			s.observe(outcomeLimited, start)
			logger.Info("analysis rate limited", "level", res.DeniedBy, "retry_after", res.RetryAfter)
			return nil, &RateLimitError{RetryAfter: res.RetryAfter}
		}
	}

	data, err := s.source.Analyze(ctx, pageURL)
	if err != nil {
		s.observe(outcomeFailed, start)
		if errors.Is(err, extract.ErrBlockedAddress) {
			logger.Warn("refused to fetch non-public address", "error", err)
			return nil, invalidInput("url does not resolve to a public address")
		}
		logger.Error("landing page analysis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	// Only completed upstream work counts against the quota
	if s.limiter != nil {
		if err := s.limiter.Record(ctx, userID); err != nil {
			logger.Warn("failed to record analysis for rate limiting", "error", err)
		}
	}

	page := &models.LandingPage{
		UserID:       userID,
		URL:          pageURL,
		Title:        data.Title,
		Description:  data.Description,
		Keywords:     data.KeyPoints,
		AnalyzedData: *data,
	}

	if existing != nil {
		page.ID = existing.ID
		page.CreatedAt = existing.CreatedAt
		if err := s.pages.Update(ctx, page); err != nil {
			logger.Error("failed to store re-analysis", "error", err)
			s.observe(outcomeFailed, start)
			return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		}
		s.recorder.Record(ctx, userID, models.EventReanalyzed, map[string]string{"url": pageURL})
		s.observe(outcomeReanalyzed, start)
		logger.Info("landing page re-analyzed", "landing_page_id", page.ID)
		return &AnalyzeResult{Page: page}, nil
	}

	if err := s.pages.Create(ctx, page); err != nil {
		if db.IsUniqueViolation(err) {
			// another request for the same page won the insert
			winner, getErr := s.pages.GetByURL(ctx, userID, pageURL)
			if getErr == nil && winner != nil {
				s.recorder.Record(ctx, userID, models.EventReusedLandingPage, map[string]string{"url": pageURL})
				s.observe(outcomeReused, start)
				return &AnalyzeResult{Page: winner, Reused: true}, nil
			}
		}
		logger.Error("failed to store analysis", "error", err)
		s.observe(outcomeFailed, start)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	s.recorder.Record(ctx, userID, models.EventNewAnalysis, map[string]string{"url": pageURL})
	s.observe(outcomeNew, start)
	logger.Info("landing page analyzed", "landing_page_id", page.ID)
	return &AnalyzeResult{Page: page}, nil
}

// Regenerate asks the content source for a better version of one email field.
// Nothing is persisted.
func (s *Service) Regenerate(ctx context.Context, userID, field, value, pageURL string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	if !generate.ValidField(field) {
		return "", invalidInput("unknown field %q", field)
	}
	if strings.TrimSpace(value) == "" {
		return "", invalidInput("value is required")
	}

	out, err := s.source.Regenerate(ctx, field, value, pageURL)
	if err != nil {
		metrics.IncRegenerations(field, outcomeFailed)
		s.logger.Error("regeneration failed", "user_id", userID, "field", field, "error", err)
		return "", fmt.Errorf("%w: %w", ErrRegenerationFailed, err)
	}

	metrics.IncRegenerations(field, "ok")
	s.recorder.Record(ctx, userID, models.EventEmailRegenerated, map[string]string{"field": field, "url": pageURL})
	return out, nil
}

func (s *Service) observe(outcome string, start time.Time) {
	metrics.IncAnalyses(outcome)
	metrics.ObserveAnalysisDuration(outcome, s.now().Sub(start).Seconds())
}
