package analysis

import (
	"context"
	"fmt"

	"github.com/foxzi/copysmith/internal/models"
)

// ListLandingPages returns the user's analyses, newest first
func (s *Service) ListLandingPages(ctx context.Context, userID string, filter models.LandingPageListFilter) ([]models.LandingPage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, invalidInput("limit must not be negative")
	}
	pages, err := s.pages.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list landing pages: %w", err)
	}
	return pages, nil
}

// GetLandingPage returns one of the user's analyses
func (s *Service) GetLandingPage(ctx context.Context, userID, id string) (*models.LandingPage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	page, err := s.pages.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get landing page: %w", err)
	}
	if page == nil {
		return nil, ErrNotFound
	}
	return page, nil
}

// DeleteLandingPage removes one of the user's analyses. Rows of other users
// are never touched, even for the same URL.
func (s *Service) DeleteLandingPage(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	deleted, err := s.pages.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete landing page: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.recorder.Record(ctx, userID, models.EventLandingPageDeleted, map[string]string{"landing_page_id": id})
	s.logger.Info("landing page deleted", "user_id", userID, "landing_page_id", id)
	return nil
}
