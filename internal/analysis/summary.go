package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/foxzi/copysmith/internal/models"
)

const (
	recentActivityLimit = 10
	summaryMonths       = 6
)

// Summary aggregates the user's dashboard figures from stored rows and the
// analytics event log
func (s *Service) Summary(ctx context.Context, userID string) (*models.AnalyticsSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	pages, err := s.pages.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count landing pages: %w", err)
	}
	templates, err := s.templates.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}
	counts, err := s.events.CountByType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	recent, err := s.events.Recent(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}

	months := monthStarts(s.now().UTC(), summaryMonths)
	events, err := s.events.ListSince(ctx, userID, months[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	if recent == nil {
		recent = []models.AnalyticsEvent{}
	}

	return &models.AnalyticsSummary{
		TotalLandingPages: pages,
		TotalTemplates:    templates,
		TotalAnalyses:     counts[models.EventNewAnalysis] + counts[models.EventReusedLandingPage],
		EventCounts:       counts,
		RecentActivity:    recent,
		Monthly:           monthlySeries(months, events),
	}, nil
}

// monthStarts returns the first instant of the n months ending with now's
// month, oldest first
func monthStarts(now time.Time, n int) []time.Time {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	starts := make([]time.Time, n)
	for i := 0; i < n; i++ {
		starts[i] = current.AddDate(0, i-(n-1), 0)
	}
	return starts
}

func monthlySeries(months []time.Time, events []models.AnalyticsEvent) []models.MonthlyActivity {
	series := make([]models.MonthlyActivity, len(months))
	index := make(map[string]int, len(months))
	for i, m := range months {
		key := m.Format("2006-01")
		series[i].Month = key
		index[key] = i
	}

	for _, e := range events {
		i, ok := index[e.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		switch e.EventType {
		case models.EventNewAnalysis, models.EventReusedLandingPage:
			series[i].Analyses++
		case models.EventTemplateSaved:
			series[i].Templates++
		}
	}
	return series
}
