// Package analysis runs the landing page to email copy pipeline and the
// user-scoped operations around its results.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxzi/copysmith/internal/models"
	"github.com/foxzi/copysmith/internal/ratelimit"
	"github.com/foxzi/copysmith/internal/source"
	"github.com/foxzi/copysmith/internal/template"
)

// LandingPageStore persists landing page analyses
type LandingPageStore interface {
	Create(ctx context.Context, lp *models.LandingPage) error
	Update(ctx context.Context, lp *models.LandingPage) error
	GetByURL(ctx context.Context, userID, url string) (*models.LandingPage, error)
	GetByID(ctx context.Context, userID, id string) (*models.LandingPage, error)
	List(ctx context.Context, userID string, filter models.LandingPageListFilter) ([]models.LandingPage, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	Count(ctx context.Context, userID string) (int, error)
}

// TemplateStore persists email templates
type TemplateStore interface {
	Create(ctx context.Context, t *models.EmailTemplate) error
	GetByID(ctx context.Context, userID, id string) (*models.EmailTemplate, error)
	List(ctx context.Context, userID string, filter models.TemplateListFilter) ([]models.EmailTemplate, error)
	Update(ctx context.Context, t *models.EmailTemplate) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	Count(ctx context.Context, userID string) (int, error)
}

// EventLog reads recorded analytics events
type EventLog interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.AnalyticsEvent, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.AnalyticsEvent, error)
	CountByType(ctx context.Context, userID string) (map[string]int, error)
}

// Recorder appends analytics events. It must not fail the caller.
type Recorder interface {
	Record(ctx context.Context, userID, eventType string, data any)
}

// Limiter meters cache-missing analyses. Check runs before the content
// source; Record runs only after it succeeded.
type Limiter interface {
	Check(ctx context.Context, userID string) (*ratelimit.Result, error)
	Record(ctx context.Context, userID string) error
}

// Guard serializes concurrent analyses of the same page
type Guard interface {
	Acquire(ctx context.Context, key string) (func(), bool)
}

// Deps holds the collaborators of a Service. Limiter and Guard are optional.
type Deps struct {
	Pages     LandingPageStore
	Templates TemplateStore
	Events    EventLog
	Recorder  Recorder
	Source    source.ContentSource
	Limiter   Limiter
	Guard     Guard
	Logger    *slog.Logger
}

// Service implements analysis, regeneration, history and template operations.
// Every operation takes the user id explicitly.
type Service struct {
	pages     LandingPageStore
	templates TemplateStore
	events    EventLog
	recorder  Recorder
	source    source.ContentSource
	limiter   Limiter
	guard     Guard
	engine    *template.Engine
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new analysis service
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pages:     d.Pages,
		templates: d.Templates,
		events:    d.Events,
		recorder:  d.Recorder,
		source:    d.Source,
		limiter:   d.Limiter,
		guard:     d.Guard,
		engine:    template.NewEngine(),
		logger:    logger.With("component", "analysis"),
		now:       time.Now,
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return invalidInput("user id is required")
	}
	return nil
}
