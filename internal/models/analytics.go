package models

import (
	"encoding/json"
	"time"
)

// Event types recorded in the analytics log
const (
	EventNewAnalysis        = "new_landing_page_analysis"
	EventReusedLandingPage  = "reused_landing_page"
	EventReanalyzed         = "reanalyzed_landing_page"
	EventLandingPageDeleted = "landing_page_deleted"
	EventEmailRegenerated   = "email_regenerated"
	EventTemplateSaved      = "template_saved"
	EventTemplateUpdated    = "template_updated"
	EventTemplateDuplicated = "template_duplicated"
	EventTemplateDeleted    = "template_deleted"
)

type AnalyticsEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// MonthlyActivity is one point of the dashboard series
type MonthlyActivity struct {
	Month     string `json:"month"` // YYYY-MM
	Analyses  int    `json:"analyses"`
	Templates int    `json:"templates"`
}

// AnalyticsSummary backs the dashboard
type AnalyticsSummary struct {
	TotalLandingPages int               `json:"total_landing_pages"`
	TotalTemplates    int               `json:"total_templates"`
	TotalAnalyses     int               `json:"total_analyses"`
	EventCounts       map[string]int    `json:"event_counts"`
	RecentActivity    []AnalyticsEvent  `json:"recent_activity"`
	Monthly           []MonthlyActivity `json:"monthly"`
}
