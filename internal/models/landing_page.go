package models

import "time"

// StructuredContent is the normalized record extracted from a landing page
type StructuredContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	MainHeading string   `json:"main_heading"`
	SubHeading  string   `json:"sub_heading"`
	CTAText     string   `json:"cta_text"`
	KeyPoints   []string `json:"key_points"`
	Tone        string   `json:"tone"`
	Industry    string   `json:"industry"`
}

// EmailCopy is a drafted marketing email
type EmailCopy struct {
	SubjectLine string `json:"subject_line"`
	Preheader   string `json:"preheader,omitempty"`
	EmailBody   string `json:"email_body"`
	CTAText     string `json:"cta_text"`
}

// AnalyzedData is stored in landing_pages.analyzed_data
type AnalyzedData struct {
	StructuredContent
	EmailCopy EmailCopy `json:"email_copy"`
}

type LandingPage struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Keywords     []string     `json:"keywords"`
	AnalyzedData AnalyzedData `json:"analyzed_data"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// LandingPageListFilter for filtering landing page history
type LandingPageListFilter struct {
	Search string
	Limit  int
}
