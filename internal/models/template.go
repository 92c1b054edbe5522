package models

import "time"

type EmailTemplate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Preheader string    `json:"preheader"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemplateListFilter for filtering template list
type TemplateListFilter struct {
	Search string
	Limit  int
}
