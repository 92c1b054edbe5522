package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxzi/copysmith/internal/models"
	"github.com/foxzi/copysmith/internal/template"
)

const copySuffix = " (Copy)"

// TemplateInput holds the editable fields of an email template
type TemplateInput struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Preheader string `json:"preheader"`
	Body      string `json:"body"`
}

// Preview is a template rendered with merge data
type Preview struct {
	template.RenderResult
	Variables []string `json:"variables"`
}

func (s *Service) validateTemplate(in TemplateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return invalidInput("subject is required")
	}
	if err := s.engine.Validate(templateFields(in.Subject, in.Preheader, in.Body)); err != nil {
		return invalidInput("%v", err)
	}
	return nil
}

func templateFields(subject, preheader, body string) template.Fields {
	return template.Fields{Subject: subject, Preheader: preheader, Body: body}
}

// ListTemplates returns the user's templates, most recently updated first
func (s *Service) ListTemplates(ctx context.Context, userID string, filter models.TemplateListFilter) ([]models.EmailTemplate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, invalidInput("limit must not be negative")
	}
	templates, err := s.templates.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// GetTemplate returns one of the user's templates
func (s *Service) GetTemplate(ctx context.Context, userID, id string) (*models.EmailTemplate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	t, err := s.templates.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// CreateTemplate saves a new template
func (s *Service) CreateTemplate(ctx context.Context, userID string, in TemplateInput) (*models.EmailTemplate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validateTemplate(in); err != nil {
		return nil, err
	}

	t := &models.EmailTemplate{
		UserID:    userID,
		Name:      in.Name,
		Subject:   in.Subject,
		Preheader: in.Preheader,
		Body:      in.Body,
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, userID, models.EventTemplateSaved, map[string]string{"template_id": t.ID, "name": t.Name})
	return t, nil
}

// UpdateTemplate replaces the editable fields of a template
func (s *Service) UpdateTemplate(ctx context.Context, userID, id string, in TemplateInput) (*models.EmailTemplate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validateTemplate(in); err != nil {
		return nil, err
	}

	t, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.Name = in.Name
	t.Subject = in.Subject
	t.Preheader = in.Preheader
	t.Body = in.Body

	updated, err := s.templates.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrNotFound
	}

	s.recorder.Record(ctx, userID, models.EventTemplateUpdated, map[string]string{"template_id": t.ID})
	return t, nil
}

// DeleteTemplate removes one of the user's templates
func (s *Service) DeleteTemplate(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	deleted, err := s.templates.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.recorder.Record(ctx, userID, models.EventTemplateDeleted, map[string]string{"template_id": id})
	return nil
}

// DuplicateTemplate copies a template under a new id with " (Copy)" appended
// to its name. The copy is independent of the source afterwards.
func (s *Service) DuplicateTemplate(ctx context.Context, userID, id string) (*models.EmailTemplate, error) {
	src, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dup := &models.EmailTemplate{
		UserID:    userID,
		Name:      src.Name + copySuffix,
		Subject:   src.Subject,
		Preheader: src.Preheader,
		Body:      src.Body,
	}
	if err := s.templates.Create(ctx, dup); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, userID, models.EventTemplateDuplicated, map[string]string{"template_id": dup.ID, "source_id": src.ID})
	return dup, nil
}

// PreviewTemplate renders a stored template with data
func (s *Service) PreviewTemplate(ctx context.Context, userID, id string, data map[string]string) (*Preview, error) {
	t, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := templateFields(t.Subject, t.Preheader, t.Body)
	res, err := s.engine.Render(fields, data)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	return &Preview{RenderResult: *res, Variables: s.engine.Variables(fields)}, nil
}
