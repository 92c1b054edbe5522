package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/models"
	"github.com/google/uuid"
)

type TemplateRepository struct {
	db *db.DB
}

func NewTemplateRepository(d *db.DB) *TemplateRepository {
	return &TemplateRepository{db: d}
}

const templateColumns = `id, user_id, name, subject, preheader, body, created_at, updated_at`

// Create creates a new email template
func (r *TemplateRepository) Create(ctx context.Context, t *models.EmailTemplate) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO email_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.UserID, t.Name, t.Subject, t.Preheader, t.Body, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID returns a template owned by the user
func (r *TemplateRepository) GetByID(ctx context.Context, userID, id string) (*models.EmailTemplate, error) {
	t := &models.EmailTemplate{}
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+templateColumns+` FROM email_templates WHERE id = ? AND user_id = ?`), id, userID,
	).Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Preheader, &t.Body, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the user's templates, most recently updated first
func (r *TemplateRepository) List(ctx context.Context, userID string, filter models.TemplateListFilter) ([]models.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT `+templateColumns+` FROM email_templates
		WHERE user_id = ?
		ORDER BY updated_at DESC`), userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []models.EmailTemplate{}
	for rows.Next() {
		var t models.EmailTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Preheader, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if !matchesSearch(filter.Search, t.Name, t.Subject) {
			continue
		}
		templates = append(templates, t)
		if filter.Limit > 0 && len(templates) >= filter.Limit {
			break
		}
	}
	return templates, rows.Err()
}

// Update updates a template owned by the user. Returns false if no row matched.
func (r *TemplateRepository) Update(ctx context.Context, t *models.EmailTemplate) (bool, error) {
	t.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE email_templates SET name = ?, subject = ?, preheader = ?, body = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		t.Name, t.Subject, t.Preheader, t.Body, t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete deletes a template owned by the user. Returns false if no row matched.
func (r *TemplateRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM email_templates WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of templates saved by the user
func (r *TemplateRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		"SELECT COUNT(*) FROM email_templates WHERE user_id = ?"), userID).Scan(&n)
	return n, err
}
