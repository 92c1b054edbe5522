package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/models"
	"github.com/google/uuid"
)

type LandingPageRepository struct {
	db *db.DB
}

func NewLandingPageRepository(d *db.DB) *LandingPageRepository {
	return &LandingPageRepository{db: d}
}

const landingPageColumns = `id, user_id, url, title, description, keywords, analyzed_data, created_at, updated_at`

// Create inserts a new landing page analysis. A second row for the same
// (user, url) fails with a unique violation, see db.IsUniqueViolation.
func (r *LandingPageRepository) Create(ctx context.Context, lp *models.LandingPage) error {
	keywords, analyzed, err := encodeLandingPage(lp)
	if err != nil {
		return err
	}

	lp.ID = uuid.New().String()
	lp.CreatedAt = time.Now().UTC()
	lp.UpdatedAt = lp.CreatedAt

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO landing_pages (`+landingPageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		lp.ID, lp.UserID, lp.URL, lp.Title, lp.Description, keywords, analyzed, lp.CreatedAt, lp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create landing page: %w", err)
	}
	return nil
}

// Update replaces the analysis of an existing row wholesale
func (r *LandingPageRepository) Update(ctx context.Context, lp *models.LandingPage) error {
	keywords, analyzed, err := encodeLandingPage(lp)
	if err != nil {
		return err
	}

	lp.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE landing_pages SET title = ?, description = ?, keywords = ?, analyzed_data = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		lp.Title, lp.Description, keywords, analyzed, lp.UpdatedAt, lp.ID, lp.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update landing page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("landing page not found: %s", lp.ID)
	}
	return nil
}

// GetByURL returns the analysis of url for the user, matching the literal string
func (r *LandingPageRepository) GetByURL(ctx context.Context, userID, url string) (*models.LandingPage, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+landingPageColumns+` FROM landing_pages WHERE user_id = ? AND url = ?`),
		userID, url,
	)
	lp, err := scanLandingPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lp, err
}

// GetByID returns a landing page owned by the user
func (r *LandingPageRepository) GetByID(ctx context.Context, userID, id string) (*models.LandingPage, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+landingPageColumns+` FROM landing_pages WHERE user_id = ? AND id = ?`),
		userID, id,
	)
	lp, err := scanLandingPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lp, err
}

// List returns the user's landing pages, newest first
func (r *LandingPageRepository) List(ctx context.Context, userID string, filter models.LandingPageListFilter) ([]models.LandingPage, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT `+landingPageColumns+` FROM landing_pages
		WHERE user_id = ?
		ORDER BY created_at DESC`), userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []models.LandingPage{}
	for rows.Next() {
		lp, err := scanLandingPage(rows)
		if err != nil {
			return nil, err
		}
		if !matchesSearch(filter.Search, lp.URL, lp.Title, lp.Description) {
			continue
		}
		pages = append(pages, *lp)
		if filter.Limit > 0 && len(pages) >= filter.Limit {
			break
		}
	}
	return pages, rows.Err()
}

// Delete removes a landing page owned by the user. Returns false if no row matched.
func (r *LandingPageRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM landing_pages WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of landing pages stored for the user
func (r *LandingPageRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		"SELECT COUNT(*) FROM landing_pages WHERE user_id = ?"), userID).Scan(&n)
	return n, err
}

func encodeLandingPage(lp *models.LandingPage) (string, string, error) {
	keywords := lp.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	k, err := json.Marshal(keywords)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode keywords: %w", err)
	}
	a, err := json.Marshal(lp.AnalyzedData)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode analyzed data: %w", err)
	}
	return string(k), string(a), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLandingPage(row rowScanner) (*models.LandingPage, error) {
	var (
		lp       models.LandingPage
		keywords []byte
		analyzed []byte
	)
	err := row.Scan(&lp.ID, &lp.UserID, &lp.URL, &lp.Title, &lp.Description,
		&keywords, &analyzed, &lp.CreatedAt, &lp.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &lp.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
	}
	if len(analyzed) > 0 {
		if err := json.Unmarshal(analyzed, &lp.AnalyzedData); err != nil {
			return nil, fmt.Errorf("failed to decode analyzed data: %w", err)
		}
	}
	return &lp, nil
}
