package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/models"
	"github.com/google/uuid"
)

// AnalyticsRepository is the append-only event log
type AnalyticsRepository struct {
	db *db.DB
}

func NewAnalyticsRepository(d *db.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: d}
}

// Create appends an event
func (r *AnalyticsRepository) Create(ctx context.Context, e *models.AnalyticsEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	data := string(e.EventData)
	if data == "" {
		data = "{}"
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO analytics (id, user_id, event_type, event_data, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		e.ID, e.UserID, e.EventType, data, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record analytics event: %w", err)
	}
	return nil
}

// Recent returns the user's latest events, newest first
func (r *AnalyticsRepository) Recent(ctx context.Context, userID string, limit int) ([]models.AnalyticsEvent, error) {
	query := `
		SELECT id, user_id, event_type, event_data, created_at FROM analytics
		WHERE user_id = ?
		ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// ListSince returns the user's events created at or after since, oldest first
func (r *AnalyticsRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.AnalyticsEvent, error) {
	return r.query(ctx, `
		SELECT id, user_id, event_type, event_data, created_at FROM analytics
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC`, userID, since.UTC())
}

// CountByType returns event counts keyed by event type
func (r *AnalyticsRepository) CountByType(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT event_type, COUNT(*) FROM analytics
		WHERE user_id = ?
		GROUP BY event_type`), userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			eventType string
			n         int
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, err
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}

func (r *AnalyticsRepository) query(ctx context.Context, query string, args ...any) ([]models.AnalyticsEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.AnalyticsEvent{}
	for rows.Next() {
		var (
			e    models.AnalyticsEvent
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventData = json.RawMessage(data)
		events = append(events, e)
	}
	return events, rows.Err()
}
