// Package events records analytics events. Recording is best effort: failures
// are logged and counted, never returned to the caller.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/foxzi/copysmith/internal/metrics"
	"github.com/foxzi/copysmith/internal/models"
	"github.com/google/uuid"
)

const recordTimeout = 5 * time.Second

// Store persists analytics events
type Store interface {
	Create(ctx context.Context, e *models.AnalyticsEvent) error
}

// Publisher fans events out to a message broker
type Publisher interface {
	Publish(ctx context.Context, e *models.AnalyticsEvent) error
	Close() error
}

// Recorder writes events to the store and an optional publisher
type Recorder struct {
	store     Store
	publisher Publisher
	sink      string
	logger    *slog.Logger
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(store Store, publisher Publisher, sink string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		sink:      sink,
		logger:    logger.With("component", "events"),
	}
}

// Record appends an event for userID. It never fails and outlives the
// caller's cancellation so telemetry is not lost when a client disconnects.
func (r *Recorder) Record(ctx context.Context, userID, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		r.logger.Warn("failed to encode event data", "event_type", eventType, "error", err)
		payload = []byte("{}")
	}

	e := &models.AnalyticsEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventType: eventType,
		EventData: payload,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.store.Create(ctx, e); err != nil {
		r.logger.Warn("failed to record analytics event", "event_type", eventType, "user_id", userID, "error", err)
		metrics.IncEventsDropped("store")
	} else {
		metrics.IncEventsRecorded(eventType)
	}

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("failed to publish analytics event", "event_type", eventType, "sink", r.sink, "error", err)
		metrics.IncEventsDropped(r.sink)
	}
}

// Close closes the publisher
func (r *Recorder) Close() error {
	if r.publisher == nil {
		return nil
	}
	return r.publisher.Close()
}
