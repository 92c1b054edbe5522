package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/foxzi/copysmith/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	events []*models.AnalyticsEvent
	err    error
	ctxErr error
}

func (s *memStore) Create(ctx context.Context, e *models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

type memPublisher struct {
	published []*models.AnalyticsEvent
	err       error
	closed    bool
}

func (p *memPublisher) Publish(ctx context.Context, e *models.AnalyticsEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

func (p *memPublisher) Close() error {
	p.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecord(t *testing.T) {
	store := &memStore{}
	pub := &memPublisher{}
	r := NewRecorder(store, pub, "kafka", discardLogger())

	r.Record(context.Background(), "user-1", models.EventNewAnalysis, map[string]string{"url": "https://example.com"})

	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	e := store.events[0]
	if e.UserID != "user-1" || e.EventType != models.EventNewAnalysis {
		t.Errorf("event = %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("expected id and created_at to be set")
	}

	var data map[string]string
	if err := json.Unmarshal(e.EventData, &data); err != nil {
		t.Fatalf("event data is not JSON: %v", err)
	}
	if data["url"] != "https://example.com" {
		t.Errorf("event data url = %q", data["url"])
	}

	if len(pub.published) != 1 || pub.published[0] != e {
		t.Errorf("published = %v, want the stored event", pub.published)
	}

	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !pub.closed {
		t.Error("publisher was not closed")
	}
}

func TestRecordSurvivesCanceledContext(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, "none", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, "user-1", models.EventTemplateSaved, map[string]string{"name": "n"})

	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	if store.ctxErr != nil {
		t.Errorf("store saw canceled context: %v", store.ctxErr)
	}
}

func TestRecordFailuresAreSwallowed(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	pub := &memPublisher{err: errors.New("broker down")}
	r := NewRecorder(store, pub, "amqp", discardLogger())

	// must not panic or block
	r.Record(context.Background(), "user-1", models.EventTemplateDeleted, nil)

	if len(store.events) != 0 {
		t.Errorf("stored %d events, want 0", len(store.events))
	}
}

func TestRecordUnencodableData(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, "none", discardLogger())

	r.Record(context.Background(), "user-1", models.EventNewAnalysis, map[string]any{"bad": make(chan int)})

	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	if string(store.events[0].EventData) != "{}" {
		t.Errorf("event data = %s, want {}", store.events[0].EventData)
	}
}

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey(models.EventEmailRegenerated); got != "analytics."+models.EventEmailRegenerated {
		t.Errorf("RoutingKey() = %q", got)
	}
}

func TestCloseWithoutPublisher(t *testing.T) {
	r := NewRecorder(&memStore{}, nil, "none", discardLogger())
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
