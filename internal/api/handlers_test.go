package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxzi/copysmith/internal/analysis"
	"github.com/foxzi/copysmith/internal/auth"
	"github.com/foxzi/copysmith/internal/config"
	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/events"
	"github.com/foxzi/copysmith/internal/models"
	"github.com/foxzi/copysmith/internal/ratelimit"
	"github.com/foxzi/copysmith/internal/repository"
	"github.com/foxzi/copysmith/internal/source"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type failingSource struct{}

func (failingSource) Analyze(ctx context.Context, pageURL string) (*models.AnalyzedData, error) {
	return nil, errors.New("Tavily API error: 401 invalid api key")
}

func (failingSource) Regenerate(ctx context.Context, field, value, pageURL string) (string, error) {
	return "", errors.New("connection refused")
}

type denyAll struct{}

func (denyAll) Check(ctx context.Context, userID string) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: false, DeniedBy: ratelimit.LevelUser, RetryAfter: 90 * time.Second}, nil
}

func (denyAll) Record(ctx context.Context, userID string) error {
	return nil
}

type testServer struct {
	server   *Server
	verifier *auth.Verifier
	pages    *repository.LandingPageRepository
}

func setupTestServer(t *testing.T, mutate func(*analysis.Deps)) *testServer {
	t.Helper()

	d, err := db.Open(db.Options{Driver: db.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pages := repository.NewLandingPageRepository(d)
	eventRepo := repository.NewAnalyticsRepository(d)

	deps := analysis.Deps{
		Pages:     pages,
		Templates: repository.NewTemplateRepository(d),
		Events:    eventRepo,
		Recorder:  events.NewRecorder(eventRepo, nil, "none", logger),
		Source:    source.NewFixture(),
		Logger:    logger,
	}
	if mutate != nil {
		mutate(&deps)
	}

	verifier := auth.NewVerifier(testSecret, "", time.Hour)
	cfg := &config.APIConfig{ListenAddr: ":8080"}
	server := NewServer(analysis.NewService(deps), verifier, cfg, Options{Version: "test"}, logger)

	return &testServer{server: server, verifier: verifier, pages: pages}
}

func (ts *testServer) do(t *testing.T, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := ts.verifier.IssueToken(user)
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "", "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody[HealthResponse](t, w)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := setupTestServer(t, nil)

	expired, _ := auth.NewVerifier(testSecret, "", -time.Minute).IssueToken("U")
	foreign, _ := auth.NewVerifier("ffffffffffffffffffffffffffffffff", "", time.Hour).IssueToken("U")
	valid, _ := ts.verifier.IssueToken("U")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no auth", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/landing-pages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.server.Handler().ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com/webinar-signup"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d. Body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	first := decodeBody[AnalyzeResponse](t, w)
	if first.Reused || first.Data == nil || first.Data.ID == "" {
		t.Fatalf("first response = %+v", first)
	}
	if first.Message != "Landing page analyzed successfully" {
		t.Errorf("Message = %q", first.Message)
	}
	if first.Data.AnalyzedData.Tone == "" || len(first.Data.AnalyzedData.KeyPoints) == 0 {
		t.Errorf("analyzed data = %+v", first.Data.AnalyzedData)
	}

	w = ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com/webinar-signup"}`)
	second := decodeBody[AnalyzeResponse](t, w)
	if !second.Reused || second.Data.ID != first.Data.ID {
		t.Errorf("second response = %+v, want reuse of %s", second, first.Data.ID)
	}
	if second.Message != "Retrieved existing analysis" {
		t.Errorf("Message = %q", second.Message)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*analysis.Deps)
		body   string
		want   int
	}{
		{"invalid json", nil, `{invalid}`, http.StatusBadRequest},
		{"missing url", nil, `{}`, http.StatusBadRequest},
		{"upstream failure", func(d *analysis.Deps) { d.Source = failingSource{} }, `{"url":"https://example.com"}`, http.StatusBadGateway},
		{"rate limited", func(d *analysis.Deps) { d.Limiter = denyAll{} }, `{"url":"https://example.com"}`, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t, tt.mutate)

			w := ts.do(t, "U", "POST", "/api/v1/analyze", tt.body)
			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d. Body: %s", w.Code, tt.want, w.Body.String())
			}

			resp := decodeBody[ErrorResponse](t, w)
			if resp.Error == "" {
				t.Error("error message is empty")
			}

			n, _ := ts.pages.Count(context.Background(), "U")
			if n != 0 {
				t.Errorf("page count = %d, want 0", n)
			}
		})
	}
}

func TestAnalyzeEndpointHidesUpstreamDetails(t *testing.T) {
	ts := setupTestServer(t, func(d *analysis.Deps) { d.Source = failingSource{} })

	w := ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com"}`)
	resp := decodeBody[ErrorResponse](t, w)
	if resp.Error != "Failed to analyze landing page" {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestAnalyzeEndpointRetryAfter(t *testing.T) {
	ts := setupTestServer(t, func(d *analysis.Deps) { d.Limiter = denyAll{} })

	w := ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com"}`)
	if got := w.Header().Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want 90", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{60 * time.Second, 60},
		{90*time.Second + 200*time.Millisecond, 91},
		{time.Millisecond, 1},
		{59*time.Minute + 59*time.Second, 3599},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRegenerateEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "U", "POST", "/api/v1/regenerate", `{"field":"subject","value":"Hello","url":"https://example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d. Body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[RegenerateResponse](t, w)
	if resp.Field != "subject" || resp.Value != "Hello (Regenerated)" {
		t.Errorf("response = %+v", resp)
	}

	w = ts.do(t, "U", "POST", "/api/v1/regenerate", `{"field":"footer","value":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", w.Code)
	}
}

func TestRegenerateEndpointUpstreamFailure(t *testing.T) {
	ts := setupTestServer(t, func(d *analysis.Deps) { d.Source = failingSource{} })

	w := ts.do(t, "U", "POST", "/api/v1/regenerate", `{"field":"subject","value":"Hello"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", w.Code)
	}
	resp := decodeBody[ErrorResponse](t, w)
	if resp.Error != "Failed to regenerate content" {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestLandingPageEndpoints(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com/product"}`)
	created := decodeBody[AnalyzeResponse](t, w)
	ts.do(t, "V", "POST", "/api/v1/analyze", `{"url":"https://example.com/product"}`)

	w = ts.do(t, "U", "GET", "/api/v1/landing-pages?search=product&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decodeBody[LandingPageListResponse](t, w)
	if list.Total != 1 || list.LandingPages[0].ID != created.Data.ID {
		t.Errorf("list = %+v", list)
	}

	if w := ts.do(t, "U", "GET", "/api/v1/landing-pages?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}

	if w := ts.do(t, "V", "GET", "/api/v1/landing-pages/"+created.Data.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("other user get status = %d, want 404", w.Code)
	}
	if w := ts.do(t, "U", "GET", "/api/v1/landing-pages/"+created.Data.ID, ""); w.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", w.Code)
	}

	if w := ts.do(t, "U", "DELETE", "/api/v1/landing-pages/"+created.Data.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	if w := ts.do(t, "U", "DELETE", "/api/v1/landing-pages/"+created.Data.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	w = ts.do(t, "V", "GET", "/api/v1/landing-pages", "")
	if list := decodeBody[LandingPageListResponse](t, w); list.Total != 1 {
		t.Errorf("other user's list = %+v, want untouched row", list)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "U", "POST", "/api/v1/templates", `{"name":"Invite","subject":"Hi {{.FirstName}}","body":"Welcome {{.FirstName}}"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d. Body: %s", w.Code, w.Body.String())
	}
	created := decodeBody[models.EmailTemplate](t, w)

	if w := ts.do(t, "U", "POST", "/api/v1/templates", `{"name":"Bad","subject":"Hi {{.FirstName"}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid template status = %d, want 400", w.Code)
	}

	w = ts.do(t, "U", "POST", "/api/v1/templates/"+created.ID+"/duplicate", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	dup := decodeBody[models.EmailTemplate](t, w)
	if dup.ID == created.ID || dup.Name != "Invite (Copy)" || dup.Body != created.Body {
		t.Errorf("duplicate = %+v", dup)
	}

	w = ts.do(t, "U", "PUT", "/api/v1/templates/"+dup.ID, `{"name":"Invite v2","subject":"Hello","body":"Changed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d. Body: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "U", "GET", "/api/v1/templates/"+created.ID, "")
	if got := decodeBody[models.EmailTemplate](t, w); got.Body != "Welcome {{.FirstName}}" {
		t.Errorf("source body changed to %q", got.Body)
	}

	w = ts.do(t, "U", "POST", "/api/v1/templates/"+created.ID+"/preview", `{"data":{"FirstName":"Ada"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d", w.Code)
	}
	preview := decodeBody[analysis.Preview](t, w)
	if preview.Subject != "Hi Ada" || preview.Body != "Welcome Ada" {
		t.Errorf("preview = %+v", preview)
	}

	w = ts.do(t, "U", "GET", "/api/v1/templates?search=v2", "")
	if list := decodeBody[TemplateListResponse](t, w); list.Total != 1 || list.Templates[0].ID != dup.ID {
		t.Errorf("search = %+v", list)
	}

	if w := ts.do(t, "V", "DELETE", "/api/v1/templates/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("other user delete status = %d, want 404", w.Code)
	}
	if w := ts.do(t, "U", "DELETE", "/api/v1/templates/"+created.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com"}`)
	ts.do(t, "U", "POST", "/api/v1/analyze", `{"url":"https://example.com"}`)

	w := ts.do(t, "U", "GET", "/api/v1/analytics/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	summary := decodeBody[models.AnalyticsSummary](t, w)
	if summary.TotalLandingPages != 1 || summary.TotalAnalyses != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Monthly) != 6 {
		t.Errorf("monthly points = %d, want 6", len(summary.Monthly))
	}
}

func TestUsageEndpointDisabled(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, "U", "GET", "/api/v1/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if resp := decodeBody[UsageResponse](t, w); resp.Enabled {
		t.Errorf("usage = %+v, want disabled", resp)
	}
}
