package metrics

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseAllowedNets(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    int
	}{
		{"empty list", nil, 0},
		{"single IP", []string{"192.168.1.1"}, 1},
		{"CIDR and IP", []string{"10.0.0.0/8", " 172.16.0.1 "}, 2},
		{"invalid skipped", []string{"192.168.1.1", "invalid", "10.0.0.0/33"}, 1},
		{"IPv6", []string{"::1", "fe80::/10"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(parseAllowedNets(tt.entries, discardLogger())); got != tt.want {
				t.Errorf("len(parseAllowedNets()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsIPAllowed(t *testing.T) {
	s := NewServer(New(), ServerOptions{AllowedIPs: []string{"192.168.1.100", "10.0.0.0/8", "fe80::/10"}}, discardLogger())

	tests := []struct {
		ip      string
		allowed bool
	}{
		{"192.168.1.100", true},
		{"192.168.1.101", false},
		{"10.255.255.255", true},
		{"11.0.0.1", false},
		{"fe80::1", true},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		if got := s.isIPAllowed(net.ParseIP(tt.ip)); got != tt.allowed {
			t.Errorf("isIPAllowed(%s) = %v, want %v", tt.ip, got, tt.allowed)
		}
	}
}

func TestMetricsEndpointFiltering(t *testing.T) {
	s := NewServer(New(), ServerOptions{AllowedIPs: []string{"192.168.1.0/24"}}, discardLogger())
	handler := s.routes()

	tests := []struct {
		name       string
		path       string
		remoteAddr string
		headers    map[string]string
		wantStatus int
	}{
		{"allowed IP", "/metrics", "192.168.1.100:12345", nil, http.StatusOK},
		{"denied IP", "/metrics", "10.0.0.1:12345", nil, http.StatusForbidden},
		{"allowed through X-Real-IP", "/metrics", "127.0.0.1:1", map[string]string{"X-Real-IP": "192.168.1.7"}, http.StatusOK},
		{"allowed through X-Forwarded-For", "/metrics", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "192.168.1.8, 10.0.0.1"}, http.StatusOK},
		{"health is never filtered", "/health", "10.0.0.1:12345", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	m := New()
	m.AnalysesTotal.WithLabelValues("reused").Inc()

	rec := httptest.NewRecorder()
	NewServer(m, ServerOptions{}, discardLogger()).routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `copysmith_analyses_total{outcome="reused"} 1`) {
		t.Errorf("metrics output missing analyses counter:\n%s", rec.Body.String())
	}
}
