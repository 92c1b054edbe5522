package ratelimit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupTestDB(t *testing.T) *bolt.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestLimiter(t *testing.T, db *bolt.DB, cfg *Config) *Limiter {
	t.Helper()
	limiter, err := NewLimiter(db, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return limiter
}

func TestNewLimiterDefaultConfig(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), nil)
	defer limiter.Stop()

	if limiter.config.FlushInterval != 10*time.Second {
		t.Errorf("expected default FlushInterval=10s, got %v", limiter.config.FlushInterval)
	}
}

// admit mirrors how the pipeline uses the limiter: check, then record on success
func admit(t *testing.T, l *Limiter, userID string) *Result {
	t.Helper()
	ctx := context.Background()
	res, err := l.Check(ctx, userID)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Allowed {
		if err := l.Record(ctx, userID); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return res
}

func TestUserHourlyLimit(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		PerUser:       &LimitConfig{AnalysesPerHour: 2},
		FlushInterval: 50 * time.Millisecond,
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if res := admit(t, limiter, "user-1"); !res.Allowed {
			t.Fatalf("analysis %d should be allowed", i+1)
		}
	}

	res := admit(t, limiter, "user-1")
	if res.Allowed {
		t.Fatal("third analysis should be denied")
	}
	if res.DeniedBy != LevelUser {
		t.Errorf("DeniedBy = %s, want %s", res.DeniedBy, LevelUser)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Hour {
		t.Errorf("RetryAfter = %v, want within the hour", res.RetryAfter)
	}

	// Other users are unaffected
	if res := admit(t, limiter, "user-2"); !res.Allowed {
		t.Error("user-2 should be allowed")
	}
}

func TestGlobalLimit(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		Global: &LimitConfig{AnalysesPerDay: 2},
	})
	defer limiter.Stop()

	admit(t, limiter, "user-1")
	admit(t, limiter, "user-2")

	res := admit(t, limiter, "user-3")
	if res.Allowed {
		t.Fatal("global daily limit should deny user-3")
	}
	if res.DeniedBy != LevelGlobal {
		t.Errorf("DeniedBy = %s, want %s", res.DeniedBy, LevelGlobal)
	}
}

func TestWindowReset(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		PerUser: &LimitConfig{AnalysesPerHour: 1, AnalysesPerDay: 5},
	})
	defer limiter.Stop()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if res := admit(t, limiter, "user-1"); !res.Allowed {
		t.Fatal("first analysis should be allowed")
	}
	if res := admit(t, limiter, "user-1"); res.Allowed {
		t.Fatal("second analysis in the same hour should be denied")
	}

	now = now.Add(61 * time.Minute)
	if res := admit(t, limiter, "user-1"); !res.Allowed {
		t.Error("analysis after the hour window should be allowed")
	}

	stats, err := limiter.GetStats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.HourlyCount != 1 || stats.DailyCount != 2 {
		t.Errorf("stats = %d/%d, want 1 hourly 2 daily", stats.HourlyCount, stats.DailyCount)
	}
}

func TestCheckDoesNotCount(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		PerUser: &LimitConfig{AnalysesPerHour: 1},
	})
	defer limiter.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, _ := limiter.Check(ctx, "user-1")
		if !res.Allowed {
			t.Fatalf("Check() %d should be allowed", i+1)
		}
	}

	if err := limiter.Record(ctx, "user-1"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if res, _ := limiter.Check(ctx, "user-1"); res.Allowed {
		t.Error("Check() after reaching the limit should deny")
	}
}

func TestRecordCountsBothLevels(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		Global:  &LimitConfig{AnalysesPerHour: 100},
		PerUser: &LimitConfig{AnalysesPerHour: 10},
	})
	defer limiter.Stop()

	ctx := context.Background()
	limiter.Record(ctx, "user-1")
	limiter.Record(ctx, "user-2")

	limiter.mu.RLock()
	global := limiter.counters[makeKey(LevelGlobal, "global")].HourlyCount
	user := limiter.counters[makeKey(LevelUser, "user-1")].HourlyCount
	limiter.mu.RUnlock()

	if global != 2 {
		t.Errorf("global HourlyCount = %d, want 2", global)
	}
	if user != 1 {
		t.Errorf("user-1 HourlyCount = %d, want 1", user)
	}
}

func TestGetStatsNonExistent(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), nil)
	defer limiter.Stop()

	stats, err := limiter.GetStats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.HourlyCount != 0 || stats.DailyCount != 0 {
		t.Errorf("stats = %+v, want zero counts", stats)
	}
}

func TestPersistence(t *testing.T) {
	db := setupTestDB(t)
	cfg := &Config{PerUser: &LimitConfig{AnalysesPerHour: 10}}

	limiter := newTestLimiter(t, db, cfg)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		admit(t, limiter, "user-1")
	}
	if err := limiter.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	reloaded := newTestLimiter(t, db, cfg)
	defer reloaded.Stop()

	stats, _ := reloaded.GetStats(ctx, "user-1")
	if stats.HourlyCount != 3 {
		t.Errorf("HourlyCount after reload = %d, want 3", stats.HourlyCount)
	}
}

func TestZeroLimits(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), &Config{
		PerUser: &LimitConfig{},
	})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		if res := admit(t, limiter, "user-1"); !res.Allowed {
			t.Fatalf("zero limits should never deny (iteration %d)", i)
		}
	}
}

func TestCanceledContext(t *testing.T) {
	limiter := newTestLimiter(t, setupTestDB(t), nil)
	defer limiter.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limiter.Check(ctx, "user-1"); err == nil {
		t.Error("Check() with canceled context should fail")
	}
	if err := limiter.Record(ctx, "user-1"); err == nil {
		t.Error("Record() with canceled context should fail")
	}
}

func TestMakeKey(t *testing.T) {
	if got := makeKey(LevelUser, "abc"); got != "user:abc" {
		t.Errorf("makeKey() = %q, want user:abc", got)
	}
}
