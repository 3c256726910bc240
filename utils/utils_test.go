package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/schedule"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Use(config.AppConfig{JWTSecret: "test-secret"})
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 7 || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}

	expired, _ := GenerateToken(7, "alice", -time.Minute)
	if _, err := ParseToken(expired); err == nil {
		t.Error("expired token accepted")
	}
	if _, err := ParseToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "admin123") || CheckPassword(hash, "admin124") {
		t.Error("bcrypt check mismatch")
	}
}

func TestBlacklistInMemory(t *testing.T) {
	ctx := context.Background()
	BlacklistToken(ctx, "tok-a", time.Now().Add(time.Hour))
	BlacklistToken(ctx, "tok-old", time.Now().Add(-time.Hour))
	if !IsTokenBlacklisted(ctx, "tok-a") {
		t.Error("revoked token not reported")
	}
	if IsTokenBlacklisted(ctx, "tok-old") || IsTokenBlacklisted(ctx, "tok-b") {
		t.Error("unrevoked token reported")
	}
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	ctx := context.Background()
	CacheSetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute)
	if _, ok := CacheGetBytes(ctx, "k"); ok {
		t.Error("disabled cache returned a hit")
	}
	InvalidateByPrefix(ctx, "k")
}

func TestCacheGeneration(t *testing.T) {
	ctx := context.Background()
	before := CacheGeneration(ctx, "cache:gen:test")
	BumpCacheGeneration(ctx, "cache:gen:test")
	if got := CacheGeneration(ctx, "cache:gen:test"); got != before+1 {
		t.Errorf("generation = %d, want %d", got, before+1)
	}
	if got := CacheGeneration(ctx, "cache:gen:other"); got != 0 {
		t.Errorf("untouched namespace generation = %d", got)
	}
}

func TestKeyedLock(t *testing.T) {
	kl := NewKeyedLock()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("habit:1:2026-01-05")
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Errorf("max holders = %d, want 1", maxInside)
	}
	if kl.Len() != 0 {
		t.Errorf("entries left = %d, want 0", kl.Len())
	}

	a := kl.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := kl.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("distinct keys blocked each other")
	}
	a()
}

type fakeCompactor struct {
	before  []string
	batches []int64
	err     error
}

func (f *fakeCompactor) CompactZeroLogs(_ context.Context, before string, _ int) (int64, error) {
	f.before = append(f.before, before)
	if len(f.batches) == 0 {
		return 0, f.err
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func TestCompactOnce(t *testing.T) {
	now := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	f := &fakeCompactor{batches: []int64{compactBatch, compactBatch, 3}}
	n, err := CompactOnce(context.Background(), f, now, 90)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2*compactBatch+3 {
		t.Errorf("removed = %d", n)
	}
	if len(f.before) != 3 || f.before[0] != "2026-07-18" {
		t.Errorf("cutoffs = %v", f.before)
	}

	boom := errors.New("boom")
	f = &fakeCompactor{err: boom}
	if _, err := CompactOnce(context.Background(), f, now, 1); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestValidationFailed(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := schedule.Definition{Name: "", TimesPerDay: 0}.Build()
	if !ValidationFailed(c, 40010, err) {
		t.Fatal("validation error not handled")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	if ValidationFailed(c, 40010, errors.New("db down")) {
		t.Error("plain error treated as validation failure")
	}
}

func TestRecoveryWithZap(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Ginzap(zap.NewNop(), time.RFC3339, true), RecoveryWithZap(zap.NewNop(), true))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestSanitizeAndUnique(t *testing.T) {
	if got := SanitizeText("  <b>Read</b> 📖 "); got != "Read 📖" {
		t.Errorf("SanitizeText = %q", got)
	}
	got := Unique([]uint{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("Unique = %v", got)
	}
}
