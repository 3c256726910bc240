package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lifeflow/lifeflow/config"
)

func init() {
	config.Use(config.AppConfig{
		JWTSecret:          "test-secret",
		TokenTTLHours:      1,
		RateLimitPerMinute: 1000,
		GinMode:            "test",
		AllowedOrigins:     []string{"*"},
	})
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", ":memory:", "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return SetupRouter(db)
}

func send(t *testing.T, r http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)
	if status, _ := send(t, r, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Errorf("health status %d", status)
	}
	if status, env := send(t, r, http.MethodGet, "/api/v1/nope", "", nil); status != http.StatusNotFound || env.Code != 40400 {
		t.Errorf("unknown api route: %d %d", status, env.Code)
	}
	if status, env := send(t, r, http.MethodGet, "/api/v1/config", "", nil); status != http.StatusOK || env.Code != 0 {
		t.Errorf("config: %d %d", status, env.Code)
	}
}

func TestRouter_AuthFlow(t *testing.T) {
	r := newTestRouter(t)

	if status, env := send(t, r, http.MethodGet, "/api/v1/habits/week", "", nil); status != http.StatusUnauthorized || env.Code != 40101 {
		t.Errorf("anonymous week: %d %d", status, env.Code)
	}

	creds := gin.H{"username": "alice", "password": "secret1"}
	status, env := send(t, r, http.MethodPost, "/api/v1/auth/register", "", creds)
	if status != http.StatusCreated {
		t.Fatalf("register: %d %s", status, env.Message)
	}
	if status, env := send(t, r, http.MethodPost, "/api/v1/auth/register", "", creds); status != http.StatusConflict || env.Code != 40901 {
		t.Errorf("duplicate register: %d %d", status, env.Code)
	}
	if status, env := send(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong1"}); status != http.StatusUnauthorized || env.Code != 40106 {
		t.Errorf("bad login: %d %d", status, env.Code)
	}

	status, env = send(t, r, http.MethodPost, "/api/v1/auth/login", "", creds)
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, env.Message)
	}
	var login struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil || login.Token == "" || login.User.Username != "alice" {
		t.Fatalf("login data %s: %v", env.Data, err)
	}

	if status, env := send(t, r, http.MethodPost, "/api/v1/habits", login.Token, gin.H{"name": "Read"}); status != http.StatusCreated {
		t.Fatalf("create habit: %d %s", status, env.Message)
	}
	status, env = send(t, r, http.MethodGet, "/api/v1/habits/week", login.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("week: %d %s", status, env.Message)
	}
	var week struct {
		Habits []json.RawMessage `json:"habits"`
	}
	if err := json.Unmarshal(env.Data, &week); err != nil || len(week.Habits) != 1 {
		t.Errorf("week data %s: %v", env.Data, err)
	}
	if status, _ := send(t, r, http.MethodGet, "/api/v1/auth/me", login.Token, nil); status != http.StatusOK {
		t.Errorf("me status %d", status)
	}
	if status, _ := send(t, r, http.MethodGet, "/api/v1/dashboard/stats", login.Token, nil); status != http.StatusOK {
		t.Errorf("dashboard status %d", status)
	}

	if status, _ := send(t, r, http.MethodPost, "/api/v1/auth/logout", login.Token, nil); status != http.StatusOK {
		t.Fatalf("logout status %d", status)
	}
	if status, env := send(t, r, http.MethodGet, "/api/v1/habits", login.Token, nil); status != http.StatusUnauthorized || env.Code != 40104 {
		t.Errorf("revoked token: %d %d", status, env.Code)
	}
}
