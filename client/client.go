// Package client is a typed HTTP client for the LifeFlow habits API, plus
// WeekView, a week grid that keeps a consistent snapshot while check-ins
// are in flight.
//
// The client mirrors the server's wire format with its own types; only the
// pure scheduling model is shared with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lifeflow/lifeflow/schedule"
)

var (
	// ErrUnauthorized is matched by 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is matched by 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrConflict is matched when the server saw a different count than the
	// one the request expected.
	ErrConflict = errors.New("day changed since it was loaded")
)

// FieldError is one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// APIError is a non-success response. It matches ErrUnauthorized,
// ErrNotFound, ErrConflict, schedule.ErrOutsideEditWindow,
// schedule.ErrNotActionable and schedule.ErrOverTarget through errors.Is.
type APIError struct {
	Status  int
	Code    int
	Message string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d (code %d): %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Code == 40940
	case schedule.ErrOutsideEditWindow:
		return e.Code == 40340
	case schedule.ErrNotActionable:
		return e.Code == 42240
	case schedule.ErrOverTarget:
		return e.Code == 42241
	}
	return false
}

// Client talks to one LifeFlow server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	base    *http.Client
	timeout time.Duration
}

// WithHTTPClient sets the transport the bearer-token client wraps.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.base = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New creates a Client for baseURL (e.g. "http://localhost:8080"). A
// non-empty token is sent as a bearer token on every request.
func New(baseURL, token string, opts ...Option) *Client {
	o := options{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	hc := &http.Client{}
	if o.base != nil {
		copied := *o.base
		hc = &copied
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}
	hc.Timeout = o.timeout
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: hc,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || env.Code != 0 {
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		var data struct {
			Fields []FieldError `json:"fields"`
		}
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil {
			apiErr.Fields = data.Fields
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return out.Token, nil
}

// Register creates an account and returns its bearer token.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{"username": username, "password": password}, &out); err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return out.Token, nil
}

// Logout revokes the client's token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Week fetches the grid of an ISO week. Zero year or week selects the
// server's current week.
func (c *Client) Week(ctx context.Context, year, week int) (*Week, error) {
	q := url.Values{}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if week != 0 {
		q.Set("week", strconv.Itoa(week))
	}
	path := "/habits/week"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out Week
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch week: %w", err)
	}
	return &out, nil
}

// Toggle sends one check-in write. Without Count the server flips the day.
func (c *Client) Toggle(ctx context.Context, req ToggleRequest) (*ToggleResult, error) {
	var out ToggleResult
	if err := c.do(ctx, http.MethodPost, "/habits/toggle", req, &out); err != nil {
		return nil, fmt.Errorf("toggle habit %d on %s: %w", req.HabitID, req.Date, err)
	}
	return &out, nil
}

// Habits lists habits in display order.
func (c *Client) Habits(ctx context.Context, includeArchived bool) ([]Habit, error) {
	var out struct {
		Items []Habit `json:"items"`
	}
	path := "/habits?include_archived=" + strconv.FormatBool(includeArchived)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return out.Items, nil
}

// Habit fetches one habit.
func (c *Client) Habit(ctx context.Context, id uint) (*Habit, error) {
	var out Habit
	if err := c.do(ctx, http.MethodGet, habitPath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get habit %d: %w", id, err)
	}
	return &out, nil
}

// CreateHabit creates a habit; unset fields take server defaults.
func (c *Client) CreateHabit(ctx context.Context, in HabitInput) (*Habit, error) {
	var out Habit
	if err := c.do(ctx, http.MethodPost, "/habits", in, &out); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &out, nil
}

// UpdateHabit changes only the fields set in in.
func (c *Client) UpdateHabit(ctx context.Context, id uint, in HabitInput) (*Habit, error) {
	var out Habit
	if err := c.do(ctx, http.MethodPatch, habitPath(id), in, &out); err != nil {
		return nil, fmt.Errorf("update habit %d: %w", id, err)
	}
	return &out, nil
}

// DeleteHabit removes a habit and its logs.
func (c *Client) DeleteHabit(ctx context.Context, id uint) error {
	if err := c.do(ctx, http.MethodDelete, habitPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete habit %d: %w", id, err)
	}
	return nil
}

// Reorder stores a display order, first to last.
func (c *Client) Reorder(ctx context.Context, ids []uint) error {
	if err := c.do(ctx, http.MethodPost, "/habits/reorder", map[string][]uint{"habit_ids": ids}, nil); err != nil {
		return fmt.Errorf("reorder habits: %w", err)
	}
	return nil
}

// Today lists the habits that can be checked in today.
func (c *Client) Today(ctx context.Context) (*Today, error) {
	var out Today
	if err := c.do(ctx, http.MethodGet, "/habits/today", nil, &out); err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	return &out, nil
}

// Stats fetches streaks and recent check-ins over the last days days.
func (c *Client) Stats(ctx context.Context, id uint, days int) (*Stats, error) {
	var out Stats
	path := habitPath(id) + "/stats?days=" + strconv.Itoa(days)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("stats of habit %d: %w", id, err)
	}
	return &out, nil
}

func habitPath(id uint) string {
	return "/habits/" + strconv.FormatUint(uint64(id), 10)
}
