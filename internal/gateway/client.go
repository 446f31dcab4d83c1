// Package gateway talks to the calendar events REST API on behalf of the
// calendar engine.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/campuscal/internal/calendar"
)

const (
	eventsPath     = "/api/calendar/events"
	defaultTimeout = 15 * time.Second
)

// Config holds gateway settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
	// Location interprets query bounds and returned times. Defaults to
	// time.Local.
	Location *time.Location
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Client implements calendar.Gateway over HTTP. Cookies set by the API are
// kept in a jar and sent back on later requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	loc        *time.Location
	logger     *slog.Logger
}

var _ calendar.Gateway = (*Client)(nil)

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: cookie jar: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout, Jar: jar},
		username:   cfg.Username,
		password:   cfg.Password,
		loc:        cfg.Location,
		logger:     logger,
	}, nil
}

// ListEvents fetches the events inside r.
func (c *Client) ListEvents(ctx context.Context, r calendar.Range, filter calendar.EventType) ([]calendar.Event, error) {
	q := url.Values{}
	q.Set("start", r.Start.In(c.loc).Format(QueryTimeLayout))
	q.Set("end", r.End.In(c.loc).Format(QueryTimeLayout))
	if filter != "" {
		q.Set("event_type", string(filter))
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, eventsPath, q, nil, &resp); err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(resp.Events))
	for _, w := range resp.Events {
		e, err := w.toEvent(c.loc)
		if err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// CreateEvent persists a new event from d.
func (c *Client) CreateEvent(ctx context.Context, d calendar.Draft) (calendar.Event, error) {
	return c.save(ctx, http.MethodPost, eventsPath, d)
}

// UpdateEvent overwrites event id with d.
func (c *Client) UpdateEvent(ctx context.Context, id int64, d calendar.Draft) (calendar.Event, error) {
	return c.save(ctx, http.MethodPut, eventPath(id), d)
}

// DeleteEvent removes event id.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, nil, nil)
}

func (c *Client) save(ctx context.Context, method, path string, d calendar.Draft) (calendar.Event, error) {
	var resp eventResponse
	if err := c.do(ctx, method, path, nil, NewPayload(d), &resp); err != nil {
		return calendar.Event{}, err
	}
	if resp.Event == nil {
		return calendar.Event{}, fmt.Errorf("%s %s: response has no event", method, path)
	}
	e, err := resp.Event.toEvent(c.loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

func eventPath(id int64) string {
	return eventsPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
