package eshop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// SnapshotFetcher is what the data manager needs from the backend.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (Snapshot, error)
}

// Actor performs order transitions.
type Actor interface {
	Act(ctx context.Context, action Action, orderID int64) (ActionResult, error)
}

// Ensure Client implements both interfaces at compile time.
var (
	_ SnapshotFetcher = (*Client)(nil)
	_ Actor           = (*Client)(nil)
)

// Backend paths.
const (
	SnapshotPath     = "/eshop/queue/unified-data/"
	orderDetailsPath = "/eshop/queue/order-details/%d/"
	forceSyncPath    = "/eshop/queue/force-sync/"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "baristaboard/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// APIError reports an HTTP failure or a non-success envelope.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
	default:
		return fmt.Sprintf("api %s: %s", e.Path, e.Message)
	}
}

// Client talks to the shop backend over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	now       func() time.Time

	mu   sync.RWMutex
	csrf string
}

// NewClient builds a Client for the backend at baseURL.
func NewClient(baseURL, csrfToken string) (*Client, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		now:       time.Now,
		csrf:      strings.TrimSpace(csrfToken),
	}, nil
}

// BaseURL returns a copy of the backend origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// SetCSRFToken replaces the anti-forgery token sent with actions.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	c.csrf = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) csrfToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

// FetchSnapshot retrieves and validates the consolidated queue state.
func (c *Client) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	if c == nil {
		return Snapshot{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	rel := &url.URL{Path: SnapshotPath, RawQuery: values.Encode()}

	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return Snapshot{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	body, err := c.execute(req, SnapshotPath)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshotResponse(body)
}

// OrderDetails fetches the full record for one order.
func (c *Client) OrderDetails(ctx context.Context, orderID int64) (Order, error) {
	if c == nil {
		return Order{}, fmt.Errorf("client is nil")
	}
	path := fmt.Sprintf(orderDetailsPath, orderID)
	req, err := c.newRequest(ctx, http.MethodGet, &url.URL{Path: path}, nil)
	if err != nil {
		return Order{}, err
	}
	body, err := c.execute(req, path)
	if err != nil {
		return Order{}, err
	}
	var payload struct {
		envelope
		Order *Order `json:"order"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Order{}, fmt.Errorf("decode response: %w", err)
	}
	if !payload.Success || payload.Order == nil {
		return Order{}, &APIError{Path: path, Message: payload.failureMessage()}
	}
	return *payload.Order, nil
}

// ForceSync asks the backend to rebuild its queue state.
func (c *Client) ForceSync(ctx context.Context) (ActionResult, error) {
	if c == nil {
		return ActionResult{}, fmt.Errorf("client is nil")
	}
	return c.post(ctx, forceSyncPath)
}

func (c *Client) post(ctx context.Context, path string) (ActionResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, &url.URL{Path: path}, bytes.NewReader([]byte("{}")))
	if err != nil {
		return ActionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.csrfToken(); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}

	body, err := c.execute(req, path)
	var apiErr *APIError
	if err != nil && !(errors.As(err, &apiErr) && len(body) > 0) {
		return ActionResult{}, err
	}

	var result ActionResult
	if decodeErr := json.Unmarshal(body, &result); decodeErr != nil {
		if err != nil {
			return ActionResult{}, err
		}
		return ActionResult{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		if msg == "" && err != nil {
			return result, err
		}
		return result, &ActionError{Path: path, Message: msg}
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// execute runs req and returns the body. For HTTP errors the body is still
// returned alongside an *APIError so callers can read the server message.
func (c *Client) execute(req *http.Request, path string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Path: path, StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Message = firstNonEmpty(env.Error, env.Message)
		}
		return body, apiErr
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// ParseBaseURL normalizes a backend origin, defaulting the scheme to http.
func ParseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base_url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
