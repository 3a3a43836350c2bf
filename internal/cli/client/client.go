// Package client is the HTTP client ellyctl uses to talk to a gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/infra/buildinfo"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client calls a gateway over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for server, adding http:// when no scheme is given.
// A non-empty token is sent in the x-token header.
func New(server, token string) *Client {
	base := strings.TrimRight(server, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{baseURL: base, token: token, http: &http.Client{Timeout: DefaultTimeout}}
}

// BaseURL returns the normalised server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Response is a decoded GraphQL response.
type Response struct {
	Status int
	Data   json.RawMessage
	Errors []format.Error
	// Timing is the Server-Timing header.
	Timing string
}

// Get returns the value at path inside data, e.g. "students.#.fullName".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Data, path)
}

// Err returns the first GraphQL error, if any.
func (r *Response) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	e := r.Errors[0]
	code, _ := e.Extensions["code"].(string)
	return &Error{Status: r.Status, Code: code, Message: e.Message}
}

// Error is a GraphQL error returned by the gateway.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Query posts a GraphQL operation.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var decoded struct {
		Data   json.RawMessage `json:"data"`
		Errors []format.Error  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return &Response{
		Status: resp.StatusCode,
		Data:   decoded.Data,
		Errors: decoded.Errors,
		Timing: resp.Header.Get("Server-Timing"),
	}, nil
}

// Health is the /health body.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health fetches /health. A 503 still yields a body.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health (status %d): %w", resp.StatusCode, err)
	}
	return &h, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set(session.HeaderName, c.token)
	}
	req.Header.Set("User-Agent", "ellyctl/"+buildinfo.Version)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}
