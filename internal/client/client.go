// Package client talks to the chat application backend that hosts MCP sessions.
//
// The backend owns the actual tool-server connections; this client only asks
// it to open one for a session and reports what it answered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is where a locally started chat backend listens.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second
)

// Client is the chat backend API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ConnectRequest is the body of POST /mcp.
type ConnectRequest struct {
	SessionID   string        `json:"sessionId"`
	Name        string        `json:"name"`
	ClientType  registry.Kind `json:"clientType"`
	FullCommand string        `json:"fullCommand,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// APIError is a non-2xx answer from the backend. Message is meant for users.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

var _ connect.Connector = (*Client)(nil)

// New creates a client for baseURL. An empty token sends no Authorization header.
func New(baseURL, token string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ConnectStdio(ctx context.Context, sessionID, name, command string) (*connect.Result, error) {
	return c.connectMCP(ctx, ConnectRequest{
		SessionID:   sessionID,
		Name:        name,
		ClientType:  registry.KindStdio,
		FullCommand: command,
	})
}

func (c *Client) ConnectSSE(ctx context.Context, sessionID, name, url string) (*connect.Result, error) {
	return c.connectMCP(ctx, ConnectRequest{
		SessionID:  sessionID,
		Name:       name,
		ClientType: registry.KindSSE,
		URL:        url,
	})
}

func (c *Client) ConnectStreamableHTTP(ctx context.Context, sessionID, name, url string) (*connect.Result, error) {
	return c.connectMCP(ctx, ConnectRequest{
		SessionID:  sessionID,
		Name:       name,
		ClientType: registry.KindStreamableHTTP,
		URL:        url,
	})
}

func (c *Client) connectMCP(ctx context.Context, body ConnectRequest) (*connect.Result, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setRequestHeaders(req)

	slog.Debug("Sending connect request", "name", body.Name, "client_type", body.ClientType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MCP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unexpectedStatus(resp.StatusCode, resp.Status, resp.Body)
	}

	var result connect.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func (c *Client) setRequestHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// unexpectedStatus prefers the backend's {"detail": "..."} message, then the raw body.
func unexpectedStatus(statusCode int, status string, body io.Reader) error {
	respBody, readErr := io.ReadAll(io.LimitReader(body, 64<<10))
	if readErr != nil {
		return &APIError{StatusCode: statusCode, Message: status}
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(respBody, &detail) == nil && strings.TrimSpace(detail.Detail) != "" {
		return &APIError{StatusCode: statusCode, Message: detail.Detail}
	}
	if text := strings.TrimSpace(string(respBody)); text != "" {
		return &APIError{StatusCode: statusCode, Message: text}
	}
	return &APIError{StatusCode: statusCode, Message: status}
}
