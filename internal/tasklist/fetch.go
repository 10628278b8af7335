package tasklist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single document fetch.
const DefaultTimeout = 30 * time.Second

// maxDocumentSize caps how much of a response body is read.
const maxDocumentSize = 4 << 20

// Fetcher retrieves the document a Reference points at.
type Fetcher interface {
	Fetch(ctx context.Context, ref Reference) (*Document, error)
}

// FetchError reports that a task list could not be retrieved or parsed.
type FetchError struct {
	Ref Reference
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch task list %s: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher loads documents over HTTP(S), or from disk for file:// and plain paths.
type HTTPFetcher struct {
	httpClient *http.Client
	token      string
}

// NewHTTPFetcher returns a fetcher that keeps cookies between requests, the way
// a browser session sending credentials would.
func NewHTTPFetcher(token string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		token: token,
	}
}

// WithHTTPClient swaps the underlying client. Used by tests.
func (f *HTTPFetcher) WithHTTPClient(c *http.Client) *HTTPFetcher {
	f.httpClient = c
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref Reference) (*Document, error) {
	if ref.Absent() {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("empty reference")}
	}

	u, err := neturl.Parse(string(ref))
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}

	var doc *Document
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		doc, err = f.fetchHTTP(ctx, u.String())
	case "file":
		doc, err = readFile(u.Path)
	case "":
		doc, err = readFile(string(ref))
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		slog.Debug("Task list fetch failed", "ref", ref, "error", err)
		return nil, &FetchError{Ref: ref, Err: err}
	}
	slog.Debug("Task list fetched", "ref", ref, "status", doc.Status, "tasks", len(doc.Tasks))
	return doc, nil
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return decode(io.LimitReader(resp.Body, maxDocumentSize))
}

func readFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decode(io.LimitReader(file, maxDocumentSize))
}

func decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse task list: %w", err)
	}
	return &doc, nil
}
