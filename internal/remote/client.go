package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent identifies the aggregator to catalogue servers when the
// operator has not configured one.
const DefaultUserAgent = "compilatio/1.0 (manuscript metadata aggregator)"

// maxBodyBytes caps response reads; manifests run to a few MB, anything
// beyond this is a server fault, not a manuscript.
const maxBodyBytes = 32 << 20

// Client fetches catalogue payloads over HTTP. It performs a single attempt
// per call and classifies failures with the sentinel taxonomy so the
// orchestrator can decide about retries.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a catalogue HTTP client.
func NewClient(userAgent string, opts ...Option) *Client {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := &Client{
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetJSON fetches rawURL and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return Wrap(ErrParse, "", "decode json", rawURL, err)
	}
	return nil
}

// GetBytes fetches rawURL and returns the raw response body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, "")
}

// GetDocument fetches rawURL and parses the response as an HTML document.
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, rawURL, "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, Wrap(ErrParse, "", "parse html", rawURL, err)
	}
	return doc, nil
}

// ParseDocument parses already-fetched HTML, e.g. browser-rendered markup or
// saved catalogue pages.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, Wrap(ErrParse, "", "parse html", "", err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, Wrap(ErrPermanent, "", "build request", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Wrap(classifyNetError(err), "", "execute request", fmt.Sprintf("%s (latency=%v)", rawURL, latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := ClassifyStatus(resp.StatusCode)
		return nil, Wrap(marker, "", "fetch", fmt.Sprintf("%s returned %d (latency=%v)", rawURL, resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Wrap(ErrTransient, "", "read response", rawURL, err)
	}
	return body, nil
}

// ClassifyStatus maps an HTTP status code to a retry sentinel: 429 and 5xx
// are transient, other non-200s permanent.
func ClassifyStatus(code int) error {
	if code == http.StatusTooManyRequests || code >= 500 {
		return ErrTransient
	}
	return ErrPermanent
}

func classifyNetError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTransient
	}
	// Connection-level failures (refused, reset, DNS) usually clear up.
	return ErrTransient
}
