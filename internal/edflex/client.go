package edflex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/openlms/edflex-connector/internal/cache"
	"github.com/openlms/edflex-connector/internal/metrics"
)

const (
	authPath       = "/connect/v1/auth/token"
	resourcesPath  = "/connect/v1/resources"
	catalogsPath   = "/connect/v1/catalogs"
	categoriesPath = "/connect/v1/catalogs/%s/categories"

	// contentIDBatchSize is the remote API's limit on the contentIds filter.
	contentIDBatchSize = 50

	// DefaultPageSize is the page size used when a caller passes 0.
	DefaultPageSize = 50
)

// Client is an HTTP client for the Edflex catalog API. Tokens are cached in
// the injected store; all other state is per-call.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	store        *cache.Store
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for API call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the time source, used by token expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Edflex API client. The base URL, client id and
// client secret are all required; a partially configured client is unusable
// and construction fails with ErrConfig.
func NewClient(baseURL, clientID, clientSecret string, store *cache.Store, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is empty", ErrConfig)
	}
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is empty", ErrConfig)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client secret is empty", ErrConfig)
	}

	c := &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// get performs an authenticated GET against path with the given query and
// runs the shared response interpreter. When expectJSON is false the raw
// body is returned verbatim (package payloads).
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, expectJSON bool) ([]byte, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(req.URL.Path, "transport_error")
		return nil, err
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	metrics.RecordAPIRequest(req.URL.Path, fmt.Sprintf("%d", resp.StatusCode))

	return parseResponse(body, resp.StatusCode, expectJSON)
}

// apiURL joins the base URL with an API path.
func (c *Client) apiURL(path string) string {
	return c.baseURL + path
}
