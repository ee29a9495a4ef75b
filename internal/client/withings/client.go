package withings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/withings-sync/internal/xhttp"
)

const DefaultBaseURL = "https://wbsapi.withings.net"

type Client struct {
	Measure MeasureService

	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL:     DefaultBaseURL,
		tokenSource: tokenSource,
		logger:      slog.Default(),
		base:        xhttp.NewTransport(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &withingsTransport{
		base:        cfg.base,
		tokenSource: cfg.tokenSource,
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
		logger:     cfg.logger,
	}

	c.Measure = &measureService{client: c}

	return c
}

type clientConfig struct {
	baseURL     string
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
	timeout     time.Duration
	base        http.RoundTripper
}

type Option func(*clientConfig)

func WithBaseURL(baseURL string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = baseURL }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

// WithTransport swaps the underlying round tripper, e.g. for httptest servers.
func WithTransport(base http.RoundTripper) Option {
	return func(cfg *clientConfig) { cfg.base = base }
}

// envelope is the body shape every Withings API answer is wrapped in.
type envelope[T any] struct {
	Status int    `json:"status"`
	Body   T      `json:"body"`
	Error  string `json:"error"`
}

// post sends a form-encoded request and decodes the Withings envelope into result.
func (c *Client) post(ctx context.Context, path string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	xhttp.SetContentTypeForm(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseHTTPError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	env := envelope[go_json.RawMessage]{}
	if err := go_json.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w\nbody: %s", err, string(body))
	}
	if env.Status != 0 {
		return &APIError{Status: env.Status, Message: env.Error}
	}

	if result != nil && len(env.Body) > 0 {
		if err := go_json.Unmarshal(env.Body, result); err != nil {
			return fmt.Errorf("decoding response body: %w\nbody: %s", err, string(env.Body))
		}
	}
	return nil
}

type withingsTransport struct {
	base        http.RoundTripper
	tokenSource oauth2.TokenSource
}

var _ http.RoundTripper = (*withingsTransport)(nil)

func (t *withingsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	req = req.Clone(req.Context())
	xhttp.SetBearer(req, token.AccessToken)
	xhttp.SetAcceptJSON(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
