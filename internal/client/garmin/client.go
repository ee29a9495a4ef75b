package garmin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/withings-sync/internal/xhttp"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

const (
	DefaultUploadURL = "https://connect.garmin.com/upload-service/upload/.fit"
	DefaultFileName  = "withings.fit"

	formField = "data"
	// Provider names the Garmin token row in the local token table.
	Provider = "garmin"
)

type Client struct {
	uploadURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

type clientConfig struct {
	uploadURL   string
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
	timeout     time.Duration
	base        http.RoundTripper
}

type Option func(*clientConfig)

func WithUploadURL(u string) Option {
	return func(cfg *clientConfig) { cfg.uploadURL = u }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithTransport(base http.RoundTripper) Option {
	return func(cfg *clientConfig) { cfg.base = base }
}

func New(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	cfg := &clientConfig{
		uploadURL:   DefaultUploadURL,
		tokenSource: tokenSource,
		logger:      slog.Default(),
		base:        xhttp.NewTransport(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		uploadURL: cfg.uploadURL,
		httpClient: &http.Client{
			Transport: &garminTransport{base: cfg.base, tokenSource: cfg.tokenSource},
			Timeout:   cfg.timeout,
		},
		logger: cfg.logger,
	}
}

type UploadResult struct {
	// Success is true for 200, 201 and 204.
	Success bool
	// NoData is true when Garmin answered 204: the file held nothing it could import.
	NoData     bool
	StatusCode int
	// Detailed is true when the body carried a detailedImportResult.
	Detailed bool
	Body     []byte
}

// Upload posts a FIT file. Rejections are reported through UploadResult; only transport failures
// and token errors are returned as errors.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*UploadResult, error) {
	if name == "" {
		name = DefaultFileName
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(formField, name)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(xhttp.ContentType, mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result := &UploadResult{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Detailed:   hasDetailedImport(respBody),
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		result.Success = true
	case http.StatusNoContent:
		result.Success = true
		result.NoData = true
	}

	switch {
	case result.Detailed:
		c.logger.DebugContext(ctx, "garmin accepted fit file", xslog.HTTPStatus(resp.StatusCode))
	case result.NoData:
		c.logger.ErrorContext(ctx, "No data to upload, try to use --from and --to")
	default:
		c.logger.ErrorContext(ctx, "bad response during garmin upload",
			xslog.HTTPStatus(resp.StatusCode),
			slog.String("body", string(respBody)),
		)
	}

	return result, nil
}

func hasDetailedImport(body []byte) bool {
	var parsed map[string]go_json.RawMessage
	if err := go_json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	_, ok := parsed["detailedImportResult"]
	return ok
}

type garminTransport struct {
	base        http.RoundTripper
	tokenSource oauth2.TokenSource
}

var _ http.RoundTripper = (*garminTransport)(nil)

func (t *garminTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	req = req.Clone(req.Context())
	xhttp.SetBearer(req, token.AccessToken)
	req.Header.Set("NK", "NT")
	req.Header.Set("di-backend", "connectapi.garmin.com")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
