package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/xhttp"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

// Store is the slice of the credential document the session reads and writes.
type Store interface {
	String(key string) string
	Set(key string, value any)
}

type State int

const (
	StateNoCode State = iota
	StateHasCode
	StateHasAccessToken
	StateRefreshed
)

func (s State) String() string {
	switch s {
	case StateNoCode:
		return "no_code"
	case StateHasCode:
		return "has_code"
	case StateHasAccessToken:
		return "has_access_token"
	case StateRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

var _ oauth2.TokenSource = (*Session)(nil)

// Session drives the Withings authorization lifecycle against the credential document.
// It never saves the document; the caller decides when to persist.
type Session struct {
	config    *oauth2.Config
	store     Store
	prompter  Prompter
	client    *http.Client
	logger    *slog.Logger
	refreshed bool
}

type SessionOption func(*Session)

func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) { s.client = client }
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func NewSession(config *oauth2.Config, store Store, prompter Prompter, opts ...SessionOption) *Session {
	s := &Session{
		config:   config,
		store:    store,
		prompter: prompter,
		client:   xhttp.NewHTTPClient(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	switch {
	case s.refreshed:
		return StateRefreshed
	case s.store.String(credential.KeyAccessToken) != "":
		return StateHasAccessToken
	case s.store.String(credential.KeyAuthCode) != "":
		return StateHasCode
	default:
		return StateNoCode
	}
}

func (s *Session) AuthURL() string {
	return s.config.AuthCodeURL(AuthState)
}

// Bootstrap obtains an access token when none is stored, then always refreshes it.
// A failed code exchange is logged and tolerated; a failed refresh is returned.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.store.String(credential.KeyAccessToken) == "" {
		if s.store.String(credential.KeyAuthCode) == "" {
			code, err := s.prompter.AuthorizationCode(ctx, s.AuthURL())
			if err != nil {
				return fmt.Errorf("failed to obtain authorization code: %w", err)
			}
			s.store.Set(credential.KeyAuthCode, strings.TrimSpace(code))
		}

		s.logger.InfoContext(ctx, "exchanging authorization code for access token")
		if err := s.Exchange(ctx, s.store.String(credential.KeyAuthCode)); err != nil {
			s.logger.ErrorContext(ctx, "failed to exchange authorization code",
				xslog.Error(err),
				slog.String("help", HelpStatusURL),
			)
			s.logger.InfoContext(ctx, HelpInvalidCode)
			s.store.Set(credential.KeyAuthCode, "")
		}
	}

	s.logger.InfoContext(ctx, "refreshing access token")
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Session) Exchange(ctx context.Context, code string) error {
	form := url.Values{
		"grant_type":   {string(OpAuthorizationCode)},
		"code":         {code},
		"redirect_uri": {s.config.RedirectURL},
	}
	return s.requestToken(ctx, OpAuthorizationCode, form)
}

func (s *Session) Refresh(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {string(OpRefresh)},
		"refresh_token": {s.store.String(credential.KeyRefreshToken)},
	}
	if err := s.requestToken(ctx, OpRefresh, form); err != nil {
		return err
	}
	s.refreshed = true
	return nil
}

// Token returns the stored access token for authenticated Withings calls.
func (s *Session) Token() (*oauth2.Token, error) {
	accessToken := s.store.String(credential.KeyAccessToken)
	if accessToken == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

type tokenResponse struct {
	Status int       `json:"status"`
	Body   tokenBody `json:"body"`
	Error  string    `json:"error"`
}

type tokenBody struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	UserID       flexString `json:"userid"`
	ExpiresIn    int        `json:"expires_in"`
	TokenType    string     `json:"token_type"`
	Scope        string     `json:"scope"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := go_json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid userid %s: %w", data, err)
	}
	*f = flexString(data)
	return nil
}

func (s *Session) requestToken(ctx context.Context, op Op, form url.Values) error {
	form.Set("action", "requesttoken")
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	xhttp.SetContentTypeForm(req)
	xhttp.SetAcceptJSON(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var body tokenResponse
	if err := go_json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	if body.Status != 0 {
		return &StatusError{Op: op, Status: body.Status, Message: body.Error}
	}
	if body.Body.AccessToken == "" {
		return &StatusError{Op: op, Status: body.Status, Message: "response carried no access token"}
	}

	s.store.Set(credential.KeyAccessToken, body.Body.AccessToken)
	s.store.Set(credential.KeyRefreshToken, body.Body.RefreshToken)
	s.store.Set(credential.KeyUserID, string(body.Body.UserID))

	s.logger.DebugContext(ctx, "withings token updated",
		slog.String("op", string(op)),
		slog.Int("expires_in", body.Body.ExpiresIn),
	)
	return nil
}

// IsStatusError reports whether err is a token endpoint status failure.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
