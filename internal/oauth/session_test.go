package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrettladley/withings-sync/internal/credential"
)

type mapStore map[string]any

func (m mapStore) String(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m mapStore) Set(key string, value any) { m[key] = value }

type fakePrompter struct {
	code   string
	err    error
	called int
	url    string
}

func (p *fakePrompter) AuthorizationCode(_ context.Context, authURL string) (string, error) {
	p.called++
	p.url = authURL
	return p.code, p.err
}

type tokenServer struct {
	mu       sync.Mutex
	requests []url.Values
	respond  func(form url.Values) string
}

func (s *tokenServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/oauth2" {
			t.Errorf("path = %q, want /v2/oauth2", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		s.mu.Lock()
		s.requests = append(s.requests, r.PostForm)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.respond(r.PostForm)))
	}
}

func (s *tokenServer) forms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

func newTestSession(t *testing.T, ts *tokenServer, store Store, prompter Prompter) *Session {
	t.Helper()
	srv := httptest.NewServer(ts.handler(t))
	t.Cleanup(srv.Close)

	cfg := NewConfig(Settings{
		ClientID:       "client",
		ConsumerSecret: "secret",
		CallbackURL:    "https://example.com/cb",
		AuthorizeURL:   "https://account.example.com/oauth2_user/authorize2",
		BaseURL:        srv.URL,
	})
	return NewSession(cfg, store, prompter,
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}


func okResponse(access, refresh string) string {
	return `{"status":0,"body":{"access_token":"` + access + `","refresh_token":"` + refresh +
		`","userid":12345,"expires_in":10800,"token_type":"Bearer","scope":"user.metrics"}}`
}

func TestBootstrapFromNoCode(t *testing.T) {
	t.Parallel()

	ts := &tokenServer{respond: func(form url.Values) string {
		if form.Get("grant_type") == "authorization_code" {
			return okResponse("access-1", "refresh-1")
		}
		return okResponse("access-2", "refresh-2")
	}}
	store := mapStore{}
	prompter := &fakePrompter{code: " the-code \n"}
	s := newTestSession(t, ts, store, prompter)

	assert.Equal(t, StateNoCode, s.State())
	require.NoError(t, s.Bootstrap(t.Context()))

	assert.Equal(t, 1, prompter.called)
	assert.Equal(t, StateRefreshed, s.State())
	assert.Equal(t, "access-2", store[credential.KeyAccessToken])
	assert.Equal(t, "refresh-2", store[credential.KeyRefreshToken])
	assert.Equal(t, "12345", store[credential.KeyUserID])
	assert.Equal(t, "the-code", store[credential.KeyAuthCode])

	forms := ts.forms()
	require.Len(t, forms, 2)
	exchange := forms[0]
	assert.Equal(t, "requesttoken", exchange.Get("action"))
	assert.Equal(t, "authorization_code", exchange.Get("grant_type"))
	assert.Equal(t, "client", exchange.Get("client_id"))
	assert.Equal(t, "secret", exchange.Get("client_secret"))
	assert.Equal(t, "the-code", exchange.Get("code"))
	assert.Equal(t, "https://example.com/cb", exchange.Get("redirect_uri"))

	refresh := forms[1]
	assert.Equal(t, "refresh_token", refresh.Get("grant_type"))
	assert.Equal(t, "refresh-1", refresh.Get("refresh_token"))

	authURL, err := url.Parse(prompter.url)
	require.NoError(t, err)
	q := authURL.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "OK", q.Get("state"))
	assert.Equal(t, "user.metrics", q.Get("scope"))
	assert.Equal(t, "https://example.com/cb", q.Get("redirect_uri"))
}

func TestBootstrapWithAccessTokenOnlyRefreshes(t *testing.T) {
	t.Parallel()

	ts := &tokenServer{respond: func(url.Values) string { return okResponse("new-access", "new-refresh") }}
	store := mapStore{
		credential.KeyAccessToken:  "old-access",
		credential.KeyRefreshToken: "old-refresh",
	}
	prompter := &fakePrompter{}
	s := newTestSession(t, ts, store, prompter)

	assert.Equal(t, StateHasAccessToken, s.State())
	require.NoError(t, s.Bootstrap(t.Context()))

	assert.Zero(t, prompter.called)
	forms := ts.forms()
	require.Len(t, forms, 1)
	assert.Equal(t, "refresh_token", forms[0].Get("grant_type"))
	assert.Equal(t, "old-refresh", forms[0].Get("refresh_token"))
	assert.Equal(t, "new-access", store[credential.KeyAccessToken])
}

func TestBootstrapExchangeFailureClearsCodeAndContinues(t *testing.T) {
	t.Parallel()

	ts := &tokenServer{respond: func(form url.Values) string {
		if form.Get("grant_type") == "authorization_code" {
			return `{"status":503,"body":{},"error":"Invalid Params: invalid code"}`
		}
		return `{"status":401,"body":{},"error":"invalid refresh_token"}`
	}}
	store := mapStore{credential.KeyAuthCode: "stale-code"}
	prompter := &fakePrompter{}
	s := newTestSession(t, ts, store, prompter)

	assert.Equal(t, StateHasCode, s.State())
	err := s.Bootstrap(t.Context())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpRefresh, se.Op)
	assert.Equal(t, 401, se.Status)
	assert.ErrorIs(t, err, ErrTokenExchange)

	assert.Zero(t, prompter.called)
	require.Len(t, ts.forms(), 2)
	assert.Equal(t, "", store[credential.KeyAuthCode])
	assert.NotContains(t, store, credential.KeyAccessToken)
	assert.NotContains(t, store, credential.KeyRefreshToken)
}

func TestBootstrapPrompterFailure(t *testing.T) {
	t.Parallel()

	ts := &tokenServer{respond: func(url.Values) string { return okResponse("a", "r") }}
	prompter := &fakePrompter{err: ErrEmptyCode}
	s := newTestSession(t, ts, mapStore{}, prompter)

	err := s.Bootstrap(t.Context())
	require.ErrorIs(t, err, ErrEmptyCode)
	assert.Empty(t, ts.forms())
}

func TestRefreshHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	store := mapStore{credential.KeyAccessToken: "a", credential.KeyRefreshToken: "r"}
	s := NewSession(NewConfig(Settings{BaseURL: srv.URL}), store, &fakePrompter{},
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	err := s.Refresh(t.Context())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.True(t, IsStatusError(err))
	assert.Equal(t, "a", store[credential.KeyAccessToken])
	assert.Equal(t, StateHasAccessToken, s.State())
}

func TestSessionToken(t *testing.T) {
	t.Parallel()

	s := NewSession(NewConfig(Settings{}), mapStore{}, &fakePrompter{})
	_, err := s.Token()
	require.ErrorIs(t, err, ErrNoToken)

	s = NewSession(NewConfig(Settings{}), mapStore{credential.KeyAccessToken: "abc"}, &fakePrompter{})
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    flexString
		wantErr bool
	}{
		{name: "number", input: `12345`, want: "12345"},
		{name: "string", input: `"12345"`, want: "12345"},
		{name: "null", input: `null`, want: ""},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got flexString
			err := got.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
