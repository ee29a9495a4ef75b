package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrettladley/withings-sync/internal/config"
	"github.com/garrettladley/withings-sync/internal/paths"
)

func testApp(t *testing.T, baseURL string) *app {
	t.Helper()
	return &app{
		cfg: config.Config{
			ClientID:       "env-client",
			ConsumerSecret: "env-secret",
			CallbackURL:    "https://env.example/cb",
			WithingsURL:    baseURL,
			AuthorizeURL:   "https://auth.example/authorize2",
			HTTPTimeout:    5 * time.Second,
		},
		dir:    "/cfg",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		fs:     afero.NewMemMapFs(),
	}
}

func writeDocument(t *testing.T, a *app, doc string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(a.fs, paths.Credentials(a.dir), []byte(doc), 0o600))
}

func TestSessionUsesDocumentRegistration(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		form url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		form = r.PostForm
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":0,"body":{"access_token":"a","refresh_token":"r","userid":7}}`)
	}))
	t.Cleanup(srv.Close)

	a := testApp(t, srv.URL)
	writeDocument(t, a, `{
  "callback_url": "https://doc.example/cb",
  "client_id": "doc-client",
  "consumer_secret": "doc-secret",
  "refresh_token": "old"
}`)

	store, err := a.credentials()
	require.NoError(t, err)
	session := a.session(store, nil)

	authURL, err := url.Parse(session.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "doc-client", authURL.Query().Get("client_id"))
	assert.Equal(t, "https://doc.example/cb", authURL.Query().Get("redirect_uri"))

	require.NoError(t, session.Refresh(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "doc-client", form.Get("client_id"))
	assert.Equal(t, "doc-secret", form.Get("client_secret"))
	assert.Equal(t, "old", form.Get("refresh_token"))
}

func TestSettingsFallBackToEnvironment(t *testing.T) {
	t.Parallel()

	a := testApp(t, "https://api.example")
	writeDocument(t, a, `{"client_id": "", "consumer_secret": "doc-secret"}`)

	store, err := a.credentials()
	require.NoError(t, err)

	got := a.settings(store)
	assert.Equal(t, "env-client", got.ClientID)
	assert.Equal(t, "doc-secret", got.ConsumerSecret)
	assert.Equal(t, "https://env.example/cb", got.CallbackURL)
	assert.Equal(t, "https://api.example", got.BaseURL)
}
