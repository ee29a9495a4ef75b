package garmin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type captured struct {
	mu       sync.Mutex
	headers  http.Header
	filename string
	content  []byte
}

func newUploadServer(t *testing.T, status int, body string, c *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("data")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(file)

		c.mu.Lock()
		c.headers = r.Header.Clone()
		c.filename = header.Filename
		c.content = content
		c.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, src oauth2.TokenSource) *Client {
	return New(src,
		WithUploadURL(srv.URL+"/upload-service/upload/.fit"),
		WithTransport(srv.Client().Transport),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantSuccess  bool
		wantNoData   bool
		wantDetailed bool
	}{
		{name: "created", status: http.StatusCreated, body: `{"detailedImportResult":{"uploadId":1}}`, wantSuccess: true, wantDetailed: true},
		{name: "ok without detail", status: http.StatusOK, body: `{}`, wantSuccess: true},
		{name: "no content", status: http.StatusNoContent, wantSuccess: true, wantNoData: true},
		{name: "conflict", status: http.StatusConflict, body: `{"detailedImportResult":{"failures":[1]}}`, wantDetailed: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `denied`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &captured{}
			srv := newUploadServer(t, tt.status, tt.body, c)
			client := newTestClient(srv, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "garmin-token"}))

			res, err := client.Upload(t.Context(), "", []byte("fit-bytes"))
			require.NoError(t, err)

			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantNoData, res.NoData)
			assert.Equal(t, tt.wantDetailed, res.Detailed)
			if tt.status != http.StatusNoContent {
				assert.Equal(t, tt.body, string(res.Body))
			}

			c.mu.Lock()
			defer c.mu.Unlock()
			assert.Equal(t, "Bearer garmin-token", c.headers.Get("Authorization"))
			assert.Equal(t, "NT", c.headers.Get("NK"))
			assert.Equal(t, "connectapi.garmin.com", c.headers.Get("di-backend"))
			assert.Equal(t, DefaultFileName, c.filename)
			assert.Equal(t, []byte("fit-bytes"), c.content)
		})
	}
}

type errSource struct{ err error }

func (e errSource) Token() (*oauth2.Token, error) { return nil, e.err }

func TestUploadTokenError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	t.Cleanup(srv.Close)

	want := errors.New("no garmin token")
	client := newTestClient(srv, errSource{err: want})

	res, err := client.Upload(t.Context(), "weight.fit", []byte("x"))
	require.ErrorIs(t, err, want)
	assert.Nil(t, res)
}
