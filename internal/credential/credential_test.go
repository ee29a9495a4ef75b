package credential

import (
	"bytes"
	"log/slog"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docPath = "/cfg/.withings_user.json"

var testTemplate = Template{
	CallbackURL:    "https://example.com/cb",
	ClientID:       "client",
	ConsumerSecret: "secret",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func readDoc(t *testing.T, fs afero.Fs) map[string]any {
	t.Helper()
	data, err := afero.ReadFile(fs, docPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, go_json.Unmarshal(data, &doc))
	return doc
}

func TestOpenCreatesFromTemplate(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	doc := readDoc(t, fs)
	assert.Len(t, doc, len(testTemplate.Document()))
	assert.Equal(t, "client", doc[KeyClientID])
	assert.Equal(t, "", doc[KeyAccessToken])
	assert.Nil(t, doc[WatermarkKey(PlatformGarmin)])

	_, ok := s.Watermark(PlatformGarmin)
	assert.False(t, ok)
}

func TestLoadMergesMissingAndDropsUnknownKeys(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, docPath, []byte(`{"access_token":"abc","legacy":1}`), 0o600))

	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "abc", s.String(KeyAccessToken))
	assert.Equal(t, "client", s.String(KeyClientID))
	assert.False(t, s.Has("legacy"))

	doc := readDoc(t, fs)
	assert.Len(t, doc, len(testTemplate.Document()))
	assert.NotContains(t, doc, "legacy")
	assert.Equal(t, "abc", doc[KeyAccessToken])
}

func TestLoadIsIdempotent(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, docPath, []byte(`{"userid":"42"}`), 0o600))

	_, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)
	first, err := afero.ReadFile(fs, docPath)
	require.NoError(t, err)

	_, err = Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, docPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadMalformedFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "garbage", content: "{not json"},
		{name: "empty", content: ""},
		{name: "array", content: "[1,2,3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, docPath, []byte(tt.content), 0o600))

			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))

			s, err := Open(fs, docPath, testTemplate, logger)
			require.NoError(t, err)

			assert.Equal(t, testTemplate.Document(), s.Snapshot())
			assert.Contains(t, logs.String(), "failed to parse credential document")
		})
	}
}

func TestSetDoesNotPersistUntilSave(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	s.Set(KeyAccessToken, "tok")
	assert.Equal(t, "", readDoc(t, fs)[KeyAccessToken])

	require.NoError(t, s.Save())
	assert.Equal(t, "tok", readDoc(t, fs)[KeyAccessToken])
}

func TestSaveIsDeterministic(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	s.SetWatermark(PlatformGarmin, 1700000000)
	require.NoError(t, s.Save())
	first, err := afero.ReadFile(fs, docPath)
	require.NoError(t, err)

	require.NoError(t, s.Save())
	second, err := afero.ReadFile(fs, docPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, bytes.HasPrefix(first, []byte("{\n  \"access_token\"")), "keys must be sorted with 2-space indent: %s", first)

	exists, err := afero.Exists(fs, docPath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWatermarkRoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	s.SetWatermark(PlatformGarmin, 1700086399)
	require.NoError(t, s.Save())

	reopened, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	got, ok := reopened.Watermark(PlatformGarmin)
	require.True(t, ok)
	assert.Equal(t, int64(1700086399), got)

	_, ok = reopened.Watermark(PlatformTrainerRoad)
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	s.Set(KeyAccessToken, "tok")
	s.SetWatermark(PlatformGarmin, 1)
	require.NoError(t, s.Save())

	require.NoError(t, s.Reset())
	assert.Equal(t, testTemplate.Document(), s.Snapshot())

	doc := readDoc(t, fs)
	assert.Equal(t, "", doc[KeyAccessToken])
	assert.Nil(t, doc[WatermarkKey(PlatformGarmin)])
}

func TestString(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, docPath, []byte(`{"userid":12345}`), 0o600))

	s, err := Open(fs, docPath, testTemplate, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "12345", s.String(KeyUserID))
	assert.Equal(t, "", s.String(WatermarkKey(PlatformGarmin)))
	assert.Equal(t, "fallback", s.Get("missing", "fallback"))
}
