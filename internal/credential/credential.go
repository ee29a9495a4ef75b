package credential

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"path/filepath"
	"strconv"

	go_json "github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/garrettladley/withings-sync/internal/xslog"
)

const (
	KeyCallbackURL    = "callback_url"
	KeyClientID       = "client_id"
	KeyConsumerSecret = "consumer_secret"
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyAuthCode       = "authentification_code"
	KeyUserID         = "userid"
)

type Platform string

const (
	PlatformGarmin      Platform = "garmin"
	PlatformTrainerRoad Platform = "trainerroad"
)

func (p Platform) String() string { return string(p) }

// WatermarkKey is the document key holding the last synced Unix timestamp for p.
func WatermarkKey(p Platform) string {
	return "last_update_" + string(p)
}

// Template holds the defaults a fresh document is built from.
type Template struct {
	CallbackURL    string
	ClientID       string
	ConsumerSecret string
}

func (t Template) Document() map[string]any {
	return map[string]any{
		KeyCallbackURL:                    t.CallbackURL,
		KeyClientID:                       t.ClientID,
		KeyConsumerSecret:                 t.ConsumerSecret,
		KeyAccessToken:                    "",
		KeyAuthCode:                       "",
		KeyRefreshToken:                   "",
		KeyUserID:                         "",
		WatermarkKey(PlatformGarmin):      nil,
		WatermarkKey(PlatformTrainerRoad): nil,
	}
}

// Store is the file-backed credential document. Mutations stay in memory until Save.
type Store struct {
	fs     afero.Fs
	path   string
	tmpl   Template
	logger *slog.Logger
	values map[string]any
}

func Open(fs afero.Fs, path string, tmpl Template, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		fs:     fs,
		path:   path,
		tmpl:   tmpl,
		logger: logger,
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat credential document: %w", err)
	}
	if !exists {
		s.values = tmpl.Document()
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Load replaces the in-memory document with the file contents merged onto the template.
// An unreadable or malformed file is logged and treated as empty; the returned error only
// reports a failure to persist the merged document.
func (s *Store) Load() error {
	loaded := s.read()
	merged := merge(s.tmpl.Document(), loaded)
	s.values = merged

	if sameKeys(loaded, merged) {
		return nil
	}
	s.logger.Debug("credential document schema changed, persisting", xslog.Path(s.path))
	return s.Save()
}

func (s *Store) read() map[string]any {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		s.logger.Error("failed to read credential document", xslog.Path(s.path), xslog.Error(err))
		return map[string]any{}
	}

	var loaded map[string]any
	if err := go_json.Unmarshal(data, &loaded); err != nil {
		s.logger.Error("failed to parse credential document", xslog.Path(s.path), xslog.Error(err))
		return map[string]any{}
	}
	if loaded == nil {
		return map[string]any{}
	}
	return loaded
}

// merge keeps exactly the template keys, preferring loaded values.
func merge(tmpl, loaded map[string]any) map[string]any {
	out := make(map[string]any, len(tmpl))
	for k, def := range tmpl {
		if v, ok := loaded[k]; ok {
			out[k] = v
			continue
		}
		out[k] = def
	}
	return out
}

func sameKeys(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) Get(key string, def any) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Store) Set(key string, value any) {
	s.values[key] = value
}

// String returns the value at key as a string, "" when absent or null.
func (s *Store) String(key string) string {
	switch v := s.values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func (s *Store) Watermark(p Platform) (int64, bool) {
	switch v := s.values[WatermarkKey(p)].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case go_json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (s *Store) SetWatermark(p Platform, ts int64) {
	s.values[WatermarkKey(p)] = ts
}

// Snapshot returns a copy of the in-memory document.
func (s *Store) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// Save writes the document with sorted keys and 2-space indentation via temp file and rename.
func (s *Store) Save() error {
	data, err := go_json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential document: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace credential document: %w", err)
	}
	return nil
}

// Reset overwrites the document with template defaults.
func (s *Store) Reset() error {
	s.values = s.tmpl.Document()
	return s.Save()
}
