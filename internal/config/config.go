package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gookit/validate"
)

type Config struct {
	ConfigDir       string        `env:"WITHINGS_SYNC_CONFIG_DIR"`
	ClientID        string        `env:"WITHINGS_CLIENT_ID" envDefault:"183e03e1f363110b3551f96765c98c10e8f1aa647a37067a1cb64bbbaf491626" validate:"required"`
	ConsumerSecret  string        `env:"WITHINGS_CONSUMER_SECRET" envDefault:"a75d655c985d9e6391df1514c16719ef7bd69fa7c5d3fd0eac2e2b0ed48f1765" validate:"required"`
	CallbackURL     string        `env:"WITHINGS_CALLBACK_URL" envDefault:"https://jaroslawhartman.github.io/withings-sync/contrib/withings.html" validate:"required|fullUrl"`
	WithingsURL     string        `env:"WITHINGS_BASE_URL" envDefault:"https://wbsapi.withings.net" validate:"required|fullUrl"`
	AuthorizeURL    string        `env:"WITHINGS_AUTHORIZE_URL" envDefault:"https://account.withings.com/oauth2_user/authorize2" validate:"required|fullUrl"`
	GarminURL       string        `env:"GARMIN_UPLOAD_URL" envDefault:"https://connect.garmin.com/upload-service/upload/.fit" validate:"required|fullUrl"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HistoryDSN      string        `env:"HISTORY_DSN"`
	MetricsTextfile string        `env:"METRICS_TEXTFILE"`
}

func Read() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid config: HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// HistoryUsesPostgres reports whether run history goes to Postgres instead of the local sqlite file.
func (c *Config) HistoryUsesPostgres() bool {
	return strings.HasPrefix(c.HistoryDSN, "postgres://") || strings.HasPrefix(c.HistoryDSN, "postgresql://")
}
