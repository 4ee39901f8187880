// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	Poll    PollConfig    `mapstructure:"poll"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Output  OutputConfig  `mapstructure:"output"`
	Data    DataConfig    `mapstructure:"data"`
	Store   StoreConfig   `mapstructure:"store"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Map     MapConfig     `mapstructure:"map"`
	Render  RenderConfig  `mapstructure:"render"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FeedConfig identifies the upstream alert feed.
type FeedConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user_agent"`
}

// PollConfig controls the scheduler cadence.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// CleanupConfig controls the daily artifact cleanup job.
type CleanupConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
	At     string        `mapstructure:"at"`
}

// OutputConfig sets the artifact output location.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// DataConfig sets the durable data location.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// StoreConfig selects and locates the dedup store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// GeoConfig controls the county geometry provider.
type GeoConfig struct {
	ArchiveURL    string  `mapstructure:"archive_url"`
	BufferDegrees float64 `mapstructure:"buffer"`
}

// MapConfig controls map composition.
type MapConfig struct {
	TileURL        string  `mapstructure:"tile_url"`
	Timezone       string  `mapstructure:"timezone"`
	PaddingDegrees float64 `mapstructure:"padding"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	Width   int           `mapstructure:"width"`
	Height  int           `mapstructure:"height"`
	Settle  time.Duration `mapstructure:"settle"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebhookConfig holds the optional delivery sink endpoint.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// MetricsConfig controls the optional metrics listener; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Dir         string `mapstructure:"dir"`
	Development bool   `mapstructure:"development"`
}

// flagBindings maps config keys to the command-line flags that may
// override them.
var flagBindings = map[string]string{
	"feed.url":        "feed-url",
	"output.dir":      "output",
	"poll.interval":   "interval",
	"webhook.url":     "webhook",
	"cleanup.max_age": "max-age",
}

// Load builds a Config from disk/environment. Flags, when given, take
// precedence over the config file and environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WARNMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "https://api.weather.gov/alerts/active.atom")
	v.SetDefault("feed.user_agent", "warnmap/1.0 (+https://github.com/wxvisuals/warnmap)")
	v.SetDefault("poll.interval", "1m")
	v.SetDefault("cleanup.max_age", "48h")
	v.SetDefault("cleanup.at", "03:00")
	v.SetDefault("output.dir", "output")
	v.SetDefault("data.dir", "data")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "")
	v.SetDefault("geo.archive_url", "https://raw.githubusercontent.com/plotly/datasets/master/geojson-counties-fips.json")
	v.SetDefault("geo.buffer", 0.5)
	v.SetDefault("map.tile_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.timezone", "America/Chicago")
	v.SetDefault("map.padding", 0.1)
	v.SetDefault("render.width", 720)
	v.SetDefault("render.height", 900)
	v.SetDefault("render.settle", "7s")
	v.SetDefault("render.timeout", "45s")
	v.SetDefault("webhook.url", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must be set")
	}
	if c.Feed.UserAgent == "" {
		return fmt.Errorf("feed.user_agent must be set")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0")
	}
	if c.Cleanup.MaxAge <= 0 {
		return fmt.Errorf("cleanup.max_age must be > 0")
	}
	if _, err := parseWallClock(c.Cleanup.At); err != nil {
		return fmt.Errorf("cleanup.at: %w", err)
	}
	if c.Store.Driver != "file" && c.Store.Driver != "sqlite" {
		return fmt.Errorf("store.driver must be file or sqlite, got %q", c.Store.Driver)
	}
	if c.Map.PaddingDegrees < 0 {
		return fmt.Errorf("map.padding must be >= 0")
	}
	if c.Geo.BufferDegrees < 0 {
		return fmt.Errorf("geo.buffer must be >= 0")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render.width and render.height must be > 0")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be > 0")
	}
	if c.Render.Settle < 0 {
		return fmt.Errorf("render.settle must be >= 0")
	}
	return nil
}

// StorePath resolves the dedup store location, defaulting under the data
// dir per driver.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Driver == "sqlite" {
		return filepath.Join(c.Data.Dir, "processed_alerts.db")
	}
	return filepath.Join(c.Data.Dir, "processed_alerts.json")
}

// CountyCachePath is where the county reference geometry is cached.
func (c Config) CountyCachePath() string {
	return filepath.Join(c.Data.Dir, "shapefiles", "counties.geojson")
}

// CleanupAt returns the daily cleanup wall-clock time as hour and minute.
func (c Config) CleanupAt() (hour, minute int) {
	hm, err := parseWallClock(c.Cleanup.At)
	if err != nil {
		return 3, 0
	}
	return hm.hour, hm.minute
}

type wallClock struct {
	hour   int
	minute int
}

func parseWallClock(s string) (wallClock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return wallClock{}, fmt.Errorf("want HH:MM, got %q", s)
	}
	return wallClock{hour: t.Hour(), minute: t.Minute()}, nil
}

// EnsureDirs creates the writable locations the service needs. A failure
// here is a startup-fatal initialization fault.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.Output.Dir, c.Data.Dir, filepath.Dir(c.CountyCachePath()), c.Logging.Dir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	probe := filepath.Join(c.Output.Dir, ".write-probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return fmt.Errorf("output dir %s not writable: %w", c.Output.Dir, err)
	}
	_ = os.Remove(probe)
	return nil
}
