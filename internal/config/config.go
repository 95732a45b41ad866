// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	DB       DBConfig        `mapstructure:"db"`
	Sync     SyncConfig      `mapstructure:"sync"`
	Scrape   ScrapeConfig    `mapstructure:"scrape"`
	Clusters []ClusterConfig `mapstructure:"clusters"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SyncConfig governs the cluster sync job cadence and upstream query limits.
type SyncConfig struct {
	Minute            int `mapstructure:"minute"`
	PageSize          int `mapstructure:"page_size"`
	PageLimit         int `mapstructure:"page_limit"`
	BatchSize         int `mapstructure:"batch_size"`
	BatchDelaySeconds int `mapstructure:"batch_delay_seconds"`
}

// ScrapeConfig governs the daily fan-out job and the scrape worker pool.
type ScrapeConfig struct {
	DailyAt              string `mapstructure:"daily_at"`
	Concurrency          int    `mapstructure:"concurrency"`
	QueueDepth           int    `mapstructure:"queue_depth"`
	BacklogWarnThreshold int    `mapstructure:"backlog_warn_threshold"`
	DrainPollSeconds     int    `mapstructure:"drain_poll_seconds"`
	FreshnessHours       int    `mapstructure:"freshness_hours"`
	RequestTimeoutSecs   int    `mapstructure:"request_timeout_seconds"`
}

// ClusterConfig describes one CUCM cluster's API endpoints and credentials.
type ClusterConfig struct {
	Name          string `mapstructure:"name"`
	Server        string `mapstructure:"server"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Version       string `mapstructure:"version"`
	SSLVerify     bool   `mapstructure:"ssl_verify"`
	CATrustFile   string `mapstructure:"ca_trust_file"`
	MaxRISDevices int    `mapstructure:"max_ris_devices"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PHONEINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("sync.minute", 15)
	v.SetDefault("sync.page_size", 1000)
	v.SetDefault("sync.page_limit", 100)
	v.SetDefault("sync.batch_size", 1000)
	v.SetDefault("sync.batch_delay_seconds", 10)
	v.SetDefault("scrape.daily_at", "02:30")
	v.SetDefault("scrape.concurrency", 8)
	v.SetDefault("scrape.queue_depth", 4096)
	v.SetDefault("scrape.backlog_warn_threshold", 25)
	v.SetDefault("scrape.drain_poll_seconds", 30)
	v.SetDefault("scrape.freshness_hours", 24)
	v.SetDefault("scrape.request_timeout_seconds", 3)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Sync.Minute < 0 || c.Sync.Minute > 59 {
		return fmt.Errorf("sync.minute must be between 0 and 59")
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be > 0")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if _, _, err := parseDailyAt(c.Scrape.DailyAt); err != nil {
		return err
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	seen := map[string]bool{}
	for _, cluster := range c.Clusters {
		if cluster.Name == "" || cluster.Server == "" {
			return fmt.Errorf("every cluster needs a name and a server")
		}
		if seen[cluster.Name] {
			return fmt.Errorf("duplicate cluster name %q", cluster.Name)
		}
		seen[cluster.Name] = true
	}
	return nil
}

// SyncCronSpec renders the cluster sync cadence ("minute M of every hour") as
// a cron expression.
func (c Config) SyncCronSpec() string {
	return fmt.Sprintf("%d * * * *", c.Sync.Minute)
}

// ScrapeCronSpec renders the daily scrape cadence ("HH:MM") as a cron
// expression. Validate guarantees the time parses.
func (c Config) ScrapeCronSpec() string {
	hour, minute, _ := parseDailyAt(c.Scrape.DailyAt)
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// BatchDelay returns the pause between registration query batches.
func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.Sync.BatchDelaySeconds) * time.Second
}

// DrainPollInterval returns the queue drain polling interval.
func (c Config) DrainPollInterval() time.Duration {
	return time.Duration(c.Scrape.DrainPollSeconds) * time.Second
}

// FreshnessWindow returns the trailing registration window for scrape
// eligibility.
func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Scrape.FreshnessHours) * time.Hour
}

// RequestTimeout returns the per-request timeout for device page fetches.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scrape.RequestTimeoutSecs) * time.Second
}

func parseDailyAt(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("scrape.daily_at must be HH:MM, got %q", value)
	}
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("scrape.daily_at must be HH:MM, got %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("scrape.daily_at out of range: %q", value)
	}
	return hour, minute, nil
}
