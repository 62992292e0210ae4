// Package config loads and validates worker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Core      CoreConfig      `mapstructure:"core"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Render    RenderConfig    `mapstructure:"render"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Results   ResultsConfig   `mapstructure:"results"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CoreConfig locates the control-plane API.
type CoreConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// WorkerConfig governs the task worker pool and retry policy.
type WorkerConfig struct {
	Concurrency        int `mapstructure:"concurrency"`
	QueueDepth         int `mapstructure:"queue_depth"`
	MaxRetries         int `mapstructure:"max_retries"`
	RetryDelaySeconds  int `mapstructure:"retry_delay_seconds"`
	CollectTimeLimitS  int `mapstructure:"collect_time_limit_seconds"`
	PreviewTimeLimitS  int `mapstructure:"preview_time_limit_seconds"`
	CollectPriority    int `mapstructure:"collect_priority"`
	PreviewPriority    int `mapstructure:"preview_priority"`
}

// FetchConfig configures outbound fetch behavior shared by fetchers.
type FetchConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
	PerHostBurst   int     `mapstructure:"per_host_burst"`
}

// RenderConfig configures the optional headless rendering of web sources.
type RenderConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
	MinHTMLBytes      int  `mapstructure:"min_html_bytes"`
}

// ArchiveConfig selects the raw-payload archive backend.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"` // noop, local, gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ResultsConfig selects the task result store backend.
type ResultsConfig struct {
	Provider string `mapstructure:"provider"` // memory, postgres
	DSN      string `mapstructure:"dsn"`
}

// PublisherConfig holds metadata for collection-completed notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"` // noop, pubsub
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLLECTOR")
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
	v.SetDefault("core.base_url", "http://localhost:5000")
	v.SetDefault("core.timeout_seconds", 10)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_depth", 128)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.retry_delay_seconds", 60)
	v.SetDefault("worker.collect_time_limit_seconds", 60)
	v.SetDefault("worker.preview_time_limit_seconds", 50)
	v.SetDefault("worker.collect_priority", 5)
	v.SetDefault("worker.preview_priority", 8)
	v.SetDefault("fetch.user_agent", "collector-worker/1.0")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.per_host_rps", 2.0)
	v.SetDefault("fetch.per_host_burst", 1)
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.max_parallel", 1)
	v.SetDefault("render.nav_timeout_seconds", 25)
	v.SetDefault("render.min_html_bytes", 2000)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("results.provider", "memory")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Core.BaseURL == "" {
		return fmt.Errorf("core.base_url must be set")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must be >= 0")
	}
	if c.Worker.CollectTimeLimitS <= 0 || c.Worker.PreviewTimeLimitS <= 0 {
		return fmt.Errorf("worker time limits must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Render.Enabled && c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0 when rendering is enabled")
	}
	switch c.Archive.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("unknown archive.provider: %s", c.Archive.Provider)
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
	}
	if c.Archive.Provider == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir must be set when archive.provider is local")
	}
	switch c.Results.Provider {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown results.provider: %s", c.Results.Provider)
	}
	if c.Results.Provider == "postgres" && c.Results.DSN == "" {
		return fmt.Errorf("results.dsn must be set when results.provider is postgres")
	}
	switch c.Publisher.Provider {
	case "noop", "pubsub":
	default:
		return fmt.Errorf("unknown publisher.provider: %s", c.Publisher.Provider)
	}
	if c.Publisher.Provider == "pubsub" && (c.Publisher.ProjectID == "" || c.Publisher.TopicName == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic_name must be set when publisher.provider is pubsub")
	}
	return nil
}

// CoreTimeout converts the control-plane timeout config into a duration.
func (c Config) CoreTimeout() time.Duration {
	return time.Duration(c.Core.TimeoutSeconds) * time.Second
}

// CollectTimeLimit is the hard wall-clock budget for a collection task.
func (c Config) CollectTimeLimit() time.Duration {
	return time.Duration(c.Worker.CollectTimeLimitS) * time.Second
}

// PreviewTimeLimit is the hard wall-clock budget for a preview task.
func (c Config) PreviewTimeLimit() time.Duration {
	return time.Duration(c.Worker.PreviewTimeLimitS) * time.Second
}

// RetryDelay is the fixed delay between collection task attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Worker.RetryDelaySeconds) * time.Second
}

// FetchTimeout is the per-request timeout for outbound fetches.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RenderNavTimeout is the navigation budget for headless rendering.
func (c Config) RenderNavTimeout() time.Duration {
	return time.Duration(c.Render.NavTimeoutSeconds) * time.Second
}
