// Package config loads and validates engine configuration via Viper.
// Settings come from an optional config file, HARVEST_-prefixed environment
// variables, and defaults, in ascending precedence of the first two.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable set of knobs an engine instance is built from.
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Analyze  AnalyzeConfig  `mapstructure:"analyze"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Backlink BacklinkConfig `mapstructure:"backlink"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FetchConfig governs single-page fetch behavior.
type FetchConfig struct {
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	RespectRobotsTxt  bool          `mapstructure:"respect_robots_txt"`
	RenderMode        string        `mapstructure:"render_mode"`
	MaxTabs           int           `mapstructure:"max_tabs"`
	RotateUserAgents  bool          `mapstructure:"rotate_user_agents"`
	CustomUserAgents  []string      `mapstructure:"custom_user_agents"`
	DetectorMinBytes  int           `mapstructure:"detector_min_bytes"`
}

// ThrottleConfig governs pacing toward individual domains and overall.
type ThrottleConfig struct {
	ThrottleDelay time.Duration `mapstructure:"throttle_delay"`
	GlobalRPS     float64       `mapstructure:"global_rps"`
	GlobalBurst   int           `mapstructure:"global_burst"`
}

// BreakerConfig governs the per-domain circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	HalfOpenMaxCalls int           `mapstructure:"half_open_max_calls"`
}

// BatchConfig governs the batch scheduler.
type BatchConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	BatchDelay    time.Duration `mapstructure:"batch_delay"`
}

// AnalyzeConfig governs the content analyzer.
type AnalyzeConfig struct {
	EnableNLP        bool `mapstructure:"enable_nlp"`
	MinContentLength int  `mapstructure:"min_content_length"`
	TopKeywords      int  `mapstructure:"top_keywords"`
}

// ProfileConfig governs competitor profile assembly.
type ProfileConfig struct {
	MaxBlogPosts int `mapstructure:"max_blog_posts"`
}

// BacklinkConfig governs the external web index client.
type BacklinkConfig struct {
	IndexBaseURL string `mapstructure:"index_base_url"`
	APIKey       string `mapstructure:"api_key"`
	DefaultLimit int    `mapstructure:"default_limit"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.default_timeout", "15s")
	v.SetDefault("fetch.navigation_timeout", "45s")
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.retry_base_delay", "500ms")
	v.SetDefault("fetch.respect_robots_txt", true)
	v.SetDefault("fetch.render_mode", "lightweight")
	v.SetDefault("fetch.max_tabs", 4)
	v.SetDefault("fetch.rotate_user_agents", true)
	v.SetDefault("fetch.custom_user_agents", []string{})
	v.SetDefault("fetch.detector_min_bytes", 2000)

	v.SetDefault("throttle.throttle_delay", "1s")
	v.SetDefault("throttle.global_rps", 10.0)
	v.SetDefault("throttle.global_burst", 5)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", "60s")
	v.SetDefault("breaker.half_open_max_calls", 1)

	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("batch.batch_delay", "0s")

	v.SetDefault("analyze.enable_nlp", true)
	v.SetDefault("analyze.min_content_length", 100)
	v.SetDefault("analyze.top_keywords", 10)

	v.SetDefault("profile.max_blog_posts", 5)

	v.SetDefault("backlink.index_base_url", "https://s.jina.ai")
	v.SetDefault("backlink.api_key", "")
	v.SetDefault("backlink.default_limit", 20)

	v.SetDefault("logging.development", false)
}

// Load reads configuration from the named file (optional when empty), the
// standard search paths, and HARVEST_-prefixed environment variables. A
// missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harvest")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.harvest")
		v.AddConfigPath("/etc/harvest/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
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

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.Fetch.RenderMode {
	case "lightweight", "rendered", "auto":
	default:
		return fmt.Errorf("fetch.render_mode %q is not one of lightweight, rendered, auto", c.Fetch.RenderMode)
	}
	if c.Fetch.DefaultTimeout <= 0 {
		return fmt.Errorf("fetch.default_timeout must be positive, got %s", c.Fetch.DefaultTimeout)
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative, got %d", c.Fetch.MaxRetries)
	}
	if c.Throttle.ThrottleDelay < 0 {
		return fmt.Errorf("throttle.throttle_delay must not be negative, got %s", c.Throttle.ThrottleDelay)
	}
	if c.Throttle.GlobalRPS <= 0 {
		return fmt.Errorf("throttle.global_rps must be positive, got %g", c.Throttle.GlobalRPS)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		return fmt.Errorf("breaker.recovery_timeout must be positive, got %s", c.Breaker.RecoveryTimeout)
	}
	if c.Breaker.HalfOpenMaxCalls <= 0 {
		return fmt.Errorf("breaker.half_open_max_calls must be positive, got %d", c.Breaker.HalfOpenMaxCalls)
	}
	if c.Batch.MaxConcurrent <= 0 {
		return fmt.Errorf("batch.max_concurrent must be positive, got %d", c.Batch.MaxConcurrent)
	}
	if c.Analyze.MinContentLength < 0 {
		return fmt.Errorf("analyze.min_content_length must not be negative, got %d", c.Analyze.MinContentLength)
	}
	if c.Profile.MaxBlogPosts <= 0 {
		return fmt.Errorf("profile.max_blog_posts must be positive, got %d", c.Profile.MaxBlogPosts)
	}
	return nil
}
