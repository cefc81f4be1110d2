package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint = "https://test.icorp.uz/private/interview.php"
	DefaultMsg      = "hello-from-client"
	DefaultURI      = "/private/next"
	DefaultTimeout  = 15 // seconds

	envPrefix = "HANDSHAKE"
)

// Config holds the application configuration loaded from flags, environment variables and .env files.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Endpoint       string        `mapstructure:"endpoint"`
	Msg            string        `mapstructure:"msg"`
	URI            string        `mapstructure:"uri"`
	TimeoutSeconds int           `mapstructure:"timeout"`
	Timeout        time.Duration `mapstructure:"-"`
	Verbose        bool          `mapstructure:"verbose"`

	ListenAddr string `mapstructure:"listen_addr"`
	SinksFile  string `mapstructure:"sinks_file"`

	HistoryType            string        `mapstructure:"history_type"`
	HistoryPath            string        `mapstructure:"history_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"endpoint":     "endpoint",
	"msg":          "msg",
	"uri":          "uri",
	"timeout":      "timeout",
	"verbose":      "verbose",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"listen":       "listen_addr",
	"sinks-file":   "sinks_file",
	"history-type": "history_type",
	"history-path": "history_path",
}

// Load reads configuration from environment variables, configs/.env and the given flag set.
// Flags that were not set on the command line do not override env or defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "handshake")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("msg", DefaultMsg)
	v.SetDefault("uri", DefaultURI)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("verbose", false)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("sinks_file", "")
	v.SetDefault("history_type", "bbolt")
	v.SetDefault("history_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithRequestParams returns a copy of base overridden by web request parameters.
// Query values take precedence over form values; verbose is enabled when the key is present at all.
func WithRequestParams(base Config, query, form url.Values) (*Config, error) {
	lookup := func(key string) (string, bool) {
		if vals, ok := query[key]; ok && len(vals) > 0 {
			return vals[0], true
		}
		if vals, ok := form[key]; ok && len(vals) > 0 {
			return vals[0], true
		}
		return "", false
	}

	cfg := base
	if v, ok := lookup("endpoint"); ok {
		cfg.Endpoint = v
	}
	if v, ok := lookup("msg"); ok {
		cfg.Msg = v
	}
	if v, ok := lookup("uri"); ok {
		cfg.URI = v
	}
	if v, ok := lookup("timeout"); ok {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q", v)
		}
		cfg.TimeoutSeconds = secs
	}
	if _, ok := lookup("verbose"); ok {
		cfg.Verbose = true
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates the handshake inputs and derives durations.
func (c *Config) normalize() error {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		return fmt.Errorf("invalid endpoint (must not be empty)")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid endpoint %q (must be an absolute http(s) URL)", c.Endpoint)
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout (must be positive seconds)")
	}
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	if c.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if c.HistoryCleanupSeconds <= 0 {
		return fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	c.HistoryTTL = time.Duration(c.HistoryTTLSeconds) * time.Second
	c.HistoryCleanupInterval = time.Duration(c.HistoryCleanupSeconds) * time.Second

	return nil
}

// RegisterFlags declares the command-line flags Load knows how to bind.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("endpoint", DefaultEndpoint, "handshake endpoint URL")
	flags.String("msg", DefaultMsg, "message sent in the first request")
	flags.String("uri", DefaultURI, "path sent in the first request and used when the response names none")
	flags.Int("timeout", DefaultTimeout, "connect and total timeout per request, in seconds")
	flags.Bool("verbose", false, "trace every HTTP exchange to stderr")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log encoding (json, console)")
	flags.String("sinks-file", "", "optional YAML/JSON file declaring outcome sinks")
	flags.String("history-type", "bbolt", "run history backend (bbolt, none)")
	flags.String("history-path", "./data/history.db", "run history database path")
}
