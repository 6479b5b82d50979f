package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath        string              `yaml:"db_path,omitempty"`
	LogLevel      string              `yaml:"log_level,omitempty"`
	LogFormat     string              `yaml:"log_format,omitempty"`
	Rates         HTTPSourceConfig    `yaml:"rates,omitempty"`
	Tips          HTTPSourceConfig    `yaml:"tips,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty"`
	MQTT          MQTTConfig          `yaml:"mqtt,omitempty"`
	AMQP          AMQPConfig          `yaml:"amqp,omitempty"`
}

type HTTPSourceConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type NotificationsConfig struct {
	// Backend is one of desktop, mqtt or none.
	Backend      string        `yaml:"backend,omitempty"`
	TickInterval time.Duration `yaml:"tick_interval,omitempty"`
	SettingsPoll time.Duration `yaml:"settings_poll,omitempty"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
}

type AMQPConfig struct {
	URL      string `yaml:"url,omitempty"`
	Exchange string `yaml:"exchange,omitempty"`
	Queue    string `yaml:"queue,omitempty"`
}

const (
	BackendDesktop = "desktop"
	BackendMQTT    = "mqtt"
	BackendNone    = "none"
)

func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Rates:     HTTPSourceConfig{BaseURL: "https://api.exchangerate.host", Timeout: 12 * time.Second},
		Tips:      HTTPSourceConfig{BaseURL: "https://api.quotable.io", Timeout: 8 * time.Second},
		Notifications: NotificationsConfig{
			Backend:      BackendDesktop,
			TickInterval: 30 * time.Second,
			SettingsPoll: time.Minute,
		},
		MQTT: MQTTConfig{TopicPrefix: "niclog", ClientID: "niclog"},
		AMQP: AMQPConfig{Exchange: "niclog", Queue: "entry_events"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// variables from .env and the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	// .env is optional; a missing file leaves the environment untouched.
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DBPath = getEnv("NICLOG_DB", c.DBPath)
	c.LogLevel = getEnv("NICLOG_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("NICLOG_LOG_FORMAT", c.LogFormat)
	c.Notifications.Backend = getEnv("NICLOG_NOTIFY_BACKEND", c.Notifications.Backend)
	c.Rates.BaseURL = getEnv("NICLOG_RATES_URL", c.Rates.BaseURL)
	c.AMQP.URL = getEnv("NICLOG_AMQP_URL", c.AMQP.URL)
	if broker := os.Getenv("NICLOG_MQTT_BROKER"); broker != "" {
		c.MQTT.Broker = broker
		c.MQTT.Enabled = true
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_format %q: must be text or json", c.LogFormat))
	}
	sources := []struct {
		name string
		src  HTTPSourceConfig
	}{{"rates", c.Rates}, {"tips", c.Tips}}
	for _, s := range sources {
		if s.src.BaseURL == "" {
			continue
		}
		if u, err := url.Parse(s.src.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid %s.base_url %q", s.name, s.src.BaseURL))
		}
	}

	switch c.Notifications.Backend {
	case BackendDesktop, BackendNone:
	case BackendMQTT:
		if !c.MQTT.Enabled || c.MQTT.Broker == "" {
			errs = append(errs, "notifications.backend mqtt requires mqtt.enabled and mqtt.broker")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid notifications.backend %q: must be desktop, mqtt or none", c.Notifications.Backend))
	}
	if c.Notifications.TickInterval < time.Second {
		errs = append(errs, "notifications.tick_interval must be at least 1s")
	}
	if c.Notifications.SettingsPoll < time.Second {
		errs = append(errs, "notifications.settings_poll must be at least 1s")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			errs = append(errs, fmt.Sprintf("invalid amqp.url %q", c.AMQP.URL))
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "amqp.exchange is required when amqp.url is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
