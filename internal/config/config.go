// Package config loads executor configuration from flags, an optional
// YAML file, and environment variables for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/*
YAML config example:

log_level: "info"
registry_url: "https://registry.example.com"
wallex_api_key: ""            # falls back to WALLEX_API_KEY
db_conn_str: ""               # falls back to DB_CONN_STR
poll_interval: 30s
candle_timeframe: "1m"
candle_count: 100
confidence_floor: 0.6
order_size: 0.001
api_listen: ":8080"
metrics_listen: ":9090"
telegram_token: ""            # falls back to TELEGRAM_TOKEN
telegram_chat_id: ""
notification_retries: 3
notification_delay: 5s
strategy_params:
  ETH:
    rsi: { period: 9, overbought: 75 }
*/

type Config struct {
	LogLevel        string        `yaml:"log_level"`
	RegistryURL     string        `yaml:"registry_url"`
	WallexAPIKey    string        `yaml:"wallex_api_key"`
	DBConnStr       string        `yaml:"db_conn_str"`
	DBMaxOpen       int           `yaml:"db_max_open"`
	DBMaxIdle       int           `yaml:"db_max_idle"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	CandleTimeframe string        `yaml:"candle_timeframe"`
	CandleCount     int           `yaml:"candle_count"`
	ConfidenceFloor float64       `yaml:"confidence_floor"`
	OrderSize       float64       `yaml:"order_size"`
	APIListen       string        `yaml:"api_listen"`
	MetricsListen   string        `yaml:"metrics_listen"`

	TelegramToken       string        `yaml:"telegram_token"`
	TelegramChatID      string        `yaml:"telegram_chat_id"`
	NotificationRetries int           `yaml:"notification_retries"`
	NotificationDelay   time.Duration `yaml:"notification_delay"`

	// Per-token, per-strategy-type parameter overrides applied on top of
	// each engine's defaults.
	StrategyParams map[string]map[string]map[string]any `yaml:"strategy_params"`
}

// Default returns the configuration used when a field is absent from the
// YAML file.
func Default() Config {
	return Config{
		LogLevel:            "info",
		RegistryURL:         "http://localhost:9000",
		DBMaxOpen:           10,
		DBMaxIdle:           5,
		PollInterval:        30 * time.Second,
		CandleTimeframe:     "1m",
		CandleCount:         100,
		ConfidenceFloor:     0.6,
		OrderSize:           0.001,
		APIListen:           ":8080",
		MetricsListen:       ":9090",
		NotificationRetries: 3,
		NotificationDelay:   5 * time.Second,
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults and
// fills secrets from the environment when the file leaves them blank.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.WallexAPIKey == "" {
		cfg.WallexAPIKey = os.Getenv("WALLEX_API_KEY")
	}
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = os.Getenv("DB_CONN_STR")
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if cfg.TelegramChatID == "" {
		cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.CandleCount <= 0 {
		return fmt.Errorf("candle_count must be positive, got %d", c.CandleCount)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be within [0, 1], got %v", c.ConfidenceFloor)
	}
	if c.OrderSize <= 0 {
		return fmt.Errorf("order_size must be positive, got %v", c.OrderSize)
	}
	return nil
}
