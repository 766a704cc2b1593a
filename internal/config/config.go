package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	uberconfig "go.uber.org/config"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	// OwnerChatID is the only chat served. Zero means the first private chat
	// that writes to the bot.
	OwnerChatID  int64  `yaml:"owner_chat_id"`
	DatabaseURL  string `yaml:"database_url"`
	StoreBackend string `yaml:"store_backend"`

	Redis  RedisConfig  `yaml:"redis"`
	Gemini GeminiConfig `yaml:"gemini"`
	MQTT   MQTTConfig   `yaml:"mqtt"`

	AladhanBaseURL       string `yaml:"aladhan_base_url"`
	CalculationMethod    int    `yaml:"calculation_method"`
	QuranBaseURL         string `yaml:"quran_base_url"`
	AudioBaseURL         string `yaml:"audio_base_url"`
	NotificationSoundURL string `yaml:"notification_sound_url"`

	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	ReportIntervalHours int    `yaml:"report_interval_hours"`
	HTTPAddr            string `yaml:"http_addr"`

	DefaultLatitude  *float64 `yaml:"default_latitude"`
	DefaultLongitude *float64 `yaml:"default_longitude"`

	Logging LoggingConfig `yaml:"logging"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

func defaults() Config {
	return Config{
		DatabaseURL:         "rawdah.db",
		StoreBackend:        BackendSQLite,
		Redis:               RedisConfig{Addr: "localhost:6379"},
		Gemini:              GeminiConfig{Model: "gemini-2.5-flash", Temperature: 0.8},
		MQTT:                MQTTConfig{Topic: "rawdah/prayer", ClientID: "rawdah"},
		CalculationMethod:   4,
		PollIntervalSeconds: 5,
		Logging:             LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads .env, then the YAML file at CONFIG_PATH if any, then
// environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c *Config) loadYAML(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	provider, err := uberconfig.NewYAML(
		uberconfig.File(path),
		uberconfig.Expand(os.LookupEnv),
	)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := provider.Get(uberconfig.Root).Populate(c); err != nil {
		return fmt.Errorf("populate config: %w", err)
	}
	return nil
}

func (c *Config) overrideFromEnv() error {
	setString := func(key string, dst *string) {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			*dst = val
		}
	}
	setString("TELEGRAM_TOKEN", &c.TelegramToken)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("STORE_BACKEND", &c.StoreBackend)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("GEMINI_API_KEY", &c.Gemini.APIKey)
	setString("GEMINI_MODEL", &c.Gemini.Model)
	setString("ALADHAN_BASE_URL", &c.AladhanBaseURL)
	setString("QURAN_BASE_URL", &c.QuranBaseURL)
	setString("AUDIO_BASE_URL", &c.AudioBaseURL)
	setString("NOTIFICATION_SOUND_URL", &c.NotificationSoundURL)
	setString("HTTP_ADDR", &c.HTTPAddr)
	setString("MQTT_BROKER", &c.MQTT.Broker)
	setString("MQTT_TOPIC", &c.MQTT.Topic)
	setString("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	var errs []error
	setInt := func(key string, dst *int) {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			return
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	setInt("REDIS_DB", &c.Redis.DB)
	setInt("CALCULATION_METHOD", &c.CalculationMethod)
	setInt("POLL_INTERVAL_SECONDS", &c.PollIntervalSeconds)
	setInt("REPORT_INTERVAL_HOURS", &c.ReportIntervalHours)

	setFloat := func(key string, dst **float64) {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			return
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = &f
	}
	setFloat("DEFAULT_LATITUDE", &c.DefaultLatitude)
	setFloat("DEFAULT_LONGITUDE", &c.DefaultLongitude)

	if val := strings.TrimSpace(os.Getenv("MENTOR_TEMPERATURE")); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MENTOR_TEMPERATURE: %w", err))
		} else {
			c.Gemini.Temperature = f
		}
	}
	if val := strings.TrimSpace(os.Getenv("OWNER_CHAT_ID")); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("OWNER_CHAT_ID: %w", err))
		} else {
			c.OwnerChatID = id
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	if c.StoreBackend != BackendSQLite && c.StoreBackend != BackendRedis {
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 5
	}
	if c.ReportIntervalHours < 0 {
		c.ReportIntervalHours = 0
	}
	if (c.DefaultLatitude == nil) != (c.DefaultLongitude == nil) {
		return fmt.Errorf("DEFAULT_LATITUDE and DEFAULT_LONGITUDE must be set together")
	}
	return nil
}

// PollInterval is the period of the alert matcher tick.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ReportInterval is the period of the progress report; zero disables it.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalHours) * time.Hour
}

// DefaultLocation returns the configured fallback coordinates.
func (c Config) DefaultLocation() (latitude, longitude float64, ok bool) {
	if c.DefaultLatitude == nil || c.DefaultLongitude == nil {
		return 0, 0, false
	}
	return *c.DefaultLatitude, *c.DefaultLongitude, true
}
