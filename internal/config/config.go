// Package config загружает конфигурацию из переменных окружения и необязательного .env
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/region23/navatar/internal/validation"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
)

// Поддерживаемые драйверы хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRemote   = "remote"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Reminder ReminderConfig `json:"reminder"`
	Telegram TelegramConfig `json:"telegram"`
	Identity IdentityConfig `json:"identity"`

	SlotGranularityMins int             `json:"slot_granularity_mins"`
	Timezone            string          `json:"timezone"`
	Location            *time.Location  `json:"-"`
	LogLevel            logger.LogLevel `json:"log_level"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	RateLimit    int           `json:"rate_limit"` // запросов в минуту с одного IP
}

// StorageConfig содержит настройки хранилища бронирований
type StorageConfig struct {
	Driver       string        `json:"driver"`
	DBFile       string        `json:"db_file"`
	DatabaseURL  string        `json:"-"`
	StoreURL     string        `json:"store_url"`
	StoreTimeout time.Duration `json:"store_timeout"`
	CacheFile    string        `json:"cache_file"`
}

// ReminderConfig содержит настройки планировщика напоминаний
type ReminderConfig struct {
	Interval     time.Duration `json:"interval"`
	Tolerance    time.Duration `json:"tolerance"`
	Thresholds   []int         `json:"thresholds"`
	ResourceName string        `json:"resource_name"`
}

// TelegramConfig канал оповещений уровня ОС
type TelegramConfig struct {
	Token       string `json:"-"`
	AlertChatID int64  `json:"alert_chat_id"`
}

// IdentityConfig владелец текущей сессии и ключи подписи токенов
type IdentityConfig struct {
	OwnerID    string `json:"owner_id"`
	OwnerToken string `json:"-"`
	HashKey    string `json:"-"`
	BlockKey   string `json:"-"`
}

// Enabled сообщает, настроены ли ключи подписи токенов
func (c IdentityConfig) Enabled() bool {
	return c.HashKey != "" && c.BlockKey != ""
}

// AlertsEnabled сообщает, настроен ли канал Telegram
func (c TelegramConfig) AlertsEnabled() bool {
	return c.Token != "" && c.AlertChatID != 0
}

// Load загружает конфигурацию из переменных окружения.
// Файл .env подхватывается, если он есть; уже заданные переменные не перезаписываются.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv собирает конфигурацию только из окружения процесса
func FromEnv() (*Config, error) {
	level, err := logger.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, errors.ErrConfigurationInvalid.WithError(err)
	}

	thresholds, err := parseThresholds(getEnv("REMINDER_THRESHOLDS", "30,10,5,1"))
	if err != nil {
		return nil, err
	}

	chatID, err := getEnvAsInt64("TELEGRAM_ALERT_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RateLimit:    getEnvAsInt("RATE_LIMIT", 120),
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
			DBFile:       getEnv("DB_FILE", "navatar.db"),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			StoreURL:     os.Getenv("STORE_URL"),
			StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
			CacheFile:    os.Getenv("CACHE_FILE"),
		},
		Reminder: ReminderConfig{
			Interval:     getEnvAsDuration("REMINDER_INTERVAL", 30*time.Second),
			Tolerance:    getEnvAsDuration("REMINDER_TOLERANCE", 48*time.Second),
			Thresholds:   thresholds,
			ResourceName: getEnv("RESOURCE_NAME", "Navatar"),
		},
		Telegram: TelegramConfig{
			Token:       os.Getenv("TELEGRAM_TOKEN"),
			AlertChatID: chatID,
		},
		Identity: IdentityConfig{
			OwnerID:    os.Getenv("OWNER_ID"),
			OwnerToken: os.Getenv("OWNER_TOKEN"),
			HashKey:    os.Getenv("TOKEN_HASH_KEY"),
			BlockKey:   os.Getenv("TOKEN_BLOCK_KEY"),
		},
		SlotGranularityMins: getEnvAsInt("SLOT_GRANULARITY_MINS", validation.DefaultGranularity),
		Timezone:            getEnv("TIMEZONE", "Local"),
		LogLevel:            level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DBFile == "" {
			return invalid("DB_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return invalid("DATABASE_URL is required for the postgres driver")
		}
	case DriverRemote:
		if c.Storage.StoreURL == "" {
			return invalid("STORE_URL is required for the remote driver")
		}
	case DriverMemory:
	default:
		return invalid(fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	// Окно срабатывания должно покрывать интервал опроса и не дотягиваться до соседнего порога
	r := c.Reminder
	if r.Interval < time.Second || r.Interval > 5*time.Minute {
		return invalid("REMINDER_INTERVAL must be between 1s and 5m")
	}
	if r.Tolerance < r.Interval {
		return invalid("REMINDER_TOLERANCE must not be shorter than REMINDER_INTERVAL")
	}
	if r.Tolerance >= 2*time.Minute {
		return invalid("REMINDER_TOLERANCE must be under 2m")
	}
	if len(r.Thresholds) == 0 {
		return invalid("REMINDER_THRESHOLDS must not be empty")
	}

	if err := validation.ValidateGranularityMinutes(c.SlotGranularityMins); err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.ErrConfigurationInvalid.WithError(err).WithContext("TIMEZONE")
	}
	c.Location = loc

	if c.Server.RateLimit <= 0 {
		return invalid("RATE_LIMIT must be positive")
	}
	if (c.Identity.HashKey == "") != (c.Identity.BlockKey == "") {
		return invalid("TOKEN_HASH_KEY and TOKEN_BLOCK_KEY must be set together")
	}
	if c.Telegram.AlertChatID != 0 && c.Telegram.Token == "" {
		return invalid("TELEGRAM_TOKEN is required when TELEGRAM_ALERT_CHAT_ID is set")
	}

	return nil
}

func invalid(reason string) error {
	return errors.ErrConfigurationInvalid.WithContext(reason).WithError(fmt.Errorf("%s", reason))
}

func parseThresholds(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, invalid(fmt.Sprintf("REMINDER_THRESHOLDS: %q is not a positive number of minutes", part))
		}
		out = append(out, n)
	}
	return out, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt получает переменную окружения как число
func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, invalid(fmt.Sprintf("%s must be an integer", key))
	}
	return i, nil
}

// getEnvAsDuration получает переменную окружения как duration
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
