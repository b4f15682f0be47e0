package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("REMINDER_THRESHOLDS", "")

	cfg, err := FromEnv()
	testutils.AssertNoError(t, err, "defaults are valid")

	testutils.AssertEqual(t, "8080", cfg.Server.Port, "port")
	testutils.AssertEqual(t, 120, cfg.Server.RateLimit, "rate limit")
	testutils.AssertEqual(t, DriverSQLite, cfg.Storage.Driver, "driver")
	testutils.AssertEqual(t, "navatar.db", cfg.Storage.DBFile, "db file")
	testutils.AssertEqual(t, 30*time.Second, cfg.Reminder.Interval, "interval")
	testutils.AssertEqual(t, 48*time.Second, cfg.Reminder.Tolerance, "tolerance")
	testutils.AssertEqual(t, []int{30, 10, 5, 1}, cfg.Reminder.Thresholds, "thresholds")
	testutils.AssertEqual(t, "Navatar", cfg.Reminder.ResourceName, "resource")
	testutils.AssertEqual(t, 5, cfg.SlotGranularityMins, "granularity")
	testutils.AssertEqual(t, logger.LevelInfo, cfg.LogLevel, "log level")
	testutils.AssertTrue(t, cfg.Location != nil, "location resolved")
	testutils.AssertFalse(t, cfg.Identity.Enabled(), "no token keys")
	testutils.AssertFalse(t, cfg.Telegram.AlertsEnabled(), "no alerts")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Remote")
	t.Setenv("STORE_URL", "http://store:8080")
	t.Setenv("REMINDER_INTERVAL", "10s")
	t.Setenv("REMINDER_TOLERANCE", "15s")
	t.Setenv("REMINDER_THRESHOLDS", "15, 2")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALERT_CHAT_ID", "-1001")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	testutils.AssertNoError(t, err, "overrides")

	testutils.AssertEqual(t, DriverRemote, cfg.Storage.Driver, "driver lowercased")
	testutils.AssertEqual(t, []int{15, 2}, cfg.Reminder.Thresholds, "thresholds")
	testutils.AssertEqual(t, int64(-1001), cfg.Telegram.AlertChatID, "chat id")
	testutils.AssertTrue(t, cfg.Telegram.AlertsEnabled(), "alerts enabled")
	testutils.AssertEqual(t, time.UTC, cfg.Location, "utc")
	testutils.AssertEqual(t, logger.LevelDebug, cfg.LogLevel, "debug")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORAGE_DRIVER": "postgres"}},
		{"remote without url", map[string]string{"STORAGE_DRIVER": "remote"}},
		{"interval too long", map[string]string{"REMINDER_INTERVAL": "10m"}},
		{"tolerance below interval", map[string]string{"REMINDER_INTERVAL": "40s", "REMINDER_TOLERANCE": "30s"}},
		{"tolerance too wide", map[string]string{"REMINDER_TOLERANCE": "2m"}},
		{"bad threshold", map[string]string{"REMINDER_THRESHOLDS": "30,abc"}},
		{"granularity", map[string]string{"SLOT_GRANULARITY_MINS": "7"}},
		{"timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"half token keys", map[string]string{"TOKEN_HASH_KEY": "aGVsbG8="}},
		{"chat without token", map[string]string{"TELEGRAM_ALERT_CHAT_ID": "42"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			testutils.AssertErrorIs(t, err, errors.ErrConfigurationInvalid, tt.name)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	testutils.AssertNoError(t, os.WriteFile(path, []byte("RESOURCE_NAME=Robot\n"), 0o600), "write env")
	t.Setenv("RESOURCE_NAME", "")
	os.Unsetenv("RESOURCE_NAME")

	cfg, err := Load(path)
	testutils.AssertNoError(t, err, "load")
	testutils.AssertEqual(t, "Robot", cfg.Reminder.ResourceName, "from file")
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	testutils.AssertNoError(t, err, "missing env file is ignored")
}
