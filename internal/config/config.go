// Package config loads runtime settings from the environment, an optional
// .env file and an optional branding YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/render"
)

// Config holds every runtime setting of the tracker.
type Config struct {
	Port string

	Storage db.Options

	// IntervalDays is the number of days between oil changes.
	IntervalDays int
	// Location is the time zone calendar days are taken in.
	Location *time.Location

	CacheVersion string
	AssetsDir    string
	BrandingFile string
	PrintDelay   time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	// TrustProxy keys the write rate limit by X-Forwarded-For; set it only
	// when the tracker is reachable through a proxy alone.
	TrustProxy bool

	// ReminderSchedule is a cron expression; empty disables the digest.
	ReminderSchedule string

	LogLevel  string
	LogFormat string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port: "8080",
		Storage: db.Options{
			Driver:          db.DriverFile,
			Dir:             "data",
			MongoDatabase:   "oilchange",
			MongoCollection: "kv",
		},
		IntervalDays:     models.DefaultMaintenanceInterval,
		Location:         time.Local,
		CacheVersion:     "box-motors-v1",
		PrintDelay:       render.DefaultPrintDelay,
		MQTTTopic:        "oilchange/alerts",
		MQTTClientID:     "oilchange-tracker",
		ReminderSchedule: "0 8 * * *",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads .env files (missing files are ignored) and then the
// environment on top of Default.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("PORT", &cfg.Port)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("DATA_DIR", &cfg.Storage.Dir)
	str("MONGO_URI", &cfg.Storage.MongoURI)
	str("MONGO_DB", &cfg.Storage.MongoDatabase)
	str("MONGO_COLLECTION", &cfg.Storage.MongoCollection)
	str("CACHE_VERSION", &cfg.CacheVersion)
	str("ASSETS_DIR", &cfg.AssetsDir)
	str("BRANDING_FILE", &cfg.BrandingFile)
	str("MQTT_BROKER", &cfg.MQTTBroker)
	str("MQTT_TOPIC", &cfg.MQTTTopic)
	str("MQTT_CLIENT_ID", &cfg.MQTTClientID)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	// An explicit "off" disables the reminder digest.
	if v := strings.TrimSpace(getenv("REMINDER_SCHEDULE")); v != "" {
		if strings.EqualFold(v, "off") {
			cfg.ReminderSchedule = ""
		} else {
			cfg.ReminderSchedule = v
		}
	}

	if v := getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("TRUST_PROXY must be a boolean, got %q", v)
		}
		cfg.TrustProxy = b
	}
	if v := getenv("MAINTENANCE_INTERVAL_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > models.MaxPeriodDays {
			return Config{}, fmt.Errorf("MAINTENANCE_INTERVAL_DAYS must be an integer between 1 and %d, got %q", models.MaxPeriodDays, v)
		}
		cfg.IntervalDays = n
	}
	if v := getenv("PRINT_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("PRINT_DELAY_MS must be a non-negative integer, got %q", v)
		}
		cfg.PrintDelay = time.Duration(n) * time.Millisecond
	}
	if v := getenv("TZ_NAME"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("TZ_NAME: %w", err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

// Clock returns time.Now in the configured location.
func (c Config) Clock() func() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Addr returns the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// SetupLogging applies the level and format to the standard logrus logger.
func (c Config) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// LoadBranding reads the shop identity from path. An empty path yields the
// defaults; fields missing from the file keep their defaults.
func LoadBranding(path string) (render.Branding, error) {
	b := render.DefaultBranding()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return b, fmt.Errorf("read branding: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parse branding %s: %w", path, err)
	}
	return b, nil
}
