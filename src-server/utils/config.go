package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendSqlite StoreBackend = "sqlite"
)

type Config struct {
	port string

	jwtSecret string
	jwtExpire time.Duration

	storeBackend StoreBackend
	sqlitePath   string

	discordAppToken  string
	discordChannelID string

	metricCollectionInterval time.Duration
	reminderLeadTime         time.Duration

	location *time.Location

	staticWebClientDir string
}

// duration reads a duration env var, falling back to def when it's unset or
// can't be parsed.
func duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		slog.Warn(key+" is not set", "default", def)
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid "+key+", using default", "value", raw, "default", def)
		return def
	}
	slog.Debug("env", key, raw, "duration", d)
	return d
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		jwtSecret: func() string {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				slog.Warn("JWT_SECRET is not set")
				secret = "secret"
			}
			return secret
		}(),
		jwtExpire: duration("JWT_EXPIRE", 168*time.Hour), // 1 week

		storeBackend: func() StoreBackend {
			backend := StoreBackend(os.Getenv("STORE_BACKEND"))
			switch backend {
			case StoreBackendMemory, StoreBackendSqlite:
			case "":
				slog.Warn("STORE_BACKEND is not set, keeping everything in memory")
				backend = StoreBackendMemory
			default:
				slog.Warn("unknown STORE_BACKEND, keeping everything in memory", "value", backend)
				backend = StoreBackendMemory
			}
			slog.Debug("env", "STORE_BACKEND", backend)
			return backend
		}(),
		sqlitePath: func() string {
			path := os.Getenv("SQLITE_PATH")
			if path == "" {
				path = "./sqlite.db"
			}
			slog.Debug("env", "SQLITE_PATH", path)
			return filepath.Clean(path)
		}(),

		discordAppToken: func() string {
			token := os.Getenv("DISCORD_APP_TOKEN")
			if token == "" {
				slog.Warn("DISCORD_APP_TOKEN is not set, bulk messages will only be logged")
				return ""
			}
			if len(token) > 3 {
				slog.Debug("env", "DISCORD_APP_TOKEN", token[0:3]+"...")
			}
			return token
		}(),
		discordChannelID: func() string {
			channelID := os.Getenv("DISCORD_CHANNEL_ID")
			slog.Debug("env", "DISCORD_CHANNEL_ID", channelID)
			return channelID
		}(),

		metricCollectionInterval: duration("METRIC_COLLECTION_INTERVAL", 10*time.Second),
		reminderLeadTime:         duration("REMINDER_LEAD_TIME", 15*time.Minute),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				return time.Local
			case "UTC":
				return time.UTC
			}
			loc, err := time.LoadLocation(timezoneStr)
			if err != nil {
				slog.Warn("invalid TIMEZONE, using UTC", "timezone", timezoneStr, "error", err)
				return time.UTC
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),

		staticWebClientDir: func() string {
			dir := os.Getenv("STATIC_WEB_CLIENT_DIR")
			if dir == "" {
				slog.Debug("STATIC_WEB_CLIENT_DIR is not set, not serving the dashboard")
				return ""
			}
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				slog.Warn("STATIC_WEB_CLIENT_DIR is not a directory, not serving the dashboard", "dir", dir, "error", err)
				return ""
			}
			slog.Debug("env", "STATIC_WEB_CLIENT_DIR", dir)
			return filepath.Clean(dir)
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get JWT_SECRET env
func (c *Config) GetJWTSecret() string {
	return c.jwtSecret
}

// Get JWT_EXPIRE env, default to a week
func (c *Config) GetJWTExpire() time.Duration {
	return c.jwtExpire
}

// Get STORE_BACKEND env, memory or sqlite
func (c *Config) GetStoreBackend() StoreBackend {
	return c.storeBackend
}

// Get SQLITE_PATH env
func (c *Config) GetSqlitePath() string {
	return c.sqlitePath
}

// Get DISCORD_APP_TOKEN env
func (c *Config) GetDiscordAppToken() string {
	return c.discordAppToken
}

// Get DISCORD_CHANNEL_ID env
func (c *Config) GetDiscordChannelID() string {
	return c.discordChannelID
}

// Get METRIC_COLLECTION_INTERVAL env
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get REMINDER_LEAD_TIME env
func (c *Config) GetReminderLeadTime() time.Duration {
	return c.reminderLeadTime
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get STATIC_WEB_CLIENT_DIR env, empty when the dashboard isn't served
func (c *Config) GetStaticWebClientDir() string {
	return c.staticWebClientDir
}
