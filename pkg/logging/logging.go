package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// KeyError is the key for logging errors.
	KeyError = "err"

	// KeyDal is the key for logging the data access layer.
	KeyDal = "dal"

	// KeyGuild is the key for logging a guild ID.
	KeyGuild = "guild_id"

	// KeyChannel is the key for logging a channel ID.
	KeyChannel = "channel_id"

	// KeyUser is the key for logging a user ID.
	KeyUser = "user_id"

	// KeyPanel is the key for logging a panel name.
	KeyPanel = "panel"

	// KeyWorker is the key for logging a background worker.
	KeyWorker = "worker"

	// keyApp is the key for the application name.
	keyApp = "app"
)

// EnvLogLevel is the environment variable for the log level.
const EnvLogLevel = `LOG_LEVEL`

// Name is the name of the application doing the logging.
type Name string

// Config is the configuration for the logger.
type Config struct {
	// appName is the name of the application.
	appName string

	// level is the minimum level that is logged.
	level slog.Level

	// out is where the logs are written.
	out io.Writer
}

// NewConfig creates a new logging configuration for the given application.
func NewConfig(appName Name) *Config {
	return &Config{
		appName: string(appName),
		level:   levelFromEnv(),
		out:     os.Stdout,
	}
}

// WithWriter sets the writer for the logger.
func (c *Config) WithWriter(w io.Writer) *Config {
	c.out = w
	return c
}

// CommonLogger creates the JSON logger shared by the application and sets it as the default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, fmt.Errorf("logging config is nil")
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	h := slog.NewJSONHandler(c.out, &slog.HandlerOptions{
		AddSource: c.level == slog.LevelDebug,
		Level:     c.level,
	})

	l := slog.New(h).With(slog.String(keyApp, c.appName))
	slog.SetDefault(l)
	return l, nil
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
