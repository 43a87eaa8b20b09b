package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	// AppName is the name of the application.
	AppName = "ticketwolf"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvStorage selects the guild store, mongo or memory.
	EnvStorage = `STORAGE`

	// EnvAutoCloseInterval is how often the auto-close sweep runs.
	EnvAutoCloseInterval = `AUTO_CLOSE_INTERVAL`

	// EnvEscalationInterval is how often the escalation sweep runs.
	EnvEscalationInterval = `ESCALATION_INTERVAL`

	// EnvWorkerGracePeriod is how long the sweeps wait after the bot is ready.
	EnvWorkerGracePeriod = `WORKER_GRACE_PERIOD`

	// EnvApiRateLimit is the number of Discord REST calls per second the sweeps may make.
	EnvApiRateLimit = `API_RATE_LIMIT`
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

const (
	defaultMonitoringPort     = "8080"
	defaultAutoCloseInterval  = 30 * time.Minute
	defaultEscalationInterval = 15 * time.Minute
	defaultWorkerGracePeriod  = 2 * time.Minute
	defaultApiRateLimit       = 5
)

// Config is the process configuration.
type Config struct {
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// MongoUri is the URI for the MongoDB database.
	MongoUri string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string

	// Storage is the guild store backend.
	Storage string

	AutoCloseInterval  time.Duration
	EscalationInterval time.Duration
	WorkerGracePeriod  time.Duration

	// ApiRateLimit is the number of REST calls per second background work may make.
	ApiRateLimit float64
}

// NewConfig loads the configuration from a .env file, the environment and the command line.
func NewConfig(l *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return Parse(l, os.Args[1:])
}

// Parse builds the configuration from the environment, overridden by the given flags.
func Parse(l *slog.Logger, args []string) (*Config, error) {
	autoClose, err := envDuration(EnvAutoCloseInterval, defaultAutoCloseInterval)
	if err != nil {
		return nil, err
	}
	escalation, err := envDuration(EnvEscalationInterval, defaultEscalationInterval)
	if err != nil {
		return nil, err
	}
	grace, err := envDuration(EnvWorkerGracePeriod, defaultWorkerGracePeriod)
	if err != nil {
		return nil, err
	}
	rateLimit, err := envFloat(EnvApiRateLimit, defaultApiRateLimit)
	if err != nil {
		return nil, err
	}

	c := new(Config)
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVar(&c.BotToken, "bot-token", os.Getenv(EnvBotToken), "Discord bot token")
	fs.StringVar(&c.ApplicationId, "application-id", os.Getenv(EnvApplicationId), "Discord application ID")
	fs.StringVar(&c.MongoUri, "mongo-uri", os.Getenv(EnvMongoUri), "MongoDB connection string")
	fs.StringVar(&c.MonitoringPort, "monitoring-port", envString(EnvMonitoringPort, defaultMonitoringPort), "port of the monitoring server")
	fs.StringVar(&c.Storage, "storage", envString(EnvStorage, StorageMongo), "guild store, mongo or memory")
	fs.DurationVar(&c.AutoCloseInterval, "auto-close-interval", autoClose, "interval of the auto-close sweep")
	fs.DurationVar(&c.EscalationInterval, "escalation-interval", escalation, "interval of the escalation sweep")
	fs.DurationVar(&c.WorkerGracePeriod, "worker-grace-period", grace, "delay between the bot being ready and the first sweep")
	fs.Float64Var(&c.ApiRateLimit, "api-rate-limit", rateLimit, "Discord REST calls per second for background work")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	l.Debug("Configuration loaded",
		slog.String("storage", c.Storage),
		slog.String("monitoring_port", c.MonitoringPort),
		slog.Duration("auto_close_interval", c.AutoCloseInterval),
		slog.Duration("escalation_interval", c.EscalationInterval),
	)
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.BotToken == "":
		return fmt.Errorf("%s is required", EnvBotToken)
	case c.ApplicationId == "":
		return fmt.Errorf("%s is required", EnvApplicationId)
	case c.Storage != StorageMongo && c.Storage != StorageMemory:
		return fmt.Errorf("%s must be %s or %s, got %q", EnvStorage, StorageMongo, StorageMemory, c.Storage)
	case c.Storage == StorageMongo && c.MongoUri == "":
		return fmt.Errorf("%s is required when using %s storage", EnvMongoUri, StorageMongo)
	case c.AutoCloseInterval <= 0 || c.EscalationInterval <= 0:
		return errors.New("worker intervals must be positive")
	case c.WorkerGracePeriod < 0:
		return fmt.Errorf("%s must not be negative", EnvWorkerGracePeriod)
	case c.ApiRateLimit <= 0:
		return fmt.Errorf("%s must be positive", EnvApiRateLimit)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration reads a duration such as 30m or 1d.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := custom.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", key, err)
	}
	return time.Duration(d), nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", key, err)
	}
	return f, nil
}
