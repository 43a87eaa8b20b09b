package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			env: map[string]string{
				EnvBotToken:      "token",
				EnvApplicationId: "app",
				EnvMongoUri:      "mongodb://localhost",
			},
			want: &Config{
				BotToken:           "token",
				ApplicationId:      "app",
				MongoUri:           "mongodb://localhost",
				MonitoringPort:     "8080",
				Storage:            StorageMongo,
				AutoCloseInterval:  30 * time.Minute,
				EscalationInterval: 15 * time.Minute,
				WorkerGracePeriod:  2 * time.Minute,
				ApiRateLimit:       5,
			},
		},
		{
			name: "environment",
			env: map[string]string{
				EnvBotToken:           "token",
				EnvApplicationId:      "app",
				EnvStorage:            StorageMemory,
				EnvMonitoringPort:     "9090",
				EnvAutoCloseInterval:  "1h",
				EnvEscalationInterval: "1d",
				EnvWorkerGracePeriod:  "0s",
				EnvApiRateLimit:       "2.5",
			},
			want: &Config{
				BotToken:           "token",
				ApplicationId:      "app",
				MonitoringPort:     "9090",
				Storage:            StorageMemory,
				AutoCloseInterval:  time.Hour,
				EscalationInterval: 24 * time.Hour,
				WorkerGracePeriod:  0,
				ApiRateLimit:       2.5,
			},
		},
		{
			name: "flags override environment",
			env: map[string]string{
				EnvBotToken:      "token",
				EnvApplicationId: "app",
				EnvStorage:       StorageMongo,
			},
			args: []string{"--storage", "memory", "--auto-close-interval", "5m", "--bot-token", "other"},
			want: &Config{
				BotToken:           "other",
				ApplicationId:      "app",
				MonitoringPort:     "8080",
				Storage:            StorageMemory,
				AutoCloseInterval:  5 * time.Minute,
				EscalationInterval: 15 * time.Minute,
				WorkerGracePeriod:  2 * time.Minute,
				ApiRateLimit:       5,
			},
		},
		{
			name:    "missing token",
			env:     map[string]string{EnvApplicationId: "app", EnvStorage: StorageMemory},
			wantErr: "BOT_TOKEN is required",
		},
		{
			name:    "mongo without uri",
			env:     map[string]string{EnvBotToken: "token", EnvApplicationId: "app"},
			wantErr: "MONGO_URI is required when using mongo storage",
		},
		{
			name:    "unknown storage",
			env:     map[string]string{EnvBotToken: "token", EnvApplicationId: "app", EnvStorage: "redis"},
			wantErr: `STORAGE must be mongo or memory, got "redis"`,
		},
		{
			name:    "bad duration",
			env:     map[string]string{EnvBotToken: "token", EnvApplicationId: "app", EnvStorage: StorageMemory, EnvAutoCloseInterval: "soon"},
			wantErr: "error parsing AUTO_CLOSE_INTERVAL",
		},
		{
			name:    "bad rate",
			env:     map[string]string{EnvBotToken: "token", EnvApplicationId: "app", EnvStorage: StorageMemory, EnvApiRateLimit: "0"},
			wantErr: "API_RATE_LIMIT must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				EnvBotToken, EnvApplicationId, EnvMongoUri, EnvMonitoringPort, EnvStorage,
				EnvAutoCloseInterval, EnvEscalationInterval, EnvWorkerGracePeriod, EnvApiRateLimit,
			} {
				t.Setenv(key, tt.env[key])
			}

			got, err := Parse(l, tt.args)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
