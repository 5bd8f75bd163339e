package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App           AppSettings          `mapstructure:"app"`
	Log           LogSettings          `mapstructure:"log"`
	Authority     AuthoritySettings    `mapstructure:"authority"`
	Realtime      RealtimeSettings     `mapstructure:"realtime"`
	Session       SessionSettings      `mapstructure:"session"`
	Storage       StorageSettings      `mapstructure:"storage"`
	Redis         RedisSettings        `mapstructure:"redis"`
	Kafka         KafkaSettings        `mapstructure:"kafka"`
	Notifications NotificationSettings `mapstructure:"notifications"`
	Status        StatusSettings       `mapstructure:"status"`
	Telemetry     TelemetrySettings    `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

// AuthoritySettings locates the session authority and content API.
type AuthoritySettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RealtimeSettings configures the realtime transport and its namespaces.
type RealtimeSettings struct {
	URL                   string        `mapstructure:"url"`
	Transport             string        `mapstructure:"transport"`
	ChatNamespace         string        `mapstructure:"chat_namespace"`
	NotificationNamespace string        `mapstructure:"notification_namespace"`
	ReconnectMinDelay     time.Duration `mapstructure:"reconnect_min_delay"`
	ReconnectMaxDelay     time.Duration `mapstructure:"reconnect_max_delay"`
	PingInterval          time.Duration `mapstructure:"ping_interval"`
}

// SessionSettings tunes credential checks.
type SessionSettings struct {
	ClockSkew time.Duration `mapstructure:"clock_skew"`
}

// StorageSettings selects where the refresh credential is persisted.
type StorageSettings struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the session event producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type NotificationSettings struct {
	DisplayDuration time.Duration `mapstructure:"display_duration"`
}

type StatusSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SPRUCE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"log.level",
		"authority.base_url",
		"authority.timeout",
		"realtime.url",
		"realtime.transport",
		"realtime.chat_namespace",
		"realtime.notification_namespace",
		"realtime.reconnect_min_delay",
		"realtime.reconnect_max_delay",
		"realtime.ping_interval",
		"session.clock_skew",
		"storage.backend",
		"storage.path",
		"storage.key_prefix",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"notifications.display_duration",
		"status.enabled",
		"status.host",
		"status.port",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Storage.Path == "" {
		path, err := defaultCredentialsPath()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = path
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "spruce-client")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("authority.base_url", "http://localhost:8080/api")
	v.SetDefault("authority.timeout", "10s")

	v.SetDefault("realtime.url", "ws://localhost:8080")
	v.SetDefault("realtime.transport", "websocket")
	v.SetDefault("realtime.chat_namespace", "chat")
	v.SetDefault("realtime.notification_namespace", "notifications")
	v.SetDefault("realtime.reconnect_min_delay", "1s")
	v.SetDefault("realtime.reconnect_max_delay", "30s")
	v.SetDefault("realtime.ping_interval", "25s")

	// Access credentials are declared expired one minute early.
	v.SetDefault("session.clock_skew", "60s")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.key_prefix", "spruce:credentials")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "spruce")

	v.SetDefault("notifications.display_duration", "4s")

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.host", "127.0.0.1")
	v.SetDefault("status.port", 9465)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "spruce-client")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SPRUCE_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// defaultCredentialsPath returns ~/.spruce/credentials.json.
func defaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".spruce", "credentials.json"), nil
}
