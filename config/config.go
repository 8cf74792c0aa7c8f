package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"board-relay/models"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RELAY_BEARER_TOKEN.
const EnvPrefix = "RELAY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("state_file", "info.json")
	v.SetDefault("lock_file", "board-relay.pid")
	v.SetDefault("history_db", "data/history.db")
	v.SetDefault("history_retention", "720h")
	v.SetDefault("media_dir", "media")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("source_rate", "1s")
	v.SetDefault("poll_schedule", "@every 1m")
	v.SetDefault("max_media_dimension", 0)
	v.SetDefault("profile_fields", false)
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("admin.listen", "")
	v.SetDefault("admin.grpc_listen", "")
	v.SetDefault("admin.discord_token", "")
	v.SetDefault("admin.discord_channel", "")
	v.SetDefault("instance", "")
	v.SetDefault("bearer_token", "")
}

// LoadConfig loads configuration from, in order:
// 1. the .env file (environment variables)
// 2. config.yaml in . or ./config, or the explicit file when configFile is set
// 3. RELAY_* environment variables, which override file settings
func LoadConfig(configFile string) (*models.BotConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env file not found, skipping.")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Printf("config.yaml not found, using environment variables and defaults.")
	}

	return decode(v)
}

func decode(v *viper.Viper) (*models.BotConfig, error) {
	var cfg models.BotConfig
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *models.BotConfig) error {
	if cfg.Instance == "" {
		return errors.New("instance is required")
	}
	if cfg.BearerToken == "" {
		return errors.New("bearer_token is required")
	}
	if !strings.HasPrefix(cfg.Instance, "http://") && !strings.HasPrefix(cfg.Instance, "https://") {
		cfg.Instance = "https://" + cfg.Instance
	}
	cfg.Instance = strings.TrimSuffix(cfg.Instance, "/")
	if cfg.S3.Enabled && (cfg.S3.Endpoint == "" || cfg.S3.Bucket == "") {
		return errors.New("s3.endpoint and s3.bucket are required when s3.enabled is set")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("http_timeout must be positive")
	}
	return nil
}
