package models

import "time"

// BotConfig is the process bootstrap configuration loaded by viper.
type BotConfig struct {
	Instance          string        `mapstructure:"instance"`
	BearerToken       string        `mapstructure:"bearer_token"`
	StateFile         string        `mapstructure:"state_file"`
	LockFile          string        `mapstructure:"lock_file"`
	HistoryDB         string        `mapstructure:"history_db"`
	HistoryRetention  time.Duration `mapstructure:"history_retention"`
	MediaDir          string        `mapstructure:"media_dir"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	SourceRate        time.Duration `mapstructure:"source_rate"`
	PollSchedule      string        `mapstructure:"poll_schedule"`
	MaxMediaDimension int           `mapstructure:"max_media_dimension"`
	ProfileFields     bool          `mapstructure:"profile_fields"`
	S3                S3Config      `mapstructure:"s3"`
	Admin             AdminConfig   `mapstructure:"admin"`
}

// S3Config selects the S3-compatible blob store.
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AdminConfig holds the operator-facing surfaces.
type AdminConfig struct {
	Listen         string `mapstructure:"listen"`
	GRPCListen     string `mapstructure:"grpc_listen"`
	DiscordToken   string `mapstructure:"discord_token"`
	DiscordChannel string `mapstructure:"discord_channel"`
}
