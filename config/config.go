package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Uploads  UploadsConfig
	Friends  FriendsConfig
	WS       WSConfig
	History  HistoryConfig
	LogDebug bool
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

type DBConfig struct {
	Driver string
	DSN    string
}

// RedisConfig is optional; an empty Addr keeps delivery on this instance only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Secret       string
	TokenTTL     time.Duration
	RequireToken bool
}

type UploadsConfig struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

type FriendsConfig struct {
	ResendCooldown time.Duration
}

type WSConfig struct {
	ReadLimit    int64
	EventTimeout time.Duration
}

type HistoryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5050")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "chat.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.require_token", false)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/uploads")
	v.SetDefault("uploads.max_bytes", 8<<20)
	v.SetDefault("friends.resend_cooldown", time.Duration(0))
	v.SetDefault("ws.read_limit", 64<<10)
	v.SetDefault("ws.event_timeout", 10*time.Second)
	v.SetDefault("history.default_limit", 50)
	v.SetDefault("history.max_limit", 200)
	v.SetDefault("log.development", false)
}

// Load reads <dir>/.env and <dir>/app.yaml. Both files are optional; values
// from the environment (prefix CHAT_) take precedence over the file.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetConfigName("app")
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return FromViper(v), nil
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			CORSOrigins: v.GetStringSlice("http.cors_origins"),
		},
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Secret:       v.GetString("auth.secret"),
			TokenTTL:     v.GetDuration("auth.token_ttl"),
			RequireToken: v.GetBool("auth.require_token"),
		},
		Uploads: UploadsConfig{
			Dir:       v.GetString("uploads.dir"),
			URLPrefix: v.GetString("uploads.url_prefix"),
			MaxBytes:  v.GetInt64("uploads.max_bytes"),
		},
		Friends: FriendsConfig{
			ResendCooldown: v.GetDuration("friends.resend_cooldown"),
		},
		WS: WSConfig{
			ReadLimit:    v.GetInt64("ws.read_limit"),
			EventTimeout: v.GetDuration("ws.event_timeout"),
		},
		History: HistoryConfig{
			DefaultLimit: v.GetInt("history.default_limit"),
			MaxLimit:     v.GetInt("history.max_limit"),
		},
		LogDebug: v.GetBool("log.development"),
	}
}
