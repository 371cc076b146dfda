package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Internal  InternalConfig
	Storage   StorageConfig
	Dispatch  DispatchConfig
	Keyart    KeyartConfig
	Trailer   TrailerConfig
	Clips     ClipsConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InternalConfig covers inter-service trust: the shared secret that
// signs callback tokens and the base URL the progress webhook is built
// from when a task is dispatched.
type InternalConfig struct {
	Secret          string
	CallbackBaseURL string
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// DispatchConfig selects the task backend: "queue" for the containerized
// worker fleet, "local" to spawn the worker binary as a subprocess.
type DispatchConfig struct {
	Backend   string
	WorkerBin string
}

type KeyartConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type TrailerConfig struct {
	DefaultDurationSec int
	DefaultStyle       string
	AspectRatios       []string
}

type ClipsConfig struct {
	DefaultCount   int
	MinDurationSec int
	MaxDurationSec int
}

type RetryConfig struct {
	MaxRetries  int
	BaseDelayMS int
	MaxDelayMS  int
	JitterMaxMS int
}

type RateLimitConfig struct {
	CreatePerHour int
	StartPerHour  int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("INTERNAL_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("KEYART_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("internal.secret", "INTERNAL_SECRET")
	_ = viper.BindEnv("internal.callback_base_url", "CALLBACK_BASE_URL")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("dispatch.backend", "DISPATCH_BACKEND")
	_ = viper.BindEnv("dispatch.worker_bin", "DISPATCH_WORKER_BIN")
	_ = viper.BindEnv("keyart.api_key", "KEYART_API_KEY")
	_ = viper.BindEnv("keyart.base_url", "KEYART_BASE_URL")
	_ = viper.BindEnv("keyart.model", "KEYART_MODEL")
	_ = viper.BindEnv("trailer.default_duration_sec", "TRAILER_DEFAULT_DURATION_SEC")
	_ = viper.BindEnv("trailer.default_style", "TRAILER_DEFAULT_STYLE")
	_ = viper.BindEnv("clips.default_count", "CLIPS_DEFAULT_COUNT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("internal.secret", "change-me-in-production")
	viper.SetDefault("internal.callback_base_url", "http://localhost:8000")
	viper.SetDefault("storage.region", "auto")
	viper.SetDefault("dispatch.backend", "queue")
	viper.SetDefault("dispatch.worker_bin", "./mediagen-worker")
	viper.SetDefault("keyart.base_url", "https://api.openai.com")
	viper.SetDefault("keyart.model", "gpt-image-1")
	viper.SetDefault("trailer.default_duration_sec", 60)
	viper.SetDefault("trailer.default_style", "cinematic")
	viper.SetDefault("trailer.aspect_ratios", []string{"16:9", "9:16", "1:1"})
	viper.SetDefault("clips.default_count", 5)
	viper.SetDefault("clips.min_duration_sec", 5)
	viper.SetDefault("clips.max_duration_sec", 60)
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.base_delay_ms", 500)
	viper.SetDefault("retry.max_delay_ms", 10000)
	viper.SetDefault("retry.jitter_max_ms", 250)
	viper.SetDefault("ratelimit.create_per_hour", 60)
	viper.SetDefault("ratelimit.start_per_hour", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Internal: InternalConfig{
			Secret:          viper.GetString("internal.secret"),
			CallbackBaseURL: viper.GetString("internal.callback_base_url"),
		},
		Storage: StorageConfig{
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			Bucket:          viper.GetString("storage.bucket"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Dispatch: DispatchConfig{
			Backend:   viper.GetString("dispatch.backend"),
			WorkerBin: viper.GetString("dispatch.worker_bin"),
		},
		Keyart: KeyartConfig{
			APIKey:  viper.GetString("keyart.api_key"),
			BaseURL: viper.GetString("keyart.base_url"),
			Model:   viper.GetString("keyart.model"),
		},
		Trailer: TrailerConfig{
			DefaultDurationSec: viper.GetInt("trailer.default_duration_sec"),
			DefaultStyle:       viper.GetString("trailer.default_style"),
			AspectRatios:       viper.GetStringSlice("trailer.aspect_ratios"),
		},
		Clips: ClipsConfig{
			DefaultCount:   viper.GetInt("clips.default_count"),
			MinDurationSec: viper.GetInt("clips.min_duration_sec"),
			MaxDurationSec: viper.GetInt("clips.max_duration_sec"),
		},
		Retry: RetryConfig{
			MaxRetries:  viper.GetInt("retry.max_retries"),
			BaseDelayMS: viper.GetInt("retry.base_delay_ms"),
			MaxDelayMS:  viper.GetInt("retry.max_delay_ms"),
			JitterMaxMS: viper.GetInt("retry.jitter_max_ms"),
		},
		RateLimit: RateLimitConfig{
			CreatePerHour: viper.GetInt("ratelimit.create_per_hour"),
			StartPerHour:  viper.GetInt("ratelimit.start_per_hour"),
		},
	}

	return cfg, nil
}
