package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 會話儲存後端
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Session     SessionConfig   `mapstructure:"session"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Nutrition   NutritionConfig `mapstructure:"nutrition"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Catalog     CatalogConfig   `mapstructure:"catalog"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// SessionConfig 確認流程會話設定
type SessionConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSize         int           `mapstructure:"max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NutritionConfig 營養計算服務設定
type NutritionConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Path    string        `mapstructure:"path"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig 確認紀錄 SQLite 設定
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CatalogConfig 替換目錄；Path 為空時使用內建目錄
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定；.env 不存在時只使用環境變數與預設值
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用的無前綴環境變量
	v.BindEnv("server.port", "APP_SERVER_PORT", "PORT")
	v.BindEnv("session.backend", "APP_SESSION_BACKEND", "SESSION_BACKEND")
	v.BindEnv("redis.addr", "APP_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "APP_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("nutrition.enabled", "APP_NUTRITION_ENABLED", "NUTRITION_ENABLED")
	v.BindEnv("nutrition.base_url", "APP_NUTRITION_BASE_URL", "NUTRITION_API_URL")
	v.BindEnv("nutrition.api_key", "APP_NUTRITION_API_KEY", "NUTRITION_API_KEY")
	v.BindEnv("storage.path", "APP_STORAGE_PATH", "HISTORY_DB_PATH")
	v.BindEnv("catalog.path", "APP_CATALOG_PATH", "SWAP_CATALOG_PATH")
	v.BindEnv("rate_limit.enabled", "APP_RATE_LIMIT_ENABLED", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "APP_RATE_LIMIT_REQUESTS", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "APP_RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "APP_DEDUP_WINDOW", "DEDUP_WINDOW")
	v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "meal-engine")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 會話設定
	v.SetDefault("session.backend", SessionBackendMemory)
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.max_size", 10000)
	v.SetDefault("session.cleanup_interval", "1m")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 營養計算服務
	v.SetDefault("nutrition.enabled", false)
	v.SetDefault("nutrition.base_url", "")
	v.SetDefault("nutrition.path", "/api/v1/nutrition/calculate")
	v.SetDefault("nutrition.api_key", "")
	v.SetDefault("nutrition.timeout", "15s")

	// 確認紀錄
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.path", "data/confirmations.db")

	v.SetDefault("catalog.path", "")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Session.Backend {
	case SessionBackendMemory:
		if config.Session.MaxSize <= 0 {
			return fmt.Errorf("invalid session max size")
		}
		if config.Session.CleanupInterval <= 0 {
			return fmt.Errorf("invalid session cleanup interval")
		}
	case SessionBackendRedis:
		if strings.TrimSpace(config.Redis.Addr) == "" {
			return fmt.Errorf("redis addr is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", config.Session.Backend)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("invalid session ttl")
	}

	if config.Nutrition.Enabled {
		if config.Nutrition.BaseURL == "" {
			return fmt.Errorf("nutrition base url is required when nutrition is enabled")
		}
		if config.Nutrition.Timeout <= 0 {
			return fmt.Errorf("invalid nutrition timeout")
		}
	}

	if config.Storage.Enabled && config.Storage.Path == "" {
		return fmt.Errorf("storage path is required when storage is enabled")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	return nil
}
