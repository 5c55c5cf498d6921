package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Gemini API
	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float64
	ModelTimeout      time.Duration

	// Redis (REDIS_HOST 가 비어 있으면 메모리 guard 사용)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Server
	Port string

	// Session / Guard
	SessionTTL     time.Duration
	SessionIdleTTL time.Duration
	GuardTTL       time.Duration

	// Media
	MediaMaxBytes int64

	// Logging
	LogLevel    string
	LogEncoding string

	// EnvFileLoaded - .env 파일 로드 여부
	EnvFileLoaded bool
}

var defaults = map[string]any{
	"GEMINI_MODEL":       "gemini-2.5-flash",
	"GEMINI_TEMPERATURE": 0.7,
	"MODEL_TIMEOUT":      "90s",
	"REDIS_HOST":         "",
	"REDIS_PORT":         "6379",
	"REDIS_USERNAME":     "",
	"REDIS_PASSWORD":     "",
	"REDIS_USE_TLS":      true,
	"PORT":               "8080",
	"SESSION_TTL":        "24h",
	"SESSION_IDLE_TTL":   "2h",
	"GUARD_TTL":          "5m",
	"MEDIA_MAX_BYTES":    int64(20 << 20),
	"LOG_LEVEL":          "info",
	"LOG_ENCODING":       "json",
}

// LoadConfig - .env + 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	envLoaded := godotenv.Load() == nil

	cfg, err := FromViper(newViper())
	if err != nil {
		return nil, err
	}
	cfg.EnvFileLoaded = envLoaded
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper - viper 값으로 Config 구성 + 검증
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:      strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:       v.GetString("GEMINI_MODEL"),
		GeminiTemperature: v.GetFloat64("GEMINI_TEMPERATURE"),
		ModelTimeout:      v.GetDuration("MODEL_TIMEOUT"),

		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisUsername: v.GetString("REDIS_USERNAME"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisUseTLS:   v.GetBool("REDIS_USE_TLS"),

		Port: v.GetString("PORT"),

		SessionTTL:     v.GetDuration("SESSION_TTL"),
		SessionIdleTTL: v.GetDuration("SESSION_IDLE_TTL"),
		GuardTTL:       v.GetDuration("GUARD_TTL"),

		MediaMaxBytes: v.GetInt64("MEDIA_MAX_BYTES"),

		LogLevel:    v.GetString("LOG_LEVEL"),
		LogEncoding: v.GetString("LOG_ENCODING"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL must not be empty")
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive, got %s", c.ModelTimeout)
	}
	if c.GuardTTL <= 0 {
		return fmt.Errorf("GUARD_TTL must be positive, got %s", c.GuardTTL)
	}
	return nil
}

// RedisEnabled - Redis 사용 여부
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// Summary - 로그용 설정 요약 (키 제외)
func (c *Config) Summary() []zap.Field {
	return []zap.Field{
		zap.String("gemini_model", c.GeminiModel),
		zap.Duration("model_timeout", c.ModelTimeout),
		zap.Bool("redis", c.RedisEnabled()),
		zap.String("port", c.Port),
		zap.Duration("session_ttl", c.SessionTTL),
		zap.Duration("guard_ttl", c.GuardTTL),
	}
}
