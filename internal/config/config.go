package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/parish-directory-go/internal/constants"
)

type Config struct {
	Store     StoreConfig
	Admin     AdminConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Directory DirectoryConfig
}

type StoreConfig struct {
	Repo       string
	Branch     string
	Token      string
	APIBaseURL string
	RawBaseURL string
	DataPath   string
	PhotosPath string
	Timeout    time.Duration
}

type AdminConfig struct {
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
}

type HTTPConfig struct {
	Addr           string
	RequestTimeout time.Duration
	SecureCookie   bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type LoggingConfig struct {
	Level string
	File  string
}

type DirectoryConfig struct {
	Name     string
	TimeZone string
}

// Load reads the environment (and .env when present). Only settings every command needs are
// validated here; serving additionally calls ValidateServe.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Store: StoreConfig{
			Repo:       strings.TrimSpace(getEnv("GITHUB_REPO", "")),
			Branch:     getEnv("GITHUB_BRANCH", constants.StoreConfig.Branch),
			Token:      strings.TrimSpace(getEnv("GITHUB_TOKEN", "")),
			APIBaseURL: strings.TrimRight(getEnv("GITHUB_API_URL", constants.StoreConfig.APIBaseURL), "/"),
			RawBaseURL: strings.TrimRight(getEnv("GITHUB_RAW_URL", constants.StoreConfig.RawBaseURL), "/"),
			DataPath:   getEnv("DATA_PATH", constants.StoreConfig.DataPath),
			PhotosPath: ensureTrailingSlash(getEnv("PHOTOS_PATH", constants.StoreConfig.PhotosPath)),
			Timeout:    getEnvSeconds("STORE_TIMEOUT_SECONDS", constants.StoreConfig.Timeout),
		},
		Admin: AdminConfig{
			Password:      getEnv("ADMIN_PASSWORD", ""),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", int(constants.SessionConfig.TTL/time.Minute))) * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr:           getEnv("HTTP_ADDR", constants.HTTPConfig.Addr),
			RequestTimeout: getEnvSeconds("REQUEST_TIMEOUT_SECONDS", constants.HTTPConfig.RequestTimeout),
			SecureCookie:   getEnvBool("COOKIE_SECURE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvSeconds("CACHE_TTL_SECONDS", constants.CacheTTL.PublicDocument),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Directory: DirectoryConfig{
			Name:     getEnv("DIRECTORY_NAME", "Parish Member Directory"),
			TimeZone: getEnv("TIMEZONE", "Africa/Lagos"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Store.Repo == "" {
		return fmt.Errorf("GITHUB_REPO is required")
	}
	if parts := strings.Split(c.Store.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("GITHUB_REPO must look like owner/name, got %q", c.Store.Repo)
	}
	if c.Store.DataPath == "" {
		return fmt.Errorf("DATA_PATH must not be empty")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// ValidateServe checks the settings only the web server needs. ADMIN_PASSWORD has no default.
func (c *Config) ValidateServe() error {
	if c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if c.Admin.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, int(defaultValue/time.Second))) * time.Second
}

func ensureTrailingSlash(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" || strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
