package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Dataset   DatasetConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Assistant AssistantConfig
	Export    ExportConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatasetConfig struct {
	CSVFile  string
	CacheDir string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type AssistantConfig struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	HistorySize int
}

type ExportConfig struct {
	// TableRows caps the recent-transactions table; exports are never truncated.
	TableRows int
}

// Load reads the configuration from the environment. Values in a .env file in
// the working directory are applied first without overriding the real environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Dataset: DatasetConfig{
			CSVFile:  getEnvString("CSV_FILE", "customer_shopping_data.csv"),
			CacheDir: getEnvString("DATASET_CACHE_DIR", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Assistant: AssistantConfig{
			Mode:        getEnvString("ASSISTANT_MODE", "rules"),
			APIKey:      getEnvString("OPENAI_API_KEY", ""),
			BaseURL:     getEnvString("ASSISTANT_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("ASSISTANT_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvDuration("ASSISTANT_TIMEOUT", 30*time.Second),
			Temperature: getEnvFloat("ASSISTANT_TEMPERATURE", 0.3),
			MaxTokens:   getEnvInt("ASSISTANT_MAX_TOKENS", 1000),
			HistorySize: getEnvInt("ASSISTANT_HISTORY_SIZE", 200),
		},
		Export: ExportConfig{
			TableRows: getEnvInt("EXPORT_MAX_ROWS", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")
	check(c.Dataset.CSVFile != "", "CSV file path cannot be empty")
	check(slices.Contains(logLevels, c.Logger.Level), "invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(logLevels, ", "))
	check(slices.Contains(logFormats, c.Logger.Format), "invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(logFormats, ", "))
	check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
	check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")

	// The key may be absent in llm mode; the assistant reports it per question.
	check(slices.Contains(assistantModes, c.Assistant.Mode), "invalid assistant mode %q, must be one of: %s", c.Assistant.Mode, strings.Join(assistantModes, ", "))
	check(c.Assistant.Timeout > 0, "assistant timeout must be positive")
	check(c.Assistant.Temperature >= 0 && c.Assistant.Temperature <= 2, "assistant temperature must be between 0 and 2, got %g", c.Assistant.Temperature)
	check(c.Assistant.MaxTokens > 0, "assistant max tokens must be positive")
	check(c.Assistant.HistorySize > 0, "assistant history size must be positive")
	check(c.Export.TableRows > 0, "export max rows must be positive")

	return errors.Join(errs...)
}

var (
	logLevels      = []string{"debug", "info", "warn", "error"}
	logFormats     = []string{"json", "text"}
	assistantModes = []string{"rules", "llm"}
)

// env returns the parsed value of key, or def when it is unset or unparsable.
func env[T any](key string, def T, parse func(string) (T, error)) T {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	parsed, err := parse(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvString(key, def string) string {
	return env(key, def, func(v string) (string, error) { return v, nil })
}

func getEnvInt(key string, def int) int {
	return env(key, def, strconv.Atoi)
}

func getEnvFloat(key string, def float64) float64 {
	return env(key, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getEnvBool(key string, def bool) bool {
	return env(key, def, strconv.ParseBool)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return env(key, def, time.ParseDuration)
}

// getEnvStringSlice splits a comma separated list and drops blank entries.
func getEnvStringSlice(key string, def []string) []string {
	return env(key, def, func(v string) ([]string, error) {
		var out []string
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
