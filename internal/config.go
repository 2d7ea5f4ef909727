package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// FallbackEncryptionKey is used when no encryption key is configured. It is
// compiled into the binary and must never be relied on outside local runs.
const FallbackEncryptionKey = "temporary-key-replace-in-production"

const (
	GiB = int64(1024 * 1024 * 1024)

	DefaultMaxFileSize  = 10 * GiB
	DefaultMaxTotalSize = 10 * GiB

	// 6 years minimum for HIPAA audit records.
	DefaultAuditRetention = 6 * 365 * 24 * time.Hour
)

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"http_server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security" validate:"required"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret" validate:"required"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret" validate:"required"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	EncryptionKey        string        `mapstructure:"encryption_key"`
}

type UploadConfig struct {
	MaxFileSize  int64         `mapstructure:"max_file_size"`
	MaxTotalSize int64         `mapstructure:"max_total_size"`
	ProgressStep int           `mapstructure:"progress_step"`
	StepInterval time.Duration `mapstructure:"step_interval"`
	StagingDir   string        `mapstructure:"staging_dir"`
}

type AuditConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Retention time.Duration `mapstructure:"retention"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Source == "" {
		c.Database.Source = "portal.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.RefreshTokenDuration == 0 {
		c.Security.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = DefaultMaxFileSize
	}
	if c.Upload.MaxTotalSize == 0 {
		c.Upload.MaxTotalSize = DefaultMaxTotalSize
	}
	if c.Upload.ProgressStep == 0 {
		c.Upload.ProgressStep = 10
	}
	if c.Upload.StepInterval == 0 {
		c.Upload.StepInterval = 100 * time.Millisecond
	}
	if c.Upload.StagingDir == "" {
		c.Upload.StagingDir = os.TempDir()
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = 256
	}
	if c.Audit.Retention == 0 {
		c.Audit.Retention = DefaultAuditRetention
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// ----------------- HELPERS -----------------

func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:        getEnv("BASE_URL", ""),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
			OpenAPIPath:    getEnv("OPENAPI_PATH", "./api/openapi.yml"),
			ReadTimeout:    getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("HTTP_WRITE_TIMEOUT", 0),
			IdleTimeout:    getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Source:          getEnv("DB_SOURCE", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
			EncryptionKey:        getEnv("PORTAL_ENCRYPTION_KEY", ""),
		},
		Upload: UploadConfig{
			MaxFileSize:  int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE", 0)),
			MaxTotalSize: int64(getEnvAsInt("UPLOAD_MAX_TOTAL_SIZE", 0)),
			StepInterval: getEnvAsDuration("UPLOAD_STEP_INTERVAL", 0),
			StagingDir:   getEnv("UPLOAD_STAGING_DIR", ""),
		},
		Audit: AuditConfig{
			QueueSize: getEnvAsInt("AUDIT_QUEUE_SIZE", 0),
			Retention: getEnvAsDuration("AUDIT_RETENTION", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction reports whether the config targets a real deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(c.IsProduction()); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Upload.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("upload config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Driver != "postgres" && c.Driver != "sqlite" {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate(production bool) error {
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("jwt secrets are required")
	}
	if production && (c.EncryptionKey == "" || c.EncryptionKey == FallbackEncryptionKey) {
		return errors.New("encryption_key must be set to a non-default value in production")
	}
	return nil
}

// ResolvedEncryptionKey returns the configured key, or the compiled-in fallback.
func (c *SecurityConfig) ResolvedEncryptionKey() (key string, fallback bool) {
	if c.EncryptionKey == "" {
		return FallbackEncryptionKey, true
	}
	return c.EncryptionKey, c.EncryptionKey == FallbackEncryptionKey
}

func (c *UploadConfig) Validate() error {
	if c.MaxFileSize <= 0 || c.MaxTotalSize <= 0 {
		return errors.New("size ceilings must be positive")
	}
	if c.ProgressStep <= 0 || c.ProgressStep > 100 || 100%c.ProgressStep != 0 {
		return errors.New("progress_step must divide 100")
	}
	if c.StepInterval < 0 {
		return errors.New("step_interval cannot be negative")
	}
	return nil
}
