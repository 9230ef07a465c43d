package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MetricsEnabled bool
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
	AccessTTL    time.Duration
	Issuer       string
	TrialDays    int
}

type BillingConfig struct {
	TaxRate          float64
	PaymentTermsDays int
	InvoicePrefix    string
	PaymentPrefix    string
}

type StorageConfig struct {
	Driver         string
	LocalDir       string
	PublicURL      string
	MaxUploadBytes int64
	S3             S3Config
}

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type LogConfig struct {
	Level string
	File  string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Billing     BillingConfig
	Storage     StorageConfig
	Log         LogConfig
}

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("JWT_ISSUER", "haulops")
	v.SetDefault("TRIAL_DAYS", 14)
	v.SetDefault("BILLING_TAX_RATE", 20.0)
	v.SetDefault("BILLING_PAYMENT_TERMS_DAYS", 30)
	v.SetDefault("BILLING_INVOICE_PREFIX", "INV")
	v.SetDefault("BILLING_PAYMENT_PREFIX", "PAY")
	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "/files")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("S3_REGION", "us-east-1")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
			MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			AccessTTL:    v.GetDuration("JWT_ACCESS_TTL"),
			Issuer:       v.GetString("JWT_ISSUER"),
			TrialDays:    v.GetInt("TRIAL_DAYS"),
		},
		Billing: BillingConfig{
			TaxRate:          v.GetFloat64("BILLING_TAX_RATE"),
			PaymentTermsDays: v.GetInt("BILLING_PAYMENT_TERMS_DAYS"),
			InvoicePrefix:    strings.TrimSpace(v.GetString("BILLING_INVOICE_PREFIX")),
			PaymentPrefix:    strings.TrimSpace(v.GetString("BILLING_PAYMENT_PREFIX")),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL:      strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
			MaxUploadBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			S3: S3Config{
				Bucket:       v.GetString("S3_BUCKET"),
				Region:       v.GetString("S3_REGION"),
				Endpoint:     v.GetString("S3_ENDPOINT"),
				AccessKey:    v.GetString("S3_ACCESS_KEY"),
				SecretKey:    v.GetString("S3_SECRET_KEY"),
				UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
			},
		},
		Log: LogConfig{
			Level: strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
			File:  strings.TrimSpace(v.GetString("LOG_FILE")),
		},
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
		if cfg.IsDevelopment() {
			cfg.Log.Level = "debug"
		}
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "local"
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Auth.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}
	if cfg.Billing.TaxRate < 0 {
		return fmt.Errorf("BILLING_TAX_RATE must not be negative")
	}
	if cfg.Billing.InvoicePrefix == "" || cfg.Billing.PaymentPrefix == "" {
		return fmt.Errorf("billing number prefixes must not be empty")
	}
	switch cfg.Storage.Driver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
