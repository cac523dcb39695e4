package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		SiteURL            string   `mapstructure:"site_url"`
		LogLevel           string   `mapstructure:"log_level"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`

		// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is believed
		TrustedProxies []string `mapstructure:"trusted_proxies"`
	} `mapstructure:"server"`

	Database DatabaseConfig `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Payment struct {
		Provider string `mapstructure:"provider"` // paystack or razorpay

		Paystack struct {
			SecretKey   string `mapstructure:"secret_key"`
			BaseURL     string `mapstructure:"base_url"`
			CallbackURL string `mapstructure:"callback_url"`
		} `mapstructure:"paystack"`

		Razorpay struct {
			KeyID       string `mapstructure:"key_id"`
			KeySecret   string `mapstructure:"key_secret"`
			CallbackURL string `mapstructure:"callback_url"`
		} `mapstructure:"razorpay"`
	} `mapstructure:"payment"`

	Storage StorageConfig `mapstructure:"storage"`

	Mail MailConfig `mapstructure:"mail"`

	Receipt struct {
		SchoolLogoPath string        `mapstructure:"school_logo_path"`
		FontPath       string        `mapstructure:"font_path"`
		ImageTimeout   time.Duration `mapstructure:"image_timeout"`
	} `mapstructure:"receipt"`

	RateLimit struct {
		VerifyRPS   float64 `mapstructure:"verify_rps"`
		VerifyBurst int     `mapstructure:"verify_burst"`
	} `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnectionString returns the pgx DSN
func (d DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

// StorageConfig points at an S3-compatible bucket (Cloudflare R2, Supabase storage, AWS)
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
}

type MailConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromName  string `mapstructure:"from_name"`
	FromEmail string `mapstructure:"from_email"`
	QueueSize int    `mapstructure:"queue_size"`
}

// Load reads .env, configs/config.yaml (both optional) and the environment
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET not found in environment or config")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.site_url", "http://localhost:8000")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "student_pay")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "studentpay-backend")
	v.SetDefault("payment.provider", "paystack")
	v.SetDefault("payment.paystack.base_url", "https://api.paystack.co")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "receipts")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from_name", "Student Pay")
	v.SetDefault("mail.queue_size", 100)
	v.SetDefault("receipt.school_logo_path", "assets/school_logo.png")
	v.SetDefault("receipt.image_timeout", 5*time.Second)
	v.SetDefault("rate_limit.verify_rps", 5)
	v.SetDefault("rate_limit.verify_burst", 20)
}

// applyEnvOverrides maps the flat environment names used in deployment onto the config
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.User, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.Name, "DB_NAME")

	overrideString(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")

	overrideString(&cfg.JWT.Secret, "JWT_SECRET")
	overrideString(&cfg.Server.SiteURL, "SITE_URL")
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}

	overrideString(&cfg.Payment.Provider, "PAYMENT_PROVIDER")
	overrideString(&cfg.Payment.Paystack.SecretKey, "PAYSTACK_SECRET_KEY")
	overrideString(&cfg.Payment.Paystack.CallbackURL, "PAYSTACK_CALLBACK_URL")
	overrideString(&cfg.Payment.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	overrideString(&cfg.Payment.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")

	overrideString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	overrideString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	overrideString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	overrideString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	overrideString(&cfg.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")

	overrideString(&cfg.Mail.Host, "SMTP_HOST")
	overrideInt(&cfg.Mail.Port, "SMTP_PORT")
	overrideString(&cfg.Mail.Username, "SMTP_USERNAME")
	overrideString(&cfg.Mail.Password, "SMTP_PASSWORD")
	overrideString(&cfg.Mail.FromEmail, "DEFAULT_FROM_EMAIL")
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
