package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string
	LogLevel    string
	Port        string
	DatabaseURL string
	JWTSecret   string
	FrontendURL string
	AdminURL    string

	AdminEmail    string
	AdminPassword string
	SeedCatalog   bool

	Storage   StorageConfig
	Razorpay  RazorpayConfig
	Checkout  CheckoutConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig

	RedisURL string
	NATSURL  string
}

type StorageConfig struct {
	Provider string // firebase, s3 or local

	FirebaseBucket    string
	GoogleCredentials string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PublicURL string

	LocalPath string
	LocalURL  string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

type CheckoutConfig struct {
	Currency       string
	QuantityPolicy string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func LoadEnv() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return nil
}

// Load reads the process environment into a Config, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:           strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		FrontendURL:   v.GetString("FRONTEND_BASE_URL"),
		AdminURL:      v.GetString("ADMIN_URL"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		SeedCatalog:   v.GetBool("SEED_CATALOG"),
		Storage: StorageConfig{
			Provider:          strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			FirebaseBucket:    v.GetString("FIREBASE_STORAGE_BUCKET"),
			GoogleCredentials: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			S3Bucket:          v.GetString("S3_BUCKET"),
			S3Region:          v.GetString("S3_REGION"),
			S3Endpoint:        v.GetString("S3_ENDPOINT"),
			S3PublicURL:       v.GetString("S3_PUBLIC_URL"),
			LocalPath:         v.GetString("LOCAL_STORAGE_PATH"),
			LocalURL:          v.GetString("LOCAL_STORAGE_URL"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		},
		Checkout: CheckoutConfig{
			Currency:       strings.ToUpper(v.GetString("CHECKOUT_CURRENCY")),
			QuantityPolicy: strings.ToLower(v.GetString("CHECKOUT_QUANTITY_POLICY")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		NATSURL:  v.GetString("NATS_URL"),
	}

	switch cfg.Storage.Provider {
	case "firebase", "s3", "local":
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.Storage.Provider)
	}
	switch cfg.Checkout.QuantityPolicy {
	case "collapse", "requested":
	default:
		return nil, fmt.Errorf("unknown CHECKOUT_QUANTITY_POLICY %q", cfg.Checkout.QuantityPolicy)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "./uploads")
	v.SetDefault("LOCAL_STORAGE_URL", "/uploads")
	v.SetDefault("CHECKOUT_CURRENCY", "INR")
	v.SetDefault("CHECKOUT_QUANTITY_POLICY", "collapse")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("SEED_CATALOG", false)
}

// ValidateEnv checks that critical environment variables are set.
func ValidateEnv() error {
	var missing []string
	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}
	return nil
}

// Warnings lists optional integrations that are not configured.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
		warnings = append(warnings, "RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set - checkout will fail")
	}
	switch c.Storage.Provider {
	case "firebase":
		if c.Storage.FirebaseBucket == "" {
			warnings = append(warnings, "FIREBASE_STORAGE_BUCKET not set - image uploads will fail")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			warnings = append(warnings, "S3_BUCKET not set - image uploads will fail")
		}
	}
	if os.Getenv("FRONTEND_BASE_URL") == "" {
		warnings = append(warnings, "FRONTEND_BASE_URL not set - CORS allows localhost only")
	}
	if !c.SMTP.Enabled() {
		warnings = append(warnings, "SMTP_HOST/SMTP_FROM not set - order e-mails disabled")
	}
	return warnings
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
