package config

import (
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// LogConfig controls the optional rotating log file
type LogConfig struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type RateLimitConfig struct {
	RequestsPerWindow int
	WindowSeconds     int
}

// SessionConfig configures the anonymous shopper cookie
type SessionConfig struct {
	CookieName string
	Secure     bool
	MaxAgeDays int
}

// StoreConfig holds pricing and listing rules
type StoreConfig struct {
	TaxRate               decimal.Decimal
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	OrderNumberPrefix     string
	LowStockThreshold     int
	CatalogPageSize       int
	AdminPageSize         int
	OrderPageSize         int
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PREFIX", "storefront")
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("LOG_FILENAME", "storefront.log")
	viper.SetDefault("LOG_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 7)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 30)
	viper.SetDefault("LOG_COMPRESS", true)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("SESSION_COOKIE_NAME", "storefront_session")
	viper.SetDefault("SESSION_COOKIE_SECURE", false)
	viper.SetDefault("SESSION_MAX_AGE_DAYS", 30)
	viper.SetDefault("STORE_TAX_RATE", "0.08")
	viper.SetDefault("STORE_SHIPPING_FLAT_FEE", "9.99")
	viper.SetDefault("STORE_FREE_SHIPPING_THRESHOLD", "50.00")
	viper.SetDefault("STORE_ORDER_NUMBER_PREFIX", "TRZ")
	viper.SetDefault("STORE_LOW_STOCK_THRESHOLD", 10)
	viper.SetDefault("STORE_CATALOG_PAGE_SIZE", 12)
	viper.SetDefault("STORE_ADMIN_PAGE_SIZE", 20)
	viper.SetDefault("STORE_ORDER_PAGE_SIZE", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			Prefix:   viper.GetString("REDIS_PREFIX"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Log: LogConfig{
			Dir:        viper.GetString("LOG_DIR"),
			Filename:   viper.GetString("LOG_FILENAME"),
			MaxSizeMB:  viper.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: viper.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: viper.GetInt("LOG_MAX_AGE_DAYS"),
			Compress:   viper.GetBool("LOG_COMPRESS"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:     viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Session: SessionConfig{
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
			Secure:     viper.GetBool("SESSION_COOKIE_SECURE"),
			MaxAgeDays: viper.GetInt("SESSION_MAX_AGE_DAYS"),
		},
		Store: StoreConfig{
			TaxRate:               decimalOrDefault("STORE_TAX_RATE", "0.08"),
			ShippingFlatFee:       decimalOrDefault("STORE_SHIPPING_FLAT_FEE", "9.99"),
			FreeShippingThreshold: decimalOrDefault("STORE_FREE_SHIPPING_THRESHOLD", "50.00"),
			OrderNumberPrefix:     viper.GetString("STORE_ORDER_NUMBER_PREFIX"),
			LowStockThreshold:     viper.GetInt("STORE_LOW_STOCK_THRESHOLD"),
			CatalogPageSize:       viper.GetInt("STORE_CATALOG_PAGE_SIZE"),
			AdminPageSize:         viper.GetInt("STORE_ADMIN_PAGE_SIZE"),
			OrderPageSize:         viper.GetInt("STORE_ORDER_PAGE_SIZE"),
		},
	}
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func decimalOrDefault(key, fallback string) decimal.Decimal {
	raw := strings.TrimSpace(viper.GetString(key))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("Warning: invalid decimal for %s (%q), using %s", key, raw, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
