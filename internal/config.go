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

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Listing       ListingConfig       `mapstructure:"listing"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Reports       ReportsConfig       `mapstructure:"reports"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// Payment modes. The mode is never inferred from missing credentials.
const (
	PaymentModeCheckout  = "checkout"
	PaymentModeSimulated = "simulated"
	PaymentModeCatalog   = "catalog"
)

type PaymentConfig struct {
	Mode                     string          `mapstructure:"mode" validate:"required,oneof=checkout simulated catalog"`
	AllowCatalogInProduction bool            `mapstructure:"allow_catalog_in_production"`
	GatewayURL               string          `mapstructure:"gateway_url"`
	APIKey                   string          `mapstructure:"api_key"`
	WebhookSecret            string          `mapstructure:"webhook_secret"`
	SignatureTolerance       time.Duration   `mapstructure:"signature_tolerance"`
	ListingPriceAmount       int64           `mapstructure:"listing_price_amount"`
	Currency                 string          `mapstructure:"currency"`
	SuccessURL               string          `mapstructure:"success_url"`
	CancelURL                string          `mapstructure:"cancel_url"`
	RequestTimeout           time.Duration   `mapstructure:"request_timeout"`
	ReconcileTimeout         time.Duration   `mapstructure:"reconcile_timeout"`
	Simulator                SimulatorConfig `mapstructure:"simulator"`
}

// SimulatorConfig drives the local checkout simulator used in "simulated" mode.
type SimulatorConfig struct {
	WebhookURL         string        `mapstructure:"webhook_url"`
	CompletionDelay    time.Duration `mapstructure:"completion_delay"`
	DuplicateDelivery  bool          `mapstructure:"duplicate_delivery"`
	MaxWorkers         int           `mapstructure:"max_workers"`
	JobQueueSize       int           `mapstructure:"job_queue_size"`
	WorkerPoolSize     int           `mapstructure:"worker_pool_size"`
	WebhookSendTimeout time.Duration `mapstructure:"webhook_send_timeout"`
}

type ListingConfig struct {
	SweepBatchSize  int    `mapstructure:"sweep_batch_size"`
	MaxPhotos       int    `mapstructure:"max_photos"`
	MaxPhotoBytes   int64  `mapstructure:"max_photo_bytes"`
	WizardStartPath string `mapstructure:"wizard_start_path"`
}

// Storage drivers.
const (
	StorageDriverS3     = "s3"
	StorageDriverMemory = "memory"
)

type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type SchedulerConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SweepCron     string `mapstructure:"sweep_cron"`
	RepairCron    string `mapstructure:"repair_cron"`
	Concurrency   int    `mapstructure:"concurrency"`
}

type ReportsConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration for container deployments where no
// config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "./api/openapi.yml"),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Payment: PaymentConfig{
			Mode:                     getEnv("PAYMENT_MODE", ""),
			AllowCatalogInProduction: getEnv("PAYMENT_ALLOW_CATALOG_IN_PRODUCTION", "false") == "true",
			GatewayURL:               getEnv("PAYMENT_GATEWAY_URL", ""),
			APIKey:                   getEnv("PAYMENT_API_KEY", ""),
			WebhookSecret:            getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			SignatureTolerance:       getEnvAsDuration("PAYMENT_SIGNATURE_TOLERANCE", 5*time.Minute),
			ListingPriceAmount:       int64(getEnvAsInt("LISTING_PRICE_AMOUNT", 4900)),
			Currency:                 getEnv("PAYMENT_CURRENCY", "eur"),
			SuccessURL:               getEnv("PAYMENT_SUCCESS_URL", "http://localhost:8080/api/v1/payment/return"),
			CancelURL:                getEnv("PAYMENT_CANCEL_URL", "http://localhost:8080/api/v1/wizard"),
			RequestTimeout:           getEnvAsDuration("PAYMENT_REQUEST_TIMEOUT", 10*time.Second),
			ReconcileTimeout:         getEnvAsDuration("PAYMENT_RECONCILE_TIMEOUT", 10*time.Second),
			Simulator: SimulatorConfig{
				WebhookURL:         getEnv("PAYMENT_SIMULATOR_WEBHOOK_URL", "http://localhost:8080/api/v1/payment/webhook"),
				CompletionDelay:    getEnvAsDuration("PAYMENT_SIMULATOR_COMPLETION_DELAY", 2*time.Second),
				DuplicateDelivery:  getEnv("PAYMENT_SIMULATOR_DUPLICATE_DELIVERY", "false") == "true",
				MaxWorkers:         getEnvAsInt("PAYMENT_SIMULATOR_MAX_WORKERS", 4),
				JobQueueSize:       getEnvAsInt("PAYMENT_SIMULATOR_JOB_QUEUE_SIZE", 100),
				WorkerPoolSize:     getEnvAsInt("PAYMENT_SIMULATOR_WORKER_POOL_SIZE", 4),
				WebhookSendTimeout: getEnvAsDuration("PAYMENT_SIMULATOR_WEBHOOK_TIMEOUT", 10*time.Second),
			},
		},
		Listing: ListingConfig{
			SweepBatchSize:  getEnvAsInt("LISTING_SWEEP_BATCH_SIZE", 100),
			MaxPhotos:       getEnvAsInt("MAX_PHOTOS_PER_LISTING", 1),
			MaxPhotoBytes:   int64(getEnvAsInt("MAX_PHOTO_BYTES", 10<<20)),
			WizardStartPath: getEnv("WIZARD_START_PATH", "/api/v1/wizard/step1"),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", StorageDriverS3),
			Bucket:          getEnv("STORAGE_BUCKET", "listing-photos"),
			Region:          getEnv("STORAGE_REGION", "eu-west-3"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			UsePathStyle:    getEnv("STORAGE_USE_PATH_STYLE", "false") == "true",
		},
		Scheduler: SchedulerConfig{
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			SweepCron:     getEnv("SWEEP_CRON", "@every 15m"),
			RepairCron:    getEnv("REPAIR_CRON", "@every 5m"),
			Concurrency:   getEnvAsInt("SCHEDULER_CONCURRENCY", 2),
		},
		Reports: ReportsConfig{
			RatePerMinute: getEnvAsInt("REPORTS_RATE_PER_MINUTE", 5),
			Burst:         getEnvAsInt("REPORTS_BURST", 3),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}

	return cfg
}

// ----------------- HELPERS -----------------

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

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Listing.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("listing config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
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

// DatabaseMemorySource keeps every record in process memory; for local runs only.
const DatabaseMemorySource = "memory://"

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required (a postgres DSN or memory://)")
	}
	if c.IsMemory() {
		return nil
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *DatabaseConfig) IsMemory() bool {
	return c.Source == DatabaseMemorySource
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverMemory:
		return nil
	case StorageDriverS3:
		if c.Bucket == "" {
			return errors.New("bucket is required for the s3 driver")
		}
		if c.Region == "" {
			return errors.New("region is required for the s3 driver")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
}

func (c *PaymentConfig) Validate() error {
	switch c.Mode {
	case PaymentModeCheckout:
		if c.GatewayURL == "" {
			return errors.New("gateway_url is required in checkout mode")
		}
		if c.APIKey == "" {
			return errors.New("api_key is required in checkout mode")
		}
	case PaymentModeSimulated:
	case PaymentModeCatalog:
		if os.Getenv("APP_ENV") == "production" && !c.AllowCatalogInProduction {
			return errors.New("catalog mode publishes without payment; set allow_catalog_in_production to use it in production")
		}
		return nil
	case "":
		return errors.New("mode is required (checkout, simulated or catalog)")
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	if len(c.WebhookSecret) < 16 {
		return errors.New("webhook_secret must be at least 16 characters")
	}
	if c.ListingPriceAmount <= 0 {
		return errors.New("listing_price_amount must be positive")
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// RequiresPayment reports whether submitting a listing goes through checkout.
func (c *PaymentConfig) RequiresPayment() bool {
	return c.Mode != PaymentModeCatalog
}

func (c *ListingConfig) Validate() error {
	if c.MaxPhotos < 0 {
		return errors.New("max_photos cannot be negative")
	}
	if c.SweepBatchSize < 0 {
		return errors.New("sweep_batch_size cannot be negative")
	}
	return nil
}
