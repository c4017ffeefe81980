package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Sales        SalesConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Inventory.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%s must not be negative", EnvLowStock)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RETAILPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"RETAILPOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RETAILPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RETAILPOS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"RETAILPOS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RETAILPOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RETAILPOS_DB_DSN"`
	Driver string `envconfig:"RETAILPOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETAILPOS_DB_HOST"`
	LegacyPort     int    `envconfig:"RETAILPOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETAILPOS_DB_USER"`
	LegacyPassword string `envconfig:"RETAILPOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETAILPOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETAILPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RETAILPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETAILPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETAILPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETAILPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional: an empty URL and address disables redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"RETAILPOS_REDIS_URL"`
	Address      string        `envconfig:"RETAILPOS_REDIS_ADDR"`
	Password     string        `envconfig:"RETAILPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RETAILPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RETAILPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RETAILPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RETAILPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RETAILPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RETAILPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"RETAILPOS_AUTO_MIGRATE" default:"false"`
	SeedSampleData bool `envconfig:"RETAILPOS_SEED_SAMPLE_DATA" default:"false"`
}

type InventoryConfig struct {
	LowStockThreshold   int  `envconfig:"RETAILPOS_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
	AllowNegativeAdjust bool `envconfig:"RETAILPOS_INVENTORY_ALLOW_NEGATIVE_ADJUST" default:"false"`
}

type SalesConfig struct {
	DefaultPaymentMethod string        `envconfig:"RETAILPOS_SALES_DEFAULT_PAYMENT_METHOD" default:"cash"`
	IdempotencyTTL       time.Duration `envconfig:"RETAILPOS_SALES_IDEMPOTENCY_TTL" default:"24h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RETAILPOS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RETAILPOS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RETAILPOS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RETAILPOS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RETAILPOS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SalesTopic     string `envconfig:"RETAILPOS_PUBSUB_SALES_TOPIC" default:"retailpos-sales"`
	InventoryTopic string `envconfig:"RETAILPOS_PUBSUB_INVENTORY_TOPIC" default:"retailpos-inventory"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RETAILPOS_CRON_INTERVAL" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
