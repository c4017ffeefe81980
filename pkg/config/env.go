package config

const (
	EnvPrefix = "RETAILPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "RETAILPOS_APP_ENV"
	EnvPort         = "RETAILPOS_APP_PORT"
	EnvLogLevel     = "RETAILPOS_LOG_LEVEL"
	EnvServiceKind  = "RETAILPOS_SERVICE_KIND"
	EnvDBDSN        = "RETAILPOS_DB_DSN"
	EnvDBDriver     = "RETAILPOS_DB_DRIVER"
	EnvDBHost       = "RETAILPOS_DB_HOST"
	EnvDBPort       = "RETAILPOS_DB_PORT"
	EnvDBUser       = "RETAILPOS_DB_USER"
	EnvDBPassword   = "RETAILPOS_DB_PASSWORD"
	EnvDBName       = "RETAILPOS_DB_NAME"
	EnvDBSSLMode    = "RETAILPOS_DB_SSLMODE"
	EnvRedisURL     = "RETAILPOS_REDIS_URL"
	EnvAutoMigrate  = "RETAILPOS_AUTO_MIGRATE"
	EnvSeedSample   = "RETAILPOS_SEED_SAMPLE_DATA"
	EnvLowStock     = "RETAILPOS_INVENTORY_LOW_STOCK_THRESHOLD"
	EnvAllowNegAdj  = "RETAILPOS_INVENTORY_ALLOW_NEGATIVE_ADJUST"
	EnvDefaultPay   = "RETAILPOS_SALES_DEFAULT_PAYMENT_METHOD"
	EnvGCPProjectID = "RETAILPOS_GCP_PROJECT_ID"
	EnvSalesTopic   = "RETAILPOS_PUBSUB_SALES_TOPIC"
	EnvInvTopic     = "RETAILPOS_PUBSUB_INVENTORY_TOPIC"
	EnvCronInterval = "RETAILPOS_CRON_INTERVAL"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
