package config

// EnvPrefix is handed to envconfig; each field tag names its full variable.
const EnvPrefix = "SERIALSTOCK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SERIALSTOCK_APP_ENV"
	EnvPort     = "SERIALSTOCK_APP_PORT"
	EnvDBDSN    = "SERIALSTOCK_DB_DSN"
	EnvDBHost   = "SERIALSTOCK_DB_HOST"
	EnvDBUser   = "SERIALSTOCK_DB_USER"
	EnvDBName   = "SERIALSTOCK_DB_NAME"
	EnvRedisURL = "SERIALSTOCK_REDIS_URL"

	EnvHoldCart            = "SERIALSTOCK_HOLD_CART"
	EnvHoldCheckout        = "SERIALSTOCK_HOLD_CHECKOUT"
	EnvHoldOnline          = "SERIALSTOCK_HOLD_ONLINE"
	EnvHoldPOS             = "SERIALSTOCK_HOLD_POS"
	EnvHoldDefault         = "SERIALSTOCK_HOLD_DEFAULT"
	EnvMaxUnitsPerCustomer = "SERIALSTOCK_MAX_UNITS_PER_CUSTOMER"
	EnvPaymentDeadline     = "SERIALSTOCK_PAYMENT_DEADLINE"
	EnvSweepBatchSize      = "SERIALSTOCK_SWEEP_BATCH_SIZE"
	EnvOutboxMaxAttempts   = "SERIALSTOCK_OUTBOX_MAX_ATTEMPTS"
)
