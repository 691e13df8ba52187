package config

import (
	"fmt"
	"maps"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Reservation  ReservationConfig
	Sweeper      SweeperConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

// Load reads the environment into a Config. Every validation problem is
// reported, not just the first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.resolveDSN(),
		c.Reservation.validate(),
		c.Sweeper.validate(),
		c.Outbox.validate(),
	)
}

type AppConfig struct {
	Env          string `envconfig:"SERIALSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"SERIALSTOCK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SERIALSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SERIALSTOCK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SERIALSTOCK_LOG_FORMAT" default:"json"`
	// MetricsAddr is where worker binaries expose /metrics. Empty disables it.
	MetricsAddr string `envconfig:"SERIALSTOCK_METRICS_ADDR" default:":9090"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"SERIALSTOCK_DB_DSN"`
	Driver string `envconfig:"SERIALSTOCK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SERIALSTOCK_DB_HOST"`
	Port     int    `envconfig:"SERIALSTOCK_DB_PORT" default:"5432"`
	User     string `envconfig:"SERIALSTOCK_DB_USER"`
	Password string `envconfig:"SERIALSTOCK_DB_PASSWORD"`
	Name     string `envconfig:"SERIALSTOCK_DB_NAME"`
	SSLMode  string `envconfig:"SERIALSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SERIALSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SERIALSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SERIALSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SERIALSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SERIALSTOCK_REDIS_URL"`
	Address      string        `envconfig:"SERIALSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"SERIALSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SERIALSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SERIALSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SERIALSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SERIALSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SERIALSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SERIALSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig configures optional bearer-token actor resolution. An empty secret
// disables token parsing.
type JWTConfig struct {
	Secret string `envconfig:"SERIALSTOCK_JWT_SECRET"`
	Issuer string `envconfig:"SERIALSTOCK_JWT_ISSUER" default:"serialstock"`
}

// ReservationConfig carries hold durations and allocation tuning.
type ReservationConfig struct {
	CartHold            time.Duration `envconfig:"SERIALSTOCK_HOLD_CART" default:"30m"`
	CheckoutHold        time.Duration `envconfig:"SERIALSTOCK_HOLD_CHECKOUT" default:"15m"`
	OnlineHold          time.Duration `envconfig:"SERIALSTOCK_HOLD_ONLINE" default:"15m"`
	POSHold             time.Duration `envconfig:"SERIALSTOCK_HOLD_POS" default:"15m"`
	DefaultHold         time.Duration `envconfig:"SERIALSTOCK_HOLD_DEFAULT" default:"15m"`
	MaxUnitsPerCustomer int           `envconfig:"SERIALSTOCK_MAX_UNITS_PER_CUSTOMER" default:"0"`
	MaxQuantity         int           `envconfig:"SERIALSTOCK_MAX_RESERVE_QUANTITY" default:"100"`
	RetryAttempts       int           `envconfig:"SERIALSTOCK_RESERVE_RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay      time.Duration `envconfig:"SERIALSTOCK_RESERVE_RETRY_BASE_DELAY" default:"20ms"`
}

func (r ReservationConfig) validate() error {
	var err error
	holds := map[string]time.Duration{
		EnvHoldCart:     r.CartHold,
		EnvHoldCheckout: r.CheckoutHold,
		EnvHoldOnline:   r.OnlineHold,
		EnvHoldPOS:      r.POSHold,
		EnvHoldDefault:  r.DefaultHold,
	}
	for _, name := range slices.Sorted(maps.Keys(holds)) {
		if holds[name] <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive", name))
		}
	}
	if r.MaxUnitsPerCustomer < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvMaxUnitsPerCustomer))
	}
	return err
}

// SweeperConfig configures the two background sweeps.
type SweeperConfig struct {
	ExpiryInterval     time.Duration `envconfig:"SERIALSTOCK_SWEEP_EXPIRY_INTERVAL" default:"1m"`
	PaymentInterval    time.Duration `envconfig:"SERIALSTOCK_SWEEP_PAYMENT_INTERVAL" default:"10m"`
	PaymentDeadline    time.Duration `envconfig:"SERIALSTOCK_PAYMENT_DEADLINE" default:"30m"`
	BatchSize          int           `envconfig:"SERIALSTOCK_SWEEP_BATCH_SIZE" default:"500"`
	ItemRetryAttempts  int           `envconfig:"SERIALSTOCK_SWEEP_ITEM_RETRY_ATTEMPTS" default:"3"`
	ItemRetryBaseDelay time.Duration `envconfig:"SERIALSTOCK_SWEEP_ITEM_RETRY_BASE_DELAY" default:"100ms"`
	LockTTL            time.Duration `envconfig:"SERIALSTOCK_SWEEP_LOCK_TTL" default:"5m"`
}

func (s SweeperConfig) validate() error {
	var err error
	if s.PaymentDeadline <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvPaymentDeadline))
	}
	if s.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvSweepBatchSize))
	}
	return err
}

// OutboxConfig tunes the relay that forwards outbox events to Redis streams.
type OutboxConfig struct {
	BatchSize    int           `envconfig:"SERIALSTOCK_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"SERIALSTOCK_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"SERIALSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	StreamMaxLen int64         `envconfig:"SERIALSTOCK_OUTBOX_STREAM_MAXLEN" default:"100000"`
}

func (o OutboxConfig) validate() error {
	if o.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SERIALSTOCK_AUTO_MIGRATE" default:"false"`
}

// resolveDSN builds a postgres URL from the discrete host settings when no
// DSN was given.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
