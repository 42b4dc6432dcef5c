package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "givefi"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GIVEFI_DB_DSN"
	EnvDBHost = "GIVEFI_DB_HOST"
	EnvDBUser = "GIVEFI_DB_USER"
	EnvDBName = "GIVEFI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Ledger       LedgerConfig
	Allocation   AllocationConfig
	Trace        TraceConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIVEFI_APP_ENV" required:"true"`
	Port         string `envconfig:"GIVEFI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIVEFI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIVEFI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIVEFI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIVEFI_DB_DSN"`
	Driver string `envconfig:"GIVEFI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIVEFI_DB_HOST"`
	LegacyPort     int    `envconfig:"GIVEFI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIVEFI_DB_USER"`
	LegacyPassword string `envconfig:"GIVEFI_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIVEFI_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIVEFI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIVEFI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIVEFI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIVEFI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIVEFI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIVEFI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIVEFI_REDIS_ADDR"`
	Password     string        `envconfig:"GIVEFI_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIVEFI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIVEFI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIVEFI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIVEFI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIVEFI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIVEFI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LedgerConfig points the ledger client at an XRPL JSON-RPC endpoint.
type LedgerConfig struct {
	RPCURL       string        `envconfig:"GIVEFI_LEDGER_RPC_URL" default:"https://s.altnet.rippletest.net:51234"`
	HTTPTimeout  time.Duration `envconfig:"GIVEFI_LEDGER_HTTP_TIMEOUT" default:"15s"`
	HistoryLimit int           `envconfig:"GIVEFI_LEDGER_HISTORY_LIMIT" default:"20"`
}

type AllocationConfig struct {
	LockTTL time.Duration `envconfig:"GIVEFI_ALLOCATION_LOCK_TTL" default:"30s"`
}

type TraceConfig struct {
	DefaultMaxDepth int           `envconfig:"GIVEFI_TRACE_DEFAULT_MAX_DEPTH" default:"10"`
	MaxDepthCeiling int           `envconfig:"GIVEFI_TRACE_MAX_DEPTH_CEILING" default:"100"`
	Timeout         time.Duration `envconfig:"GIVEFI_TRACE_TIMEOUT" default:"60s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIVEFI_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GIVEFI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIVEFI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementSubscription string `envconfig:"GIVEFI_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIVEFI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
