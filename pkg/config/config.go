package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every environment variable this
// service reads. envconfig still honors the explicit envconfig tags below; the
// prefix only applies to fields that omit one.
const EnvPrefix = "RAILWATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBHost = "RAILWATCH_DB_HOST"
	EnvDBUser = "RAILWATCH_DB_USER"
	EnvDBName = "RAILWATCH_DB_NAME"
	EnvDBDSN  = "RAILWATCH_DB_DSN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	Services  ServicesConfig
	Detection DetectionConfig
	Scheduler SchedulerConfig
	PubSub    PubSubConfig
	GCP       GCPConfig
	Outbox    OutboxConfig
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
	Env          string `envconfig:"RAILWATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"RAILWATCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RAILWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAILWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ServiceConfig selects which binary role a process started from this config
// is playing. Kind is overridden at startup by cmd/*/main.go, not read from
// the environment in normal operation.
type ServiceConfig struct {
	Kind string `envconfig:"RAILWATCH_SERVICE_KIND" default:"scheduler-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"RAILWATCH_DB_DSN"`
	Driver string `envconfig:"RAILWATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RAILWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"RAILWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RAILWATCH_DB_USER"`
	LegacyPassword string `envconfig:"RAILWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"RAILWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"RAILWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RAILWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RAILWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RAILWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RAILWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"RAILWATCH_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RAILWATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RAILWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"RAILWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAILWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAILWATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RAILWATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RAILWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAILWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAILWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`

	LockTTL             time.Duration `envconfig:"RAILWATCH_REDIS_LOCK_TTL" default:"55s"`
	IdempotencyCacheTTL time.Duration `envconfig:"RAILWATCH_REDIS_IDEMPOTENCY_TTL" default:"720h"`
}

// ServicesConfig holds base URLs and timeouts for the three upstream HTTP
// dependencies this service polls or calls.
type ServicesConfig struct {
	UpstreamDelaysBaseURL string        `envconfig:"RAILWATCH_UPSTREAM_DELAYS_BASE_URL" required:"true"`
	UpstreamDelaysTimeout time.Duration `envconfig:"RAILWATCH_UPSTREAM_DELAYS_TIMEOUT" default:"10s"`

	JourneyMatcherBaseURL string        `envconfig:"RAILWATCH_JOURNEY_MATCHER_BASE_URL" required:"true"`
	JourneyMatcherTimeout time.Duration `envconfig:"RAILWATCH_JOURNEY_MATCHER_TIMEOUT" default:"10s"`

	ClaimsOracleBaseURL string        `envconfig:"RAILWATCH_CLAIMS_ORACLE_BASE_URL" required:"true"`
	ClaimsOracleTimeout time.Duration `envconfig:"RAILWATCH_CLAIMS_ORACLE_TIMEOUT" default:"10s"`
}

// DetectionConfig carries the Delay Detector's classification threshold.
type DetectionConfig struct {
	ThresholdMinutes int `envconfig:"RAILWATCH_DETECTION_THRESHOLD_MINUTES" default:"15"`
}

// SchedulerConfig drives the Tick Scheduler's cadence and locking behavior.
type SchedulerConfig struct {
	TickInterval  time.Duration `envconfig:"RAILWATCH_SCHEDULER_TICK_INTERVAL" default:"5m"`
	LockKey       string        `envconfig:"RAILWATCH_SCHEDULER_LOCK_KEY" default:"railwatch:scheduler:tick"`
	LockRequired  bool          `envconfig:"RAILWATCH_SCHEDULER_LOCK_REQUIRED" default:"true"`
	BatchSize     int           `envconfig:"RAILWATCH_SCHEDULER_BATCH_SIZE" default:"200"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RAILWATCH_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RAILWATCH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RAILWATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig names the single topic/subscription pair every delay-tracker
// domain event is routed through.
type PubSubConfig struct {
	DomainTopic        string `envconfig:"RAILWATCH_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"RAILWATCH_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RAILWATCH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RAILWATCH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RAILWATCH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RAILWATCH_OUTBOX_RETENTION_DAYS" default:"14"`
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
