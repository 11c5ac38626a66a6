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
	JWT          JWTConfig
	Mixam        MixamConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Mixam.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STORYPRINT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STORYPRINT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STORYPRINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STORYPRINT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STORYPRINT_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STORYPRINT_CORS_ORIGINS"` // comma separated
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STORYPRINT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STORYPRINT_DB_DSN"`
	Driver string `envconfig:"STORYPRINT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STORYPRINT_DB_HOST"`
	Port     int    `envconfig:"STORYPRINT_DB_PORT" default:"5432"`
	User     string `envconfig:"STORYPRINT_DB_USER"`
	Password string `envconfig:"STORYPRINT_DB_PASSWORD"`
	Name     string `envconfig:"STORYPRINT_DB_NAME"`
	SSLMode  string `envconfig:"STORYPRINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORYPRINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORYPRINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORYPRINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORYPRINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORYPRINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STORYPRINT_REDIS_ADDR"`
	Password     string        `envconfig:"STORYPRINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORYPRINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORYPRINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORYPRINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORYPRINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORYPRINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORYPRINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STORYPRINT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORYPRINT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORYPRINT_JWT_EXPIRATION_MINUTES" default:"60"`
	Audience          string `envconfig:"STORYPRINT_JWT_AUDIENCE"`
	LeewaySeconds     int    `envconfig:"STORYPRINT_JWT_LEEWAY_SECONDS" default:"30"`
}

// MixamConfig holds the print broker credentials. Either APIToken or the
// Username/Password pair must be present.
type MixamConfig struct {
	BaseURL  string        `envconfig:"STORYPRINT_MIXAM_BASE_URL" default:"https://mixam.co.uk"`
	APIToken string        `envconfig:"STORYPRINT_MIXAM_API_TOKEN"`
	Username string        `envconfig:"STORYPRINT_MIXAM_USERNAME"`
	Password string        `envconfig:"STORYPRINT_MIXAM_PASSWORD"`
	Timeout  time.Duration `envconfig:"STORYPRINT_MIXAM_TIMEOUT" default:"30s"`
}

// HasCredentials reports whether any broker credential is configured.
func (m MixamConfig) HasCredentials() bool {
	return strings.TrimSpace(m.APIToken) != "" || (strings.TrimSpace(m.Username) != "" && m.Password != "")
}

func (m MixamConfig) validate() error {
	if !m.HasCredentials() {
		return fmt.Errorf("either %s or %s and %s are required", EnvMixamAPIToken, EnvMixamUsername, EnvMixamPassword)
	}
	if _, err := url.Parse(m.BaseURL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvMixamBaseURL, err)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORYPRINT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STORYPRINT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STORYPRINT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PrintOrdersTopic  string `envconfig:"STORYPRINT_PUBSUB_PRINT_ORDERS_TOPIC" default:"print-order-events"`
	NotificationTopic string `envconfig:"STORYPRINT_PUBSUB_NOTIFICATION_TOPIC" default:"notification-events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"STORYPRINT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"STORYPRINT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"STORYPRINT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"STORYPRINT_OUTBOX_METRICS_ADDR" default:":9091"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
