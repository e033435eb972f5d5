package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is built once at startup and passed explicitly to every component.
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	MPesa         MPesaConfig
	Notifications NotificationsConfig
	Idempotency   IdempotencyConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.MPesa.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SAFIPAY_APP_ENV" default:"dev"`
	Port         string   `envconfig:"SAFIPAY_APP_PORT" default:"3001"`
	LogLevel     string   `envconfig:"SAFIPAY_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"SAFIPAY_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"SAFIPAY_LOG_WARN_STACK" default:"false"`
	FrontendURL  string   `envconfig:"SAFIPAY_FRONTEND_URL" default:"http://localhost:5173"`
	CORSOrigins  []string `envconfig:"SAFIPAY_CORS_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SAFIPAY_DB_DSN"`
	Driver string `envconfig:"SAFIPAY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SAFIPAY_DB_HOST"`
	Port     int    `envconfig:"SAFIPAY_DB_PORT" default:"5432"`
	User     string `envconfig:"SAFIPAY_DB_USER"`
	Password string `envconfig:"SAFIPAY_DB_PASSWORD"`
	Name     string `envconfig:"SAFIPAY_DB_NAME"`
	SSLMode  string `envconfig:"SAFIPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAFIPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAFIPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAFIPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAFIPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the store runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SAFIPAY_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"SAFIPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAFIPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAFIPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAFIPAY_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"SAFIPAY_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig describes how bearer tokens issued by the identity provider are verified.
type JWTConfig struct {
	Secret   string `envconfig:"SAFIPAY_JWT_SECRET" required:"true"`
	Audience string `envconfig:"SAFIPAY_JWT_AUDIENCE" default:"authenticated"`
	Issuer   string `envconfig:"SAFIPAY_JWT_ISSUER"`
}

type MPesaConfig struct {
	Env            string        `envconfig:"SAFIPAY_MPESA_ENV" default:"sandbox"`
	BaseURL        string        `envconfig:"SAFIPAY_MPESA_BASE_URL"`
	ConsumerKey    string        `envconfig:"SAFIPAY_MPESA_CONSUMER_KEY" required:"true"`
	ConsumerSecret string        `envconfig:"SAFIPAY_MPESA_CONSUMER_SECRET" required:"true"`
	Shortcode      string        `envconfig:"SAFIPAY_MPESA_SHORTCODE" required:"true"`
	Passkey        string        `envconfig:"SAFIPAY_MPESA_PASSKEY" required:"true"`
	CallbackURL    string        `envconfig:"SAFIPAY_MPESA_CALLBACK_URL" required:"true"`
	Timeout        time.Duration `envconfig:"SAFIPAY_MPESA_TIMEOUT" default:"20s"`
}

// ResolvedBaseURL returns the explicit base URL or the one implied by Env.
func (m MPesaConfig) ResolvedBaseURL() string {
	if trimmed := strings.TrimSpace(m.BaseURL); trimmed != "" {
		return strings.TrimRight(trimmed, "/")
	}
	if strings.EqualFold(m.Env, MPesaEnvProduction) {
		return MPesaProductionURL
	}
	return MPesaSandboxURL
}

func (m MPesaConfig) validate(app AppConfig) error {
	u, err := url.Parse(strings.TrimSpace(m.CallbackURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", EnvMPesaCallbackURL)
	}
	if !app.IsDev() && u.Scheme != "https" {
		return fmt.Errorf("%s must use https outside dev", EnvMPesaCallbackURL)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvMPesaTimeout)
	}
	return nil
}

type NotificationsConfig struct {
	SendgridAPIKey string        `envconfig:"SAFIPAY_SENDGRID_API_KEY"`
	FromEmail      string        `envconfig:"SAFIPAY_MAIL_FROM_EMAIL" default:"noreply@safipay.com"`
	FromName       string        `envconfig:"SAFIPAY_MAIL_FROM_NAME" default:"SafiPay"`
	Timeout        time.Duration `envconfig:"SAFIPAY_MAIL_TIMEOUT" default:"10s"`
}

// UseSendgrid reports whether mail goes out through SendGrid instead of the log sender.
func (n NotificationsConfig) UseSendgrid() bool {
	return strings.TrimSpace(n.SendgridAPIKey) != ""
}

type IdempotencyConfig struct {
	RequestTTL  time.Duration `envconfig:"SAFIPAY_IDEMPOTENCY_TTL" default:"24h"`
	CallbackTTL time.Duration `envconfig:"SAFIPAY_CALLBACK_DEDUPE_TTL" default:"72h"`
}

// RateLimitConfig throttles push initiations; every push prompts the buyer's handset.
type RateLimitConfig struct {
	PushWindow  time.Duration `envconfig:"SAFIPAY_PUSH_RATE_WINDOW" default:"1m"`
	PushPerUser int           `envconfig:"SAFIPAY_PUSH_RATE_PER_USER" default:"5"`
	PushPerIP   int           `envconfig:"SAFIPAY_PUSH_RATE_PER_IP" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SAFIPAY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
