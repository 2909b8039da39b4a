package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	GCP      GCPConfig
	GCS      GCSConfig
	PubSub   PubSubConfig
	BigQuery BigQueryConfig
	Stripe   StripeConfig
	Gemini   GeminiConfig
	Webhook  WebhookConfig

	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"HOMEASE_APP_ENV" required:"true"`
	Port         string `envconfig:"HOMEASE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HOMEASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HOMEASE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"HOMEASE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HOMEASE_DB_DSN"`
	Driver string `envconfig:"HOMEASE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HOMEASE_DB_HOST"`
	LegacyPort     int    `envconfig:"HOMEASE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HOMEASE_DB_USER"`
	LegacyPassword string `envconfig:"HOMEASE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HOMEASE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HOMEASE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HOMEASE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HOMEASE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HOMEASE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOMEASE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HOMEASE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HOMEASE_REDIS_ADDR"`
	Password     string        `envconfig:"HOMEASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HOMEASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HOMEASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOMEASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOMEASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOMEASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOMEASE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HOMEASE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HOMEASE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HOMEASE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HOMEASE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HOMEASE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HOMEASE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HOMEASE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HOMEASE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HOMEASE_ARGON_KEY_LEN" default:"32"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HOMEASE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"HOMEASE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HOMEASE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"HOMEASE_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"HOMEASE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
}

type PubSubConfig struct {
	LeadCreatedTopic        string `envconfig:"HOMEASE_PUBSUB_LEAD_CREATED_TOPIC" default:"lead-created"`
	LeadCreatedSubscription string `envconfig:"HOMEASE_PUBSUB_LEAD_CREATED_SUBSCRIPTION" required:"true"`
	RolePendingTopic        string `envconfig:"HOMEASE_PUBSUB_ROLE_PENDING_TOPIC" default:"role-pending"`
	RolePendingSubscription string `envconfig:"HOMEASE_PUBSUB_ROLE_PENDING_SUBSCRIPTION" required:"true"`
	AssessmentTopic         string `envconfig:"HOMEASE_PUBSUB_ASSESSMENT_TOPIC" default:"ar-assessment-created"`
	AssessmentSubscription  string `envconfig:"HOMEASE_PUBSUB_ASSESSMENT_SUBSCRIPTION" required:"true"`
	LeadEventsTopic         string `envconfig:"HOMEASE_PUBSUB_LEAD_EVENTS_TOPIC" default:"lead-events"`
	LeadEventsSubscription  string `envconfig:"HOMEASE_PUBSUB_LEAD_EVENTS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"HOMEASE_BIGQUERY_DATASET" default:"homease"`
	LeadEventsTable string `envconfig:"HOMEASE_BIGQUERY_LEAD_EVENTS_TABLE" default:"lead_events"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"HOMEASE_STRIPE_API_KEY"`
	Secret          string `envconfig:"HOMEASE_STRIPE_SECRET"`
	Env             string `envconfig:"HOMEASE_STRIPE_ENV" default:"test"`
	OnboardReturn   string `envconfig:"HOMEASE_STRIPE_ONBOARD_RETURN_URL"`
	OnboardRefresh  string `envconfig:"HOMEASE_STRIPE_ONBOARD_REFRESH_URL"`
	CheckoutSuccess string `envconfig:"HOMEASE_STRIPE_CHECKOUT_SUCCESS_URL"`
	CheckoutCancel  string `envconfig:"HOMEASE_STRIPE_CHECKOUT_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GeminiConfig struct {
	APIKey             string `envconfig:"HOMEASE_GEMINI_API_KEY"`
	AnalysisModel      string `envconfig:"HOMEASE_GEMINI_ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	VisualizationModel string `envconfig:"HOMEASE_GEMINI_VISUALIZATION_MODEL" default:"gemini-2.5-flash-image-preview"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"HOMEASE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HOMEASE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"HOMEASE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HOMEASE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"HOMEASE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"HOMEASE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"HOMEASE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
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
