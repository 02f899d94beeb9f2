package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/pagesafe/pagesafe-backend/pkg/enums"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	OCR          OCRConfig
	NER          NERConfig
	Redaction    RedactionConfig
	Ingest       IngestConfig
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
	cfg.NER.ensureLabels()
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAGESAFE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAGESAFE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAGESAFE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAGESAFE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAGESAFE_DB_DSN"`
	Driver string `envconfig:"PAGESAFE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PAGESAFE_DB_HOST"`
	Port     int    `envconfig:"PAGESAFE_DB_PORT" default:"5432"`
	User     string `envconfig:"PAGESAFE_DB_USER"`
	Password string `envconfig:"PAGESAFE_DB_PASSWORD"`
	Name     string `envconfig:"PAGESAFE_DB_NAME"`
	SSLMode  string `envconfig:"PAGESAFE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAGESAFE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAGESAFE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAGESAFE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAGESAFE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.EqualFold(d.Driver, "sqlite") {
		if d.DSN == "" {
			d.DSN = "file:pagesafe.db?_pragma=foreign_keys(1)"
		}
		return nil
	}
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either PAGESAFE_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PAGESAFE_REDIS_URL"`
	Address      string        `envconfig:"PAGESAFE_REDIS_ADDR"`
	Password     string        `envconfig:"PAGESAFE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAGESAFE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAGESAFE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAGESAFE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAGESAFE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAGESAFE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAGESAFE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all; the
// idempotency layer is skipped when it was not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type OCRConfig struct {
	Languages           []string `envconfig:"PAGESAFE_OCR_LANGUAGES" default:"eng"`
	PageSegMode         int      `envconfig:"PAGESAFE_OCR_PAGE_SEG_MODE" default:"4"`
	ConfidenceThreshold float64  `envconfig:"PAGESAFE_OCR_CONFIDENCE_THRESHOLD" default:"60"`

	// RemoteBaseURL switches localization to an HTTP detection service
	// instead of embedded Tesseract.
	RemoteBaseURL string        `envconfig:"PAGESAFE_OCR_REMOTE_BASE_URL"`
	RemoteTimeout time.Duration `envconfig:"PAGESAFE_OCR_REMOTE_TIMEOUT" default:"30s"`
}

type NERConfig struct {
	BaseURL        string        `envconfig:"PAGESAFE_NER_BASE_URL" required:"true"`
	Labels         []string      `envconfig:"PAGESAFE_NER_LABELS"`
	ScoreThreshold float64       `envconfig:"PAGESAFE_NER_SCORE_THRESHOLD" default:"0.3"`
	Timeout        time.Duration `envconfig:"PAGESAFE_NER_TIMEOUT" default:"30s"`
}

// ensureLabels falls back to the canonical PII vocabulary when no label set
// was configured.
func (n *NERConfig) ensureLabels() {
	if len(n.Labels) == 0 {
		n.Labels = enums.PIILabelStrings(enums.DefaultPIILabels)
	}
}

type RedactionConfig struct {
	BlurSigma  float64 `envconfig:"PAGESAFE_REDACTION_BLUR_SIGMA" default:"8"`
	BoxPadding int     `envconfig:"PAGESAFE_REDACTION_BOX_PADDING" default:"5"`
}

type IngestConfig struct {
	Workers        int           `envconfig:"PAGESAFE_INGEST_WORKERS" default:"2"`
	QueueSize      int           `envconfig:"PAGESAFE_INGEST_QUEUE_SIZE" default:"32"`
	DPI            int           `envconfig:"PAGESAFE_INGEST_DPI" default:"300"`
	JPEGQuality    int           `envconfig:"PAGESAFE_INGEST_JPEG_QUALITY" default:"95"`
	MaxUploadBytes int64         `envconfig:"PAGESAFE_INGEST_MAX_UPLOAD_BYTES" default:"52428800"`
	StaleAfter     time.Duration `envconfig:"PAGESAFE_INGEST_STALE_AFTER" default:"30m"`
	ReapInterval   time.Duration `envconfig:"PAGESAFE_INGEST_REAP_INTERVAL" default:"5m"`
}

type PubSubConfig struct {
	ProjectID      string `envconfig:"PAGESAFE_PUBSUB_PROJECT_ID"`
	LifecycleTopic string `envconfig:"PAGESAFE_PUBSUB_LIFECYCLE_TOPIC"`
}

// Enabled reports whether lifecycle event publishing was configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.LifecycleTopic != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAGESAFE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAGESAFE_AUTO_MIGRATE" default:"false"`
}
