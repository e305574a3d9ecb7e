package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env                string   `envconfig:"ENV" default:"local"`
	HTTPHost           string   `envconfig:"HTTP_HOST" default:""`
	HTTPPort           string   `envconfig:"HTTP_PORT" default:"5000"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"debug"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type DatabaseEnv struct {
	Driver         string        `envconfig:"DB_DRIVER" default:"postgres"`
	Host           string        `envconfig:"DB_HOST" default:"localhost"`
	Port           string        `envconfig:"DB_PORT" default:"5432"`
	User           string        `envconfig:"DB_USER" default:"postgres"`
	Password       string        `envconfig:"DB_PASSWORD"`
	Name           string        `envconfig:"DB_NAME" default:"taskflow"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	ConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	// SQLite settings (used when Driver == "sqlite")
	SQLitePath string `envconfig:"SQLITE_PATH" default:".taskflow/taskflow.db"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskflow/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskflow/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type AIEnv struct {
	Provider      string        `envconfig:"AI_PROVIDER" default:"none"`
	Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@localhost"`
}

func (e *VAPIDEnv) Configured() bool {
	return e != nil && e.VAPIDPublicKey != "" && e.VAPIDPrivateKey != ""
}

type Env struct {
	BaseEnv
	DatabaseEnv
	StorageEnv
	AIEnv
	VAPIDEnv
}

const namespace = "TASKFLOW"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.DatabaseEnv.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", e.DatabaseEnv.Driver)
	}
	switch e.StorageEnv.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q (want local or s3)", e.StorageEnv.Type)
	}
	switch e.AIEnv.Provider {
	case "none", "claude", "gemini":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q (want none, claude or gemini)", e.AIEnv.Provider)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// PostgresURL renders the connection settings as a pgx connection URL.
func (e *DatabaseEnv) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(e.Host, e.Port),
		Path:   "/" + e.Name,
	}
	if e.Password != "" {
		u.User = url.UserPassword(e.User, e.Password)
	} else {
		u.User = url.User(e.User)
	}
	q := url.Values{}
	if e.SSLMode != "" {
		q.Set("sslmode", e.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactedURL is PostgresURL without the password, for logging.
func (e *DatabaseEnv) RedactedURL() string {
	if e.Driver == "sqlite" {
		return "sqlite://" + e.SQLitePath
	}
	u, err := url.Parse(e.PostgresURL())
	if err != nil {
		return ""
	}
	return u.Redacted()
}

func (e *BaseEnv) AllowsAnyOrigin() bool {
	for _, o := range e.CORSAllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func DatabaseEnvFromEnv(env *Env) *DatabaseEnv {
	return &env.DatabaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func AIEnvFromEnv(env *Env) *AIEnv {
	return &env.AIEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
