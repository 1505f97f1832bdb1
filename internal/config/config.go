package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Drafts   DraftsConfig   `mapstructure:"drafts"`
	Mail     MailConfig     `mapstructure:"mail"`
	Intake   IntakeConfig   `mapstructure:"intake"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	FunctionPort   int      `mapstructure:"function_port"`
	StaticDir      string   `mapstructure:"static_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig describes the hosted database/auth/functions service.
// Credentials are validated lazily by backend.Provider, not here.
type BackendConfig struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	AnonKey        string        `mapstructure:"anon_key"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	FunctionsURL   string        `mapstructure:"functions_url"`
	Table          string        `mapstructure:"table"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig contains connection options for the PostgreSQL instance behind the backend.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection options.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig contains connection options for the S3-compatible storage endpoint.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	BucketLookup    string `mapstructure:"bucket_lookup"`
}

// DraftsConfig controls where admin draft snapshots live.
type DraftsConfig struct {
	Driver      string        `mapstructure:"driver"`
	TTL         time.Duration `mapstructure:"ttl"`
	Debounce    time.Duration `mapstructure:"debounce"`
	CleanupSpec string        `mapstructure:"cleanup_spec"`
	SessionIdle time.Duration `mapstructure:"session_idle"`
}

// MailConfig configures the transactional mail provider used by the mail function.
type MailConfig struct {
	APIURL     string   `mapstructure:"api_url"`
	APIKey     string   `mapstructure:"api_key"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// IntakeConfig configures the public contact/quote form.
type IntakeConfig struct {
	RateLimitPerHour int    `mapstructure:"rate_limit_per_hour"`
	MaxFileBytes     int64  `mapstructure:"max_file_bytes"`
	MaxFiles         int    `mapstructure:"max_files"`
	ClamdAddr        string `mapstructure:"clamd_addr"`
	Source           string `mapstructure:"source"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns host:port for go-redis.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// FunctionURL returns the invoke URL of a named backend function.
func (b BackendConfig) FunctionURL(name string) string {
	base := strings.TrimRight(strings.TrimSpace(b.FunctionsURL), "/")
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(b.URL), "/") + "/functions/v1"
	}
	return base + "/" + strings.TrimLeft(name, "/")
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// comma separated lists arrive as a single element from the environment
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)
	cfg.Mail.Recipients = splitList(cfg.Mail.Recipients)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.function_port", 8081)
	v.SetDefault("api.static_dir", "")
	v.SetDefault("backend.driver", "rest")
	v.SetDefault("backend.table", "job_postings")
	v.SetDefault("backend.request_timeout", 15*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.region", "eu-central-1")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "job-applications")
	v.SetDefault("storage.bucket_lookup", "path")
	v.SetDefault("drafts.driver", "memory")
	v.SetDefault("drafts.ttl", 24*time.Hour)
	v.SetDefault("drafts.debounce", 300*time.Millisecond)
	v.SetDefault("drafts.cleanup_spec", "@every 1h")
	v.SetDefault("drafts.session_idle", 2*time.Hour)
	v.SetDefault("mail.api_url", "https://api.resend.com")
	v.SetDefault("mail.from", "no-reply@laila-thun-gebaeudereinigung.de")
	v.SetDefault("mail.recipients", []string{"laila.thun@web.de", "mayk-fuhrmann@web.de"})
	v.SetDefault("intake.rate_limit_per_hour", 20)
	v.SetDefault("intake.max_file_bytes", 10*1024*1024)
	v.SetDefault("intake.max_files", 10)
	v.SetDefault("intake.source", "anfrage.html")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "API_PORT",
		"api.function_port":          "FUNCTION_PORT",
		"api.static_dir":             "STATIC_DIR",
		"api.allowed_origins":        "ALLOWED_ORIGINS",
		"backend.driver":             "BACKEND_DRIVER",
		"backend.url":                "SUPABASE_URL",
		"backend.anon_key":           "SUPABASE_ANON_KEY",
		"backend.service_role_key":   "SUPABASE_SERVICE_ROLE_KEY",
		"backend.jwt_secret":         "SUPABASE_JWT_SECRET",
		"backend.functions_url":      "SUPABASE_FUNCTIONS_URL",
		"backend.table":              "JOBS_TABLE",
		"backend.request_timeout":    "BACKEND_REQUEST_TIMEOUT",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"storage.endpoint":           "STORAGE_ENDPOINT",
		"storage.region":             "STORAGE_REGION",
		"storage.access_key_id":      "STORAGE_ACCESS_KEY_ID",
		"storage.secret_access_key":  "STORAGE_SECRET_ACCESS_KEY",
		"storage.use_ssl":            "STORAGE_USE_SSL",
		"storage.bucket":             "STORAGE_BUCKET",
		"storage.bucket_lookup":      "STORAGE_BUCKET_LOOKUP",
		"drafts.driver":              "DRAFTS_DRIVER",
		"drafts.ttl":                 "DRAFTS_TTL",
		"drafts.debounce":            "DRAFTS_DEBOUNCE",
		"drafts.cleanup_spec":        "DRAFTS_CLEANUP_SPEC",
		"drafts.session_idle":        "DRAFTS_SESSION_IDLE",
		"mail.api_url":               "RESEND_API_URL",
		"mail.api_key":               "RESEND_API_KEY",
		"mail.from":                  "FROM_EMAIL",
		"mail.recipients":            "MAIL_RECIPIENTS",
		"intake.rate_limit_per_hour": "INTAKE_RATE_LIMIT_PER_HOUR",
		"intake.max_file_bytes":      "INTAKE_MAX_FILE_BYTES",
		"intake.max_files":           "INTAKE_MAX_FILES",
		"intake.clamd_addr":          "CLAMD_ADDR",
		"intake.source":              "INTAKE_SOURCE",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.FunctionPort <= 0 {
		return errors.New("function port must be positive")
	}
	switch cfg.Backend.Driver {
	case "rest", "postgres":
	default:
		return fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
	if strings.TrimSpace(cfg.Backend.Table) == "" {
		return errors.New("jobs table is required")
	}
	if cfg.Backend.RequestTimeout <= 0 {
		return errors.New("backend request timeout must be positive")
	}
	switch cfg.Drafts.Driver {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown drafts driver %q", cfg.Drafts.Driver)
	}
	if cfg.Drafts.Debounce <= 0 {
		return errors.New("drafts debounce must be positive")
	}
	if cfg.Drafts.Driver == "redis" || cfg.Intake.RateLimitPerHour > 0 {
		if cfg.Redis.Host == "" {
			return errors.New("redis host is required")
		}
		if cfg.Redis.Port <= 0 {
			return errors.New("redis port must be positive")
		}
	}
	if cfg.Backend.Driver == "postgres" || cfg.Drafts.Driver == "postgres" {
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.Port <= 0 {
			return errors.New("database port must be positive")
		}
		if cfg.Database.Password == "" {
			return errors.New("database password is required")
		}
	}
	if cfg.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if len(cfg.Mail.Recipients) == 0 {
		return errors.New("at least one mail recipient is required")
	}
	return nil
}
