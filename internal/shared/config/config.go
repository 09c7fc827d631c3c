package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"boneai-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	DatabaseURL    string
	DatabaseDriver string

	ObjectStoreType string
	LocalStoreDir   string
	PublicBaseURL   string
	ImagesBucket    string
	AWSRegion       string
	S3Prefix        string
	S3PublicBaseURL string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	MinioRegion     string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string
	LLMTimeout  time.Duration

	MailProvider string
	ResendAPIKey string
	MailFrom     string

	ReportImageTimeout time.Duration
	// ReportImageHosts lists extra hosts report images may be fetched from,
	// on top of the configured object store.
	ReportImageHosts []string
	JWTSecret        string
}

const (
	DefaultLLMBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultLLMModel   = "gemini-2.0-flash"
)

// Load reads configuration from environment variables, an optional config file
// named by CONFIG_PATH and local .env files, with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if path := strings.TrimSpace(v.GetString("CONFIG_PATH")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			telemetry.Warn("config.file_not_loaded", map[string]any{"path": path, "error": err.Error()})
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("IMAGES_BUCKET", "analysis-images")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", DefaultLLMModel)
	v.SetDefault("LLM_BASE_URL", DefaultLLMBaseURL)
	v.SetDefault("LLM_TIMEOUT", "120s")
	v.SetDefault("MAIL_PROVIDER", "resend")
	v.SetDefault("MAIL_FROM", "Bone AI Reports <reports@boneai.app>")
	v.SetDefault("REPORT_IMAGE_TIMEOUT", "20s")
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:               v.GetString("PORT"),
		Env:                env,
		CORSAllowOrigin:    splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:        dbURL,
		DatabaseDriver:     normalizeDriver(v.GetString("DATABASE_DRIVER")),
		ObjectStoreType:    normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		ImagesBucket:       v.GetString("IMAGES_BUCKET"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Prefix:           v.GetString("S3_PREFIX"),
		S3PublicBaseURL:    strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
		MinioEndpoint:      v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:     v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:     v.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:        v.GetBool("MINIO_USE_SSL"),
		MinioRegion:        v.GetString("MINIO_REGION"),
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMAPIKey:          v.GetString("LLM_API_KEY"),
		LLMModel:           v.GetString("LLM_MODEL"),
		LLMBaseURL:         v.GetString("LLM_BASE_URL"),
		LLMTimeout:         durationOr(v, "LLM_TIMEOUT", 120*time.Second),
		MailProvider:       strings.ToLower(strings.TrimSpace(v.GetString("MAIL_PROVIDER"))),
		ResendAPIKey:       v.GetString("RESEND_API_KEY"),
		MailFrom:           v.GetString("MAIL_FROM"),
		ReportImageTimeout: durationOr(v, "REPORT_IMAGE_TIMEOUT", 20*time.Second),
		ReportImageHosts:   splitAndTrim(v.GetString("REPORT_IMAGE_HOSTS")),
		JWTSecret:          v.GetString("JWT_SECRET"),
	}
}

// durationOr accepts Go durations ("90s") and bare seconds ("90").
func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs := v.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw, "default": def.String()})
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mysql":
		return "mysql"
	default:
		return "postgres"
	}
}
