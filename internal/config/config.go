// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// S3 configures the S3 media host. An empty Bucket selects the in-memory host.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	Folder    string
	PathStyle bool
}

// Redis configures the shared rate limiter. An empty Addr selects the
// in-process limiter.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// OIDC configures single sign-on. An empty Issuer disables it.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Config is the full service configuration.
type Config struct {
	Addr        string
	WebDir      string
	DatabaseURL string

	TokenSecret string
	TokenTTL    time.Duration

	LogLevel    slog.Level
	CORSOrigins []string

	PlaceholderImageURL string
	MediaMaxBytes       int64

	S3    S3
	Redis Redis
	OIDC  OIDC

	RateLimitAuth   int
	RateLimitUpload int
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var p parser
	cfg := Config{
		Addr:        p.getString("ADDR", ":8080"),
		WebDir:      p.getString("WEB_DIR", ""),
		DatabaseURL: p.getString("DATABASE_URL", ""),

		TokenSecret: p.getString("ACCESS_TOKEN_SECRET", ""),
		TokenTTL:    p.getDuration("ACCESS_TOKEN_TTL", 72*time.Hour),

		LogLevel:    p.getLevel("LOG_LEVEL", slog.LevelInfo),
		CORSOrigins: splitList(p.getString("CORS_ORIGINS", "*")),

		PlaceholderImageURL: p.getString("PLACEHOLDER_IMAGE_URL", "/assets/placeholder.png"),
		MediaMaxBytes:       int64(p.getInt("MEDIA_MAX_BYTES", 5<<20)),

		S3: S3{
			Bucket:    p.getString("S3_BUCKET", ""),
			Region:    p.getString("S3_REGION", "us-east-1"),
			Endpoint:  p.getString("S3_ENDPOINT", ""),
			AccessKey: p.getString("S3_ACCESS_KEY", ""),
			SecretKey: p.getString("S3_SECRET_KEY", ""),
			PublicURL: p.getString("S3_PUBLIC_URL", ""),
			Folder:    p.getString("S3_FOLDER", "travel_stories"),
			PathStyle: p.getBool("S3_PATH_STYLE", false),
		},
		Redis: Redis{
			Addr:     p.getString("REDIS_ADDR", ""),
			Password: p.getString("REDIS_PASSWORD", ""),
			DB:       p.getInt("REDIS_DB", 0),
		},
		OIDC: OIDC{
			Issuer:       p.getString("OIDC_ISSUER", ""),
			ClientID:     p.getString("OIDC_CLIENT_ID", ""),
			ClientSecret: p.getString("OIDC_CLIENT_SECRET", ""),
			RedirectURL:  p.getString("OIDC_REDIRECT_URL", ""),
		},

		RateLimitAuth:   p.getInt("RATE_LIMIT_AUTH", 10),
		RateLimitUpload: p.getInt("RATE_LIMIT_UPLOAD", 30),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.MediaMaxBytes <= 0 {
		errs = append(errs, errors.New("MEDIA_MAX_BYTES must be positive"))
	}
	if c.RateLimitAuth < 0 || c.RateLimitUpload < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.OIDC.Issuer != "" && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		errs = append(errs, errors.New("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER is set"))
	}
	if len(c.CORSOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ORIGINS must list at least one origin"))
	}
	return errors.Join(errs...)
}

// SSOEnabled reports whether single sign-on is configured.
func (c Config) SSOEnabled() bool {
	return c.OIDC.Issuer != ""
}

// parser collects malformed values instead of silently falling back.
type parser struct {
	errs []error
}

func (p *parser) getString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (p *parser) getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (p *parser) getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (p *parser) getLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %w", key, err))
		return fallback
	}
	return level
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
