package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the admin API reads from the environment so main
// stays lean. A missing .env file is not an error; real deployments inject
// variables directly.
type Config struct {
	Addr  string
	PGDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProviderBaseURL string
	ProviderSecret  string
	ProviderTimeout time.Duration

	// Fixed-window limiter guarding admin token verification.
	AdminVerifyMax    int
	AdminVerifyWindow time.Duration

	// Token-bucket limiter applied per client IP at the HTTP edge.
	IPRatePerSecond int
	IPRateBurst     int

	MaxBodyBytes int64

	// Countries treated as high risk by the scoring engine, ISO 3166-1 alpha-2.
	HighRiskCountries []string
}

// Load reads configuration from the environment, consulting .env first.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              envOr("GIVORA_ADDR", ":8080"),
		PGDSN:             os.Getenv("GIVORA_PG_DSN"),
		RedisAddr:         os.Getenv("GIVORA_REDIS_ADDR"),
		RedisPassword:     os.Getenv("GIVORA_REDIS_PASSWORD"),
		RedisDB:           envInt("GIVORA_REDIS_DB", 0),
		ProviderBaseURL:   os.Getenv("GIVORA_VERIFY_PROVIDER_URL"),
		ProviderSecret:    os.Getenv("GIVORA_VERIFY_PROVIDER_SECRET"),
		ProviderTimeout:   envDuration("GIVORA_VERIFY_PROVIDER_TIMEOUT", 5*time.Second),
		AdminVerifyMax:    envInt("GIVORA_ADMIN_VERIFY_MAX", 10),
		AdminVerifyWindow: envDuration("GIVORA_ADMIN_VERIFY_WINDOW", time.Minute),
		IPRatePerSecond:   envInt("GIVORA_IP_RATE_PER_SECOND", 20),
		IPRateBurst:       envInt("GIVORA_IP_RATE_BURST", 40),
		MaxBodyBytes:      int64(envInt("GIVORA_MAX_BODY_BYTES", 1<<20)),
		HighRiskCountries: envList("GIVORA_HIGH_RISK_COUNTRIES", defaultHighRiskCountries),
	}
}

var defaultHighRiskCountries = []string{"KP", "IR", "SY", "CU", "MM"}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
