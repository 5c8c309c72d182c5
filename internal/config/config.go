package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr                string
	DatabaseURL         string
	SupabaseURL         string
	SupabaseAnonKey     string
	TickEvery           time.Duration
	RemoteTimeout       time.Duration
	AllowDegradedWrites bool
	SeedCatalog         bool
	DBMaxConns          int32
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("VENCHA_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                addr,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:     strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		TickEvery:           envDurationDefault("VENCHA_TICK_EVERY", 10*time.Second),
		RemoteTimeout:       envDurationDefault("VENCHA_REMOTE_TIMEOUT", 5*time.Second),
		AllowDegradedWrites: envBoolDefault("VENCHA_ALLOW_DEGRADED_WRITES", false),
		SeedCatalog:         envBoolDefault("VENCHA_SEED_CATALOG", true),
		DBMaxConns:          envInt32Default("VENCHA_DB_MAX_CONNS", 20),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("VC_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt32Default(key string, fallback int32) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n <= 0 {
		return fallback
	}
	return int32(n)
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
