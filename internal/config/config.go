// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; durations and counts are parsed eagerly so the
// rest of the program never touches the environment.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	Lease         time.Duration // reservation lease duration
	SweepInterval time.Duration // pause between sweeper iterations
	SweepBatch    int           // max leases reclaimed per atomic sweep
	SweepClasses  []int         // classes covered by background sweepers
	UnitPrice     int           // price charged per ticket

	WalletMode string // "static" (always approve) or "mysql" (ledger debit)
	DBUser     string // wallet database username (mysql mode)
	DBPass     string // wallet database password (mysql mode, optional)
	DBHost     string // wallet database host (mysql mode)
	DBPort     string // wallet database port (mysql mode)
	DBName     string // wallet database name (mysql mode)

	AdminJWTSecret string // when set, /preload and /reclaim require a bearer token
}

// Load reads configuration from the environment, after sourcing a .env file
// when one exists.  Only the mysql wallet credentials are hard requirements,
// and only when that mode is selected; everything else has a default suited
// to local development.
func Load() Config {
	_ = godotenv.Load() // optional; real deployments set the environment directly

	cfg := Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "8080"),
		Lease:          envDur("LEASE_SECONDS", 30*time.Second),
		SweepInterval:  envDur("SWEEP_INTERVAL", time.Second),
		SweepBatch:     envInt("SWEEP_BATCH", 500),
		SweepClasses:   envIntList("SWEEP_CLASSES"),
		UnitPrice:      envInt("UNIT_PRICE", 10),
		WalletMode:     getenv("WALLET_MODE", "static"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
	}
	if cfg.WalletMode == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	if cfg.Lease < time.Second {
		cfg.Lease = time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Second
	}
	if cfg.SweepBatch < 1 {
		cfg.SweepBatch = 1
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// envDur parses a duration.  A bare number is taken as seconds so that
// LEASE_SECONDS=30 and LEASE_SECONDS=30s mean the same thing.
func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

// envIntList parses a comma-separated list of integers.  Empty or unset
// yields nil (no sweepers).
func envIntList(key string) []int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			log.Fatalf("invalid int %q in %s", p, key)
		}
		out = append(out, n)
	}
	return out
}
