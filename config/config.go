/*
Package config loads ledgerd's startup configuration from flags and
environment variables, the same two-source precedence the teacher's
cmd/server/main.go used (flag wins if explicitly set, otherwise an env
var, otherwise a default) but reading .env files through
github.com/joho/godotenv first so a local dev checkout doesn't need
real environment variables exported.
*/
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/pennywise/ledger/cryptoutil"
)

// Config is ledgerd's full startup configuration.
type Config struct {
	HTTPAddr      string
	SQLitePath    string
	ScratchPath   string
	EncryptionKey []byte // 32 bytes, decoded from LEDGERD_ENC_KEY
	SchedulerOn   bool
}

// Load reads .env (if present), then flags, then environment variables,
// then falls back to hardcoded defaults matching the teacher's
// cmd/server/main.go flag set.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	httpAddr := fs.String("addr", envOr("LEDGERD_ADDR", ":8080"), "HTTP listen address")
	dbPath := fs.String("db", envOr("LEDGERD_DB_PATH", "ledger.db"), "SQLite database file path")
	scratchPath := fs.String("scratch", envOr("LEDGERD_SCRATCH_PATH", "ledger-scratch.db"), "bbolt scratch file path for in-flight imports")
	schedulerOn := fs.Bool("scheduler", envOrBool("LEDGERD_SCHEDULER_ENABLED", true), "run the recurring-template and Gmail-scan cron scheduler")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	keyRaw := os.Getenv("LEDGERD_ENC_KEY")
	if keyRaw == "" {
		return Config{}, fmt.Errorf("config: LEDGERD_ENC_KEY must be set to a base64-encoded 32-byte key")
	}
	key, err := cryptoutil.DecodeKey(keyRaw)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if len(key) != 32 {
		return Config{}, fmt.Errorf("config: LEDGERD_ENC_KEY must decode to exactly 32 bytes, got %d", len(key))
	}

	return Config{
		HTTPAddr:      *httpAddr,
		SQLitePath:    *dbPath,
		ScratchPath:   *scratchPath,
		EncryptionKey: key,
		SchedulerOn:   *schedulerOn,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
