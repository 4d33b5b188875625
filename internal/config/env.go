package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables consulted after the file is parsed.
const (
	EnvLogLevel = "SITEBUILDER_LOG_LEVEL"
	EnvRoot     = "SITEBUILDER_ROOT"
)

// loadEnvFiles loads .env.local and .env from dir, in that order. Variables that
// are already set, including ones from an earlier file, are never overwritten.
func loadEnvFiles(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.Root = v
	}
}
