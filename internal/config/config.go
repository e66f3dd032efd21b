package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mismatch policies for sheets whose root topic was replaced.
const (
	OnMismatchAbort = "abort"
	OnMismatchSkip  = "skip"
)

// Config represents the application configuration
type Config struct {
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	Output     string `yaml:"output"`
	OnMismatch string `yaml:"on_mismatch"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/wbmerge/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := Defaults()

	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// The YAML file is optional; only a malformed one is an error.
	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)

	if cfg.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(homeDir, ".local", "share", "wbmerge", "wbmerge.db")
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		LogLevel:   "info",
		LogFormat:  "text",
		Output:     "text",
		OnMismatch: OnMismatchAbort,
	}
}

func applyEnv(cfg *Config) {
	if dbPath := getEnvOrFile("WBMERGE_DB_PATH", "WBMERGE_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("WBMERGE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("WBMERGE_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if output := os.Getenv("WBMERGE_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if onMismatch := os.Getenv("WBMERGE_ON_MISMATCH"); onMismatch != "" {
		cfg.OnMismatch = onMismatch
	}
}

// Validate rejects values the commands cannot act on.
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "table", "json", "yaml", "tsv":
	default:
		return fmt.Errorf("invalid output %q (want text, table, json, yaml or tsv)", c.Output)
	}
	switch c.OnMismatch {
	case OnMismatchAbort, OnMismatchSkip:
	default:
		return fmt.Errorf("invalid on_mismatch %q (want abort or skip)", c.OnMismatch)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// SkipMismatched reports whether mismatched sheets are skipped instead of
// aborting the merge.
func (c *Config) SkipMismatched() bool {
	return c.OnMismatch == OnMismatchSkip
}

// loadYAMLConfig loads configuration from ~/.config/wbmerge/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return loadYAMLFile(filepath.Join(homeDir, ".config", "wbmerge", "config.yaml"), cfg)
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
