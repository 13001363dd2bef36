package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvProvider = "PROMPTSTRUCT_PROVIDER"
	EnvModel    = "PROMPTSTRUCT_MODEL"
	EnvAPIKey   = "PROMPTSTRUCT_API_KEY"
	EnvBaseURL  = "PROMPTSTRUCT_BASE_URL"
	EnvStorage  = "PROMPTSTRUCT_STORAGE"
	EnvRedisURL = "PROMPTSTRUCT_REDIS_URL"
	EnvLogLevel = "PROMPTSTRUCT_LOG_LEVEL"
	EnvLogJSON  = "PROMPTSTRUCT_LOG_JSON"
)

// Load reads path, or the default path when empty, applies environment
// overrides and validates the result. Only an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		var nf *ConfigNotFoundError
		if explicit || !errors.As(err, &nf) {
			return nil, err
		}
		cfg = Default()
	}

	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads a config file over the defaults without env overrides or
// validation.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'promptstruct config init' to create configuration",
			}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, newPermissionError("read", path, modeDetails(path))
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Restore from .bak file if available",
		}
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any PROMPTSTRUCT_* variables that are set.
func ApplyEnv(cfg *Config) {
	cfg.Provider = getEnv(EnvProvider, cfg.Provider)
	cfg.Model = getEnv(EnvModel, cfg.Model)
	cfg.APIKey = getEnv(EnvAPIKey, cfg.APIKey)
	cfg.BaseURL = getEnv(EnvBaseURL, cfg.BaseURL)
	cfg.Storage.Backend = getEnv(EnvStorage, cfg.Storage.Backend)
	cfg.Storage.RedisURL = getEnv(EnvRedisURL, cfg.Storage.RedisURL)
	cfg.Log.Level = getEnv(EnvLogLevel, cfg.Log.Level)
	cfg.Log.JSON = getEnvBool(EnvLogJSON, cfg.Log.JSON)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return value == "yes"
		}
		return b
	}
	return defaultValue
}
