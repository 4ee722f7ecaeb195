package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string   `yaml:"port"`
	LogLevel          string   `yaml:"logLevel"`
	DatabaseURL       string   `yaml:"databaseURL"`
	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	CORSOrigin        string   `yaml:"corsOrigin"`
	UploadDir         string   `yaml:"uploadDir"`
	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	APIRateLimit      int      `yaml:"apiRateLimit"`
	APIRateWindowSecs int      `yaml:"apiRateWindowSeconds"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`
	SeedDemoData      bool     `yaml:"seedDemoData"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("BIZCHAT_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("BIZCHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("BIZCHAT_CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("BIZCHAT_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("BIZCHAT_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("BIZCHAT_API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.APIRateLimit = n
		}
	}
	if v := os.Getenv("BIZCHAT_API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.APIRateWindowSecs = n
		}
	}
	if v := os.Getenv("BIZCHAT_SEED_DEMO_DATA"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.SeedDemoData = enabled
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.UploadDir == "" {
		return errors.New("config: uploadDir is required (set in config.yaml)")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("config: maxUploadBytes must be > 0 (set in config.yaml or BIZCHAT_MAX_UPLOAD_BYTES)")
	}
	if cfg.RedisAddr != "" {
		if cfg.APIRateLimit <= 0 {
			return errors.New("config: apiRateLimit must be > 0 when redisAddr is set")
		}
		if cfg.APIRateWindowSecs <= 0 {
			return errors.New("config: apiRateWindowSeconds must be > 0 when redisAddr is set")
		}
	}
	return nil
}
