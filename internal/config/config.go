package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	HistoryPolicyPrepend     = "prepend"
	HistoryPolicyMoveToFront = "move_to_front"
)

type Config struct {
	ModelPath         string
	MetadataPath      string
	OrtLibraryPath    string
	TopK              int
	ModelLoadTimeout  time.Duration
	ImageFetchTimeout time.Duration
	ClassifyTimeout   time.Duration
	MaxImageSize      int64
	LogLevel          string
	LogFile           string
	HistoryPolicy     string
	AzureAccountName  string
	AzureAccountKey   string
	BatchWorkers      int
	AllowedImageHosts []string
}

// fileConfig mirrors Config for YAML files. Durations are written as Go
// duration strings ("15s").
type fileConfig struct {
	ModelPath         string `yaml:"model_path"`
	MetadataPath      string `yaml:"metadata_path"`
	OrtLibraryPath    string `yaml:"onnxruntime_lib"`
	TopK              int    `yaml:"top_k"`
	ModelLoadTimeout  string `yaml:"model_load_timeout"`
	ImageFetchTimeout string `yaml:"image_fetch_timeout"`
	ClassifyTimeout   string `yaml:"classify_timeout"`
	MaxImageSize      int64  `yaml:"max_image_size"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
	HistoryPolicy     string `yaml:"history_policy"`
	Azure             struct {
		AccountName string `yaml:"account_name"`
		AccountKey  string `yaml:"account_key"`
	} `yaml:"azure"`
	BatchWorkers      int      `yaml:"batch_workers"`
	AllowedImageHosts []string `yaml:"allowed_image_hosts"`
}

// AzureEnabled reports whether blob storage credentials are configured
func (c *Config) AzureEnabled() bool {
	return strings.TrimSpace(c.AzureAccountName) != "" && strings.TrimSpace(c.AzureAccountKey) != ""
}

func Defaults() *Config {
	return &Config{
		ModelPath:         "models/mobilenet_v2.onnx",
		MetadataPath:      "models/mobilenet_v2.json",
		TopK:              3,
		ModelLoadTimeout:  60 * time.Second,
		ImageFetchTimeout: 15 * time.Second,
		ClassifyTimeout:   20 * time.Second,
		MaxImageSize:      10 * 1024 * 1024, // 10MB
		LogLevel:          "info",
		HistoryPolicy:     HistoryPolicyPrepend,
		BatchWorkers:      0,
	}
}

// LoadFromEnv builds a configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load builds a configuration from defaults, then the YAML file at path (if
// any), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be >= 1 (got %d)", c.TopK)
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be > 0 (got %d)", c.MaxImageSize)
	}
	if c.ModelLoadTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.ClassifyTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got load=%s, fetch=%s, classify=%s)",
			c.ModelLoadTimeout, c.ImageFetchTimeout, c.ClassifyTimeout)
	}
	switch c.HistoryPolicy {
	case HistoryPolicyPrepend, HistoryPolicyMoveToFront:
	default:
		return fmt.Errorf("invalid HISTORY_POLICY: %q", c.HistoryPolicy)
	}
	if c.BatchWorkers < 0 {
		return fmt.Errorf("BATCH_WORKERS must be >= 0 (got %d)", c.BatchWorkers)
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.ModelPath, fc.ModelPath)
	setString(&cfg.MetadataPath, fc.MetadataPath)
	setString(&cfg.OrtLibraryPath, fc.OrtLibraryPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.HistoryPolicy, fc.HistoryPolicy)
	setString(&cfg.AzureAccountName, fc.Azure.AccountName)
	setString(&cfg.AzureAccountKey, fc.Azure.AccountKey)

	if fc.TopK != 0 {
		cfg.TopK = fc.TopK
	}
	if fc.MaxImageSize != 0 {
		cfg.MaxImageSize = fc.MaxImageSize
	}
	if fc.BatchWorkers != 0 {
		cfg.BatchWorkers = fc.BatchWorkers
	}
	if hosts := cleanList(fc.AllowedImageHosts); len(hosts) > 0 {
		cfg.AllowedImageHosts = hosts
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"model_load_timeout", fc.ModelLoadTimeout, &cfg.ModelLoadTimeout},
		{"image_fetch_timeout", fc.ImageFetchTimeout, &cfg.ImageFetchTimeout},
		{"classify_timeout", fc.ClassifyTimeout, &cfg.ClassifyTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ModelPath = getEnvOrDefault("MODEL_PATH", cfg.ModelPath)
	cfg.MetadataPath = getEnvOrDefault("MODEL_METADATA_PATH", cfg.MetadataPath)
	cfg.OrtLibraryPath = getEnvOrDefault("ONNXRUNTIME_LIB", cfg.OrtLibraryPath)
	cfg.TopK = int(parseIntOrDefault("TOP_K", int64(cfg.TopK)))
	cfg.ModelLoadTimeout = parseDurationOrDefault("MODEL_LOAD_TIMEOUT", cfg.ModelLoadTimeout)
	cfg.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.ImageFetchTimeout)
	cfg.ClassifyTimeout = parseDurationOrDefault("CLASSIFY_TIMEOUT", cfg.ClassifyTimeout)
	cfg.MaxImageSize = parseIntOrDefault("MAX_IMAGE_SIZE", cfg.MaxImageSize)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnvOrDefault("LOG_FILE", cfg.LogFile)
	cfg.HistoryPolicy = getEnvOrDefault("HISTORY_POLICY", cfg.HistoryPolicy)
	cfg.AzureAccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.AzureAccountName)
	cfg.AzureAccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.AzureAccountKey)
	cfg.BatchWorkers = int(parseIntOrDefault("BATCH_WORKERS", int64(cfg.BatchWorkers)))
	cfg.AllowedImageHosts = parseListOrDefault("ALLOWED_IMAGE_HOSTS", cfg.AllowedImageHosts)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseListOrDefault reads a comma separated list. Blank entries are dropped.
func parseListOrDefault(key string, defaultValue []string) []string {
	if list := cleanList(strings.Split(os.Getenv(key), ",")); len(list) > 0 {
		return list
	}
	return defaultValue
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
