package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values are layered: defaults, then
// the optional YAML file, then environment variables, then command-line flags.
type Config struct {
	InputPath       string   `yaml:"input"`
	OutputDir       string   `yaml:"output_dir"`
	ModelPath       string   `yaml:"model_path"`
	Retrain         bool     `yaml:"retrain"`
	CreateSample    bool     `yaml:"create_sample"`
	DatabaseURL     string   `yaml:"database_url"`
	MetricsTextfile string   `yaml:"metrics_textfile"`
	S3              S3Config `yaml:"s3"`
}

// S3Config selects the optional bucket mirroring the model and outputs.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // For testing with MinIO
	Prefix   string `yaml:"prefix"`
}

func defaultConfig() *Config {
	return &Config{
		InputPath: "./TestData/input.xlsx",
		OutputDir: "./Output",
		ModelPath: "./MLModels/comment_classifier.bin",
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "tpdm",
		},
	}
}

// loadConfig builds the configuration from defaults, the YAML file at path
// (or TPDM_CONFIG when path is empty) and the environment.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("TPDM_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %w", ErrConfiguration, path, err)
		}
	}

	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadEnv() {
	c.InputPath = getEnvOrDefault("TPDM_INPUT", c.InputPath)
	c.OutputDir = getEnvOrDefault("TPDM_OUTPUT_DIR", c.OutputDir)
	c.ModelPath = getEnvOrDefault("TPDM_MODEL_PATH", c.ModelPath)
	c.Retrain = getBoolEnvOrDefault("TPDM_RETRAIN", c.Retrain)
	c.CreateSample = getBoolEnvOrDefault("TPDM_CREATE_SAMPLE", c.CreateSample)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.MetricsTextfile = getEnvOrDefault("METRICS_TEXTFILE", c.MetricsTextfile)
	c.S3.Bucket = getEnvOrDefault("S3_BUCKET", c.S3.Bucket)
	c.S3.Region = getEnvOrDefault("S3_REGION", c.S3.Region)
	c.S3.Endpoint = getEnvOrDefault("S3_ENDPOINT", c.S3.Endpoint) // Optional, for MinIO testing
	c.S3.Prefix = getEnvOrDefault("S3_PREFIX", c.S3.Prefix)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("%w: input path is required", ErrConfiguration)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrConfiguration)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("%w: model path is required", ErrConfiguration)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}
