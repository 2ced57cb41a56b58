package config

import (
	"fmt"
	"os"
	"strconv"

	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyEnvOverrides()
	config.ApplyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ApplyEnvOverrides lets RAINDROP_HOST, RAINDROP_PORT and LOG_LEVEL win over
// the file.
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("RAINDROP_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("RAINDROP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional settings left empty in the file
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataSource.Interval == "" {
		c.DataSource.Interval = utils.DefaultInterval
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.RequestsPerSecond == 0 {
		c.Network.RequestsPerSecond = 2
	}
	if c.Network.Burst == 0 {
		c.Network.Burst = 1
	}

	chart := &c.Chart
	if chart.DefaultBinMinutes == 0 {
		chart.DefaultBinMinutes = utils.DefaultBinMinutes
	}
	if chart.MinBinMinutes == 0 {
		chart.MinBinMinutes = utils.DefaultMinBinMinutes
	}
	if chart.MaxBinMinutes == 0 {
		chart.MaxBinMinutes = utils.DefaultMaxBinMinutes
	}
	if chart.DefaultMargin == 0 {
		chart.DefaultMargin = utils.DefaultMargin
	}
	if chart.VolumeScale == 0 {
		chart.VolumeScale = utils.DefaultVolumeScale
	}
	if chart.RefreshSeconds == 0 {
		chart.RefreshSeconds = utils.DefaultRefreshSeconds
	}
	if chart.RefreshLimit == 0 {
		chart.RefreshLimit = utils.DefaultRefreshLimit
	}
	if chart.Height == 0 {
		chart.Height = utils.DefaultChartHeight
	}
	if chart.Template == "" {
		chart.Template = utils.DefaultChartTemplate
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	// Data sources
	if _, ok := utils.IntervalDuration(c.DataSource.Interval); !ok {
		return fmt.Errorf("unsupported bar interval '%s'", c.DataSource.Interval)
	}
	if len(c.DataSource.Sources) == 0 {
		return fmt.Errorf("at least one data source must be configured")
	}
	for i, src := range c.DataSource.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		switch src.Type {
		case "yahoo":
		case "file":
			if src.Dir == "" {
				return fmt.Errorf("file source '%s' must have a dir", src.Name)
			}
			if src.Format != "" && src.Format != "parquet" && src.Format != "csv" {
				return fmt.Errorf("file source '%s' has unsupported format '%s'", src.Name, src.Format)
			}
		default:
			return fmt.Errorf("source '%s' has unsupported type '%s'", src.Name, src.Type)
		}
	}

	// Chart
	chart := c.Chart
	if chart.MinBinMinutes < 1 {
		return fmt.Errorf("min bin minutes must be at least 1")
	}
	if chart.MaxBinMinutes < chart.MinBinMinutes {
		return fmt.Errorf("max bin minutes (%d) is below min bin minutes (%d)", chart.MaxBinMinutes, chart.MinBinMinutes)
	}
	if chart.DefaultBinMinutes < chart.MinBinMinutes || chart.DefaultBinMinutes > chart.MaxBinMinutes {
		return fmt.Errorf("default bin minutes %d outside [%d, %d]", chart.DefaultBinMinutes, chart.MinBinMinutes, chart.MaxBinMinutes)
	}
	if chart.DefaultMargin < 0 {
		return fmt.Errorf("default margin cannot be negative")
	}
	if chart.VolumeScale <= 0 {
		return fmt.Errorf("volume scale must be greater than 0")
	}
	if chart.RefreshSeconds <= 0 || chart.RefreshLimit < 0 {
		return fmt.Errorf("invalid refresh settings: every %ds, limit %d", chart.RefreshSeconds, chart.RefreshLimit)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
