// Package config provides YAML-based configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the root YAML configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Scan retention configuration
	Retention RetentionConfig `yaml:"retention"`

	// Capture pipeline tuning (used by the scanner client)
	Capture CaptureConfig `yaml:"capture"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// DatabaseConfig contains DuckDB settings
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	Threads     int    `yaml:"threads"`
	MemoryLimit string `yaml:"memoryLimit"`
}

// AuthConfig contains token settings
type AuthConfig struct {
	JWTSecret    string `yaml:"jwtSecret"`
	TokenTTL     int    `yaml:"tokenTtlHours"`
	SeedUsername string `yaml:"seedUsername"`
	SeedPassword string `yaml:"seedPassword"`
	SeedFullName string `yaml:"seedFullName"`
}

// RetentionConfig controls the scan cleanup job
type RetentionConfig struct {
	Days            int  `yaml:"days"`
	IntervalMinutes int  `yaml:"intervalMinutes"`
	Enabled         bool `yaml:"enabled"`
}

// CaptureConfig tunes the barcode capture pipeline
type CaptureConfig struct {
	HistorySize         int `yaml:"historySize"`
	InactivityTimeoutMs int `yaml:"inactivityTimeoutMs"`
	AlignmentDelayMs    int `yaml:"alignmentDelayMs"`
	RequiredReads       int `yaml:"requiredReads"`
	ValidationWindowMs  int `yaml:"validationWindowMs"`
	CooldownMs          int `yaml:"cooldownMs"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			BodyLimit:    "2M",
		},
		Database: DatabaseConfig{
			Path:        "./data/inventory.duckdb",
			Threads:     2,
			MemoryLimit: "512MB",
		},
		Auth: AuthConfig{
			JWTSecret:    "",
			TokenTTL:     24,
			SeedUsername: "admin",
			SeedPassword: "admin",
			SeedFullName: "Administrator",
		},
		Retention: RetentionConfig{
			Days:            3,
			IntervalMinutes: 60,
			Enabled:         true,
		},
		Capture: CaptureConfig{
			HistorySize:         20,
			InactivityTimeoutMs: 100,
			AlignmentDelayMs:    300,
			RequiredReads:       3,
			ValidationWindowMs:  500,
			CooldownMs:          2000,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Barcode inventory backend configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Database.Path) {
		c.Database.Path = filepath.Join(configDir, c.Database.Path)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// TokenTTLDuration returns the configured token lifetime as a duration
func (c *AppConfig) TokenTTLDuration() time.Duration {
	return time.Duration(c.Auth.TokenTTL) * time.Hour
}

// EnsureDirectories creates the database directory
func (c *AppConfig) EnsureDirectories() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
