package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	OCR       OCRConfig       `toml:"ocr"`
	Converter ConverterConfig `toml:"converter"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                                       // "stdout", "file"
}

// OCRConfig contains recognition service configuration
type OCRConfig struct {
	APIKey         string `toml:"api_key"`                           // Recognition service API key
	BaseURL        string `toml:"base_url" validate:"omitempty,url"` // Service base URL
	Model          string `toml:"model"`                             // Recognition model name
	RequestTimeout string `toml:"request_timeout"`                   // e.g., "60s" - per-request HTTP timeout
	RateLimit      int    `toml:"rate_limit" validate:"gte=0"`       // Requests per second
	IncludeImages  bool   `toml:"include_images"`                    // Request embedded image payloads
}

// ConverterConfig contains pipeline output configuration
type ConverterConfig struct {
	OutputDir string `toml:"output_dir"` // Directory for markdown output and assets
}

// WorkspaceConfig contains scratch workspace configuration
type WorkspaceConfig struct {
	BaseDir string `toml:"base_dir"` // Base directory for conversion workspaces (default: system temp)
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in scriptor.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		OCR: OCRConfig{
			APIKey:         "", // User must provide API key (SCRIPTOR_OCR_API_KEY or config)
			BaseURL:        "https://api.mistral.ai",
			Model:          "mistral-ocr-latest",
			RequestTimeout: "60s",
			RateLimit:      2,
			IncludeImages:  true,
		},
		Converter: ConverterConfig{
			OutputDir: "./output",
		},
		Workspace: WorkspaceConfig{
			BaseDir: "", // Empty uses the system temp directory
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Logging configuration
	if level := os.Getenv("SCRIPTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCRIPTOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// OCR configuration
	// Standard service env var first, SCRIPTOR_ prefix takes priority
	if apiKey := os.Getenv("MISTRAL_API_KEY"); apiKey != "" {
		config.OCR.APIKey = apiKey
	}
	if apiKey := os.Getenv("SCRIPTOR_OCR_API_KEY"); apiKey != "" {
		config.OCR.APIKey = apiKey
	}
	if baseURL := os.Getenv("SCRIPTOR_OCR_BASE_URL"); baseURL != "" {
		config.OCR.BaseURL = baseURL
	}
	if model := os.Getenv("SCRIPTOR_OCR_MODEL"); model != "" {
		config.OCR.Model = model
	}
	if timeout := os.Getenv("SCRIPTOR_OCR_REQUEST_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.OCR.RequestTimeout = timeout
		}
	}
	if rateLimit := os.Getenv("SCRIPTOR_OCR_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.OCR.RateLimit = rl
		}
	}
	if includeImages := os.Getenv("SCRIPTOR_OCR_INCLUDE_IMAGES"); includeImages != "" {
		if ii, err := strconv.ParseBool(includeImages); err == nil {
			config.OCR.IncludeImages = ii
		}
	}

	// Converter configuration
	if outputDir := os.Getenv("SCRIPTOR_OUTPUT_DIR"); outputDir != "" {
		config.Converter.OutputDir = outputDir
	}

	// Workspace configuration
	if baseDir := os.Getenv("SCRIPTOR_WORKSPACE_DIR"); baseDir != "" {
		config.Workspace.BaseDir = baseDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, apiKey, outputDir, model string) {
	// Command-line flags have highest priority
	if apiKey != "" {
		config.OCR.APIKey = apiKey
	}
	if outputDir != "" {
		config.Converter.OutputDir = outputDir
	}
	if model != "" {
		config.OCR.Model = model
	}
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.OCR.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.OCR.RequestTimeout); err != nil {
			return fmt.Errorf("invalid ocr.request_timeout %q: %w", c.OCR.RequestTimeout, err)
		}
	}

	return nil
}

// RequestTimeoutDuration returns the parsed request timeout, falling back
// to 60s on an empty or bad value
func (c *OCRConfig) RequestTimeoutDuration() time.Duration {
	if c.RequestTimeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
