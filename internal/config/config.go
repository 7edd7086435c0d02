// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds the ingress HTTP listener identity.
type ServiceConfig struct {
	Host       string
	Port       int
	InstanceID string
}

// AnalyzerConfig selects and configures the analysis collaborator.
type AnalyzerConfig struct {
	Provider       string // "openai" or "mock"
	Model          string
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	AdvisorEnabled bool // checklist tool collaborator
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string // debug, info, warn, error
	LogFormat   string // json, console
	MetricsAddr string
}

// Config is the full runtime configuration for the sink service.
type Config struct {
	Service         ServiceConfig
	ProductSpecPath string
	OutputDir       string
	TranscriptFile  string
	Analyzer        AnalyzerConfig
	Observability   ObservabilityConfig
}

// Load reads configuration from the environment with strict validation.
// The product spec path is required; everything else has defaults.
func Load() (*Config, error) {
	specPath := strings.TrimSpace(os.Getenv("PRODUCT_SPEC_PATH"))
	if specPath == "" {
		return nil, fmt.Errorf("PRODUCT_SPEC_PATH is required")
	}

	instanceID := strings.TrimSpace(envOrDefault("INSTANCE_ID", "default"))
	if instanceID == "" {
		return nil, fmt.Errorf("INSTANCE_ID resolved to empty value")
	}

	portRaw := envOrDefault("SINK_PORT", "8765")
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return nil, fmt.Errorf("SINK_PORT must be an integer, got %q", portRaw)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("SINK_PORT must be in range 1-65535, got %d", port)
	}

	outputDir := strings.TrimSpace(os.Getenv("OUTPUT_DIR"))
	if outputDir == "" {
		if instanceID != "default" {
			outputDir = filepath.Join("output", instanceID)
		} else {
			outputDir = "output"
		}
	}

	transcriptFile := strings.TrimSpace(os.Getenv("TRANSCRIPT_FILE"))
	if transcriptFile == "" {
		name := "meeting_transcript.txt"
		if instanceID != "default" {
			name = fmt.Sprintf("meeting_transcript_%s.txt", instanceID)
		}
		transcriptFile = filepath.Join(outputDir, name)
	}

	timeoutRaw := envOrDefault("ANALYZER_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutRaw)
	if err != nil {
		return nil, fmt.Errorf("ANALYZER_TIMEOUT must be a duration, got %q", timeoutRaw)
	}

	provider := strings.ToLower(envOrDefault("ANALYZER_PROVIDER", "mock"))
	switch provider {
	case "mock", "openai":
	default:
		return nil, fmt.Errorf("ANALYZER_PROVIDER must be 'mock' or 'openai', got %q", provider)
	}

	return &Config{
		Service: ServiceConfig{
			Host:       envOrDefault("SINK_HOST", "0.0.0.0"),
			Port:       port,
			InstanceID: instanceID,
		},
		ProductSpecPath: specPath,
		OutputDir:       outputDir,
		TranscriptFile:  transcriptFile,
		Analyzer: AnalyzerConfig{
			Provider:       provider,
			Model:          envOrDefault("ANALYZER_MODEL", "gpt-4o"),
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:        timeout,
			AdvisorEnabled: envOrDefault("CHECKLIST_ADVISOR", "false") == "true",
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}, nil
}

// Addr returns the host:port the ingress listener binds to.
func (s ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
