// Package config loads orchestrator configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWebhookSecret is the placeholder shipped in example environments.
const DefaultWebhookSecret = "replace_me"

// ErrInsecureWebhookSecret is returned when a non-development environment runs
// with an empty or placeholder webhook secret.
var ErrInsecureWebhookSecret = errors.New("TRUSTED_WEBHOOK_SECRET must be set to a non-default value")

// Config holds the orchestrator runtime configuration.
type Config struct {
	Host string
	Port int
	Env  string

	// Downstream base URLs. Empty means the service is not probed.
	RAGAPIURL     string
	DoclingAPIURL string
	WebHealthURL  string

	WebhookSecret string

	// DockerHost overrides the engine address (e.g. tcp://host:2375).
	DockerHost       string
	DockerSocketPath string

	ProbeTimeout time.Duration
	LogTailLines int

	// DiagnoseJWTSecret enables bearer auth on /diagnose when set.
	DiagnoseJWTSecret string

	PubSubProjectID string
	PubSubTopic     string

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64
}

// Load reads an optional .env file and then builds a Config from the environment.
// Variables already present in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv creates a Config from environment variables.
func FromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "9000"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	probeTimeout, err := time.ParseDuration(getEnvOrDefault("PROBE_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROBE_TIMEOUT: %w", err)
	}

	tail, err := strconv.Atoi(getEnvOrDefault("LOG_TAIL_LINES", "200"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOG_TAIL_LINES: %w", err)
	}

	sampleRatio, err := strconv.ParseFloat(getEnvOrDefault("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse OTEL_TRACES_SAMPLER_ARG: %w", err)
	}

	return Config{
		Host:              getEnvOrDefault("HOST", "0.0.0.0"),
		Port:              port,
		Env:               getEnvOrDefault("APP_ENV", "development"),
		RAGAPIURL:         strings.TrimRight(os.Getenv("RAG_API_URL"), "/"),
		DoclingAPIURL:     strings.TrimRight(os.Getenv("DOCLING_API_URL"), "/"),
		WebHealthURL:      getEnvOrDefault("WEB_HEALTH_URL", "http://web:3000/health"),
		WebhookSecret:     getEnvOrDefault("TRUSTED_WEBHOOK_SECRET", DefaultWebhookSecret),
		DockerHost:        os.Getenv("DOCKER_HOST"),
		DockerSocketPath:  getEnvOrDefault("DOCKER_SOCKET_PATH", "/var/run/docker.sock"),
		ProbeTimeout:      probeTimeout,
		LogTailLines:      tail,
		DiagnoseJWTSecret: os.Getenv("DIAGNOSE_JWT_SECRET"),
		PubSubProjectID:   os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:       os.Getenv("PUBSUB_TOPIC"),
		OTelEnabled:       os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio:   sampleRatio,
	}, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the service runs in a local environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.Env) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// InsecureWebhookSecret reports whether the webhook secret is empty or the placeholder.
func (c Config) InsecureWebhookSecret() bool {
	return c.WebhookSecret == "" || c.WebhookSecret == DefaultWebhookSecret
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive, got %s", c.ProbeTimeout)
	}
	if c.LogTailLines <= 0 {
		return fmt.Errorf("LOG_TAIL_LINES must be positive, got %d", c.LogTailLines)
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be within [0,1], got %g", c.OTelSampleRatio)
	}
	if !c.IsDevelopment() && c.InsecureWebhookSecret() {
		return ErrInsecureWebhookSecret
	}
	if (c.PubSubProjectID == "") != (c.PubSubTopic == "") {
		return errors.New("PUBSUB_PROJECT_ID and PUBSUB_TOPIC must be set together")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
